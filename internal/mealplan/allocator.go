package mealplan

import (
	"math"

	"nutriflow/internal/catalog"
)

// BaseWeights is the share of the daily calorie target given to each slot when
// every slot is included.
var BaseWeights = map[catalog.MealSlot]float64{
	catalog.Breakfast: 0.25,
	catalog.Lunch:     0.30,
	catalog.Dinner:    0.35,
	catalog.Snack:     0.10,
}

// Budgets maps each included slot to its calorie budget.
type Budgets map[catalog.MealSlot]float64

// AllocateCalories splits target across the included slots. Weights of excluded
// slots are dropped and the rest renormalized to sum to one; each budget is
// rounded to the nearest whole calorie. Rounding drift is not corrected.
func AllocateCalories(target float64, included []catalog.MealSlot) (Budgets, error) {
	if target <= 0 || math.IsNaN(target) || math.IsInf(target, 0) {
		return nil, ErrInvalidCalorieTarget
	}

	want := make(map[catalog.MealSlot]bool, len(included))
	for _, s := range included {
		want[s] = true
	}

	// Fixed order keeps the floating point sum identical between calls.
	var sum float64
	var slots []catalog.MealSlot
	for _, s := range catalog.Slots() {
		if want[s] {
			slots = append(slots, s)
			sum += BaseWeights[s]
		}
	}
	if len(slots) == 0 {
		return nil, ErrInvalidSelection
	}

	budgets := make(Budgets, len(slots))
	for _, s := range slots {
		budgets[s] = math.Round(BaseWeights[s] / sum * target)
	}
	return budgets, nil
}

// Total returns the sum of all budgets.
func (b Budgets) Total() float64 {
	var t float64
	for _, v := range b {
		t += v
	}
	return t
}
