package mealplan

import (
	"fmt"
	"math"
	"slices"

	"nutriflow/internal/catalog"
	"nutriflow/internal/nutrition"
)

// ScaledMeal is a catalog recipe whose macros were rescaled to a calorie budget.
// Ingredients and instructions are the recipe's own text; serving sizes in them
// are not adjusted.
type ScaledMeal struct {
	Name         string           `json:"name"`
	Type         catalog.MealSlot `json:"type"`
	Ingredients  []string         `json:"ingredients"`
	Instructions string           `json:"instructions"`
	Nutrition    nutrition.Macros `json:"nutrition_facts"`
}

// Scale multiplies every macro of r by target / r's baseline calories and rounds
// each one independently, so protein, carbs and fat may drift slightly. Calories
// are round(target) exactly.
//
// A recipe with no baseline calories cannot be scaled: the meal is returned with
// its baseline values together with an error wrapping ErrInvalidRecipe.
func Scale(r catalog.Recipe, slot catalog.MealSlot, target float64) (ScaledMeal, error) {
	meal := ScaledMeal{
		Name:         r.Name,
		Type:         slot,
		Ingredients:  slices.Clone(r.Ingredients),
		Instructions: r.Instructions,
		Nutrition:    r.Nutrition,
	}

	if r.Nutrition.Calories <= 0 {
		return meal, fmt.Errorf("%w: %q has no baseline calories", ErrInvalidRecipe, r.Name)
	}
	if target < 0 || math.IsNaN(target) || math.IsInf(target, 0) {
		return meal, ErrInvalidCalorieTarget
	}

	ratio := target / r.Nutrition.Calories
	meal.Nutrition = nutrition.Macros{
		Calories: math.Round(target),
		Protein:  math.Round(r.Nutrition.Protein * ratio),
		Carbs:    math.Round(r.Nutrition.Carbs * ratio),
		Fat:      math.Round(r.Nutrition.Fat * ratio),
	}
	return meal, nil
}
