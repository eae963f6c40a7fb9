package mealplan

import (
	"fmt"
	"time"

	"nutriflow/internal/catalog"
	"nutriflow/internal/nutrition"
)

// Meals holds the scaled meals of a plan. Absent slots are nil.
type Meals struct {
	Breakfast *ScaledMeal  `json:"breakfast,omitempty"`
	Lunch     *ScaledMeal  `json:"lunch,omitempty"`
	Dinner    *ScaledMeal  `json:"dinner,omitempty"`
	Snacks    []ScaledMeal `json:"snacks"`
}

// All returns the present meals in serving order, snacks last.
func (m Meals) All() []ScaledMeal {
	var out []ScaledMeal
	for _, meal := range []*ScaledMeal{m.Breakfast, m.Lunch, m.Dinner} {
		if meal != nil {
			out = append(out, *meal)
		}
	}
	return append(out, m.Snacks...)
}

// MealPlan is a generated day of meals. It lives in memory until saved.
type MealPlan struct {
	Name              string           `json:"name"`
	PlanType          catalog.PlanType `json:"plan_type"`
	CaloriePreference float64          `json:"calorie_preference"`
	TotalNutrition    nutrition.Macros `json:"total_nutrition"`
	Meals             Meals            `json:"meals"`
	Notes             string           `json:"notes,omitempty"`
}

// DefaultPlanName is used when the caller does not name a plan.
func DefaultPlanName(label string, generated time.Time) string {
	return fmt.Sprintf("%s Plan - %s", label, generated.Format("2006-01-02"))
}

// Assemble builds a MealPlan whose total is the element-wise sum of every
// present meal, each snack counted individually.
func Assemble(name string, pt catalog.PlanType, calories float64, meals Meals) MealPlan {
	if meals.Snacks == nil {
		meals.Snacks = []ScaledMeal{}
	}

	var total nutrition.Macros
	for _, m := range meals.All() {
		total = total.Add(m.Nutrition)
	}

	return MealPlan{
		Name:              name,
		PlanType:          pt,
		CaloriePreference: calories,
		TotalNutrition:    total,
		Meals:             meals,
	}
}
