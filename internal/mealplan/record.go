package mealplan

import (
	"time"

	"nutriflow/internal/catalog"
	"nutriflow/internal/nutrition"
)

// SavedMeal is a stored meal of a saved plan.
type SavedMeal struct {
	ID           string           `json:"id"`
	MealPlanID   string           `json:"meal_plan_id"`
	Name         string           `json:"name"`
	Type         catalog.MealSlot `json:"type"`
	Nutrition    nutrition.Macros `json:"nutrition_facts"`
	Instructions string           `json:"instructions"`
	Ingredients  []string         `json:"ingredients"`
	CreatedAt    time.Time        `json:"created_at"`
}

// SavedPlan is the durable record of a MealPlan. TotalNutrition is recomputed
// from the stored meals.
type SavedPlan struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	Name           string           `json:"name"`
	CaloriesTarget float64          `json:"calories_target"`
	TotalNutrition nutrition.Macros `json:"total_nutrition"`
	Meals          []SavedMeal      `json:"meals"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Total recomputes TotalNutrition from Meals.
func (p *SavedPlan) Total() {
	var total nutrition.Macros
	for _, m := range p.Meals {
		total = total.Add(m.Nutrition)
	}
	p.TotalNutrition = total
}

// IngredientLines returns each meal's ingredient lines, in meal order.
func (p *SavedPlan) IngredientLines() [][]string {
	out := make([][]string, 0, len(p.Meals))
	for _, m := range p.Meals {
		out = append(out, m.Ingredients)
	}
	return out
}
