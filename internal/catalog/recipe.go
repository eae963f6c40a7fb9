package catalog

import (
	"fmt"
	"strings"

	"nutriflow/internal/nutrition"
)

// PlanType selects which subset of the catalog is eligible for a plan.
type PlanType string

const (
	PlanBalanced    PlanType = "balanced"
	PlanHighProtein PlanType = "high-protein"
	PlanLowCarb     PlanType = "low-carb"
	PlanVegetarian  PlanType = "vegetarian"
	PlanVegan       PlanType = "vegan"
	PlanKeto        PlanType = "keto"
)

// UnmarshalText normalizes plan types so "High-Protein " and "high-protein" match.
func (p *PlanType) UnmarshalText(text []byte) error {
	*p = PlanType(strings.ToLower(strings.TrimSpace(string(text))))
	return nil
}

// MealSlot is one of the four meal positions in a day.
type MealSlot string

const (
	Breakfast MealSlot = "breakfast"
	Lunch     MealSlot = "lunch"
	Dinner    MealSlot = "dinner"
	Snack     MealSlot = "snack"
)

// Slots lists every meal slot in serving order.
func Slots() []MealSlot {
	return []MealSlot{Breakfast, Lunch, Dinner, Snack}
}

// ParseMealSlot accepts a slot name in any case. "snacks" is accepted for Snack.
func ParseMealSlot(s string) (MealSlot, error) {
	switch v := MealSlot(strings.ToLower(strings.TrimSpace(s))); v {
	case Breakfast, Lunch, Dinner, Snack:
		return v, nil
	case "snacks":
		return Snack, nil
	}
	return "", fmt.Errorf("unknown meal slot %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler so catalog keys and request
// bodies are validated on decode.
func (s *MealSlot) UnmarshalText(text []byte) error {
	v, err := ParseMealSlot(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Recipe is an immutable catalog entry.
type Recipe struct {
	Name         string           `json:"name" yaml:"name"`
	Ingredients  []string         `json:"ingredients" yaml:"ingredients"`
	Instructions string           `json:"instructions" yaml:"instructions"`
	Nutrition    nutrition.Macros `json:"nutrition_facts" yaml:"nutrition"`
}

// Food is a single entry of the local food table used when logging meals.
type Food struct {
	Name     string  `json:"name" yaml:"name"`
	Serving  string  `json:"serving" yaml:"serving"`
	Calories float64 `json:"calories" yaml:"calories"`
	Protein  float64 `json:"protein" yaml:"protein"`
	Carbs    float64 `json:"carbs" yaml:"carbs"`
	Fat      float64 `json:"fat" yaml:"fat"`
}

// Macros returns the nutrition values of one serving.
func (f Food) Macros() nutrition.Macros {
	return nutrition.Macros{Calories: f.Calories, Protein: f.Protein, Carbs: f.Carbs, Fat: f.Fat}
}
