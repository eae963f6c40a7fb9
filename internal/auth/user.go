package auth

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Default targets for new accounts.
const (
	DefaultCalorieTarget = 2000
	DefaultProteinTarget = 150
	DefaultCarbsTarget   = 200
	DefaultFatTarget     = 65
	MaxCalorieTarget     = 10000
)

// Known profile option ids.
var (
	DietaryRestrictions = []string{"vegetarian", "vegan", "gluten-free", "dairy-free", "keto", "paleo"}
	Allergies           = []string{"peanuts", "tree-nuts", "dairy", "eggs", "seafood", "soy", "wheat"}
)

// MacroTargets are daily grams of each macronutrient.
type MacroTargets struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
}

// User is an account and its nutrition profile.
type User struct {
	ID                  string       `json:"id"`
	Name                string       `json:"name"`
	Email               string       `json:"email"`
	PasswordHash        string       `json:"-"`
	FitnessGoal         string       `json:"fitness_goal,omitempty"`
	CalorieTarget       float64      `json:"calorie_target"`
	MacroTargets        MacroTargets `json:"macro_targets"`
	DietaryRestrictions []string     `json:"dietary_restrictions"`
	Allergies           []string     `json:"allergies"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// ProfileUpdate replaces the editable parts of a profile.
type ProfileUpdate struct {
	Name                string       `json:"name"`
	FitnessGoal         string       `json:"fitness_goal"`
	CalorieTarget       float64      `json:"calorie_target"`
	MacroTargets        MacroTargets `json:"macro_targets"`
	DietaryRestrictions []string     `json:"dietary_restrictions"`
	Allergies           []string     `json:"allergies"`
}

// Validate checks targets and option ids.
func (p ProfileUpdate) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if p.CalorieTarget < 1 || p.CalorieTarget > MaxCalorieTarget {
		return fmt.Errorf("%w: calorie target must be between 1 and %d", ErrInvalidProfile, MaxCalorieTarget)
	}
	m := p.MacroTargets
	if m.Protein < 0 || m.Carbs < 0 || m.Fat < 0 {
		return fmt.Errorf("%w: macro targets cannot be negative", ErrInvalidProfile)
	}
	for _, r := range p.DietaryRestrictions {
		if !slices.Contains(DietaryRestrictions, r) {
			return fmt.Errorf("%w: unknown dietary restriction %q", ErrInvalidProfile, r)
		}
	}
	for _, a := range p.Allergies {
		if !slices.Contains(Allergies, a) {
			return fmt.Errorf("%w: unknown allergy %q", ErrInvalidProfile, a)
		}
	}
	return nil
}

// apply copies p onto u, deduplicating option lists.
func (p ProfileUpdate) apply(u *User) {
	u.Name = strings.TrimSpace(p.Name)
	u.FitnessGoal = strings.TrimSpace(p.FitnessGoal)
	u.CalorieTarget = p.CalorieTarget
	u.MacroTargets = p.MacroTargets
	u.DietaryRestrictions = dedupe(p.DietaryRestrictions)
	u.Allergies = dedupe(p.Allergies)
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// NormalizeEmail lower-cases and trims an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
