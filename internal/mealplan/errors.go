package mealplan

import "errors"

var (
	// ErrInvalidSelection is returned when no meal slot is included.
	ErrInvalidSelection = errors.New("at least one meal must be included")
	// ErrInvalidCalorieTarget is returned for a non-positive or non-finite daily target.
	ErrInvalidCalorieTarget = errors.New("calorie target must be a positive number")
	// ErrInvalidRecipe marks a catalog entry that cannot be scaled.
	ErrInvalidRecipe = errors.New("invalid recipe")
	// ErrUnknownPlanType is returned for plan types absent from the catalog.
	ErrUnknownPlanType = errors.New("unknown plan type")
)
