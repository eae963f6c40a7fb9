// Package tracking computes meal log totals and progress against a user's daily
// targets.
package tracking

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"nutriflow/internal/catalog"
	"nutriflow/internal/nutrition"
)

var (
	// ErrNoFoods is returned when a meal log has no food entries.
	ErrNoFoods = errors.New("please add at least one food item to log a meal")
	// ErrInvalidFood is returned for a food entry without a name or calories, or with
	// negative values.
	ErrInvalidFood = errors.New("please provide at least a name and calories for your food item")
)

// DefaultServing is used for food entries logged without a serving size.
const DefaultServing = "1 serving"

// FoodEntry is one food eaten as part of a logged meal.
type FoodEntry struct {
	Name     string  `json:"name"`
	Serving  string  `json:"serving"`
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

// Macros returns the nutrition values of the entry.
func (f FoodEntry) Macros() nutrition.Macros {
	return nutrition.Macros{Calories: f.Calories, Protein: f.Protein, Carbs: f.Carbs, Fat: f.Fat}
}

// MealLog is a meal the user ate. Totals is the sum of its foods.
type MealLog struct {
	ID          string           `json:"id"`
	UserID      string           `json:"user_id"`
	Name        string           `json:"name"`
	MealType    catalog.MealSlot `json:"meal_type"`
	Description string           `json:"description,omitempty"`
	Foods       []FoodEntry      `json:"foods"`
	Totals      nutrition.Macros `json:"totals"`
	LoggedAt    time.Time        `json:"logged_at"`
	CreatedAt   time.Time        `json:"created_at"`
}

// NewMealLog validates the foods and builds an unsaved log. The name defaults to
// the meal type and loggedAt to now.
func NewMealLog(userID, name string, mealType catalog.MealSlot, description string, foods []FoodEntry, loggedAt time.Time) (*MealLog, error) {
	if len(foods) == 0 {
		return nil, ErrNoFoods
	}

	entries := make([]FoodEntry, len(foods))
	for i, f := range foods {
		f.Name = strings.TrimSpace(f.Name)
		if f.Name == "" || f.Macros().IsNegative() {
			return nil, fmt.Errorf("%w (entry %d)", ErrInvalidFood, i+1)
		}
		if strings.TrimSpace(f.Serving) == "" {
			f.Serving = DefaultServing
		}
		entries[i] = f
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = string(mealType)
	}
	if loggedAt.IsZero() {
		loggedAt = time.Now()
	}

	return &MealLog{
		UserID:      userID,
		Name:        name,
		MealType:    mealType,
		Description: strings.TrimSpace(description),
		Foods:       entries,
		Totals:      Totals(entries),
		LoggedAt:    loggedAt.UTC(),
	}, nil
}

// Totals sums the foods element-wise.
func Totals(foods []FoodEntry) nutrition.Macros {
	var total nutrition.Macros
	for _, f := range foods {
		total = total.Add(f.Macros())
	}
	return total
}

// DayBounds returns the UTC day containing t as a half-open interval.
func DayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// DailySummary is one day's intake measured against the user's targets.
type DailySummary struct {
	Date     string           `json:"date"`
	Meals    int              `json:"meals"`
	Totals   nutrition.Macros `json:"totals"`
	Targets  nutrition.Macros `json:"targets"`
	Progress nutrition.Macros `json:"progress"`
}

// Summarize totals the logs that fall on day and compares them with targets.
// Progress is the percentage of each target reached; a zero target yields 0.
func Summarize(day time.Time, logs []MealLog, targets nutrition.Macros) DailySummary {
	start, end := DayBounds(day)

	s := DailySummary{Date: start.Format(time.DateOnly), Targets: targets}
	for _, l := range logs {
		if l.LoggedAt.Before(start) || !l.LoggedAt.Before(end) {
			continue
		}
		s.Meals++
		s.Totals = s.Totals.Add(l.Totals)
	}

	s.Progress = nutrition.Macros{
		Calories: nutrition.Percent(s.Totals.Calories, targets.Calories),
		Protein:  nutrition.Percent(s.Totals.Protein, targets.Protein),
		Carbs:    nutrition.Percent(s.Totals.Carbs, targets.Carbs),
		Fat:      nutrition.Percent(s.Totals.Fat, targets.Fat),
	}
	return s
}

// HistoryDays is the length of the weekly history.
const HistoryDays = 7

// DayTotals is one entry of the weekly history.
type DayTotals struct {
	Date          string           `json:"date"`
	Day           string           `json:"day"`
	Totals        nutrition.Macros `json:"totals"`
	CalorieTarget float64          `json:"target"`
}

// Week is the weekly history plus the average daily intake over it.
type Week struct {
	Days    []DayTotals      `json:"days"`
	Average nutrition.Macros `json:"average"`
}

// WeeklyHistory buckets logs into the HistoryDays UTC days ending on the day of
// end, oldest first. Days without logs are zero. Logs outside the window are
// ignored.
func WeeklyHistory(end time.Time, logs []MealLog, calorieTarget float64) Week {
	last, _ := DayBounds(end)
	first := last.AddDate(0, 0, -(HistoryDays - 1))

	w := Week{Days: make([]DayTotals, HistoryDays)}
	for i := range w.Days {
		d := first.AddDate(0, 0, i)
		w.Days[i] = DayTotals{
			Date:          d.Format(time.DateOnly),
			Day:           d.Format("Mon"),
			CalorieTarget: calorieTarget,
		}
	}

	for _, l := range logs {
		day, _ := DayBounds(l.LoggedAt)
		i := int(day.Sub(first).Hours() / 24)
		if i < 0 || i >= HistoryDays {
			continue
		}
		w.Days[i].Totals = w.Days[i].Totals.Add(l.Totals)
	}

	var sum nutrition.Macros
	for _, d := range w.Days {
		sum = sum.Add(d.Totals)
	}
	w.Average = nutrition.Macros{
		Calories: math.Round(sum.Calories / HistoryDays),
		Protein:  math.Round(sum.Protein / HistoryDays),
		Carbs:    math.Round(sum.Carbs / HistoryDays),
		Fat:      math.Round(sum.Fat / HistoryDays),
	}
	return w
}
