package mealplan

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"nutriflow/internal/catalog"
)

// Request holds the preferences a plan is generated from.
type Request struct {
	PlanType catalog.PlanType
	Calories float64
	Slots    []catalog.MealSlot
	Name     string
	Notes    string
}

// Result is a generated plan together with the per-slot budgets it was scaled to.
// Warnings carries data-quality issues that did not stop generation.
type Result struct {
	Plan     MealPlan `json:"plan"`
	Budgets  Budgets  `json:"budgets"`
	Warnings []string `json:"warnings,omitempty"`
}

// Generator turns preferences into a MealPlan. Generation does no I/O.
type Generator struct {
	catalog  *catalog.Catalog
	selector *Selector
	logger   *zap.Logger
	now      func() time.Time
}

// NewGenerator creates a Generator drawing from c with rng.
func NewGenerator(c *catalog.Catalog, rng Rand, logger *zap.Logger) *Generator {
	return &Generator{
		catalog:  c,
		selector: NewSelector(c, rng),
		logger:   logger,
		now:      time.Now,
	}
}

// Catalog returns the catalog plans are drawn from.
func (g *Generator) Catalog() *catalog.Catalog {
	return g.catalog
}

// Generate allocates the calorie target, draws a recipe per included slot, scales
// each to its budget and assembles the plan. The snack budget is shared evenly by
// the drawn snacks. Slots without candidates are left out of the plan.
func (g *Generator) Generate(req Request) (*Result, error) {
	if !g.catalog.HasPlanType(req.PlanType) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlanType, req.PlanType)
	}

	budgets, err := AllocateCalories(req.Calories, req.Slots)
	if err != nil {
		return nil, err
	}

	res := &Result{Budgets: budgets}
	var meals Meals

	for _, slot := range catalog.Slots() {
		budget, ok := budgets[slot]
		if !ok {
			continue
		}

		if slot == catalog.Snack {
			snacks := g.selector.SelectSnacks(req.PlanType)
			for _, r := range snacks {
				meal, err := g.scale(res, r, slot, budget/float64(len(snacks)))
				if err != nil {
					return nil, err
				}
				meals.Snacks = append(meals.Snacks, meal)
			}
			if len(snacks) == 0 {
				g.logger.Debug("no snack candidates", zap.String("plan_type", string(req.PlanType)))
			}
			continue
		}

		r, found := g.selector.Select(req.PlanType, slot)
		if !found {
			g.logger.Debug("no recipe candidates",
				zap.String("plan_type", string(req.PlanType)),
				zap.String("slot", string(slot)))
			continue
		}
		meal, err := g.scale(res, r, slot, budget)
		if err != nil {
			return nil, err
		}

		switch slot {
		case catalog.Breakfast:
			meals.Breakfast = &meal
		case catalog.Lunch:
			meals.Lunch = &meal
		case catalog.Dinner:
			meals.Dinner = &meal
		}
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = DefaultPlanName(g.catalog.Label(req.PlanType), g.now())
	}

	res.Plan = Assemble(name, req.PlanType, req.Calories, meals)
	res.Plan.Notes = req.Notes
	return res, nil
}

// scale keeps unscalable recipes in the plan with their baseline values and
// records the issue; any other error aborts generation.
func (g *Generator) scale(res *Result, r catalog.Recipe, slot catalog.MealSlot, budget float64) (ScaledMeal, error) {
	meal, err := Scale(r, slot, budget)
	if errors.Is(err, ErrInvalidRecipe) {
		g.logger.Warn("recipe left unscaled",
			zap.String("recipe", r.Name),
			zap.String("slot", string(slot)),
			zap.Error(err))
		res.Warnings = append(res.Warnings, err.Error())
		return meal, nil
	}
	return meal, err
}
