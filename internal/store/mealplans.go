package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"nutriflow/internal/catalog"
	"nutriflow/internal/mealplan"
	"nutriflow/internal/nutrition"
)

type mealPlanRow struct {
	ID             string    `db:"id"`
	UserID         string    `db:"user_id"`
	Name           string    `db:"name"`
	CaloriesTarget float64   `db:"calories_target"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

type mealRow struct {
	ID         string `db:"id"`
	MealPlanID string `db:"meal_plan_id"`
	Name       string `db:"name"`
	Type       string `db:"type"`
	nutrition.Macros
	Instructions string    `db:"instructions"`
	CreatedAt    time.Time `db:"created_at"`
}

type ingredientRow struct {
	MealID string `db:"meal_id"`
	Name   string `db:"name"`
}

// SavePlan stores plan for userID with one meal row per present meal and one
// ingredient row per ingredient line. The whole save is one transaction: on
// error nothing is written.
func (s *Store) SavePlan(ctx context.Context, userID string, plan mealplan.MealPlan) (*mealplan.SavedPlan, error) {
	now := s.timestamp()
	saved := &mealplan.SavedPlan{
		ID:             newID(),
		UserID:         userID,
		Name:           plan.Name,
		CaloriesTarget: plan.CaloriePreference,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO meal_plans
			(id, user_id, name, calories_target, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`),
			saved.ID, saved.UserID, saved.Name, saved.CaloriesTarget, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert meal plan: %w", err)
		}

		for _, m := range plan.Meals.All() {
			meal := mealplan.SavedMeal{
				ID:           newID(),
				MealPlanID:   saved.ID,
				Name:         m.Name,
				Type:         m.Type,
				Nutrition:    m.Nutrition,
				Instructions: m.Instructions,
				Ingredients:  m.Ingredients,
				CreatedAt:    now,
			}
			if meal.Ingredients == nil {
				meal.Ingredients = []string{}
			}

			_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO meals
				(id, meal_plan_id, name, type, calories, protein, carbs, fat, instructions, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
				meal.ID, meal.MealPlanID, meal.Name, string(meal.Type),
				meal.Nutrition.Calories, meal.Nutrition.Protein, meal.Nutrition.Carbs, meal.Nutrition.Fat,
				meal.Instructions, now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert meal %q: %w", meal.Name, err)
			}

			for _, line := range meal.Ingredients {
				_, err := tx.ExecContext(ctx,
					tx.Rebind(`INSERT INTO ingredients (id, meal_id, name) VALUES (?, ?, ?)`),
					newID(), meal.ID, line,
				)
				if err != nil {
					return fmt.Errorf("failed to insert ingredient: %w", err)
				}
			}
			saved.Meals = append(saved.Meals, meal)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if saved.Meals == nil {
		saved.Meals = []mealplan.SavedMeal{}
	}
	saved.Total()
	return saved, nil
}

// ListPlans returns the user's plans, newest first, each with its meals.
func (s *Store) ListPlans(ctx context.Context, userID string) ([]mealplan.SavedPlan, error) {
	var rows []mealPlanRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT id, user_id, name, calories_target, created_at, updated_at
		FROM meal_plans WHERE user_id = ? ORDER BY created_at DESC, id DESC`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plans: %w", err)
	}

	plans := make([]mealplan.SavedPlan, 0, len(rows))
	if len(rows) == 0 {
		return plans, nil
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	meals, err := s.mealsByPlan(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		plans = append(plans, r.plan(meals[r.ID]))
	}
	return plans, nil
}

// GetPlan returns one of the user's plans. Plans owned by someone else are
// reported as missing: nil, nil.
func (s *Store) GetPlan(ctx context.Context, userID, id string) (*mealplan.SavedPlan, error) {
	var r mealPlanRow
	err := s.db.GetContext(ctx, &r, s.db.Rebind(`SELECT id, user_id, name, calories_target, created_at, updated_at
		FROM meal_plans WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get meal plan: %w", err)
	}

	meals, err := s.mealsByPlan(ctx, []string{r.ID})
	if err != nil {
		return nil, err
	}
	plan := r.plan(meals[r.ID])
	return &plan, nil
}

func (r mealPlanRow) plan(meals []mealplan.SavedMeal) mealplan.SavedPlan {
	if meals == nil {
		meals = []mealplan.SavedMeal{}
	}
	p := mealplan.SavedPlan{
		ID:             r.ID,
		UserID:         r.UserID,
		Name:           r.Name,
		CaloriesTarget: r.CaloriesTarget,
		Meals:          meals,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
	p.Total()
	return p
}

// mealsByPlan loads the meals and ingredient lines of the given plans, keyed by
// plan id, in insertion order.
func (s *Store) mealsByPlan(ctx context.Context, planIDs []string) (map[string][]mealplan.SavedMeal, error) {
	query, args, err := sqlx.In(`SELECT id, meal_plan_id, name, type, calories, protein, carbs, fat, instructions, created_at
		FROM meals WHERE meal_plan_id IN (?) ORDER BY id`, planIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build meals query: %w", err)
	}
	var mealRows []mealRow
	if err := s.db.SelectContext(ctx, &mealRows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get meals: %w", err)
	}
	if len(mealRows) == 0 {
		return map[string][]mealplan.SavedMeal{}, nil
	}

	mealIDs := make([]string, len(mealRows))
	for i, m := range mealRows {
		mealIDs[i] = m.ID
	}
	query, args, err = sqlx.In(`SELECT meal_id, name FROM ingredients WHERE meal_id IN (?) ORDER BY id`, mealIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build ingredients query: %w", err)
	}
	var ingredientRows []ingredientRow
	if err := s.db.SelectContext(ctx, &ingredientRows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get ingredients: %w", err)
	}
	lines := make(map[string][]string)
	for _, ing := range ingredientRows {
		lines[ing.MealID] = append(lines[ing.MealID], ing.Name)
	}

	out := make(map[string][]mealplan.SavedMeal, len(planIDs))
	for _, m := range mealRows {
		ingredients := lines[m.ID]
		if ingredients == nil {
			ingredients = []string{}
		}
		out[m.MealPlanID] = append(out[m.MealPlanID], mealplan.SavedMeal{
			ID:           m.ID,
			MealPlanID:   m.MealPlanID,
			Name:         m.Name,
			Type:         catalog.MealSlot(strings.ToLower(m.Type)),
			Nutrition:    m.Macros,
			Instructions: m.Instructions,
			Ingredients:  ingredients,
			CreatedAt:    m.CreatedAt.UTC(),
		})
	}
	return out, nil
}
