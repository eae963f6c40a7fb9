package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nutriflow/internal/catalog"
	"nutriflow/internal/nutrition"
	"nutriflow/internal/tracking"
)

type mealLogRow struct {
	ID          string `db:"id"`
	UserID      string `db:"user_id"`
	Name        string `db:"name"`
	MealType    string `db:"meal_type"`
	Description string `db:"description"`
	nutrition.Macros
	Foods     string    `db:"foods"`
	LoggedAt  time.Time `db:"logged_at"`
	CreatedAt time.Time `db:"created_at"`
}

// SaveMealLog inserts log and fills in its id and creation time.
func (s *Store) SaveMealLog(ctx context.Context, log *tracking.MealLog) error {
	foods, err := json.Marshal(log.Foods)
	if err != nil {
		return fmt.Errorf("failed to marshal foods: %w", err)
	}

	now := s.timestamp()
	id := newID()
	_, err = s.db.ExecContext(ctx, s.db.Rebind(`INSERT INTO meal_logs
		(id, user_id, name, meal_type, description, calories, protein, carbs, fat, foods, logged_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		id, log.UserID, log.Name, string(log.MealType), log.Description,
		log.Totals.Calories, log.Totals.Protein, log.Totals.Carbs, log.Totals.Fat,
		string(foods), log.LoggedAt.UTC().Truncate(time.Microsecond), now,
	)
	if err != nil {
		return fmt.Errorf("failed to save meal log: %w", err)
	}

	log.ID = id
	log.CreatedAt = now
	return nil
}

// ListMealLogs returns the user's logs with from <= logged_at < to, oldest first.
func (s *Store) ListMealLogs(ctx context.Context, userID string, from, to time.Time) ([]tracking.MealLog, error) {
	var rows []mealLogRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT id, user_id, name, meal_type, description,
		calories, protein, carbs, fat, foods, logged_at, created_at
		FROM meal_logs WHERE user_id = ? AND logged_at >= ? AND logged_at < ?
		ORDER BY logged_at, id`), userID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list meal logs: %w", err)
	}

	logs := make([]tracking.MealLog, 0, len(rows))
	for _, r := range rows {
		log := tracking.MealLog{
			ID:          r.ID,
			UserID:      r.UserID,
			Name:        r.Name,
			MealType:    catalog.MealSlot(r.MealType),
			Description: r.Description,
			Totals:      r.Macros,
			LoggedAt:    r.LoggedAt.UTC(),
			CreatedAt:   r.CreatedAt.UTC(),
		}
		if err := json.Unmarshal([]byte(r.Foods), &log.Foods); err != nil {
			return nil, fmt.Errorf("failed to unmarshal foods: %w", err)
		}
		logs = append(logs, log)
	}
	return logs, nil
}
