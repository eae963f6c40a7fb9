package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"nutriflow/internal/grocery"
)

type groceryListRow struct {
	ID         string         `db:"id"`
	UserID     string         `db:"user_id"`
	MealPlanID sql.NullString `db:"meal_plan_id"`
	Name       string         `db:"name"`
	CreatedAt  time.Time      `db:"created_at"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

func (r groceryListRow) list(items []grocery.Item) grocery.List {
	if items == nil {
		items = []grocery.Item{}
	}
	return grocery.List{
		ID:         r.ID,
		UserID:     r.UserID,
		MealPlanID: r.MealPlanID.String,
		Name:       r.Name,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
		Items:      items,
	}
}

type groceryItemRow struct {
	grocery.Item
	ListID string `db:"grocery_list_id"`
}

// CreateGroceryList inserts a list and its items in one transaction and returns
// the stored list. mealPlanID may be empty.
func (s *Store) CreateGroceryList(ctx context.Context, userID, mealPlanID, name string, items []grocery.Item) (*grocery.List, error) {
	now := s.timestamp()
	list := &grocery.List{
		ID:         newID(),
		UserID:     userID,
		MealPlanID: mealPlanID,
		Name:       name,
		CreatedAt:  now,
		UpdatedAt:  now,
		Items:      make([]grocery.Item, 0, len(items)),
	}

	planID := sql.NullString{String: mealPlanID, Valid: mealPlanID != ""}
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO grocery_lists
			(id, user_id, meal_plan_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`),
			list.ID, userID, planID, name, now, now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert grocery list: %w", err)
		}

		for _, it := range items {
			it.ID = newID()
			_, err := tx.ExecContext(ctx, tx.Rebind(`INSERT INTO grocery_list_items
				(id, grocery_list_id, name, quantity, unit, checked, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
				it.ID, list.ID, it.Name, it.Quantity, it.Unit, it.Checked, now, now,
			)
			if err != nil {
				return fmt.Errorf("failed to insert grocery item %q: %w", it.Name, err)
			}
			list.Items = append(list.Items, it)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}

// ListGroceryLists returns the user's lists, newest first, with their items.
func (s *Store) ListGroceryLists(ctx context.Context, userID string) ([]grocery.List, error) {
	var rows []groceryListRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`SELECT id, user_id, meal_plan_id, name, created_at, updated_at
		FROM grocery_lists WHERE user_id = ? ORDER BY created_at DESC, id DESC`), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grocery lists: %w", err)
	}

	lists := make([]grocery.List, 0, len(rows))
	if len(rows) == 0 {
		return lists, nil
	}

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	items, err := s.itemsByList(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, r := range rows {
		lists = append(lists, r.list(items[r.ID]))
	}
	return lists, nil
}

// GetGroceryList returns one of the user's lists, or nil, nil when it does not
// exist or belongs to someone else.
func (s *Store) GetGroceryList(ctx context.Context, userID, id string) (*grocery.List, error) {
	var r groceryListRow
	err := s.db.GetContext(ctx, &r, s.db.Rebind(`SELECT id, user_id, meal_plan_id, name, created_at, updated_at
		FROM grocery_lists WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get grocery list: %w", err)
	}

	items, err := s.itemsByList(ctx, []string{r.ID})
	if err != nil {
		return nil, err
	}
	list := r.list(items[r.ID])
	return &list, nil
}

func (s *Store) itemsByList(ctx context.Context, listIDs []string) (map[string][]grocery.Item, error) {
	query, args, err := sqlx.In(`SELECT id, grocery_list_id, name, quantity, unit, checked
		FROM grocery_list_items WHERE grocery_list_id IN (?) ORDER BY id`, listIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build grocery items query: %w", err)
	}
	var rows []groceryItemRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get grocery items: %w", err)
	}

	out := make(map[string][]grocery.Item, len(listIDs))
	for _, r := range rows {
		out[r.ListID] = append(out[r.ListID], r.Item)
	}
	return out, nil
}

// ToggleItem flips an item's checked flag in the database and returns the new
// value. ErrNotFound is returned when the item is not on the list.
func (s *Store) ToggleItem(ctx context.Context, listID, itemID string) (bool, error) {
	now := s.timestamp()
	var checked bool
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &checked, tx.Rebind(`UPDATE grocery_list_items
			SET checked = NOT checked, updated_at = ?
			WHERE id = ? AND grocery_list_id = ?
			RETURNING checked`), now, itemID, listID)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to toggle grocery item: %w", err)
		}

		_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE grocery_lists SET updated_at = ? WHERE id = ?`), now, listID)
		if err != nil {
			return fmt.Errorf("failed to touch grocery list: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return checked, nil
}
