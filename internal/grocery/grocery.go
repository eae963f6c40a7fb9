// Package grocery holds grocery lists and the operations on their items.
package grocery

import (
	"fmt"
	"strings"
	"time"
)

// Item is one line of a grocery list.
type Item struct {
	ID       string  `json:"id" db:"id"`
	Name     string  `json:"name" db:"name"`
	Quantity float64 `json:"quantity" db:"quantity"`
	Unit     string  `json:"unit" db:"unit"`
	Checked  bool    `json:"checked" db:"checked"`
}

// List is a stored grocery list with its items in insertion order.
type List struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	MealPlanID string    `json:"meal_plan_id" db:"meal_plan_id"`
	Name       string    `json:"name" db:"name"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
	Items      []Item    `json:"items"`
}

// DefaultListName names a list created without an explicit name.
func DefaultListName(created time.Time) string {
	return fmt.Sprintf("Grocery List %s", created.Format("2006-01-02"))
}

// Toggle returns a copy of items where the item with the given id has its
// Checked flag flipped. Unknown ids leave the copy unchanged. The input slice is
// never modified.
func Toggle(items []Item, id string) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ID == id {
			out[i].Checked = !out[i].Checked
		}
	}
	return out
}

// Find returns the item with the given id.
func Find(items []Item, id string) (Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// FromIngredients derives unsaved items from the ingredient lines of a plan's
// meals, one slice per meal. Lines are trimmed and matched case-insensitively;
// the first spelling seen is kept. Quantity counts the meals that list a line,
// so a line repeated within one meal counts once. Item order follows first
// appearance.
func FromIngredients(meals [][]string) []Item {
	var items []Item
	index := make(map[string]int)

	for _, lines := range meals {
		seen := make(map[string]bool, len(lines))
		for _, line := range lines {
			name := strings.TrimSpace(line)
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if seen[key] {
				continue
			}
			seen[key] = true

			if i, ok := index[key]; ok {
				items[i].Quantity++
				continue
			}
			index[key] = len(items)
			items = append(items, Item{Name: name, Quantity: 1})
		}
	}
	return items
}
