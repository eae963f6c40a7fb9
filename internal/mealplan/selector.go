package mealplan

import (
	"sync"

	"nutriflow/internal/catalog"
)

// Rand is the random source used for meal draws. *math/rand.Rand satisfies it;
// tests pass a seeded or scripted source.
type Rand interface {
	Intn(n int) int
}

// Selector draws recipes uniformly at random from the catalog.
type Selector struct {
	catalog *catalog.Catalog

	mu  sync.Mutex
	rng Rand
}

// NewSelector creates a Selector over c using rng.
func NewSelector(c *catalog.Catalog, rng Rand) *Selector {
	return &Selector{catalog: c, rng: rng}
}

// Select draws one recipe for (pt, slot). The second result is false when neither
// pt nor the catalog fallback has a recipe for the slot.
func (s *Selector) Select(pt catalog.PlanType, slot catalog.MealSlot) (catalog.Recipe, bool) {
	candidates := s.catalog.Candidates(pt, slot)
	if len(candidates) == 0 {
		return catalog.Recipe{}, false
	}

	s.mu.Lock()
	i := s.rng.Intn(len(candidates))
	s.mu.Unlock()

	return candidates[i], true
}

// SelectSnacks draws one or two independent snacks; a coin flip decides the count.
// Draws are independent, so the same snack may appear twice.
func (s *Selector) SelectSnacks(pt catalog.PlanType) []catalog.Recipe {
	candidates := s.catalog.Candidates(pt, catalog.Snack)
	if len(candidates) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 1 + s.rng.Intn(2)
	out := make([]catalog.Recipe, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, candidates[s.rng.Intn(len(candidates))])
	}
	return out
}
