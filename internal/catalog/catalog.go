package catalog

import (
	_ "embed"
	"fmt"
	"io"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed recipes.yaml
var defaultCatalog string

// PlanInfo describes a plan type for clients choosing one.
type PlanInfo struct {
	ID    PlanType   `json:"id"`
	Label string     `json:"label"`
	Slots []MealSlot `json:"slots"`
}

// Catalog is a read-only recipe table keyed by plan type and slot.
// It is safe for concurrent use because nothing mutates it after Load.
type Catalog struct {
	fallback PlanType
	plans    []PlanInfo
	recipes  map[PlanType]map[MealSlot][]Recipe
	foods    []Food
}

type fileFormat struct {
	Fallback  PlanType `yaml:"fallback"`
	PlanTypes []struct {
		ID      PlanType              `yaml:"id"`
		Label   string                `yaml:"label"`
		Recipes map[MealSlot][]Recipe `yaml:"recipes"`
	} `yaml:"plan_types"`
	Foods []Food `yaml:"foods"`
}

// Load parses a YAML catalog.
func Load(r io.Reader) (*Catalog, error) {
	var f fileFormat
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	c := &Catalog{
		fallback: f.Fallback,
		recipes:  make(map[PlanType]map[MealSlot][]Recipe, len(f.PlanTypes)),
		foods:    f.Foods,
	}

	for _, pt := range f.PlanTypes {
		if pt.ID == "" {
			return nil, fmt.Errorf("plan type without id")
		}
		if _, dup := c.recipes[pt.ID]; dup {
			return nil, fmt.Errorf("duplicate plan type %q", pt.ID)
		}
		info := PlanInfo{ID: pt.ID, Label: pt.Label}
		if info.Label == "" {
			info.Label = string(pt.ID)
		}
		for _, slot := range Slots() {
			recipes := pt.Recipes[slot]
			for _, r := range recipes {
				if r.Name == "" {
					return nil, fmt.Errorf("plan type %q slot %q: recipe without name", pt.ID, slot)
				}
				if r.Nutrition.IsNegative() {
					return nil, fmt.Errorf("recipe %q has negative nutrition values", r.Name)
				}
			}
			if len(recipes) > 0 {
				info.Slots = append(info.Slots, slot)
			}
		}
		c.recipes[pt.ID] = pt.Recipes
		c.plans = append(c.plans, info)
	}

	if c.fallback != "" {
		if _, ok := c.recipes[c.fallback]; !ok {
			return nil, fmt.Errorf("fallback plan type %q is not defined", c.fallback)
		}
	}

	return c, nil
}

var (
	defaultOnce sync.Once
	defaultCat  *Catalog
	defaultErr  error
)

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCat, defaultErr = Load(strings.NewReader(defaultCatalog))
	})
	return defaultCat, defaultErr
}

// Fallback is the plan type consulted when another type has no recipe for a slot.
func (c *Catalog) Fallback() PlanType {
	return c.fallback
}

// PlanTypes lists plan types in catalog order.
func (c *Catalog) PlanTypes() []PlanInfo {
	out := make([]PlanInfo, len(c.plans))
	copy(out, c.plans)
	return out
}

// HasPlanType reports whether pt is defined.
func (c *Catalog) HasPlanType(pt PlanType) bool {
	_, ok := c.recipes[pt]
	return ok
}

// Label returns the display label for pt, or pt itself when unknown.
func (c *Catalog) Label(pt PlanType) string {
	for _, p := range c.plans {
		if p.ID == pt {
			return p.Label
		}
	}
	return string(pt)
}

// Recipes returns the entries for exactly (pt, slot) without fallback.
func (c *Catalog) Recipes(pt PlanType, slot MealSlot) []Recipe {
	return c.recipes[pt][slot]
}

// Candidates returns the entries eligible for (pt, slot). When pt has none, the
// fallback plan type is used. An empty result means the slot is skipped.
func (c *Catalog) Candidates(pt PlanType, slot MealSlot) []Recipe {
	if rs := c.recipes[pt][slot]; len(rs) > 0 {
		return rs
	}
	if c.fallback == "" || c.fallback == pt {
		return nil
	}
	return c.recipes[c.fallback][slot]
}

// SearchFoods matches the local food table by case-insensitive substring.
func (c *Catalog) SearchFoods(query string) []Food {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []Food
	for _, f := range c.foods {
		if strings.Contains(strings.ToLower(f.Name), q) {
			out = append(out, f)
		}
	}
	return out
}
