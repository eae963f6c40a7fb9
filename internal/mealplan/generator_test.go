package mealplan

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"nutriflow/internal/catalog"
	"nutriflow/internal/nutrition"
)

const testCatalog = `
fallback: balanced
plan_types:
  - id: balanced
    label: Balanced
    recipes:
      breakfast:
        - name: Oats
          ingredients: [1 cup oats]
          nutrition: {calories: 400, protein: 20, carbs: 60, fat: 10}
        - name: Eggs
          ingredients: [2 eggs]
          nutrition: {calories: 250, protein: 18, carbs: 2, fat: 16}
      lunch:
        - name: Salad
          ingredients: [greens]
          nutrition: {calories: 300, protein: 30, carbs: 20, fat: 12}
      dinner:
        - name: Salmon
          ingredients: [salmon]
          nutrition: {calories: 500, protein: 40, carbs: 30, fat: 20}
      snack:
        - name: Apple
          ingredients: [1 apple]
          nutrition: {calories: 100, protein: 0, carbs: 25, fat: 0}
        - name: Shake
          ingredients: [1 scoop whey]
          nutrition: {calories: 200, protein: 30, carbs: 10, fat: 4}
  - id: vegan
    label: Vegan
    recipes:
      lunch:
        - name: Lentil Bowl
          ingredients: [lentils]
          nutrition: {calories: 600, protein: 30, carbs: 80, fat: 10}
  - id: broken
    label: Broken
    recipes:
      breakfast:
        - name: Water
          ingredients: [water]
          nutrition: {calories: 0, protein: 0, carbs: 0, fat: 0}
`

// scriptedRand returns its values in order, each reduced modulo n.
type scriptedRand struct {
	values []int
	calls  []int
}

func (r *scriptedRand) Intn(n int) int {
	r.calls = append(r.calls, n)
	if len(r.values) == 0 {
		return 0
	}
	v := r.values[0]
	r.values = r.values[1:]
	return v % n
}

var fixedNow = time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

func newTestGenerator(t *testing.T, rng Rand, logger *zap.Logger) *Generator {
	t.Helper()
	c, err := catalog.Load(strings.NewReader(testCatalog))
	require.NoError(t, err)
	if logger == nil {
		logger = zap.NewNop()
	}
	g := NewGenerator(c, rng, logger)
	g.now = func() time.Time { return fixedNow }
	return g
}

func TestGenerate_AllSlots(t *testing.T) {
	// breakfast idx 1, lunch 0, dinner 0, two snacks: Shake then Apple
	rng := &scriptedRand{values: []int{1, 0, 0, 1, 1, 0}}
	g := newTestGenerator(t, rng, nil)

	res, err := g.Generate(Request{PlanType: catalog.PlanBalanced, Calories: 2000, Slots: catalog.Slots()})
	require.NoError(t, err)

	plan := res.Plan
	assert.Equal(t, "Balanced Plan - 2024-03-09", plan.Name)
	assert.Equal(t, catalog.PlanBalanced, plan.PlanType)
	assert.Equal(t, 2000.0, plan.CaloriePreference)
	assert.Equal(t, Budgets{catalog.Breakfast: 500, catalog.Lunch: 600, catalog.Dinner: 700, catalog.Snack: 200}, res.Budgets)

	require.NotNil(t, plan.Meals.Breakfast)
	assert.Equal(t, "Eggs", plan.Meals.Breakfast.Name)
	assert.Equal(t, nutrition.Macros{Calories: 500, Protein: 36, Carbs: 4, Fat: 32}, plan.Meals.Breakfast.Nutrition)

	require.NotNil(t, plan.Meals.Lunch)
	assert.Equal(t, nutrition.Macros{Calories: 600, Protein: 60, Carbs: 40, Fat: 24}, plan.Meals.Lunch.Nutrition)

	require.NotNil(t, plan.Meals.Dinner)
	assert.Equal(t, nutrition.Macros{Calories: 700, Protein: 56, Carbs: 42, Fat: 28}, plan.Meals.Dinner.Nutrition)

	// the snack budget is shared by both draws
	require.Len(t, plan.Meals.Snacks, 2)
	assert.Equal(t, "Shake", plan.Meals.Snacks[0].Name)
	assert.Equal(t, nutrition.Macros{Calories: 100, Protein: 15, Carbs: 5, Fat: 2}, plan.Meals.Snacks[0].Nutrition)
	assert.Equal(t, "Apple", plan.Meals.Snacks[1].Name)
	assert.Equal(t, nutrition.Macros{Calories: 100, Protein: 0, Carbs: 25, Fat: 0}, plan.Meals.Snacks[1].Nutrition)

	var sum nutrition.Macros
	for _, m := range plan.Meals.All() {
		sum = sum.Add(m.Nutrition)
	}
	assert.Equal(t, sum, plan.TotalNutrition)
	assert.Equal(t, 2000.0, plan.TotalNutrition.Calories)
	assert.Empty(t, res.Warnings)

	assert.Equal(t, []int{2, 1, 1, 2, 2, 2}, rng.calls)
}

func TestGenerate_SingleSnack(t *testing.T) {
	rng := &scriptedRand{values: []int{0, 1}}
	g := newTestGenerator(t, rng, nil)

	res, err := g.Generate(Request{PlanType: catalog.PlanBalanced, Calories: 2000, Slots: []catalog.MealSlot{catalog.Snack}})
	require.NoError(t, err)

	require.Len(t, res.Plan.Meals.Snacks, 1)
	assert.Equal(t, "Shake", res.Plan.Meals.Snacks[0].Name)
	assert.Equal(t, 2000.0, res.Plan.Meals.Snacks[0].Nutrition.Calories)
	assert.Nil(t, res.Plan.Meals.Breakfast)
	assert.Nil(t, res.Plan.Meals.Lunch)
	assert.Nil(t, res.Plan.Meals.Dinner)
}

func TestGenerate_OnlyIncludedSlots(t *testing.T) {
	g := newTestGenerator(t, &scriptedRand{}, nil)

	res, err := g.Generate(Request{
		PlanType: catalog.PlanBalanced,
		Calories: 2000,
		Slots:    []catalog.MealSlot{catalog.Breakfast, catalog.Lunch},
		Name:     "  Workday  ",
		Notes:    "no dinner",
	})
	require.NoError(t, err)

	assert.Equal(t, "Workday", res.Plan.Name)
	assert.Equal(t, "no dinner", res.Plan.Notes)
	assert.Equal(t, 909.0, res.Plan.Meals.Breakfast.Nutrition.Calories)
	assert.Equal(t, 1091.0, res.Plan.Meals.Lunch.Nutrition.Calories)
	assert.Nil(t, res.Plan.Meals.Dinner)
	assert.Empty(t, res.Plan.Meals.Snacks)
	assert.Equal(t, 2000.0, res.Plan.TotalNutrition.Calories)
}

func TestGenerate_FallsBackPerSlot(t *testing.T) {
	rng := &scriptedRand{values: []int{0, 0, 0, 0, 0}}
	g := newTestGenerator(t, rng, nil)

	res, err := g.Generate(Request{PlanType: catalog.PlanVegan, Calories: 1800, Slots: catalog.Slots()})
	require.NoError(t, err)

	// vegan only defines lunch; other slots come from the fallback type
	assert.Equal(t, "Lentil Bowl", res.Plan.Meals.Lunch.Name)
	assert.Equal(t, "Oats", res.Plan.Meals.Breakfast.Name)
	assert.Equal(t, "Salmon", res.Plan.Meals.Dinner.Name)
	assert.Equal(t, "Apple", res.Plan.Meals.Snacks[0].Name)
	assert.Equal(t, "Vegan Plan - 2024-03-09", res.Plan.Name)
}

func TestGenerate_EmptySelection(t *testing.T) {
	g := newTestGenerator(t, &scriptedRand{}, nil)

	res, err := g.Generate(Request{PlanType: catalog.PlanBalanced, Calories: 2000})
	assert.ErrorIs(t, err, ErrInvalidSelection)
	assert.Nil(t, res)
}

func TestGenerate_InvalidCalories(t *testing.T) {
	g := newTestGenerator(t, &scriptedRand{}, nil)

	_, err := g.Generate(Request{PlanType: catalog.PlanBalanced, Calories: 0, Slots: catalog.Slots()})
	assert.ErrorIs(t, err, ErrInvalidCalorieTarget)
}

func TestGenerate_UnknownPlanType(t *testing.T) {
	g := newTestGenerator(t, &scriptedRand{}, nil)

	_, err := g.Generate(Request{PlanType: "carnivore", Calories: 2000, Slots: catalog.Slots()})
	assert.ErrorIs(t, err, ErrUnknownPlanType)
}

func TestGenerate_UnscalableRecipeIsKept(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	g := newTestGenerator(t, &scriptedRand{}, zap.New(core))

	res, err := g.Generate(Request{PlanType: "broken", Calories: 2000, Slots: []catalog.MealSlot{catalog.Breakfast}})
	require.NoError(t, err)

	require.NotNil(t, res.Plan.Meals.Breakfast)
	assert.Equal(t, "Water", res.Plan.Meals.Breakfast.Name)
	assert.Equal(t, nutrition.Macros{}, res.Plan.Meals.Breakfast.Nutrition)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "Water")
	assert.Equal(t, 1, logs.FilterMessage("recipe left unscaled").Len())
}

func TestGenerate_SeededIsDeterministic(t *testing.T) {
	req := Request{PlanType: catalog.PlanBalanced, Calories: 2200, Slots: catalog.Slots()}

	a, err := newTestGenerator(t, rand.New(rand.NewSource(42)), nil).Generate(req)
	require.NoError(t, err)
	b, err := newTestGenerator(t, rand.New(rand.NewSource(42)), nil).Generate(req)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestGenerate_DefaultCatalog(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)
	g := NewGenerator(c, rand.New(rand.NewSource(7)), zap.NewNop())

	for _, info := range c.PlanTypes() {
		res, err := g.Generate(Request{PlanType: info.ID, Calories: 2000, Slots: catalog.Slots()})
		require.NoError(t, err, info.ID)

		assert.NotNil(t, res.Plan.Meals.Breakfast, info.ID)
		assert.NotNil(t, res.Plan.Meals.Lunch, info.ID)
		assert.NotNil(t, res.Plan.Meals.Dinner, info.ID)
		assert.NotEmpty(t, res.Plan.Meals.Snacks, info.ID)
		assert.Empty(t, res.Warnings, info.ID)
		assert.InDelta(t, 2000, res.Plan.TotalNutrition.Calories, 4, info.ID)
	}
}
