package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nutriflow/internal/auth"
	"nutriflow/internal/catalog"
	"nutriflow/internal/grocery"
	"nutriflow/internal/mealplan"
	"nutriflow/internal/nutrition"
	"nutriflow/internal/tracking"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nutriflow.db")

	require.NoError(t, Migrate(DriverSQLite, path, zap.NewNop()))
	s, err := Open(DriverSQLite, path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func createUser(t *testing.T, s *Store, email string) *auth.User {
	t.Helper()
	u := &auth.User{
		Name:          "Test User",
		Email:         email,
		PasswordHash:  "hash",
		CalorieTarget: 2000,
		MacroTargets:  auth.MacroTargets{Protein: 150, Carbs: 200, Fat: 65},
	}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	assert.ErrorContains(t, err, "unsupported database driver")
	assert.Error(t, Migrate("mysql", "whatever", zap.NewNop()))
}

func TestMigrate_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "twice.db")
	require.NoError(t, Migrate(DriverSQLite, path, zap.NewNop()))
	require.NoError(t, Migrate(DriverSQLite, path, zap.NewNop()))
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := createUser(t, s, "ana@example.com")
	assert.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())

	byEmail, err := s.GetUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, u.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)
	assert.Equal(t, auth.MacroTargets{Protein: 150, Carbs: 200, Fat: 65}, byEmail.MacroTargets)
	assert.Equal(t, []string{}, byEmail.DietaryRestrictions)

	missing, err := s.GetUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)

	err = s.CreateUser(ctx, &auth.User{Name: "Dup", Email: "ana@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, auth.ErrEmailTaken)

	u.Name = "Ana Maria"
	u.CalorieTarget = 1750
	u.DietaryRestrictions = []string{"vegan"}
	u.Allergies = []string{"soy", "peanuts"}
	require.NoError(t, s.UpdateUser(ctx, u))

	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", byID.Name)
	assert.Equal(t, 1750.0, byID.CalorieTarget)
	assert.Equal(t, []string{"vegan"}, byID.DietaryRestrictions)
	assert.Equal(t, []string{"soy", "peanuts"}, byID.Allergies)

	assert.ErrorIs(t, s.UpdateUser(ctx, &auth.User{ID: "missing", Name: "x"}), ErrNotFound)
}

func TestSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "ana@example.com")

	now := time.Now().UTC().Truncate(time.Second)
	live := &auth.Session{UserID: u.ID, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, s.CreateSession(ctx, live))
	require.NotEmpty(t, live.ID)

	expired := &auth.Session{UserID: u.ID, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, s.CreateSession(ctx, expired))

	got, err := s.GetSession(ctx, live.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.UserID)
	assert.True(t, live.ExpiresAt.Equal(got.ExpiresAt), "expires_at %v != %v", live.ExpiresAt, got.ExpiresAt)

	n, err := s.DeleteExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, s.DeleteSession(ctx, live.ID))
	got, err = s.GetSession(ctx, live.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	// deleting twice is fine
	require.NoError(t, s.DeleteSession(ctx, live.ID))
}

func testPlan() mealplan.MealPlan {
	breakfast := mealplan.ScaledMeal{
		Name:         "Oats",
		Type:         catalog.Breakfast,
		Ingredients:  []string{"1 cup oats", "1 cup milk"},
		Instructions: "Simmer.",
		Nutrition:    nutrition.Macros{Calories: 500, Protein: 20, Carbs: 80, Fat: 10},
	}
	dinner := mealplan.ScaledMeal{
		Name:        "Salmon",
		Type:        catalog.Dinner,
		Ingredients: []string{"5 oz salmon", "1 cup milk"},
		Nutrition:   nutrition.Macros{Calories: 700, Protein: 50, Carbs: 30, Fat: 30},
	}
	snack := mealplan.ScaledMeal{
		Name:        "Apple",
		Type:        catalog.Snack,
		Ingredients: []string{"1 apple"},
		Nutrition:   nutrition.Macros{Calories: 100, Carbs: 25},
	}
	return mealplan.Assemble("Test Plan", catalog.PlanBalanced, 1300, mealplan.Meals{
		Breakfast: &breakfast,
		Dinner:    &dinner,
		Snacks:    []mealplan.ScaledMeal{snack, snack},
	})
}

func TestSavePlan(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "ana@example.com")

	saved, err := s.SavePlan(ctx, u.ID, testPlan())
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	require.Len(t, saved.Meals, 4)
	assert.Equal(t, nutrition.Macros{Calories: 1400, Protein: 70, Carbs: 160, Fat: 40}, saved.TotalNutrition)

	got, err := s.GetPlan(ctx, u.ID, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "Test Plan", got.Name)
	assert.Equal(t, 1300.0, got.CaloriesTarget)
	assert.Equal(t, saved.TotalNutrition, got.TotalNutrition)
	require.Len(t, got.Meals, 4)

	types := make([]catalog.MealSlot, len(got.Meals))
	for i, m := range got.Meals {
		types[i] = m.Type
		assert.Equal(t, saved.Meals[i].ID, m.ID)
	}
	assert.Equal(t, []catalog.MealSlot{catalog.Breakfast, catalog.Dinner, catalog.Snack, catalog.Snack}, types)
	assert.Equal(t, []string{"1 cup oats", "1 cup milk"}, got.Meals[0].Ingredients)
	assert.Equal(t, "Simmer.", got.Meals[0].Instructions)

	assert.Equal(t, [][]string{
		{"1 cup oats", "1 cup milk"},
		{"5 oz salmon", "1 cup milk"},
		{"1 apple"},
		{"1 apple"},
	}, got.IngredientLines())
}

func TestSavePlan_RollsBackOnFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "ana@example.com")

	plan := testPlan()
	// the meals.type check constraint rejects this row after the plan row was written
	plan.Meals.Snacks[1].Type = "brunch"

	_, err := s.SavePlan(ctx, u.ID, plan)
	require.Error(t, err)

	plans, err := s.ListPlans(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, plans)

	var meals, ingredients int
	require.NoError(t, s.db.Get(&meals, "SELECT COUNT(*) FROM meals"))
	require.NoError(t, s.db.Get(&ingredients, "SELECT COUNT(*) FROM ingredients"))
	assert.Zero(t, meals)
	assert.Zero(t, ingredients)
}

func TestListPlans(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	ana := createUser(t, s, "ana@example.com")
	bob := createUser(t, s, "bob@example.com")

	clock := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	first, err := s.SavePlan(ctx, ana.ID, testPlan())
	require.NoError(t, err)
	clock = clock.Add(time.Hour)
	second, err := s.SavePlan(ctx, ana.ID, mealplan.Assemble("Empty", catalog.PlanKeto, 1500, mealplan.Meals{}))
	require.NoError(t, err)
	_, err = s.SavePlan(ctx, bob.ID, testPlan())
	require.NoError(t, err)

	plans, err := s.ListPlans(ctx, ana.ID)
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, second.ID, plans[0].ID)
	assert.Equal(t, first.ID, plans[1].ID)
	assert.Empty(t, plans[0].Meals)
	assert.Len(t, plans[1].Meals, 4)

	// other users' plans are invisible
	got, err := s.GetPlan(ctx, bob.ID, first.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	none, err := s.ListPlans(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGroceryLists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "ana@example.com")
	plan, err := s.SavePlan(ctx, u.ID, testPlan())
	require.NoError(t, err)

	items := grocery.FromIngredients(plan.IngredientLines())
	list, err := s.CreateGroceryList(ctx, u.ID, plan.ID, "Weekly shop", items)
	require.NoError(t, err)
	require.Len(t, list.Items, 4)
	for _, it := range list.Items {
		assert.NotEmpty(t, it.ID)
	}

	got, err := s.GetGroceryList(ctx, u.ID, list.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, plan.ID, got.MealPlanID)
	assert.Equal(t, "Weekly shop", got.Name)
	assert.Equal(t, list.Items, got.Items)
	assert.Equal(t, "1 cup milk", got.Items[1].Name)
	assert.Equal(t, 2.0, got.Items[1].Quantity)

	toggled := grocery.Toggle(got.Items, got.Items[1].ID)
	checked, err := s.ToggleItem(ctx, list.ID, toggled[1].ID)
	require.NoError(t, err)
	assert.True(t, checked)

	got, err = s.GetGroceryList(ctx, u.ID, list.ID)
	require.NoError(t, err)
	assert.Equal(t, toggled, got.Items)

	_, err = s.ToggleItem(ctx, list.ID, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.ToggleItem(ctx, "other-list", got.Items[1].ID)
	assert.ErrorIs(t, err, ErrNotFound)

	other := createUser(t, s, "bob@example.com")
	hidden, err := s.GetGroceryList(ctx, other.ID, list.ID)
	require.NoError(t, err)
	assert.Nil(t, hidden)
}

func TestToggleItem_Concurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "ana@example.com")

	list, err := s.CreateGroceryList(ctx, u.ID, "", "Groceries", []grocery.Item{{Name: "eggs", Quantity: 1}})
	require.NoError(t, err)
	itemID := list.Items[0].ID

	const toggles = 9
	var wg sync.WaitGroup
	errs := make(chan error, toggles)
	for range toggles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.ToggleItem(ctx, list.ID, itemID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := s.GetGroceryList(ctx, u.ID, list.ID)
	require.NoError(t, err)
	assert.True(t, got.Items[0].Checked, "an odd number of toggles must leave the item checked")
}

func TestListGroceryLists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "ana@example.com")

	clock := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	older, err := s.CreateGroceryList(ctx, u.ID, "", "Older", []grocery.Item{{Name: "Eggs", Quantity: 12}})
	require.NoError(t, err)
	clock = clock.Add(time.Minute)
	newer, err := s.CreateGroceryList(ctx, u.ID, "", "Newer", nil)
	require.NoError(t, err)

	lists, err := s.ListGroceryLists(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Equal(t, newer.ID, lists[0].ID)
	assert.Empty(t, lists[0].Items)
	assert.Equal(t, older.ID, lists[1].ID)
	assert.Equal(t, "", lists[1].MealPlanID)
	require.Len(t, lists[1].Items, 1)
	assert.Equal(t, "Eggs", lists[1].Items[0].Name)
}

func TestMealLogs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := createUser(t, s, "ana@example.com")

	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	for _, at := range []time.Time{day.Add(19 * time.Hour), day.Add(8 * time.Hour), day.Add(-time.Minute), day.Add(24 * time.Hour)} {
		log, err := tracking.NewMealLog(u.ID, "", catalog.Lunch, "", []tracking.FoodEntry{
			{Name: "Chicken Breast", Serving: "100g", Calories: 165, Protein: 31, Fat: 3.6},
		}, at)
		require.NoError(t, err)
		require.NoError(t, s.SaveMealLog(ctx, log))
		assert.NotEmpty(t, log.ID)
	}

	logs, err := s.ListMealLogs(ctx, u.ID, day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	require.Len(t, logs, 2)

	assert.Equal(t, day.Add(8*time.Hour), logs[0].LoggedAt)
	assert.Equal(t, day.Add(19*time.Hour), logs[1].LoggedAt)
	assert.Equal(t, "lunch", logs[0].Name)
	assert.Equal(t, catalog.Lunch, logs[0].MealType)
	assert.Equal(t, nutrition.Macros{Calories: 165, Protein: 31, Fat: 3.6}, logs[0].Totals)
	require.Len(t, logs[0].Foods, 1)
	assert.Equal(t, "100g", logs[0].Foods[0].Serving)

	others, err := s.ListMealLogs(ctx, "someone-else", day, day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Empty(t, others)
}
