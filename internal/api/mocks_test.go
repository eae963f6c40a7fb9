package api

import (
	"context"
	"fmt"
	"math/rand"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"nutriflow/internal/auth"
	"nutriflow/internal/catalog"
	"nutriflow/internal/grocery"
	"nutriflow/internal/mealplan"
	"nutriflow/internal/platform/gemini"
	"nutriflow/internal/platform/nutritionix"
	"nutriflow/internal/store"
	"nutriflow/internal/tracking"
)

const testToken = "valid-token"

var testNow = time.Date(2024, 3, 9, 15, 30, 0, 0, time.UTC)

// mockAuth is a mock of the auth service.
type mockAuth struct {
	user       *auth.User
	err        error
	loggedOut  bool
	lastUpdate auth.ProfileUpdate
}

func newMockAuth() *mockAuth {
	return &mockAuth{user: &auth.User{
		ID:            "user-1",
		Name:          "Ada",
		Email:         "ada@example.com",
		CalorieTarget: auth.DefaultCalorieTarget,
		MacroTargets: auth.MacroTargets{
			Protein: auth.DefaultProteinTarget,
			Carbs:   auth.DefaultCarbsTarget,
			Fat:     auth.DefaultFatTarget,
		},
	}}
}

func (m *mockAuth) grant() *auth.Grant {
	return &auth.Grant{Token: testToken, ExpiresAt: testNow.Add(time.Hour), User: m.user}
}

func (m *mockAuth) Signup(ctx context.Context, name, email, password string) (*auth.Grant, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.grant(), nil
}

func (m *mockAuth) Login(ctx context.Context, email, password string) (*auth.Grant, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.grant(), nil
}

func (m *mockAuth) Logout(ctx context.Context, sess *auth.Session) error {
	m.loggedOut = true
	return m.err
}

func (m *mockAuth) Authenticate(ctx context.Context, token string) (*auth.Session, error) {
	if token != testToken {
		return nil, auth.ErrAuthRequired
	}
	return &auth.Session{ID: "session-1", UserID: m.user.ID, User: m.user}, nil
}

func (m *mockAuth) UpdateProfile(ctx context.Context, sess *auth.Session, p auth.ProfileUpdate) (*auth.User, error) {
	m.lastUpdate = p
	if err := p.Validate(); err != nil {
		return nil, err
	}
	u := *sess.User
	u.Name = p.Name
	u.CalorieTarget = p.CalorieTarget
	return &u, nil
}

// mockStore is an in-memory store. When err is set every call returns it.
type mockStore struct {
	err     error
	pingErr error
	seq     int

	plans   map[string]*mealplan.SavedPlan
	lists   map[string]*grocery.List
	logs    []tracking.MealLog
	checked map[string]bool

	from, to time.Time

	racingToggle bool
}

func newMockStore() *mockStore {
	return &mockStore{
		plans:   map[string]*mealplan.SavedPlan{},
		lists:   map[string]*grocery.List{},
		checked: map[string]bool{},
	}
}

func (m *mockStore) id(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *mockStore) Ping(ctx context.Context) error {
	return m.pingErr
}

func (m *mockStore) SavePlan(ctx context.Context, userID string, plan mealplan.MealPlan) (*mealplan.SavedPlan, error) {
	if m.err != nil {
		return nil, m.err
	}
	saved := &mealplan.SavedPlan{ID: m.id("plan"), UserID: userID, Name: plan.Name, CaloriesTarget: plan.CaloriePreference}
	for _, meal := range plan.Meals.All() {
		saved.Meals = append(saved.Meals, mealplan.SavedMeal{
			ID:           m.id("meal"),
			MealPlanID:   saved.ID,
			Name:         meal.Name,
			Type:         meal.Type,
			Nutrition:    meal.Nutrition,
			Instructions: meal.Instructions,
			Ingredients:  meal.Ingredients,
		})
	}
	saved.Total()
	m.plans[saved.ID] = saved
	return saved, nil
}

func (m *mockStore) ListPlans(ctx context.Context, userID string) ([]mealplan.SavedPlan, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []mealplan.SavedPlan
	for _, p := range m.plans {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *mockStore) GetPlan(ctx context.Context, userID, id string) (*mealplan.SavedPlan, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.plans[id]
	if !ok || p.UserID != userID {
		return nil, nil
	}
	return p, nil
}

func (m *mockStore) CreateGroceryList(ctx context.Context, userID, mealPlanID, name string, items []grocery.Item) (*grocery.List, error) {
	if m.err != nil {
		return nil, m.err
	}
	list := &grocery.List{ID: m.id("list"), UserID: userID, MealPlanID: mealPlanID, Name: name}
	for _, it := range items {
		it.ID = m.id("item")
		list.Items = append(list.Items, it)
	}
	m.lists[list.ID] = list
	return list, nil
}

func (m *mockStore) ListGroceryLists(ctx context.Context, userID string) ([]grocery.List, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []grocery.List
	for _, l := range m.lists {
		if l.UserID == userID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (m *mockStore) GetGroceryList(ctx context.Context, userID, id string) (*grocery.List, error) {
	if m.err != nil {
		return nil, m.err
	}
	l, ok := m.lists[id]
	if !ok || l.UserID != userID {
		return nil, nil
	}
	cp := *l
	cp.Items = slices.Clone(l.Items)
	return &cp, nil
}

func (m *mockStore) ToggleItem(ctx context.Context, listID, itemID string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	l, ok := m.lists[listID]
	if !ok {
		return false, store.ErrNotFound
	}
	for i := range l.Items {
		if l.Items[i].ID == itemID {
			// a concurrent request flipped it first
			if m.racingToggle {
				l.Items[i].Checked = !l.Items[i].Checked
			}
			l.Items[i].Checked = !l.Items[i].Checked
			m.checked[itemID] = l.Items[i].Checked
			return l.Items[i].Checked, nil
		}
	}
	return false, store.ErrNotFound
}

func (m *mockStore) SaveMealLog(ctx context.Context, log *tracking.MealLog) error {
	if m.err != nil {
		return m.err
	}
	log.ID = m.id("log")
	log.CreatedAt = testNow
	m.logs = append(m.logs, *log)
	return nil
}

func (m *mockStore) ListMealLogs(ctx context.Context, userID string, from, to time.Time) ([]tracking.MealLog, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.from, m.to = from, to
	var out []tracking.MealLog
	for _, l := range m.logs {
		if l.UserID == userID && !l.LoggedAt.Before(from) && l.LoggedAt.Before(to) {
			out = append(out, l)
		}
	}
	return out, nil
}

// mockFoods is a mock of the Nutritionix client.
type mockFoods struct {
	err       error
	lastQuery string
}

func (m *mockFoods) SearchInstant(ctx context.Context, query string) (*nutritionix.SearchResult, error) {
	m.lastQuery = query
	if m.err != nil {
		return nil, m.err
	}
	return &nutritionix.SearchResult{
		Common: []nutritionix.CommonFood{{FoodName: "apple"}},
	}, nil
}

func (m *mockFoods) NaturalNutrients(ctx context.Context, query string) ([]nutritionix.NutrientFood, error) {
	m.lastQuery = query
	if m.err != nil {
		return nil, m.err
	}
	return []nutritionix.NutrientFood{
		{FoodName: "egg", ServingQty: 2, ServingUnit: "large", Calories: 143, Protein: 12.6, TotalCarbohydrate: 0.7, TotalFat: 9.5},
		{FoodName: "toast", ServingQty: 1, ServingUnit: "slice", Calories: 80, Protein: 3, TotalCarbohydrate: 14, TotalFat: 1},
	}, nil
}

// mockEstimator is a mock of the Gemini client.
type mockEstimator struct {
	err error
}

func (m *mockEstimator) EstimateNutrition(ctx context.Context, description string) (*gemini.Estimate, error) {
	if m.err != nil {
		return nil, m.err
	}
	est := &gemini.Estimate{Name: "Chicken salad"}
	est.Calories = 420
	est.Protein = 35
	return est, nil
}

type testServer struct {
	router *gin.Engine
	h      *Handler
	auth   *mockAuth
	store  *mockStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c, err := catalog.Default()
	require.NoError(t, err)
	gen := mealplan.NewGenerator(c, rand.New(rand.NewSource(1)), zap.NewNop())

	ts := &testServer{auth: newMockAuth(), store: newMockStore()}
	ts.h = NewHandler(ts.auth, gen, ts.store, nil, nil, zap.NewNop())
	ts.h.now = func() time.Time { return testNow }

	ts.router = gin.New()
	ts.h.Register(ts.router)
	return ts
}

// do sends an authenticated request.
func (ts *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	return ts.send(method, path, body, true)
}

func (ts *testServer) send(method, path, body string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}
