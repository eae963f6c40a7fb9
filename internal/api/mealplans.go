package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"nutriflow/internal/catalog"
	"nutriflow/internal/grocery"
	"nutriflow/internal/mealplan"
)

type slotSelection struct {
	Breakfast bool `json:"breakfast"`
	Lunch     bool `json:"lunch"`
	Dinner    bool `json:"dinner"`
	Snacks    bool `json:"snacks"`
}

func (s slotSelection) slots() []catalog.MealSlot {
	var out []catalog.MealSlot
	for _, inc := range []struct {
		on   bool
		slot catalog.MealSlot
	}{
		{s.Breakfast, catalog.Breakfast},
		{s.Lunch, catalog.Lunch},
		{s.Dinner, catalog.Dinner},
		{s.Snacks, catalog.Snack},
	} {
		if inc.on {
			out = append(out, inc.slot)
		}
	}
	return out
}

type generateRequest struct {
	PlanType catalog.PlanType `json:"plan_type" binding:"required"`
	Calories *float64         `json:"calories"`
	Slots    *slotSelection   `json:"slots"`
	Name     string           `json:"name"`
	Notes    string           `json:"notes"`
}

// GeneratePlan builds a meal plan without saving it.
func (h *Handler) GeneratePlan(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	genReq := mealplan.Request{
		PlanType: req.PlanType,
		Calories: sess.User.CalorieTarget,
		Slots:    catalog.Slots(),
		Name:     req.Name,
		Notes:    req.Notes,
	}
	if req.Calories != nil {
		genReq.Calories = *req.Calories
	}
	if req.Slots != nil {
		genReq.Slots = req.Slots.slots()
	}

	res, err := h.Generator.Generate(genReq)
	if err != nil {
		h.respondError(c, err, "generate meal plan")
		return
	}
	c.JSON(http.StatusOK, res)
}

// SavePlan persists a generated plan for the current user.
func (h *Handler) SavePlan(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var plan mealplan.MealPlan
	if err := c.ShouldBindJSON(&plan); err != nil {
		badRequest(c, err)
		return
	}
	plan.Name = strings.TrimSpace(plan.Name)
	if plan.Name == "" {
		c.String(http.StatusBadRequest, "meal plan name is required")
		return
	}
	meals := plan.Meals.All()
	if len(meals) == 0 {
		c.String(http.StatusBadRequest, "meal plan has no meals")
		return
	}
	for _, m := range meals {
		if m.Nutrition.IsNegative() {
			c.String(http.StatusBadRequest, "meal nutrition must not be negative")
			return
		}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	saved, err := h.Store.SavePlan(ctx, sess.UserID, plan)
	if err != nil {
		h.respondError(c, err, "save meal plan")
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// ListPlans returns the current user's plans, newest first.
func (h *Handler) ListPlans(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	plans, err := h.Store.ListPlans(ctx, sess.UserID)
	if err != nil {
		h.respondError(c, err, "list meal plans")
		return
	}
	if plans == nil {
		plans = []mealplan.SavedPlan{}
	}
	c.JSON(http.StatusOK, plans)
}

// GetPlan returns one of the current user's plans.
func (h *Handler) GetPlan(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	plan, err := h.Store.GetPlan(ctx, sess.UserID, c.Param("id"))
	if err != nil {
		h.respondError(c, err, "get meal plan")
		return
	}
	if plan == nil {
		c.String(http.StatusNotFound, "meal plan not found")
		return
	}
	c.JSON(http.StatusOK, plan)
}

type groceryListRequest struct {
	Name string `json:"name"`
}

// CreateGroceryList derives a grocery list from a saved plan's ingredients.
// The request body is optional.
func (h *Handler) CreateGroceryList(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req groceryListRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	plan, err := h.Store.GetPlan(ctx, sess.UserID, c.Param("id"))
	if err != nil {
		h.respondError(c, err, "get meal plan")
		return
	}
	if plan == nil {
		c.String(http.StatusNotFound, "meal plan not found")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = grocery.DefaultListName(h.now())
	}
	items := grocery.FromIngredients(plan.IngredientLines())

	list, err := h.Store.CreateGroceryList(ctx, sess.UserID, plan.ID, name, items)
	if err != nil {
		h.respondError(c, err, "create grocery list")
		return
	}
	c.JSON(http.StatusCreated, list)
}
