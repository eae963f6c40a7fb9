package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
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

// AuthService defines the account and session operations used by the handlers.
type AuthService interface {
	Signup(ctx context.Context, name, email, password string) (*auth.Grant, error)
	Login(ctx context.Context, email, password string) (*auth.Grant, error)
	Logout(ctx context.Context, sess *auth.Session) error
	Authenticate(ctx context.Context, token string) (*auth.Session, error)
	UpdateProfile(ctx context.Context, sess *auth.Session, p auth.ProfileUpdate) (*auth.User, error)
}

// PlanGenerator generates meal plans from the recipe catalog.
type PlanGenerator interface {
	Generate(req mealplan.Request) (*mealplan.Result, error)
	Catalog() *catalog.Catalog
}

// Store defines the persistence operations used by the handlers. Lookups
// scoped to a user return nil, nil when the record is missing or not theirs.
type Store interface {
	Ping(ctx context.Context) error

	SavePlan(ctx context.Context, userID string, plan mealplan.MealPlan) (*mealplan.SavedPlan, error)
	ListPlans(ctx context.Context, userID string) ([]mealplan.SavedPlan, error)
	GetPlan(ctx context.Context, userID, id string) (*mealplan.SavedPlan, error)

	CreateGroceryList(ctx context.Context, userID, mealPlanID, name string, items []grocery.Item) (*grocery.List, error)
	ListGroceryLists(ctx context.Context, userID string) ([]grocery.List, error)
	GetGroceryList(ctx context.Context, userID, id string) (*grocery.List, error)
	ToggleItem(ctx context.Context, listID, itemID string) (bool, error)

	SaveMealLog(ctx context.Context, log *tracking.MealLog) error
	ListMealLogs(ctx context.Context, userID string, from, to time.Time) ([]tracking.MealLog, error)
}

// FoodSearcher defines the interface for interacting with the Nutritionix API.
type FoodSearcher interface {
	SearchInstant(ctx context.Context, query string) (*nutritionix.SearchResult, error)
	NaturalNutrients(ctx context.Context, query string) ([]nutritionix.NutrientFood, error)
}

// NutritionEstimator defines the interface for interacting with the Gemini API.
type NutritionEstimator interface {
	EstimateNutrition(ctx context.Context, description string) (*gemini.Estimate, error)
}

// Handler handles HTTP requests. Foods and Estimator are optional; the routes
// that need them answer 503 when they are nil.
type Handler struct {
	Auth      AuthService
	Generator PlanGenerator
	Store     Store
	Foods     FoodSearcher
	Estimator NutritionEstimator

	logger *zap.Logger
	now    func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(authService AuthService, generator PlanGenerator, st Store, foods FoodSearcher, estimator NutritionEstimator, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:      authService,
		Generator: generator,
		Store:     st,
		Foods:     foods,
		Estimator: estimator,
		logger:    logger,
		now:       time.Now,
	}
}

const (
	dbTimeout       = 5 * time.Second
	externalTimeout = 45 * time.Second
)

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.GET("/plan-types", h.PlanTypes)
	r.POST("/auth/signup", h.Signup)
	r.POST("/auth/login", h.Login)

	authed := r.Group("/", auth.Middleware(h.Auth))
	authed.POST("/auth/logout", h.Logout)
	authed.GET("/profile", h.GetProfile)
	authed.PUT("/profile", h.UpdateProfile)

	authed.POST("/meal-plans/generate", h.GeneratePlan)
	authed.POST("/meal-plans", h.SavePlan)
	authed.GET("/meal-plans", h.ListPlans)
	authed.GET("/meal-plans/:id", h.GetPlan)
	authed.POST("/meal-plans/:id/grocery-list", h.CreateGroceryList)

	authed.GET("/grocery-lists", h.ListGroceryLists)
	authed.GET("/grocery-lists/:id", h.GetGroceryList)
	authed.POST("/grocery-lists/:id/items/:item_id/toggle", h.ToggleGroceryItem)

	authed.POST("/meal-logs", h.LogMeal)
	authed.GET("/meal-logs", h.ListMealLogs)
	authed.GET("/dashboard/today", h.Today)
	authed.GET("/dashboard/week", h.Week)

	authed.GET("/foods/search", h.SearchFoods)
	authed.POST("/foods/nutrients", h.FoodNutrients)
	authed.POST("/foods/estimate", h.EstimateNutrition)
}

// Health reports whether the database is reachable.
func (h *Handler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		h.logger.Warn("health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// PlanTypes lists the catalog's plan types.
func (h *Handler) PlanTypes(c *gin.Context) {
	c.JSON(http.StatusOK, h.Generator.Catalog().PlanTypes())
}

// session returns the middleware-provided session. Routes behind the auth
// middleware always have one; the check guards against mis-registration.
func session(c *gin.Context) (*auth.Session, bool) {
	sess, ok := auth.SessionFrom(c)
	if !ok || sess.User == nil {
		c.String(http.StatusUnauthorized, auth.ErrAuthRequired.Error())
		return nil, false
	}
	return sess, true
}

func badRequest(c *gin.Context, err error) {
	c.String(http.StatusBadRequest, fmt.Sprintf("invalid request: %s", err.Error()))
}

// respondError maps domain errors to status codes. Unexpected errors are logged
// and reported without internal detail.
func (h *Handler) respondError(c *gin.Context, err error, action string) {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		c.String(http.StatusRequestTimeout, fmt.Sprintf("%s timed out", action))
	case errors.Is(err, auth.ErrAuthRequired), errors.Is(err, auth.ErrInvalidCredentials):
		c.String(http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		c.String(http.StatusConflict, err.Error())
	case errors.Is(err, mealplan.ErrInvalidSelection),
		errors.Is(err, mealplan.ErrInvalidCalorieTarget),
		errors.Is(err, mealplan.ErrUnknownPlanType),
		errors.Is(err, tracking.ErrNoFoods),
		errors.Is(err, tracking.ErrInvalidFood),
		auth.IsClientError(err):
		c.String(http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrNotFound):
		c.String(http.StatusNotFound, fmt.Sprintf("%s: not found", action))
	case errors.Is(err, gemini.ErrNotFood):
		c.String(http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("request failed", zap.String("action", action), zap.String("path", c.FullPath()), zap.Error(err))
		c.String(http.StatusInternalServerError, fmt.Sprintf("failed to %s", action))
	}
}

// RequestLogger logs one line per request.
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if sess, ok := auth.SessionFrom(c); ok {
			fields = append(fields, zap.String("user_id", sess.UserID))
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("request", fields...)
			return
		}
		logger.Debug("request", fields...)
	}
}
