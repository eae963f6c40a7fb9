package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"nutriflow/internal/auth"
	"nutriflow/internal/catalog"
	"nutriflow/internal/nutrition"
	"nutriflow/internal/tracking"
)

// foodRequest is a food entry as sent by clients. Calories must be present;
// zero is allowed.
type foodRequest struct {
	Name     string   `json:"name"`
	Serving  string   `json:"serving"`
	Calories *float64 `json:"calories"`
	Protein  float64  `json:"protein"`
	Carbs    float64  `json:"carbs"`
	Fat      float64  `json:"fat"`
}

type mealLogRequest struct {
	Name        string           `json:"name"`
	MealType    catalog.MealSlot `json:"meal_type" binding:"required"`
	Description string           `json:"description"`
	Foods       []foodRequest    `json:"foods"`
	LoggedAt    *time.Time       `json:"logged_at"`
}

func (r mealLogRequest) entries() ([]tracking.FoodEntry, error) {
	entries := make([]tracking.FoodEntry, 0, len(r.Foods))
	for i, f := range r.Foods {
		if f.Calories == nil {
			return nil, fmt.Errorf("%w (entry %d)", tracking.ErrInvalidFood, i+1)
		}
		entries = append(entries, tracking.FoodEntry{
			Name:     f.Name,
			Serving:  f.Serving,
			Calories: *f.Calories,
			Protein:  f.Protein,
			Carbs:    f.Carbs,
			Fat:      f.Fat,
		})
	}
	return entries, nil
}

// LogMeal records a meal the current user ate.
func (h *Handler) LogMeal(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req mealLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	foods, err := req.entries()
	if err != nil {
		h.respondError(c, err, "log meal")
		return
	}

	loggedAt := h.now()
	if req.LoggedAt != nil {
		loggedAt = *req.LoggedAt
	}
	log, err := tracking.NewMealLog(sess.UserID, req.Name, req.MealType, req.Description, foods, loggedAt)
	if err != nil {
		h.respondError(c, err, "log meal")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	if err := h.Store.SaveMealLog(ctx, log); err != nil {
		h.respondError(c, err, "log meal")
		return
	}
	c.JSON(http.StatusCreated, log)
}

// ListMealLogs returns the logs of one UTC day, oldest first. The day comes from
// the date query parameter and defaults to today.
func (h *Handler) ListMealLogs(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	day := h.now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			c.String(http.StatusBadRequest, "date must be formatted as YYYY-MM-DD")
			return
		}
		day = parsed
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	from, to := tracking.DayBounds(day)
	logs, err := h.Store.ListMealLogs(ctx, sess.UserID, from, to)
	if err != nil {
		h.respondError(c, err, "list meal logs")
		return
	}
	if logs == nil {
		logs = []tracking.MealLog{}
	}
	c.JSON(http.StatusOK, logs)
}

func targets(u *auth.User) nutrition.Macros {
	return nutrition.Macros{
		Calories: u.CalorieTarget,
		Protein:  u.MacroTargets.Protein,
		Carbs:    u.MacroTargets.Carbs,
		Fat:      u.MacroTargets.Fat,
	}
}

// Today summarizes today's intake against the user's targets.
func (h *Handler) Today(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	now := h.now()
	from, to := tracking.DayBounds(now)
	logs, err := h.Store.ListMealLogs(ctx, sess.UserID, from, to)
	if err != nil {
		h.respondError(c, err, "load dashboard")
		return
	}
	c.JSON(http.StatusOK, tracking.Summarize(now, logs, targets(sess.User)))
}

// Week returns daily totals for the last seven days, today included.
func (h *Handler) Week(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	now := h.now()
	start, end := tracking.DayBounds(now)
	from := start.AddDate(0, 0, -(tracking.HistoryDays - 1))
	logs, err := h.Store.ListMealLogs(ctx, sess.UserID, from, end)
	if err != nil {
		h.respondError(c, err, "load weekly history")
		return
	}
	c.JSON(http.StatusOK, tracking.WeeklyHistory(now, logs, sess.User.CalorieTarget))
}
