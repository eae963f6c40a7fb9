package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"nutriflow/internal/catalog"
	"nutriflow/internal/nutrition"
)

// SearchFoods searches Nutritionix when it is configured and the local food
// table otherwise.
func (h *Handler) SearchFoods(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.String(http.StatusBadRequest, "query parameter q is required")
		return
	}

	if h.Foods == nil {
		foods := h.Generator.Catalog().SearchFoods(q)
		if foods == nil {
			foods = []catalog.Food{}
		}
		c.JSON(http.StatusOK, gin.H{"source": "local", "foods": foods})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), externalTimeout)
	defer cancel()

	res, err := h.Foods.SearchInstant(ctx, q)
	if err != nil {
		h.respondError(c, err, "search foods")
		return
	}
	c.JSON(http.StatusOK, gin.H{"source": "nutritionix", "common": res.Common, "branded": res.Branded})
}

type nutrientsRequest struct {
	Query string `json:"query" binding:"required"`
}

// FoodNutrients resolves a natural-language food description into foods with
// nutrition facts.
func (h *Handler) FoodNutrients(c *gin.Context) {
	if h.Foods == nil {
		c.String(http.StatusServiceUnavailable, "nutrition lookup is not configured")
		return
	}

	var req nutrientsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), externalTimeout)
	defer cancel()

	found, err := h.Foods.NaturalNutrients(ctx, req.Query)
	if err != nil {
		h.respondError(c, err, "look up nutrients")
		return
	}

	foods := make([]catalog.Food, 0, len(found))
	var totals nutrition.Macros
	for _, f := range found {
		food := f.Food()
		foods = append(foods, food)
		totals = totals.Add(food.Macros())
	}
	c.JSON(http.StatusOK, gin.H{"foods": foods, "totals": totals})
}

type estimateRequest struct {
	Description string `json:"description" binding:"required"`
}

// EstimateNutrition asks Gemini for the macros of a described meal.
func (h *Handler) EstimateNutrition(c *gin.Context) {
	if h.Estimator == nil {
		c.String(http.StatusServiceUnavailable, "nutrition estimation is not configured")
		return
	}

	var req estimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), externalTimeout)
	defer cancel()

	est, err := h.Estimator.EstimateNutrition(ctx, req.Description)
	if err != nil {
		h.respondError(c, err, "estimate nutrition")
		return
	}
	c.JSON(http.StatusOK, est)
}
