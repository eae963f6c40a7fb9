package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"nutriflow/internal/grocery"
)

// ListGroceryLists returns the current user's grocery lists, newest first.
func (h *Handler) ListGroceryLists(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	lists, err := h.Store.ListGroceryLists(ctx, sess.UserID)
	if err != nil {
		h.respondError(c, err, "list grocery lists")
		return
	}
	if lists == nil {
		lists = []grocery.List{}
	}
	c.JSON(http.StatusOK, lists)
}

// GetGroceryList returns one list with its items.
func (h *Handler) GetGroceryList(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	list, err := h.Store.GetGroceryList(ctx, sess.UserID, c.Param("id"))
	if err != nil {
		h.respondError(c, err, "get grocery list")
		return
	}
	if list == nil {
		c.String(http.StatusNotFound, "grocery list not found")
		return
	}
	c.JSON(http.StatusOK, list)
}

// ToggleGroceryItem flips one item's checked state and returns the list's items.
func (h *Handler) ToggleGroceryItem(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	list, err := h.Store.GetGroceryList(ctx, sess.UserID, c.Param("id"))
	if err != nil {
		h.respondError(c, err, "get grocery list")
		return
	}
	if list == nil {
		c.String(http.StatusNotFound, "grocery list not found")
		return
	}

	itemID := c.Param("item_id")
	if _, found := grocery.Find(list.Items, itemID); !found {
		c.String(http.StatusNotFound, "grocery item not found")
		return
	}

	checked, err := h.Store.ToggleItem(ctx, list.ID, itemID)
	if err != nil {
		h.respondError(c, err, "update grocery item")
		return
	}

	items := grocery.Toggle(list.Items, itemID)
	// A concurrent toggle landed between the read and the update.
	if item, _ := grocery.Find(items, itemID); item.Checked != checked {
		items = grocery.Toggle(items, itemID)
	}
	c.JSON(http.StatusOK, items)
}
