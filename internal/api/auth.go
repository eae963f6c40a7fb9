package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"nutriflow/internal/auth"
)

type signupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Signup creates an account and returns a session token.
func (h *Handler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	grant, err := h.Auth.Signup(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		h.respondError(c, err, "sign up")
		return
	}
	c.JSON(http.StatusCreated, grant)
}

// Login exchanges credentials for a session token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	grant, err := h.Auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.respondError(c, err, "log in")
		return
	}
	c.JSON(http.StatusOK, grant)
}

// Logout ends the current session.
func (h *Handler) Logout(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	if err := h.Auth.Logout(ctx, sess); err != nil {
		h.respondError(c, err, "log out")
		return
	}
	c.Status(http.StatusNoContent)
}

// GetProfile returns the current user.
func (h *Handler) GetProfile(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.User)
}

// UpdateProfile replaces the current user's profile fields.
func (h *Handler) UpdateProfile(c *gin.Context) {
	sess, ok := session(c)
	if !ok {
		return
	}

	var req auth.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), dbTimeout)
	defer cancel()

	u, err := h.Auth.UpdateProfile(ctx, sess, req)
	if err != nil {
		h.respondError(c, err, "update profile")
		return
	}
	c.JSON(http.StatusOK, u)
}
