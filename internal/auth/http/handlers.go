package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/devin-clone/core-backend/config"
	"github.com/devin-clone/core-backend/internal/auth"
	"github.com/devin-clone/core-backend/internal/users"
)

type Handler struct {
	cfg   config.AuthConfig
	users *users.Repo
}

func Register(rg *gin.RouterGroup, cfg config.AuthConfig, userRepo *users.Repo) {
	h := &Handler{cfg: cfg, users: userRepo}

	rg.POST("/signup", h.signup)
	rg.POST("/signin", h.signin)
	rg.POST("/refresh", h.refresh)
	rg.POST("/logout", h.logout)

	me := rg.Group("")
	me.Use(auth.RequireUser(cfg.Secret, userRepo))
	me.GET("/me", h.me)
}

type signupReq struct {
	Email    string  `json:"email" binding:"required,email"`
	Username string  `json:"username" binding:"required,min=3"`
	Password string  `json:"password" binding:"required,min=8"`
	FullName *string `json:"full_name"`
}

func (h *Handler) signup(c *gin.Context) {
	var req signupReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "hash password"})
		return
	}

	u, err := h.users.Create(c.Request.Context(), users.CreateInput{
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		Username:       strings.TrimSpace(req.Username),
		HashedPassword: hash,
		FullName:       req.FullName,
	})
	if err != nil {
		if errors.Is(err, users.ErrAlreadyExists) {
			c.JSON(http.StatusConflict, gin.H{"ok": false, "error": "email or username already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "user": u})
}

type signinReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) signin(c *gin.Context) {
	var req signinReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	u, err := h.users.ByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || u.HashedPassword == nil || !auth.VerifyPassword(req.Password, *u.HashedPassword) {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "incorrect email or password"})
		return
	}
	if !u.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"ok": false, "error": "account disabled"})
		return
	}

	pair, err := auth.IssueTokens(h.cfg, u.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	_ = h.users.TouchLastLogin(c.Request.Context(), u.ID)

	c.JSON(http.StatusOK, gin.H{"ok": true, "token": pair, "user": u})
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

func (h *Handler) refresh(c *gin.Context) {
	var req refreshReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	userID, err := auth.ParseToken(h.cfg.Secret, req.RefreshToken, auth.TokenTypeRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid refresh token"})
		return
	}

	u, err := h.users.ByID(c.Request.Context(), userID)
	if err != nil || !u.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid refresh token"})
		return
	}

	pair, err := auth.IssueTokens(h.cfg, u.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "token": pair})
}

// logout is stateless; tokens are short-lived and discarded client-side.
func (h *Handler) logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) me(c *gin.Context) {
	u, err := h.users.ByID(c.Request.Context(), auth.UserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "user not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": u})
}
