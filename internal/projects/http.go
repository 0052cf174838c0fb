package projects

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/devin-clone/core-backend/internal/auth"
)

type Handler struct {
	repo  *Repo
	cache *Cache
}

func Register(rg *gin.RouterGroup, repo *Repo, cache *Cache) {
	h := &Handler{repo: repo, cache: cache}

	rg.POST("", h.create)
	rg.GET("", h.list)
	rg.GET("/:project_id", h.get)
	rg.PUT("/:project_id", h.update)
	rg.DELETE("/:project_id", h.delete)
	rg.GET("/:project_id/stats", h.stats)
}

func projectID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid project id"})
		return uuid.Nil, false
	}
	return id, true
}

type createReq struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Language    string  `json:"language"`
	Template    string  `json:"template"`
}

func (h *Handler) create(c *gin.Context) {
	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	userID := auth.UserID(c)
	plan := Plan(auth.Plan(c))
	limits := LimitsFor(plan)

	if limits.MaxProjects > 0 {
		count, err := h.repo.CountByOwner(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
			return
		}
		if count >= limits.MaxProjects {
			c.JSON(http.StatusForbidden, gin.H{
				"ok":    false,
				"error": "free plan is limited to 1 project, upgrade to pro",
			})
			return
		}
	}

	p, err := h.repo.Create(c.Request.Context(), userID, CreateInput{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Language:    req.Language,
		Template:    req.Template,
	}, limits)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "project": p})
}

func (h *Handler) list(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	items, total, err := h.repo.List(c.Request.Context(), auth.UserID(c), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"projects":  items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *Handler) get(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	userID := auth.UserID(c)

	if p, hit := h.cache.Get(c.Request.Context(), id); hit && p.OwnerID == userID {
		c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
		return
	}

	p, err := h.repo.Get(c.Request.Context(), userID, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	h.cache.Set(c.Request.Context(), p)
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

type updateReq struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Language    *string `json:"language"`
}

func (h *Handler) update(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	p, err := h.repo.Update(c.Request.Context(), auth.UserID(c), id, UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Language:    req.Language,
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	h.cache.Invalidate(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) delete(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	deleted, err := h.repo.Delete(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
		return
	}

	h.cache.Invalidate(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) stats(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}

	s, err := h.repo.Stats(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "stats": s})
}
