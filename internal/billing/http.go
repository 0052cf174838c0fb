package billing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/devin-clone/core-backend/internal/auth"
	"github.com/devin-clone/core-backend/internal/projects"
	"github.com/devin-clone/core-backend/internal/users"
)

type Handler struct {
	repo      *Repo
	users     *users.Repo
	processor *Processor
	secret    string
}

// Register mounts the authenticated billing read endpoints.
func Register(rg *gin.RouterGroup, repo *Repo, userRepo *users.Repo) {
	h := &Handler{repo: repo, users: userRepo}
	rg.GET("/subscription", h.subscription)
	rg.GET("/payments", h.payments)
}

// RegisterWebhook mounts the provider callback on a public group. The
// signature check is the only authentication.
func RegisterWebhook(rg *gin.RouterGroup, processor *Processor, secret string) {
	h := &Handler{processor: processor, secret: secret}
	rg.POST("/webhook", h.webhook)
}

func (h *Handler) subscription(c *gin.Context) {
	userID := auth.UserID(c)

	user, err := h.users.ByID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	sub, err := h.repo.SubscriptionByUser(c.Request.Context(), userID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	limits := projects.LimitsFor(projects.Plan(user.Plan))
	c.JSON(http.StatusOK, gin.H{
		"ok":           true,
		"plan":         user.Plan,
		"subscription": sub,
		"usage": gin.H{
			"tokens_used":  user.TokensUsed,
			"tokens_limit": user.TokensLimit,
		},
		"limits": gin.H{
			"max_projects": limits.MaxProjects,
			"max_files":    limits.MaxFiles,
			"max_size_kb":  limits.MaxSizeKB,
		},
	})
}

func (h *Handler) payments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	items, total, err := h.repo.Payments(c.Request.Context(), auth.UserID(c), page, pageSize)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if items == nil {
		items = []*Payment{}
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"payments":  items,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func (h *Handler) webhook(c *gin.Context) {
	if h.secret == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "billing webhooks not configured"})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unreadable body"})
		return
	}

	if err := VerifySignature(payload, c.GetHeader("Webhook-Signature"), h.secret, time.Now()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid signature"})
		return
	}

	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil || ev.ID == "" || ev.Type == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "malformed event"})
		return
	}

	if err := h.processor.Process(c.Request.Context(), ev); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
