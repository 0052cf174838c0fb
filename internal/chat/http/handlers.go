package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/devin-clone/core-backend/internal/auth"
	"github.com/devin-clone/core-backend/internal/chat/domain"
	"github.com/devin-clone/core-backend/internal/chat/repository"
	"github.com/devin-clone/core-backend/internal/chat/service"
	"github.com/devin-clone/core-backend/internal/projects"
)

type Handler struct {
	repo     *repository.Repo
	relay    *service.Relay
	projects *projects.Repo
}

// RegisterProjectSubroutes mounts the chat endpoints under the projects
// group.
func RegisterProjectSubroutes(rg *gin.RouterGroup, repo *repository.Repo, relay *service.Relay, projectRepo *projects.Repo) {
	h := &Handler{repo: repo, relay: relay, projects: projectRepo}

	rg.POST("/:project_id/chat/sessions", h.createSession)
	rg.GET("/:project_id/chat/sessions", h.listSessions)
	rg.GET("/:project_id/chat/sessions/:session_id", h.getSession)
	rg.PUT("/:project_id/chat/sessions/:session_id", h.renameSession)
	rg.DELETE("/:project_id/chat/sessions/:session_id", h.deleteSession)
	rg.GET("/:project_id/chat/sessions/:session_id/messages", h.listMessages)
	rg.POST("/:project_id/chat/sessions/:session_id/messages", h.sendMessage)
	rg.POST("/:project_id/chat/sessions/:session_id/stream", h.streamMessage)
}

func (h *Handler) verifyProject(c *gin.Context) (*projects.Project, bool) {
	id, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid project id"})
		return nil, false
	}

	proj, err := h.projects.Get(c.Request.Context(), auth.UserID(c), id)
	if err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return nil, false
	}
	return proj, true
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid session id"})
		return uuid.Nil, false
	}
	return id, true
}

func respondChatError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "session not found"})
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": "completion provider unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	}
}

type createSessionReq struct {
	Title string `json:"title"`
}

func (h *Handler) createSession(c *gin.Context) {
	proj, ok := h.verifyProject(c)
	if !ok {
		return
	}

	var req createSessionReq
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	session, err := h.repo.CreateSession(c.Request.Context(), proj.ID, req.Title)
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "session": session})
}

func (h *Handler) listSessions(c *gin.Context) {
	proj, ok := h.verifyProject(c)
	if !ok {
		return
	}

	sessions, err := h.repo.ListSessions(c.Request.Context(), proj.ID)
	if err != nil {
		respondChatError(c, err)
		return
	}
	if sessions == nil {
		sessions = []domain.Session{}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "sessions": sessions, "total": len(sessions)})
}

func (h *Handler) getSession(c *gin.Context) {
	proj, ok := h.verifyProject(c)
	if !ok {
		return
	}
	sid, ok := sessionID(c)
	if !ok {
		return
	}

	session, err := h.repo.GetSession(c.Request.Context(), proj.ID, sid)
	if err != nil {
		respondChatError(c, err)
		return
	}

	messages, err := h.repo.Messages(c.Request.Context(), sid, 0)
	if err != nil {
		respondChatError(c, err)
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "session": session, "messages": messages})
}

type renameSessionReq struct {
	Title string `json:"title" binding:"required"`
}

func (h *Handler) renameSession(c *gin.Context) {
	proj, ok := h.verifyProject(c)
	if !ok {
		return
	}
	sid, ok := sessionID(c)
	if !ok {
		return
	}

	var req renameSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	session, err := h.repo.RenameSession(c.Request.Context(), proj.ID, sid, req.Title)
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "session": session})
}

func (h *Handler) deleteSession(c *gin.Context) {
	proj, ok := h.verifyProject(c)
	if !ok {
		return
	}
	sid, ok := sessionID(c)
	if !ok {
		return
	}

	deleted, err := h.repo.DeleteSession(c.Request.Context(), proj.ID, sid)
	if err != nil {
		respondChatError(c, err)
		return
	}
	if !deleted {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "session not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handler) listMessages(c *gin.Context) {
	proj, ok := h.verifyProject(c)
	if !ok {
		return
	}
	sid, ok := sessionID(c)
	if !ok {
		return
	}

	if _, err := h.repo.GetSession(c.Request.Context(), proj.ID, sid); err != nil {
		respondChatError(c, err)
		return
	}

	messages, err := h.repo.Messages(c.Request.Context(), sid, 0)
	if err != nil {
		respondChatError(c, err)
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "messages": messages, "total": len(messages)})
}

type sendMessageReq struct {
	Content        string      `json:"content" binding:"required"`
	FileReferences []uuid.UUID `json:"file_references"`
}

func (h *Handler) sendMessage(c *gin.Context) {
	proj, ok := h.verifyProject(c)
	if !ok {
		return
	}
	sid, ok := sessionID(c)
	if !ok {
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	result, err := h.relay.Send(c.Request.Context(), proj.ID, sid, projectContext(proj), service.SendInput{
		Content:        req.Content,
		FileReferences: req.FileReferences,
	})
	if err != nil {
		respondChatError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":      true,
		"message": result.UserMessage,
		"reply":   result.AssistantMessage,
	})
}

// streamMessage relays the reply as server-sent events: one "delta" event
// per fragment, a final "done" event carrying the persisted message, or an
// "error" event if the provider fails mid-stream.
func (h *Handler) streamMessage(c *gin.Context) {
	proj, ok := h.verifyProject(c)
	if !ok {
		return
	}
	sid, ok := sessionID(c)
	if !ok {
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "streaming unsupported"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	reply, err := h.relay.Stream(c.Request.Context(), proj.ID, sid, projectContext(proj), service.SendInput{
		Content:        req.Content,
		FileReferences: req.FileReferences,
	}, func(text string) error {
		writeEvent(c.Writer, "delta", gin.H{"content": text})
		flusher.Flush()
		return nil
	})
	if err != nil {
		// Headers are already out; the failure travels in-band.
		writeEvent(c.Writer, "error", gin.H{"error": errorLabel(err)})
		flusher.Flush()
		return
	}

	writeEvent(c.Writer, "done", gin.H{"message": reply})
	flusher.Flush()
}

func writeEvent(w http.ResponseWriter, event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}

func errorLabel(err error) string {
	if errors.Is(err, domain.ErrUpstreamUnavailable) {
		return "completion provider unavailable"
	}
	return err.Error()
}

func projectContext(p *projects.Project) service.ProjectContext {
	desc := ""
	if p.Description != nil {
		desc = *p.Description
	}
	return service.ProjectContext{OwnerID: p.OwnerID, Name: p.Name, Description: desc, Language: p.Language}
}
