package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/devin-clone/core-backend/internal/auth"
	"github.com/devin-clone/core-backend/internal/files/domain"
	"github.com/devin-clone/core-backend/internal/files/service"
	"github.com/devin-clone/core-backend/internal/projects"
)

type Handler struct {
	tree     *service.Tree
	quota    *service.Enforcer
	projects *projects.Repo
}

// RegisterProjectSubroutes mounts the file tree endpoints under the
// projects group.
func RegisterProjectSubroutes(rg *gin.RouterGroup, tree *service.Tree, quota *service.Enforcer, projectRepo *projects.Repo) {
	h := &Handler{tree: tree, quota: quota, projects: projectRepo}

	rg.GET("/:project_id/files", h.list)
	rg.GET("/:project_id/files/tree", h.getTree)
	rg.GET("/:project_id/files/usage", h.usage)
	rg.POST("/:project_id/files", h.create)
	rg.GET("/:project_id/files/:file_id", h.get)
	rg.PUT("/:project_id/files/:file_id", h.update)
	rg.POST("/:project_id/files/:file_id/move", h.move)
	rg.DELETE("/:project_id/files/:file_id", h.delete)
	rg.GET("/:project_id/files/:file_id/download", h.download)
}

// verifyProject checks the project exists and belongs to the caller before
// any tree operation runs.
func (h *Handler) verifyProject(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("project_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid project id"})
		return uuid.Nil, false
	}

	if _, err := h.projects.Get(c.Request.Context(), auth.UserID(c), id); err != nil {
		if errors.Is(err, projects.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "project not found"})
			return uuid.Nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return uuid.Nil, false
	}
	return id, true
}

func fileID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("file_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid file id"})
		return uuid.Nil, false
	}
	return id, true
}

// respondTreeError maps the tree error taxonomy onto HTTP statuses. Quota
// errors keep their dimension detail so the client can render it.
func respondTreeError(c *gin.Context, err error) {
	var qe *domain.QuotaError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "file not found"})
	case errors.Is(err, domain.ErrPathConflict):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, domain.ErrCycleDetected):
		c.JSON(http.StatusConflict, gin.H{"ok": false, "error": err.Error()})
	case errors.Is(err, domain.ErrInvalidParent), errors.Is(err, domain.ErrInvalidPath),
		errors.Is(err, domain.ErrNotAFile):
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
	case errors.As(err, &qe):
		c.JSON(http.StatusForbidden, gin.H{
			"ok":        false,
			"error":     qe.Error(),
			"dimension": qe.Dimension,
			"current":   qe.Current,
			"limit":     qe.Limit,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
	}
}

func (h *Handler) list(c *gin.Context) {
	projID, ok := h.verifyProject(c)
	if !ok {
		return
	}

	items, err := h.tree.List(c.Request.Context(), projID, c.Query("path"))
	if err != nil {
		respondTreeError(c, err)
		return
	}

	var totalFiles, totalDirs int
	var totalSize int64
	for i := range items {
		if items[i].IsDirectory() {
			totalDirs++
			continue
		}
		totalFiles++
		totalSize += items[i].SizeBytes
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":               true,
		"files":            items,
		"total":            len(items),
		"directories":      totalDirs,
		"total_size_bytes": totalSize,
	})
}

func (h *Handler) getTree(c *gin.Context) {
	projID, ok := h.verifyProject(c)
	if !ok {
		return
	}

	roots, err := h.tree.GetTree(c.Request.Context(), projID)
	if err != nil {
		respondTreeError(c, err)
		return
	}
	if roots == nil {
		roots = []*domain.TreeNode{}
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "tree": roots})
}

func (h *Handler) usage(c *gin.Context) {
	projID, ok := h.verifyProject(c)
	if !ok {
		return
	}

	u, err := h.quota.ComputeUsage(c.Request.Context(), projID)
	if err != nil {
		respondTreeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "usage": u})
}

type createReq struct {
	Name     string          `json:"name"`
	Path     string          `json:"path" binding:"required"`
	Type     domain.FileType `json:"type" binding:"required"`
	Content  *string         `json:"content"`
	ParentID *uuid.UUID      `json:"parent_id"`
}

func (h *Handler) create(c *gin.Context) {
	projID, ok := h.verifyProject(c)
	if !ok {
		return
	}

	var req createReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	f, err := h.tree.Create(c.Request.Context(), projID, service.CreateInput{
		Name:     req.Name,
		Path:     req.Path,
		Type:     req.Type,
		Content:  req.Content,
		ParentID: req.ParentID,
	})
	if err != nil {
		respondTreeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "file": f})
}

func (h *Handler) get(c *gin.Context) {
	projID, ok := h.verifyProject(c)
	if !ok {
		return
	}
	fid, ok := fileID(c)
	if !ok {
		return
	}

	f, err := h.tree.Get(c.Request.Context(), projID, fid)
	if err != nil {
		respondTreeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "file": f})
}

type updateReq struct {
	Name     *string `json:"name"`
	Content  *string `json:"content"`
	Language *string `json:"language"`
}

func (h *Handler) update(c *gin.Context) {
	projID, ok := h.verifyProject(c)
	if !ok {
		return
	}
	fid, ok := fileID(c)
	if !ok {
		return
	}

	var req updateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	f, err := h.tree.Update(c.Request.Context(), projID, fid, service.UpdateInput{
		Name:     req.Name,
		Content:  req.Content,
		Language: req.Language,
	})
	if err != nil {
		respondTreeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "file": f})
}

type moveReq struct {
	NewPath  string     `json:"new_path" binding:"required"`
	ParentID *uuid.UUID `json:"parent_id"`
}

func (h *Handler) move(c *gin.Context) {
	projID, ok := h.verifyProject(c)
	if !ok {
		return
	}
	fid, ok := fileID(c)
	if !ok {
		return
	}

	var req moveReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	f, err := h.tree.Move(c.Request.Context(), projID, fid, service.MoveInput{
		NewPath:  req.NewPath,
		ParentID: req.ParentID,
	})
	if err != nil {
		respondTreeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "file": f})
}

func (h *Handler) delete(c *gin.Context) {
	projID, ok := h.verifyProject(c)
	if !ok {
		return
	}
	fid, ok := fileID(c)
	if !ok {
		return
	}

	removed, err := h.tree.Delete(c.Request.Context(), projID, fid)
	if err != nil {
		respondTreeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "removed": removed})
}

func (h *Handler) download(c *gin.Context) {
	projID, ok := h.verifyProject(c)
	if !ok {
		return
	}
	fid, ok := fileID(c)
	if !ok {
		return
	}

	f, err := h.tree.Get(c.Request.Context(), projID, fid)
	if err != nil {
		respondTreeError(c, err)
		return
	}
	if f.IsDirectory() {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "cannot download a directory"})
		return
	}
	if f.IsBinary {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "binary files not supported"})
		return
	}

	contentType := "text/plain; charset=utf-8"
	if f.MimeType != nil {
		contentType = *f.MimeType
	}
	var content string
	if f.Content != nil {
		content = *f.Content
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Name))
	c.Data(http.StatusOK, contentType, []byte(content))
}
