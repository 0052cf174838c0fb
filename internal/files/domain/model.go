package domain

import (
	"time"

	"github.com/google/uuid"
)

// FileType discriminates tree nodes. Directories never carry content and
// always have SizeBytes = 0.
type FileType string

const (
	FileTypeFile      FileType = "file"
	FileTypeDirectory FileType = "directory"
)

// ProjectFile is a node (file or directory) in a project's file tree.
// Path is the normalized, forward-slash path from the project root and is
// unique within a project.
type ProjectFile struct {
	ID         uuid.UUID  `json:"id"`
	ProjectID  uuid.UUID  `json:"project_id"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
	Name       string     `json:"name"`
	Path       string     `json:"path"`
	Type       FileType   `json:"type"`
	Content    *string    `json:"content,omitempty"`
	Language   *string    `json:"language,omitempty"`
	Encoding   string     `json:"encoding"`
	SizeBytes  int64      `json:"size_bytes"`
	IsBinary   bool       `json:"is_binary"`
	MimeType   *string    `json:"mime_type,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (f *ProjectFile) IsDirectory() bool {
	return f.Type == FileTypeDirectory
}

// TreeNode is a ProjectFile with its resolved children, as returned by the
// tree query. Children are ordered directories first, then by name.
type TreeNode struct {
	ProjectFile
	Children []*TreeNode `json:"children"`
}

// ProjectLimits are the quota limits stamped onto a project at creation.
type ProjectLimits struct {
	MaxFiles  int   `json:"max_files"`
	MaxSizeKB int64 `json:"max_size_kb"`
}

// Usage is the current aggregate consumption of a project.
type Usage struct {
	TotalFiles       int            `json:"total_files"`
	TotalDirectories int            `json:"total_directories"`
	TotalSizeBytes   int64          `json:"total_size_bytes"`
	Languages        map[string]int `json:"languages"`
}
