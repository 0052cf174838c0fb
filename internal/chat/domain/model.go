package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("chat session not found")

	// ErrUpstreamUnavailable marks completion-provider failures so the
	// caller can distinguish "retry" from "fix your input".
	ErrUpstreamUnavailable = errors.New("completion service unavailable")
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

type Session struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CodeBlock is one fenced region extracted from a completed message.
type CodeBlock struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

type Message struct {
	ID             uuid.UUID   `json:"id"`
	SessionID      uuid.UUID   `json:"session_id"`
	Role           Role        `json:"role"`
	Content        string      `json:"content"`
	FileReferences []uuid.UUID `json:"file_references,omitempty"`
	CodeBlocks     []CodeBlock `json:"code_blocks,omitempty"`
	TokenCount     *int        `json:"token_count,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}
