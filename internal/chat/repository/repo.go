package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devin-clone/core-backend/internal/chat/domain"
)

// Repo persists chat sessions and messages. Message metadata
// (file references, extracted code blocks) is stored as JSONB.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateSession(ctx context.Context, projectID uuid.UUID, title string) (*domain.Session, error) {
	if title == "" {
		title = "Chat " + time.Now().Format("2006-01-02 15:04")
	}

	const q = `
insert into chat_sessions (id, project_id, title)
values ($1, $2, $3)
returning id, project_id, title, created_at, updated_at;
`
	var s domain.Session
	err := r.db.QueryRow(ctx, q, uuid.New(), projectID, title).
		Scan(&s.ID, &s.ProjectID, &s.Title, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repo) ListSessions(ctx context.Context, projectID uuid.UUID) ([]domain.Session, error) {
	const q = `
select id, project_id, title, created_at, updated_at
from chat_sessions
where project_id = $1
order by updated_at desc;
`
	rows, err := r.db.Query(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Session, 0, 8)
	for rows.Next() {
		var s domain.Session
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.Title, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) GetSession(ctx context.Context, projectID, sessionID uuid.UUID) (*domain.Session, error) {
	const q = `
select id, project_id, title, created_at, updated_at
from chat_sessions
where id = $1 and project_id = $2;
`
	var s domain.Session
	err := r.db.QueryRow(ctx, q, sessionID, projectID).
		Scan(&s.ID, &s.ProjectID, &s.Title, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repo) RenameSession(ctx context.Context, projectID, sessionID uuid.UUID, title string) (*domain.Session, error) {
	const q = `
update chat_sessions
set title = $3, updated_at = now()
where id = $1 and project_id = $2
returning id, project_id, title, created_at, updated_at;
`
	var s domain.Session
	err := r.db.QueryRow(ctx, q, sessionID, projectID, title).
		Scan(&s.ID, &s.ProjectID, &s.Title, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repo) DeleteSession(ctx context.Context, projectID, sessionID uuid.UUID) (bool, error) {
	const q = `delete from chat_sessions where id = $1 and project_id = $2;`
	ct, err := r.db.Exec(ctx, q, sessionID, projectID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// InsertMessage stores one message and bumps the session timestamp.
func (r *Repo) InsertMessage(ctx context.Context, m *domain.Message) error {
	refs, err := json.Marshal(m.FileReferences)
	if err != nil {
		return fmt.Errorf("marshal file references: %w", err)
	}
	blocks, err := json.Marshal(m.CodeBlocks)
	if err != nil {
		return fmt.Errorf("marshal code blocks: %w", err)
	}

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}

	const q = `
insert into chat_messages (id, session_id, role, content, file_references, code_blocks, token_count)
values ($1, $2, $3, $4, $5, $6, $7)
returning created_at;
`
	if err := r.db.QueryRow(ctx, q,
		m.ID, m.SessionID, m.Role, m.Content, refs, blocks, m.TokenCount,
	).Scan(&m.CreatedAt); err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`update chat_sessions set updated_at = now() where id = $1;`, m.SessionID)
	return err
}

// Messages returns a session's messages oldest first. limit <= 0 means all.
func (r *Repo) Messages(ctx context.Context, sessionID uuid.UUID, limit int) ([]domain.Message, error) {
	q := `
select id, session_id, role, content, file_references, code_blocks, token_count, created_at
from chat_messages
where session_id = $1
order by created_at;
`
	args := []any{sessionID}
	if limit > 0 {
		// Window of the most recent messages, returned chronologically.
		q = `
select id, session_id, role, content, file_references, code_blocks, token_count, created_at
from (
  select id, session_id, role, content, file_references, code_blocks, token_count, created_at
  from chat_messages
  where session_id = $1
  order by created_at desc
  limit $2
) recent
order by created_at;
`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Message, 0, 16)
	for rows.Next() {
		var m domain.Message
		var refs, blocks []byte
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &refs, &blocks, &m.TokenCount, &m.CreatedAt); err != nil {
			return nil, err
		}
		if len(refs) > 0 {
			_ = json.Unmarshal(refs, &m.FileReferences)
		}
		if len(blocks) > 0 {
			_ = json.Unmarshal(blocks, &m.CodeBlocks)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
