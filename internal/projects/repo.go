package projects

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("project not found")

type Project struct {
	ID             uuid.UUID  `json:"id"`
	OwnerID        uuid.UUID  `json:"owner_id"`
	Name           string     `json:"name"`
	Description    *string    `json:"description,omitempty"`
	Language       string     `json:"language"`
	Template       string     `json:"template"`
	MaxFiles       int        `json:"max_files"`
	MaxSizeKB      int64      `json:"max_size_kb"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

type Stats struct {
	TotalFiles        int            `json:"total_files"`
	TotalSizeKB       int64          `json:"total_size_kb"`
	LastActivity      time.Time      `json:"last_activity"`
	LanguageBreakdown map[string]int `json:"language_breakdown"`
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

const projectColumns = `id, owner_id, name, description, language, template, max_files, max_size_kb, created_at, updated_at, last_accessed_at`

func scanProject(row pgx.Row) (*Project, error) {
	var p Project
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.Language, &p.Template,
		&p.MaxFiles, &p.MaxSizeKB, &p.CreatedAt, &p.UpdatedAt, &p.LastAccessedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

type CreateInput struct {
	Name        string
	Description *string
	Language    string
	Template    string
}

// Create inserts a project with the owner's plan-derived limits stamped on.
func (r *Repo) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput, limits PlanLimits) (*Project, error) {
	if in.Name == "" {
		return nil, fmt.Errorf("name required")
	}
	if in.Language == "" {
		in.Language = "python"
	}
	if in.Template == "" {
		in.Template = "blank"
	}

	const q = `
insert into projects (id, owner_id, name, description, language, template, max_files, max_size_kb)
values ($1, $2, $3, $4, $5, $6, $7, $8)
returning ` + projectColumns + `;
`
	return scanProject(r.db.QueryRow(ctx, q,
		uuid.New(), ownerID, in.Name, in.Description, in.Language, in.Template,
		limits.MaxFiles, limits.MaxSizeKB,
	))
}

func (r *Repo) CountByOwner(ctx context.Context, ownerID uuid.UUID) (int, error) {
	const q = `select count(*) from projects where owner_id = $1;`
	var n int
	err := r.db.QueryRow(ctx, q, ownerID).Scan(&n)
	return n, err
}

// List returns one page of the owner's projects plus the total count.
func (r *Repo) List(ctx context.Context, ownerID uuid.UUID, page, pageSize int) ([]Project, int, error) {
	var total int
	if err := r.db.QueryRow(ctx,
		`select count(*) from projects where owner_id = $1;`, ownerID).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `
select ` + projectColumns + `
from projects
where owner_id = $1
order by updated_at desc
offset $2 limit $3;
`
	rows, err := r.db.Query(ctx, q, ownerID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]Project, 0, pageSize)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, rows.Err()
}

// Get returns a project owned by ownerID or ErrNotFound. The last-accessed
// timestamp is bumped as a side effect.
func (r *Repo) Get(ctx context.Context, ownerID, projectID uuid.UUID) (*Project, error) {
	const q = `
update projects
set last_accessed_at = now()
where id = $1 and owner_id = $2
returning ` + projectColumns + `;
`
	return scanProject(r.db.QueryRow(ctx, q, projectID, ownerID))
}

type UpdateInput struct {
	Name        *string
	Description *string
	Language    *string
}

func (r *Repo) Update(ctx context.Context, ownerID, projectID uuid.UUID, in UpdateInput) (*Project, error) {
	const q = `
update projects
set name = coalesce($3, name),
    description = coalesce($4, description),
    language = coalesce($5, language),
    updated_at = now()
where id = $1 and owner_id = $2
returning ` + projectColumns + `;
`
	return scanProject(r.db.QueryRow(ctx, q, projectID, ownerID, in.Name, in.Description, in.Language))
}

func (r *Repo) Delete(ctx context.Context, ownerID, projectID uuid.UUID) (bool, error) {
	const q = `delete from projects where id = $1 and owner_id = $2;`
	ct, err := r.db.Exec(ctx, q, projectID, ownerID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() > 0, nil
}

// Stats aggregates file statistics for the stats endpoint.
func (r *Repo) Stats(ctx context.Context, ownerID, projectID uuid.UUID) (*Stats, error) {
	p, err := r.Get(ctx, ownerID, projectID)
	if err != nil {
		return nil, err
	}

	s := &Stats{LanguageBreakdown: map[string]int{}, LastActivity: p.UpdatedAt}

	const totals = `
select count(*), coalesce(sum(size_bytes), 0)
from project_files
where project_id = $1 and type = 'file';
`
	var totalSize int64
	if err := r.db.QueryRow(ctx, totals, projectID).Scan(&s.TotalFiles, &totalSize); err != nil {
		return nil, err
	}
	s.TotalSizeKB = totalSize / 1024

	const byLang = `
select language, count(*)
from project_files
where project_id = $1 and type = 'file' and language is not null
group by language;
`
	rows, err := r.db.Query(ctx, byLang, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var lang string
		var n int
		if err := rows.Scan(&lang, &n); err != nil {
			return nil, err
		}
		s.LanguageBreakdown[lang] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const lastActivity = `
select max(updated_at) from project_files where project_id = $1;
`
	var last *time.Time
	if err := r.db.QueryRow(ctx, lastActivity, projectID).Scan(&last); err != nil {
		return nil, err
	}
	if last != nil {
		s.LastActivity = *last
	}

	return s, nil
}
