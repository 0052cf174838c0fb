package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/devin-clone/core-backend/internal/files/domain"
	"github.com/devin-clone/core-backend/internal/files/service"
)

// Repo persists the project file tree in Postgres. The project_files table
// carries a unique constraint on (project_id, path) as a backstop for the
// in-transaction conflict checks.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

const fileColumns = `id, project_id, parent_id, name, path, type, content, language, encoding, size_bytes, is_binary, mime_type, created_at, updated_at`

func scanFile(row pgx.Row) (*domain.ProjectFile, error) {
	var f domain.ProjectFile
	err := row.Scan(
		&f.ID, &f.ProjectID, &f.ParentID, &f.Name, &f.Path, &f.Type,
		&f.Content, &f.Language, &f.Encoding, &f.SizeBytes, &f.IsBinary,
		&f.MimeType, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

func (r *Repo) Files(ctx context.Context, projectID uuid.UUID, pathPrefix string) ([]domain.ProjectFile, error) {
	q := `
select ` + fileColumns + `
from project_files
where project_id = $1
order by path;
`
	args := []any{projectID}
	if pathPrefix != "" {
		q = `
select ` + fileColumns + `
from project_files
where project_id = $1 and left(path, char_length($2::text)) = $2
order by path;
`
		args = append(args, pathPrefix)
	}

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.ProjectFile, 0, 32)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *f)
	}
	return out, rows.Err()
}

func (r *Repo) FileByID(ctx context.Context, projectID, fileID uuid.UUID) (*domain.ProjectFile, error) {
	const q = `
select ` + fileColumns + `
from project_files
where project_id = $1 and id = $2;
`
	return scanFile(r.db.QueryRow(ctx, q, projectID, fileID))
}

func (r *Repo) Usage(ctx context.Context, projectID uuid.UUID) (domain.Usage, error) {
	var u domain.Usage

	const totals = `
select
  count(*) filter (where type = 'file'),
  count(*) filter (where type = 'directory'),
  coalesce(sum(size_bytes) filter (where type = 'file'), 0)
from project_files
where project_id = $1;
`
	if err := r.db.QueryRow(ctx, totals, projectID).
		Scan(&u.TotalFiles, &u.TotalDirectories, &u.TotalSizeBytes); err != nil {
		return u, err
	}

	const byLang = `
select language, count(*)
from project_files
where project_id = $1 and type = 'file' and language is not null
group by language;
`
	rows, err := r.db.Query(ctx, byLang, projectID)
	if err != nil {
		return u, err
	}
	defer rows.Close()

	u.Languages = map[string]int{}
	for rows.Next() {
		var lang string
		var n int
		if err := rows.Scan(&lang, &n); err != nil {
			return u, err
		}
		u.Languages[lang] = n
	}
	return u, rows.Err()
}

// InTx locks the project row for the duration of fn, so concurrent
// mutations on the same project serialize and invariant checks observe the
// state the write will commit into.
func (r *Repo) InTx(ctx context.Context, projectID uuid.UUID, fn func(tx service.TxStore) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var limits domain.ProjectLimits
	err = tx.QueryRow(ctx, `
select max_files, max_size_kb
from projects
where id = $1
for update
`, projectID).Scan(&limits.MaxFiles, &limits.MaxSizeKB)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("lock project: %w", err)
	}

	if err := fn(&txStore{tx: tx, projectID: projectID, limits: limits}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txStore struct {
	tx        pgx.Tx
	projectID uuid.UUID
	limits    domain.ProjectLimits
}

func (s *txStore) Limits(ctx context.Context) (domain.ProjectLimits, error) {
	return s.limits, nil
}

func (s *txStore) FileByID(ctx context.Context, fileID uuid.UUID) (*domain.ProjectFile, error) {
	const q = `
select ` + fileColumns + `
from project_files
where project_id = $1 and id = $2;
`
	return scanFile(s.tx.QueryRow(ctx, q, s.projectID, fileID))
}

func (s *txStore) PathExists(ctx context.Context, path string, excludeID uuid.UUID) (bool, error) {
	const q = `
select exists (
  select 1 from project_files
  where project_id = $1 and path = $2 and id <> $3
);
`
	var exists bool
	err := s.tx.QueryRow(ctx, q, s.projectID, path, excludeID).Scan(&exists)
	return exists, err
}

func (s *txStore) CountFiles(ctx context.Context) (int64, error) {
	const q = `select count(*) from project_files where project_id = $1 and type = 'file';`
	var n int64
	err := s.tx.QueryRow(ctx, q, s.projectID).Scan(&n)
	return n, err
}

func (s *txStore) SumFileSizes(ctx context.Context) (int64, error) {
	const q = `
select coalesce(sum(size_bytes), 0)
from project_files
where project_id = $1 and type = 'file';
`
	var n int64
	err := s.tx.QueryRow(ctx, q, s.projectID).Scan(&n)
	return n, err
}

func (s *txStore) Insert(ctx context.Context, f *domain.ProjectFile) error {
	const q = `
insert into project_files
  (id, project_id, parent_id, name, path, type, content, language, encoding, size_bytes, is_binary, mime_type)
values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
returning created_at, updated_at;
`
	err := s.tx.QueryRow(ctx, q,
		f.ID, f.ProjectID, f.ParentID, f.Name, f.Path, f.Type,
		f.Content, f.Language, f.Encoding, f.SizeBytes, f.IsBinary, f.MimeType,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		// unique violation on (project_id, path) → conflict raced past
		// the existence check (should not happen under the project lock)
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrPathConflict
		}
		return err
	}
	return nil
}

func (s *txStore) Update(ctx context.Context, f *domain.ProjectFile) error {
	const q = `
update project_files
set parent_id = $3, name = $4, path = $5, content = $6, language = $7,
    size_bytes = $8, updated_at = now()
where project_id = $1 and id = $2
returning updated_at;
`
	err := s.tx.QueryRow(ctx, q,
		s.projectID, f.ID, f.ParentID, f.Name, f.Path, f.Content, f.Language, f.SizeBytes,
	).Scan(&f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrPathConflict
		}
		return err
	}
	return nil
}

func (s *txStore) RewritePaths(ctx context.Context, oldPrefix, newPrefix string) error {
	const q = `
update project_files
set path = $3 || substring(path from char_length($2::text) + 1), updated_at = now()
where project_id = $1 and left(path, char_length($2::text)) = $2;
`
	_, err := s.tx.Exec(ctx, q, s.projectID, oldPrefix, newPrefix)
	return err
}

func (s *txStore) DeleteSubtree(ctx context.Context, rootID uuid.UUID, dirPath string) (int64, error) {
	if dirPath == "" {
		ct, err := s.tx.Exec(ctx,
			`delete from project_files where project_id = $1 and id = $2;`,
			s.projectID, rootID,
		)
		if err != nil {
			return 0, err
		}
		return ct.RowsAffected(), nil
	}

	prefix := dirPath + "/"
	const q = `
delete from project_files
where project_id = $1
  and (id = $2 or left(path, char_length($3::text)) = $3);
`
	ct, err := s.tx.Exec(ctx, q, s.projectID, rootID, prefix)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
