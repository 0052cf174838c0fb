package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrAlreadyExists = errors.New("user already exists")
)

type User struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	Username       string     `json:"username"`
	HashedPassword *string    `json:"-"`
	FullName       *string    `json:"full_name,omitempty"`
	AvatarURL      *string    `json:"avatar_url,omitempty"`
	IsActive       bool       `json:"is_active"`
	IsVerified     bool       `json:"is_verified"`
	Role           string     `json:"role"`
	Plan           string     `json:"subscription_plan"`
	TokensUsed     int64      `json:"tokens_used"`
	TokensLimit    int64      `json:"tokens_limit"`
	TokensResetAt  *time.Time `json:"tokens_reset_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

const userColumns = `id, email, username, hashed_password, full_name, avatar_url, is_active, is_verified, role, subscription_plan, tokens_used, tokens_limit, tokens_reset_at, created_at, updated_at, last_login_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Email, &u.Username, &u.HashedPassword, &u.FullName, &u.AvatarURL,
		&u.IsActive, &u.IsVerified, &u.Role, &u.Plan,
		&u.TokensUsed, &u.TokensLimit, &u.TokensResetAt,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

type CreateInput struct {
	Email          string
	Username       string
	HashedPassword string
	FullName       *string
}

func (r *Repo) Create(ctx context.Context, in CreateInput) (*User, error) {
	const q = `
insert into users (id, email, username, hashed_password, full_name, tokens_reset_at)
values ($1, $2, $3, $4, $5, now() + interval '30 days')
returning ` + userColumns + `;
`
	u, err := scanUser(r.db.QueryRow(ctx, q, uuid.New(), in.Email, in.Username, in.HashedPassword, in.FullName))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}
	return u, nil
}

func (r *Repo) ByID(ctx context.Context, id uuid.UUID) (*User, error) {
	const q = `select ` + userColumns + ` from users where id = $1;`
	return scanUser(r.db.QueryRow(ctx, q, id))
}

func (r *Repo) ByEmail(ctx context.Context, email string) (*User, error) {
	const q = `select ` + userColumns + ` from users where email = $1;`
	return scanUser(r.db.QueryRow(ctx, q, email))
}

func (r *Repo) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	const q = `update users set last_login_at = now(), updated_at = now() where id = $1;`
	_, err := r.db.Exec(ctx, q, id)
	return err
}

func (r *Repo) SetPlan(ctx context.Context, id uuid.UUID, plan string) error {
	const q = `update users set subscription_plan = $2, updated_at = now() where id = $1;`
	_, err := r.db.Exec(ctx, q, id, plan)
	return err
}

func (r *Repo) AddTokenUsage(ctx context.Context, id uuid.UUID, used int64) error {
	const q = `update users set tokens_used = tokens_used + $2, updated_at = now() where id = $1;`
	_, err := r.db.Exec(ctx, q, id, used)
	return err
}

// ResetExpiredTokenUsage zeroes monthly token counters that have passed
// their reset time and schedules the next window. Run by the cron job.
func (r *Repo) ResetExpiredTokenUsage(ctx context.Context) (int64, error) {
	const q = `
update users
set tokens_used = 0,
    tokens_reset_at = now() + interval '30 days',
    updated_at = now()
where tokens_reset_at is not null and tokens_reset_at <= now();
`
	ct, err := r.db.Exec(ctx, q)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
