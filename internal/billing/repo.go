package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("billing: not found")

type SubscriptionStatus string

const (
	StatusActive   SubscriptionStatus = "active"
	StatusPastDue  SubscriptionStatus = "past_due"
	StatusCanceled SubscriptionStatus = "canceled"
	StatusUnpaid   SubscriptionStatus = "unpaid"
	StatusTrialing SubscriptionStatus = "trialing"
)

type Subscription struct {
	ID                 uuid.UUID          `json:"id"`
	UserID             uuid.UUID          `json:"user_id"`
	ProviderSubID      string             `json:"provider_subscription_id"`
	ProviderPriceID    string             `json:"provider_price_id"`
	Status             SubscriptionStatus `json:"status"`
	CurrentPeriodStart time.Time          `json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `json:"current_period_end"`
	CancelAt           *time.Time         `json:"cancel_at,omitempty"`
	CanceledAt         *time.Time         `json:"canceled_at,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

type Payment struct {
	ID                uuid.UUID  `json:"id"`
	UserID            uuid.UUID  `json:"user_id"`
	ProviderPaymentID string     `json:"provider_payment_id"`
	AmountCents       int64      `json:"amount_cents"`
	Currency          string     `json:"currency"`
	Status            string     `json:"status"`
	Description       *string    `json:"description,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`
}

// Repo is the billing read model. Subscriptions and payments are written
// only by the webhook processor; the API surface only reads them.
type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{db: db}
}

const subscriptionColumns = `id, user_id, provider_subscription_id, provider_price_id, status, current_period_start, current_period_end, cancel_at, canceled_at, created_at, updated_at`

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var s Subscription
	err := row.Scan(
		&s.ID, &s.UserID, &s.ProviderSubID, &s.ProviderPriceID, &s.Status,
		&s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.CancelAt, &s.CanceledAt,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan subscription: %w", err)
	}
	return &s, nil
}

func (r *Repo) SubscriptionByUser(ctx context.Context, userID uuid.UUID) (*Subscription, error) {
	row := r.db.QueryRow(ctx,
		`select `+subscriptionColumns+` from subscriptions where user_id = $1`,
		userID,
	)
	return scanSubscription(row)
}

type SubscriptionUpsert struct {
	UserID             uuid.UUID
	ProviderSubID      string
	ProviderPriceID    string
	Status             SubscriptionStatus
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAt           *time.Time
	CanceledAt         *time.Time
}

// UpsertSubscription keys on the provider's subscription id so created and
// updated events can share one write path.
func (r *Repo) UpsertSubscription(ctx context.Context, in SubscriptionUpsert) error {
	_, err := r.db.Exec(ctx, `
		insert into subscriptions (
			id, user_id, provider_subscription_id, provider_price_id, status,
			current_period_start, current_period_end, cancel_at, canceled_at,
			created_at, updated_at
		) values ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		on conflict (provider_subscription_id) do update set
			status = excluded.status,
			provider_price_id = excluded.provider_price_id,
			current_period_start = excluded.current_period_start,
			current_period_end = excluded.current_period_end,
			cancel_at = excluded.cancel_at,
			canceled_at = excluded.canceled_at,
			updated_at = now()`,
		uuid.New(), in.UserID, in.ProviderSubID, in.ProviderPriceID, in.Status,
		in.CurrentPeriodStart, in.CurrentPeriodEnd, in.CancelAt, in.CanceledAt,
	)
	if err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

func (r *Repo) MarkSubscriptionCanceled(ctx context.Context, providerSubID string) (*Subscription, error) {
	row := r.db.QueryRow(ctx, `
		update subscriptions
		set status = 'canceled', canceled_at = now(), updated_at = now()
		where provider_subscription_id = $1
		returning `+subscriptionColumns,
		providerSubID,
	)
	return scanSubscription(row)
}

type PaymentInsert struct {
	UserID            uuid.UUID
	ProviderPaymentID string
	AmountCents       int64
	Currency          string
	Status            string
	Description       *string
	PaidAt            *time.Time
}

func (r *Repo) InsertPayment(ctx context.Context, in PaymentInsert) error {
	_, err := r.db.Exec(ctx, `
		insert into payments (id, user_id, provider_payment_id, amount_cents, currency, status, description, created_at, paid_at)
		values ($1, $2, $3, $4, $5, $6, $7, now(), $8)
		on conflict (provider_payment_id) do update set
			status = excluded.status,
			paid_at = excluded.paid_at`,
		uuid.New(), in.UserID, in.ProviderPaymentID, in.AmountCents,
		in.Currency, in.Status, in.Description, in.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (r *Repo) Payments(ctx context.Context, userID uuid.UUID, page, pageSize int) ([]*Payment, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	var total int
	if err := r.db.QueryRow(ctx,
		`select count(*) from payments where user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}

	rows, err := r.db.Query(ctx, `
		select id, user_id, provider_payment_id, amount_cents, currency, status, description, created_at, paid_at
		from payments
		where user_id = $1
		order by created_at desc
		limit $2 offset $3`,
		userID, pageSize, (page-1)*pageSize,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var out []*Payment
	for rows.Next() {
		var p Payment
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.ProviderPaymentID, &p.AmountCents,
			&p.Currency, &p.Status, &p.Description, &p.CreatedAt, &p.PaidAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, &p)
	}
	return out, total, rows.Err()
}

// SeenEvent records the event id and reports whether it was already
// processed. The unique index on provider_event_id makes redelivered
// webhooks no-ops.
func (r *Repo) SeenEvent(ctx context.Context, eventID, eventType string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		insert into webhook_events (id, provider_event_id, event_type, created_at)
		values ($1, $2, $3, now())
		on conflict (provider_event_id) do nothing`,
		uuid.New(), eventID, eventType,
	)
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}
	return tag.RowsAffected() == 0, nil
}
