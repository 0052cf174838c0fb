package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/devin-clone/core-backend/internal/projects"
	"github.com/devin-clone/core-backend/internal/users"
)

// Event is the provider webhook envelope.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type subscriptionObject struct {
	ID                 string `json:"id"`
	PriceID            string `json:"price_id"`
	Status             string `json:"status"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	CancelAt           *int64 `json:"cancel_at"`
	CanceledAt         *int64 `json:"canceled_at"`
	Metadata           struct {
		UserID string `json:"user_id"`
	} `json:"metadata"`
}

type invoiceObject struct {
	ID          string  `json:"id"`
	AmountCents int64   `json:"amount_cents"`
	Currency    string  `json:"currency"`
	Description *string `json:"description"`
	Metadata    struct {
		UserID string `json:"user_id"`
	} `json:"metadata"`
}

// Processor applies webhook events to the billing read model and flips the
// owning user's plan.
type Processor struct {
	repo  *Repo
	users *users.Repo
}

func NewProcessor(repo *Repo, userRepo *users.Repo) *Processor {
	return &Processor{repo: repo, users: userRepo}
}

// Process dispatches one verified event. Unknown event types are ignored so
// the provider does not retry them forever.
func (p *Processor) Process(ctx context.Context, ev Event) error {
	seen, err := p.repo.SeenEvent(ctx, ev.ID, ev.Type)
	if err != nil {
		return err
	}
	if seen {
		return nil
	}

	switch ev.Type {
	case "customer.subscription.created", "customer.subscription.updated":
		return p.applySubscription(ctx, ev.Data.Object)
	case "customer.subscription.deleted":
		return p.removeSubscription(ctx, ev.Data.Object)
	case "invoice.payment_succeeded":
		return p.recordPayment(ctx, ev.Data.Object, "succeeded")
	case "invoice.payment_failed":
		return p.recordPayment(ctx, ev.Data.Object, "failed")
	default:
		return nil
	}
}

func (p *Processor) applySubscription(ctx context.Context, raw json.RawMessage) error {
	var obj subscriptionObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("decode subscription object: %w", err)
	}
	userID, err := uuid.Parse(obj.Metadata.UserID)
	if err != nil {
		return fmt.Errorf("subscription %s: bad user_id metadata: %w", obj.ID, err)
	}

	if err := p.repo.UpsertSubscription(ctx, SubscriptionUpsert{
		UserID:             userID,
		ProviderSubID:      obj.ID,
		ProviderPriceID:    obj.PriceID,
		Status:             SubscriptionStatus(obj.Status),
		CurrentPeriodStart: time.Unix(obj.CurrentPeriodStart, 0).UTC(),
		CurrentPeriodEnd:   time.Unix(obj.CurrentPeriodEnd, 0).UTC(),
		CancelAt:           unixPtr(obj.CancelAt),
		CanceledAt:         unixPtr(obj.CanceledAt),
	}); err != nil {
		return err
	}

	plan := projects.PlanPro
	if obj.Status != string(StatusActive) && obj.Status != string(StatusTrialing) {
		plan = projects.PlanFree
	}
	return p.users.SetPlan(ctx, userID, string(plan))
}

func (p *Processor) removeSubscription(ctx context.Context, raw json.RawMessage) error {
	var obj subscriptionObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("decode subscription object: %w", err)
	}

	sub, err := p.repo.MarkSubscriptionCanceled(ctx, obj.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	}
	return p.users.SetPlan(ctx, sub.UserID, string(projects.PlanFree))
}

func (p *Processor) recordPayment(ctx context.Context, raw json.RawMessage, status string) error {
	var obj invoiceObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return fmt.Errorf("decode invoice object: %w", err)
	}
	userID, err := uuid.Parse(obj.Metadata.UserID)
	if err != nil {
		return fmt.Errorf("invoice %s: bad user_id metadata: %w", obj.ID, err)
	}

	currency := obj.Currency
	if currency == "" {
		currency = "usd"
	}
	var paidAt *time.Time
	if status == "succeeded" {
		now := time.Now().UTC()
		paidAt = &now
	}

	return p.repo.InsertPayment(ctx, PaymentInsert{
		UserID:            userID,
		ProviderPaymentID: obj.ID,
		AmountCents:       obj.AmountCents,
		Currency:          currency,
		Status:            status,
		Description:       obj.Description,
		PaidAt:            paidAt,
	})
}

func unixPtr(ts *int64) *time.Time {
	if ts == nil {
		return nil
	}
	t := time.Unix(*ts, 0).UTC()
	return &t
}
