package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/devin-clone/core-backend/internal/files/domain"
)

// Enforcer computes project usage and authorizes mutations against the
// limits stamped onto the project. Usage is always recomputed from the
// store, never cached across operations.
type Enforcer struct {
	store Store
}

func NewEnforcer(store Store) *Enforcer {
	return &Enforcer{store: store}
}

// ComputeUsage returns the project's current aggregate consumption.
func (e *Enforcer) ComputeUsage(ctx context.Context, projectID uuid.UUID) (domain.Usage, error) {
	return e.store.Usage(ctx, projectID)
}

// Authorize checks whether a mutation adding deltaFiles files and
// deltaBytes bytes would fit within the project's limits. Violations are
// reported as *domain.QuotaError naming the exceeded dimension.
func (e *Enforcer) Authorize(ctx context.Context, projectID uuid.UUID, deltaFiles, deltaBytes int64) error {
	return e.store.InTx(ctx, projectID, func(tx TxStore) error {
		return e.authorizeTx(ctx, tx, deltaFiles, deltaBytes)
	})
}

// authorizeTx re-validates the quota inside the transaction that commits
// the mutation, so the check and the write observe the same state.
func (e *Enforcer) authorizeTx(ctx context.Context, tx TxStore, deltaFiles, deltaBytes int64) error {
	limits, err := tx.Limits(ctx)
	if err != nil {
		return err
	}

	if deltaFiles > 0 {
		count, err := tx.CountFiles(ctx)
		if err != nil {
			return err
		}
		if count+deltaFiles > int64(limits.MaxFiles) {
			return &domain.QuotaError{
				Dimension: domain.QuotaFiles,
				Current:   count,
				Limit:     int64(limits.MaxFiles),
			}
		}
	}

	if deltaBytes > 0 {
		size, err := tx.SumFileSizes(ctx)
		if err != nil {
			return err
		}
		if size+deltaBytes > limits.MaxSizeKB*1024 {
			return &domain.QuotaError{
				Dimension: domain.QuotaSize,
				Current:   size + deltaBytes,
				Limit:     limits.MaxSizeKB * 1024,
			}
		}
	}

	return nil
}
