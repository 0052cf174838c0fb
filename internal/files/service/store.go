package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/devin-clone/core-backend/internal/files/domain"
)

// Store is the persistence boundary for the file tree. All methods are
// scoped to a single project.
type Store interface {
	// Files returns the project's files, optionally filtered by a
	// normalized path prefix, ordered by path.
	Files(ctx context.Context, projectID uuid.UUID, pathPrefix string) ([]domain.ProjectFile, error)

	// FileByID returns a single file or domain.ErrNotFound.
	FileByID(ctx context.Context, projectID, fileID uuid.UUID) (*domain.ProjectFile, error)

	// Usage computes the project's current aggregate consumption.
	Usage(ctx context.Context, projectID uuid.UUID) (domain.Usage, error)

	// InTx runs fn inside one transaction holding a lock on the project
	// row, so concurrent mutations on the same project serialize. Returns
	// domain.ErrNotFound when the project does not exist.
	InTx(ctx context.Context, projectID uuid.UUID, fn func(tx TxStore) error) error
}

// TxStore exposes the mutation surface available inside a project-locked
// transaction. Validation reads issued here observe the same snapshot the
// writes commit into.
type TxStore interface {
	Limits(ctx context.Context) (domain.ProjectLimits, error)
	FileByID(ctx context.Context, fileID uuid.UUID) (*domain.ProjectFile, error)
	PathExists(ctx context.Context, path string, excludeID uuid.UUID) (bool, error)
	CountFiles(ctx context.Context) (int64, error)
	SumFileSizes(ctx context.Context) (int64, error)
	Insert(ctx context.Context, f *domain.ProjectFile) error
	Update(ctx context.Context, f *domain.ProjectFile) error
	RewritePaths(ctx context.Context, oldPrefix, newPrefix string) error

	// DeleteSubtree removes the root row and, when dirPath is non-empty,
	// every row whose path nests under it. An empty dirPath deletes only
	// the root.
	DeleteSubtree(ctx context.Context, rootID uuid.UUID, dirPath string) (int64, error)
}
