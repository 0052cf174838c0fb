package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("file not found")
	ErrPathConflict  = errors.New("a file already exists at this path")
	ErrInvalidParent = errors.New("parent must be an existing directory in the same project")
	ErrCycleDetected = errors.New("cannot move a directory inside its own subtree")
	ErrInvalidPath   = errors.New("invalid file path")
	ErrNotAFile      = errors.New("directories cannot carry content")

	// ErrQuotaExceeded is the base sentinel; concrete violations are
	// reported as *QuotaError, which matches it via errors.Is.
	ErrQuotaExceeded = errors.New("project quota exceeded")
)

// QuotaDimension names which limit a mutation would violate.
type QuotaDimension string

const (
	QuotaFiles QuotaDimension = "files"
	QuotaSize  QuotaDimension = "size"
)

// QuotaError reports the violated dimension with current and limit values so
// callers can render an actionable message.
type QuotaError struct {
	Dimension QuotaDimension
	Current   int64
	Limit     int64
}

func (e *QuotaError) Error() string {
	switch e.Dimension {
	case QuotaFiles:
		return fmt.Sprintf("project file limit reached (%d/%d files)", e.Current, e.Limit)
	default:
		return fmt.Sprintf("project size limit exceeded (%d/%d bytes)", e.Current, e.Limit)
	}
}

func (e *QuotaError) Is(target error) bool {
	return target == ErrQuotaExceeded
}
