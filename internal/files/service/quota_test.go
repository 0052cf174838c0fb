package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devin-clone/core-backend/internal/files/domain"
)

func TestComputeUsage(t *testing.T) {
	store := newMemStore(defaultLimits())
	enforcer := NewEnforcer(store)
	tree := NewTree(store, enforcer)
	projID := uuid.New()

	mustCreate(t, tree, projID, CreateInput{Path: "/src", Type: domain.FileTypeDirectory})
	mustCreate(t, tree, projID, CreateInput{Path: "/src/a.py", Type: domain.FileTypeFile, Content: str("aaaa")})
	mustCreate(t, tree, projID, CreateInput{Path: "/src/b.py", Type: domain.FileTypeFile, Content: str("bb")})
	mustCreate(t, tree, projID, CreateInput{Path: "/index.js", Type: domain.FileTypeFile, Content: str("c")})

	usage, err := enforcer.ComputeUsage(context.Background(), projID)
	require.NoError(t, err)
	assert.Equal(t, 3, usage.TotalFiles)
	assert.Equal(t, 1, usage.TotalDirectories)
	assert.Equal(t, int64(7), usage.TotalSizeBytes)
	assert.Equal(t, 2, usage.Languages["python"])
	assert.Equal(t, 1, usage.Languages["javascript"])
}

func TestAuthorizeWithinLimits(t *testing.T) {
	store := newMemStore(domain.ProjectLimits{MaxFiles: 2, MaxSizeKB: 1})
	enforcer := NewEnforcer(store)

	err := enforcer.Authorize(context.Background(), uuid.New(), 1, 512)
	assert.NoError(t, err)
}

func TestAuthorizeFileLimit(t *testing.T) {
	store := newMemStore(domain.ProjectLimits{MaxFiles: 1, MaxSizeKB: 1024})
	enforcer := NewEnforcer(store)
	tree := NewTree(store, enforcer)
	projID := uuid.New()

	mustCreate(t, tree, projID, CreateInput{Path: "/only.py", Type: domain.FileTypeFile})

	err := enforcer.Authorize(context.Background(), projID, 1, 0)
	var qe *domain.QuotaError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, domain.QuotaFiles, qe.Dimension)
	assert.Equal(t, int64(1), qe.Current)
	assert.Equal(t, int64(1), qe.Limit)
}

func TestAuthorizeSizeLimit(t *testing.T) {
	store := newMemStore(domain.ProjectLimits{MaxFiles: 10, MaxSizeKB: 1})
	enforcer := NewEnforcer(store)

	err := enforcer.Authorize(context.Background(), uuid.New(), 0, 2048)
	var qe *domain.QuotaError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, domain.QuotaSize, qe.Dimension)
	assert.Equal(t, int64(1024), qe.Limit)
}

func TestAuthorizeDeletionsAlwaysPass(t *testing.T) {
	store := newMemStore(domain.ProjectLimits{MaxFiles: 0, MaxSizeKB: 0})
	enforcer := NewEnforcer(store)

	// Negative deltas free capacity and never violate a limit.
	err := enforcer.Authorize(context.Background(), uuid.New(), -1, -100)
	assert.NoError(t, err)
}
