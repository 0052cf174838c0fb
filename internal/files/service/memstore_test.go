package service

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/devin-clone/core-backend/internal/files/domain"
)

// memStore is an in-memory Store used by the service tests. InTx runs the
// callback directly against the same map, which mirrors the read-your-own-
// writes behavior of the real transaction.
type memStore struct {
	limits domain.ProjectLimits
	files  map[uuid.UUID]*domain.ProjectFile
}

func newMemStore(limits domain.ProjectLimits) *memStore {
	return &memStore{limits: limits, files: make(map[uuid.UUID]*domain.ProjectFile)}
}

func (s *memStore) Files(_ context.Context, projectID uuid.UUID, pathPrefix string) ([]domain.ProjectFile, error) {
	var out []domain.ProjectFile
	for _, f := range s.files {
		if f.ProjectID != projectID {
			continue
		}
		if pathPrefix != "" && !strings.HasPrefix(f.Path, pathPrefix) {
			continue
		}
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *memStore) FileByID(_ context.Context, projectID, fileID uuid.UUID) (*domain.ProjectFile, error) {
	f, ok := s.files[fileID]
	if !ok || f.ProjectID != projectID {
		return nil, domain.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *memStore) Usage(_ context.Context, _ uuid.UUID) (domain.Usage, error) {
	u := domain.Usage{Languages: make(map[string]int)}
	for _, f := range s.files {
		if f.IsDirectory() {
			u.TotalDirectories++
			continue
		}
		u.TotalFiles++
		u.TotalSizeBytes += f.SizeBytes
		if f.Language != nil {
			u.Languages[*f.Language]++
		}
	}
	return u, nil
}

func (s *memStore) InTx(_ context.Context, _ uuid.UUID, fn func(tx TxStore) error) error {
	return fn(&memTx{s})
}

type memTx struct {
	s *memStore
}

func (t *memTx) Limits(context.Context) (domain.ProjectLimits, error) {
	return t.s.limits, nil
}

func (t *memTx) FileByID(_ context.Context, fileID uuid.UUID) (*domain.ProjectFile, error) {
	f, ok := t.s.files[fileID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (t *memTx) PathExists(_ context.Context, path string, excludeID uuid.UUID) (bool, error) {
	for _, f := range t.s.files {
		if f.Path == path && f.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) CountFiles(context.Context) (int64, error) {
	var n int64
	for _, f := range t.s.files {
		if !f.IsDirectory() {
			n++
		}
	}
	return n, nil
}

func (t *memTx) SumFileSizes(context.Context) (int64, error) {
	var sum int64
	for _, f := range t.s.files {
		if !f.IsDirectory() {
			sum += f.SizeBytes
		}
	}
	return sum, nil
}

func (t *memTx) Insert(_ context.Context, f *domain.ProjectFile) error {
	cp := *f
	t.s.files[f.ID] = &cp
	return nil
}

func (t *memTx) Update(_ context.Context, f *domain.ProjectFile) error {
	if _, ok := t.s.files[f.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *f
	t.s.files[f.ID] = &cp
	return nil
}

func (t *memTx) RewritePaths(_ context.Context, oldPrefix, newPrefix string) error {
	for _, f := range t.s.files {
		if strings.HasPrefix(f.Path, oldPrefix) {
			f.Path = newPrefix + strings.TrimPrefix(f.Path, oldPrefix)
		}
	}
	return nil
}

func (t *memTx) DeleteSubtree(_ context.Context, rootID uuid.UUID, dirPath string) (int64, error) {
	var removed int64
	for id, f := range t.s.files {
		if id == rootID || (dirPath != "" && strings.HasPrefix(f.Path, dirPath+"/")) {
			delete(t.s.files, id)
			removed++
		}
	}
	return removed, nil
}
