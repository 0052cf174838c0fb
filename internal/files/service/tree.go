package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/devin-clone/core-backend/internal/files/domain"
	"github.com/devin-clone/core-backend/internal/files/pathutil"
)

// Tree maintains the file forest of a project and enforces its invariants:
// path uniqueness, parent/cycle consistency, and quota limits. Every
// mutation is applied atomically under the project lock.
type Tree struct {
	store Store
	quota *Enforcer
}

func NewTree(store Store, quota *Enforcer) *Tree {
	return &Tree{store: store, quota: quota}
}

// List returns the project's files, optionally filtered by a path prefix.
func (t *Tree) List(ctx context.Context, projectID uuid.UUID, pathPrefix string) ([]domain.ProjectFile, error) {
	if pathPrefix != "" {
		norm, err := pathutil.Normalize(pathPrefix)
		if err != nil {
			return nil, err
		}
		pathPrefix = norm
	}
	return t.store.Files(ctx, projectID, pathPrefix)
}

// GetTree assembles the nested tree in a single pass over the flat listing:
// one index from parent id to children, then recursive ordering.
func (t *Tree) GetTree(ctx context.Context, projectID uuid.UUID) ([]*domain.TreeNode, error) {
	files, err := t.store.Files(ctx, projectID, "")
	if err != nil {
		return nil, err
	}

	nodes := make(map[uuid.UUID]*domain.TreeNode, len(files))
	for i := range files {
		nodes[files[i].ID] = &domain.TreeNode{ProjectFile: files[i], Children: []*domain.TreeNode{}}
	}

	var roots []*domain.TreeNode
	for _, n := range nodes {
		if n.ParentID == nil {
			roots = append(roots, n)
			continue
		}
		parent, ok := nodes[*n.ParentID]
		if !ok {
			// Orphaned parent reference; surface at the root rather
			// than dropping the node.
			roots = append(roots, n)
			continue
		}
		parent.Children = append(parent.Children, n)
	}

	var order func(ns []*domain.TreeNode)
	order = func(ns []*domain.TreeNode) {
		sort.Slice(ns, func(i, j int) bool {
			di, dj := ns[i].IsDirectory(), ns[j].IsDirectory()
			if di != dj {
				return di
			}
			return strings.ToLower(ns[i].Name) < strings.ToLower(ns[j].Name)
		})
		for _, n := range ns {
			order(n.Children)
		}
	}
	order(roots)

	return roots, nil
}

// Get returns a single file or domain.ErrNotFound.
func (t *Tree) Get(ctx context.Context, projectID, fileID uuid.UUID) (*domain.ProjectFile, error) {
	return t.store.FileByID(ctx, projectID, fileID)
}

type CreateInput struct {
	Name     string
	Path     string
	Type     domain.FileType
	Content  *string
	ParentID *uuid.UUID
}

// Create validates and persists a new file or directory. Path conflicts,
// invalid parents, and quota violations are all checked inside the same
// transaction that inserts the row.
func (t *Tree) Create(ctx context.Context, projectID uuid.UUID, in CreateInput) (*domain.ProjectFile, error) {
	normPath, err := pathutil.Normalize(in.Path)
	if err != nil {
		return nil, err
	}
	if in.Type != domain.FileTypeFile && in.Type != domain.FileTypeDirectory {
		return nil, fmt.Errorf("unknown file type %q", in.Type)
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = pathutil.Base(normPath)
	}

	f := &domain.ProjectFile{
		ID:        uuid.New(),
		ProjectID: projectID,
		ParentID:  in.ParentID,
		Name:      name,
		Path:      normPath,
		Type:      in.Type,
		Encoding:  "utf-8",
	}
	if in.Type == domain.FileTypeFile {
		f.Language = pathutil.Language(name)
		f.MimeType = pathutil.MimeType(name)
		if in.Content != nil {
			f.Content = in.Content
			f.SizeBytes = int64(len(*in.Content))
		}
	}

	err = t.store.InTx(ctx, projectID, func(tx TxStore) error {
		if in.ParentID != nil {
			parent, err := tx.FileByID(ctx, *in.ParentID)
			if err != nil {
				if err == domain.ErrNotFound {
					return domain.ErrInvalidParent
				}
				return err
			}
			if !parent.IsDirectory() {
				return domain.ErrInvalidParent
			}
		}

		exists, err := tx.PathExists(ctx, normPath, uuid.Nil)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrPathConflict
		}

		deltaFiles := int64(0)
		if in.Type == domain.FileTypeFile {
			deltaFiles = 1
		}
		if err := t.quota.authorizeTx(ctx, tx, deltaFiles, f.SizeBytes); err != nil {
			return err
		}

		return tx.Insert(ctx, f)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

type UpdateInput struct {
	Name     *string
	Content  *string
	Language *string
}

// Update mutates a file's content and metadata in place. Content changes
// recompute the size and are re-checked against the size quota; a rename
// rewrites the path's final segment and, for directories, every descendant
// path.
func (t *Tree) Update(ctx context.Context, projectID, fileID uuid.UUID, in UpdateInput) (*domain.ProjectFile, error) {
	var out *domain.ProjectFile

	err := t.store.InTx(ctx, projectID, func(tx TxStore) error {
		f, err := tx.FileByID(ctx, fileID)
		if err != nil {
			return err
		}

		if in.Content != nil {
			if f.IsDirectory() {
				return domain.ErrNotAFile
			}
			newSize := int64(len(*in.Content))
			if err := t.quota.authorizeTx(ctx, tx, 0, newSize-f.SizeBytes); err != nil {
				return err
			}
			f.Content = in.Content
			f.SizeBytes = newSize
		}

		if in.Language != nil {
			f.Language = in.Language
		}

		if in.Name != nil && *in.Name != f.Name {
			name := strings.TrimSpace(*in.Name)
			if name == "" || strings.Contains(name, "/") {
				return domain.ErrInvalidPath
			}
			newPath, err := pathutil.Join(pathutil.Dir(f.Path), name)
			if err != nil {
				return err
			}

			exists, err := tx.PathExists(ctx, newPath, f.ID)
			if err != nil {
				return err
			}
			if exists {
				return domain.ErrPathConflict
			}

			oldPath := f.Path
			f.Name = name
			f.Path = newPath
			if f.IsDirectory() {
				if err := tx.RewritePaths(ctx, oldPath+"/", newPath+"/"); err != nil {
					return err
				}
			} else {
				f.Language = pathutil.Language(name)
				f.MimeType = pathutil.MimeType(name)
			}
		}

		if err := tx.Update(ctx, f); err != nil {
			return err
		}
		out = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type MoveInput struct {
	NewPath  string
	ParentID *uuid.UUID
}

// Move changes a file's path and parent. The destination must be free, the
// new parent must be a directory, and a directory may not move under its
// own subtree. Descendant paths are rewritten in the same transaction.
func (t *Tree) Move(ctx context.Context, projectID, fileID uuid.UUID, in MoveInput) (*domain.ProjectFile, error) {
	newPath, err := pathutil.Normalize(in.NewPath)
	if err != nil {
		return nil, err
	}

	var out *domain.ProjectFile

	err = t.store.InTx(ctx, projectID, func(tx TxStore) error {
		f, err := tx.FileByID(ctx, fileID)
		if err != nil {
			return err
		}
		if newPath == f.Path && equalParent(in.ParentID, f.ParentID) {
			out = f
			return nil
		}

		if f.IsDirectory() {
			if newPath == f.Path || strings.HasPrefix(newPath+"/", f.Path+"/") {
				return domain.ErrCycleDetected
			}
		}

		if in.ParentID != nil {
			if *in.ParentID == f.ID {
				return domain.ErrCycleDetected
			}
			parent, err := tx.FileByID(ctx, *in.ParentID)
			if err != nil {
				if err == domain.ErrNotFound {
					return domain.ErrInvalidParent
				}
				return err
			}
			if !parent.IsDirectory() {
				return domain.ErrInvalidParent
			}
			if f.IsDirectory() && strings.HasPrefix(parent.Path+"/", f.Path+"/") {
				return domain.ErrCycleDetected
			}
		}

		exists, err := tx.PathExists(ctx, newPath, f.ID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrPathConflict
		}

		oldPath := f.Path
		f.Path = newPath
		f.Name = pathutil.Base(newPath)
		f.ParentID = in.ParentID
		if !f.IsDirectory() {
			f.Language = pathutil.Language(f.Name)
			f.MimeType = pathutil.MimeType(f.Name)
		}

		if f.IsDirectory() {
			if err := tx.RewritePaths(ctx, oldPath+"/", newPath+"/"); err != nil {
				return err
			}
		}

		if err := tx.Update(ctx, f); err != nil {
			return err
		}
		out = f
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a file, cascading over all descendants for directories.
// Plain files delete only themselves, even when other entries nest under
// their path. The whole subtree goes in one transaction; the removed row
// count is returned for caller bookkeeping.
func (t *Tree) Delete(ctx context.Context, projectID, fileID uuid.UUID) (int64, error) {
	var removed int64

	err := t.store.InTx(ctx, projectID, func(tx TxStore) error {
		f, err := tx.FileByID(ctx, fileID)
		if err != nil {
			return err
		}

		dirPath := ""
		if f.IsDirectory() {
			dirPath = f.Path
		}
		n, err := tx.DeleteSubtree(ctx, f.ID, dirPath)
		if err != nil {
			return err
		}
		removed = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

func equalParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
