package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"cabinet/internal/domain"
	"cabinet/internal/domain/models"
	"cabinet/internal/domain/repositories"
)

// FolderRepository implements repositories.FolderRepository over the store
type FolderRepository struct {
	store *Store
}

// NewFolderRepository creates a folder repository over the store
func NewFolderRepository(store *Store) repositories.FolderRepository {
	return &FolderRepository{store: store}
}

// Create inserts a new folder row
func (r *FolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if folder.ParentID != nil {
		if _, ok := r.store.folders[*folder.ParentID]; !ok {
			return fmt.Errorf("parent folder: %w", domain.ErrNotFound)
		}
	}

	// Mirror the partial unique indexes: live siblings may not share a name
	for _, existing := range r.store.folders {
		if existing.OwnerID == folder.OwnerID && !existing.IsDeleted() &&
			sameParent(existing.ParentID, folder.ParentID) && existing.Name == folder.Name {
			return fmt.Errorf("folder '%s': %w", folder.Name, domain.ErrConflict)
		}
	}

	r.store.folders[folder.ID] = copyFolder(folder)
	return nil
}

// GetByID retrieves a folder by ID, deleted or not
func (r *FolderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Folder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	folder, ok := r.store.folders[id]
	if !ok {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	return copyFolder(folder), nil
}

// Update persists name, parent, path and updated_at. Trash markers are
// deliberately left alone; soft delete and restore own those columns.
func (r *FolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.folders[folder.ID]
	if !ok {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}

	if !stored.IsDeleted() {
		for _, existing := range r.store.folders {
			if existing.ID != folder.ID && existing.OwnerID == stored.OwnerID && !existing.IsDeleted() &&
				sameParent(existing.ParentID, folder.ParentID) && existing.Name == folder.Name {
				return fmt.Errorf("folder '%s': %w", folder.Name, domain.ErrConflict)
			}
		}
	}

	stored.Name = folder.Name
	stored.Path = folder.Path
	stored.UpdatedAt = folder.UpdatedAt
	if folder.ParentID != nil {
		parentID := *folder.ParentID
		stored.ParentID = &parentID
	} else {
		stored.ParentID = nil
	}
	return nil
}

// ListChildren lists live immediate child folders, name-ordered
func (r *FolderRepository) ListChildren(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]models.Folder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var folders []models.Folder
	for _, folder := range r.store.folders {
		if folder.OwnerID == ownerID && !folder.IsDeleted() && sameParent(folder.ParentID, parentID) {
			folders = append(folders, *copyFolder(folder))
		}
	}

	sort.Slice(folders, func(i, j int) bool { return folders[i].Name < folders[j].Name })
	return folders, nil
}

// FindChildByName finds a live child with the exact name under parentID
func (r *FolderRepository) FindChildByName(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, name string) (*models.Folder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, folder := range r.store.folders {
		if folder.OwnerID == ownerID && !folder.IsDeleted() &&
			sameParent(folder.ParentID, parentID) && folder.Name == name {
			return copyFolder(folder), nil
		}
	}

	return nil, nil
}

// ListByOwner retrieves all folders of an owner as a flat list
func (r *FolderRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, includeDeleted bool) ([]models.Folder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var folders []models.Folder
	for _, folder := range r.store.folders {
		if folder.OwnerID != ownerID {
			continue
		}
		if !includeDeleted && folder.IsDeleted() {
			continue
		}
		folders = append(folders, *copyFolder(folder))
	}

	sort.Slice(folders, func(i, j int) bool { return folders[i].Path < folders[j].Path })
	return folders, nil
}

// LockForUpdate is a no-op: the transaction manager already serializes
// memory mutations
func (r *FolderRepository) LockForUpdate(ctx context.Context, ids []uuid.UUID) error {
	return nil
}

// RecomputePaths rewrites the materialized path of rootID and every live
// folder below it from the closure index
func (r *FolderRepository) RecomputePaths(ctx context.Context, rootID uuid.UUID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now()
	for key := range r.store.closure {
		if key.ancestor != rootID {
			continue
		}
		folder, ok := r.store.folders[key.descendant]
		if !ok || folder.IsDeleted() {
			continue
		}
		folder.Path = r.store.pathOf(key.descendant)
		folder.UpdatedAt = now
	}

	return nil
}

// SoftDeleteByIDs flags the still-live rows among ids with the batch marker
func (r *FolderRepository) SoftDeleteByIDs(ctx context.Context, ids []uuid.UUID, batchID uuid.UUID, at time.Time) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	count := 0
	for _, id := range ids {
		folder, ok := r.store.folders[id]
		if !ok || folder.IsDeleted() {
			continue
		}
		ts := at
		batch := batchID
		folder.DeletedAt = &ts
		folder.DeleteBatchID = &batch
		folder.UpdatedAt = at
		count++
	}

	return count, nil
}

// ListByBatch retrieves the folders flagged with one deletion batch,
// parents before children
func (r *FolderRepository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Folder, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var folders []models.Folder
	for _, folder := range r.store.folders {
		if folder.DeleteBatchID != nil && *folder.DeleteBatchID == batchID {
			folders = append(folders, *copyFolder(folder))
		}
	}

	sort.Slice(folders, func(i, j int) bool { return folders[i].Path < folders[j].Path })
	return folders, nil
}

// RestoreBatch clears the deleted flag and batch marker for the batch
func (r *FolderRepository) RestoreBatch(ctx context.Context, batchID uuid.UUID) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	count := 0
	now := time.Now()
	for _, folder := range r.store.folders {
		if folder.DeleteBatchID != nil && *folder.DeleteBatchID == batchID {
			folder.DeletedAt = nil
			folder.DeleteBatchID = nil
			folder.UpdatedAt = now
			count++
		}
	}

	return count, nil
}

// sameParent compares two optional parent ids
func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// pathOf rebuilds a folder's path from its ancestor chain in the closure.
// Caller must hold the store lock.
func (s *Store) pathOf(folderID uuid.UUID) string {
	type step struct {
		name  string
		depth int
	}
	var chain []step
	for key, depth := range s.closure {
		if key.descendant != folderID {
			continue
		}
		ancestor, ok := s.folders[key.ancestor]
		if !ok {
			continue
		}
		chain = append(chain, step{name: ancestor.Name, depth: depth})
	}

	// Root first: greatest depth is the farthest ancestor
	sort.Slice(chain, func(i, j int) bool { return chain[i].depth > chain[j].depth })

	path := ""
	for i, st := range chain {
		if i > 0 {
			path += "/"
		}
		path += st.name
	}
	return path
}
