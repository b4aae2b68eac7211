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

// FileRepository implements repositories.FileRepository over the store
type FileRepository struct {
	store *Store
}

// NewFileRepository creates a file repository over the store
func NewFileRepository(store *Store) repositories.FileRepository {
	return &FileRepository{store: store}
}

// Create inserts a new file row
func (r *FileRepository) Create(ctx context.Context, file *models.File) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if file.FolderID != nil {
		if _, ok := r.store.folders[*file.FolderID]; !ok {
			return fmt.Errorf("folder: %w", domain.ErrNotFound)
		}
	}

	for _, existing := range r.store.files {
		if existing.OwnerID == file.OwnerID && !existing.IsDeleted() &&
			sameParent(existing.FolderID, file.FolderID) && existing.Name == file.Name {
			return fmt.Errorf("file '%s': %w", file.Name, domain.ErrConflict)
		}
	}

	r.store.files[file.ID] = copyFile(file)
	return nil
}

// GetByID retrieves a file by ID, deleted or not
func (r *FileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.File, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	file, ok := r.store.files[id]
	if !ok {
		return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}

	return copyFile(file), nil
}

// Update persists name, folder, storage fields and updated_at. Trash markers
// are deliberately left alone; soft delete and restore own those columns.
func (r *FileRepository) Update(ctx context.Context, file *models.File) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	stored, ok := r.store.files[file.ID]
	if !ok {
		return fmt.Errorf("file %s: %w", file.ID, domain.ErrNotFound)
	}

	if !stored.IsDeleted() {
		for _, existing := range r.store.files {
			if existing.ID != file.ID && existing.OwnerID == stored.OwnerID && !existing.IsDeleted() &&
				sameParent(existing.FolderID, file.FolderID) && existing.Name == file.Name {
				return fmt.Errorf("file '%s': %w", file.Name, domain.ErrConflict)
			}
		}
	}

	stored.Name = file.Name
	stored.SizeBytes = file.SizeBytes
	stored.ContentHash = file.ContentHash
	stored.StoragePath = file.StoragePath
	stored.MimeType = file.MimeType
	stored.UpdatedAt = file.UpdatedAt
	if file.FolderID != nil {
		folderID := *file.FolderID
		stored.FolderID = &folderID
	} else {
		stored.FolderID = nil
	}
	return nil
}

// ListByFolder lists live files in a folder, name-ordered
func (r *FileRepository) ListByFolder(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID) ([]models.File, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var files []models.File
	for _, file := range r.store.files {
		if file.OwnerID == ownerID && !file.IsDeleted() && sameParent(file.FolderID, folderID) {
			files = append(files, *copyFile(file))
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// FindByName finds a live file with the exact name in folderID
func (r *FileRepository) FindByName(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID, name string) (*models.File, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, file := range r.store.files {
		if file.OwnerID == ownerID && !file.IsDeleted() &&
			sameParent(file.FolderID, folderID) && file.Name == name {
			return copyFile(file), nil
		}
	}

	return nil, nil
}

// ListByOwner retrieves all files of an owner as a flat list
func (r *FileRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID, includeDeleted bool) ([]models.File, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var files []models.File
	for _, file := range r.store.files {
		if file.OwnerID != ownerID {
			continue
		}
		if !includeDeleted && file.IsDeleted() {
			continue
		}
		files = append(files, *copyFile(file))
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// CountLiveByFolderIDs counts live files contained in the given folders
func (r *FileRepository) CountLiveByFolderIDs(ctx context.Context, folderIDs []uuid.UUID) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	members := make(map[uuid.UUID]bool, len(folderIDs))
	for _, id := range folderIDs {
		members[id] = true
	}

	count := 0
	for _, file := range r.store.files {
		if file.FolderID != nil && members[*file.FolderID] && !file.IsDeleted() {
			count++
		}
	}

	return count, nil
}

// SoftDeleteByIDs flags the still-live files among ids with the batch marker
func (r *FileRepository) SoftDeleteByIDs(ctx context.Context, ids []uuid.UUID, batchID uuid.UUID, at time.Time) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	count := 0
	for _, id := range ids {
		file, ok := r.store.files[id]
		if !ok || file.IsDeleted() {
			continue
		}
		ts := at
		batch := batchID
		file.DeletedAt = &ts
		file.DeleteBatchID = &batch
		file.UpdatedAt = at
		count++
	}

	return count, nil
}

// SoftDeleteByFolderIDs flags every live file contained in the given folders
func (r *FileRepository) SoftDeleteByFolderIDs(ctx context.Context, folderIDs []uuid.UUID, batchID uuid.UUID, at time.Time) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	members := make(map[uuid.UUID]bool, len(folderIDs))
	for _, id := range folderIDs {
		members[id] = true
	}

	count := 0
	for _, file := range r.store.files {
		if file.FolderID == nil || !members[*file.FolderID] || file.IsDeleted() {
			continue
		}
		ts := at
		batch := batchID
		file.DeletedAt = &ts
		file.DeleteBatchID = &batch
		file.UpdatedAt = at
		count++
	}

	return count, nil
}

// ListByBatch retrieves the files flagged with one deletion batch
func (r *FileRepository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.File, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var files []models.File
	for _, file := range r.store.files {
		if file.DeleteBatchID != nil && *file.DeleteBatchID == batchID {
			files = append(files, *copyFile(file))
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// RestoreBatch clears the deleted flag and batch marker for the batch
func (r *FileRepository) RestoreBatch(ctx context.Context, batchID uuid.UUID) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	count := 0
	now := time.Now()
	for _, file := range r.store.files {
		if file.DeleteBatchID != nil && *file.DeleteBatchID == batchID {
			file.DeletedAt = nil
			file.DeleteBatchID = nil
			file.UpdatedAt = now
			count++
		}
	}

	return count, nil
}
