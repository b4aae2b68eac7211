package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cabinet/internal/domain/models"
)

// FileRepository defines data access operations for file rows
type FileRepository interface {
	// Create inserts a new file row
	Create(ctx context.Context, file *models.File) error

	// GetByID retrieves a file by ID, deleted or not
	GetByID(ctx context.Context, id uuid.UUID) (*models.File, error)

	// Update persists name, folder, storage fields and updated_at
	Update(ctx context.Context, file *models.File) error

	// ListByFolder lists live files in a folder, name-ordered.
	// folderID nil lists root-level files.
	ListByFolder(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID) ([]models.File, error)

	// FindByName finds a live file with the exact name in folderID.
	// Returns (nil, nil) when no such file exists.
	FindByName(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID, name string) (*models.File, error)

	// ListByOwner retrieves all files of an owner as a flat list
	ListByOwner(ctx context.Context, ownerID uuid.UUID, includeDeleted bool) ([]models.File, error)

	// CountLiveByFolderIDs counts live files contained in the given folders
	CountLiveByFolderIDs(ctx context.Context, folderIDs []uuid.UUID) (int, error)

	// SoftDeleteByIDs flags the still-live files among ids with the batch
	// marker and shared timestamp, returning how many rows were flagged
	SoftDeleteByIDs(ctx context.Context, ids []uuid.UUID, batchID uuid.UUID, at time.Time) (int, error)

	// SoftDeleteByFolderIDs flags every live file contained in the given
	// folders with the batch marker, returning how many rows were flagged
	SoftDeleteByFolderIDs(ctx context.Context, folderIDs []uuid.UUID, batchID uuid.UUID, at time.Time) (int, error)

	// ListByBatch retrieves the files flagged with one deletion batch
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.File, error)

	// RestoreBatch clears the deleted flag and batch marker for the batch,
	// returning how many rows were restored
	RestoreBatch(ctx context.Context, batchID uuid.UUID) (int, error)
}
