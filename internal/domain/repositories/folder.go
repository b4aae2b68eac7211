package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cabinet/internal/domain/models"
)

// FolderRepository defines data access operations for folder rows.
// Reads that take an id alone return the row regardless of owner or trash
// state; ownership and liveness policy belong to the service layer.
type FolderRepository interface {
	// Create inserts a new folder row
	Create(ctx context.Context, folder *models.Folder) error

	// GetByID retrieves a folder by ID, deleted or not
	GetByID(ctx context.Context, id uuid.UUID) (*models.Folder, error)

	// Update persists name, parent, path and updated_at
	Update(ctx context.Context, folder *models.Folder) error

	// ListChildren lists live immediate child folders, name-ordered.
	// parentID nil lists root-level folders.
	ListChildren(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) ([]models.Folder, error)

	// FindChildByName finds a live child with the exact name under parentID.
	// Returns (nil, nil) when no such sibling exists.
	FindChildByName(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, name string) (*models.Folder, error)

	// ListByOwner retrieves all folders of an owner as a flat list
	ListByOwner(ctx context.Context, ownerID uuid.UUID, includeDeleted bool) ([]models.Folder, error)

	// LockForUpdate takes row locks on the given folders in id order.
	// Must run inside a transaction.
	LockForUpdate(ctx context.Context, ids []uuid.UUID) error

	// RecomputePaths rewrites the materialized path of rootID and every live
	// folder below it from the ancestor chain recorded in the closure index
	RecomputePaths(ctx context.Context, rootID uuid.UUID) error

	// SoftDeleteByIDs flags the still-live rows among ids with the batch
	// marker and shared timestamp, returning how many rows were flagged
	SoftDeleteByIDs(ctx context.Context, ids []uuid.UUID, batchID uuid.UUID, at time.Time) (int, error)

	// ListByBatch retrieves the folders flagged with one deletion batch
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Folder, error)

	// RestoreBatch clears the deleted flag and batch marker for the batch,
	// returning how many rows were restored
	RestoreBatch(ctx context.Context, batchID uuid.UUID) (int, error)
}
