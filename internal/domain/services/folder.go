package services

import (
	"context"

	"github.com/google/uuid"

	"cabinet/internal/domain/models"
)

// FolderService handles folder business logic. Rename and move are separate
// operations; each structural mutation runs as one atomic transaction.
type FolderService interface {
	// CreateFolder creates a new folder under the requested parent
	CreateFolder(ctx context.Context, ownerID uuid.UUID, req *CreateFolderRequest) (*models.Folder, error)

	// GetFolder retrieves a folder with its materialized path
	GetFolder(ctx context.Context, ownerID, folderID uuid.UUID) (*models.Folder, error)

	// RenameFolder changes a folder's name and recomputes subtree paths
	RenameFolder(ctx context.Context, ownerID, folderID uuid.UUID, req *RenameFolderRequest) (*models.Folder, error)

	// MoveFolder re-parents a folder, rewires the ancestor index for its
	// subtree and recomputes subtree paths
	MoveFolder(ctx context.Context, ownerID, folderID uuid.UUID, req *MoveFolderRequest) (*models.Folder, error)

	// DeleteFolder soft-deletes the folder, every live descendant folder and
	// every live contained file as one batch
	DeleteFolder(ctx context.Context, ownerID, folderID uuid.UUID) (*models.DeleteResult, error)

	// RestoreFolder brings back exactly the deletion batch the folder went
	// out with. A folder whose former parent is gone re-attaches at root.
	RestoreFolder(ctx context.Context, ownerID, folderID uuid.UUID) (*models.RestoreResult, error)
}

// CreateFolderRequest represents a folder creation request
type CreateFolderRequest struct {
	Name     string     `json:"name"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"` // null for root level
}

// RenameFolderRequest represents a folder rename request
type RenameFolderRequest struct {
	Name string `json:"name"`
}

// MoveFolderRequest represents a folder move request
type MoveFolderRequest struct {
	NewParentID *uuid.UUID `json:"new_parent_id"` // null moves to root level
}
