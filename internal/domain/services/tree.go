package services

import (
	"context"

	"github.com/google/uuid"

	"cabinet/internal/domain/models"
)

// TreeService answers structural questions about an owner's hierarchy.
// All reads see live entries only.
type TreeService interface {
	// ListChildren lists the immediate child folders and files of folderID.
	// folderID nil lists the root level.
	ListChildren(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID) (*FolderContents, error)

	// GetSubtree returns the descendants of folderID with their depths,
	// nearest first. maxDepth nil means unbounded; the folder itself is
	// not included.
	GetSubtree(ctx context.Context, ownerID, folderID uuid.UUID, maxDepth *int) ([]models.SubtreeEntry, error)

	// GetBreadcrumbs returns the ancestor chain of folderID ordered root
	// first, ending with the folder itself
	GetBreadcrumbs(ctx context.Context, ownerID, folderID uuid.UUID) ([]models.Breadcrumb, error)

	// GetTree builds the owner's full nested folder/file tree
	GetTree(ctx context.Context, ownerID uuid.UUID) (*models.TreeNode, error)

	// ListTrash lists deleted entries whose parent is not deleted in the
	// same batch, i.e. the roots of what a restore would bring back
	ListTrash(ctx context.Context, ownerID uuid.UUID) ([]models.TrashEntry, error)
}

// FolderContents represents a folder with its children
type FolderContents struct {
	Folder  *models.Folder  `json:"folder,omitempty"` // null for root level
	Folders []models.Folder `json:"folders"`
	Files   []models.File   `json:"files"`
}
