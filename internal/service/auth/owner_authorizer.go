package auth

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"cabinet/internal/domain"
	"cabinet/internal/domain/repositories"
)

// OwnerBasedAuthorizer implements ResourceAuthorizer using ownership checks.
// A caller can access a resource if they own it; every folder and file row
// carries its owner directly.
//
// This is the simplest authorization model. For future extensibility:
// - RoleBasedAuthorizer: Check the caller's role on the hierarchy
// - SharingAuthorizer: Check if the resource is shared with the caller
type OwnerBasedAuthorizer struct {
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
}

// NewOwnerBasedAuthorizer creates a new ownership-based authorizer
func NewOwnerBasedAuthorizer(
	folderRepo repositories.FolderRepository,
	fileRepo repositories.FileRepository,
) *OwnerBasedAuthorizer {
	return &OwnerBasedAuthorizer{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
	}
}

// CanAccessFolder checks if ownerID owns the folder. Trash state does not
// matter here; deleted folders still belong to their owner.
func (a *OwnerBasedAuthorizer) CanAccessFolder(ctx context.Context, ownerID, folderID uuid.UUID) error {
	folder, err := a.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return fmt.Errorf("get folder for auth: %w", err)
	}

	if folder.OwnerID != ownerID {
		return fmt.Errorf("access denied to folder %s: %w", folderID, domain.ErrForbidden)
	}
	return nil
}

// CanAccessFile checks if ownerID owns the file
func (a *OwnerBasedAuthorizer) CanAccessFile(ctx context.Context, ownerID, fileID uuid.UUID) error {
	file, err := a.fileRepo.GetByID(ctx, fileID)
	if err != nil {
		return fmt.Errorf("get file for auth: %w", err)
	}

	if file.OwnerID != ownerID {
		return fmt.Errorf("access denied to file %s: %w", fileID, domain.ErrForbidden)
	}
	return nil
}
