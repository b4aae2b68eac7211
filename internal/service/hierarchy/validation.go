package hierarchy

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"cabinet/internal/domain"
	"cabinet/internal/domain/models"
	"cabinet/internal/domain/repositories"
)

// ResourceValidator validates that parent folders referenced by a mutation
// exist, are live and belong to the caller
type ResourceValidator struct {
	folderRepo repositories.FolderRepository
}

// NewResourceValidator creates a new resource validator
func NewResourceValidator(folderRepo repositories.FolderRepository) *ResourceValidator {
	return &ResourceValidator{folderRepo: folderRepo}
}

// ValidateParentFolder resolves a parent reference for a mutation. A nil
// parentID is the root level and always valid. A parent sitting in the trash
// is reported as missing, so mutations cannot grow new entries under deleted
// folders.
func (v *ResourceValidator) ValidateParentFolder(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID) (*models.Folder, error) {
	if parentID == nil {
		return nil, nil // Root level is always valid
	}

	parent, err := v.folderRepo.GetByID(ctx, *parentID)
	if err != nil {
		return nil, fmt.Errorf("invalid parent folder: %w", err)
	}

	if parent.OwnerID != ownerID {
		return nil, fmt.Errorf("parent folder %s: %w", *parentID, domain.ErrForbidden)
	}

	if parent.IsDeleted() {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("parent folder %s not found", *parentID)}
	}

	return parent, nil
}
