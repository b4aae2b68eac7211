package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"cabinet/internal/audit"
	"cabinet/internal/config"
	"cabinet/internal/domain"
	"cabinet/internal/domain/models"
	"cabinet/internal/domain/repositories"
	"cabinet/internal/domain/services"
)

type folderService struct {
	folderRepo     repositories.FolderRepository
	fileRepo       repositories.FileRepository
	closureRepo    repositories.ClosureRepository
	txManager      repositories.TransactionManager
	validator      *ResourceValidator
	authorizer     services.ResourceAuthorizer
	recorder       audit.Recorder
	maxSubtreeSize int
	logger         *slog.Logger
}

// NewFolderService creates a new folder service
func NewFolderService(
	folderRepo repositories.FolderRepository,
	fileRepo repositories.FileRepository,
	closureRepo repositories.ClosureRepository,
	txManager repositories.TransactionManager,
	validator *ResourceValidator,
	authorizer services.ResourceAuthorizer,
	recorder audit.Recorder,
	maxSubtreeSize int,
	logger *slog.Logger,
) services.FolderService {
	return &folderService{
		folderRepo:     folderRepo,
		fileRepo:       fileRepo,
		closureRepo:    closureRepo,
		txManager:      txManager,
		validator:      validator,
		authorizer:     authorizer,
		recorder:       recorder,
		maxSubtreeSize: maxSubtreeSize,
		logger:         logger,
	}
}

// CreateFolder creates a new folder under the requested parent
func (s *folderService) CreateFolder(ctx context.Context, ownerID uuid.UUID, req *services.CreateFolderRequest) (*models.Folder, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var folder *models.Folder
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		// Lock the parent row so a concurrent subtree delete cannot slip a
		// new live child under a folder it is flagging
		if req.ParentID != nil {
			if err := s.folderRepo.LockForUpdate(ctx, []uuid.UUID{*req.ParentID}); err != nil {
				return err
			}
		}

		parent, err := s.validator.ValidateParentFolder(ctx, ownerID, req.ParentID)
		if err != nil {
			return err
		}

		// Check for duplicate name among live siblings
		sibling, err := s.folderRepo.FindChildByName(ctx, ownerID, req.ParentID, req.Name)
		if err != nil {
			return fmt.Errorf("failed to check for duplicate names: %w", err)
		}
		if sibling != nil {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a folder named %q already exists in this location", req.Name),
				ResourceType: "folder",
				ResourceID:   sibling.ID.String(),
			}
		}

		now := time.Now()
		folder = &models.Folder{
			ID:        uuid.New(),
			OwnerID:   ownerID,
			ParentID:  req.ParentID,
			Name:      req.Name,
			Path:      req.Name,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if parent != nil {
			folder.Path = parent.Path + "/" + folder.Name
		}

		if err := s.folderRepo.Create(ctx, folder); err != nil {
			return err
		}

		// Reflexive index entry plus one entry per inherited ancestor
		return s.closureRepo.InsertForNewFolder(ctx, folder.ID, req.ParentID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder created",
		"id", folder.ID,
		"name", folder.Name,
		"owner_id", ownerID,
		"parent_id", folder.ParentID,
		"path", folder.Path,
	)
	emitEvent(ctx, s.recorder, models.OpFolderCreate, ownerID, "folder", folder.ID, map[string]any{
		"name": folder.Name,
		"path": folder.Path,
	})

	return folder, nil
}

// GetFolder retrieves a folder with its materialized path. Deleted folders
// are returned with their trash markers set so the trash can be inspected.
// Authorization is checked first via the injected authorizer.
func (s *folderService) GetFolder(ctx context.Context, ownerID, folderID uuid.UUID) (*models.Folder, error) {
	if err := s.authorizer.CanAccessFolder(ctx, ownerID, folderID); err != nil {
		return nil, err
	}

	return s.folderRepo.GetByID(ctx, folderID)
}

// RenameFolder changes a folder's name and recomputes subtree paths.
// Renaming a folder to its current name is a no-op.
func (s *folderService) RenameFolder(ctx context.Context, ownerID, folderID uuid.UUID, req *services.RenameFolderRequest) (*models.Folder, error) {
	if err := s.authorizer.CanAccessFolder(ctx, ownerID, folderID); err != nil {
		return nil, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if err := s.validateRenameRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var folder *models.Folder
	renamed := false
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.folderRepo.LockForUpdate(ctx, []uuid.UUID{folderID}); err != nil {
			return err
		}

		var err error
		folder, err = s.folderRepo.GetByID(ctx, folderID)
		if err != nil {
			return err
		}
		if folder.IsDeleted() {
			return &domain.NotFoundError{Message: fmt.Sprintf("folder %s not found", folderID)}
		}

		if folder.Name == req.Name {
			return nil
		}

		sibling, err := s.folderRepo.FindChildByName(ctx, ownerID, folder.ParentID, req.Name)
		if err != nil {
			return fmt.Errorf("failed to check for duplicate names: %w", err)
		}
		if sibling != nil && sibling.ID != folder.ID {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a folder named %q already exists in this location", req.Name),
				ResourceType: "folder",
				ResourceID:   sibling.ID.String(),
			}
		}

		folder.Name = req.Name
		folder.UpdatedAt = time.Now()
		if err := s.folderRepo.Update(ctx, folder); err != nil {
			return err
		}

		// Subtree paths are rebuilt from ancestor names, never by substring
		// rewrite of the old path
		if err := s.folderRepo.RecomputePaths(ctx, folderID); err != nil {
			return err
		}

		folder, err = s.folderRepo.GetByID(ctx, folderID)
		renamed = true
		return err
	})
	if err != nil {
		return nil, err
	}

	if renamed {
		s.logger.Info("folder renamed",
			"id", folder.ID,
			"name", folder.Name,
			"owner_id", ownerID,
			"path", folder.Path,
		)
		emitEvent(ctx, s.recorder, models.OpFolderRename, ownerID, "folder", folder.ID, map[string]any{
			"name": folder.Name,
			"path": folder.Path,
		})
	}

	return folder, nil
}

// MoveFolder re-parents a folder, rewires the ancestor index for its subtree
// and recomputes subtree paths. Moving a folder to its current parent is a
// no-op.
func (s *folderService) MoveFolder(ctx context.Context, ownerID, folderID uuid.UUID, req *services.MoveFolderRequest) (*models.Folder, error) {
	if err := s.authorizer.CanAccessFolder(ctx, ownerID, folderID); err != nil {
		return nil, err
	}

	var folder *models.Folder
	moved := false
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		// Lock the moved folder together with the destination ancestor chain
		// in a single call; the repository orders locks by id, which keeps
		// concurrent movers deadlock-free
		lockIDs := []uuid.UUID{folderID}
		if req.NewParentID != nil {
			chain, err := s.closureRepo.ListAncestors(ctx, *req.NewParentID)
			if err != nil {
				return err
			}
			for _, entry := range chain {
				lockIDs = append(lockIDs, entry.FolderID)
			}
		}
		if err := s.folderRepo.LockForUpdate(ctx, lockIDs); err != nil {
			return err
		}

		// Validations run only after every lock is held
		var err error
		folder, err = s.folderRepo.GetByID(ctx, folderID)
		if err != nil {
			return err
		}
		if folder.IsDeleted() {
			return &domain.NotFoundError{Message: fmt.Sprintf("folder %s not found", folderID)}
		}

		if req.NewParentID != nil {
			if _, err := s.validator.ValidateParentFolder(ctx, ownerID, req.NewParentID); err != nil {
				return err
			}
			if *req.NewParentID == folderID {
				return &domain.CircularError{
					Message:  "cannot move a folder into itself",
					FolderID: folderID.String(),
					TargetID: req.NewParentID.String(),
				}
			}
			inSubtree, err := s.closureRepo.IsDescendant(ctx, folderID, *req.NewParentID)
			if err != nil {
				return err
			}
			if inSubtree {
				return &domain.CircularError{
					Message:  "cannot move a folder into its own subtree",
					FolderID: folderID.String(),
					TargetID: req.NewParentID.String(),
				}
			}
		}

		if sameFolderRef(folder.ParentID, req.NewParentID) {
			return nil
		}

		depths, err := s.closureRepo.ListDescendants(ctx, folderID, nil)
		if err != nil {
			return err
		}
		if err := s.ensureSubtreeWithinBound(ctx, folderIDs(depths)); err != nil {
			return err
		}

		sibling, err := s.folderRepo.FindChildByName(ctx, ownerID, req.NewParentID, folder.Name)
		if err != nil {
			return fmt.Errorf("failed to check for duplicate names: %w", err)
		}
		if sibling != nil && sibling.ID != folder.ID {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a folder named %q already exists in this location", folder.Name),
				ResourceType: "folder",
				ResourceID:   sibling.ID.String(),
			}
		}

		folder.ParentID = req.NewParentID
		folder.UpdatedAt = time.Now()
		if err := s.folderRepo.Update(ctx, folder); err != nil {
			return err
		}

		if err := s.closureRepo.Relink(ctx, folderID, req.NewParentID); err != nil {
			return err
		}

		if err := s.folderRepo.RecomputePaths(ctx, folderID); err != nil {
			return err
		}

		folder, err = s.folderRepo.GetByID(ctx, folderID)
		moved = true
		return err
	})
	if err != nil {
		return nil, err
	}

	if moved {
		s.logger.Info("folder moved",
			"id", folder.ID,
			"name", folder.Name,
			"owner_id", ownerID,
			"parent_id", folder.ParentID,
			"path", folder.Path,
		)
		emitEvent(ctx, s.recorder, models.OpFolderMove, ownerID, "folder", folder.ID, map[string]any{
			"parent_id": folder.ParentID,
			"path":      folder.Path,
		})
	}

	return folder, nil
}

// DeleteFolder soft-deletes the folder, every live descendant folder and
// every live contained file as one batch. The batch marker is what a later
// restore brings back.
func (s *folderService) DeleteFolder(ctx context.Context, ownerID, folderID uuid.UUID) (*models.DeleteResult, error) {
	if err := s.authorizer.CanAccessFolder(ctx, ownerID, folderID); err != nil {
		return nil, err
	}

	var result *models.DeleteResult
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.folderRepo.LockForUpdate(ctx, []uuid.UUID{folderID}); err != nil {
			return err
		}

		folder, err := s.folderRepo.GetByID(ctx, folderID)
		if err != nil {
			return err
		}
		if folder.IsDeleted() {
			return &domain.NotFoundError{Message: fmt.Sprintf("folder %s not found", folderID)}
		}

		// The first snapshot only tells us what to lock; the authoritative
		// member set is re-read once the subtree locks are held
		depths, err := s.closureRepo.ListDescendants(ctx, folderID, nil)
		if err != nil {
			return err
		}
		if err := s.folderRepo.LockForUpdate(ctx, folderIDs(depths)); err != nil {
			return err
		}
		depths, err = s.closureRepo.ListDescendants(ctx, folderID, nil)
		if err != nil {
			return err
		}
		ids := folderIDs(depths)

		if err := s.ensureSubtreeWithinBound(ctx, ids); err != nil {
			return err
		}

		batchID := uuid.New()
		now := time.Now()
		foldersDeleted, err := s.folderRepo.SoftDeleteByIDs(ctx, ids, batchID, now)
		if err != nil {
			return err
		}
		filesDeleted, err := s.fileRepo.SoftDeleteByFolderIDs(ctx, ids, batchID, now)
		if err != nil {
			return err
		}

		result = &models.DeleteResult{
			BatchID:        batchID,
			FoldersDeleted: foldersDeleted,
			FilesDeleted:   filesDeleted,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder deleted",
		"id", folderID,
		"owner_id", ownerID,
		"batch_id", result.BatchID,
		"folders_deleted", result.FoldersDeleted,
		"files_deleted", result.FilesDeleted,
	)
	emitEvent(ctx, s.recorder, models.OpFolderDelete, ownerID, "folder", folderID, map[string]any{
		"batch_id":        result.BatchID,
		"folders_deleted": result.FoldersDeleted,
		"files_deleted":   result.FilesDeleted,
	})

	return result, nil
}

// RestoreFolder brings back exactly the deletion batch the folder went out
// with; calling it on any member of the batch restores the whole batch. A
// batch root whose former parent is gone re-attaches at the root level.
func (s *folderService) RestoreFolder(ctx context.Context, ownerID, folderID uuid.UUID) (*models.RestoreResult, error) {
	if err := s.authorizer.CanAccessFolder(ctx, ownerID, folderID); err != nil {
		return nil, err
	}

	var result *models.RestoreResult
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if err := s.folderRepo.LockForUpdate(ctx, []uuid.UUID{folderID}); err != nil {
			return err
		}

		folder, err := s.folderRepo.GetByID(ctx, folderID)
		if err != nil {
			return err
		}
		if !folder.IsDeleted() {
			return fmt.Errorf("%w: folder %s is not deleted", domain.ErrValidation, folderID)
		}
		if folder.DeleteBatchID == nil {
			return fmt.Errorf("%w: deleted folder %s has no batch marker", domain.ErrConsistency, folderID)
		}
		batchID := *folder.DeleteBatchID

		batchFolders, err := s.folderRepo.ListByBatch(ctx, batchID)
		if err != nil {
			return err
		}

		batchSet := make(map[uuid.UUID]bool, len(batchFolders))
		for _, member := range batchFolders {
			batchSet[member.ID] = true
		}

		// Boundary members are the ones whose parent sits outside the batch;
		// they re-enter the live tree, everything else hangs below them
		var boundary []models.Folder
		for _, member := range batchFolders {
			if member.ParentID == nil || !batchSet[*member.ParentID] {
				boundary = append(boundary, member)
			}
		}

		attachedAtRoot := false
		reattach := make(map[uuid.UUID]bool)
		for i := range boundary {
			member := &boundary[i]

			target := member.ParentID
			if target != nil {
				parent, err := s.folderRepo.GetByID(ctx, *target)
				switch {
				case errors.Is(err, domain.ErrNotFound):
					target = nil
				case err != nil:
					return err
				case parent.IsDeleted():
					// Former parent is still in the trash; re-attach at root
					target = nil
				}
			}
			if target == nil && member.ParentID != nil {
				reattach[member.ID] = true
			}

			sibling, err := s.folderRepo.FindChildByName(ctx, ownerID, target, member.Name)
			if err != nil {
				return fmt.Errorf("failed to check for duplicate names: %w", err)
			}
			if sibling != nil {
				return &domain.ConflictError{
					Message:      fmt.Sprintf("a folder named %q already exists at the restore location", member.Name),
					ResourceType: "folder",
					ResourceID:   sibling.ID.String(),
				}
			}
		}

		foldersRestored, err := s.folderRepo.RestoreBatch(ctx, batchID)
		if err != nil {
			return err
		}
		filesRestored, err := s.fileRepo.RestoreBatch(ctx, batchID)
		if err != nil {
			return err
		}

		for i := range boundary {
			member := &boundary[i]
			if reattach[member.ID] {
				member.ParentID = nil
				member.UpdatedAt = time.Now()
				if err := s.folderRepo.Update(ctx, member); err != nil {
					return err
				}
				if err := s.closureRepo.Relink(ctx, member.ID, nil); err != nil {
					return err
				}
				attachedAtRoot = true
			}
			if err := s.folderRepo.RecomputePaths(ctx, member.ID); err != nil {
				return err
			}
		}

		result = &models.RestoreResult{
			BatchID:         batchID,
			FoldersRestored: foldersRestored,
			FilesRestored:   filesRestored,
			AttachedAtRoot:  attachedAtRoot,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder restored",
		"id", folderID,
		"owner_id", ownerID,
		"batch_id", result.BatchID,
		"folders_restored", result.FoldersRestored,
		"files_restored", result.FilesRestored,
		"attached_at_root", result.AttachedAtRoot,
	)
	emitEvent(ctx, s.recorder, models.OpFolderRestore, ownerID, "folder", folderID, map[string]any{
		"batch_id":         result.BatchID,
		"attached_at_root": result.AttachedAtRoot,
	})

	return result, nil
}

// ensureSubtreeWithinBound rejects operations whose subtree (folders plus
// contained live files) exceeds the configured bound, before any row is
// written
func (s *folderService) ensureSubtreeWithinBound(ctx context.Context, ids []uuid.UUID) error {
	fileCount, err := s.fileRepo.CountLiveByFolderIDs(ctx, ids)
	if err != nil {
		return err
	}
	if total := len(ids) + fileCount; total > s.maxSubtreeSize {
		return &domain.TooLargeError{
			Message: fmt.Sprintf("operation would touch %d entries, limit is %d", total, s.maxSubtreeSize),
		}
	}
	return nil
}

// validateCreateRequest validates a folder creation request
func (s *folderService) validateCreateRequest(req *services.CreateFolderRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, config.MaxFolderNameLength),
			validation.Match(regexp.MustCompile(`^[^/]+$`)).Error("folder name cannot contain slashes"),
		),
	)
}

// validateRenameRequest validates a folder rename request
func (s *folderService) validateRenameRequest(req *services.RenameFolderRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, config.MaxFolderNameLength),
			validation.Match(regexp.MustCompile(`^[^/]+$`)).Error("folder name cannot contain slashes"),
		),
	)
}
