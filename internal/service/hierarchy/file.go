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

type fileService struct {
	fileRepo   repositories.FileRepository
	folderRepo repositories.FolderRepository
	txManager  repositories.TransactionManager
	validator  *ResourceValidator
	authorizer services.ResourceAuthorizer
	recorder   audit.Recorder
	logger     *slog.Logger
}

// NewFileService creates a new file service
func NewFileService(
	fileRepo repositories.FileRepository,
	folderRepo repositories.FolderRepository,
	txManager repositories.TransactionManager,
	validator *ResourceValidator,
	authorizer services.ResourceAuthorizer,
	recorder audit.Recorder,
	logger *slog.Logger,
) services.FileService {
	return &fileService{
		fileRepo:   fileRepo,
		folderRepo: folderRepo,
		txManager:  txManager,
		validator:  validator,
		authorizer: authorizer,
		recorder:   recorder,
		logger:     logger,
	}
}

// CreateFile registers a new file entry in the requested folder
func (s *fileService) CreateFile(ctx context.Context, ownerID uuid.UUID, req *services.CreateFileRequest) (*models.File, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if req.SizeBytes < 0 {
		return nil, fmt.Errorf("%w: size_bytes cannot be negative", domain.ErrValidation)
	}

	var file *models.File
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		// Lock the folder row so a concurrent subtree delete cannot slip a
		// new live file into a folder it is flagging
		if req.FolderID != nil {
			if err := s.folderRepo.LockForUpdate(ctx, []uuid.UUID{*req.FolderID}); err != nil {
				return err
			}
		}

		if _, err := s.validator.ValidateParentFolder(ctx, ownerID, req.FolderID); err != nil {
			return err
		}

		existing, err := s.fileRepo.FindByName(ctx, ownerID, req.FolderID, req.Name)
		if err != nil {
			return fmt.Errorf("failed to check for duplicate names: %w", err)
		}
		if existing != nil {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a file named %q already exists in this location", req.Name),
				ResourceType: "file",
				ResourceID:   existing.ID.String(),
			}
		}

		now := time.Now()
		file = &models.File{
			ID:          uuid.New(),
			OwnerID:     ownerID,
			FolderID:    req.FolderID,
			Name:        req.Name,
			SizeBytes:   req.SizeBytes,
			ContentHash: req.ContentHash,
			StoragePath: req.StoragePath,
			MimeType:    req.MimeType,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		return s.fileRepo.Create(ctx, file)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("file created",
		"id", file.ID,
		"name", file.Name,
		"owner_id", ownerID,
		"folder_id", file.FolderID,
		"size_bytes", file.SizeBytes,
	)
	emitEvent(ctx, s.recorder, models.OpFileCreate, ownerID, "file", file.ID, map[string]any{
		"name":      file.Name,
		"folder_id": file.FolderID,
	})

	return file, nil
}

// GetFile retrieves a file entry. Deleted files are returned with their
// trash markers set so the trash can be inspected.
// Authorization is checked first via the injected authorizer.
func (s *fileService) GetFile(ctx context.Context, ownerID, fileID uuid.UUID) (*models.File, error) {
	if err := s.authorizer.CanAccessFile(ctx, ownerID, fileID); err != nil {
		return nil, err
	}

	return s.fileRepo.GetByID(ctx, fileID)
}

// RenameFile changes a file's name. Renaming a file to its current name is
// a no-op.
func (s *fileService) RenameFile(ctx context.Context, ownerID, fileID uuid.UUID, req *services.RenameFileRequest) (*models.File, error) {
	if err := s.authorizer.CanAccessFile(ctx, ownerID, fileID); err != nil {
		return nil, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if err := s.validateRenameRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	var file *models.File
	renamed := false
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		file, err = s.fileRepo.GetByID(ctx, fileID)
		if err != nil {
			return err
		}
		if file.IsDeleted() {
			return &domain.NotFoundError{Message: fmt.Sprintf("file %s not found", fileID)}
		}

		if file.Name == req.Name {
			return nil
		}

		existing, err := s.fileRepo.FindByName(ctx, ownerID, file.FolderID, req.Name)
		if err != nil {
			return fmt.Errorf("failed to check for duplicate names: %w", err)
		}
		if existing != nil && existing.ID != file.ID {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a file named %q already exists in this location", req.Name),
				ResourceType: "file",
				ResourceID:   existing.ID.String(),
			}
		}

		file.Name = req.Name
		file.UpdatedAt = time.Now()
		renamed = true
		return s.fileRepo.Update(ctx, file)
	})
	if err != nil {
		return nil, err
	}

	if renamed {
		s.logger.Info("file renamed",
			"id", file.ID,
			"name", file.Name,
			"owner_id", ownerID,
		)
		emitEvent(ctx, s.recorder, models.OpFileRename, ownerID, "file", file.ID, map[string]any{
			"name": file.Name,
		})
	}

	return file, nil
}

// MoveFile relocates a file to another folder. Moving a file to its current
// folder is a no-op.
func (s *fileService) MoveFile(ctx context.Context, ownerID, fileID uuid.UUID, req *services.MoveFileRequest) (*models.File, error) {
	if err := s.authorizer.CanAccessFile(ctx, ownerID, fileID); err != nil {
		return nil, err
	}

	var file *models.File
	moved := false
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if req.NewFolderID != nil {
			if err := s.folderRepo.LockForUpdate(ctx, []uuid.UUID{*req.NewFolderID}); err != nil {
				return err
			}
		}

		var err error
		file, err = s.fileRepo.GetByID(ctx, fileID)
		if err != nil {
			return err
		}
		if file.IsDeleted() {
			return &domain.NotFoundError{Message: fmt.Sprintf("file %s not found", fileID)}
		}

		if _, err := s.validator.ValidateParentFolder(ctx, ownerID, req.NewFolderID); err != nil {
			return err
		}

		if sameFolderRef(file.FolderID, req.NewFolderID) {
			return nil
		}

		existing, err := s.fileRepo.FindByName(ctx, ownerID, req.NewFolderID, file.Name)
		if err != nil {
			return fmt.Errorf("failed to check for duplicate names: %w", err)
		}
		if existing != nil && existing.ID != file.ID {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a file named %q already exists in this location", file.Name),
				ResourceType: "file",
				ResourceID:   existing.ID.String(),
			}
		}

		file.FolderID = req.NewFolderID
		file.UpdatedAt = time.Now()
		moved = true
		return s.fileRepo.Update(ctx, file)
	})
	if err != nil {
		return nil, err
	}

	if moved {
		s.logger.Info("file moved",
			"id", file.ID,
			"name", file.Name,
			"owner_id", ownerID,
			"folder_id", file.FolderID,
		)
		emitEvent(ctx, s.recorder, models.OpFileMove, ownerID, "file", file.ID, map[string]any{
			"folder_id": file.FolderID,
		})
	}

	return file, nil
}

// DeleteFile soft-deletes a single file as its own batch
func (s *fileService) DeleteFile(ctx context.Context, ownerID, fileID uuid.UUID) (*models.DeleteResult, error) {
	if err := s.authorizer.CanAccessFile(ctx, ownerID, fileID); err != nil {
		return nil, err
	}

	var result *models.DeleteResult
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		file, err := s.fileRepo.GetByID(ctx, fileID)
		if err != nil {
			return err
		}
		if file.IsDeleted() {
			return &domain.NotFoundError{Message: fmt.Sprintf("file %s not found", fileID)}
		}

		batchID := uuid.New()
		deleted, err := s.fileRepo.SoftDeleteByIDs(ctx, []uuid.UUID{fileID}, batchID, time.Now())
		if err != nil {
			return err
		}
		if deleted == 0 {
			return &domain.NotFoundError{Message: fmt.Sprintf("file %s not found", fileID)}
		}

		result = &models.DeleteResult{
			BatchID:      batchID,
			FilesDeleted: deleted,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("file deleted",
		"id", fileID,
		"owner_id", ownerID,
		"batch_id", result.BatchID,
	)
	emitEvent(ctx, s.recorder, models.OpFileDelete, ownerID, "file", fileID, map[string]any{
		"batch_id": result.BatchID,
	})

	return result, nil
}

// RestoreFile brings back a file deleted on its own. A file whose folder was
// deleted in the meantime re-attaches at the root level. Files deleted as
// part of a folder batch are restored through the folder.
func (s *fileService) RestoreFile(ctx context.Context, ownerID, fileID uuid.UUID) (*models.RestoreResult, error) {
	if err := s.authorizer.CanAccessFile(ctx, ownerID, fileID); err != nil {
		return nil, err
	}

	var result *models.RestoreResult
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		file, err := s.fileRepo.GetByID(ctx, fileID)
		if err != nil {
			return err
		}
		if !file.IsDeleted() {
			return fmt.Errorf("%w: file %s is not deleted", domain.ErrValidation, fileID)
		}
		if file.DeleteBatchID == nil {
			return fmt.Errorf("%w: deleted file %s has no batch marker", domain.ErrConsistency, fileID)
		}
		batchID := *file.DeleteBatchID

		batchFolders, err := s.folderRepo.ListByBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if len(batchFolders) > 0 {
			return fmt.Errorf("%w: file was deleted together with its folder; restore the folder instead", domain.ErrValidation)
		}

		// Former folder may itself have been deleted since; fall back to root
		target := file.FolderID
		if target != nil {
			folder, err := s.folderRepo.GetByID(ctx, *target)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				target = nil
			case err != nil:
				return err
			case folder.IsDeleted():
				target = nil
			}
		}
		attachedAtRoot := target == nil && file.FolderID != nil

		existing, err := s.fileRepo.FindByName(ctx, ownerID, target, file.Name)
		if err != nil {
			return fmt.Errorf("failed to check for duplicate names: %w", err)
		}
		if existing != nil {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a file named %q already exists at the restore location", file.Name),
				ResourceType: "file",
				ResourceID:   existing.ID.String(),
			}
		}

		filesRestored, err := s.fileRepo.RestoreBatch(ctx, batchID)
		if err != nil {
			return err
		}

		if attachedAtRoot {
			file.FolderID = nil
			file.UpdatedAt = time.Now()
			if err := s.fileRepo.Update(ctx, file); err != nil {
				return err
			}
		}

		result = &models.RestoreResult{
			BatchID:        batchID,
			FilesRestored:  filesRestored,
			AttachedAtRoot: attachedAtRoot,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("file restored",
		"id", fileID,
		"owner_id", ownerID,
		"batch_id", result.BatchID,
		"attached_at_root", result.AttachedAtRoot,
	)
	emitEvent(ctx, s.recorder, models.OpFileRestore, ownerID, "file", fileID, map[string]any{
		"batch_id":         result.BatchID,
		"attached_at_root": result.AttachedAtRoot,
	})

	return result, nil
}

// validateCreateRequest validates a file creation request
func (s *fileService) validateCreateRequest(req *services.CreateFileRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, config.MaxFileNameLength),
			validation.Match(regexp.MustCompile(`^[^/]+$`)).Error("file name cannot contain slashes"),
		),
	)
}

// validateRenameRequest validates a file rename request
func (s *fileService) validateRenameRequest(req *services.RenameFileRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, config.MaxFileNameLength),
			validation.Match(regexp.MustCompile(`^[^/]+$`)).Error("file name cannot contain slashes"),
		),
	)
}
