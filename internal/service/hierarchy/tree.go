package hierarchy

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"cabinet/internal/domain"
	"cabinet/internal/domain/models"
	"cabinet/internal/domain/repositories"
	"cabinet/internal/domain/services"
)

// treeService implements the TreeService interface
type treeService struct {
	folderRepo  repositories.FolderRepository
	fileRepo    repositories.FileRepository
	closureRepo repositories.ClosureRepository
	authorizer  services.ResourceAuthorizer
	logger      *slog.Logger
}

// NewTreeService creates a new tree service
func NewTreeService(
	folderRepo repositories.FolderRepository,
	fileRepo repositories.FileRepository,
	closureRepo repositories.ClosureRepository,
	authorizer services.ResourceAuthorizer,
	logger *slog.Logger,
) services.TreeService {
	return &treeService{
		folderRepo:  folderRepo,
		fileRepo:    fileRepo,
		closureRepo: closureRepo,
		authorizer:  authorizer,
		logger:      logger,
	}
}

// ListChildren lists the immediate child folders and files of folderID.
// folderID nil lists the root level.
func (s *treeService) ListChildren(ctx context.Context, ownerID uuid.UUID, folderID *uuid.UUID) (*services.FolderContents, error) {
	var folder *models.Folder

	if folderID != nil {
		if err := s.authorizer.CanAccessFolder(ctx, ownerID, *folderID); err != nil {
			return nil, err
		}

		var err error
		folder, err = s.folderRepo.GetByID(ctx, *folderID)
		if err != nil {
			return nil, err
		}
		if folder.IsDeleted() {
			return nil, &domain.NotFoundError{Message: fmt.Sprintf("folder %s not found", *folderID)}
		}
	}

	childFolders, err := s.folderRepo.ListChildren(ctx, ownerID, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list child folders: %w", err)
	}

	files, err := s.fileRepo.ListByFolder(ctx, ownerID, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return &services.FolderContents{
		Folder:  folder,
		Folders: childFolders,
		Files:   files,
	}, nil
}

// GetSubtree returns the live descendants of folderID with their depths,
// nearest first. The folder itself is not included.
func (s *treeService) GetSubtree(ctx context.Context, ownerID, folderID uuid.UUID, maxDepth *int) ([]models.SubtreeEntry, error) {
	if err := s.authorizer.CanAccessFolder(ctx, ownerID, folderID); err != nil {
		return nil, err
	}
	if maxDepth != nil && *maxDepth < 0 {
		return nil, fmt.Errorf("%w: max_depth cannot be negative", domain.ErrValidation)
	}

	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.IsDeleted() {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("folder %s not found", folderID)}
	}

	depths, err := s.closureRepo.ListDescendants(ctx, folderID, maxDepth)
	if err != nil {
		return nil, err
	}

	// The index keeps trashed members; resolve against live rows only
	liveFolders, err := s.folderRepo.ListByOwner(ctx, ownerID, false)
	if err != nil {
		return nil, err
	}
	liveByID := make(map[uuid.UUID]models.Folder, len(liveFolders))
	for _, f := range liveFolders {
		liveByID[f.ID] = f
	}

	entries := make([]models.SubtreeEntry, 0, len(depths))
	for _, d := range depths {
		if d.Depth == 0 {
			continue
		}
		f, ok := liveByID[d.FolderID]
		if !ok {
			continue
		}
		entries = append(entries, models.SubtreeEntry{Folder: f, Depth: d.Depth})
	}

	return entries, nil
}

// GetBreadcrumbs returns the ancestor chain of folderID ordered root first,
// ending with the folder itself
func (s *treeService) GetBreadcrumbs(ctx context.Context, ownerID, folderID uuid.UUID) ([]models.Breadcrumb, error) {
	if err := s.authorizer.CanAccessFolder(ctx, ownerID, folderID); err != nil {
		return nil, err
	}

	folder, err := s.folderRepo.GetByID(ctx, folderID)
	if err != nil {
		return nil, err
	}
	if folder.IsDeleted() {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("folder %s not found", folderID)}
	}

	chain, err := s.closureRepo.ListAncestors(ctx, folderID)
	if err != nil {
		return nil, err
	}

	// Ancestors of a live folder are always live
	liveFolders, err := s.folderRepo.ListByOwner(ctx, ownerID, false)
	if err != nil {
		return nil, err
	}
	liveByID := make(map[uuid.UUID]models.Folder, len(liveFolders))
	for _, f := range liveFolders {
		liveByID[f.ID] = f
	}

	// The chain arrives nearest first; breadcrumbs read root first
	crumbs := make([]models.Breadcrumb, 0, len(chain))
	for i := len(chain) - 1; i >= 0; i-- {
		f, ok := liveByID[chain[i].FolderID]
		if !ok {
			return nil, fmt.Errorf("%w: ancestor %s of folder %s is missing", domain.ErrConsistency, chain[i].FolderID, folderID)
		}
		crumbs = append(crumbs, models.Breadcrumb{ID: f.ID, Name: f.Name})
	}

	return crumbs, nil
}

// GetTree builds the owner's full nested folder/file tree
func (s *treeService) GetTree(ctx context.Context, ownerID uuid.UUID) (*models.TreeNode, error) {
	// Rows arrive path-ordered, so parents precede children and siblings
	// stay alphabetical
	allFolders, err := s.folderRepo.ListByOwner(ctx, ownerID, false)
	if err != nil {
		return nil, err
	}

	allFiles, err := s.fileRepo.ListByOwner(ctx, ownerID, false)
	if err != nil {
		return nil, err
	}

	// Build folder hierarchy using 3-pass algorithm
	folderMap := make(map[uuid.UUID]*models.FolderTreeNode, len(allFolders))
	var rootFolderIDs []uuid.UUID

	// First pass: create all folder nodes
	for _, folder := range allFolders {
		folderMap[folder.ID] = &models.FolderTreeNode{
			ID:        folder.ID,
			Name:      folder.Name,
			ParentID:  folder.ParentID,
			Path:      folder.Path,
			CreatedAt: folder.CreatedAt,
			Folders:   []*models.FolderTreeNode{},
			Files:     []models.FileTreeNode{},
		}
	}

	// Second pass: nest folders by connecting children to parents
	for _, folder := range allFolders {
		node := folderMap[folder.ID]
		if folder.ParentID == nil {
			rootFolderIDs = append(rootFolderIDs, folder.ID)
		} else {
			if parent, exists := folderMap[*folder.ParentID]; exists {
				parent.Folders = append(parent.Folders, node)
			}
		}
	}

	// Third pass: add files to their folders
	rootFiles := make([]models.FileTreeNode, 0)
	for _, file := range allFiles {
		fileNode := models.FileTreeNode{
			ID:        file.ID,
			Name:      file.Name,
			FolderID:  file.FolderID,
			SizeBytes: file.SizeBytes,
			MimeType:  file.MimeType,
			UpdatedAt: file.UpdatedAt,
		}

		if file.FolderID == nil {
			rootFiles = append(rootFiles, fileNode)
		} else {
			if parent, exists := folderMap[*file.FolderID]; exists {
				parent.Files = append(parent.Files, fileNode)
			}
		}
	}

	rootFolders := make([]*models.FolderTreeNode, 0, len(rootFolderIDs))
	for _, folderID := range rootFolderIDs {
		if node, exists := folderMap[folderID]; exists {
			rootFolders = append(rootFolders, node)
		}
	}

	tree := &models.TreeNode{
		Folders: rootFolders,
		Files:   rootFiles,
	}

	s.logger.Info("tree built",
		"owner_id", ownerID,
		"folder_count", len(allFolders),
		"file_count", len(allFiles),
	)

	return tree, nil
}

// ListTrash lists deleted entries whose parent is not deleted in the same
// batch. These are the entries a restore can be aimed at directly.
func (s *treeService) ListTrash(ctx context.Context, ownerID uuid.UUID) ([]models.TrashEntry, error) {
	allFolders, err := s.folderRepo.ListByOwner(ctx, ownerID, true)
	if err != nil {
		return nil, err
	}

	allFiles, err := s.fileRepo.ListByOwner(ctx, ownerID, true)
	if err != nil {
		return nil, err
	}

	folderByID := make(map[uuid.UUID]models.Folder, len(allFolders))
	for _, f := range allFolders {
		folderByID[f.ID] = f
	}

	// A deleted entry shows at the top level of the trash unless its parent
	// went out in the same batch, in which case the parent represents it
	sameBatchAsParent := func(parentID *uuid.UUID, batchID *uuid.UUID) bool {
		if parentID == nil || batchID == nil {
			return false
		}
		parent, ok := folderByID[*parentID]
		if !ok || !parent.IsDeleted() || parent.DeleteBatchID == nil {
			return false
		}
		return *parent.DeleteBatchID == *batchID
	}

	var entries []models.TrashEntry
	for _, folder := range allFolders {
		if !folder.IsDeleted() || folder.DeleteBatchID == nil {
			continue
		}
		if sameBatchAsParent(folder.ParentID, folder.DeleteBatchID) {
			continue
		}
		entries = append(entries, models.TrashEntry{
			Type:          "folder",
			ID:            folder.ID,
			Name:          folder.Name,
			Path:          folder.Path,
			DeletedAt:     *folder.DeletedAt,
			DeleteBatchID: *folder.DeleteBatchID,
		})
	}

	for _, file := range allFiles {
		if !file.IsDeleted() || file.DeleteBatchID == nil {
			continue
		}
		if sameBatchAsParent(file.FolderID, file.DeleteBatchID) {
			continue
		}
		path := file.Name
		if file.FolderID != nil {
			if folder, ok := folderByID[*file.FolderID]; ok {
				path = folder.Path + "/" + file.Name
			}
		}
		entries = append(entries, models.TrashEntry{
			Type:          "file",
			ID:            file.ID,
			Name:          file.Name,
			Path:          path,
			DeletedAt:     *file.DeletedAt,
			DeleteBatchID: *file.DeleteBatchID,
		})
	}

	// Most recently deleted first
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].DeletedAt.Equal(entries[j].DeletedAt) {
			return entries[i].DeletedAt.After(entries[j].DeletedAt)
		}
		return entries[i].Name < entries[j].Name
	})

	return entries, nil
}
