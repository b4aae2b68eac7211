package hierarchy

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"cabinet/internal/domain"
	"cabinet/internal/domain/models"
	"cabinet/internal/domain/repositories"
)

// IntegrityChecker cross-checks the ancestor index, parent pointers, trash
// markers and materialized paths for a single owner. Violations come back
// wrapped in ErrConsistency; they indicate a bug, not bad input, and are
// never surfaced to API callers.
type IntegrityChecker struct {
	folderRepo  repositories.FolderRepository
	fileRepo    repositories.FileRepository
	closureRepo repositories.ClosureRepository
	logger      *slog.Logger
}

// NewIntegrityChecker creates a new integrity checker
func NewIntegrityChecker(
	folderRepo repositories.FolderRepository,
	fileRepo repositories.FileRepository,
	closureRepo repositories.ClosureRepository,
	logger *slog.Logger,
) *IntegrityChecker {
	return &IntegrityChecker{
		folderRepo:  folderRepo,
		fileRepo:    fileRepo,
		closureRepo: closureRepo,
		logger:      logger,
	}
}

type closurePair struct {
	ancestor   uuid.UUID
	descendant uuid.UUID
}

// Check verifies every structural invariant for ownerID: the index holds
// exactly the reflexive and transitive ancestor pairs derived from parent
// pointers, parent chains terminate, live entries never sit under deleted
// parents, live sibling names are unique and materialized paths match the
// ancestor chain.
func (c *IntegrityChecker) Check(ctx context.Context, ownerID uuid.UUID) error {
	folders, err := c.folderRepo.ListByOwner(ctx, ownerID, true)
	if err != nil {
		return err
	}
	files, err := c.fileRepo.ListByOwner(ctx, ownerID, true)
	if err != nil {
		return err
	}
	indexRows, err := c.closureRepo.ListByOwner(ctx, ownerID)
	if err != nil {
		return err
	}

	folderByID := make(map[uuid.UUID]models.Folder, len(folders))
	for _, f := range folders {
		folderByID[f.ID] = f
	}

	var problems []string

	// Derive the expected index from parent pointers; a chain longer than
	// the folder count means a cycle
	expected := make(map[closurePair]int)
	for _, f := range folders {
		expected[closurePair{f.ID, f.ID}] = 0

		depth := 0
		cur := f
		for cur.ParentID != nil {
			depth++
			if depth > len(folders) {
				problems = append(problems, fmt.Sprintf("folder %s: parent chain does not terminate", f.ID))
				break
			}
			parent, ok := folderByID[*cur.ParentID]
			if !ok {
				problems = append(problems, fmt.Sprintf("folder %s: parent %s is missing", cur.ID, *cur.ParentID))
				break
			}
			expected[closurePair{parent.ID, f.ID}] = depth
			cur = parent
		}
	}

	actual := make(map[closurePair]int, len(indexRows))
	for _, row := range indexRows {
		pair := closurePair{row.AncestorID, row.DescendantID}
		if _, dup := actual[pair]; dup {
			problems = append(problems, fmt.Sprintf("duplicate index entry (%s, %s)", row.AncestorID, row.DescendantID))
		}
		actual[pair] = row.Depth
	}

	for pair, depth := range expected {
		got, ok := actual[pair]
		if !ok {
			problems = append(problems, fmt.Sprintf("missing index entry (%s, %s)", pair.ancestor, pair.descendant))
			continue
		}
		if got != depth {
			problems = append(problems, fmt.Sprintf("index entry (%s, %s) has depth %d, want %d", pair.ancestor, pair.descendant, got, depth))
		}
	}
	for pair := range actual {
		if _, ok := expected[pair]; !ok {
			problems = append(problems, fmt.Sprintf("stale index entry (%s, %s)", pair.ancestor, pair.descendant))
		}
	}

	// Trash markers and liveness: nothing live may sit under a deleted
	// parent, and everything deleted carries its batch
	for _, f := range folders {
		if f.IsDeleted() {
			if f.DeleteBatchID == nil {
				problems = append(problems, fmt.Sprintf("deleted folder %s has no batch marker", f.ID))
			}
			continue
		}
		if f.ParentID != nil {
			parent, ok := folderByID[*f.ParentID]
			if ok && parent.IsDeleted() {
				problems = append(problems, fmt.Sprintf("live folder %s sits under deleted folder %s", f.ID, parent.ID))
			}
		}
	}
	for _, file := range files {
		if file.IsDeleted() {
			if file.DeleteBatchID == nil {
				problems = append(problems, fmt.Sprintf("deleted file %s has no batch marker", file.ID))
			}
			continue
		}
		if file.FolderID != nil {
			folder, ok := folderByID[*file.FolderID]
			if !ok {
				problems = append(problems, fmt.Sprintf("file %s references missing folder %s", file.ID, *file.FolderID))
			} else if folder.IsDeleted() {
				problems = append(problems, fmt.Sprintf("live file %s sits in deleted folder %s", file.ID, folder.ID))
			}
		}
	}

	// Live sibling names are unique per parent, folders and files separately
	seenFolders := make(map[string]uuid.UUID)
	for _, f := range folders {
		if f.IsDeleted() {
			continue
		}
		key := siblingKey(f.ParentID, f.Name)
		if other, dup := seenFolders[key]; dup {
			problems = append(problems, fmt.Sprintf("folders %s and %s share name %q under one parent", other, f.ID, f.Name))
		}
		seenFolders[key] = f.ID
	}
	seenFiles := make(map[string]uuid.UUID)
	for _, file := range files {
		if file.IsDeleted() {
			continue
		}
		key := siblingKey(file.FolderID, file.Name)
		if other, dup := seenFiles[key]; dup {
			problems = append(problems, fmt.Sprintf("files %s and %s share name %q in one folder", other, file.ID, file.Name))
		}
		seenFiles[key] = file.ID
	}

	// Materialized paths of live folders match their ancestor names
	for _, f := range folders {
		if f.IsDeleted() {
			continue
		}
		want, ok := chainPath(f, folderByID, len(folders))
		if ok && f.Path != want {
			problems = append(problems, fmt.Sprintf("folder %s has path %q, want %q", f.ID, f.Path, want))
		}
	}

	if len(problems) > 0 {
		c.logger.Error("hierarchy integrity check failed",
			"owner_id", ownerID,
			"violations", len(problems),
		)
		return fmt.Errorf("%w: %s", domain.ErrConsistency, strings.Join(problems, "; "))
	}

	return nil
}

// siblingKey builds the uniqueness key for a live sibling set
func siblingKey(parentID *uuid.UUID, name string) string {
	if parentID == nil {
		return "root/" + name
	}
	return parentID.String() + "/" + name
}

// chainPath rebuilds a folder's path from parent pointers. Returns ok false
// when the chain is broken; that case is reported separately.
func chainPath(f models.Folder, folderByID map[uuid.UUID]models.Folder, maxSteps int) (string, bool) {
	names := []string{f.Name}
	cur := f
	for cur.ParentID != nil {
		if len(names) > maxSteps {
			return "", false
		}
		parent, ok := folderByID[*cur.ParentID]
		if !ok {
			return "", false
		}
		names = append(names, parent.Name)
		cur = parent
	}

	var sb strings.Builder
	for i := len(names) - 1; i >= 0; i-- {
		if sb.Len() > 0 {
			sb.WriteByte('/')
		}
		sb.WriteString(names[i])
	}
	return sb.String(), true
}
