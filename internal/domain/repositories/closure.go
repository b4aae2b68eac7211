package repositories

import (
	"context"

	"github.com/google/uuid"

	"cabinet/internal/domain/models"
)

// ClosureRepository maintains the ancestor/descendant index. One row exists
// per (ancestor, descendant) pair including the reflexive pair at depth 0.
// The index is append-only except for Relink, which runs inside the move
// transaction; no hard-delete operation is exposed.
type ClosureRepository interface {
	// InsertForNewFolder writes the reflexive entry for folderID and, when
	// parentID is set, copies every ancestor entry of the parent with depth
	// incremented. Touches no pre-existing rows.
	InsertForNewFolder(ctx context.Context, folderID uuid.UUID, parentID *uuid.UUID) error

	// Relink rewires folderID's subtree under newParentID: stale links from
	// outside the subtree are removed and links to the new ancestor chain
	// inserted. Entries inside the subtree are left untouched. Must run in
	// the same transaction as the parent pointer update.
	Relink(ctx context.Context, folderID uuid.UUID, newParentID *uuid.UUID) error

	// ListDescendants returns the subtree members of rootID with depths,
	// including rootID itself at depth 0, ordered by depth then id.
	// maxDepth nil means unbounded.
	ListDescendants(ctx context.Context, rootID uuid.UUID, maxDepth *int) ([]models.FolderDepth, error)

	// ListAncestors returns folderID's chain with depths, including folderID
	// itself at depth 0, ordered nearest first
	ListAncestors(ctx context.Context, folderID uuid.UUID) ([]models.FolderDepth, error)

	// IsDescendant reports whether descendantID sits below ancestorID
	// (true for the folder itself)
	IsDescendant(ctx context.Context, ancestorID, descendantID uuid.UUID) (bool, error)

	// ListByOwner dumps every index row whose descendant belongs to the
	// owner, for integrity verification
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.ClosureEntry, error)
}
