package models

import (
	"time"

	"github.com/google/uuid"
)

// Folder is a node in an owner's hierarchy. ParentID nil means root level.
// Path is the materialized display path from root to this folder ("a/b/c"),
// recomputed from the ancestor chain whenever a rename or move touches it.
type Folder struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	OwnerID       uuid.UUID  `json:"owner_id" db:"owner_id"`
	ParentID      *uuid.UUID `json:"parent_id" db:"parent_id"` // NULL = root level
	Name          string     `json:"name" db:"name"`
	Path          string     `json:"path" db:"path"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	DeleteBatchID *uuid.UUID `json:"delete_batch_id,omitempty" db:"delete_batch_id"`
}

// IsDeleted reports whether the folder is in the trash.
func (f *Folder) IsDeleted() bool {
	return f.DeletedAt != nil
}

// DeleteResult summarizes one soft-delete batch.
type DeleteResult struct {
	BatchID        uuid.UUID `json:"batch_id"`
	FoldersDeleted int       `json:"folders_deleted"`
	FilesDeleted   int       `json:"files_deleted"`
}

// RestoreResult summarizes a restored batch. AttachedAtRoot is set when the
// restored folder's former parent was gone and it was re-attached at root.
type RestoreResult struct {
	BatchID         uuid.UUID `json:"batch_id"`
	FoldersRestored int       `json:"folders_restored"`
	FilesRestored   int       `json:"files_restored"`
	AttachedAtRoot  bool      `json:"attached_at_root"`
}
