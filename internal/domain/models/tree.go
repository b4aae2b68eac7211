package models

import (
	"time"

	"github.com/google/uuid"
)

// TreeNode represents the root of an owner's tree
type TreeNode struct {
	Folders []*FolderTreeNode `json:"folders"`
	Files   []FileTreeNode    `json:"files"`
}

// FolderTreeNode represents a folder in the tree with nested children
type FolderTreeNode struct {
	ID        uuid.UUID         `json:"id"`
	Name      string            `json:"name"`
	ParentID  *uuid.UUID        `json:"parent_id"`
	Path      string            `json:"path"`
	CreatedAt time.Time         `json:"created_at"`
	Folders   []*FolderTreeNode `json:"folders"` // Pointers for proper nesting
	Files     []FileTreeNode    `json:"files"`
}

// FileTreeNode represents a file in the tree (metadata only)
type FileTreeNode struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	FolderID  *uuid.UUID `json:"folder_id"`
	SizeBytes int64      `json:"size_bytes"`
	MimeType  string     `json:"mime_type"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TrashEntry is a top-level item in the trash view: a deleted folder or file
// whose own parent is not part of the same deletion batch.
type TrashEntry struct {
	Type          string    `json:"type"` // "folder" or "file"
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Path          string    `json:"path"`
	DeletedAt     time.Time `json:"deleted_at"`
	DeleteBatchID uuid.UUID `json:"delete_batch_id"`
}
