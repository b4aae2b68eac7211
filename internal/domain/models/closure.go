package models

import "github.com/google/uuid"

// ClosureEntry is one row of the ancestor/descendant index. Every folder has
// a reflexive entry (itself at depth 0) plus one entry per ancestor, so
// subtree and ancestry questions resolve without recursive queries. Rows are
// kept while a folder sits in the trash; liveness is a folder-table concern.
type ClosureEntry struct {
	AncestorID   uuid.UUID `json:"ancestor_id" db:"ancestor_id"`
	DescendantID uuid.UUID `json:"descendant_id" db:"descendant_id"`
	Depth        int       `json:"depth" db:"depth"`
}

// FolderDepth pairs a folder id with its distance from some reference folder.
type FolderDepth struct {
	FolderID uuid.UUID `db:"descendant_id"`
	Depth    int       `db:"depth"`
}

// SubtreeEntry is a live descendant folder with its depth below the
// requested root.
type SubtreeEntry struct {
	Folder Folder `json:"folder"`
	Depth  int    `json:"depth"`
}

// Breadcrumb is one step of a folder's ancestor chain. Breadcrumb slices are
// always ordered root first, the folder itself last.
type Breadcrumb struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}
