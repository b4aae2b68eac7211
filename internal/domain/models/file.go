package models

import (
	"time"

	"github.com/google/uuid"
)

// File is a leaf entry referencing externally stored content. The bytes
// themselves live behind the storage adapter; this row only carries the
// opaque storage path and content hash it was registered with.
type File struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	OwnerID       uuid.UUID  `json:"owner_id" db:"owner_id"`
	FolderID      *uuid.UUID `json:"folder_id" db:"folder_id"` // NULL = root level
	Name          string     `json:"name" db:"name"`
	SizeBytes     int64      `json:"size_bytes" db:"size_bytes"`
	ContentHash   string     `json:"content_hash" db:"content_hash"`
	StoragePath   string     `json:"storage_path" db:"storage_path"`
	MimeType      string     `json:"mime_type" db:"mime_type"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	DeleteBatchID *uuid.UUID `json:"delete_batch_id,omitempty" db:"delete_batch_id"`
}

// IsDeleted reports whether the file is in the trash.
func (f *File) IsDeleted() bool {
	return f.DeletedAt != nil
}
