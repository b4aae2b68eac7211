package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit operation names, one per structural mutation.
const (
	OpFolderCreate  = "folder.create"
	OpFolderRename  = "folder.rename"
	OpFolderMove    = "folder.move"
	OpFolderDelete  = "folder.delete"
	OpFolderRestore = "folder.restore"
	OpFileCreate    = "file.create"
	OpFileRename    = "file.rename"
	OpFileMove      = "file.move"
	OpFileDelete    = "file.delete"
	OpFileRestore   = "file.restore"
)

// AuditEvent describes one committed structural mutation. Events are emitted
// after the transaction commits; a failed emission never affects the
// mutation itself.
type AuditEvent struct {
	ID           uuid.UUID      `json:"id"`
	Operation    string         `json:"operation"`
	OwnerID      uuid.UUID      `json:"owner_id"`
	ResourceType string         `json:"resource_type"` // "folder" or "file"
	ResourceID   uuid.UUID      `json:"resource_id"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}
