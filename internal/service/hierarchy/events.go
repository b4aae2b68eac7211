package hierarchy

import (
	"context"

	"github.com/google/uuid"

	"cabinet/internal/audit"
	"cabinet/internal/domain/models"
	"cabinet/internal/metrics"
)

// emitEvent records a committed mutation and bumps the operation counter.
// Runs after the transaction; publish failures stay inside the recorder.
func emitEvent(ctx context.Context, recorder audit.Recorder, op string, ownerID uuid.UUID, resourceType string, resourceID uuid.UUID, metadata map[string]any) {
	metrics.IncOperation(op)
	recorder.Record(ctx, models.AuditEvent{
		Operation:    op,
		OwnerID:      ownerID,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metadata,
	})
}

// sameFolderRef reports whether two optional folder references point at the
// same location (both nil means root level)
func sameFolderRef(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// folderIDs flattens a depth listing to bare folder ids
func folderIDs(depths []models.FolderDepth) []uuid.UUID {
	ids := make([]uuid.UUID, len(depths))
	for i, d := range depths {
		ids[i] = d.FolderID
	}
	return ids
}
