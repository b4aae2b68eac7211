package services

import (
	"context"

	"github.com/google/uuid"
)

// ResourceAuthorizer checks if a caller can access resources.
// Current implementation: ownership-based (the caller owns the hierarchy
// entry). Future: roles, permissions, sharing, etc.
//
// Design principle: Services call authorizer before operating on resources.
// This separates authorization (who can access) from identification (which resource).
type ResourceAuthorizer interface {
	// CanAccessFolder checks if ownerID can access a folder
	CanAccessFolder(ctx context.Context, ownerID, folderID uuid.UUID) error

	// CanAccessFile checks if ownerID can access a file
	CanAccessFile(ctx context.Context, ownerID, fileID uuid.UUID) error
}
