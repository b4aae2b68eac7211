package services

import (
	"context"

	"github.com/google/uuid"

	"cabinet/internal/domain/models"
)

// FileService handles file business logic. Files are leaf entries; their
// bytes live behind external storage and only metadata moves through here.
type FileService interface {
	// CreateFile registers a new file entry in the requested folder
	CreateFile(ctx context.Context, ownerID uuid.UUID, req *CreateFileRequest) (*models.File, error)

	// GetFile retrieves a file entry
	GetFile(ctx context.Context, ownerID, fileID uuid.UUID) (*models.File, error)

	// RenameFile changes a file's name
	RenameFile(ctx context.Context, ownerID, fileID uuid.UUID, req *RenameFileRequest) (*models.File, error)

	// MoveFile relocates a file to another folder
	MoveFile(ctx context.Context, ownerID, fileID uuid.UUID, req *MoveFileRequest) (*models.File, error)

	// DeleteFile soft-deletes a single file as its own batch
	DeleteFile(ctx context.Context, ownerID, fileID uuid.UUID) (*models.DeleteResult, error)

	// RestoreFile brings back a file deleted on its own. Files deleted as
	// part of a folder batch are restored through the folder.
	RestoreFile(ctx context.Context, ownerID, fileID uuid.UUID) (*models.RestoreResult, error)
}

// CreateFileRequest registers a new file entry. Storage fields are opaque to
// this service and stored as given.
type CreateFileRequest struct {
	FolderID    *uuid.UUID `json:"folder_id,omitempty"` // null for root level
	Name        string     `json:"name"`
	SizeBytes   int64      `json:"size_bytes"`
	ContentHash string     `json:"content_hash"`
	StoragePath string     `json:"storage_path"`
	MimeType    string     `json:"mime_type"`
}

// RenameFileRequest represents a file rename request
type RenameFileRequest struct {
	Name string `json:"name"`
}

// MoveFileRequest represents a file move request
type MoveFileRequest struct {
	NewFolderID *uuid.UUID `json:"new_folder_id"` // null moves to root level
}
