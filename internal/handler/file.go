package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"cabinet/internal/domain"
	"cabinet/internal/domain/models"
	"cabinet/internal/domain/services"
	"cabinet/internal/httputil"
)

// FileHandler handles file HTTP requests
type FileHandler struct {
	fileService services.FileService
	logger      *slog.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(fileService services.FileService, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		logger:      logger,
	}
}

// CreateFile registers a new file entry
// POST /api/files
// Returns 201 if created, 409 with the existing file if the name is taken
func (h *FileHandler) CreateFile(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		handleError(w, err)
		return
	}

	var req services.CreateFileRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	file, err := h.fileService.CreateFile(r.Context(), ownerID, &req)
	if err != nil {
		HandleCreateConflict(w, err, func() (*models.File, error) {
			var conflictErr *domain.ConflictError
			if errors.As(err, &conflictErr) {
				existingID, parseErr := uuid.Parse(conflictErr.ResourceID)
				if parseErr != nil {
					return nil, err
				}
				return h.fileService.GetFile(r.Context(), ownerID, existingID)
			}
			return nil, err
		})
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, file)
}

// GetFile retrieves a file entry by ID
// GET /api/files/{id}
func (h *FileHandler) GetFile(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		handleError(w, err)
		return
	}

	fileID, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	file, err := h.fileService.GetFile(r.Context(), ownerID, fileID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, file)
}

// RenameFile renames a file in place
// PATCH /api/files/{id}/name
func (h *FileHandler) RenameFile(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		handleError(w, err)
		return
	}

	fileID, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	var req services.RenameFileRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	file, err := h.fileService.RenameFile(r.Context(), ownerID, fileID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, file)
}

// MoveFile relocates a file to another folder
// PATCH /api/files/{id}/parent
func (h *FileHandler) MoveFile(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		handleError(w, err)
		return
	}

	fileID, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	var req services.MoveFileRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	file, err := h.fileService.MoveFile(r.Context(), ownerID, fileID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, file)
}

// DeleteFile soft-deletes a single file
// DELETE /api/files/{id}
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		handleError(w, err)
		return
	}

	fileID, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	result, err := h.fileService.DeleteFile(r.Context(), ownerID, fileID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// RestoreFile restores a file that was deleted on its own
// POST /api/files/{id}/restore
func (h *FileHandler) RestoreFile(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		handleError(w, err)
		return
	}

	fileID, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	result, err := h.fileService.RestoreFile(r.Context(), ownerID, fileID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}
