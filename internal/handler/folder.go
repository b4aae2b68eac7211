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

// FolderHandler handles folder HTTP requests
type FolderHandler struct {
	folderService services.FolderService
	logger        *slog.Logger
}

// NewFolderHandler creates a new folder handler
func NewFolderHandler(folderService services.FolderService, logger *slog.Logger) *FolderHandler {
	return &FolderHandler{
		folderService: folderService,
		logger:        logger,
	}
}

// CreateFolder creates a new folder
// POST /api/folders
// Returns 201 if created, 409 with the existing folder if the name is taken
func (h *FolderHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		handleError(w, err)
		return
	}

	var req services.CreateFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	folder, err := h.folderService.CreateFolder(r.Context(), ownerID, &req)
	if err != nil {
		// Handle conflict by fetching and returning the existing folder with 409
		HandleCreateConflict(w, err, func() (*models.Folder, error) {
			var conflictErr *domain.ConflictError
			if errors.As(err, &conflictErr) {
				existingID, parseErr := uuid.Parse(conflictErr.ResourceID)
				if parseErr != nil {
					return nil, err
				}
				return h.folderService.GetFolder(r.Context(), ownerID, existingID)
			}
			return nil, err
		})
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, folder)
}

// GetFolder retrieves a folder by ID with its materialized path
// GET /api/folders/{id}
func (h *FolderHandler) GetFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		handleError(w, err)
		return
	}

	folderID, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	folder, err := h.folderService.GetFolder(r.Context(), ownerID, folderID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// RenameFolder renames a folder in place
// PATCH /api/folders/{id}/name
func (h *FolderHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		handleError(w, err)
		return
	}

	folderID, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	var req services.RenameFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	folder, err := h.folderService.RenameFolder(r.Context(), ownerID, folderID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// MoveFolder re-parents a folder
// PATCH /api/folders/{id}/parent
func (h *FolderHandler) MoveFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		handleError(w, err)
		return
	}

	folderID, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	var req services.MoveFolderRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	folder, err := h.folderService.MoveFolder(r.Context(), ownerID, folderID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, folder)
}

// DeleteFolder soft-deletes a folder together with its whole subtree
// DELETE /api/folders/{id}
func (h *FolderHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		handleError(w, err)
		return
	}

	folderID, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	result, err := h.folderService.DeleteFolder(r.Context(), ownerID, folderID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// RestoreFolder restores a trashed folder and the batch it was deleted with
// POST /api/folders/{id}/restore
func (h *FolderHandler) RestoreFolder(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		handleError(w, err)
		return
	}

	folderID, err := pathUUID(r, "id")
	if err != nil {
		handleError(w, err)
		return
	}

	result, err := h.folderService.RestoreFolder(r.Context(), ownerID, folderID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}
