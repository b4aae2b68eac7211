package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"cabinet/internal/domain"
	"cabinet/internal/domain/services"
	"cabinet/internal/httputil"
)

// TreeHandler handles HTTP requests for hierarchy reads
type TreeHandler struct {
	treeService services.TreeService
	logger      *slog.Logger
}

// NewTreeHandler creates a new tree handler
func NewTreeHandler(treeService services.TreeService, logger *slog.Logger) *TreeHandler {
	return &TreeHandler{
		treeService: treeService,
		logger:      logger,
	}
}

// ListRootChildren lists the folders and files at the owner's root level
// GET /api/folders
func (h *TreeHandler) ListRootChildren(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		handleError(w, err)
		return
	}

	contents, err := h.treeService.ListChildren(r.Context(), ownerID, nil)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, contents)
}

// ListChildren lists the immediate children of a folder
// GET /api/folders/{id}/children
func (h *TreeHandler) ListChildren(w http.ResponseWriter, r *http.Request) {
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

	contents, err := h.treeService.ListChildren(r.Context(), ownerID, &folderID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, contents)
}

// GetSubtree returns the descendants of a folder with their depths
// GET /api/folders/{id}/subtree?max_depth=N
func (h *TreeHandler) GetSubtree(w http.ResponseWriter, r *http.Request) {
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

	var maxDepth *int
	if raw := r.URL.Query().Get("max_depth"); raw != "" {
		depth, err := strconv.Atoi(raw)
		if err != nil {
			handleError(w, &domain.ValidationError{Message: "max_depth must be an integer"})
			return
		}
		maxDepth = &depth
	}

	entries, err := h.treeService.GetSubtree(r.Context(), ownerID, folderID, maxDepth)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, entries)
}

// GetBreadcrumbs returns the ancestor chain of a folder, root first
// GET /api/folders/{id}/breadcrumbs
func (h *TreeHandler) GetBreadcrumbs(w http.ResponseWriter, r *http.Request) {
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

	crumbs, err := h.treeService.GetBreadcrumbs(r.Context(), ownerID, folderID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, crumbs)
}

// GetTree returns the owner's full nested folder/file tree
// GET /api/tree
func (h *TreeHandler) GetTree(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		handleError(w, err)
		return
	}

	tree, err := h.treeService.GetTree(r.Context(), ownerID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tree)
}

// ListTrash lists the restorable roots of the owner's trash
// GET /api/trash
func (h *TreeHandler) ListTrash(w http.ResponseWriter, r *http.Request) {
	ownerID, err := ownerFromRequest(r)
	if err != nil {
		handleError(w, err)
		return
	}

	entries, err := h.treeService.ListTrash(r.Context(), ownerID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, entries)
}

// HealthCheck is a simple health check endpoint
// GET /health
func (h *TreeHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now(),
	})
}
