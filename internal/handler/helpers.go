package handler

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"cabinet/internal/domain"
	"cabinet/internal/httputil"
)

// handleError converts domain errors to HTTP responses
func handleError(w http.ResponseWriter, err error) {
	// Conflicts identify the existing row as problem extension members
	var conflictErr *domain.ConflictError
	if errors.As(err, &conflictErr) {
		httputil.RespondErrorWithExtras(w, conflictErr.StatusCode(), conflictErr.Error(), map[string]interface{}{
			"resource_type": conflictErr.ResourceType,
			"resource_id":   conflictErr.ResourceID,
		})
		return
	}

	// Typed errors carry their own status code via the HTTPError interface.
	var httpErr domain.HTTPError
	if errors.As(err, &httpErr) {
		httputil.RespondError(w, httpErr.StatusCode(), httpErr.Error())
		return
	}

	switch {
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrCircular):
		httputil.RespondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrTooLarge):
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, err.Error())
	default:
		// Everything else, including consistency failures, stays opaque.
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// HandleCreateConflict answers a create that hit a live-sibling name
// conflict with 409 and the existing row as the body. Non-conflict errors
// fall through to handleError.
func HandleCreateConflict[T any](w http.ResponseWriter, err error, fetchFn func() (*T, error)) {
	var conflictErr *domain.ConflictError
	if !errors.As(err, &conflictErr) {
		handleError(w, err)
		return
	}

	existing, fetchErr := fetchFn()
	if fetchErr != nil {
		handleError(w, fetchErr)
		return
	}

	httputil.RespondJSON(w, http.StatusConflict, existing)
}

// ownerFromRequest returns the owner id the auth middleware stored on the
// request context.
func ownerFromRequest(r *http.Request) (uuid.UUID, error) {
	raw := httputil.GetOwnerID(r)
	if raw == "" {
		return uuid.Nil, &domain.UnauthorizedError{Message: "missing authenticated owner"}
	}

	ownerID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &domain.UnauthorizedError{Message: "invalid owner id in token"}
	}
	return ownerID, nil
}

// pathUUID parses the named path segment as a UUID.
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := r.PathValue(name)
	if raw == "" {
		return uuid.Nil, &domain.ValidationError{Message: name + " is required"}
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &domain.ValidationError{Message: "invalid " + name + ": " + raw}
	}
	return id, nil
}
