package httputil

import (
	"encoding/json"
	"net/http"
)

// RespondJSON writes a JSON response with the given status code. The body
// is marshaled before any byte goes out, so an encoding failure still
// produces a clean 500 instead of a truncated response.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		RespondError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(payload)
}

// ProblemDetail is an RFC 9457 problem details body
type ProblemDetail struct {
	Type     string                 `json:"type"`
	Title    string                 `json:"title"`
	Status   int                    `json:"status"`
	Detail   string                 `json:"detail,omitempty"`
	Instance string                 `json:"instance,omitempty"`
	Extra    map[string]interface{} `json:"-"`
}

// MarshalJSON flattens Extra into top-level extension members
func (p ProblemDetail) MarshalJSON() ([]byte, error) {
	m := map[string]interface{}{
		"type":   p.Type,
		"title":  p.Title,
		"status": p.Status,
	}

	if p.Detail != "" {
		m["detail"] = p.Detail
	}
	if p.Instance != "" {
		m["instance"] = p.Instance
	}
	for k, v := range p.Extra {
		m[k] = v
	}

	return json.Marshal(m)
}

// RespondError writes a problem+json error response
func RespondError(w http.ResponseWriter, status int, detail string) {
	RespondErrorWithExtras(w, status, detail, nil)
}

// RespondErrorWithExtras writes a problem+json error response carrying
// extension members, e.g. the existing resource of a name conflict.
func RespondErrorWithExtras(w http.ResponseWriter, status int, detail string, extras map[string]interface{}) {
	problem := ProblemDetail{
		Type:   problemTypeFor(status),
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
		Extra:  extras,
	}

	payload, err := json.Marshal(problem)
	if err != nil {
		// Plain text fallback when the problem body itself cannot encode
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal server error"))
		return
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	w.Write(payload)
}

// problemTypeFor returns the type URI for a status code, pointing at the
// RFC 9110 status definition
func problemTypeFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "https://www.rfc-editor.org/rfc/rfc9110.html#name-400-bad-request"
	case http.StatusUnauthorized:
		return "https://www.rfc-editor.org/rfc/rfc9110.html#name-401-unauthorized"
	case http.StatusForbidden:
		return "https://www.rfc-editor.org/rfc/rfc9110.html#name-403-forbidden"
	case http.StatusNotFound:
		return "https://www.rfc-editor.org/rfc/rfc9110.html#name-404-not-found"
	case http.StatusConflict:
		return "https://www.rfc-editor.org/rfc/rfc9110.html#name-409-conflict"
	case http.StatusRequestEntityTooLarge:
		return "https://www.rfc-editor.org/rfc/rfc9110.html#name-413-content-too-large"
	case http.StatusUnprocessableEntity:
		return "https://www.rfc-editor.org/rfc/rfc9110.html#name-422-unprocessable-content"
	case http.StatusInternalServerError:
		return "https://www.rfc-editor.org/rfc/rfc9110.html#name-500-internal-server-error"
	default:
		return "about:blank"
	}
}
