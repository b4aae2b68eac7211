package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// maxBodyBytes caps request bodies; mutation payloads carry names and ids,
// never file content.
const maxBodyBytes = 1 << 20

// ParseJSON decodes the request body into dest. The body is size-capped
// through MaxBytesReader so oversized requests fail with 413. Unknown
// fields are ignored, letting clients send fields this version does not
// know; real validation happens in the services.
func ParseJSON(w http.ResponseWriter, r *http.Request, dest interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	return nil
}
