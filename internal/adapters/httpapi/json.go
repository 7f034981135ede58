package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON decodes a single JSON object from the request body into dst. On failure it
// writes the error response (400 or 413) and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeError(w, r, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE", "content type must be application/json", nil)
		return false
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
		case errors.Is(err, io.EOF):
			writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "missing request body", nil)
		default:
			writeError(w, r, http.StatusBadRequest, "INVALID_JSON", "malformed JSON body", map[string]any{"reason": err.Error()})
		}
		return false
	}
	if dec.More() {
		writeError(w, r, http.StatusBadRequest, "INVALID_JSON", "body must contain a single JSON object", nil)
		return false
	}
	return true
}

// hashBody fingerprints a decoded request body for idempotency checks. Hashing the
// re-encoded value makes formatting differences irrelevant.
func hashBody(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
