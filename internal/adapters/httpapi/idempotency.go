package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/voyagefriend/trip-planner-api/internal/domain"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/idempotency"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"
	maxIdempotencyKeyLen = 200
)

// idempotentCreate runs create at most once per (caller, Idempotency-Key, route) when the
// header is present:
// - same key and body: the stored response is replayed;
// - same key, different body: 409 IDEMPOTENCY_KEY_REUSE.
//
// create returns the response payload for a 201. Errors are written as usual and not stored.
func (s *Server) idempotentCreate(w http.ResponseWriter, r *http.Request, caller domain.Identity, body any, create func() (any, error)) {
	key := strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
	if key == "" || s.Idem == nil {
		s.runCreate(w, r, create)
		return
	}
	if len(key) > maxIdempotencyKeyLen {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid Idempotency-Key", map[string]any{"Idempotency-Key": "too long"})
		return
	}

	bodyHash, err := hashBody(body)
	if err != nil {
		writeInternalError(w, r, s.Log, err)
		return
	}
	fp := idempotency.Fingerprint{
		Key:     idempotency.Key(key),
		Subject: caller.UserID,
		Method:  r.Method,
		Route:   r.URL.Path,
	}

	if rec, ok, err := s.Idem.Get(r.Context(), fp); err != nil {
		writeInternalError(w, r, s.Log, err)
		return
	} else if ok {
		if rec.BodyHash != bodyHash {
			writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
			return
		}
		w.Header().Set("Content-Type", rec.ContentType)
		w.Header().Set(replayedHeader, "true")
		w.WriteHeader(rec.StatusCode)
		_, _ = w.Write(rec.Body)
		return
	}

	resp, err := create()
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		writeInternalError(w, r, s.Log, err)
		return
	}
	raw = append(raw, '\n')
	if err := s.Idem.Put(r.Context(), fp, idempotency.Record{
		BodyHash:    bodyHash,
		StatusCode:  http.StatusCreated,
		ContentType: "application/json",
		Body:        raw,
		CreatedAt:   s.Clock.Now().UTC(),
	}); err != nil {
		// The create already happened; a lost record only disables replay for this key.
		s.Log.Warn("store idempotency record", zap.String("route", fp.Route), zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(raw)
}

func (s *Server) runCreate(w http.ResponseWriter, r *http.Request, create func() (any, error)) {
	resp, err := create()
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}
