package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/nullable"
	"go.uber.org/zap"

	"github.com/voyagefriend/trip-planner-api/internal/app/polls"
	"github.com/voyagefriend/trip-planner-api/internal/app/recommendations"
	"github.com/voyagefriend/trip-planner-api/internal/app/trips"
	"github.com/voyagefriend/trip-planner-api/internal/app/users"
)

// ErrorResponse is the single error envelope of the API.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code      string                            `json:"code"`
	Message   string                            `json:"message"`
	Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
	RequestID nullable.Nullable[string]         `json:"requestId,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	var er ErrorResponse
	er.Error.Code = code
	er.Error.Message = message
	if details != nil {
		er.Error.Details = nullable.NewNullableWithValue(details)
	}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestID = nullable.NewNullableWithValue(rid)
	}
	writeJSON(w, status, er)
}

// writeAppError maps application errors to the envelope. Anything unrecognized is
// logged and answered with a generic 500.
func writeAppError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	var (
		te *trips.Error
		ue *users.Error
		pe *polls.Error
		re *recommendations.Error
	)
	switch {
	case errors.As(err, &te):
		writeError(w, r, te.Status, te.Code, te.Message, te.Details)
	case errors.As(err, &ue):
		writeError(w, r, ue.Status, ue.Code, ue.Message, ue.Details)
	case errors.As(err, &pe):
		writeError(w, r, pe.Status, pe.Code, pe.Message, pe.Details)
	case errors.As(err, &re):
		writeError(w, r, re.Status, re.Code, re.Message, re.Details)
	default:
		writeInternalError(w, r, log, err)
	}
}

func writeInternalError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	if log != nil {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
	}
	writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
}
