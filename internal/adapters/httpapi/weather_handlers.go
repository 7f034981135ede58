package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/voyagefriend/trip-planner-api/internal/platform/timeouts"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/weather"
)

func (s *Server) CurrentWeather(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "query parameter q is required", map[string]any{"q": "required"})
		return
	}
	if s.Weather == nil {
		writeError(w, r, http.StatusServiceUnavailable, "WEATHER_DISABLED", "weather lookups are not configured", nil)
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), s.Log, "weather.current")
	defer cancel()

	rep, err := s.Weather.Current(ctx, q)
	if err != nil {
		switch {
		case errors.Is(err, weather.ErrLocationNotFound):
			writeError(w, r, http.StatusNotFound, "LOCATION_NOT_FOUND", "location not found", map[string]any{"q": q})
		default:
			s.Log.Warn("weather upstream failed", zap.String("q", q), zap.Error(err))
			writeError(w, r, http.StatusBadGateway, "WEATHER_UNAVAILABLE", "weather provider unavailable", nil)
		}
		return
	}
	writeJSON(w, http.StatusOK, toWeather(rep))
}
