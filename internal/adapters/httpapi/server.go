package httpapi

import (
	"go.uber.org/zap"

	"github.com/voyagefriend/trip-planner-api/internal/app/itinerary"
	"github.com/voyagefriend/trip-planner-api/internal/app/polls"
	"github.com/voyagefriend/trip-planner-api/internal/app/trips"
	"github.com/voyagefriend/trip-planner-api/internal/app/users"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/clock"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/idempotency"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/weather"
)

// Server holds the application services behind the HTTP handlers.
type Server struct {
	Users *users.Service
	Trips *trips.Service
	Polls *polls.Service
	Hub   *itinerary.Hub
	Idem  idempotency.Store

	// Weather is nil when no upstream API key is configured.
	Weather weather.Provider

	Clock clock.Clock
	Log   *zap.Logger

	// AllowedOrigins gates WebSocket upgrades; "*" allows any origin.
	AllowedOrigins []string
}

type ServerDeps struct {
	Users          *users.Service
	Trips          *trips.Service
	Polls          *polls.Service
	Hub            *itinerary.Hub
	Idem           idempotency.Store
	Weather        weather.Provider
	Clock          clock.Clock
	Log            *zap.Logger
	AllowedOrigins []string
}

func NewServer(d ServerDeps) *Server {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		Users:          d.Users,
		Trips:          d.Trips,
		Polls:          d.Polls,
		Hub:            d.Hub,
		Idem:           d.Idem,
		Weather:        d.Weather,
		Clock:          d.Clock,
		Log:            log,
		AllowedOrigins: d.AllowedOrigins,
	}
}
