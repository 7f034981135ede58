package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/voyagefriend/trip-planner-api/internal/ports/out/ratelimit"
)

type RouterOptions struct {
	// Tokens verifies bearer tokens for protected routes.
	Tokens TokenVerifier

	// AuthLimiter limits signup/login per client IP; nil disables limiting.
	AuthLimiter ratelimit.Limiter

	CORSOrigins  []string
	MaxBodyBytes int64
}

// NewRouter constructs the API HTTP router.
func NewRouter(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(echoRequestID)
	r.Use(middleware.RealIP)
	r.Use(NewRequestLogger(s.Log))
	r.Use(middleware.Recoverer)
	if len(opts.CORSOrigins) > 0 {
		r.Use(NewCORSHandler(opts.CORSOrigins))
	}
	r.Use(NewMaxBodySizeHandler(opts.MaxBodyBytes))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "NOT_FOUND", "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	// Health endpoint is unauthenticated (used for infra checks).
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	requireAuth := NewAuthMiddleware(opts.Tokens, s.Users, s.Log)
	wsAuth := NewQueryTokenAuthMiddleware(opts.Tokens, s.Users, s.Log)
	authLimit := NewRateLimitMiddleware(opts.AuthLimiter, "auth", s.Clock, s.Log)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(authLimit).Post("/signup", s.Signup)
			r.With(authLimit).Post("/login", s.Login)
			r.With(requireAuth).Get("/me", s.Me)
		})

		r.Route("/trips", func(r chi.Router) {
			r.Get("/", s.ListTrips)
			r.Get("/{tripId}", s.GetTrip)
			r.With(wsAuth).Get("/{tripId}/itinerary/ws", s.ItineraryWS)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", s.CreateTrip)
				r.Put("/{tripId}", s.UpdateTrip)
				r.Delete("/{tripId}", s.DeleteTrip)
				r.Put("/{tripId}/add-participant", s.AddParticipant)
				r.Put("/{tripId}/remove-participant", s.RemoveParticipant)

				r.Get("/{tripId}/polls", s.ListPolls)
				r.Post("/{tripId}/polls", s.CreatePoll)
				r.Delete("/{tripId}/polls/{pollId}", s.DeletePoll)
				r.Put("/{tripId}/polls/{pollId}/vote", s.VotePoll)
				r.Delete("/{tripId}/polls/{pollId}/vote", s.ClearPollVote)
			})
		})

		r.Post("/recommendations", s.Recommend)
		r.With(requireAuth).Get("/weather", s.CurrentWeather)
	})

	return r
}
