package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voyagefriend/trip-planner-api/internal/domain"
	"github.com/voyagefriend/trip-planner-api/internal/platform/timeouts"
)

func tripIDParam(r *http.Request) domain.TripID {
	return domain.TripID(chi.URLParam(r, "tripId"))
}

func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), s.Log, "trips.list")
	defer cancel()

	ts, err := s.Trips.List(ctx)
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	out := make([]Trip, 0, len(ts))
	for _, t := range ts {
		out = append(out, toTrip(t))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), s.Log, "trips.get")
	defer cancel()

	t, err := s.Trips.Get(ctx, tripIDParam(r))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrip(t))
}

func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())
	var req CreateTripRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), s.Log, "trips.create")
	defer cancel()

	s.idempotentCreate(w, r.WithContext(ctx), caller, req, func() (any, error) {
		t, err := s.Trips.Create(ctx, caller, req.toInput())
		if err != nil {
			return nil, err
		}
		return toTrip(t), nil
	})
}

func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())
	var req UpdateTripRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), s.Log, "trips.update")
	defer cancel()

	t, err := s.Trips.Update(ctx, caller, tripIDParam(r), req.toInput())
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrip(t))
}

func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), s.Log, "trips.delete")
	defer cancel()

	tripID := tripIDParam(r)
	if err := s.Trips.Delete(ctx, caller, tripID); err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	if s.Hub != nil {
		s.Hub.CloseRoom(tripID)
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "trip deleted"})
}

func (s *Server) AddParticipant(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())
	var req ParticipantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), s.Log, "trips.add_participant")
	defer cancel()

	t, err := s.Trips.AddParticipant(ctx, caller, tripIDParam(r), domain.UserID(req.UserID))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toTrip(t))
}

func (s *Server) RemoveParticipant(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())
	var req ParticipantRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), s.Log, "trips.remove_participant")
	defer cancel()

	t, err := s.Trips.RemoveParticipant(ctx, caller, tripIDParam(r), domain.UserID(req.UserID))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	// Membership is only checked at upgrade, so drop the removed user's sockets.
	if s.Hub != nil {
		s.Hub.Kick(tripIDParam(r), domain.UserID(req.UserID))
	}
	writeJSON(w, http.StatusOK, toTrip(t))
}
