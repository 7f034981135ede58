package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voyagefriend/trip-planner-api/internal/app/polls"
	"github.com/voyagefriend/trip-planner-api/internal/domain"
	"github.com/voyagefriend/trip-planner-api/internal/platform/timeouts"
)

func pollIDParam(r *http.Request) domain.PollID {
	return domain.PollID(chi.URLParam(r, "pollId"))
}

func (s *Server) ListPolls(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), s.Log, "polls.list")
	defer cancel()

	ps, err := s.Polls.List(ctx, caller, tripIDParam(r))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	out := make([]Poll, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPoll(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) CreatePoll(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())
	var req CreatePollRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), s.Log, "polls.create")
	defer cancel()

	in := polls.CreatePollInput{Title: req.Title, Description: req.Description}
	if req.Budget != nil {
		in.BudgetAmount = req.Budget.Amount
		in.BudgetCurrency = req.Budget.Currency
	}
	for _, m := range req.Media {
		in.Media = append(in.Media, polls.MediaInput{Type: m.Type, URL: m.URL, Thumbnail: m.Thumbnail})
	}

	s.idempotentCreate(w, r.WithContext(ctx), caller, req, func() (any, error) {
		p, err := s.Polls.Create(ctx, caller, tripIDParam(r), in)
		if err != nil {
			return nil, err
		}
		return toPoll(p), nil
	})
}

func (s *Server) VotePoll(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())
	var req VoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), s.Log, "polls.vote")
	defer cancel()

	p, err := s.Polls.Vote(ctx, caller, tripIDParam(r), pollIDParam(r), req.Direction)
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPoll(p))
}

func (s *Server) ClearPollVote(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), s.Log, "polls.clear_vote")
	defer cancel()

	p, err := s.Polls.ClearVote(ctx, caller, tripIDParam(r), pollIDParam(r))
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, toPoll(p))
}

func (s *Server) DeletePoll(w http.ResponseWriter, r *http.Request) {
	caller, _ := IdentityFromContext(r.Context())
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), s.Log, "polls.delete")
	defer cancel()

	if err := s.Polls.Delete(ctx, caller, tripIDParam(r), pollIDParam(r)); err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
