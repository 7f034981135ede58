package polls

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/voyagefriend/trip-planner-api/internal/domain"
	clockport "github.com/voyagefriend/trip-planner-api/internal/ports/out/clock"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/pollrepo"
)

// Service manages the polls trip members vote on. Every operation requires the
// caller to be a member of the trip.
type Service struct {
	polls pollrepo.Repository
	trips TripAccess
	clk   clockport.Clock

	newPollID func() domain.PollID
}

func NewService(pollsRepo pollrepo.Repository, trips TripAccess, clk clockport.Clock) *Service {
	return &Service{
		polls: pollsRepo,
		trips: trips,
		clk:   clk,
		newPollID: func() domain.PollID {
			return domain.PollID(uuid.NewString())
		},
	}
}

// SetNewPollIDForTest overrides poll ID generation (tests only).
func (s *Service) SetNewPollIDForTest(fn func() domain.PollID) {
	if fn != nil {
		s.newPollID = fn
	}
}

// List returns the trip's polls oldest first, each with its tally and the caller's vote.
func (s *Service) List(ctx context.Context, caller domain.Identity, tripID domain.TripID) ([]domain.Poll, error) {
	if _, err := s.trips.Authorize(ctx, domain.ActionUsePolls, tripID, caller); err != nil {
		return nil, err
	}
	ps, err := s.polls.ListByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	votes, err := s.polls.ListVotesByTrip(ctx, tripID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Poll, 0, len(ps))
	for _, p := range ps {
		out = append(out, withVotes(p, votes, caller.UserID))
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, caller domain.Identity, tripID domain.TripID, in CreatePollInput) (domain.Poll, error) {
	if _, err := s.trips.Authorize(ctx, domain.ActionUsePolls, tripID, caller); err != nil {
		return domain.Poll{}, err
	}

	title := domain.NormalizeHumanName(in.Title)
	details := map[string]any{}
	if title == "" {
		details["title"] = "required"
	}
	if in.BudgetAmount < 0 {
		details["budget.amount"] = "must be >= 0"
	}
	currency := strings.ToUpper(strings.TrimSpace(in.BudgetCurrency))
	if currency == "" {
		currency = DefaultCurrency
	} else if !isCurrencyCode(currency) {
		details["budget.currency"] = "must be a three letter code"
	}
	media, mediaProblem := validateMedia(in.Media)
	if mediaProblem != "" {
		details["media"] = mediaProblem
	}
	if len(details) > 0 {
		return domain.Poll{}, &Error{Status: 400, Code: "VALIDATION_ERROR", Message: "invalid poll", Details: details}
	}

	p := pollrepo.Poll{
		ID:          s.newPollID(),
		TripID:      tripID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Budget:      domain.Budget{Amount: in.BudgetAmount, Currency: currency},
		Media:       media,
		CreatedBy:   caller.UserID,
		CreatedAt:   s.clk.Now().UTC(),
	}
	if err := s.polls.Create(ctx, p); err != nil {
		return domain.Poll{}, err
	}
	return withVotes(p, nil, caller.UserID), nil
}

// Vote records the caller's vote, replacing any earlier vote on the same poll.
func (s *Service) Vote(ctx context.Context, caller domain.Identity, tripID domain.TripID, pollID domain.PollID, direction string) (domain.Poll, error) {
	dir := domain.VoteDirection(strings.ToLower(strings.TrimSpace(direction)))
	if dir != domain.VoteUp && dir != domain.VoteDown {
		return domain.Poll{}, &Error{Status: 400, Code: "VALIDATION_ERROR", Message: "invalid vote", Details: map[string]any{"direction": "must be up or down"}}
	}
	if _, err := s.loadPoll(ctx, caller, tripID, pollID); err != nil {
		return domain.Poll{}, err
	}
	if err := s.polls.UpsertVote(ctx, pollrepo.Vote{
		PollID:    pollID,
		UserID:    caller.UserID,
		Direction: dir,
		UpdatedAt: s.clk.Now().UTC(),
	}); err != nil {
		if errors.Is(err, pollrepo.ErrNotFound) {
			return domain.Poll{}, errPollNotFound()
		}
		return domain.Poll{}, err
	}
	return s.reload(ctx, caller, pollID)
}

// ClearVote removes the caller's vote. Clearing when no vote exists is not an error.
func (s *Service) ClearVote(ctx context.Context, caller domain.Identity, tripID domain.TripID, pollID domain.PollID) (domain.Poll, error) {
	if _, err := s.loadPoll(ctx, caller, tripID, pollID); err != nil {
		return domain.Poll{}, err
	}
	if err := s.polls.DeleteVote(ctx, pollID, caller.UserID); err != nil {
		return domain.Poll{}, err
	}
	return s.reload(ctx, caller, pollID)
}

// Delete removes a poll. Allowed for the poll creator and the trip owner.
func (s *Service) Delete(ctx context.Context, caller domain.Identity, tripID domain.TripID, pollID domain.PollID) error {
	p, err := s.loadPoll(ctx, caller, tripID, pollID)
	if err != nil {
		return err
	}
	if p.CreatedBy != caller.UserID {
		if _, err := s.trips.Authorize(ctx, domain.ActionModeratePolls, tripID, caller); err != nil {
			return &Error{Status: 403, Code: "FORBIDDEN", Message: "only the poll creator or trip owner can delete this poll"}
		}
	}
	if err := s.polls.Delete(ctx, pollID); err != nil {
		if errors.Is(err, pollrepo.ErrNotFound) {
			return errPollNotFound()
		}
		return err
	}
	return nil
}

// loadPoll checks trip membership and returns the poll, which must belong to tripID.
func (s *Service) loadPoll(ctx context.Context, caller domain.Identity, tripID domain.TripID, pollID domain.PollID) (pollrepo.Poll, error) {
	if _, err := s.trips.Authorize(ctx, domain.ActionUsePolls, tripID, caller); err != nil {
		return pollrepo.Poll{}, err
	}
	if _, err := uuid.Parse(string(pollID)); err != nil {
		return pollrepo.Poll{}, &Error{Status: 400, Code: "INVALID_ID", Message: "invalid poll id"}
	}
	p, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		if errors.Is(err, pollrepo.ErrNotFound) {
			return pollrepo.Poll{}, errPollNotFound()
		}
		return pollrepo.Poll{}, err
	}
	if p.TripID != tripID {
		return pollrepo.Poll{}, errPollNotFound()
	}
	return p, nil
}

func (s *Service) reload(ctx context.Context, caller domain.Identity, pollID domain.PollID) (domain.Poll, error) {
	p, err := s.polls.GetByID(ctx, pollID)
	if err != nil {
		if errors.Is(err, pollrepo.ErrNotFound) {
			return domain.Poll{}, errPollNotFound()
		}
		return domain.Poll{}, err
	}
	votes, err := s.polls.ListVotesByTrip(ctx, p.TripID)
	if err != nil {
		return domain.Poll{}, err
	}
	return withVotes(p, votes, caller.UserID), nil
}

func withVotes(p pollrepo.Poll, votes []pollrepo.Vote, caller domain.UserID) domain.Poll {
	out := domain.Poll{
		ID:          p.ID,
		TripID:      p.TripID,
		Title:       p.Title,
		Description: p.Description,
		Budget:      p.Budget,
		Media:       append([]domain.Media(nil), p.Media...),
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
	}
	for _, v := range votes {
		if v.PollID != p.ID {
			continue
		}
		switch v.Direction {
		case domain.VoteUp:
			out.Votes.Up++
		case domain.VoteDown:
			out.Votes.Down++
		}
		if v.UserID == caller {
			dir := v.Direction
			out.MyVote = &dir
		}
	}
	return out
}

func isCurrencyCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// validateMedia returns the normalized attachments or a problem description.
func validateMedia(in []MediaInput) ([]domain.Media, string) {
	if len(in) == 0 {
		return nil, ""
	}
	if len(in) > MaxMedia {
		return nil, "at most 10 items"
	}
	out := make([]domain.Media, 0, len(in))
	for _, m := range in {
		typ := domain.MediaType(strings.ToLower(strings.TrimSpace(m.Type)))
		if typ != domain.MediaTypeImage && typ != domain.MediaTypeVideo {
			return nil, "type must be image or video"
		}
		u := strings.TrimSpace(m.URL)
		if !isHTTPURL(u) {
			return nil, "url must be an absolute http(s) URL"
		}
		var thumb *string
		if m.Thumbnail != nil {
			t := strings.TrimSpace(*m.Thumbnail)
			if t != "" {
				if !isHTTPURL(t) {
					return nil, "thumbnail must be an absolute http(s) URL"
				}
				thumb = &t
			}
		}
		out = append(out, domain.Media{Type: typ, URL: u, Thumbnail: thumb})
	}
	return out, ""
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
