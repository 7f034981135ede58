package trips

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/voyagefriend/trip-planner-api/internal/domain"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/clock"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/pollrepo"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/triprepo"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/userrepo"
)

type Service struct {
	trips triprepo.Repository
	users userrepo.Repository
	polls pollrepo.Repository
	clock clock.Clock

	newTripID func() domain.TripID
}

func NewService(tripsRepo triprepo.Repository, usersRepo userrepo.Repository, pollsRepo pollrepo.Repository, clk clock.Clock) *Service {
	return &Service{
		trips: tripsRepo,
		users: usersRepo,
		polls: pollsRepo,
		clock: clk,
		newTripID: func() domain.TripID {
			return domain.TripID(uuid.NewString())
		},
	}
}

// SetNewTripIDForTest overrides trip ID generation (tests only).
func (s *Service) SetNewTripIDForTest(fn func() domain.TripID) {
	if fn != nil {
		s.newTripID = fn
	}
}

// List returns every trip ordered by start date, with the creator expanded.
func (s *Service) List(ctx context.Context) ([]domain.Trip, error) {
	ts, err := s.trips.List(ctx)
	if err != nil {
		return nil, err
	}
	return s.expand(ctx, ts)
}

func (s *Service) Get(ctx context.Context, tripID domain.TripID) (domain.Trip, error) {
	t, err := s.load(ctx, tripID)
	if err != nil {
		return domain.Trip{}, err
	}
	return s.expandOne(ctx, t)
}

func (s *Service) Create(ctx context.Context, caller domain.Identity, in CreateTripInput) (domain.Trip, error) {
	if caller.UserID == "" {
		return domain.Trip{}, errUnauthenticated()
	}

	name := domain.NormalizeHumanName(in.Name)
	destination := domain.NormalizeHumanName(in.Destination)
	details := map[string]any{}
	if name == "" {
		details["name"] = "required"
	}
	if destination == "" {
		details["destination"] = "required"
	}
	if in.StartDate.IsZero() {
		details["startDate"] = "required"
	}
	if in.EndDate.IsZero() {
		details["endDate"] = "required"
	}
	if len(details) > 0 {
		return domain.Trip{}, &Error{Status: 400, Code: "VALIDATION_ERROR", Message: "missing required fields", Details: details}
	}

	start, end := dateOnly(in.StartDate), dateOnly(in.EndDate)
	if end.Before(start) {
		return domain.Trip{}, errDateRange()
	}
	party, err := travelParty(in.Travelers, in.Pets, in.Children)
	if err != nil {
		return domain.Trip{}, err
	}

	now := s.clock.Now().UTC()
	t := triprepo.Trip{
		ID:           s.newTripID(),
		Name:         name,
		Destination:  destination,
		StartDate:    start,
		EndDate:      end,
		Description:  normalizeDescription(in.Description),
		Interests:    normalizeInterests(in.Interests),
		Party:        party,
		CreatedBy:    caller.UserID,
		Participants: []domain.UserID{caller.UserID},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.trips.Create(ctx, t); err != nil {
		return domain.Trip{}, err
	}
	return s.expandOne(ctx, t)
}

func (s *Service) Update(ctx context.Context, caller domain.Identity, tripID domain.TripID, in UpdateTripInput) (domain.Trip, error) {
	t, err := s.loadAuthorized(ctx, domain.ActionUpdateTrip, tripID, caller)
	if err != nil {
		return domain.Trip{}, err
	}

	if in.Name.IsSpecified() {
		name := ""
		if !in.Name.IsNull() {
			name = domain.NormalizeHumanName(in.Name.Value())
		}
		if name == "" {
			return domain.Trip{}, &Error{Status: 400, Code: "VALIDATION_ERROR", Message: "invalid name", Details: map[string]any{"name": "must be non-empty"}}
		}
		t.Name = name
	}
	if in.Destination.IsSpecified() {
		destination := ""
		if !in.Destination.IsNull() {
			destination = domain.NormalizeHumanName(in.Destination.Value())
		}
		if destination == "" {
			return domain.Trip{}, &Error{Status: 400, Code: "VALIDATION_ERROR", Message: "invalid destination", Details: map[string]any{"destination": "must be non-empty"}}
		}
		t.Destination = destination
	}
	if in.StartDate.IsSpecified() {
		if in.StartDate.IsNull() || in.StartDate.Value().IsZero() {
			return domain.Trip{}, &Error{Status: 400, Code: "VALIDATION_ERROR", Message: "invalid startDate", Details: map[string]any{"startDate": "cannot be null"}}
		}
		t.StartDate = dateOnly(in.StartDate.Value())
	}
	if in.EndDate.IsSpecified() {
		if in.EndDate.IsNull() || in.EndDate.Value().IsZero() {
			return domain.Trip{}, &Error{Status: 400, Code: "VALIDATION_ERROR", Message: "invalid endDate", Details: map[string]any{"endDate": "cannot be null"}}
		}
		t.EndDate = dateOnly(in.EndDate.Value())
	}
	if in.Description.IsSpecified() {
		if in.Description.IsNull() {
			t.Description = nil
		} else {
			v := in.Description.Value()
			t.Description = normalizeDescription(&v)
		}
	}
	if in.Interests.IsSpecified() {
		if in.Interests.IsNull() {
			t.Interests = nil
		} else {
			t.Interests = normalizeInterests(in.Interests.Value())
		}
	}

	if in.Travelers.IsSpecified() || in.Pets.IsSpecified() || in.Children.IsSpecified() {
		var cur domain.TravelParty
		if t.Party != nil {
			cur = *t.Party
		}
		travelers := string(cur.Group)
		if in.Travelers.IsSpecified() {
			travelers = ""
			if !in.Travelers.IsNull() {
				travelers = in.Travelers.Value()
			}
		}
		if travelers == "" {
			cur = domain.TravelParty{}
		}
		pets, children := cur.Pets, cur.Children
		if in.Pets.IsSpecified() {
			pets = !in.Pets.IsNull() && in.Pets.Value()
		}
		if in.Children.IsSpecified() {
			children = !in.Children.IsNull() && in.Children.Value()
		}
		party, err := travelParty(travelers, pets, children)
		if err != nil {
			return domain.Trip{}, err
		}
		t.Party = party
	}

	if t.EndDate.Before(t.StartDate) {
		return domain.Trip{}, errDateRange()
	}

	t.UpdatedAt = s.clock.Now().UTC()
	if err := s.trips.Save(ctx, t); err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return domain.Trip{}, errTripNotFound()
		}
		return domain.Trip{}, err
	}
	return s.expandOne(ctx, t)
}

// Delete removes the trip and its polls.
func (s *Service) Delete(ctx context.Context, caller domain.Identity, tripID domain.TripID) error {
	if _, err := s.loadAuthorized(ctx, domain.ActionDeleteTrip, tripID, caller); err != nil {
		return err
	}
	// Polls go first so a failure leaves the trip in place to retry the delete.
	if err := s.polls.DeleteByTrip(ctx, tripID); err != nil {
		return err
	}
	if err := s.trips.Delete(ctx, tripID); err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return errTripNotFound()
		}
		return err
	}
	return nil
}

func (s *Service) AddParticipant(ctx context.Context, caller domain.Identity, tripID domain.TripID, target domain.UserID) (domain.Trip, error) {
	if _, err := s.loadAuthorized(ctx, domain.ActionManageParticipants, tripID, caller); err != nil {
		return domain.Trip{}, err
	}
	if err := validateTarget(target); err != nil {
		return domain.Trip{}, err
	}
	if _, err := s.users.GetByID(ctx, target); err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.Trip{}, &Error{Status: 404, Code: "USER_NOT_FOUND", Message: "user not found", Details: map[string]any{"userId": string(target)}}
		}
		return domain.Trip{}, err
	}

	t, err := s.trips.AddParticipant(ctx, tripID, target, s.clock.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, triprepo.ErrNotFound):
			return domain.Trip{}, errTripNotFound()
		case errors.Is(err, triprepo.ErrAlreadyParticipant):
			return domain.Trip{}, &Error{Status: 400, Code: "ALREADY_PARTICIPANT", Message: "user is already a participant"}
		default:
			return domain.Trip{}, err
		}
	}
	return s.expandOne(ctx, t)
}

func (s *Service) RemoveParticipant(ctx context.Context, caller domain.Identity, tripID domain.TripID, target domain.UserID) (domain.Trip, error) {
	cur, err := s.loadAuthorized(ctx, domain.ActionManageParticipants, tripID, caller)
	if err != nil {
		return domain.Trip{}, err
	}
	if err := validateTarget(target); err != nil {
		return domain.Trip{}, err
	}
	if target == cur.CreatedBy {
		return domain.Trip{}, &Error{Status: 400, Code: "CANNOT_REMOVE_OWNER", Message: "the trip owner cannot be removed"}
	}

	t, err := s.trips.RemoveParticipant(ctx, tripID, target, s.clock.Now().UTC())
	if err != nil {
		switch {
		case errors.Is(err, triprepo.ErrNotFound):
			return domain.Trip{}, errTripNotFound()
		case errors.Is(err, triprepo.ErrNotParticipant):
			return domain.Trip{}, &Error{Status: 400, Code: "NOT_PARTICIPANT", Message: "user is not a participant"}
		default:
			return domain.Trip{}, err
		}
	}
	return s.expandOne(ctx, t)
}

// Authorize loads the trip and applies the trip policy for action. It is the
// entry point other services (polls, itinerary) use to check trip access.
func (s *Service) Authorize(ctx context.Context, action domain.Action, tripID domain.TripID, caller domain.Identity) (domain.Trip, error) {
	t, err := s.loadAuthorized(ctx, action, tripID, caller)
	if err != nil {
		return domain.Trip{}, err
	}
	return toDomain(t), nil
}

func (s *Service) load(ctx context.Context, tripID domain.TripID) (triprepo.Trip, error) {
	if _, err := uuid.Parse(string(tripID)); err != nil {
		return triprepo.Trip{}, &Error{Status: 400, Code: "INVALID_ID", Message: "invalid trip id"}
	}
	t, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		if errors.Is(err, triprepo.ErrNotFound) {
			return triprepo.Trip{}, errTripNotFound()
		}
		return triprepo.Trip{}, err
	}
	return t, nil
}

func (s *Service) loadAuthorized(ctx context.Context, action domain.Action, tripID domain.TripID, caller domain.Identity) (triprepo.Trip, error) {
	if caller.UserID == "" {
		return triprepo.Trip{}, errUnauthenticated()
	}
	t, err := s.load(ctx, tripID)
	if err != nil {
		return triprepo.Trip{}, err
	}
	if err := authorize(action, t, caller); err != nil {
		return triprepo.Trip{}, err
	}
	return t, nil
}

func authorize(action domain.Action, t triprepo.Trip, caller domain.Identity) error {
	if domain.Authorize(action, toDomain(t), caller) {
		return nil
	}
	switch action {
	case domain.ActionUpdateTrip, domain.ActionDeleteTrip, domain.ActionManageParticipants, domain.ActionModeratePolls:
		return &Error{Status: 403, Code: "FORBIDDEN", Message: "only the trip owner can do this"}
	default:
		return &Error{Status: 403, Code: "FORBIDDEN", Message: "not a member of this trip"}
	}
}

func (s *Service) expandOne(ctx context.Context, t triprepo.Trip) (domain.Trip, error) {
	out, err := s.expand(ctx, []triprepo.Trip{t})
	if err != nil {
		return domain.Trip{}, err
	}
	return out[0], nil
}

// expand converts trips to the domain model and attaches creator summaries with
// a single user lookup. Trips whose creator no longer resolves keep Creator nil.
func (s *Service) expand(ctx context.Context, ts []triprepo.Trip) ([]domain.Trip, error) {
	out := make([]domain.Trip, 0, len(ts))
	if len(ts) == 0 {
		return out, nil
	}
	ids := make([]domain.UserID, 0, len(ts))
	for _, t := range ts {
		ids = append(ids, t.CreatedBy)
	}
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[domain.UserID]domain.UserSummary, len(users))
	for _, u := range users {
		byID[u.ID] = domain.UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	for _, t := range ts {
		d := toDomain(t)
		if c, ok := byID[t.CreatedBy]; ok {
			d.Creator = &c
		}
		out = append(out, d)
	}
	return out, nil
}

func toDomain(t triprepo.Trip) domain.Trip {
	return domain.Trip{
		ID:           t.ID,
		Name:         t.Name,
		Destination:  t.Destination,
		StartDate:    t.StartDate,
		EndDate:      t.EndDate,
		Description:  cloneStringPtr(t.Description),
		Interests:    append([]string(nil), t.Interests...),
		Party:        cloneParty(t.Party),
		CreatedBy:    t.CreatedBy,
		Participants: append([]domain.UserID(nil), t.Participants...),
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func validateTarget(target domain.UserID) error {
	if strings.TrimSpace(string(target)) == "" {
		return &Error{Status: 400, Code: "VALIDATION_ERROR", Message: "userId is required", Details: map[string]any{"userId": "required"}}
	}
	if _, err := uuid.Parse(string(target)); err != nil {
		return &Error{Status: 400, Code: "INVALID_ID", Message: "invalid user id", Details: map[string]any{"userId": string(target)}}
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// travelParty validates a travel party. No travelers and no flags means none.
func travelParty(travelers string, pets, children bool) (*domain.TravelParty, error) {
	if strings.TrimSpace(travelers) == "" {
		if pets || children {
			return nil, &Error{Status: 400, Code: "VALIDATION_ERROR", Message: "invalid travel party", Details: map[string]any{"travelers": "required when pets or children is set"}}
		}
		return nil, nil
	}
	group, ok := domain.ParseTravelGroup(travelers)
	if !ok {
		return nil, &Error{Status: 400, Code: "VALIDATION_ERROR", Message: "invalid travel party", Details: map[string]any{"travelers": "must be solo, partner, friends or family"}}
	}
	if children && !group.AllowsChildren() {
		return nil, &Error{Status: 400, Code: "VALIDATION_ERROR", Message: "invalid travel party", Details: map[string]any{"children": "only friends or family trips can include children"}}
	}
	return &domain.TravelParty{Group: group, Pets: pets, Children: children}, nil
}

func cloneParty(p *domain.TravelParty) *domain.TravelParty {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

func normalizeDescription(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

// normalizeInterests trims entries and drops blanks and case-insensitive duplicates, keeping order.
func normalizeInterests(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = domain.NormalizeHumanName(v)
		if v == "" {
			continue
		}
		k := strings.ToLower(v)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
