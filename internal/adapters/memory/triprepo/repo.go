package triprepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/voyagefriend/trip-planner-api/internal/domain"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/triprepo"
)

// Repo is an in-memory implementation of triprepo.Repository.
// It is safe for concurrent use; participant mutations check and write under one lock.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.TripID]triprepo.Trip
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.TripID]triprepo.Trip),
	}
}

func (r *Repo) Create(ctx context.Context, t triprepo.Trip) error {
	_ = ctx
	if t.ID == "" {
		return triprepo.ErrAlreadyExists // treat empty ID as invalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[t.ID]; ok {
		return triprepo.ErrAlreadyExists
	}
	r.byID[t.ID] = cloneTrip(t)
	return nil
}

func (r *Repo) Save(ctx context.Context, t triprepo.Trip) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[t.ID]
	if !ok {
		return triprepo.ErrNotFound
	}
	existing.Name = t.Name
	existing.Destination = t.Destination
	existing.StartDate = t.StartDate
	existing.EndDate = t.EndDate
	existing.Description = cloneStringPtr(t.Description)
	existing.Interests = cloneStrings(t.Interests)
	existing.Party = cloneParty(t.Party)
	existing.UpdatedAt = t.UpdatedAt
	r.byID[t.ID] = existing
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.TripID) (triprepo.Trip, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return triprepo.Trip{}, triprepo.ErrNotFound
	}
	return cloneTrip(t), nil
}

func (r *Repo) List(ctx context.Context) ([]triprepo.Trip, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]triprepo.Trip, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, cloneTrip(t))
	}
	sortTrips(out)
	return out, nil
}

func (r *Repo) Delete(ctx context.Context, id domain.TripID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return triprepo.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *Repo) AddParticipant(ctx context.Context, id domain.TripID, user domain.UserID, at time.Time) (triprepo.Trip, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return triprepo.Trip{}, triprepo.ErrNotFound
	}
	if domain.ContainsUserID(t.Participants, user) {
		return triprepo.Trip{}, triprepo.ErrAlreadyParticipant
	}
	t.Participants = append(append([]domain.UserID(nil), t.Participants...), user)
	t.UpdatedAt = at
	r.byID[id] = t
	return cloneTrip(t), nil
}

func (r *Repo) RemoveParticipant(ctx context.Context, id domain.TripID, user domain.UserID, at time.Time) (triprepo.Trip, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byID[id]
	if !ok {
		return triprepo.Trip{}, triprepo.ErrNotFound
	}
	if !domain.ContainsUserID(t.Participants, user) {
		return triprepo.Trip{}, triprepo.ErrNotParticipant
	}
	next := make([]domain.UserID, 0, len(t.Participants)-1)
	for _, p := range t.Participants {
		if p != user {
			next = append(next, p)
		}
	}
	t.Participants = next
	t.UpdatedAt = at
	r.byID[id] = t
	return cloneTrip(t), nil
}

func cloneTrip(t triprepo.Trip) triprepo.Trip {
	cp := t
	cp.Description = cloneStringPtr(t.Description)
	cp.Interests = cloneStrings(t.Interests)
	cp.Party = cloneParty(t.Party)
	if t.Participants != nil {
		cp.Participants = append([]domain.UserID(nil), t.Participants...)
	}
	return cp
}

func cloneParty(p *domain.TravelParty) *domain.TravelParty {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func sortTrips(ts []triprepo.Trip) {
	// startDate ascending; ties broken by createdAt, then ID.
	sort.Slice(ts, func(i, j int) bool {
		a, b := ts[i], ts[j]
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return string(a.ID) < string(b.ID)
	})
}
