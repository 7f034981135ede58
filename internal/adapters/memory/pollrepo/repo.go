package pollrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/voyagefriend/trip-planner-api/internal/domain"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/pollrepo"
)

type voteKey struct {
	poll domain.PollID
	user domain.UserID
}

// Repo is an in-memory implementation of pollrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu    sync.RWMutex
	polls map[domain.PollID]pollrepo.Poll
	votes map[voteKey]pollrepo.Vote
}

func NewRepo() *Repo {
	return &Repo{
		polls: make(map[domain.PollID]pollrepo.Poll),
		votes: make(map[voteKey]pollrepo.Vote),
	}
}

func (r *Repo) Create(ctx context.Context, p pollrepo.Poll) error {
	_ = ctx
	if p.ID == "" {
		return pollrepo.ErrAlreadyExists // treat empty ID as invalid
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.polls[p.ID]; ok {
		return pollrepo.ErrAlreadyExists
	}
	r.polls[p.ID] = clonePoll(p)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.PollID) (pollrepo.Poll, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.polls[id]
	if !ok {
		return pollrepo.Poll{}, pollrepo.ErrNotFound
	}
	return clonePoll(p), nil
}

func (r *Repo) ListByTrip(ctx context.Context, tripID domain.TripID) ([]pollrepo.Poll, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]pollrepo.Poll, 0)
	for _, p := range r.polls {
		if p.TripID == tripID {
			out = append(out, clonePoll(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return string(out[i].ID) < string(out[j].ID)
	})
	return out, nil
}

func (r *Repo) Delete(ctx context.Context, id domain.PollID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.polls[id]; !ok {
		return pollrepo.ErrNotFound
	}
	delete(r.polls, id)
	for k := range r.votes {
		if k.poll == id {
			delete(r.votes, k)
		}
	}
	return nil
}

func (r *Repo) DeleteByTrip(ctx context.Context, tripID domain.TripID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, p := range r.polls {
		if p.TripID != tripID {
			continue
		}
		delete(r.polls, id)
		for k := range r.votes {
			if k.poll == id {
				delete(r.votes, k)
			}
		}
	}
	return nil
}

func (r *Repo) UpsertVote(ctx context.Context, v pollrepo.Vote) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.polls[v.PollID]; !ok {
		return pollrepo.ErrNotFound
	}
	r.votes[voteKey{poll: v.PollID, user: v.UserID}] = v
	return nil
}

func (r *Repo) DeleteVote(ctx context.Context, pollID domain.PollID, userID domain.UserID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.votes, voteKey{poll: pollID, user: userID})
	return nil
}

func (r *Repo) ListVotesByTrip(ctx context.Context, tripID domain.TripID) ([]pollrepo.Vote, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]pollrepo.Vote, 0)
	for k, v := range r.votes {
		if p, ok := r.polls[k.poll]; ok && p.TripID == tripID {
			out = append(out, v)
		}
	}
	return out, nil
}

func clonePoll(p pollrepo.Poll) pollrepo.Poll {
	cp := p
	if p.Media != nil {
		cp.Media = make([]domain.Media, len(p.Media))
		for i, m := range p.Media {
			cp.Media[i] = m
			if m.Thumbnail != nil {
				v := *m.Thumbnail
				cp.Media[i].Thumbnail = &v
			}
		}
	}
	return cp
}
