package pollrepo

import (
	"context"
	"time"

	"github.com/voyagefriend/trip-planner-api/internal/domain"
)

type Poll struct {
	ID     domain.PollID
	TripID domain.TripID

	Title       string
	Description string
	Budget      domain.Budget
	Media       []domain.Media

	CreatedBy domain.UserID
	CreatedAt time.Time
}

type Vote struct {
	PollID    domain.PollID
	UserID    domain.UserID
	Direction domain.VoteDirection
	UpdatedAt time.Time
}

type Repository interface {
	Create(ctx context.Context, p Poll) error
	GetByID(ctx context.Context, id domain.PollID) (Poll, error)

	// ListByTrip returns the polls of a trip ordered by CreatedAt ascending, then ID.
	ListByTrip(ctx context.Context, tripID domain.TripID) ([]Poll, error)

	// Delete removes the poll and all of its votes. It returns ErrNotFound if the poll does not exist.
	Delete(ctx context.Context, id domain.PollID) error

	// DeleteByTrip removes every poll (and vote) of a trip.
	DeleteByTrip(ctx context.Context, tripID domain.TripID) error

	// UpsertVote writes the vote for (poll, user) using last-write-wins semantics.
	UpsertVote(ctx context.Context, v Vote) error

	// DeleteVote removes the vote for (poll, user); removing an absent vote is not an error.
	DeleteVote(ctx context.Context, pollID domain.PollID, userID domain.UserID) error

	// ListVotesByTrip returns every vote cast on polls of the trip.
	ListVotesByTrip(ctx context.Context, tripID domain.TripID) ([]Vote, error)
}
