package triprepo

import (
	"context"
	"time"

	"github.com/voyagefriend/trip-planner-api/internal/domain"
)

// Trip is the persistence shape used by the trip repository.
// It is not an HTTP DTO.
type Trip struct {
	ID domain.TripID

	Name        string
	Destination string
	StartDate   time.Time
	EndDate     time.Time

	// Description is optional; nil means unset.
	Description *string
	Interests   []string
	// Party is optional; nil means unset.
	Party *domain.TravelParty

	CreatedBy    domain.UserID
	Participants []domain.UserID

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted trips.
//
// Result ordering expectations:
// - List returns trips ordered by StartDate ascending, then CreatedAt, then ID.
//
// Participant mutations are conditional single-step updates: implementations must not
// read the trip and write it back, so concurrent mutations cannot lose each other.
type Repository interface {
	Create(ctx context.Context, t Trip) error

	// Save replaces the mutable trip fields (name, destination, dates, description, interests, party).
	// CreatedBy and Participants are never written by Save.
	Save(ctx context.Context, t Trip) error

	GetByID(ctx context.Context, id domain.TripID) (Trip, error)
	List(ctx context.Context) ([]Trip, error)

	// Delete removes the trip. It returns ErrNotFound if nothing was deleted.
	Delete(ctx context.Context, id domain.TripID) error

	// AddParticipant adds user to the participant set if absent ("add if absent").
	// It returns ErrNotFound or ErrAlreadyParticipant and the resulting trip on success.
	AddParticipant(ctx context.Context, id domain.TripID, user domain.UserID, at time.Time) (Trip, error)

	// RemoveParticipant removes user from the participant set if present ("remove if present").
	// It returns ErrNotFound or ErrNotParticipant and the resulting trip on success.
	RemoveParticipant(ctx context.Context, id domain.TripID, user domain.UserID, at time.Time) (Trip, error)
}
