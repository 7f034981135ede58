package userrepo

import (
	"context"
	"time"

	"github.com/voyagefriend/trip-planner-api/internal/domain"
)

// User is the persistence shape used by the user repository (the credential store).
// It is an internal record, not an HTTP DTO.
type User struct {
	ID   domain.UserID
	Name string
	// Email is stored normalized (see domain.NormalizeEmail) and is unique.
	Email string
	// PasswordHash is a bcrypt hash; the plaintext is never stored.
	PasswordHash string
	Role         domain.Role

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository provides access to persisted users.
type Repository interface {
	// Create inserts a user. It returns ErrEmailTaken when the email is already registered.
	Create(ctx context.Context, u User) error

	GetByID(ctx context.Context, id domain.UserID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)

	// ListByIDs returns the users that exist among ids, in no particular order.
	ListByIDs(ctx context.Context, ids []domain.UserID) ([]User, error)
}
