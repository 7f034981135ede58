package users

import (
	"time"

	"github.com/voyagefriend/trip-planner-api/internal/domain"
)

type SignupInput struct {
	Name     string
	Email    string
	Password string
	// Role is optional; empty means member.
	Role string
}

type LoginInput struct {
	Email    string
	Password string
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

// TokenIssuer mints bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID domain.UserID, role domain.Role) (string, time.Time, error)
}
