package domain

import "time"

// Role is the enumerated role chosen at signup.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleMember
}

// User is the domain representation of an account. The password hash never
// leaves the users service.
type User struct {
	ID    UserID
	Name  string
	Email string
	Role  Role

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserSummary is the public projection of a user embedded in trip reads.
type UserSummary struct {
	ID    UserID
	Name  string
	Email string
}

// Identity is the authenticated caller attached to a request by the auth guard.
type Identity struct {
	UserID UserID
	Role   Role
	Name   string
	Email  string
}
