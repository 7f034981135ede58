package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/voyagefriend/trip-planner-api/internal/domain"
	clockport "github.com/voyagefriend/trip-planner-api/internal/ports/out/clock"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/userrepo"
)

const (
	// DefaultBcryptCost is the work factor for stored password hashes.
	DefaultBcryptCost = 12
	MinPasswordLength = 6
	// MaxPasswordBytes is the longest input bcrypt will hash.
	MaxPasswordBytes = 72
)

// ErrUserNotFound is returned by ResolveIdentity when the token subject no longer exists.
var ErrUserNotFound = errors.New("user not found")

type Service struct {
	repo   userrepo.Repository
	tokens TokenIssuer
	clk    clockport.Clock

	newUserID  func() domain.UserID
	bcryptCost int
}

func NewService(repo userrepo.Repository, tokens TokenIssuer, clk clockport.Clock) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		clk:    clk,
		newUserID: func() domain.UserID {
			return domain.UserID(uuid.NewString())
		},
		bcryptCost: DefaultBcryptCost,
	}
}

// SetNewUserIDForTest overrides user ID generation (tests only).
func (s *Service) SetNewUserIDForTest(fn func() domain.UserID) {
	if fn != nil {
		s.newUserID = fn
	}
}

// SetBcryptCostForTest lowers the hashing cost so tests stay fast (tests only).
func (s *Service) SetBcryptCostForTest(cost int) {
	s.bcryptCost = cost
}

func (s *Service) Signup(ctx context.Context, in SignupInput) (domain.User, error) {
	name := domain.NormalizeHumanName(in.Name)
	email := domain.NormalizeEmail(in.Email)

	details := map[string]any{}
	if name == "" {
		details["name"] = "required"
	}
	if email == "" {
		details["email"] = "required"
	} else if err := validateEmail(email); err != nil {
		details["email"] = err.Error()
	}
	if in.Password == "" {
		details["password"] = "required"
	} else if len([]rune(in.Password)) < MinPasswordLength {
		details["password"] = "must be at least 6 characters"
	} else if len(in.Password) > MaxPasswordBytes {
		details["password"] = "must be at most 72 bytes"
	}
	role := domain.RoleMember
	if r := strings.ToLower(strings.TrimSpace(in.Role)); r != "" {
		role = domain.Role(r)
		if !role.Valid() {
			details["role"] = "must be owner or member"
		}
	}
	if len(details) > 0 {
		return domain.User{}, &Error{Status: 400, Code: "VALIDATION_ERROR", Message: "invalid signup request", Details: details}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return domain.User{}, err
	}

	now := s.clk.Now().UTC()
	u := userrepo.User{
		ID:           s.newUserID(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		if errors.Is(err, userrepo.ErrEmailTaken) {
			return domain.User{}, &Error{Status: 400, Code: "USER_EXISTS", Message: "user already exists"}
		}
		return domain.User{}, err
	}
	return toDomain(u), nil
}

// Login checks the credentials and issues a bearer token. Unknown emails and wrong
// passwords produce the same error.
func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	email := domain.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return Session{}, &Error{
			Status:  400,
			Code:    "VALIDATION_ERROR",
			Message: "email and password are required",
		}
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return Session{}, errInvalidCredentials()
		}
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(in.Password)); err != nil {
		return Session{}, errInvalidCredentials()
	}

	token, exp, err := s.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: exp, User: toDomain(u)}, nil
}

func (s *Service) GetByID(ctx context.Context, id domain.UserID) (domain.User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.User{}, &Error{Status: 404, Code: "USER_NOT_FOUND", Message: "user not found"}
		}
		return domain.User{}, err
	}
	return toDomain(u), nil
}

// ResolveIdentity loads the user named by a verified token subject.
// It returns ErrUserNotFound when the user no longer exists.
func (s *Service) ResolveIdentity(ctx context.Context, id domain.UserID) (domain.Identity, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.Identity{}, ErrUserNotFound
		}
		return domain.Identity{}, err
	}
	return domain.Identity{UserID: u.ID, Role: u.Role, Name: u.Name, Email: u.Email}, nil
}

func validateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("must be a valid email address")
	}
	at := strings.LastIndex(email, "@")
	host := email[at+1:]
	if !strings.Contains(host, ".") || strings.HasPrefix(host, ".") || strings.HasSuffix(host, ".") {
		return errors.New("must be a valid email address")
	}
	return nil
}

func toDomain(u userrepo.User) domain.User {
	return domain.User{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
