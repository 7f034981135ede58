// Package tokens issues and verifies the service's HS256 bearer tokens.
//
// A token carries the user id in `sub` and the user's role in `role`. Tokens are
// stateless: there is no revocation or refresh.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/voyagefriend/trip-planner-api/internal/domain"
	"github.com/voyagefriend/trip-planner-api/internal/platform/config"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/clock"
)

var ErrUnauthorized = errors.New("unauthorized")

// Claims is the token payload.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is what a verified token asserts.
type Identity struct {
	UserID domain.UserID
	Role   domain.Role
}

type Manager struct {
	cfg   config.TokenConfig
	clock clock.Clock
}

func NewManager(cfg config.TokenConfig, clk clock.Clock) (*Manager, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("token TTL must be positive")
	}
	return &Manager{cfg: cfg, clock: clk}, nil
}

// Issue signs a token for the user valid for the configured TTL.
func (m *Manager) Issue(userID domain.UserID, role domain.Role) (string, time.Time, error) {
	now := m.clock.Now()
	exp := now.Add(m.cfg.TTL)
	claims := Claims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.cfg.Issuer,
			Subject:   string(userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Verify checks signature, algorithm, issuer and expiry. Every failure wraps ErrUnauthorized.
func (m *Manager) Verify(token string) (Identity, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return m.cfg.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.cfg.ClockSkew),
		jwt.WithTimeFunc(m.clock.Now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return Identity{}, fmt.Errorf("%w: missing subject", ErrUnauthorized)
	}
	return Identity{UserID: domain.UserID(claims.Subject), Role: domain.Role(claims.Role)}, nil
}
