package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/voyagefriend/trip-planner-api/internal/app/users"
	"github.com/voyagefriend/trip-planner-api/internal/domain"
	"github.com/voyagefriend/trip-planner-api/internal/platform/auth/tokens"
)

// TokenVerifier checks a bearer token and returns the identity it asserts.
type TokenVerifier interface {
	Verify(token string) (tokens.Identity, error)
}

// IdentityResolver loads the current user named by a verified token.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, id domain.UserID) (domain.Identity, error)
}

// NewAuthMiddleware enforces Authorization: Bearer <token>.
//
// On success, it stores the caller's identity in request context.
func NewAuthMiddleware(v TokenVerifier, res IdentityResolver, log *zap.Logger) func(http.Handler) http.Handler {
	return newAuthMiddleware(v, res, log, false)
}

// NewQueryTokenAuthMiddleware also accepts the token in the access_token query
// parameter, for WebSocket clients that cannot set headers.
func NewQueryTokenAuthMiddleware(v TokenVerifier, res IdentityResolver, log *zap.Logger) func(http.Handler) http.Handler {
	return newAuthMiddleware(v, res, log, true)
}

func newAuthMiddleware(v TokenVerifier, res IdentityResolver, log *zap.Logger, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" && allowQuery {
				raw = strings.TrimSpace(r.URL.Query().Get("access_token"))
			}
			if raw == "" {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "no token provided", nil)
				return
			}

			claims, err := v.Verify(raw)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token", nil)
				return
			}

			id, err := res.ResolveIdentity(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, users.ErrUserNotFound) {
					writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "user not found", nil)
					return
				}
				writeInternalError(w, r, log, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// bearerToken extracts the token of an "Authorization: Bearer" header. A header with
// another scheme yields a non-empty value so it fails verification as an invalid token.
func bearerToken(r *http.Request) string {
	authz := strings.TrimSpace(r.Header.Get("Authorization"))
	if authz == "" {
		return ""
	}
	const prefix = "bearer "
	if len(authz) >= len(prefix) && strings.EqualFold(authz[:len(prefix)], prefix) {
		return strings.TrimSpace(authz[len(prefix):])
	}
	return authz
}
