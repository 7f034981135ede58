package httpapi

import (
	"net/http"

	"github.com/oapi-codegen/runtime/types"

	"github.com/voyagefriend/trip-planner-api/internal/app/users"
	"github.com/voyagefriend/trip-planner-api/internal/platform/timeouts"
)

func (s *Server) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), s.Log, "auth.signup")
	defer cancel()

	u, err := s.Users.Signup(ctx, users.SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUser(u))
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), s.Log, "auth.login")
	defer cancel()

	sess, err := s.Users.Login(ctx, users.LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		writeAppError(w, r, s.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		User:      toUser(sess.User),
	})
}

func (s *Server) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "no token provided", nil)
		return
	}
	writeJSON(w, http.StatusOK, User{
		ID:    string(id.UserID),
		Name:  id.Name,
		Email: types.Email(id.Email),
		Role:  string(id.Role),
	})
}
