package users_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	memclock "github.com/voyagefriend/trip-planner-api/internal/adapters/memory/clock"
	memuserrepo "github.com/voyagefriend/trip-planner-api/internal/adapters/memory/userrepo"
	"github.com/voyagefriend/trip-planner-api/internal/app/users"
	"github.com/voyagefriend/trip-planner-api/internal/domain"
	"github.com/voyagefriend/trip-planner-api/internal/platform/auth/tokens"
	"github.com/voyagefriend/trip-planner-api/internal/platform/config"
)

type fixture struct {
	svc    *users.Service
	repo   *memuserrepo.Repo
	tokens *tokens.Manager
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	clk := memclock.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	tm, err := tokens.NewManager(config.TokenConfig{Secret: []byte("test-secret"), TTL: time.Hour, Issuer: "voyagefriend"}, clk)
	if err != nil {
		t.Fatalf("NewManager err=%v", err)
	}
	repo := memuserrepo.NewRepo()
	svc := users.NewService(repo, tm, clk)
	svc.SetBcryptCostForTest(bcrypt.MinCost)
	return fixture{svc: svc, repo: repo, tokens: tm}
}

func requireAppError(t *testing.T, err error, status int, code string) *users.Error {
	t.Helper()
	var ae *users.Error
	if !errors.As(err, &ae) {
		t.Fatalf("expected *users.Error, got %T (%v)", err, err)
	}
	if ae.Status != status || ae.Code != code {
		t.Fatalf("status/code=%d/%s want %d/%s", ae.Status, ae.Code, status, code)
	}
	return ae
}

func TestService_SignupThenLogin_TokenCarriesUserID(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Signup(ctx, users.SignupInput{Name: " Ada  Lovelace ", Email: "A@X.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Signup err=%v", err)
	}
	if u.Name != "Ada Lovelace" || u.Email != "a@x.com" || u.Role != domain.RoleMember {
		t.Fatalf("user=%+v", u)
	}

	stored, err := f.repo.GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID err=%v", err)
	}
	if stored.PasswordHash == "secret1" || bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret1")) != nil {
		t.Fatalf("password not stored as bcrypt hash")
	}

	sess, err := f.svc.Login(ctx, users.LoginInput{Email: "a@x.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login err=%v", err)
	}
	if sess.User.ID != u.ID {
		t.Fatalf("session user=%+v", sess.User)
	}
	id, err := f.tokens.Verify(sess.Token)
	if err != nil {
		t.Fatalf("Verify err=%v", err)
	}
	if id.UserID != u.ID || id.Role != domain.RoleMember {
		t.Fatalf("identity=%+v", id)
	}
}

func TestService_Signup_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		in    users.SignupInput
		field string
	}{
		{"missing name", users.SignupInput{Email: "a@x.com", Password: "secret1"}, "name"},
		{"bad email", users.SignupInput{Name: "A", Email: "not-an-email", Password: "secret1"}, "email"},
		{"short password", users.SignupInput{Name: "A", Email: "a@x.com", Password: "12345"}, "password"},
		{"password over bcrypt limit", users.SignupInput{Name: "A", Email: "a@x.com", Password: strings.Repeat("p", 80)}, "password"},
		{"unknown role", users.SignupInput{Name: "A", Email: "a@x.com", Password: "secret1", Role: "admin"}, "role"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)
			_, err := f.svc.Signup(context.Background(), tc.in)
			ae := requireAppError(t, err, 400, "VALIDATION_ERROR")
			if _, ok := ae.Details[tc.field]; !ok {
				t.Fatalf("details=%v, want key %q", ae.Details, tc.field)
			}
		})
	}
}

func TestService_Signup_OwnerRoleAndDuplicateEmail(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.svc.Signup(ctx, users.SignupInput{Name: "Owner", Email: "o@x.com", Password: "secret1", Role: "OWNER"})
	if err != nil {
		t.Fatalf("Signup err=%v", err)
	}
	if u.Role != domain.RoleOwner {
		t.Fatalf("role=%s", u.Role)
	}

	_, err = f.svc.Signup(ctx, users.SignupInput{Name: "Other", Email: " O@X.COM ", Password: "secret2"})
	requireAppError(t, err, 400, "USER_EXISTS")
}

func TestService_Login_FailuresLookAlike(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Signup(ctx, users.SignupInput{Name: "A", Email: "a@x.com", Password: "secret1"}); err != nil {
		t.Fatalf("Signup err=%v", err)
	}

	_, err := f.svc.Login(ctx, users.LoginInput{Email: "a@x.com", Password: "wrong-password"})
	wrong := requireAppError(t, err, 401, "UNAUTHORIZED")

	_, err = f.svc.Login(ctx, users.LoginInput{Email: "nobody@x.com", Password: "secret1"})
	unknown := requireAppError(t, err, 401, "UNAUTHORIZED")

	if wrong.Message != unknown.Message || wrong.Message != "invalid email or password" {
		t.Fatalf("messages differ: %q vs %q", wrong.Message, unknown.Message)
	}

	_, err = f.svc.Login(ctx, users.LoginInput{Email: "a@x.com"})
	requireAppError(t, err, 400, "VALIDATION_ERROR")
}

func TestService_ResolveIdentity(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.svc.SetNewUserIDForTest(func() domain.UserID { return "00000000-0000-0000-0000-0000000000a1" })

	u, err := f.svc.Signup(ctx, users.SignupInput{Name: "A", Email: "a@x.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Signup err=%v", err)
	}
	id, err := f.svc.ResolveIdentity(ctx, u.ID)
	if err != nil {
		t.Fatalf("ResolveIdentity err=%v", err)
	}
	if id.UserID != u.ID || id.Email != "a@x.com" || id.Name != "A" {
		t.Fatalf("identity=%+v", id)
	}

	_, err = f.svc.ResolveIdentity(ctx, "00000000-0000-0000-0000-0000000000ff")
	if !errors.Is(err, users.ErrUserNotFound) {
		t.Fatalf("err=%v, want ErrUserNotFound", err)
	}
}
