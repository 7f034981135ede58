package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	memclock "github.com/voyagefriend/trip-planner-api/internal/adapters/memory/clock"
	memidempotency "github.com/voyagefriend/trip-planner-api/internal/adapters/memory/idempotency"
	mempollrepo "github.com/voyagefriend/trip-planner-api/internal/adapters/memory/pollrepo"
	memratelimit "github.com/voyagefriend/trip-planner-api/internal/adapters/memory/ratelimit"
	memtriprepo "github.com/voyagefriend/trip-planner-api/internal/adapters/memory/triprepo"
	memuserrepo "github.com/voyagefriend/trip-planner-api/internal/adapters/memory/userrepo"
	"github.com/voyagefriend/trip-planner-api/internal/app/itinerary"
	"github.com/voyagefriend/trip-planner-api/internal/app/polls"
	"github.com/voyagefriend/trip-planner-api/internal/app/trips"
	"github.com/voyagefriend/trip-planner-api/internal/app/users"
	"github.com/voyagefriend/trip-planner-api/internal/platform/auth/tokens"
	"github.com/voyagefriend/trip-planner-api/internal/platform/config"
	"github.com/voyagefriend/trip-planner-api/internal/ports/out/weather"
)

type harnessOptions struct {
	authLimit    int
	maxBodyBytes int64
	weather      weather.Provider
}

type harness struct {
	h      http.Handler
	server *Server
	tokens *tokens.Manager
	clock  *memclock.ManualClock
	hub    *itinerary.Hub
}

func newHarness(t *testing.T, mods ...func(*harnessOptions)) *harness {
	t.Helper()

	opts := harnessOptions{authLimit: 1000, maxBodyBytes: 1 << 20}
	for _, m := range mods {
		m(&opts)
	}

	clk := memclock.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	tm, err := tokens.NewManager(config.TokenConfig{Secret: []byte("test-secret"), TTL: time.Hour, Issuer: "test"}, clk)
	require.NoError(t, err)

	userRepo := memuserrepo.NewRepo()
	tripRepo := memtriprepo.NewRepo()
	pollRepo := mempollrepo.NewRepo()

	usersSvc := users.NewService(userRepo, tm, clk)
	usersSvc.SetBcryptCostForTest(bcrypt.MinCost)
	tripsSvc := trips.NewService(tripRepo, userRepo, pollRepo, clk)
	pollsSvc := polls.NewService(pollRepo, tripsSvc, clk)
	hub := itinerary.NewHub(itinerary.Options{})
	t.Cleanup(hub.Close)

	s := NewServer(ServerDeps{
		Users:   usersSvc,
		Trips:   tripsSvc,
		Polls:   pollsSvc,
		Hub:     hub,
		Idem:    memidempotency.NewStore(memidempotency.WithClock(clk)),
		Weather: opts.weather,
		Clock:   clk,
		Log:     zap.NewNop(),
	})
	h := NewRouter(s, RouterOptions{
		Tokens:       tm,
		AuthLimiter:  memratelimit.New(opts.authLimit, time.Minute, clk),
		MaxBodyBytes: opts.maxBodyBytes,
	})
	return &harness{h: h, server: s, tokens: tm, clock: clk, hub: hub}
}

func (hs *harness) do(t *testing.T, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	hs.h.ServeHTTP(rec, req)
	return rec
}

// signup registers a user and logs in, returning the user id and a bearer token.
func (hs *harness) signup(t *testing.T, name, email string) (string, string) {
	t.Helper()

	rec := hs.do(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"name": name, "email": email, "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = hs.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": email, "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[LoginResponse](t, rec)
	return login.User.ID, login.Token
}

func (hs *harness) createTrip(t *testing.T, token, name string) Trip {
	t.Helper()

	rec := hs.do(t, http.MethodPost, "/api/trips", token, map[string]any{
		"name":        name,
		"destination": "Paris",
		"startDate":   "2026-04-01",
		"endDate":     "2026-04-07",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[Trip](t, rec)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func requireErrorCode(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) ErrorBody {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	var er struct {
		Error struct {
			Code      string         `json:"code"`
			Message   string         `json:"message"`
			Details   map[string]any `json:"details"`
			RequestID string         `json:"requestId"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er), rec.Body.String())
	require.Equal(t, code, er.Error.Code, rec.Body.String())
	require.NotEmpty(t, er.Error.RequestID)
	return ErrorBody{Code: er.Error.Code, Message: er.Error.Message}
}

type stubWeather struct {
	report weather.Report
	err    error
}

func (s stubWeather) Current(_ context.Context, _ string) (weather.Report, error) {
	return s.report, s.err
}
