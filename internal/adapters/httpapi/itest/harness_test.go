package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/voyagefriend/trip-planner-api/internal/adapters/httpapi"
	memclock "github.com/voyagefriend/trip-planner-api/internal/adapters/memory/clock"
	memidempotency "github.com/voyagefriend/trip-planner-api/internal/adapters/memory/idempotency"
	mempollrepo "github.com/voyagefriend/trip-planner-api/internal/adapters/memory/pollrepo"
	memratelimit "github.com/voyagefriend/trip-planner-api/internal/adapters/memory/ratelimit"
	memtriprepo "github.com/voyagefriend/trip-planner-api/internal/adapters/memory/triprepo"
	memuserrepo "github.com/voyagefriend/trip-planner-api/internal/adapters/memory/userrepo"
	mongoidempotency "github.com/voyagefriend/trip-planner-api/internal/adapters/mongodb/idempotency"
	mongopollrepo "github.com/voyagefriend/trip-planner-api/internal/adapters/mongodb/pollrepo"
	mongo_testutil "github.com/voyagefriend/trip-planner-api/internal/adapters/mongodb/testutil"
	mongotriprepo "github.com/voyagefriend/trip-planner-api/internal/adapters/mongodb/triprepo"
	mongouserrepo "github.com/voyagefriend/trip-planner-api/internal/adapters/mongodb/userrepo"
	pgidempotency "github.com/voyagefriend/trip-planner-api/internal/adapters/postgres/idempotency"
	pgpollrepo "github.com/voyagefriend/trip-planner-api/internal/adapters/postgres/pollrepo"
	postgres_testutil "github.com/voyagefriend/trip-planner-api/internal/adapters/postgres/testutil"
	pgtriprepo "github.com/voyagefriend/trip-planner-api/internal/adapters/postgres/triprepo"
	pguserrepo "github.com/voyagefriend/trip-planner-api/internal/adapters/postgres/userrepo"
	"github.com/voyagefriend/trip-planner-api/internal/app/itinerary"
	"github.com/voyagefriend/trip-planner-api/internal/app/polls"
	"github.com/voyagefriend/trip-planner-api/internal/app/trips"
	"github.com/voyagefriend/trip-planner-api/internal/app/users"
	"github.com/voyagefriend/trip-planner-api/internal/platform/auth/tokens"
	"github.com/voyagefriend/trip-planner-api/internal/platform/config"
	idempotencyport "github.com/voyagefriend/trip-planner-api/internal/ports/out/idempotency"
	pollrepoport "github.com/voyagefriend/trip-planner-api/internal/ports/out/pollrepo"
	triprepoport "github.com/voyagefriend/trip-planner-api/internal/ports/out/triprepo"
	userrepoport "github.com/voyagefriend/trip-planner-api/internal/ports/out/userrepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
	backendMongo    backend = "mongo"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "mongo":
		return []backend{backendMongo}
	case "all":
		return []backend{backendMemory, backendPostgres, backendMongo}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|mongo|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
	clock   *memclock.ManualClock
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	var (
		userRepo  userrepoport.Repository
		tripRepo  triprepoport.Repository
		pollRepo  pollrepoport.Repository
		idemStore idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		userRepo = pguserrepo.NewRepo(pool)
		tripRepo = pgtriprepo.NewRepo(pool)
		pollRepo = pgpollrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	case backendMongo:
		db := mongo_testutil.OpenTestDB(t)
		userRepo = mongouserrepo.NewRepo(db)
		tripRepo = mongotriprepo.NewRepo(db)
		pollRepo = mongopollrepo.NewRepo(db)
		idemStore = mongoidempotency.NewStore(db)
	case backendMemory:
		userRepo = memuserrepo.NewRepo()
		tripRepo = memtriprepo.NewRepo()
		pollRepo = mempollrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	tm, err := tokens.NewManager(config.TokenConfig{Secret: []byte("itest-secret"), TTL: time.Hour, Issuer: "itest"}, clk)
	if err != nil {
		t.Fatalf("NewManager err=%v", err)
	}

	userSvc := users.NewService(userRepo, tm, clk)
	userSvc.SetBcryptCostForTest(bcrypt.MinCost)
	tripSvc := trips.NewService(tripRepo, userRepo, pollRepo, clk)
	pollSvc := polls.NewService(pollRepo, tripSvc, clk)
	hub := itinerary.NewHub(itinerary.Options{})
	t.Cleanup(hub.Close)

	log := zaptest.NewLogger(t)
	api := httpapi.NewServer(httpapi.ServerDeps{
		Users: userSvc,
		Trips: tripSvc,
		Polls: pollSvc,
		Hub:   hub,
		Idem:  idemStore,
		Clock: clk,
		Log:   log,
	})
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		Tokens:       tm,
		AuthLimiter:  memratelimit.New(100, time.Minute, clk),
		MaxBodyBytes: 1 << 20,
	})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
		clock:   clk,
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, token string, body any, headers ...string) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

// signup creates an account and logs in, returning the user id and token.
func (s *testServer) signup(t *testing.T, name, email string) (string, string) {
	t.Helper()

	status, body, _ := s.doJSON(t, http.MethodPost, "/api/auth/signup", "", map[string]any{
		"name": name, "email": email, "password": "secret1",
	})
	requireStatus(t, status, body, http.StatusCreated)

	status, body, _ = s.doJSON(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email": email, "password": "secret1",
	})
	requireStatus(t, status, body, http.StatusOK)
	got := mustUnmarshal[httpapi.LoginResponse](t, body)
	if got.Token == "" {
		t.Fatalf("expected token; body=%s", string(body))
	}
	return got.User.ID, got.Token
}

type errorResponse struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId"`
	} `json:"error"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireStatus(t *testing.T, status int, body []byte, want int) {
	t.Helper()
	if status != want {
		t.Fatalf("status=%d want=%d body=%s", status, want, string(body))
	}
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	requireStatus(t, status, body, wantStatus)
	got := mustUnmarshal[errorResponse](t, body)
	if got.Error.Code != wantCode {
		t.Fatalf("error.code=%q want=%q body=%s", got.Error.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
