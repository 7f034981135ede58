package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/voyagefriend/trip-planner-api/internal/adapters/httpapi"
	memidempotency "github.com/voyagefriend/trip-planner-api/internal/adapters/memory/idempotency"
	mempollrepo "github.com/voyagefriend/trip-planner-api/internal/adapters/memory/pollrepo"
	memratelimit "github.com/voyagefriend/trip-planner-api/internal/adapters/memory/ratelimit"
	memtriprepo "github.com/voyagefriend/trip-planner-api/internal/adapters/memory/triprepo"
	memuserrepo "github.com/voyagefriend/trip-planner-api/internal/adapters/memory/userrepo"
	"github.com/voyagefriend/trip-planner-api/internal/adapters/mongodb"
	mongoidempotency "github.com/voyagefriend/trip-planner-api/internal/adapters/mongodb/idempotency"
	mongopollrepo "github.com/voyagefriend/trip-planner-api/internal/adapters/mongodb/pollrepo"
	mongotriprepo "github.com/voyagefriend/trip-planner-api/internal/adapters/mongodb/triprepo"
	mongouserrepo "github.com/voyagefriend/trip-planner-api/internal/adapters/mongodb/userrepo"
	"github.com/voyagefriend/trip-planner-api/internal/adapters/openweather"
	postgres "github.com/voyagefriend/trip-planner-api/internal/adapters/postgres"
	pgidempotency "github.com/voyagefriend/trip-planner-api/internal/adapters/postgres/idempotency"
	pgpollrepo "github.com/voyagefriend/trip-planner-api/internal/adapters/postgres/pollrepo"
	pgtriprepo "github.com/voyagefriend/trip-planner-api/internal/adapters/postgres/triprepo"
	pguserrepo "github.com/voyagefriend/trip-planner-api/internal/adapters/postgres/userrepo"
	redisratelimit "github.com/voyagefriend/trip-planner-api/internal/adapters/redis/ratelimit"
	"github.com/voyagefriend/trip-planner-api/internal/app/itinerary"
	"github.com/voyagefriend/trip-planner-api/internal/app/polls"
	"github.com/voyagefriend/trip-planner-api/internal/app/trips"
	"github.com/voyagefriend/trip-planner-api/internal/app/users"
	"github.com/voyagefriend/trip-planner-api/internal/platform/auth/tokens"
	platformclock "github.com/voyagefriend/trip-planner-api/internal/platform/clock"
	"github.com/voyagefriend/trip-planner-api/internal/platform/config"
	"github.com/voyagefriend/trip-planner-api/internal/platform/logging"
	"github.com/voyagefriend/trip-planner-api/internal/platform/timeouts"
	clockport "github.com/voyagefriend/trip-planner-api/internal/ports/out/clock"
	idempotencyport "github.com/voyagefriend/trip-planner-api/internal/ports/out/idempotency"
	pollrepoport "github.com/voyagefriend/trip-planner-api/internal/ports/out/pollrepo"
	ratelimitport "github.com/voyagefriend/trip-planner-api/internal/ports/out/ratelimit"
	triprepoport "github.com/voyagefriend/trip-planner-api/internal/ports/out/triprepo"
	userrepoport "github.com/voyagefriend/trip-planner-api/internal/ports/out/userrepo"
	weatherport "github.com/voyagefriend/trip-planner-api/internal/ports/out/weather"
)

type repositories struct {
	users userrepoport.Repository
	trips triprepoport.Repository
	polls pollrepoport.Repository
	idem  idempotencyport.Store
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("invalid logging config: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	timeouts.Configure(timeouts.Config{Short: cfg.TimeoutShort, Medium: cfg.TimeoutMedium})

	clk := platformclock.NewSystemClock()

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	repos, cleanup, err := openStorage(startCtx, cfg, clk, logger)
	cancelStart()
	if err != nil {
		logger.Fatal("storage init failed", zap.String("backend", cfg.StorageBackend), zap.Error(err))
	}
	defer cleanup()

	authLimiter, closeLimiter, err := newAuthLimiter(cfg, clk, logger)
	if err != nil {
		logger.Fatal("rate limiter init failed", zap.Error(err))
	}
	defer closeLimiter()

	tm, err := tokens.NewManager(cfg.Token, clk)
	if err != nil {
		logger.Fatal("invalid token config", zap.Error(err))
	}

	var weather weatherport.Provider
	if cfg.WeatherEnabled() {
		weather = openweather.New(cfg.OpenWeatherAPIKey, openweather.Options{
			BaseURL: cfg.OpenWeatherBaseURL,
			Logger:  logger.Named("openweather"),
		})
	} else {
		logger.Info("weather lookups disabled (OPENWEATHER_API_KEY not set)")
	}

	hub := itinerary.NewHub(itinerary.Options{Logger: logger.Named("itinerary")})

	userSvc := users.NewService(repos.users, tm, clk)
	tripSvc := trips.NewService(repos.trips, repos.users, repos.polls, clk)
	pollSvc := polls.NewService(repos.polls, tripSvc, clk)

	api := httpapi.NewServer(httpapi.ServerDeps{
		Users:          userSvc,
		Trips:          tripSvc,
		Polls:          pollSvc,
		Hub:            hub,
		Idem:           repos.idem,
		Weather:        weather,
		Clock:          clk,
		Log:            logger,
		AllowedOrigins: cfg.CORSOrigins,
	})

	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		Tokens:       tm,
		AuthLimiter:  authLimiter,
		CORSOrigins:  cfg.CORSOrigins,
		MaxBodyBytes: cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("api listening", zap.String("port", cfg.Port), zap.String("storage", cfg.StorageBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	hub.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}

// openStorage builds the repositories for the configured backend. cleanup releases
// connections and is never nil.
func openStorage(ctx context.Context, cfg config.Config, clk clockport.Clock, logger *zap.Logger) (repositories, func(), error) {
	switch cfg.StorageBackend {
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{})
		if err != nil {
			return repositories{}, nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return repositories{}, nil, fmt.Errorf("migrate: %w", err)
		}
		return repositories{
			users: pguserrepo.NewRepo(pool),
			trips: pgtriprepo.NewRepo(pool),
			polls: pgpollrepo.NewRepo(pool),
			idem:  pgidempotency.NewStore(pool),
		}, pool.Close, nil

	case config.BackendMongo:
		client, err := mongodb.Connect(ctx, cfg.MongoURI, timeouts.Short())
		if err != nil {
			return repositories{}, nil, err
		}
		disconnect := func() {
			dctx, cancel := context.WithTimeout(context.Background(), timeouts.Short())
			defer cancel()
			if err := client.Disconnect(dctx); err != nil {
				logger.Warn("mongo disconnect", zap.Error(err))
			}
		}
		db := client.Database(cfg.MongoDB)
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			disconnect()
			return repositories{}, nil, fmt.Errorf("ensure indexes: %w", err)
		}
		return repositories{
			users: mongouserrepo.NewRepo(db),
			trips: mongotriprepo.NewRepo(db),
			polls: mongopollrepo.NewRepo(db),
			idem:  mongoidempotency.NewStore(db),
		}, disconnect, nil

	default:
		return repositories{
			users: memuserrepo.NewRepo(),
			trips: memtriprepo.NewRepo(),
			polls: mempollrepo.NewRepo(),
			idem:  memidempotency.NewStore(memidempotency.WithClock(clk)),
		}, func() {}, nil
	}
}

// newAuthLimiter returns a Redis-backed limiter when REDIS_URL is set so every replica
// shares counters, and an in-process limiter otherwise.
func newAuthLimiter(cfg config.Config, clk clockport.Clock, logger *zap.Logger) (ratelimitport.Limiter, func(), error) {
	if cfg.RedisURL == "" {
		return memratelimit.New(cfg.AuthRateLimit, cfg.AuthRateWindow, clk), func() {}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Short())
	defer cancel()
	client, err := redisratelimit.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("auth rate limit backed by redis")
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Warn("redis close", zap.Error(err))
		}
	}
	return redisratelimit.New(client, "ratelimit", cfg.AuthRateLimit, cfg.AuthRateWindow, clk), closeFn, nil
}
