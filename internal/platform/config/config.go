// Package config loads service configuration from the process environment,
// optionally seeded from a .env file in the working directory.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendMemory   = "memory"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

// TokenConfig configures issuing and verifying HS256 bearer tokens.
type TokenConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	// ClockSkew is the leeway applied to exp/iat checks.
	ClockSkew time.Duration
}

type Config struct {
	Port string

	StorageBackend string
	MongoURI       string
	MongoDB        string
	DatabaseURL    string

	Token TokenConfig

	LogLevel  string
	LogFormat string

	CORSOrigins  []string
	MaxBodyBytes int64

	AuthRateLimit  int
	AuthRateWindow time.Duration
	RedisURL       string

	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string

	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
}

// Load reads an optional .env file and then the environment. A missing .env is not an error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the current environment. Every missing or invalid
// variable is reported in the returned error, not just the first.
func FromEnv() (Config, error) {
	var problems []string

	cfg := Config{
		Port:               getenv("PORT", "8080"),
		StorageBackend:     strings.ToLower(getenv("STORAGE_BACKEND", BackendMemory)),
		MongoURI:           getenv("MONGO_URI", "mongodb://127.0.0.1:27017"),
		MongoDB:            getenv("MONGO_DB", "trip_planner"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		LogFormat:          strings.ToLower(getenv("LOG_FORMAT", "json")),
		CORSOrigins:        splitList(getenv("CORS_ORIGINS", "http://localhost:5173")),
		RedisURL:           os.Getenv("REDIS_URL"),
		OpenWeatherAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherBaseURL: os.Getenv("OPENWEATHER_BASE_URL"),
		AuthRateWindow:     time.Minute,
		Token: TokenConfig{
			Issuer:    getenv("TOKEN_ISSUER", "voyagefriend"),
			ClockSkew: 30 * time.Second,
		},
	}

	if secret := os.Getenv("JWT_SECRET"); secret == "" {
		problems = append(problems, "JWT_SECRET is required")
	} else {
		cfg.Token.Secret = []byte(secret)
	}

	switch cfg.StorageBackend {
	case BackendMemory, BackendMongo:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			problems = append(problems, "DATABASE_URL is required when STORAGE_BACKEND=postgres")
		}
	default:
		problems = append(problems, fmt.Sprintf("STORAGE_BACKEND must be one of memory, mongo, postgres (got %q)", cfg.StorageBackend))
	}

	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		problems = append(problems, fmt.Sprintf("LOG_FORMAT must be json or console (got %q)", cfg.LogFormat))
	}

	cfg.Token.TTL = parseDuration("TOKEN_TTL", time.Hour, &problems)
	cfg.TimeoutShort = parseDuration("TIMEOUT_SHORT", 5*time.Second, &problems)
	cfg.TimeoutMedium = parseDuration("TIMEOUT_MEDIUM", 10*time.Second, &problems)
	cfg.MaxBodyBytes = int64(parseInt("MAX_BODY_BYTES", 1<<20, &problems))
	cfg.AuthRateLimit = parseInt("AUTH_RATE_LIMIT", 20, &problems)

	if len(problems) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

// WeatherEnabled reports whether an OpenWeatherMap key is configured.
func (c Config) WeatherEnabled() bool {
	return c.OpenWeatherAPIKey != ""
}

func getenv(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseDuration(k string, def time.Duration, problems *[]string) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*problems = append(*problems, fmt.Sprintf("%s must be a positive duration (e.g. 30s)", k))
		return def
	}
	return d
}

func parseInt(k string, def int, problems *[]string) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		*problems = append(*problems, fmt.Sprintf("%s must be a positive integer", k))
		return def
	}
	return n
}
