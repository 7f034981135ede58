package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/voyagefriend/trip-planner-api/internal/domain"
	"github.com/voyagefriend/trip-planner-api/internal/platform/auth/tokens"
	platformclock "github.com/voyagefriend/trip-planner-api/internal/platform/clock"
	"github.com/voyagefriend/trip-planner-api/internal/platform/config"
)

// Dev-only bearer token minter.
//
// It signs with the same JWT_SECRET, TOKEN_TTL and TOKEN_ISSUER settings the API reads, so a
// token printed here is accepted by a locally running server:
//
//	go run ./cmd/devtoken -user 6b1f7a2e-0d5c-4f8e-9a61-3c2d4b5e6f70
//
// The user must exist in the API's store for authenticated routes to accept it.
func main() {
	userID := flag.String("user", "", "user id (uuid) to put in the subject claim")
	role := flag.String("role", string(domain.RoleMember), "role claim: owner or member")
	flag.Parse()

	id := strings.TrimSpace(*userID)
	if _, err := uuid.Parse(id); err != nil {
		log.Fatalf("-user must be a uuid: %v", err)
	}
	r := domain.Role(strings.ToLower(strings.TrimSpace(*role)))
	if !r.Valid() {
		log.Fatalf("-role must be owner or member (got %q)", *role)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	tm, err := tokens.NewManager(cfg.Token, platformclock.NewSystemClock())
	if err != nil {
		log.Fatalf("invalid token config: %v", err)
	}

	token, exp, err := tm.Issue(domain.UserID(id), r)
	if err != nil {
		log.Fatalf("mint token: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(map[string]any{
		"token":     token,
		"sub":       id,
		"role":      r,
		"iss":       cfg.Token.Issuer,
		"expiresAt": exp,
	})
}
