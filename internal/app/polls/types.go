package polls

import (
	"context"

	"github.com/voyagefriend/trip-planner-api/internal/domain"
)

// DefaultCurrency is used when a poll is created without a budget currency.
const DefaultCurrency = "INR"

// MaxMedia bounds the number of media attachments per poll.
const MaxMedia = 10

type MediaInput struct {
	Type      string
	URL       string
	Thumbnail *string
}

type CreatePollInput struct {
	Title       string
	Description string

	BudgetAmount float64
	// BudgetCurrency is an ISO-4217 style three letter code; empty means DefaultCurrency.
	BudgetCurrency string

	Media []MediaInput
}

// TripAccess loads a trip and applies the trip authorization policy.
type TripAccess interface {
	Authorize(ctx context.Context, action domain.Action, tripID domain.TripID, caller domain.Identity) (domain.Trip, error)
}
