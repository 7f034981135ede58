// Package recommendations scores and filters candidate places for a trip.
// Places are looked up by the client; only ranking happens server side.
package recommendations

import (
	"fmt"
	"sort"
	"strings"
)

const (
	// MaxPlaces bounds a single ranking request.
	MaxPlaces = 200

	// BudgetPerPriceLevel estimates spend per person for one price level step.
	BudgetPerPriceLevel = 25
)

type Location struct {
	Lat float64
	Lng float64
}

type Place struct {
	ID               string
	Name             string
	Image            string
	Rating           float64
	PriceLevel       int
	Address          string
	Types            []string
	UserRatingsTotal int
	Location         Location
}

type Budget struct {
	Amount   float64
	Currency string
}

type Filters struct {
	// Query keeps places whose name contains it (case-insensitive).
	Query string
	// PriceLevel keeps exact matches when > 0 and adds a score bonus.
	PriceLevel int
	// Rating is a minimum rating when > 0.
	Rating      float64
	MaxBudget   Budget
	Preferences []string
}

// Scored is a place with its recommendation score.
type Scored struct {
	Place
	Score float64
}

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

// Validate checks request bounds.
func Validate(places []Place, f Filters) error {
	details := map[string]any{}
	if len(places) > MaxPlaces {
		details["places"] = fmt.Sprintf("at most %d places", MaxPlaces)
	}
	if f.PriceLevel < 0 || f.PriceLevel > 4 {
		details["filters.priceLevel"] = "must be between 0 and 4"
	}
	if f.Rating < 0 || f.Rating > 5 {
		details["filters.rating"] = "must be between 0 and 5"
	}
	if f.MaxBudget.Amount < 0 {
		details["filters.maxBudget.amount"] = "must be >= 0"
	}
	if len(details) > 0 {
		return &Error{Status: 400, Code: "VALIDATION_ERROR", Message: "invalid recommendation request", Details: details}
	}
	return nil
}

// Score computes the recommendation score of p:
// rating, +3 for a matching price level, +2/+1 for popularity (>1000 / >500 ratings)
// and +3 for every preference found in one of the place types.
func Score(p Place, f Filters) float64 {
	score := p.Rating
	if f.PriceLevel > 0 && p.PriceLevel == f.PriceLevel {
		score += 3
	}
	switch {
	case p.UserRatingsTotal > 1000:
		score += 2
	case p.UserRatingsTotal > 500:
		score++
	}
	for _, pref := range f.Preferences {
		pref = strings.ToLower(strings.TrimSpace(pref))
		if pref == "" {
			continue
		}
		for _, typ := range p.Types {
			if strings.Contains(strings.ToLower(typ), pref) {
				score += 3
				break
			}
		}
	}
	return score
}

// Keep reports whether p passes the filters.
func Keep(p Place, f Filters) bool {
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" && !strings.Contains(strings.ToLower(p.Name), q) {
		return false
	}
	if f.PriceLevel > 0 && p.PriceLevel != f.PriceLevel {
		return false
	}
	if f.Rating > 0 && p.Rating < f.Rating {
		return false
	}
	if f.MaxBudget.Amount > 0 && float64(p.PriceLevel*BudgetPerPriceLevel) > f.MaxBudget.Amount {
		return false
	}
	return true
}

// Rank filters places and orders them by score, highest first. Ties keep input order.
func Rank(places []Place, f Filters) []Scored {
	out := make([]Scored, 0, len(places))
	for _, p := range places {
		if !Keep(p, f) {
			continue
		}
		out = append(out, Scored{Place: p, Score: Score(p, f)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
