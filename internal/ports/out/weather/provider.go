package weather

import (
	"context"
	"errors"
)

var (
	// ErrLocationNotFound indicates the upstream provider does not know the location.
	ErrLocationNotFound = errors.New("location not found")
	// ErrUnavailable indicates the upstream provider failed or returned an unexpected response.
	ErrUnavailable = errors.New("weather provider unavailable")
)

// Report is a current-conditions snapshot for a location.
type Report struct {
	Location     string
	Country      string
	TemperatureC float64
	FeelsLikeC   float64
	Condition    string
	Humidity     int
	WindSpeedMS  float64
}

// Provider fetches current weather by free-text location (city or town name).
type Provider interface {
	Current(ctx context.Context, location string) (Report, error)
}
