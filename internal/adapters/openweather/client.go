// Package openweather implements weather.Provider against the OpenWeatherMap
// current-weather endpoint (metric units).
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/voyagefriend/trip-planner-api/internal/ports/out/weather"
)

const DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func New(apiKey string, opts Options) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{baseURL: base, apiKey: apiKey, http: hc, log: log}
}

type currentResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

func (c *Client) Current(ctx context.Context, location string) (weather.Report, error) {
	q := url.Values{}
	q.Set("q", location)
	q.Set("appid", c.apiKey)
	q.Set("units", "metric")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+q.Encode(), nil)
	if err != nil {
		return weather.Report{}, fmt.Errorf("build weather request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("weather upstream request failed", zap.String("location", location), zap.Error(err))
		return weather.Report{}, fmt.Errorf("%w: %v", weather.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return weather.Report{}, weather.ErrLocationNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("weather upstream returned error",
			zap.String("location", location),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body))
		return weather.Report{}, fmt.Errorf("%w: upstream status %d", weather.ErrUnavailable, resp.StatusCode)
	}

	var cr currentResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&cr); err != nil {
		return weather.Report{}, fmt.Errorf("%w: decode: %v", weather.ErrUnavailable, err)
	}

	r := weather.Report{
		Location:     cr.Name,
		Country:      cr.Sys.Country,
		TemperatureC: cr.Main.Temp,
		FeelsLikeC:   cr.Main.FeelsLike,
		Humidity:     cr.Main.Humidity,
		WindSpeedMS:  cr.Wind.Speed,
	}
	if len(cr.Weather) > 0 {
		r.Condition = cr.Weather[0].Description
	}
	return r, nil
}
