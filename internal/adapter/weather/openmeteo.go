package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"deyemon/internal/core/domain"
)

const defaultBaseURL = "https://api.open-meteo.com"

// sunrise/sunset come back as local wall-clock times without zone info
const openMeteoTimeLayout = "2006-01-02T15:04"

// Client fetches current conditions from the Open-Meteo forecast API for a
// fixed pair of coordinates.
type Client struct {
	baseURL   string
	latitude  float64
	longitude float64
	http      *http.Client
	now       func() time.Time
}

func NewClient(latitude, longitude float64, timeout time.Duration) *Client {
	return &Client{
		baseURL:   defaultBaseURL,
		latitude:  latitude,
		longitude: longitude,
		http:      &http.Client{Timeout: timeout},
		now:       time.Now,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub server.
func NewClientWithBaseURL(baseURL string, latitude, longitude float64, timeout time.Duration) *Client {
	c := NewClient(latitude, longitude, timeout)
	c.baseURL = baseURL
	return c
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
	Daily struct {
		Sunrise []string `json:"sunrise"`
		Sunset  []string `json:"sunset"`
	} `json:"daily"`
}

// Fetch performs one request and decodes it into a WeatherSnapshot stamped
// with the fetch time.
func (c *Client) Fetch(ctx context.Context) (domain.WeatherSnapshot, error) {
	url := fmt.Sprintf("%s/v1/forecast?latitude=%.4f&longitude=%.4f"+
		"&current=temperature_2m,weather_code&daily=sunrise,sunset&timezone=auto&forecast_days=1",
		c.baseURL, c.latitude, c.longitude)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("weather: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("weather: fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return domain.WeatherSnapshot{}, fmt.Errorf("weather: unexpected status %d", resp.StatusCode)
	}

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("weather: decode response: %w", err)
	}

	snap := domain.WeatherSnapshot{
		Temperature: body.Current.Temperature,
		WeatherCode: body.Current.WeatherCode,
		UpdatedAt:   c.now(),
	}
	if len(body.Daily.Sunrise) > 0 {
		if t, err := time.ParseInLocation(openMeteoTimeLayout, body.Daily.Sunrise[0], time.Local); err == nil {
			snap.Sunrise = t
		}
	}
	if len(body.Daily.Sunset) > 0 {
		if t, err := time.ParseInLocation(openMeteoTimeLayout, body.Daily.Sunset[0], time.Local); err == nil {
			snap.Sunset = t
		}
	}
	return snap, nil
}
