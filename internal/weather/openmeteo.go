// Package weather looks up current conditions from Open-Meteo and derives the
// seasonal context used to tone suggestions.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Defaults for the Open-Meteo client.
const (
	DefaultBaseURL = "https://api.open-meteo.com"
	DefaultTimeout = 5 * time.Second
)

// Condition is a coarse weather category.
type Condition string

const (
	ConditionClear   Condition = "clear"
	ConditionClouds  Condition = "clouds"
	ConditionFog     Condition = "fog"
	ConditionDrizzle Condition = "drizzle"
	ConditionRain    Condition = "rain"
	ConditionSnow    Condition = "snow"
	ConditionStorm   Condition = "thunderstorm"
	ConditionWind    Condition = "wind"
)

// windyKPH is the wind speed above which a dry day is reported as windy.
const windyKPH = 40

// Conditions is a snapshot of the current weather at a location.
type Conditions struct {
	Condition    Condition `json:"condition"`
	Description  string    `json:"description"`
	TemperatureC float64   `json:"temperature_c"`
	WindKPH      float64   `json:"wind_kph"`
	IsDay        bool      `json:"is_day"`
	Sunset       time.Time `json:"sunset,omitzero"`
	FetchedAt    time.Time `json:"fetched_at"`
}

// Fetcher returns current conditions for a coordinate.
type Fetcher interface {
	Fetch(ctx context.Context, lat, lon float64) (Conditions, error)
}

// OpenMeteo is a Fetcher backed by the Open-Meteo forecast API.
type OpenMeteo struct {
	baseURL string
	http    *http.Client
}

// OpenMeteoOption configures an OpenMeteo client.
type OpenMeteoOption func(*OpenMeteo)

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) OpenMeteoOption {
	return func(c *OpenMeteo) {
		c.baseURL = u
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) OpenMeteoOption {
	return func(c *OpenMeteo) {
		c.http = hc
	}
}

// NewOpenMeteo creates a client with a bounded request timeout.
func NewOpenMeteo(opts ...OpenMeteoOption) *OpenMeteo {
	c := &OpenMeteo{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type forecastResponse struct {
	UTCOffsetSeconds int `json:"utc_offset_seconds"`
	Current          *struct {
		Temperature float64 `json:"temperature_2m"`
		WeatherCode int     `json:"weather_code"`
		IsDay       int     `json:"is_day"`
		WindSpeed   float64 `json:"wind_speed_10m"`
	} `json:"current"`
	Daily struct {
		Sunset []string `json:"sunset"`
	} `json:"daily"`
}

var errMissingCurrent = errors.New("forecast response has no current block")

// Fetch implements Fetcher.
func (c *OpenMeteo) Fetch(ctx context.Context, lat, lon float64) (Conditions, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	q.Set("current", "temperature_2m,weather_code,is_day,wind_speed_10m")
	q.Set("daily", "sunset")
	q.Set("timezone", "auto")
	q.Set("forecast_days", "1")
	endpoint := c.baseURL + "/v1/forecast?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Conditions{}, fmt.Errorf("failed to build weather request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Conditions{}, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Conditions{}, fmt.Errorf("weather service returned status %d", resp.StatusCode)
	}

	var body forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Conditions{}, fmt.Errorf("failed to decode weather response: %w", err)
	}
	if body.Current == nil {
		return Conditions{}, errMissingCurrent
	}

	cond, desc := describeCode(body.Current.WeatherCode)
	if body.Current.WindSpeed >= windyKPH && (cond == ConditionClear || cond == ConditionClouds) {
		cond, desc = ConditionWind, "windy"
	}
	out := Conditions{
		Condition:    cond,
		Description:  desc,
		TemperatureC: body.Current.Temperature,
		WindKPH:      body.Current.WindSpeed,
		IsDay:        body.Current.IsDay == 1,
		FetchedAt:    time.Now().UTC(),
	}
	if len(body.Daily.Sunset) > 0 {
		loc := time.FixedZone("local", body.UTCOffsetSeconds)
		if t, err := time.ParseInLocation("2006-01-02T15:04", body.Daily.Sunset[0], loc); err == nil {
			out.Sunset = t
		} else {
			slog.Debug("OpenMeteo.Fetch: unparseable sunset", "value", body.Daily.Sunset[0], "error", err)
		}
	}
	return out, nil
}

// describeCode maps a WMO weather code to a condition and a short description.
func describeCode(code int) (Condition, string) {
	switch {
	case code == 0:
		return ConditionClear, "clear sky"
	case code == 1:
		return ConditionClear, "mainly clear"
	case code == 2 || code == 3:
		return ConditionClouds, "cloudy"
	case code == 45 || code == 48:
		return ConditionFog, "fog"
	case code >= 51 && code <= 57:
		return ConditionDrizzle, "drizzle"
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return ConditionRain, "rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return ConditionSnow, "snow"
	case code >= 95:
		return ConditionStorm, "thunderstorm"
	default:
		return ConditionClouds, "unsettled"
	}
}
