// Package weather fetches current conditions from a WeatherAPI-compatible
// REST endpoint.
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

// errNoMatchingLocation is the API error code for an unknown place.
const errNoMatchingLocation = 1006

// Client is the weather REST client.
type Client struct {
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	httpClient *http.Client
}

// NewClient creates a weather client. requestsPerSecond <= 0 disables
// client-side throttling.
func NewClient(baseURL, apiKey string, requestsPerSecond float64) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	if requestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return c
}

type currentResponse struct {
	Location struct {
		Name    string `json:"name"`
		Region  string `json:"region"`
		Country string `json:"country"`
	} `json:"location"`
	Current struct {
		LastUpdated string  `json:"last_updated"`
		TempC       float64 `json:"temp_c"`
		FeelsLikeC  float64 `json:"feelslike_c"`
		WindKph     float64 `json:"wind_kph"`
		PrecipMM    float64 `json:"precip_mm"`
		Humidity    int     `json:"humidity"`
		Condition   struct {
			Text string `json:"text"`
		} `json:"condition"`
	} `json:"current"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Current returns the current weather at location. An unknown location
// wraps domain.ErrUnresolvableDomainInput.
func (c *Client) Current(ctx context.Context, location string) (domain.WeatherSnapshot, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return domain.WeatherSnapshot{}, fmt.Errorf("weather: rate limit: %w", err)
		}
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", location)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/current.json?"+params.Encode(), nil)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("weather: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("weather: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("weather: read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return domain.WeatherSnapshot{}, statusError(resp.StatusCode, body, location)
	}

	var out currentResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return domain.WeatherSnapshot{}, fmt.Errorf("weather: decode response: %w", err)
	}

	name := out.Location.Name
	if out.Location.Country != "" {
		name += ", " + out.Location.Country
	}
	return domain.WeatherSnapshot{
		Location:      name,
		TempC:         out.Current.TempC,
		Condition:     out.Current.Condition.Text,
		WindKph:       out.Current.WindKph,
		PrecipMM:      out.Current.PrecipMM,
		Humidity:      out.Current.Humidity,
		FeelsLikeC:    out.Current.FeelsLikeC,
		ObservedAtUTC: out.Current.LastUpdated,
	}, nil
}

func statusError(status int, body []byte, location string) error {
	var apiErr errorResponse
	_ = json.Unmarshal(body, &apiErr)

	switch {
	case apiErr.Error.Code == errNoMatchingLocation:
		return fmt.Errorf("weather: %q: %w", location, domain.ErrUnresolvableDomainInput)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("weather: %w: %s", domain.ErrUnauthorized, apiErr.Error.Message)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("weather: %w", domain.ErrRateLimited)
	}
	if apiErr.Error.Message != "" {
		return errors.New("weather: " + apiErr.Error.Message)
	}
	return fmt.Errorf("weather: HTTP %d", status)
}
