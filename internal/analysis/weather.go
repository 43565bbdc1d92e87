package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

// WeatherSource returns current conditions for a place. It wraps
// domain.ErrUnresolvableDomainInput when the place is unknown.
type WeatherSource interface {
	Current(ctx context.Context, location string) (domain.WeatherSnapshot, error)
}

// WeatherDomain reasons about how weather at the venue moves a market.
type WeatherDomain struct {
	source WeatherSource
}

// NewWeatherDomain creates the weather domain.
func NewWeatherDomain(source WeatherSource) *WeatherDomain {
	return &WeatherDomain{source: source}
}

func (d *WeatherDomain) Name() string { return "weather" }

// Enrich resolves the venue first and fails before any lookup if none can be
// derived.
func (d *WeatherDomain) Enrich(ctx context.Context, c domain.Context) (any, error) {
	place, ok := ResolveVenue(c)
	if !ok {
		return nil, fmt.Errorf("weather: no location for %q: %w", c.EventID, domain.ErrUnresolvableDomainInput)
	}
	snap, err := d.source.Current(ctx, place)
	if err != nil {
		return nil, fmt.Errorf("weather: %s: %w", place, err)
	}
	if snap.Location == "" {
		snap.Location = place
	}
	return snap, nil
}

func (d *WeatherDomain) BuildPrompt(ec domain.EnrichedContext) string {
	var p promptBuilder
	p.line("You are a sports and event analyst assessing how weather affects a prediction market.")
	p.blank()
	p.market(ec.Context)

	if w, ok := ec.Payload.(domain.WeatherSnapshot); ok {
		p.line("WEATHER AT %s", strings.ToUpper(w.Location))
		p.line("Condition: %s", w.Condition)
		p.line("Temperature: %.1f C (feels like %.1f C)", w.TempC, w.FeelsLikeC)
		p.line("Wind: %.1f kph", w.WindKph)
		p.line("Precipitation: %.1f mm", w.PrecipMM)
		p.line("Humidity: %d%%", w.Humidity)
		p.blank()
	}

	p.line("Judge whether these conditions favour either side and whether the current odds already price them in.")
	p.blank()
	p.contract(ec.Context.Mode, "weather_impact")
	return p.String()
}

type weatherFacts struct {
	TempC     float64 `json:"tempC"`
	Condition string  `json:"condition"`
	WindKph   float64 `json:"windKph"`
	PrecipMM  float64 `json:"precipMm"`
	Humidity  int     `json:"humidity"`
}

// CacheFacts keys on the observed conditions, rounded to one decimal so
// sensor jitter does not defeat the cache.
func (d *WeatherDomain) CacheFacts(ec domain.EnrichedContext) (string, any) {
	w, ok := ec.Payload.(domain.WeatherSnapshot)
	if !ok {
		return ec.Context.Place(), ec.Payload
	}
	return w.Location, weatherFacts{
		TempC:     round1(w.TempC),
		Condition: strings.ToLower(strings.TrimSpace(w.Condition)),
		WindKph:   round1(w.WindKph),
		PrecipMM:  round1(w.PrecipMM),
		Humidity:  w.Humidity,
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

var (
	_ Domain     = (*WeatherDomain)(nil)
	_ CacheKeyer = (*WeatherDomain)(nil)
)
