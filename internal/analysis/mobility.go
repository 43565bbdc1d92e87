package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

// CrowdSource reports crowd and transit conditions at a venue.
type CrowdSource interface {
	Crowd(ctx context.Context, venue string, at time.Time) (domain.MobilitySnapshot, error)
}

// MobilityDomain reasons about crowd density and transit disruption.
type MobilityDomain struct {
	source CrowdSource
}

// NewMobilityDomain creates the mobility domain.
func NewMobilityDomain(source CrowdSource) *MobilityDomain {
	return &MobilityDomain{source: source}
}

func (d *MobilityDomain) Name() string { return "mobility" }

func (d *MobilityDomain) Enrich(ctx context.Context, c domain.Context) (any, error) {
	venue, ok := ResolveVenue(c)
	if !ok {
		return nil, fmt.Errorf("mobility: no venue for %q: %w", c.EventID, domain.ErrUnresolvableDomainInput)
	}
	snap, err := d.source.Crowd(ctx, venue, c.EventDate)
	if err != nil {
		return nil, fmt.Errorf("mobility: %s: %w", venue, err)
	}
	if snap.Venue == "" {
		snap.Venue = venue
	}
	return snap, nil
}

func (d *MobilityDomain) BuildPrompt(ec domain.EnrichedContext) string {
	var p promptBuilder
	p.line("You are an event operations analyst assessing how crowds and transit affect a prediction market.")
	p.blank()
	p.market(ec.Context)

	if m, ok := ec.Payload.(domain.MobilitySnapshot); ok {
		p.line("MOBILITY AT %s", m.Venue)
		p.line("Crowd density: %.0f%% (%s)", m.CrowdDensity*100, band(m.CrowdDensity))
		p.line("Transit load: %.0f%% (%s)", m.TransitLoad*100, band(m.TransitLoad))
		p.line("Expected attendance: %d", m.ExpectedAttendance)
		p.line("Typical arrival delay: %d min", m.ArrivalDelayMin)
		p.blank()
	}

	p.line("Judge whether crowd or transit conditions could change the result or its timing.")
	p.blank()
	p.contract(ec.Context.Mode, "crowd_impact")
	return p.String()
}

type mobilityFacts struct {
	Crowd      string `json:"crowd"`
	Transit    string `json:"transit"`
	Attendance int    `json:"attendance"`
}

// CacheFacts keys on the density bands and attendance rounded to the
// nearest thousand.
func (d *MobilityDomain) CacheFacts(ec domain.EnrichedContext) (string, any) {
	m, ok := ec.Payload.(domain.MobilitySnapshot)
	if !ok {
		return ec.Context.Place(), ec.Payload
	}
	return m.Venue, mobilityFacts{
		Crowd:      band(m.CrowdDensity),
		Transit:    band(m.TransitLoad),
		Attendance: (m.ExpectedAttendance + 500) / 1000 * 1000,
	}
}

// band buckets a 0..1 ratio.
func band(v float64) string {
	switch {
	case v >= 0.75:
		return "HIGH"
	case v >= 0.4:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

var (
	_ Domain     = (*MobilityDomain)(nil)
	_ CacheKeyer = (*MobilityDomain)(nil)
)
