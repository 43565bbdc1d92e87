package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/signalforge/internal/domain"
	"github.com/alanyoungcy/signalforge/internal/hashing"
)

// PipelineConfig holds the per-pipeline knobs.
type PipelineConfig struct {
	DefaultMode     domain.AnalysisMode
	DefaultPlatform string
	EnrichTimeout   time.Duration
	TTL             TTLPolicy
}

// Pipeline runs validate, enrich, prompt, execute and format for one data
// domain. It holds no mutable state; concurrent Analyze calls only share the
// executor's cache.
type Pipeline struct {
	domain    Domain
	executor  *Executor
	formatter *Formatter
	cfg       PipelineConfig
	now       func() time.Time
	logger    *slog.Logger
}

// NewPipeline creates a Pipeline for d.
func NewPipeline(d Domain, executor *Executor, formatter *Formatter, cfg PipelineConfig, logger *slog.Logger) *Pipeline {
	if cfg.DefaultMode == "" {
		cfg.DefaultMode = domain.ModeBasic
	}
	if cfg.DefaultPlatform == "" {
		cfg.DefaultPlatform = "polymarket"
	}
	if cfg.EnrichTimeout <= 0 {
		cfg.EnrichTimeout = 15 * time.Second
	}
	if cfg.TTL == (TTLPolicy{}) {
		cfg.TTL = DefaultTTLPolicy()
	}
	return &Pipeline{
		domain:    d,
		executor:  executor,
		formatter: formatter,
		cfg:       cfg,
		now:       time.Now,
		logger: logger.With(
			slog.String("component", "analysis_pipeline"),
			slog.String("domain", d.Name()),
		),
	}
}

// Domain returns the name of the pipeline's data domain.
func (p *Pipeline) Domain() string { return p.domain.Name() }

// Analyze turns c into a Signal. It returns either a complete Signal or an
// error wrapping domain.ErrInvalidContext or domain.ErrUnresolvableDomainInput.
// Enrichment and provider failures degrade to a low-confidence fallback
// Signal.
func (p *Pipeline) Analyze(ctx context.Context, c domain.Context) (domain.Signal, error) {
	sig, _, err := p.AnalyzeSnapshot(ctx, c)
	return sig, err
}

// AnalyzeSnapshot is Analyze that also returns the EnrichedContext the
// signal's MarketSnapshotHash was computed over.
func (p *Pipeline) AnalyzeSnapshot(ctx context.Context, c domain.Context) (domain.Signal, domain.EnrichedContext, error) {
	c = p.applyDefaults(c)
	if err := p.validate(c); err != nil {
		return domain.Signal{}, domain.EnrichedContext{}, err
	}

	ec, err := p.enrich(ctx, c)
	if err != nil {
		if errors.Is(err, domain.ErrUnresolvableDomainInput) || errors.Is(err, domain.ErrInvalidContext) {
			return domain.Signal{}, domain.EnrichedContext{}, fmt.Errorf("analysis: %s: %w", p.domain.Name(), err)
		}
		p.logger.WarnContext(ctx, "enrichment failed, using fallback",
			slog.String("event_id", c.EventID),
			slog.String("error", err.Error()),
		)
		sig, err := p.fallback(ec, "Domain data could not be fetched: "+err.Error())
		return sig, ec, err
	}

	prompt := p.domain.BuildPrompt(ec)

	key, err := CacheKey(p.domain, ec)
	if err != nil {
		p.logger.WarnContext(ctx, "cache key failed", slog.String("error", err.Error()))
		key = ""
	}

	res, err := p.executor.Execute(ctx, Request{
		Prompt:   prompt,
		Mode:     c.Mode,
		CacheKey: key,
		TTL:      p.cfg.TTL.For(c.Mode, c.EventDate, p.now()),
	})
	if err != nil {
		p.logger.WarnContext(ctx, "provider failed, using fallback",
			slog.String("event_id", c.EventID),
			slog.String("error", err.Error()),
		)
		sig, err := p.fallback(ec, "Analysis provider unavailable: "+err.Error())
		return sig, ec, err
	}

	sig, err := p.formatter.Format(res.Assessment, ec, res.Cached)
	if err != nil {
		return domain.Signal{}, domain.EnrichedContext{}, fmt.Errorf("analysis: format: %w", err)
	}
	p.logger.InfoContext(ctx, "signal produced",
		slog.String("signal_id", sig.ID),
		slog.String("event_id", sig.EventID),
		slog.String("confidence", string(sig.Confidence)),
		slog.Bool("cached", sig.Cached),
	)
	return sig, ec, nil
}

func (p *Pipeline) applyDefaults(c domain.Context) domain.Context {
	c.EventID = strings.TrimSpace(c.EventID)
	c.Title = strings.TrimSpace(c.Title)
	if c.Mode == "" {
		c.Mode = p.cfg.DefaultMode
	}
	if c.Platform == "" {
		c.Platform = p.cfg.DefaultPlatform
	}
	c.Platform = strings.ToLower(c.Platform)
	if c.MarketID == "" {
		c.MarketID = c.EventID
	}
	if common.IsHexAddress(c.Author) {
		c.Author = common.HexToAddress(c.Author).Hex()
	}
	return c
}

func (p *Pipeline) validate(c domain.Context) error {
	switch {
	case c.EventID == "":
		return fmt.Errorf("analysis: eventId is required: %w", domain.ErrInvalidContext)
	case c.Title == "":
		return fmt.Errorf("analysis: title is required: %w", domain.ErrInvalidContext)
	case !c.Mode.Valid():
		return fmt.Errorf("analysis: unknown mode %q: %w", c.Mode, domain.ErrInvalidContext)
	case c.Author != "" && !common.IsHexAddress(c.Author):
		return fmt.Errorf("analysis: author %q is not an address: %w", c.Author, domain.ErrInvalidContext)
	}
	if v, ok := p.domain.(ContextValidator); ok {
		if err := v.ValidateContext(c); err != nil {
			return fmt.Errorf("analysis: %s: %w", p.domain.Name(), err)
		}
	}
	return nil
}

// enrich always returns an EnrichedContext carrying c, so a failed
// enrichment can still be formatted into a fallback.
func (p *Pipeline) enrich(ctx context.Context, c domain.Context) (domain.EnrichedContext, error) {
	ec := domain.EnrichedContext{Context: c, Domain: p.domain.Name()}

	enrichCtx, cancel := context.WithTimeout(ctx, p.cfg.EnrichTimeout)
	defer cancel()

	payload, err := p.domain.Enrich(enrichCtx, c)
	if err != nil {
		ec.DomainHash = hashing.MustOf(nil)
		return ec, err
	}

	h, err := hashing.Of(payload)
	if err != nil {
		return ec, fmt.Errorf("hash payload: %w", err)
	}
	ec.Payload = payload
	ec.DomainHash = h
	return ec, nil
}

func (p *Pipeline) fallback(ec domain.EnrichedContext, note string) (domain.Signal, error) {
	if ec.DomainHash == "" {
		ec.DomainHash = hashing.MustOf(ec.Payload)
	}
	sig, err := p.formatter.Format(fallbackAssessment(note), ec, false)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("analysis: format fallback: %w", err)
	}
	return sig, nil
}

func fallbackAssessment(note string) domain.Assessment {
	return domain.Assessment{
		Impact:         domain.ImpactUnknown,
		OddsEfficiency: domain.OddsUnknown,
		Confidence:     domain.ConfidenceLow,
		Analysis:       note,
		KeyFactors:     []string{"Automated analysis unavailable for this market"},
	}
}
