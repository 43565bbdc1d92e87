package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alanyoungcy/signalforge/internal/analysis"
	"github.com/alanyoungcy/signalforge/internal/domain"
	"github.com/alanyoungcy/signalforge/internal/hashing"
	"github.com/alanyoungcy/signalforge/internal/publish"
	"github.com/alanyoungcy/signalforge/internal/reputation"
)

// ErrFilterRequired is returned by List when no filter is set.
var ErrFilterRequired = errors.New("service: one of author, event or pending is required")

// Pipelines looks up the analyzer pipeline for a domain.
type Pipelines interface {
	Get(name string) (*analysis.Pipeline, error)
	Names() []string
}

// SnapshotArchive stores the enriched context behind each snapshot hash.
type SnapshotArchive interface {
	Put(ctx context.Context, hash string, ec domain.EnrichedContext) error
	Get(ctx context.Context, hash string) ([]byte, error)
}

// Attester signs publish payload digests.
type Attester interface {
	Attest(signalID string, payloadDigest [32]byte) (string, error)
	Address() common.Address
}

// MarketSource builds an analysis context from a live market.
// *polymarket.GammaClient and *kalshi.Client satisfy it.
type MarketSource interface {
	Platform() string
	MarketContext(ctx context.Context, marketID string) (domain.Context, error)
}

// ListFilter selects signals. Exactly one field is honoured, checked in the
// order Author, EventID, Pending.
type ListFilter struct {
	Author  string
	EventID string
	Pending bool
}

// Verification compares a signal's snapshot hash with its archived snapshot.
type Verification struct {
	SignalID string `json:"signalId"`
	Expected string `json:"expected"`
	Actual   string `json:"actual,omitempty"`
	Archived bool   `json:"archived"`
	Match    bool   `json:"match"`
}

// SignalService produces, stores and serves signals.
type SignalService struct {
	pipelines Pipelines
	signals   domain.SignalStore
	audit     domain.AuditStore
	archive   SnapshotArchive
	bus       domain.SignalBus
	attester  Attester
	logger    *slog.Logger

	markets         map[string]MarketSource
	defaultPlatform string
}

// NewSignalService creates a SignalService. archive, bus and attester may be
// nil.
func NewSignalService(
	pipelines Pipelines,
	signals domain.SignalStore,
	audit domain.AuditStore,
	archive SnapshotArchive,
	bus domain.SignalBus,
	attester Attester,
	logger *slog.Logger,
) *SignalService {
	return &SignalService{
		pipelines: pipelines,
		signals:   signals,
		audit:     audit,
		archive:   archive,
		bus:       bus,
		attester:  attester,
		logger:    logger.With(slog.String("component", "signal_service")),
	}
}

// WithMarkets lets Analyze hydrate a context that names only a market id.
// defaultPlatform is used when the context has no platform.
func (s *SignalService) WithMarkets(defaultPlatform string, sources ...MarketSource) *SignalService {
	s.defaultPlatform = strings.ToLower(defaultPlatform)
	s.markets = make(map[string]MarketSource, len(sources))
	for _, src := range sources {
		s.markets[strings.ToLower(src.Platform())] = src
	}
	return s
}

// Domains lists the registered analysis domains.
func (s *SignalService) Domains() []string {
	return s.pipelines.Names()
}

// Analyze runs the named domain's pipeline over c and persists the result.
// Archive, bus and audit failures are logged; the signal is still returned.
func (s *SignalService) Analyze(ctx context.Context, domainName string, c domain.Context) (domain.Signal, error) {
	p, err := s.pipelines.Get(strings.ToLower(domainName))
	if err != nil {
		return domain.Signal{}, fmt.Errorf("signal_service: domain %q: %w", domainName, err)
	}

	if c.Title == "" && c.MarketID != "" {
		if c, err = s.hydrate(ctx, c); err != nil {
			return domain.Signal{}, err
		}
	}

	sig, ec, err := p.AnalyzeSnapshot(ctx, c)
	if err != nil {
		return domain.Signal{}, err
	}

	if err := s.signals.Insert(ctx, sig); err != nil {
		return domain.Signal{}, fmt.Errorf("signal_service: insert %s: %w", sig.ID, err)
	}

	if s.archive != nil {
		if err := s.archive.Put(ctx, sig.MarketSnapshotHash, ec); err != nil {
			s.logger.WarnContext(ctx, "snapshot archive failed",
				slog.String("signal_id", sig.ID),
				slog.String("hash", sig.MarketSnapshotHash),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.bus != nil {
		if payload, err := json.Marshal(sig); err == nil {
			if err := s.bus.Publish(ctx, domain.ChannelSignalCreated, payload); err != nil {
				s.logger.WarnContext(ctx, "publish signal failed", slog.String("error", err.Error()))
			}
		}
	}

	s.logAudit(ctx, "signal_created", map[string]any{
		"signal_id":  sig.ID,
		"event_id":   sig.EventID,
		"domain":     sig.Domain,
		"author":     sig.AuthorAddress,
		"confidence": string(sig.Confidence),
		"cached":     sig.Cached,
	})
	return sig, nil
}

// hydrate fills market identity, odds and timing from the platform and keeps
// every field the caller did set.
func (s *SignalService) hydrate(ctx context.Context, c domain.Context) (domain.Context, error) {
	platform := strings.ToLower(c.Platform)
	if platform == "" {
		platform = s.defaultPlatform
	}
	src, ok := s.markets[platform]
	if !ok {
		return domain.Context{}, fmt.Errorf("signal_service: no market source for platform %q: %w", platform, domain.ErrInvalidContext)
	}
	live, err := src.MarketContext(ctx, c.MarketID)
	if err != nil {
		return domain.Context{}, fmt.Errorf("signal_service: market %s/%s: %w", platform, c.MarketID, err)
	}

	if c.EventID != "" {
		live.EventID = c.EventID
	}
	if c.CurrentOdds != (domain.Odds{}) {
		live.CurrentOdds = c.CurrentOdds
	}
	if !c.EventDate.IsZero() {
		live.EventDate = c.EventDate
	}
	if len(c.Tags) > 0 {
		live.Tags = c.Tags
	}
	live.Location = c.Location
	live.Venue = c.Venue
	live.Teams = c.Teams
	live.Topic = c.Topic
	live.Network = c.Network
	live.Author = c.Author
	live.Mode = c.Mode
	return live, nil
}

// Get returns one signal.
func (s *SignalService) Get(ctx context.Context, id string) (domain.Signal, error) {
	sig, err := s.signals.GetByID(ctx, id)
	if err != nil {
		return domain.Signal{}, fmt.Errorf("signal_service: get %s: %w", id, err)
	}
	return sig, nil
}

// List returns signals matching f.
func (s *SignalService) List(ctx context.Context, f ListFilter) ([]domain.Signal, error) {
	var (
		sigs []domain.Signal
		err  error
	)
	switch {
	case f.Author != "":
		sigs, err = s.signals.GetByAuthor(ctx, normalizeAddress(f.Author))
	case f.EventID != "":
		sigs, err = s.signals.GetByEvent(ctx, f.EventID)
	case f.Pending:
		sigs, err = s.signals.GetPending(ctx)
	default:
		return nil, ErrFilterRequired
	}
	if err != nil {
		return nil, fmt.Errorf("signal_service: list: %w", err)
	}
	if sigs == nil {
		sigs = []domain.Signal{}
	}
	return sigs, nil
}

// Payload builds the on-chain publish envelope for a signal, attested when an
// operator key is configured.
func (s *SignalService) Payload(ctx context.Context, id string) (publish.Envelope, error) {
	sig, err := s.Get(ctx, id)
	if err != nil {
		return publish.Envelope{}, err
	}
	env, err := publish.NewEnvelope(sig)
	if err != nil {
		return publish.Envelope{}, fmt.Errorf("signal_service: payload %s: %w", id, err)
	}
	if s.attester == nil {
		return env, nil
	}

	var digest [32]byte
	copy(digest[:], common.FromHex(env.Digest))

	att, err := s.attester.Attest(sig.ID, digest)
	if err != nil {
		return publish.Envelope{}, fmt.Errorf("signal_service: attest %s: %w", id, err)
	}
	env.Attestation = att
	env.Attester = s.attester.Address().Hex()
	return env, nil
}

// Verify recomputes the snapshot hash from the archived enriched context.
func (s *SignalService) Verify(ctx context.Context, id string) (Verification, error) {
	sig, err := s.Get(ctx, id)
	if err != nil {
		return Verification{}, err
	}
	v := Verification{SignalID: sig.ID, Expected: sig.MarketSnapshotHash}
	if s.archive == nil {
		return v, nil
	}

	raw, err := s.archive.Get(ctx, sig.MarketSnapshotHash)
	if errors.Is(err, domain.ErrNotFound) {
		return v, nil
	}
	if err != nil {
		return Verification{}, fmt.Errorf("signal_service: verify %s: %w", id, err)
	}
	actual, err := hashing.OfJSON(raw)
	if err != nil {
		return Verification{}, fmt.Errorf("signal_service: verify %s: %w", id, err)
	}
	v.Archived = true
	v.Actual = actual
	v.Match = actual == sig.MarketSnapshotHash
	return v, nil
}

// Reputation computes the author's reputation from their full history.
func (s *SignalService) Reputation(ctx context.Context, address string) (domain.ReputationStats, error) {
	addr := normalizeAddress(address)
	sigs, err := s.signals.GetByAuthor(ctx, addr)
	if err != nil {
		return domain.ReputationStats{}, fmt.Errorf("signal_service: reputation %s: %w", addr, err)
	}
	stats := reputation.Calculate(sigs)
	stats.Author = addr
	return stats, nil
}

func (s *SignalService) logAudit(ctx context.Context, event string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, event, detail); err != nil {
		s.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

// normalizeAddress returns the checksum form of hex addresses and anything
// else unchanged.
func normalizeAddress(address string) string {
	address = strings.TrimSpace(address)
	if common.IsHexAddress(address) {
		return common.HexToAddress(address).Hex()
	}
	return address
}
