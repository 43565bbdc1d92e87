package analysis

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

// NetworkSource reports live chain conditions for a named network.
type NetworkSource interface {
	Stats(ctx context.Context, network string) (domain.NetworkSnapshot, error)
}

// NetworkDomain reasons about chain congestion for on-chain markets.
type NetworkDomain struct {
	source         NetworkSource
	defaultNetwork string
}

// NewNetworkDomain creates the network domain. Contexts without a network
// hint use defaultNetwork.
func NewNetworkDomain(source NetworkSource, defaultNetwork string) *NetworkDomain {
	if defaultNetwork == "" {
		defaultNetwork = "ethereum"
	}
	return &NetworkDomain{source: source, defaultNetwork: defaultNetwork}
}

func (d *NetworkDomain) Name() string { return "network" }

func (d *NetworkDomain) Enrich(ctx context.Context, c domain.Context) (any, error) {
	network := d.network(c)
	snap, err := d.source.Stats(ctx, network)
	if err != nil {
		return nil, fmt.Errorf("network: %s: %w", network, err)
	}
	if snap.Network == "" {
		snap.Network = network
	}
	if snap.Congestion == "" {
		snap.Congestion = Congestion(snap.Utilization)
	}
	return snap, nil
}

func (d *NetworkDomain) BuildPrompt(ec domain.EnrichedContext) string {
	var p promptBuilder
	p.line("You are an on-chain analyst assessing how network conditions affect a prediction market.")
	p.blank()
	p.market(ec.Context)

	if n, ok := ec.Payload.(domain.NetworkSnapshot); ok {
		p.line("NETWORK %s (chain %d)", strings.ToUpper(n.Network), n.ChainID)
		p.line("Block: %d", n.BlockNumber)
		p.line("Gas price: %.2f gwei (base fee %.2f gwei)", n.GasPriceGwei, n.BaseFeeGwei)
		p.line("Throughput: %.1f tx/s", n.TPS)
		p.line("Block utilization: %.0f%%, congestion %s", n.Utilization*100, n.Congestion)
		p.blank()
	}

	p.line("Judge whether current activity signals momentum for either outcome and whether the odds reflect it.")
	p.blank()
	p.contract(ec.Context.Mode, "network_impact")
	return p.String()
}

type networkFacts struct {
	Congestion string `json:"congestion"`
	GasBucket  int    `json:"gasBucket"`
	TPSBucket  int    `json:"tpsBucket"`
}

// CacheFacts keys on congestion plus gas in 5 gwei steps and TPS in steps
// of 10.
func (d *NetworkDomain) CacheFacts(ec domain.EnrichedContext) (string, any) {
	n, ok := ec.Payload.(domain.NetworkSnapshot)
	if !ok {
		return d.network(ec.Context), ec.Payload
	}
	return n.Network, networkFacts{
		Congestion: n.Congestion,
		GasBucket:  int(math.Floor(n.GasPriceGwei / 5)),
		TPSBucket:  int(math.Floor(n.TPS / 10)),
	}
}

func (d *NetworkDomain) network(c domain.Context) string {
	if n := strings.ToLower(strings.TrimSpace(c.Network)); n != "" {
		return n
	}
	return d.defaultNetwork
}

// Congestion labels block utilization (gas used over gas limit).
func Congestion(utilization float64) string {
	switch {
	case utilization >= 0.9:
		return "HIGH"
	case utilization >= 0.5:
		return "MEDIUM"
	default:
		return "LOW"
	}
}

var (
	_ Domain     = (*NetworkDomain)(nil)
	_ CacheKeyer = (*NetworkDomain)(nil)
)
