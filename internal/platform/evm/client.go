// Package evm reads live network conditions from EVM JSON-RPC endpoints.
package evm

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

// ChainReader is the subset of ethclient.Client the stats reader needs.
type ChainReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	TransactionCount(ctx context.Context, blockHash common.Hash) (uint, error)
}

// DialFunc opens a ChainReader for an RPC URL.
type DialFunc func(ctx context.Context, rpcURL string) (ChainReader, error)

func dialEthclient(ctx context.Context, rpcURL string) (ChainReader, error) {
	c, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Client serves NetworkSource lookups for a fixed set of named networks.
// Connections are opened on first use and reused.
type Client struct {
	rpcURLs map[string]string
	dial    DialFunc

	mu      sync.Mutex
	readers map[string]ChainReader
}

// NewClient creates a Client. rpcURLs maps lower-cased network names
// (ethereum, polygon, base, ...) to JSON-RPC URLs.
func NewClient(rpcURLs map[string]string) *Client {
	urls := make(map[string]string, len(rpcURLs))
	for name, u := range rpcURLs {
		urls[strings.ToLower(name)] = u
	}
	return &Client{rpcURLs: urls, dial: dialEthclient, readers: make(map[string]ChainReader)}
}

// Stats samples the latest block of network.
func (c *Client) Stats(ctx context.Context, network string) (domain.NetworkSnapshot, error) {
	network = strings.ToLower(network)
	r, err := c.reader(ctx, network)
	if err != nil {
		return domain.NetworkSnapshot{}, err
	}

	chainID, err := r.ChainID(ctx)
	if err != nil {
		return domain.NetworkSnapshot{}, fmt.Errorf("evm: %s: chain id: %w", network, err)
	}
	head, err := r.HeaderByNumber(ctx, nil)
	if err != nil {
		return domain.NetworkSnapshot{}, fmt.Errorf("evm: %s: latest header: %w", network, err)
	}
	gasPrice, err := r.SuggestGasPrice(ctx)
	if err != nil {
		return domain.NetworkSnapshot{}, fmt.Errorf("evm: %s: gas price: %w", network, err)
	}
	txCount, err := r.TransactionCount(ctx, head.Hash())
	if err != nil {
		return domain.NetworkSnapshot{}, fmt.Errorf("evm: %s: tx count: %w", network, err)
	}

	snap := domain.NetworkSnapshot{
		Network:      network,
		ChainID:      chainID.Uint64(),
		BlockNumber:  head.Number.Uint64(),
		GasPriceGwei: toGwei(gasPrice),
	}
	if head.BaseFee != nil {
		snap.BaseFeeGwei = toGwei(head.BaseFee)
	}
	if head.GasLimit > 0 {
		snap.Utilization = float64(head.GasUsed) / float64(head.GasLimit)
	}

	// Block interval comes from the parent; without it TPS stays 0.
	if head.Number.Sign() > 0 {
		parent, err := r.HeaderByNumber(ctx, new(big.Int).Sub(head.Number, big.NewInt(1)))
		if err == nil && head.Time > parent.Time {
			snap.TPS = float64(txCount) / float64(head.Time-parent.Time)
		}
	}
	snap.Congestion = congestion(snap.Utilization)
	return snap, nil
}

func (c *Client) reader(ctx context.Context, network string) (ChainReader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.readers[network]; ok {
		return r, nil
	}
	u, ok := c.rpcURLs[network]
	if !ok {
		return nil, fmt.Errorf("evm: network %q not configured: %w", network, domain.ErrUnresolvableDomainInput)
	}
	r, err := c.dial(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("evm: dial %s: %w", network, err)
	}
	c.readers[network] = r
	return r, nil
}

func toGwei(wei *big.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e9)).Float64()
	return f
}

func congestion(utilization float64) string {
	switch {
	case utilization >= 0.9:
		return "HIGH"
	case utilization >= 0.5:
		return "MEDIUM"
	default:
		return "LOW"
	}
}
