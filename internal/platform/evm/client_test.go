package evm

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/signalforge/internal/domain"
)

type fakeChain struct {
	headers map[uint64]*types.Header
	latest  uint64
	txs     uint
}

func (f *fakeChain) ChainID(context.Context) (*big.Int, error) { return big.NewInt(137), nil }

func (f *fakeChain) HeaderByNumber(_ context.Context, n *big.Int) (*types.Header, error) {
	if n == nil {
		return f.headers[f.latest], nil
	}
	h, ok := f.headers[n.Uint64()]
	if !ok {
		return nil, errors.New("not found")
	}
	return h, nil
}

func (f *fakeChain) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(35_500_000_000), nil
}

func (f *fakeChain) TransactionCount(context.Context, common.Hash) (uint, error) { return f.txs, nil }

func TestStats(t *testing.T) {
	chain := &fakeChain{
		latest: 100,
		txs:    120,
		headers: map[uint64]*types.Header{
			99:  {Number: big.NewInt(99), Time: 1000},
			100: {Number: big.NewInt(100), Time: 1002, GasLimit: 30_000_000, GasUsed: 28_500_000, BaseFee: big.NewInt(30_000_000_000)},
		},
	}
	dials := 0
	c := NewClient(map[string]string{"Polygon": "http://rpc"})
	c.dial = func(_ context.Context, url string) (ChainReader, error) {
		dials++
		assert.Equal(t, "http://rpc", url)
		return chain, nil
	}

	snap, err := c.Stats(context.Background(), "polygon")
	require.NoError(t, err)
	assert.Equal(t, uint64(137), snap.ChainID)
	assert.Equal(t, uint64(100), snap.BlockNumber)
	assert.InDelta(t, 35.5, snap.GasPriceGwei, 1e-9)
	assert.InDelta(t, 30.0, snap.BaseFeeGwei, 1e-9)
	assert.InDelta(t, 0.95, snap.Utilization, 1e-9)
	assert.InDelta(t, 60.0, snap.TPS, 1e-9)
	assert.Equal(t, "HIGH", snap.Congestion)

	_, err = c.Stats(context.Background(), "POLYGON")
	require.NoError(t, err)
	assert.Equal(t, 1, dials)
}

func TestStatsUnknownNetwork(t *testing.T) {
	_, err := NewClient(nil).Stats(context.Background(), "solana")
	assert.True(t, errors.Is(err, domain.ErrUnresolvableDomainInput))
}
