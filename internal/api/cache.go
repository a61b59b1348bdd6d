package api

import (
	"context"
	"math/big"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/Mohsinsiddi/walletdash/internal/metrics"
)

const (
	keyGasPrice    = "gas_price"
	keyBlockNumber = "block_number"
)

// chainCache keeps network-wide values that every account lookup needs.
// Balances are per address and never cached.
type chainCache struct {
	chain   ChainReader
	items   *gocache.Cache
	metrics *metrics.Metrics
}

func newChainCache(c ChainReader, ttl time.Duration, m *metrics.Metrics) *chainCache {
	return &chainCache{
		chain:   c,
		items:   gocache.New(ttl, 2*ttl),
		metrics: m,
	}
}

func (c *chainCache) GasPrice(ctx context.Context) (*big.Int, error) {
	if v, ok := c.items.Get(keyGasPrice); ok {
		c.metrics.CacheLookup(keyGasPrice, true)
		return new(big.Int).Set(v.(*big.Int)), nil
	}
	c.metrics.CacheLookup(keyGasPrice, false)

	p, err := c.chain.GasPrice(ctx)
	if err != nil {
		return nil, err
	}
	c.items.Set(keyGasPrice, new(big.Int).Set(p), gocache.DefaultExpiration)
	return p, nil
}

func (c *chainCache) BlockNumber(ctx context.Context) (uint64, error) {
	if v, ok := c.items.Get(keyBlockNumber); ok {
		c.metrics.CacheLookup(keyBlockNumber, true)
		return v.(uint64), nil
	}
	c.metrics.CacheLookup(keyBlockNumber, false)

	n, err := c.chain.BlockNumber(ctx)
	if err != nil {
		return 0, err
	}
	c.items.Set(keyBlockNumber, n, gocache.DefaultExpiration)
	return n, nil
}
