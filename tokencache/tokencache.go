// Package tokencache implements the process-lifetime token metadata cache
// of §4.1: one shared, unbounded map amortizing (symbol, decimals) lookups
// across every streamer in the registry.
package tokencache

import (
	"context"
	"sync"

	"github.com/luxfi/geth/common"
	luxlog "github.com/luxfi/log"

	"github.com/bscsentry/streamer/chain"
	"github.com/bscsentry/streamer/chaintypes"
)

var (
	nameSelector     = chain.Selector("name()")
	symbolSelector   = chain.Selector("symbol()")
	decimalsSelector = chain.Selector("decimals()")
)

// Cache maps token address to TokenMetadata. Reads take the read lock;
// a miss issues two contract calls, symbol() and decimals() (name() is not
// read; see Name), and takes the write lock only once they return, so
// concurrent readers never block on the network round-trip of another
// reader's miss beyond the single populate call they triggered.
type Cache struct {
	provider chain.Provider
	log      luxlog.Logger

	mu    sync.RWMutex
	byAddr map[common.Address]*chaintypes.TokenMetadata
}

func New(provider chain.Provider) *Cache {
	return &Cache{
		provider: provider,
		log:      luxlog.Root().New("component", "tokencache"),
		byAddr:   make(map[common.Address]*chaintypes.TokenMetadata),
	}
}

// Get returns the cached metadata for addr, populating it on first use.
// Individual contract-call failures fall back to the documented defaults
// rather than failing the whole lookup.
func (c *Cache) Get(ctx context.Context, addr common.Address) *chaintypes.TokenMetadata {
	c.mu.RLock()
	if m, ok := c.byAddr[addr]; ok {
		c.mu.RUnlock()
		return m
	}
	c.mu.RUnlock()

	symbol := c.readSymbol(ctx, addr)
	decimals := c.readDecimals(ctx, addr)
	meta := &chaintypes.TokenMetadata{
		Address:  addr,
		Symbol:   symbol,
		Decimals: decimals,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.byAddr[addr]; ok {
		// Another goroutine populated it first; keep the first insert so
		// the cache is immutable after insertion as §4.1 requires.
		return existing
	}
	c.byAddr[addr] = meta
	return meta
}

func (c *Cache) readSymbol(ctx context.Context, addr common.Address) string {
	data, err := c.provider.CallContract(ctx, chain.CallMsg{To: addr, Data: symbolSelector})
	if err != nil {
		c.log.Warn("symbol() call failed, using default", "token", addr, "err", err)
		return chaintypes.DefaultSymbol
	}
	symbol := chain.UnpackString(data)
	if symbol == "" {
		return chaintypes.DefaultSymbol
	}
	return symbol
}

func (c *Cache) readDecimals(ctx context.Context, addr common.Address) uint8 {
	data, err := c.provider.CallContract(ctx, chain.CallMsg{To: addr, Data: decimalsSelector})
	if err != nil {
		c.log.Warn("decimals() call failed, using default", "token", addr, "err", err)
		return chaintypes.DefaultDecimals
	}
	dec := chain.UnpackUint256(data)
	if dec == nil || !dec.IsUint64() || dec.Uint64() > 255 {
		return chaintypes.DefaultDecimals
	}
	return uint8(dec.Uint64())
}

// Name reads the name() call for completeness with the original three
// contract reads of §4.1; the canonical TokenMetadata only carries symbol
// and decimals, so callers needing the full name use this directly rather
// than through Get.
func (c *Cache) Name(ctx context.Context, addr common.Address) string {
	data, err := c.provider.CallContract(ctx, chain.CallMsg{To: addr, Data: nameSelector})
	if err != nil {
		c.log.Warn("name() call failed, using default", "token", addr, "err", err)
		return chaintypes.DefaultSymbol
	}
	name := chain.UnpackString(data)
	if name == "" {
		return chaintypes.DefaultSymbol
	}
	return name
}
