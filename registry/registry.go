// Package registry implements the multi-token registry of §4.6: a
// supervisor that owns one streamer.Streamer goroutine per watched token
// and exposes add/remove/list/count operations over it.
package registry

import (
	"context"
	"errors"
	"sync"

	"github.com/luxfi/geth/common"
	luxlog "github.com/luxfi/log"

	"github.com/bscsentry/streamer/chain"
	"github.com/bscsentry/streamer/chainerr"
	"github.com/bscsentry/streamer/chaintypes"
	"github.com/bscsentry/streamer/config"
	"github.com/bscsentry/streamer/curveprobe"
	"github.com/bscsentry/streamer/metrics"
	"github.com/bscsentry/streamer/pairfinder"
	"github.com/bscsentry/streamer/streamer"
	"github.com/bscsentry/streamer/swapdecoder"
	"github.com/bscsentry/streamer/tokencache"
)

// entry is the registry's bookkeeping for one watched token: the handle a
// caller uses to tear the token's streamer down, plus a channel that closes
// once the streamer's goroutine has actually returned. The supervisor —
// this registry, not the caller — owns the cancellation handle, so Remove
// and StopAll can guarantee the goroutine is gone before they return.
type entry struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Registry tracks every token currently being watched. It is safe for
// concurrent use from multiple goroutines.
type Registry struct {
	provider chain.Provider
	oracle   pairfinder.Oracle
	cfg      config.ChainConfig
	cache    *tokencache.Cache

	mu      sync.Mutex
	entries map[common.Address]*entry

	metrics *metrics.Metrics
	log     luxlog.Logger
}

// New builds a registry sharing one chain.Provider, liquidity Oracle, and
// token-metadata cache across every watched token, matching §4.1's
// "canonical per-process cache" requirement. m may be nil, in which case
// the registry runs without emitting Prometheus metrics.
func New(provider chain.Provider, oracle pairfinder.Oracle, cfg config.ChainConfig, m *metrics.Metrics) *Registry {
	return &Registry{
		provider: provider,
		oracle:   oracle,
		cfg:      cfg,
		cache:    tokencache.New(provider),
		entries:  make(map[common.Address]*entry),
		metrics:  m,
		log:      luxlog.Root().New("component", "registry"),
	}
}

// Add starts watching token, delivering decoded swaps to sink and
// migrations (if any) to migrationSink. It returns chainerr.ErrAlreadyWatching
// if the token already has a live streamer.
func (r *Registry) Add(token common.Address, sink streamer.Sink, migrationSink streamer.MigrationSink) error {
	r.mu.Lock()
	if _, exists := r.entries[token]; exists {
		r.mu.Unlock()
		return chainerr.ErrAlreadyWatching
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &entry{cancel: cancel, done: make(chan struct{})}
	r.entries[token] = e
	if r.metrics != nil {
		r.metrics.WatchedTokens.Set(float64(len(r.entries)))
	}
	r.mu.Unlock()

	finder := pairfinder.New(r.provider, r.oracle, r.cfg, r.metrics)
	probe := curveprobe.New(r.provider, r.cfg.Launchpad)
	decoder := swapdecoder.New(r.provider, r.cache, r.cfg.Launchpad)
	s := streamer.New(token, r.provider, finder, probe, decoder, r.cfg, r.instrumentSink(sink), r.instrumentMigrationSink(migrationSink), r.metrics)

	go func() {
		defer close(e.done)
		if err := s.Run(ctx); err != nil {
			r.log.Warn("streamer ended", "token", token, "err", err)
			if r.metrics != nil && errors.Is(err, chainerr.ErrDiscoveryEmpty) {
				r.metrics.DiscoveryFailures.Inc()
			}
		}
		r.mu.Lock()
		if r.entries[token] == e {
			delete(r.entries, token)
			if r.metrics != nil {
				r.metrics.WatchedTokens.Set(float64(len(r.entries)))
			}
		}
		r.mu.Unlock()
	}()

	return nil
}

func (r *Registry) instrumentSink(sink streamer.Sink) streamer.Sink {
	if r.metrics == nil || sink == nil {
		return sink
	}
	return func(ev chaintypes.SwapEvent) {
		r.metrics.SwapsDecoded.WithLabelValues(string(ev.Platform), string(ev.TradeType)).Inc()
		sink(ev)
	}
}

func (r *Registry) instrumentMigrationSink(sink streamer.MigrationSink) streamer.MigrationSink {
	if r.metrics == nil {
		return sink
	}
	return func(ev chaintypes.MigrationEvent) {
		r.metrics.MigrationsDetected.Inc()
		if sink != nil {
			sink(ev)
		}
	}
}

// Remove stops watching token and blocks until its streamer goroutine has
// fully exited, so a caller observing Remove's return knows no further
// events for that token can arrive. Returns chainerr.ErrNotWatching if the
// token has no live streamer.
func (r *Registry) Remove(token common.Address) error {
	r.mu.Lock()
	e, exists := r.entries[token]
	r.mu.Unlock()
	if !exists {
		return chainerr.ErrNotWatching
	}

	e.cancel()
	<-e.done
	return nil
}

// List returns every token currently watched, in no particular order.
func (r *Registry) List() []common.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]common.Address, 0, len(r.entries))
	for addr := range r.entries {
		out = append(out, addr)
	}
	return out
}

// Count returns the number of tokens currently watched.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// IsWatching reports whether token currently has a live streamer.
func (r *Registry) IsWatching(token common.Address) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[token]
	return ok
}

// StopAll cancels every watched token's streamer and blocks until all of
// them have exited, matching §4.6's shutdown semantics.
func (r *Registry) StopAll() {
	r.mu.Lock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	for _, e := range entries {
		e.cancel()
	}
	for _, e := range entries {
		<-e.done
	}
}
