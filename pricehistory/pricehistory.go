// Package pricehistory is an optional, external-collaborator-style
// statistics aggregator: it subscribes to a token's swap events as an
// ordinary streamer.Sink and keeps rolling price statistics. The core
// event-routing packages never import it — it consumes the same public
// SwapEvent shape any other downstream consumer would.
package pricehistory

import (
	"sync"
	"time"

	"github.com/luxfi/geth/common"

	"github.com/bscsentry/streamer/chaintypes"
)

// Sample is one recorded price observation.
type Sample struct {
	Price     float64
	Timestamp time.Time
	TradeType chaintypes.TradeType
}

// Stats summarizes a token's recorded samples.
type Stats struct {
	Count   int
	Min     float64
	Max     float64
	Average float64
	Last    float64
}

// Tracker keeps a bounded rolling window of price samples per token.
type Tracker struct {
	window int

	mu      sync.RWMutex
	samples map[common.Address][]Sample
}

// NewTracker builds a Tracker retaining up to window most-recent samples
// per token. A window of 0 keeps every sample.
func NewTracker(window int) *Tracker {
	return &Tracker{
		window:  window,
		samples: make(map[common.Address][]Sample),
	}
}

// Observe is a streamer.Sink: pass it directly as the sink argument to
// registry.Add or streamer.New to start tracking a token's swap prices.
func (t *Tracker) Observe(ev chaintypes.SwapEvent) {
	if ev.Price.Value <= 0 {
		return
	}

	var ts time.Time
	if ev.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, ev.Timestamp); err == nil {
			ts = parsed
		}
	}
	if ts.IsZero() {
		ts = time.Unix(0, 0)
	}

	sample := Sample{Price: ev.Price.Value, Timestamp: ts, TradeType: ev.TradeType}

	t.mu.Lock()
	defer t.mu.Unlock()

	addr := tokenAddress(ev)
	samples := append(t.samples[addr], sample)
	if t.window > 0 && len(samples) > t.window {
		samples = samples[len(samples)-t.window:]
	}
	t.samples[addr] = samples
}

func tokenAddress(ev chaintypes.SwapEvent) common.Address {
	return ev.Token.Address
}

// Stats returns the current rolling statistics for token, or the zero
// value with Count 0 if nothing has been observed yet.
func (t *Tracker) Stats(token common.Address) Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	samples := t.samples[token]
	if len(samples) == 0 {
		return Stats{}
	}

	stats := Stats{
		Count: len(samples),
		Min:   samples[0].Price,
		Max:   samples[0].Price,
		Last:  samples[len(samples)-1].Price,
	}
	var sum float64
	for _, s := range samples {
		sum += s.Price
		if s.Price < stats.Min {
			stats.Min = s.Price
		}
		if s.Price > stats.Max {
			stats.Max = s.Price
		}
	}
	stats.Average = sum / float64(len(samples))
	return stats
}

// Samples returns a copy of every currently-retained sample for token, in
// observation order.
func (t *Tracker) Samples(token common.Address) []Sample {
	t.mu.RLock()
	defer t.mu.RUnlock()
	src := t.samples[token]
	out := make([]Sample, len(src))
	copy(out, src)
	return out
}

// Forget drops every retained sample for token, e.g. once a caller stops
// watching it via registry.Remove.
func (t *Tracker) Forget(token common.Address) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.samples, token)
}
