// Package metrics exposes the ambient Prometheus counters and gauges for
// the streamer core: swap/migration throughput, decode failures, and the
// size of the live token registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every counter/gauge the core updates. Construct one with
// NewMetrics and register it with a prometheus.Registerer (typically
// prometheus.DefaultRegisterer) once per process.
type Metrics struct {
	SwapsDecoded       *prometheus.CounterVec
	DecodeFailures     *prometheus.CounterVec
	MigrationsDetected prometheus.Counter
	DiscoveryFailures  prometheus.Counter
	WatchedTokens      prometheus.Gauge
	OracleUnavailable  prometheus.Counter
	PairScanDuration   prometheus.Histogram
}

// NewMetrics builds the metric set under the given namespace (e.g.
// "bscsentry") without registering it; call Register to attach it to a
// prometheus.Registerer.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		SwapsDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swaps_decoded_total",
			Help:      "Swap events successfully decoded, by platform and trade type.",
		}, []string{"platform", "trade_type"}),

		DecodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_failures_total",
			Help:      "Logs that failed to decode, by venue kind.",
		}, []string{"venue"}),

		MigrationsDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "migrations_detected_total",
			Help:      "Bonding-curve-to-DEX migrations observed.",
		}),

		DiscoveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "discovery_failures_total",
			Help:      "Tokens for which discovery found neither a DEX pool nor curve residency.",
		}),

		WatchedTokens: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watched_tokens",
			Help:      "Tokens currently tracked by the registry.",
		}),

		OracleUnavailable: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_unavailable_total",
			Help:      "Liquidity oracle calls that failed or timed out.",
		}),

		PairScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pair_scan_duration_seconds",
			Help:      "Wall-clock time spent enumerating candidate pools for one token.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Register attaches every collector to reg. Call once per process; a
// second Register against the same Registerer returns the AlreadyRegistered
// error, matching prometheus.Registerer's own contract.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.SwapsDecoded,
		m.DecodeFailures,
		m.MigrationsDetected,
		m.DiscoveryFailures,
		m.WatchedTokens,
		m.OracleUnavailable,
		m.PairScanDuration,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
