package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/bscsentry/streamer/metrics"
)

func TestRegisterAndIncrement(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("bscsentry_test")
	require.NoError(t, m.Register(reg))

	m.SwapsDecoded.WithLabelValues("PancakeSwap", "Buy").Inc()
	m.WatchedTokens.Set(3)

	families, err := reg.Gather()
	require.NoError(t, err)

	var sawSwaps, sawWatched bool
	for _, f := range families {
		switch f.GetName() {
		case "bscsentry_test_swaps_decoded_total":
			sawSwaps = true
			require.Equal(t, float64(1), f.Metric[0].Counter.GetValue())
		case "bscsentry_test_watched_tokens":
			sawWatched = true
			require.Equal(t, float64(3), f.Metric[0].Gauge.GetValue())
		}
	}
	require.True(t, sawSwaps)
	require.True(t, sawWatched)
}

func TestDoubleRegisterFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("bscsentry_test2")
	require.NoError(t, m.Register(reg))
	require.Error(t, m.Register(reg))
}
