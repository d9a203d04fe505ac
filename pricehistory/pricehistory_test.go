package pricehistory_test

import (
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/bscsentry/streamer/chaintypes"
	"github.com/bscsentry/streamer/pricehistory"
)

func swap(token common.Address, price float64) chaintypes.SwapEvent {
	return chaintypes.SwapEvent{
		Token: chaintypes.TokenAmount{Address: token},
		Price: chaintypes.Price{Value: price},
	}
}

func TestStatsAccumulate(t *testing.T) {
	token := common.HexToAddress("0x01")
	tracker := pricehistory.NewTracker(0)

	tracker.Observe(swap(token, 1.0))
	tracker.Observe(swap(token, 3.0))
	tracker.Observe(swap(token, 2.0))

	stats := tracker.Stats(token)
	require.Equal(t, 3, stats.Count)
	require.Equal(t, 1.0, stats.Min)
	require.Equal(t, 3.0, stats.Max)
	require.InDelta(t, 2.0, stats.Average, 1e-9)
	require.Equal(t, 2.0, stats.Last)
}

func TestWindowEviction(t *testing.T) {
	token := common.HexToAddress("0x02")
	tracker := pricehistory.NewTracker(2)

	tracker.Observe(swap(token, 1.0))
	tracker.Observe(swap(token, 2.0))
	tracker.Observe(swap(token, 3.0))

	samples := tracker.Samples(token)
	require.Len(t, samples, 2)
	require.Equal(t, 2.0, samples[0].Price)
	require.Equal(t, 3.0, samples[1].Price)
}

func TestZeroPriceIgnored(t *testing.T) {
	token := common.HexToAddress("0x03")
	tracker := pricehistory.NewTracker(0)
	tracker.Observe(swap(token, 0))
	require.Equal(t, 0, tracker.Stats(token).Count)
}

func TestForgetClearsToken(t *testing.T) {
	token := common.HexToAddress("0x04")
	tracker := pricehistory.NewTracker(0)
	tracker.Observe(swap(token, 1.0))
	require.Equal(t, 1, tracker.Stats(token).Count)
	tracker.Forget(token)
	require.Equal(t, 0, tracker.Stats(token).Count)
}
