package streamer_test

import (
	"context"
	"math/big"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/stretchr/testify/require"

	"github.com/bscsentry/streamer/chain"
	"github.com/bscsentry/streamer/chain/chainmock"
	"github.com/bscsentry/streamer/chainerr"
	"github.com/bscsentry/streamer/chaintypes"
	"github.com/bscsentry/streamer/config"
	"github.com/bscsentry/streamer/curveprobe"
	"github.com/bscsentry/streamer/pairfinder"
	"github.com/bscsentry/streamer/streamer"
	"github.com/bscsentry/streamer/swapdecoder"
	"github.com/bscsentry/streamer/tokencache"
)

type noopOracle struct{}

func (noopOracle) Liquidity(ctx context.Context, token common.Address) (map[string]float64, error) {
	return nil, nil // empty response: every candidate is missing from it, so pairfinder keeps it
}

func word32(n *big.Int) []byte {
	out := make([]byte, 32)
	n.FillBytes(out)
	return out
}

func addressWord(a common.Address) []byte {
	return word32(new(big.Int).SetBytes(a.Bytes()))
}

func hashOf(a common.Address) common.Hash {
	return common.BytesToHash(a.Bytes())
}

func waitForSubCount(t *testing.T, provider *chainmock.Provider, n int) []*chainmock.Subscription {
	t.Helper()
	// Discovery paces every factory call by config.PairScanPace (7 base
	// tokens x 5 calls), so subscriptions open only after several seconds.
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if subs := provider.Subscriptions(); len(subs) >= n {
			return subs
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d subscriptions", n)
	return nil
}

// TestRunDexDiscoveryAndStreaming covers the DISCOVERING -> DEX_STREAMING
// path: the pair finder resolves a V2 pool on the first base token, the
// streamer subscribes to its Swap topic, and a pushed log reaches the sink.
func TestRunDexDiscoveryAndStreaming(t *testing.T) {
	token := common.HexToAddress("0x1000000000000000000000000000000000000a")
	baseToken := config.BaseTokens[0].Address
	pairAddr := common.HexToAddress("0x2000000000000000000000000000000000000b")

	provider := &chainmock.Provider{
		CallContractFunc: func(ctx context.Context, msg chain.CallMsg) ([]byte, error) {
			sel := msg.Data[:4]
			switch {
			case string(sel) == string(chain.Selector("getPair(address,address)")):
				if common.BytesToAddress(msg.Data[4+32+12:4+64]) == baseToken {
					return addressWord(pairAddr), nil
				}
				return addressWord(common.Address{}), nil
			case string(sel) == string(chain.Selector("getPool(address,address,uint24)")):
				return addressWord(common.Address{}), nil
			case string(sel) == string(chain.Selector("token0()")):
				return addressWord(token), nil
			case string(sel) == string(chain.Selector("token1()")):
				return addressWord(baseToken), nil
			case string(sel) == string(chain.Selector("symbol()")):
				return packedTestString("TOK"), nil
			case string(sel) == string(chain.Selector("decimals()")):
				return word32(big.NewInt(18)), nil
			}
			return nil, nil
		},
		HeaderByNumberFunc: func(ctx context.Context, number *big.Int) (*types.Header, error) {
			return &types.Header{Time: 1700000000}, nil
		},
	}

	cache := tokencache.New(provider)
	finder := pairfinder.New(provider, noopOracle{}, config.DefaultChainConfig(), nil)
	probe := curveprobe.New(provider, config.LaunchpadAddress)
	decoder := swapdecoder.New(provider, cache, config.LaunchpadAddress)

	swapEvents := make(chan chaintypes.SwapEvent, 4)
	sink := func(ev chaintypes.SwapEvent) { swapEvents <- ev }

	s := streamer.New(token, provider, finder, probe, decoder, config.DefaultChainConfig(), sink, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	subs := waitForSubCount(t, provider, 1)
	require.Len(t, subs[0].Query().Addresses, 1)
	require.Equal(t, pairAddr, subs[0].Query().Addresses[0])

	data := make([]byte, 0, 128)
	data = append(data, word32(big.NewInt(0))...)
	amount1In, _ := new(big.Int).SetString("2000000000000000", 10)
	data = append(data, word32(amount1In)...)
	amount0Out, _ := new(big.Int).SetString("1000000000000000000", 10)
	data = append(data, word32(amount0Out)...)
	data = append(data, word32(big.NewInt(0))...)

	subs[0].Push(types.Log{
		Topics: []common.Hash{
			config.V2SwapTopic0,
			hashOf(common.HexToAddress("0xaaaa")),
			hashOf(common.HexToAddress("0xbbbb")),
		},
		Data:        data,
		BlockNumber: 100,
	})

	select {
	case ev := <-swapEvents:
		require.Equal(t, chaintypes.TradeBuy, ev.TradeType)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for swap event")
	}

	cancel()
	select {
	case err := <-runErr:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for Run to return after cancellation")
	}
}

// TestRunDiscoveryEmptyIsTerminal covers S3: no DEX pools and no curve
// residency is a terminal failure, not a retry.
func TestRunDiscoveryEmptyIsTerminal(t *testing.T) {
	token := common.HexToAddress("0x3000000000000000000000000000000000000a")
	provider := &chainmock.Provider{
		CallContractFunc: func(ctx context.Context, msg chain.CallMsg) ([]byte, error) {
			return addressWord(common.Address{}), nil
		},
	}
	cache := tokencache.New(provider)
	finder := pairfinder.New(provider, noopOracle{}, config.DefaultChainConfig(), nil)
	probe := curveprobe.New(provider, config.LaunchpadAddress)
	decoder := swapdecoder.New(provider, cache, config.LaunchpadAddress)

	s := streamer.New(token, provider, finder, probe, decoder, config.DefaultChainConfig(), nil, nil, nil)
	err := s.Run(context.Background())
	require.ErrorIs(t, err, chainerr.ErrDiscoveryEmpty)
}

// TestRunCurveStreamingMigratesToDex covers S2: a curve-resident token
// whose PairCreated migration fires a MigrationEvent strictly before any
// PancakeSwap SwapEvent is observed.
func TestRunCurveStreamingMigratesToDex(t *testing.T) {
	token := common.HexToAddress("0x4000000000000000000000000000000000000a")
	baseToken := config.BaseTokens[0].Address
	pairAddr := common.HexToAddress("0x5000000000000000000000000000000000000b")

	var migrated atomic.Bool

	provider := &chainmock.Provider{
		CallContractFunc: func(ctx context.Context, msg chain.CallMsg) ([]byte, error) {
			sel := msg.Data[:4]
			switch {
			case string(sel) == string(chain.Selector("getPair(address,address)")):
				if migrated.Load() && common.BytesToAddress(msg.Data[4+32+12:4+64]) == baseToken {
					return addressWord(pairAddr), nil
				}
				return addressWord(common.Address{}), nil
			case string(sel) == string(chain.Selector("getPool(address,address,uint24)")):
				return addressWord(common.Address{}), nil
			case string(sel) == string(chain.Selector("balanceOf(address)")):
				return word32(big.NewInt(100)), nil
			case string(sel) == string(chain.Selector("token0()")):
				return addressWord(token), nil
			case string(sel) == string(chain.Selector("token1()")):
				return addressWord(baseToken), nil
			case string(sel) == string(chain.Selector("symbol()")):
				return packedTestString("TOK"), nil
			case string(sel) == string(chain.Selector("decimals()")):
				return word32(big.NewInt(18)), nil
			}
			return nil, nil
		},
		HeaderByNumberFunc: func(ctx context.Context, number *big.Int) (*types.Header, error) {
			return &types.Header{Time: 1700000000}, nil
		},
	}

	cache := tokencache.New(provider)
	finder := pairfinder.New(provider, noopOracle{}, config.DefaultChainConfig(), nil)
	probe := curveprobe.New(provider, config.LaunchpadAddress)
	decoder := swapdecoder.New(provider, cache, config.LaunchpadAddress)

	swapEvents := make(chan chaintypes.SwapEvent, 4)
	migrationEvents := make(chan chaintypes.MigrationEvent, 1)
	sink := func(ev chaintypes.SwapEvent) { swapEvents <- ev }
	migrationSink := func(ev chaintypes.MigrationEvent) { migrationEvents <- ev }

	s := streamer.New(token, provider, finder, probe, decoder, config.DefaultChainConfig(), sink, migrationSink, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- s.Run(ctx) }()

	subs := waitForSubCount(t, provider, 2)
	var transferSub, pairCreatedSub *chainmock.Subscription
	for _, sub := range subs {
		if len(sub.Query().Topics) > 0 && sub.Query().Topics[0][0] == config.TransferTopic0 {
			transferSub = sub
		} else {
			pairCreatedSub = sub
		}
	}
	require.NotNil(t, transferSub)
	require.NotNil(t, pairCreatedSub)

	transferSub.Push(types.Log{
		Topics: []common.Hash{
			config.TransferTopic0,
			hashOf(config.LaunchpadAddress),
			hashOf(common.HexToAddress("0xcccc")),
		},
		Data:        word32(big.NewInt(10)),
		BlockNumber: 200,
	})

	select {
	case ev := <-swapEvents:
		require.Equal(t, chaintypes.PlatformFourMemeBondingCurve, ev.Platform)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for curve swap event")
	}

	migrated.Store(true)
	pairCreatedSub.Push(types.Log{
		Topics: []common.Hash{
			config.PairCreatedTopic0,
			hashOf(token),
			hashOf(baseToken),
		},
		BlockNumber: 300,
	})

	select {
	case ev := <-migrationEvents:
		require.Equal(t, chaintypes.PlatformFourMemeBondingCurve, ev.FromPlatform)
		require.Equal(t, chaintypes.PlatformPancakeSwap, ev.ToPlatform)
		require.Equal(t, 1, ev.PairCount)
	case <-time.After(15 * time.Second): // the event follows a full paced rediscovery
		t.Fatal("timed out waiting for migration event")
	}

	select {
	case ev := <-swapEvents:
		t.Fatalf("unexpected swap event before new dex subscription: %+v", ev)
	default:
	}

	dexSubs := waitForSubCount(t, provider, 3)
	var dexSub *chainmock.Subscription
	for _, sub := range dexSubs {
		if sub != transferSub && sub != pairCreatedSub {
			dexSub = sub
		}
	}
	require.NotNil(t, dexSub)

	data := make([]byte, 0, 128)
	data = append(data, word32(big.NewInt(0))...)
	amount1In, _ := new(big.Int).SetString("2000000000000000", 10)
	data = append(data, word32(amount1In)...)
	amount0Out, _ := new(big.Int).SetString("1000000000000000000", 10)
	data = append(data, word32(amount0Out)...)
	data = append(data, word32(big.NewInt(0))...)

	dexSub.Push(types.Log{
		Topics: []common.Hash{
			config.V2SwapTopic0,
			hashOf(common.HexToAddress("0xaaaa")),
			hashOf(common.HexToAddress("0xbbbb")),
		},
		Data:        data,
		BlockNumber: 301,
	})

	select {
	case ev := <-swapEvents:
		require.Equal(t, chaintypes.PlatformPancakeSwap, ev.Platform)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for post-migration dex swap event")
	}
}

func packedTestString(s string) []byte {
	words := (len(s) + 31) / 32
	if words == 0 {
		words = 1
	}
	out := make([]byte, 32+32+words*32)
	out[31] = 0x20
	out[63] = byte(len(s))
	copy(out[64:], s)
	return out
}
