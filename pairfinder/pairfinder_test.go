package pairfinder_test

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/bscsentry/streamer/chain"
	"github.com/bscsentry/streamer/chain/chainmock"
	"github.com/bscsentry/streamer/config"
	"github.com/bscsentry/streamer/pairfinder"
)

var (
	tokenZ     = common.HexToAddress("0x00000000000000000000000000000000000aaA")
	v3Pool500  = common.HexToAddress("0x0000000000000000000000000000000000c500")
	v3Pool2500 = common.HexToAddress("0x0000000000000000000000000000000000c2500")
)

type stubOracle struct {
	liquidity map[string]float64
	err       error
}

func (s stubOracle) Liquidity(ctx context.Context, token common.Address) (map[string]float64, error) {
	return s.liquidity, s.err
}

func addrWord(a common.Address) []byte {
	out := make([]byte, 32)
	copy(out[12:], a.Bytes())
	return out
}

func lower(a common.Address) string {
	return strings.ToLower(a.Hex())
}

// TestV3TierSelection covers S5: Token Z has V3 pools at fee tiers 500 and
// 2500 against USDT; only the first non-zero tier (500) is kept.
func TestV3TierSelection(t *testing.T) {
	v3Factory := common.HexToAddress("0x0000000000000000000000000000000000fEEE")
	usdt := config.BaseTokens[2].Address

	provider := &chainmock.Provider{
		CallContractFunc: func(ctx context.Context, msg chain.CallMsg) ([]byte, error) {
			switch msg.To {
			case config.V2FactoryAddress:
				return addrWord(common.Address{}), nil
			case v3Factory:
				base := common.BytesToAddress(msg.Data[4+32+12 : 4+64])
				fee := new(big.Int).SetBytes(msg.Data[4+64:4+96]).Uint64()
				if base == usdt && fee == 500 {
					return addrWord(v3Pool500), nil
				}
				if base == usdt && fee == 2500 {
					return addrWord(v3Pool2500), nil
				}
				return addrWord(common.Address{}), nil
			default:
				return addrWord(common.Address{}), nil
			}
		},
	}
	cfg := config.DefaultChainConfig()
	cfg.V3Factory = v3Factory
	finder := pairfinder.New(provider, stubOracle{liquidity: map[string]float64{}}, cfg, nil)

	pairs, err := finder.Find(context.Background(), tokenZ)
	require.NoError(t, err)

	var usdtPairs int
	for _, p := range pairs {
		if p.BaseSymbol == "USDT" {
			usdtPairs++
			require.True(t, p.IsV3)
			require.Equal(t, v3Pool500, p.PairAddress)
		}
	}
	require.Equal(t, 1, usdtPairs)
}

// TestLiquidityGate covers S6: a pool below $5000 is dropped, a pool absent
// from the oracle response is kept with a warning.
func TestLiquidityGate(t *testing.T) {
	poolP := common.HexToAddress("0x00000000000000000000000000000000000aaa")
	poolQ := common.HexToAddress("0x00000000000000000000000000000000000bbb")

	provider := &chainmock.Provider{
		CallContractFunc: func(ctx context.Context, msg chain.CallMsg) ([]byte, error) {
			if msg.To != config.V2FactoryAddress {
				return addrWord(common.Address{}), nil
			}
			base := common.BytesToAddress(msg.Data[4+32+12 : 4+64])
			switch base {
			case config.BaseTokens[0].Address:
				return addrWord(poolP), nil
			case config.BaseTokens[1].Address:
				return addrWord(poolQ), nil
			default:
				return addrWord(common.Address{}), nil
			}
		},
	}
	oracle := stubOracle{liquidity: map[string]float64{
		lower(poolP): 4999,
	}}
	finder := pairfinder.New(provider, oracle, config.DefaultChainConfig(), nil)

	pairs, err := finder.Find(context.Background(), tokenZ)
	require.NoError(t, err)

	var sawQ bool
	for _, p := range pairs {
		require.NotEqual(t, poolP, p.PairAddress, "below-threshold pool must be filtered")
		if p.PairAddress == poolQ {
			sawQ = true
		}
	}
	require.True(t, sawQ, "pool absent from oracle response must be kept with a warning")
}

func TestOracleUnavailableKeepsAllCandidates(t *testing.T) {
	poolP := common.HexToAddress("0x00000000000000000000000000000000000ccc")
	provider := &chainmock.Provider{
		CallContractFunc: func(ctx context.Context, msg chain.CallMsg) ([]byte, error) {
			if msg.To == config.V2FactoryAddress && common.BytesToAddress(msg.Data[4+32+12:4+64]) == config.BaseTokens[0].Address {
				return addrWord(poolP), nil
			}
			return addrWord(common.Address{}), nil
		},
	}
	finder := pairfinder.New(provider, stubOracle{err: errors.New("oracle down")}, config.DefaultChainConfig(), nil)

	pairs, err := finder.Find(context.Background(), tokenZ)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	require.Equal(t, poolP, pairs[0].PairAddress)
}
