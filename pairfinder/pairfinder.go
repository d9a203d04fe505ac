// Package pairfinder enumerates candidate DEX venues for a token and gates
// them by on-chain liquidity (§4.2, §4.2.1).
package pairfinder

import (
	"context"
	"strings"
	"time"

	"github.com/luxfi/geth/common"
	luxlog "github.com/luxfi/log"
	"golang.org/x/time/rate"

	"github.com/bscsentry/streamer/chain"
	"github.com/bscsentry/streamer/chaintypes"
	"github.com/bscsentry/streamer/config"
	"github.com/bscsentry/streamer/metrics"
)

var (
	getPairSelector = chain.Selector("getPair(address,address)")
	getPoolSelector = chain.Selector("getPool(address,address,uint24)")
)

// Oracle is the external liquidity-and-price lookup of §4.2.1. A real
// implementation issues one HTTP GET per call; this package only depends on
// the interface, matching the "external collaborator" boundary of §1.
type Oracle interface {
	// Liquidity returns USD liquidity per pair address (lowercase hex) for
	// the given token, scoped to the caller's chain. An error means the
	// oracle was unreachable; pairfinder treats that as OracleUnavailable
	// and keeps every candidate rather than blocking discovery on it.
	Liquidity(ctx context.Context, token common.Address) (map[string]float64, error)
}

// Finder enumerates and liquidity-gates candidate pools for a token.
type Finder struct {
	provider chain.Provider
	oracle   Oracle
	cfg      config.ChainConfig
	limiter  *rate.Limiter
	metrics  *metrics.Metrics
	log      luxlog.Logger
}

// New builds a Finder. m may be nil, in which case pair scans run without
// emitting Prometheus metrics.
func New(provider chain.Provider, oracle Oracle, cfg config.ChainConfig, m *metrics.Metrics) *Finder {
	return &Finder{
		provider: provider,
		oracle:   oracle,
		cfg:      cfg,
		limiter:  rate.NewLimiter(rate.Every(config.PairScanPace), 1),
		metrics:  m,
		log:      luxlog.Root().New("component", "pairfinder"),
	}
}

// Find runs the §4.2 algorithm: scan every base token for a V2 pair and the
// first non-zero V3 pool tier, then liquidity-gate the accumulated list.
func (f *Finder) Find(ctx context.Context, token common.Address) ([]chaintypes.PairInfo, error) {
	start := time.Now()
	if f.metrics != nil {
		defer func() { f.metrics.PairScanDuration.Observe(time.Since(start).Seconds()) }()
	}

	var candidates []chaintypes.PairInfo

	for _, base := range config.BaseTokens {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		if pair, ok, err := f.scanV2(ctx, token, base.Address, base.Symbol); err != nil {
			f.log.Warn("v2 getPair call failed", "base", base.Symbol, "err", err)
		} else if ok {
			candidates = append(candidates, pair)
		}

		for _, fee := range config.V3FeeTiers {
			if err := f.limiter.Wait(ctx); err != nil {
				return nil, err
			}
			pool, ok, err := f.scanV3(ctx, token, base.Address, base.Symbol, fee)
			if err != nil {
				f.log.Warn("v3 getPool call failed", "base", base.Symbol, "fee", fee, "err", err)
				continue
			}
			if ok {
				candidates = append(candidates, pool)
				break // first non-zero tier wins; stop scanning tiers for this base
			}
		}
	}

	return f.gateByLiquidity(ctx, token, candidates), nil
}

func (f *Finder) scanV2(ctx context.Context, token, base common.Address, baseSymbol string) (chaintypes.PairInfo, bool, error) {
	data, err := f.provider.CallContract(ctx, chain.CallMsg{
		To:   f.cfg.V2Factory,
		Data: chain.PackAddressAddress(getPairSelector, token, base),
	})
	if err != nil {
		return chaintypes.PairInfo{}, false, err
	}
	addr := chain.UnpackAddress(data)
	if addr == (common.Address{}) {
		return chaintypes.PairInfo{}, false, nil
	}
	return chaintypes.PairInfo{
		PairAddress: addr,
		TargetToken: token,
		BaseToken:   base,
		BaseSymbol:  baseSymbol,
		IsV3:        false,
	}, true, nil
}

func (f *Finder) scanV3(ctx context.Context, token, base common.Address, baseSymbol string, fee uint32) (chaintypes.PairInfo, bool, error) {
	data, err := f.provider.CallContract(ctx, chain.CallMsg{
		To:   f.cfg.V3Factory,
		Data: chain.PackAddressAddressUint24(getPoolSelector, token, base, fee),
	})
	if err != nil {
		return chaintypes.PairInfo{}, false, err
	}
	addr := chain.UnpackAddress(data)
	if addr == (common.Address{}) {
		return chaintypes.PairInfo{}, false, nil
	}
	return chaintypes.PairInfo{
		PairAddress: addr,
		TargetToken: token,
		BaseToken:   base,
		BaseSymbol:  baseSymbol,
		IsV3:        true,
	}, true, nil
}

// gateByLiquidity applies §4.2.1: candidates are kept when reported
// liquidity is at least config.LiquidityThresholdUSD, or when the oracle is
// unreachable/missing the entry — availability of the oracle must never
// block monitoring.
func (f *Finder) gateByLiquidity(ctx context.Context, token common.Address, candidates []chaintypes.PairInfo) []chaintypes.PairInfo {
	if len(candidates) == 0 {
		return nil
	}

	octx, cancel := context.WithTimeout(ctx, config.OracleTimeout)
	defer cancel()

	liquidity, err := f.oracle.Liquidity(octx, token)
	oracleDown := err != nil
	if oracleDown {
		f.log.Warn("liquidity oracle unavailable, including all candidates", "token", token, "err", err)
		if f.metrics != nil {
			f.metrics.OracleUnavailable.Inc()
		}
	}

	kept := make([]chaintypes.PairInfo, 0, len(candidates))
	for _, c := range candidates {
		if oracleDown {
			kept = append(kept, c)
			continue
		}
		usd, found := liquidity[lowerHex(c.PairAddress)]
		if !found {
			f.log.Warn("pair missing from oracle response, including with warning", "pair", c.PairAddress)
			kept = append(kept, c)
			continue
		}
		if usd >= f.cfg.LiquidityUSDGate {
			kept = append(kept, c)
		}
	}
	return kept
}

func lowerHex(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
