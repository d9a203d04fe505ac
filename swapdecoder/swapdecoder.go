// Package swapdecoder turns a raw log into the canonical SwapEvent,
// dispatching on venue kind (§4.4).
package swapdecoder

import (
	"context"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	luxlog "github.com/luxfi/log"

	"github.com/bscsentry/streamer/chain"
	"github.com/bscsentry/streamer/chainerr"
	"github.com/bscsentry/streamer/chaintypes"
	"github.com/bscsentry/streamer/config"
	"github.com/bscsentry/streamer/tokencache"
)

var (
	token0Selector = chain.Selector("token0()")
	token1Selector = chain.Selector("token1()")
)

// Non-indexed data layouts for the three event kinds this package decodes,
// expressed as abi.Arguments rather than hand-rolled offsets so the decode
// goes through the same accounts/abi word-unpacking every contract read in
// this module uses. Each Arguments value only needs to cover the words this
// package actually reads; abi.Arguments.Unpack stops once its own types are
// consumed and tolerates trailing data, so the V3 args below (the two signed
// amounts) can ignore the sqrtPriceX96/liquidity/tick/fee words that follow
// in the real V3 Swap event.
var (
	v2SwapDataArgs = abi.Arguments{
		{Name: "amount0In", Type: mustABIType("uint256")},
		{Name: "amount1In", Type: mustABIType("uint256")},
		{Name: "amount0Out", Type: mustABIType("uint256")},
		{Name: "amount1Out", Type: mustABIType("uint256")},
	}
	v3SwapDataArgs = abi.Arguments{
		{Name: "amount0", Type: mustABIType("int256")},
		{Name: "amount1", Type: mustABIType("int256")},
	}
	transferDataArgs = abi.Arguments{
		{Name: "value", Type: mustABIType("uint256")},
	}
)

func mustABIType(solType string) abi.Type {
	t, err := abi.NewType(solType, "", nil)
	if err != nil {
		panic(err)
	}
	return t
}

// Decoder decodes V2 Swap logs, V3 Swap logs, and bonding-curve Transfer
// logs into one SwapEvent shape. It is stateless across calls except for a
// small token0/token1-per-pair memo, matching §4.4's "may be cached" note.
type Decoder struct {
	provider  chain.Provider
	cache     *tokencache.Cache
	launchpad common.Address
	log       luxlog.Logger

	mu         sync.RWMutex
	pairTokens map[common.Address][2]common.Address // pair -> (token0, token1)
}

func New(provider chain.Provider, cache *tokencache.Cache, launchpad common.Address) *Decoder {
	return &Decoder{
		provider:   provider,
		cache:      cache,
		launchpad:  launchpad,
		log:        luxlog.Root().New("component", "swapdecoder"),
		pairTokens: make(map[common.Address][2]common.Address),
	}
}

func (d *Decoder) tokens(ctx context.Context, pair common.Address) (token0, token1 common.Address, err error) {
	d.mu.RLock()
	if t, ok := d.pairTokens[pair]; ok {
		d.mu.RUnlock()
		return t[0], t[1], nil
	}
	d.mu.RUnlock()

	data0, err := d.provider.CallContract(ctx, chain.CallMsg{To: pair, Data: token0Selector})
	if err != nil {
		return common.Address{}, common.Address{}, chainerr.Transient("token0()", err)
	}
	data1, err := d.provider.CallContract(ctx, chain.CallMsg{To: pair, Data: token1Selector})
	if err != nil {
		return common.Address{}, common.Address{}, chainerr.Transient("token1()", err)
	}
	token0 = chain.UnpackAddress(data0)
	token1 = chain.UnpackAddress(data1)

	d.mu.Lock()
	d.pairTokens[pair] = [2]common.Address{token0, token1}
	d.mu.Unlock()
	return token0, token1, nil
}

// DecodeV2 decodes a PancakeSwap V2 Swap(address,uint256,uint256,uint256,uint256,address)
// log (§4.4.1).
func (d *Decoder) DecodeV2(ctx context.Context, l types.Log, pair chaintypes.PairInfo) (*chaintypes.SwapEvent, error) {
	if len(l.Topics) < 3 || len(l.Data) < 128 {
		return nil, chainerr.Decode("v2 swap log", chainerr.ErrDecodeFailure)
	}

	token0, token1, err := d.tokens(ctx, pair.PairAddress)
	if err != nil {
		return nil, err
	}

	values, err := v2SwapDataArgs.Unpack(l.Data)
	if err != nil || len(values) != 4 {
		return nil, chainerr.Decode("v2 swap log data", chainerr.ErrDecodeFailure)
	}
	amount0In := values[0].(*big.Int)
	amount1In := values[1].(*big.Int)
	amount0Out := values[2].(*big.Int)
	amount1Out := values[3].(*big.Int)

	watchedIsToken0 := pair.TargetToken == token0
	var watchedOut, watchedIn, otherOut, otherIn *big.Int
	if watchedIsToken0 {
		watchedOut, watchedIn = amount0Out, amount0In
		otherOut, otherIn = amount1Out, amount1In
	} else {
		watchedOut, watchedIn = amount1Out, amount1In
		otherOut, otherIn = amount0Out, amount0In
	}

	var tradeType chaintypes.TradeType
	var tokenAmount, baseAmount *big.Int
	if watchedOut.Sign() > 0 {
		tradeType = chaintypes.TradeBuy
		tokenAmount = watchedOut
		baseAmount = otherIn
	} else {
		tradeType = chaintypes.TradeSell
		tokenAmount = watchedIn
		baseAmount = otherOut
	}

	sender := common.BytesToAddress(l.Topics[1].Bytes())
	recipient := common.BytesToAddress(l.Topics[2].Bytes())

	tokenMeta := d.cache.Get(ctx, pair.TargetToken)
	baseMeta := d.cache.Get(ctx, pair.BaseToken)

	ev := d.buildEvent(chaintypes.PlatformPancakeSwap, tradeType, pair.TargetToken, tokenMeta, tokenAmount, pair.BaseToken, baseMeta, baseAmount, sender, recipient, l)
	ev.PairAddress = &pair.PairAddress
	d.enrichTimestamp(ctx, ev, l.BlockNumber)
	return ev, nil
}

// DecodeV3 decodes a PancakeSwap V3 Swap log with protocol fees (9 params,
// §4.4.2): amount0 and amount1 are signed int256, positive meaning the
// token flowed into the pool.
func (d *Decoder) DecodeV3(ctx context.Context, l types.Log, pair chaintypes.PairInfo) (*chaintypes.SwapEvent, error) {
	if len(l.Topics) < 3 || len(l.Data) < 64 {
		return nil, chainerr.Decode("v3 swap log", chainerr.ErrDecodeFailure)
	}

	token0, token1, err := d.tokens(ctx, pair.PairAddress)
	if err != nil {
		return nil, err
	}

	values, err := v3SwapDataArgs.Unpack(l.Data)
	if err != nil || len(values) != 2 {
		return nil, chainerr.Decode("v3 swap log data", chainerr.ErrDecodeFailure)
	}
	amount0 := values[0].(*big.Int)
	amount1 := values[1].(*big.Int)

	watchedIsToken0 := pair.TargetToken == token0

	var watchedAmount, otherAmount *big.Int
	if watchedIsToken0 {
		watchedAmount, otherAmount = amount0, amount1
	} else {
		watchedAmount, otherAmount = amount1, amount0
	}

	var tradeType chaintypes.TradeType
	if watchedAmount.Sign() < 0 {
		// flowed out of the pool to the trader
		tradeType = chaintypes.TradeBuy
	} else {
		tradeType = chaintypes.TradeSell
	}
	tokenAmount := new(big.Int).Abs(watchedAmount)
	baseAmount := new(big.Int).Abs(otherAmount)

	sender := common.BytesToAddress(l.Topics[1].Bytes())
	recipient := common.BytesToAddress(l.Topics[2].Bytes())

	_ = token1 // only needed to determine watchedIsToken0 above

	tokenMeta := d.cache.Get(ctx, pair.TargetToken)
	baseMeta := d.cache.Get(ctx, pair.BaseToken)

	ev := d.buildEvent(chaintypes.PlatformPancakeSwap, tradeType, pair.TargetToken, tokenMeta, tokenAmount, pair.BaseToken, baseMeta, baseAmount, sender, recipient, l)
	ev.PairAddress = &pair.PairAddress
	d.enrichTimestamp(ctx, ev, l.BlockNumber)
	return ev, nil
}

// DecodeCurveTransfer infers a trade from an ERC-20 Transfer log on the
// watched token, filtered to transfers touching the launchpad (§4.4.3).
// Returns (nil, nil) when the log is not a trade (neither side is the
// launchpad) — not an error, just "skip".
func (d *Decoder) DecodeCurveTransfer(ctx context.Context, l types.Log, watchedToken common.Address) (*chaintypes.SwapEvent, error) {
	if len(l.Topics) < 3 || len(l.Data) < 32 {
		return nil, chainerr.Decode("curve transfer log", chainerr.ErrDecodeFailure)
	}

	from := common.BytesToAddress(l.Topics[1].Bytes())
	to := common.BytesToAddress(l.Topics[2].Bytes())

	values, err := transferDataArgs.Unpack(l.Data)
	if err != nil || len(values) != 1 {
		return nil, chainerr.Decode("curve transfer log data", chainerr.ErrDecodeFailure)
	}
	value := values[0].(*big.Int)

	var tradeType chaintypes.TradeType
	switch {
	case from == d.launchpad:
		tradeType = chaintypes.TradeBuy
	case to == d.launchpad:
		tradeType = chaintypes.TradeSell
	default:
		return nil, nil
	}

	baseAmount := d.recoverNativeAmount(ctx, l, tradeType)

	tokenMeta := d.cache.Get(ctx, watchedToken)
	// The bonding curve's base side is the chain's native coin, not an
	// ERC-20; decimals default to 18 and symbol is display-only.
	baseMeta := &chaintypes.TokenMetadata{Symbol: "BNB", Decimals: 18}

	ev := d.buildEvent(chaintypes.PlatformFourMemeBondingCurve, tradeType, watchedToken, tokenMeta, value, common.Address{}, baseMeta, baseAmount, from, to, l)
	ev.BondingCurveAddress = &d.launchpad
	d.enrichTimestamp(ctx, ev, l.BlockNumber)
	return ev, nil
}

// recoverNativeAmount applies the best-effort base-amount recovery of
// §4.4.3. Price is zero when no plausible amount can be recovered — this
// is documented heuristic recovery, not an on-chain-ABI-verified value
// (§9, open question 2).
func (d *Decoder) recoverNativeAmount(ctx context.Context, l types.Log, tradeType chaintypes.TradeType) *big.Int {
	if tradeType == chaintypes.TradeBuy {
		tx, err := d.provider.TransactionByHash(ctx, l.TxHash)
		if err == nil && tx != nil && tx.Value() != nil && tx.Value().Sign() > 0 {
			return tx.Value()
		}
	}
	return d.scanReceiptForNativeAmount(ctx, l.TxHash)
}

func (d *Decoder) scanReceiptForNativeAmount(ctx context.Context, txHash common.Hash) *big.Int {
	receipt, err := d.provider.TransactionReceipt(ctx, txHash)
	if err != nil || receipt == nil {
		return big.NewInt(0)
	}
	sanityCap := config.BondingCurveSanityCapWei()
	for _, rl := range receipt.Logs {
		if rl.Address != d.launchpad {
			continue
		}
		if v, ok := plausibleAmountAtOffset(rl.Data, 128, 160, sanityCap); ok {
			return v
		}
		if v, ok := plausibleAmountAtOffset(rl.Data, 64, 96, sanityCap); ok {
			return v
		}
	}
	return big.NewInt(0)
}

func plausibleAmountAtOffset(data []byte, from, to int, sanityCap *big.Int) (*big.Int, bool) {
	if len(data) < to {
		return nil, false
	}
	v := new(big.Int).SetBytes(data[from:to])
	if v.Sign() > 0 && v.Cmp(sanityCap) < 0 {
		return v, true
	}
	return nil, false
}

func (d *Decoder) buildEvent(
	platform chaintypes.Platform,
	tradeType chaintypes.TradeType,
	tokenAddr common.Address,
	tokenMeta *chaintypes.TokenMetadata,
	tokenAmount *big.Int,
	baseAddr common.Address,
	baseMeta *chaintypes.TokenMetadata,
	baseAmount *big.Int,
	sender, recipient common.Address,
	l types.Log,
) *chaintypes.SwapEvent {
	token := chaintypes.TokenAmount{Address: tokenAddr, Symbol: tokenMeta.Symbol, Amount: tokenAmount, Decimals: tokenMeta.Decimals}
	base := chaintypes.TokenAmount{Address: baseAddr, Symbol: baseMeta.Symbol, Amount: baseAmount, Decimals: baseMeta.Decimals}

	var priceValue float64
	if tokenAmount != nil && tokenAmount.Sign() > 0 {
		priceValue = base.Scaled() / token.Scaled()
	}

	return &chaintypes.SwapEvent{
		TxHash:      l.TxHash,
		BlockNumber: l.BlockNumber,
		Platform:    platform,
		TradeType:   tradeType,
		Token:       token,
		Base:        base,
		Price: chaintypes.Price{
			Value:      priceValue,
			Display:    formatPrice(priceValue),
			BaseSymbol: baseMeta.Symbol,
		},
		Sender:    sender,
		Recipient: recipient,
	}
}

// enrichTimestamp fetches the containing block's header and sets
// ev.Timestamp; a fetch failure leaves it empty without failing the event
// (§4.4.4).
func (d *Decoder) enrichTimestamp(ctx context.Context, ev *chaintypes.SwapEvent, blockNumber uint64) {
	header, err := d.provider.HeaderByNumber(ctx, new(big.Int).SetUint64(blockNumber))
	if err != nil || header == nil {
		d.log.Warn("timestamp enrichment failed", "block", blockNumber, "err", err)
		return
	}
	ev.Timestamp = time.Unix(int64(header.Time), 0).UTC().Format(time.RFC3339)
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
