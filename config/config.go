// Package config holds the chain-specific constants of §6 (factory/launchpad
// addresses, event topics, the base-token list, V3 fee tiers) and the
// tunables §9 calls out as configuration knobs rather than fixed behavior.
package config

import (
	"math/big"
	"time"

	"github.com/luxfi/geth/common"
)

// Addresses and topics are bit-exact per §6.
var (
	V2FactoryAddress       = common.HexToAddress("0xcA143Ce32Fe78f1f7019d7d551a6402fC5350c73")
	LaunchpadAddress       = common.HexToAddress("0x5c952063c7fc8610FFDB798152D69F0B9550762b")

	TransferTopic0    = common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
	V2SwapTopic0      = common.HexToHash("0xd78ad95fa46c994b6551d0da85fc275fe613ce37657fb8d5e3d130840159d822")
	V3SwapTopic0      = common.HexToHash("0x19b47279256b2a23a1665c810c8d55a1758940ee09377d4f8d26497a3577dc83")
	PairCreatedTopic0 = common.HexToHash("0x0d3648bd0f6ba80134a33ba9275ac585d9d315f0ad8355cddefde31afa28d0e9")
)

// DefaultV3FactoryAddress is the zero address: the V3 factory is
// configurable per target chain and has no single canonical value, so
// callers set ChainConfig.V3Factory rather than relying on this default.
var DefaultV3FactoryAddress = common.Address{}

// V3FeeTiers is the ordered scan list of §4.2: basis-point-encoded tiers,
// scanned in this order, first non-zero pool wins per base token.
var V3FeeTiers = []uint32{100, 500, 2500, 10000}

// BaseTokens is the static quote-asset list of §3/§6, with BSC mainnet
// addresses. ChainConfig carries no base-token list: the pair finder always
// scans this one.
var BaseTokens = []struct {
	Symbol  string
	Address common.Address
}{
	{"WBNB", common.HexToAddress("0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c")},
	{"BUSD", common.HexToAddress("0xe9e7CEA3DedcA5984780Bafc599bD69ADd087D56")},
	{"USDT", common.HexToAddress("0x55d398326f99059fF775485246999027B3197955")},
	{"USDC", common.HexToAddress("0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d")},
	{"WETH", common.HexToAddress("0x2170Ed0880ac9A755fd29B2688956BD959F933F8")},
	{"BTCB", common.HexToAddress("0x7130d2A12B9BCbFAe4f2634d864A1Ee1Ce3Ead9c")},
	{"FOUR", common.HexToAddress("0x74C3dc5f3a71DDC7c74aD8ca8E3852C53D23A4A3")},
}

// LiquidityThresholdUSD is the compile-time gate of §4.2.1.
const LiquidityThresholdUSD = 5000.0

// OracleTimeout bounds the liquidity oracle HTTP call of §4.2.1.
const OracleTimeout = 5 * time.Second

// PairScanPace is the inter-RPC-call pacing sleep of §4.2, expressed as a
// rate-limiter interval rather than a bare sleep (see pairfinder).
const PairScanPace = 200 * time.Millisecond

// CurveResidentBlockWindow is the bonding-curve fallback scan window of
// §4.3 — a configuration knob per §9, not load-tested by the source.
const CurveResidentBlockWindow = uint64(100)

// CurveResidentScanCap bounds the number of Transfer logs inspected by the
// recent-transfer fallback of §4.3.
const CurveResidentScanCap = 50

// BondingCurveSanityCapWei is the upper bound (in wei) the receipt-scan
// heuristic of §4.4.3 accepts as a plausible native-coin amount: 1000
// native coins at 18 decimals.
func BondingCurveSanityCapWei() *big.Int {
	cap := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return cap.Mul(cap, big.NewInt(1000))
}

// ChainConfig groups the addresses a caller may need to override for a
// non-default deployment (e.g. a testnet factory/launchpad), mirroring the
// teacher's params.ChainConfig pattern of a plain struct of chain
// parameters with package-level defaults.
type ChainConfig struct {
	V2Factory        common.Address
	V3Factory        common.Address
	Launchpad        common.Address
	LiquidityUSDGate float64
}

// DefaultChainConfig targets BSC mainnet using the addresses above.
func DefaultChainConfig() ChainConfig {
	return ChainConfig{
		V2Factory:        V2FactoryAddress,
		V3Factory:        DefaultV3FactoryAddress,
		Launchpad:        LaunchpadAddress,
		LiquidityUSDGate: LiquidityThresholdUSD,
	}
}
