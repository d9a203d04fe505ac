// Package chaintypes holds the canonical schemas shared by every package in
// the streamer: addresses, the swap/migration event shapes, and the venue
// variant that routing and decoding dispatch on.
package chaintypes

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
)

// Address and Hash are re-exported so callers never need to import
// github.com/luxfi/geth/common directly to use this package.
type (
	Address = common.Address
	Hash    = common.Hash
)

// Platform identifies which venue a SwapEvent was observed on.
type Platform string

const (
	PlatformPancakeSwap         Platform = "PancakeSwap"
	PlatformFourMemeBondingCurve Platform = "FourMemeBondingCurve"
)

// TradeType is the direction of a swap from the watched token's perspective.
type TradeType string

const (
	TradeBuy  TradeType = "Buy"
	TradeSell TradeType = "Sell"
)

// TokenMetadata is memoized per address by the token cache (§4.1). Decimals
// and Symbol fall back to safe defaults when the underlying contract calls
// fail; a TokenMetadata is immutable after insertion.
type TokenMetadata struct {
	Address  Address
	Symbol   string
	Decimals uint8
}

// DefaultSymbol and DefaultDecimals are the fallback values used when a
// token's name/symbol/decimals contract calls fail.
const (
	DefaultSymbol   = "UNKNOWN"
	DefaultDecimals = uint8(18)
)

// BaseToken is a well-known quote asset a watched token may be priced
// against.
type BaseToken struct {
	Symbol  string
	Address Address
}

// PairInfo identifies one candidate DEX venue for a token.
type PairInfo struct {
	PairAddress Address
	TargetToken Address
	BaseToken   Address
	BaseSymbol  string
	IsV3        bool
}

// Venue is the closed tagged variant of §9: a token is trading either on a
// DEX pair/pool, or on the bonding-curve launchpad. Kind says which of the
// two payload fields is valid; build values with DexVenue or
// BondingCurveVenue so the two always agree. Callers switch on Kind; Go does
// not check that such a switch covers every kind.
type VenueKind int

const (
	VenueDex VenueKind = iota
	VenueBondingCurve
)

func (k VenueKind) String() string {
	switch k {
	case VenueDex:
		return "dex"
	case VenueBondingCurve:
		return "bonding-curve"
	default:
		return fmt.Sprintf("VenueKind(%d)", int(k))
	}
}

type Venue struct {
	Kind            VenueKind
	Pair            PairInfo // valid iff Kind == VenueDex
	LaunchpadAddress Address  // valid iff Kind == VenueBondingCurve
}

func DexVenue(pair PairInfo) Venue {
	return Venue{Kind: VenueDex, Pair: pair}
}

func BondingCurveVenue(launchpad Address) Venue {
	return Venue{Kind: VenueBondingCurve, LaunchpadAddress: launchpad}
}

// TokenAmount is one side of a swap: an on-chain amount alongside the token
// identity needed to render it as a decimal string.
type TokenAmount struct {
	Address  Address
	Symbol   string
	Amount   *big.Int // raw on-chain amount, unscaled
	Decimals uint8
}

// Display renders Amount scaled by Decimals as a fixed-point decimal string,
// e.g. "1.000000000000000000" for 1e18 wei at 18 decimals.
func (a TokenAmount) Display() string {
	return formatUnits(a.Amount, a.Decimals)
}

// Scaled returns Amount/10^Decimals as a float64, used for the price ratio.
func (a TokenAmount) Scaled() float64 {
	if a.Amount == nil {
		return 0
	}
	f := new(big.Float).SetInt(a.Amount)
	divisor := new(big.Float).SetInt(pow10(a.Decimals))
	f.Quo(f, divisor)
	out, _ := f.Float64()
	return out
}

// Price is the derived base/token ratio of a SwapEvent.
type Price struct {
	Value      float64
	Display    string
	BaseSymbol string
}

// SwapEvent is the canonical, venue-independent output of the decoder.
type SwapEvent struct {
	TxHash               Hash
	BlockNumber          uint64
	Timestamp            string // RFC3339, empty when unknown
	Platform             Platform
	TradeType            TradeType
	Token                TokenAmount
	Base                 TokenAmount
	Price                Price
	Sender               Address
	Recipient            Address
	PairAddress          *Address
	BondingCurveAddress  *Address
}

// MigrationEvent signals a token moved from the bonding curve to one or more
// DEX pools.
type MigrationEvent struct {
	TokenAddress  Address
	FromPlatform  Platform
	ToPlatform    Platform
	TxHash        Hash
	BlockNumber   uint64
	Timestamp     string
	PairAddresses []Address
	PairCount     int
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

func formatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		amount = big.NewInt(0)
	}
	neg := amount.Sign() < 0
	abs := new(big.Int).Abs(amount)
	divisor := pow10(decimals)
	whole := new(big.Int)
	rem := new(big.Int)
	whole.DivMod(abs, divisor, rem)

	frac := rem.String()
	for len(frac) < int(decimals) {
		frac = "0" + frac
	}
	sign := ""
	if neg {
		sign = "-"
	}
	if decimals == 0 {
		return fmt.Sprintf("%s%s", sign, whole.String())
	}
	return fmt.Sprintf("%s%s.%s", sign, whole.String(), frac)
}
