package chain

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/accounts/abi"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
)

// Selector returns the 4-byte function selector for a Solidity signature
// such as "balanceOf(address)", matching how every contract-call site in
// this module builds eth_call data: the teacher's accounts/abi/bind package
// does the same derivation for generated bindings, but the core's reads
// are few and fixed enough to hand-encode directly.
func Selector(signature string) []byte {
	return crypto.Keccak256([]byte(signature))[:4]
}

// PackAddress packs a single address argument after a selector, used for
// balanceOf(address) and similar single-arg reads.
func PackAddress(selector []byte, addr common.Address) []byte {
	out := make([]byte, 4+32)
	copy(out, selector)
	copy(out[4+12:], addr.Bytes())
	return out
}

// PackAddressAddress packs two address arguments, used for
// getPair(address,address).
func PackAddressAddress(selector []byte, a, b common.Address) []byte {
	out := make([]byte, 4+64)
	copy(out, selector)
	copy(out[4+12:4+32], a.Bytes())
	copy(out[4+32+12:4+64], b.Bytes())
	return out
}

// PackAddressAddressUint24 packs (address,address,uint24), used for
// getPool(address,address,uint24).
func PackAddressAddressUint24(selector []byte, a, b common.Address, fee uint32) []byte {
	out := make([]byte, 4+96)
	copy(out, selector)
	copy(out[4+12:4+32], a.Bytes())
	copy(out[4+32+12:4+64], b.Bytes())
	feeWord := new(big.Int).SetUint64(uint64(fee)).Bytes()
	copy(out[4+96-len(feeWord):4+96], feeWord)
	return out
}

// UnpackAddress reads a single address return value (e.g. getPair, token0,
// token1).
func UnpackAddress(data []byte) common.Address {
	if len(data) < 32 {
		return common.Address{}
	}
	var a common.Address
	copy(a[:], data[12:32])
	return a
}

// UnpackUint256 reads a single uint256 return value (e.g. balanceOf,
// decimals). Decoded through uint256.Int, which models exactly one 32-byte
// EVM word, and then converted with ToBig, so each call still allocates the
// returned big.Int.
func UnpackUint256(data []byte) *big.Int {
	if len(data) < 32 {
		return new(big.Int)
	}
	var v uint256.Int
	v.SetBytes(data[:32])
	return v.ToBig()
}

// UnpackString reads a dynamic ABI string return value (name/symbol),
// falling back to the empty string on a malformed payload rather than
// erroring — callers apply their own documented defaults on failure.
func UnpackString(data []byte) string {
	args := abi.Arguments{{Type: mustStringType()}}
	values, err := args.Unpack(data)
	if err != nil || len(values) == 0 {
		return ""
	}
	s, _ := values[0].(string)
	return s
}

func mustStringType() abi.Type {
	t, err := abi.NewType("string", "", nil)
	if err != nil {
		panic(err)
	}
	return t
}
