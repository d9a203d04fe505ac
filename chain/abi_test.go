package chain_test

import (
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/bscsentry/streamer/chain"
)

func TestSelectorIsFourBytes(t *testing.T) {
	sel := chain.Selector("balanceOf(address)")
	require.Len(t, sel, 4)
	// well-known selector for balanceOf(address)
	require.Equal(t, []byte{0x70, 0xa0, 0x82, 0x31}, sel)
}

func TestPackAddressRoundTrips(t *testing.T) {
	sel := chain.Selector("balanceOf(address)")
	addr := common.HexToAddress("0x00000000000000000000000000000000001234")
	data := chain.PackAddress(sel, addr)
	require.Len(t, data, 36)
	require.Equal(t, sel, data[:4])
	require.Equal(t, addr, common.BytesToAddress(data[4:36]))
}

func TestPackAddressAddressUint24EncodesFeeInLastWord(t *testing.T) {
	sel := chain.Selector("getPool(address,address,uint24)")
	a := common.HexToAddress("0x01")
	b := common.HexToAddress("0x02")
	data := chain.PackAddressAddressUint24(sel, a, b, 500)
	require.Len(t, data, 4+96)
	feeWord := data[4+64 : 4+96]
	require.Equal(t, uint64(500), new(big.Int).SetBytes(feeWord).Uint64())
}

func TestUnpackAddressShortDataIsZero(t *testing.T) {
	require.Equal(t, common.Address{}, chain.UnpackAddress(nil))
}

func TestUnpackUint256(t *testing.T) {
	word := make([]byte, 32)
	big.NewInt(42).FillBytes(word)
	require.Equal(t, big.NewInt(42), chain.UnpackUint256(word))
}

func TestUnpackStringDynamicEncoding(t *testing.T) {
	s := "PANCAKE"
	words := (len(s) + 31) / 32
	out := make([]byte, 32+32+words*32)
	out[31] = 0x20
	out[63] = byte(len(s))
	copy(out[64:], s)
	require.Equal(t, s, chain.UnpackString(out))
}

func TestUnpackStringMalformedFallsBackEmpty(t *testing.T) {
	require.Equal(t, "", chain.UnpackString([]byte{0x01, 0x02}))
}
