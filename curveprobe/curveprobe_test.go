package curveprobe_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/stretchr/testify/require"

	"github.com/bscsentry/streamer/chain"
	"github.com/bscsentry/streamer/chain/chainmock"
	"github.com/bscsentry/streamer/config"
	"github.com/bscsentry/streamer/curveprobe"
)

var launchpad = config.LaunchpadAddress

func balanceWord(n int64) []byte {
	out := make([]byte, 32)
	big.NewInt(n).FillBytes(out)
	return out
}

func TestIsResidentByBalance(t *testing.T) {
	provider := &chainmock.Provider{
		CallContractFunc: func(ctx context.Context, msg chain.CallMsg) ([]byte, error) {
			return balanceWord(42), nil
		},
	}
	probe := curveprobe.New(provider, launchpad)
	require.True(t, probe.IsResident(context.Background(), common.HexToAddress("0x01")))
}

func TestNotResidentWhenBalanceZero(t *testing.T) {
	provider := &chainmock.Provider{
		CallContractFunc: func(ctx context.Context, msg chain.CallMsg) ([]byte, error) {
			return balanceWord(0), nil
		},
	}
	probe := curveprobe.New(provider, launchpad)
	require.False(t, probe.IsResident(context.Background(), common.HexToAddress("0x01")))
}

func TestFallsBackToRecentTransfersOnBalanceFailure(t *testing.T) {
	token := common.HexToAddress("0x02")
	provider := &chainmock.Provider{
		CallContractFunc: func(ctx context.Context, msg chain.CallMsg) ([]byte, error) {
			return nil, errors.New("eth_call reverted")
		},
		BlockNumberFunc: func(ctx context.Context) (uint64, error) { return 1000, nil },
		FilterLogsFunc: func(ctx context.Context, q chain.FilterQuery) ([]types.Log, error) {
			return []types.Log{{
				Topics: []common.Hash{
					config.TransferTopic0,
					common.BytesToHash(common.HexToAddress("0x03").Bytes()),
					common.BytesToHash(launchpad.Bytes()),
				},
			}}, nil
		},
	}
	probe := curveprobe.New(provider, launchpad)
	require.True(t, probe.IsResident(context.Background(), token))
}

func TestUnrelatedTransferIsNotResidency(t *testing.T) {
	token := common.HexToAddress("0x02")
	provider := &chainmock.Provider{
		CallContractFunc: func(ctx context.Context, msg chain.CallMsg) ([]byte, error) {
			return nil, errors.New("eth_call reverted")
		},
		BlockNumberFunc: func(ctx context.Context) (uint64, error) { return 1000, nil },
		FilterLogsFunc: func(ctx context.Context, q chain.FilterQuery) ([]types.Log, error) {
			return []types.Log{{
				Topics: []common.Hash{
					config.TransferTopic0,
					common.BytesToHash(common.HexToAddress("0x03").Bytes()),
					common.BytesToHash(common.HexToAddress("0x04").Bytes()),
				},
			}}, nil
		},
	}
	probe := curveprobe.New(provider, launchpad)
	require.False(t, probe.IsResident(context.Background(), token))
}
