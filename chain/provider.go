// Package chain defines the boundary between the event-routing core and the
// blockchain RPC transport. The core depends only on the Provider interface
// below, whose method set matches github.com/luxfi/geth/ethclient +
// rpc.Client. RPCProvider (rpcprovider.go) is the thin ethclient-backed
// implementation shipped here; reconnect and retry policy are left to its
// caller.
package chain

import (
	"context"
	"math/big"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
)

// FilterQuery mirrors ethereum.FilterQuery: an eth_getLogs/eth_subscribe
// filter by contract address and topic0 (and optionally deeper topics).
type FilterQuery struct {
	FromBlock *big.Int
	ToBlock   *big.Int
	Addresses []common.Address
	Topics    [][]common.Hash
}

// CallMsg is the argument to an eth_call (contract read), e.g. balanceOf,
// getPair, getPool, name/symbol/decimals.
type CallMsg struct {
	To   common.Address
	Data []byte
}

// LogSubscription is the result of eth_subscribe("logs", filter): a live
// feed of matching logs plus an error channel that fires once if the
// subscription drops. Implementations must close neither channel until
// Unsubscribe is called or the underlying connection ends.
type LogSubscription interface {
	Logs() <-chan types.Log
	Err() <-chan error
	Unsubscribe()
}

// Provider is the full set of JSON-RPC capabilities §6 requires of the
// upstream node. The core never talks to a transport directly — every
// package in this module takes a Provider, so tests substitute
// chain/chainmock and production callers substitute a real ethclient-backed
// implementation.
type Provider interface {
	BlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	FilterLogs(ctx context.Context, q FilterQuery) ([]types.Log, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg CallMsg) ([]byte, error)
	SubscribeLogs(ctx context.Context, q FilterQuery) (LogSubscription, error)
}
