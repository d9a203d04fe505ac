package chain

import (
	"context"
	"math/big"

	geth "github.com/luxfi/geth"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	"github.com/luxfi/geth/ethclient"
)

// RPCProvider adapts an *ethclient.Client to Provider — the one concrete,
// production implementation of the boundary every other package in this
// module depends on abstractly. Dialing and reconnect policy belong to the
// caller (e.g. cmd/streamer); this type only translates method calls.
type RPCProvider struct {
	client *ethclient.Client
}

var _ Provider = (*RPCProvider)(nil)

// Dial connects to an HTTP(S) or WebSocket JSON-RPC endpoint and wraps it
// as a Provider. Use a ws:// or wss:// url to support SubscribeLogs.
func Dial(ctx context.Context, rawurl string) (*RPCProvider, error) {
	client, err := ethclient.DialContext(ctx, rawurl)
	if err != nil {
		return nil, err
	}
	return &RPCProvider{client: client}, nil
}

func (p *RPCProvider) BlockNumber(ctx context.Context) (uint64, error) {
	return p.client.BlockNumber(ctx)
}

func (p *RPCProvider) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	return p.client.HeaderByNumber(ctx, number)
}

func (p *RPCProvider) FilterLogs(ctx context.Context, q FilterQuery) ([]types.Log, error) {
	return p.client.FilterLogs(ctx, toEthereumQuery(q))
}

func (p *RPCProvider) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, error) {
	tx, _, err := p.client.TransactionByHash(ctx, hash)
	return tx, err
}

func (p *RPCProvider) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	return p.client.TransactionReceipt(ctx, hash)
}

func (p *RPCProvider) CallContract(ctx context.Context, msg CallMsg) ([]byte, error) {
	return p.client.CallContract(ctx, geth.CallMsg{To: &msg.To, Data: msg.Data}, nil)
}

func (p *RPCProvider) SubscribeLogs(ctx context.Context, q FilterQuery) (LogSubscription, error) {
	logs := make(chan types.Log, 256)
	sub, err := p.client.SubscribeFilterLogs(ctx, toEthereumQuery(q), logs)
	if err != nil {
		return nil, err
	}
	return &rpcSubscription{logs: logs, sub: sub}, nil
}

// Close releases the underlying RPC connection.
func (p *RPCProvider) Close() {
	p.client.Close()
}

func toEthereumQuery(q FilterQuery) geth.FilterQuery {
	return geth.FilterQuery{
		FromBlock: q.FromBlock,
		ToBlock:   q.ToBlock,
		Addresses: q.Addresses,
		Topics:    q.Topics,
	}
}

// rpcSubscription adapts geth's ethereum.Subscription (an Err() channel plus
// Unsubscribe) to LogSubscription's shape used throughout this module.
type rpcSubscription struct {
	logs chan types.Log
	sub  geth.Subscription
}

func (s *rpcSubscription) Logs() <-chan types.Log { return s.logs }

func (s *rpcSubscription) Err() <-chan error { return s.sub.Err() }

func (s *rpcSubscription) Unsubscribe() { s.sub.Unsubscribe() }
