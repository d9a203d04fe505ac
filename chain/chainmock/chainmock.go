// Package chainmock is a scriptable, in-process fake of chain.Provider used
// by every other package's tests — it stands in for the out-of-scope RPC
// transport, the same way ethclient/simulated stands in for a real node in
// the teacher's test suite.
package chainmock

import (
	"context"
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"

	"github.com/bscsentry/streamer/chain"
)

// Provider is a func-field stub: each method delegates to the matching
// field when set, else returns a documented zero response. Tests assign
// only the fields their scenario touches.
type Provider struct {
	BlockNumberFunc        func(ctx context.Context) (uint64, error)
	HeaderByNumberFunc     func(ctx context.Context, number *big.Int) (*types.Header, error)
	FilterLogsFunc         func(ctx context.Context, q chain.FilterQuery) ([]types.Log, error)
	TransactionByHashFunc  func(ctx context.Context, hash common.Hash) (*types.Transaction, error)
	TransactionReceiptFunc func(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	CallContractFunc       func(ctx context.Context, msg chain.CallMsg) ([]byte, error)

	mu            sync.Mutex
	subscriptions []*Subscription
}

var _ chain.Provider = (*Provider)(nil)

func (p *Provider) BlockNumber(ctx context.Context) (uint64, error) {
	if p.BlockNumberFunc != nil {
		return p.BlockNumberFunc(ctx)
	}
	return 0, nil
}

func (p *Provider) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	if p.HeaderByNumberFunc != nil {
		return p.HeaderByNumberFunc(ctx, number)
	}
	return nil, nil
}

func (p *Provider) FilterLogs(ctx context.Context, q chain.FilterQuery) ([]types.Log, error) {
	if p.FilterLogsFunc != nil {
		return p.FilterLogsFunc(ctx, q)
	}
	return nil, nil
}

func (p *Provider) TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, error) {
	if p.TransactionByHashFunc != nil {
		return p.TransactionByHashFunc(ctx, hash)
	}
	return nil, nil
}

func (p *Provider) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	if p.TransactionReceiptFunc != nil {
		return p.TransactionReceiptFunc(ctx, hash)
	}
	return nil, nil
}

func (p *Provider) CallContract(ctx context.Context, msg chain.CallMsg) ([]byte, error) {
	if p.CallContractFunc != nil {
		return p.CallContractFunc(ctx, msg)
	}
	return nil, nil
}

// SubscribeLogs hands back a Subscription the test drives directly via
// Push/Fail. Every call is recorded so a test can inspect which filters the
// code under test actually subscribed to (Subscriptions).
func (p *Provider) SubscribeLogs(ctx context.Context, q chain.FilterQuery) (chain.LogSubscription, error) {
	sub := &Subscription{
		query:  q,
		logs:   make(chan types.Log, 16),
		errs:   make(chan error, 1),
		closed: make(chan struct{}),
	}
	p.mu.Lock()
	p.subscriptions = append(p.subscriptions, sub)
	p.mu.Unlock()
	return sub, nil
}

// Subscriptions returns every subscription opened so far, in order.
func (p *Provider) Subscriptions() []*Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*Subscription, len(p.subscriptions))
	copy(out, p.subscriptions)
	return out
}

// Subscription is a chain.LogSubscription a test can push synthetic logs
// or errors into.
type Subscription struct {
	query  chain.FilterQuery
	logs   chan types.Log
	errs   chan error
	once   sync.Once
	closed chan struct{}
}

func (s *Subscription) Query() chain.FilterQuery { return s.query }

func (s *Subscription) Logs() <-chan types.Log { return s.logs }

func (s *Subscription) Err() <-chan error { return s.errs }

// Push delivers a synthetic log to the subscriber, unless it already
// unsubscribed.
func (s *Subscription) Push(l types.Log) {
	select {
	case <-s.closed:
	case s.logs <- l:
	}
}

// Fail delivers a terminal error, mimicking a dropped upstream stream
// (chainerr.ErrStreamEnded in the real world).
func (s *Subscription) Fail(err error) {
	select {
	case <-s.closed:
	case s.errs <- err:
	}
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() { close(s.closed) })
}
