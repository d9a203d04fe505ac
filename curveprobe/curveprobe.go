// Package curveprobe decides whether a token currently resides on the
// bonding-curve launchpad contract (§4.3).
package curveprobe

import (
	"context"
	"math/big"

	"github.com/luxfi/geth/common"
	luxlog "github.com/luxfi/log"

	"github.com/bscsentry/streamer/chain"
	"github.com/bscsentry/streamer/config"
)

var balanceOfSelector = chain.Selector("balanceOf(address)")

// Probe is read-only and idempotent; every failure mode resolves to "not on
// curve" rather than propagating an error, matching §4.3's "failures return
// not on curve".
type Probe struct {
	provider  chain.Provider
	launchpad common.Address
	log       luxlog.Logger
}

func New(provider chain.Provider, launchpad common.Address) *Probe {
	return &Probe{
		provider:  provider,
		launchpad: launchpad,
		log:       luxlog.Root().New("component", "curveprobe"),
	}
}

// IsResident runs the two strategies of §4.3 in order: a balanceOf(launchpad)
// call, falling back to a recent-Transfer-log scan only if that call fails.
func (p *Probe) IsResident(ctx context.Context, token common.Address) bool {
	balance, err := p.balance(ctx, token)
	if err == nil {
		return balance.Sign() > 0
	}
	p.log.Warn("balanceOf probe failed, falling back to recent-transfer scan", "token", token, "err", err)
	return p.recentTransferFallback(ctx, token)
}

func (p *Probe) balance(ctx context.Context, token common.Address) (*big.Int, error) {
	data, err := p.provider.CallContract(ctx, chain.CallMsg{
		To:   token,
		Data: chain.PackAddress(balanceOfSelector, p.launchpad),
	})
	if err != nil {
		return nil, err
	}
	return chain.UnpackUint256(data), nil
}

// recentTransferFallback scans the last CurveResidentBlockWindow blocks'
// Transfer logs for the token, capped at CurveResidentScanCap entries;
// residency holds if any log's from/to topic equals the launchpad address.
func (p *Probe) recentTransferFallback(ctx context.Context, token common.Address) bool {
	head, err := p.provider.BlockNumber(ctx)
	if err != nil {
		p.log.Warn("recent-transfer fallback: block number lookup failed", "err", err)
		return false
	}

	from := int64(0)
	if head > config.CurveResidentBlockWindow {
		from = int64(head - config.CurveResidentBlockWindow)
	}

	logs, err := p.provider.FilterLogs(ctx, chain.FilterQuery{
		FromBlock: big.NewInt(from),
		ToBlock:   big.NewInt(int64(head)),
		Addresses: []common.Address{token},
		Topics:    [][]common.Hash{{config.TransferTopic0}},
	})
	if err != nil {
		p.log.Warn("recent-transfer fallback: getLogs failed", "err", err)
		return false
	}

	scanned := 0
	for _, l := range logs {
		if scanned >= config.CurveResidentScanCap {
			break
		}
		scanned++
		if len(l.Topics) < 3 {
			continue
		}
		fromAddr := common.BytesToAddress(l.Topics[1].Bytes())
		toAddr := common.BytesToAddress(l.Topics[2].Bytes())
		if fromAddr == p.launchpad || toAddr == p.launchpad {
			return true
		}
	}
	return false
}
