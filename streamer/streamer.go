// Package streamer implements the per-token state machine of §4.5:
// discovery, subscription, migration hand-off, for one watched token.
package streamer

import (
	"context"
	"math/big"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
	luxlog "github.com/luxfi/log"
	"golang.org/x/sync/errgroup"

	"github.com/bscsentry/streamer/chain"
	"github.com/bscsentry/streamer/chainerr"
	"github.com/bscsentry/streamer/chaintypes"
	"github.com/bscsentry/streamer/config"
	"github.com/bscsentry/streamer/curveprobe"
	"github.com/bscsentry/streamer/metrics"
	"github.com/bscsentry/streamer/pairfinder"
	"github.com/bscsentry/streamer/swapdecoder"
)

// Sink receives every decoded swap event. Implementations must be callable
// concurrently from multiple subscription tasks (§9 "shared sinks").
type Sink func(chaintypes.SwapEvent)

// MigrationSink receives migration notifications; may be nil.
type MigrationSink func(chaintypes.MigrationEvent)

// Streamer owns the full lifetime of every subscription task it spawns for
// one token. Run blocks until ctx is cancelled or discovery terminally
// fails; cancelling ctx tears down every child subscription.
type Streamer struct {
	Token         common.Address
	Provider      chain.Provider
	Finder        *pairfinder.Finder
	Probe         *curveprobe.Probe
	Decoder       *swapdecoder.Decoder
	Cfg           config.ChainConfig
	Sink          Sink
	MigrationSink MigrationSink
	Metrics       *metrics.Metrics

	log luxlog.Logger
}

// New builds a Streamer. Metrics may be left nil, in which case decode
// failures are only logged, never counted.
func New(token common.Address, provider chain.Provider, finder *pairfinder.Finder, probe *curveprobe.Probe, decoder *swapdecoder.Decoder, cfg config.ChainConfig, sink Sink, migrationSink MigrationSink, m *metrics.Metrics) *Streamer {
	return &Streamer{
		Token:         token,
		Provider:      provider,
		Finder:        finder,
		Probe:         probe,
		Decoder:       decoder,
		Cfg:           cfg,
		Sink:          sink,
		MigrationSink: migrationSink,
		Metrics:       m,
		log:           luxlog.Root().New("component", "streamer", "token", token),
	}
}

func (s *Streamer) countDecodeFailure(venue chaintypes.VenueKind) {
	if s.Metrics != nil {
		s.Metrics.DecodeFailures.WithLabelValues(venue.String()).Inc()
	}
}

// Run implements the DISCOVERING state: query the pair finder, fall back to
// the bonding-curve probe, and block in whichever streaming mode applies
// until ctx is cancelled. A discovery with neither DEX pairs nor curve
// residency returns chainerr.ErrDiscoveryEmpty (terminal per §4.5).
//
// The streaming mode is chosen by classifying the result into a
// chaintypes.Venue — the closed tagged variant of §9 — and switching on its
// Kind, so the DEX/bonding-curve branch is exhaustive by construction rather
// than an ad hoc if/else on len(pairs).
func (s *Streamer) Run(ctx context.Context) error {
	pairs, err := s.Finder.Find(ctx, s.Token)
	if err != nil {
		return err
	}

	venue, ok := s.classifyVenue(ctx, pairs)
	if !ok {
		s.log.Warn("no dex pairs and no curve residency")
		return chainerr.ErrDiscoveryEmpty
	}

	switch venue.Kind {
	case chaintypes.VenueDex:
		s.log.Info("discovered dex pairs, entering dex streaming", "pairs", len(pairs))
		return s.streamDex(ctx, pairs)
	case chaintypes.VenueBondingCurve:
		s.log.Info("resident on bonding curve, entering curve streaming")
		return s.streamCurveThenMigrate(ctx)
	default:
		return chainerr.ErrDiscoveryEmpty
	}
}

// classifyVenue resolves a discovery result into the one Venue a token is
// currently trading on. ok is false when neither a DEX pair nor curve
// residency was found, the only terminal case in §4.5.
func (s *Streamer) classifyVenue(ctx context.Context, pairs []chaintypes.PairInfo) (chaintypes.Venue, bool) {
	if len(pairs) > 0 {
		return chaintypes.DexVenue(pairs[0]), true
	}
	if s.Probe.IsResident(ctx, s.Token) {
		return chaintypes.BondingCurveVenue(s.Cfg.Launchpad), true
	}
	return chaintypes.Venue{}, false
}

// streamDex runs one subscription task per pool (DEX_STREAMING). Tasks do
// not share a cancellation context with each other beyond ctx itself — a
// subscription-creation failure or a dropped stream is terminal only for
// that task (§4.5), so this uses a plain errgroup.Group rather than the
// WithContext variant, which would cancel siblings on the first error.
func (s *Streamer) streamDex(ctx context.Context, pairs []chaintypes.PairInfo) error {
	var g errgroup.Group
	for _, p := range pairs {
		pair := p
		g.Go(func() error { return s.streamPair(ctx, pair) })
	}
	return g.Wait()
}

func (s *Streamer) streamPair(ctx context.Context, pair chaintypes.PairInfo) error {
	venue := chaintypes.DexVenue(pair)
	topic := config.V2SwapTopic0
	if pair.IsV3 {
		topic = config.V3SwapTopic0
	}

	sub, err := s.Provider.SubscribeLogs(ctx, chain.FilterQuery{
		Addresses: []common.Address{pair.PairAddress},
		Topics:    [][]common.Hash{{topic}},
	})
	if err != nil {
		s.log.Error("subscription creation failed", "venue", venue.Kind, "pair", pair.PairAddress, "err", err)
		return chainerr.Transient("subscribe swap logs", err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-sub.Err():
			if !ok {
				return nil
			}
			s.log.Warn("swap log subscription ended", "pair", pair.PairAddress, "err", err)
			return chainerr.ErrStreamEnded
		case l, ok := <-sub.Logs():
			if !ok {
				return nil
			}
			s.decodeAndEmitDex(ctx, l, pair)
		}
	}
}

func (s *Streamer) decodeAndEmitDex(ctx context.Context, l types.Log, pair chaintypes.PairInfo) {
	var (
		ev  *chaintypes.SwapEvent
		err error
	)
	if pair.IsV3 {
		ev, err = s.Decoder.DecodeV3(ctx, l, pair)
	} else {
		ev, err = s.Decoder.DecodeV2(ctx, l, pair)
	}
	if err != nil {
		s.log.Warn("swap log decode failed, skipping", "pair", pair.PairAddress, "tx", l.TxHash, "err", err)
		s.countDecodeFailure(chaintypes.VenueDex)
		return
	}
	if ev != nil && s.Sink != nil {
		s.Sink(*ev)
	}
}

// streamCurveThenMigrate runs CURVE_STREAMING: a Transfer listener and a
// PairCreated listener concurrently. On migration it re-runs the pair
// finder, emits the MigrationEvent, stops both listeners, and transitions to
// DEX_STREAMING — all before any PancakeSwap SwapEvent can be emitted, since
// the new subscriptions open only after the MigrationEvent. The Transfer
// listener is stopped before the DEX subscriptions open, so curve transfers
// in that gap are not streamed.
func (s *Streamer) streamCurveThenMigrate(ctx context.Context) error {
	curveCtx, cancelCurve := context.WithCancel(ctx)
	defer cancelCurve()

	transferSub, err := s.Provider.SubscribeLogs(curveCtx, chain.FilterQuery{
		Addresses: []common.Address{s.Token},
		Topics:    [][]common.Hash{{config.TransferTopic0}},
	})
	if err != nil {
		return chainerr.Transient("subscribe transfer logs", err)
	}
	defer transferSub.Unsubscribe()

	pairCreatedSub, err := s.Provider.SubscribeLogs(curveCtx, chain.FilterQuery{
		Addresses: []common.Address{s.Cfg.V2Factory},
		Topics:    [][]common.Hash{{config.PairCreatedTopic0}},
	})
	if err != nil {
		return chainerr.Transient("subscribe pair created logs", err)
	}
	defer pairCreatedSub.Unsubscribe()

	// 1-slot hand-off channel from the PairCreated listener to the
	// migration logic below (§9 "migration hand-off channel").
	migrated := make(chan types.Log, 1)

	var g errgroup.Group
	g.Go(func() error { return s.runTransferLoop(curveCtx, transferSub) })
	g.Go(func() error { return s.watchPairCreated(curveCtx, pairCreatedSub, migrated) })

	select {
	case <-ctx.Done():
		cancelCurve()
		_ = g.Wait()
		return nil
	case pcLog := <-migrated:
		// Discovery runs once here and its result feeds both the migration
		// event (so PairAddresses reflects exactly what we're about to
		// stream) and the DEX streaming transition below — a second,
		// independently-timed Find could disagree with the first if
		// oracle-reported liquidity changed in between.
		pairs, findErr := s.Finder.Find(ctx, s.Token)
		if findErr != nil {
			s.log.Warn("post-migration pair rediscovery failed", "err", findErr)
		}

		migrationEvent := s.buildMigrationEvent(ctx, pcLog, pairs)
		if s.MigrationSink != nil {
			s.MigrationSink(migrationEvent)
		}
		cancelCurve()
		_ = g.Wait()

		if len(pairs) == 0 {
			s.log.Warn("migration complete but no dex pair found", "pairs", 0)
			return chainerr.ErrDiscoveryEmpty
		}
		venue := chaintypes.DexVenue(pairs[0])
		s.log.Info("migration complete, entering dex streaming", "venue", venue.Kind, "pairs", len(pairs))
		return s.streamDex(ctx, pairs)
	}
}

func (s *Streamer) runTransferLoop(ctx context.Context, sub chain.LogSubscription) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-sub.Err():
			if !ok {
				return nil
			}
			s.log.Warn("transfer log subscription ended", "err", err)
			return chainerr.ErrStreamEnded
		case l, ok := <-sub.Logs():
			if !ok {
				return nil
			}
			ev, err := s.Decoder.DecodeCurveTransfer(ctx, l, s.Token)
			if err != nil {
				s.log.Warn("curve transfer decode failed, skipping", "tx", l.TxHash, "err", err)
				s.countDecodeFailure(chaintypes.VenueBondingCurve)
				continue
			}
			if ev != nil && s.Sink != nil {
				s.Sink(*ev)
			}
		}
	}
}

func (s *Streamer) watchPairCreated(ctx context.Context, sub chain.LogSubscription, migrated chan<- types.Log) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-sub.Err():
			if !ok {
				return nil
			}
			s.log.Warn("pair created subscription ended", "err", err)
			return chainerr.ErrStreamEnded
		case l, ok := <-sub.Logs():
			if !ok {
				return nil
			}
			if len(l.Topics) < 3 {
				continue
			}
			token0 := common.BytesToAddress(l.Topics[1].Bytes())
			token1 := common.BytesToAddress(l.Topics[2].Bytes())
			if token0 == s.Token || token1 == s.Token {
				select {
				case migrated <- l:
				case <-ctx.Done():
				}
				return nil
			}
		}
	}
}

func (s *Streamer) buildMigrationEvent(ctx context.Context, pcLog types.Log, pairs []chaintypes.PairInfo) chaintypes.MigrationEvent {
	var addrs []common.Address
	for _, p := range pairs {
		addrs = append(addrs, p.PairAddress)
	}

	var ts string
	if header, err := s.Provider.HeaderByNumber(ctx, new(big.Int).SetUint64(pcLog.BlockNumber)); err == nil && header != nil {
		ts = time.Unix(int64(header.Time), 0).UTC().Format(time.RFC3339)
	}

	return chaintypes.MigrationEvent{
		TokenAddress:  s.Token,
		FromPlatform:  chaintypes.PlatformFourMemeBondingCurve,
		ToPlatform:    chaintypes.PlatformPancakeSwap,
		TxHash:        pcLog.TxHash,
		BlockNumber:   pcLog.BlockNumber,
		Timestamp:     ts,
		PairAddresses: addrs,
		PairCount:     len(addrs),
	}
}
