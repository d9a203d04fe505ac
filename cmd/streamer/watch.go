package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/luxfi/geth/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	applog "github.com/bscsentry/streamer/log"

	"github.com/bscsentry/streamer/chain"
	"github.com/bscsentry/streamer/chaintypes"
	"github.com/bscsentry/streamer/config"
	"github.com/bscsentry/streamer/metrics"
	"github.com/bscsentry/streamer/pairfinder"
	"github.com/bscsentry/streamer/pricehistory"
	"github.com/bscsentry/streamer/registry"
)

var watchCommand = &cli.Command{
	Name:      "watch",
	Usage:     "watch one token across PancakeSwap and the bonding curve, auto-detecting venue and migration",
	ArgsUsage: "<token-address>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "rpc-url", Usage: "BSC JSON-RPC/WebSocket endpoint", Value: "wss://bsc.publicnode.com"},
		&cli.StringFlag{Name: "oracle-url", Usage: "liquidity oracle base URL", Value: ""},
		&cli.BoolFlag{Name: "no-migration-notice", Usage: "suppress migration event output"},
		&cli.StringFlag{Name: "metrics-addr", Usage: "if set, serve Prometheus metrics on this address (e.g. :9090)"},
	},
	Action: runWatch,
}

func runWatch(cliCtx *cli.Context) error {
	if cliCtx.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one token address argument")
	}
	token := common.HexToAddress(cliCtx.Args().First())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	provider, err := chain.Dial(ctx, cliCtx.String("rpc-url"))
	if err != nil {
		return fmt.Errorf("dial rpc: %w", err)
	}
	defer provider.Close()

	var oracle pairfinder.Oracle = pairfinder.NewHTTPOracle(cliCtx.String("oracle-url"), "56")

	m := metrics.NewMetrics("bscsentry")
	if err := m.Register(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	if addr := cliCtx.String("metrics-addr"); addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(addr, mux); err != nil {
				applog.Root().Warn("metrics server stopped", "err", err)
			}
		}()
	}

	r := registry.New(provider, oracle, config.DefaultChainConfig(), m)
	tracker := pricehistory.NewTracker(100)

	var migrationSink func(chaintypes.MigrationEvent)
	if !cliCtx.Bool("no-migration-notice") {
		migrationSink = printMigration
	}

	sink := func(ev chaintypes.SwapEvent) { printSwap(ev, tracker) }
	if err := r.Add(token, sink, migrationSink); err != nil {
		return fmt.Errorf("watch token: %w", err)
	}

	fmt.Printf("watching %s via %s, ctrl-c to stop\n", token.Hex(), cliCtx.String("rpc-url"))
	<-ctx.Done()
	fmt.Println("shutting down...")
	r.StopAll()
	return nil
}
