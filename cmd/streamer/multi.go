package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
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

var multiCommand = &cli.Command{
	Name:  "multi",
	Usage: "drive the registry interactively: add/remove/list/count tokens from stdin",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "rpc-url", Usage: "BSC JSON-RPC/WebSocket endpoint", Value: "wss://bsc.publicnode.com"},
		&cli.StringFlag{Name: "oracle-url", Usage: "liquidity oracle base URL", Value: ""},
		&cli.StringFlag{Name: "metrics-addr", Usage: "if set, serve Prometheus metrics on this address (e.g. :9090)"},
	},
	Action: runMulti,
}

// runMulti is a line-oriented front-end over registry.Registry: one token's
// worth of add/remove/list/count commands per line of stdin, with every
// watched token's swaps and migrations printed with a [token] prefix so
// concurrent output from several streamers stays attributable.
func runMulti(cliCtx *cli.Context) error {
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

	fmt.Println("multi-token streamer ready. commands: add <addr> | remove <addr> | list | count | stop | help")

	go func() {
		<-ctx.Done()
		fmt.Println("\nshutting down...")
		r.StopAll()
		os.Exit(0)
	}()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("streamer> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "add":
			if len(fields) < 2 {
				fmt.Println("usage: add <token-address>")
				continue
			}
			token := common.HexToAddress(fields[1])
			sink := func(ev chaintypes.SwapEvent) { printMultiSwap(token, ev, tracker) }
			if err := r.Add(token, sink, printMultiMigration); err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Printf("watching %s\n", token.Hex())

		case "remove":
			if len(fields) < 2 {
				fmt.Println("usage: remove <token-address>")
				continue
			}
			token := common.HexToAddress(fields[1])
			if err := r.Remove(token); err != nil {
				fmt.Printf("error: %v\n", err)
				continue
			}
			fmt.Printf("stopped watching %s\n", token.Hex())

		case "list":
			tokens := r.List()
			if len(tokens) == 0 {
				fmt.Println("no tokens currently watched")
				continue
			}
			for i, t := range tokens {
				fmt.Printf("  %d. %s\n", i+1, t.Hex())
			}

		case "count":
			fmt.Printf("watching %d token(s)\n", r.Count())

		case "stop":
			fmt.Println("stopping all monitoring...")
			r.StopAll()
			return nil

		case "help":
			fmt.Println("commands: add <addr> | remove <addr> | list | count | stop | help")

		default:
			fmt.Printf("unknown command: %s (try 'help')\n", fields[0])
		}
	}

	r.StopAll()
	return nil
}

func printMultiSwap(token common.Address, ev chaintypes.SwapEvent, tracker *pricehistory.Tracker) {
	fmt.Printf("[%s] ", shortHex(token))
	printSwap(ev, tracker)
}

func printMultiMigration(ev chaintypes.MigrationEvent) {
	fmt.Printf("[%s] ", shortHex(ev.TokenAddress))
	printMigration(ev)
}

func shortHex(addr common.Address) string {
	h := addr.Hex()
	return h[:6] + ".." + h[len(h)-4:]
}
