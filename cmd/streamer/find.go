package main

import (
	"context"
	"fmt"

	"github.com/luxfi/geth/common"
	"github.com/urfave/cli/v2"

	"github.com/bscsentry/streamer/chain"
	"github.com/bscsentry/streamer/config"
	"github.com/bscsentry/streamer/curveprobe"
	"github.com/bscsentry/streamer/pairfinder"
)

var findCommand = &cli.Command{
	Name:      "find",
	Usage:     "one-shot lookup of where a token currently trades, without subscribing",
	ArgsUsage: "<token-address>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "rpc-url", Usage: "BSC JSON-RPC endpoint", Value: "https://bsc-dataseed.binance.org"},
		&cli.StringFlag{Name: "oracle-url", Usage: "liquidity oracle base URL", Value: ""},
	},
	Action: runFind,
}

func runFind(cliCtx *cli.Context) error {
	if cliCtx.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one token address argument")
	}
	token := common.HexToAddress(cliCtx.Args().First())

	ctx := context.Background()
	provider, err := chain.Dial(ctx, cliCtx.String("rpc-url"))
	if err != nil {
		return fmt.Errorf("dial rpc: %w", err)
	}
	defer provider.Close()

	cfg := config.DefaultChainConfig()
	oracle := pairfinder.NewHTTPOracle(cliCtx.String("oracle-url"), "56")
	finder := pairfinder.New(provider, oracle, cfg, nil)
	probe := curveprobe.New(provider, cfg.Launchpad)

	fmt.Println("finding token location...")

	pairs, err := finder.Find(ctx, token)
	if err != nil {
		return fmt.Errorf("pair discovery: %w", err)
	}

	resident := false
	if len(pairs) == 0 {
		resident = probe.IsResident(ctx, token)
	}

	fmt.Printf("token information:\n")
	fmt.Printf("  on bonding curve: %v\n", resident)
	fmt.Printf("  dex pairs: %d\n", len(pairs))
	for _, p := range pairs {
		kind := "v2"
		if p.IsV3 {
			kind = "v3"
		}
		fmt.Printf("    - %s pool %s (base %s)\n", kind, p.PairAddress.Hex(), p.BaseSymbol)
	}
	if len(pairs) == 0 && !resident {
		fmt.Println("  not found on any supported platform")
	}

	return nil
}
