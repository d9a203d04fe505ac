package main

import (
	"fmt"

	"github.com/bscsentry/streamer/chaintypes"
	"github.com/bscsentry/streamer/pricehistory"
)

// printSwap renders one swap event as a single line of plain text. Rich,
// colorized display is out of scope for the core; this front-end only
// needs enough output to prove the pipeline runs end to end.
func printSwap(ev chaintypes.SwapEvent, tracker *pricehistory.Tracker) {
	venue := ev.Platform
	fmt.Printf("[%s] %s %s %s for %s %s @ %s\n",
		venue, ev.TradeType, ev.Token.Display(), ev.Token.Symbol,
		ev.Base.Display(), ev.Base.Symbol, ev.Price.Display)

	if tracker != nil {
		tracker.Observe(ev)
		stats := tracker.Stats(ev.Token.Address)
		if stats.Count > 1 {
			fmt.Printf("    session: swaps=%d low=%.12g high=%.12g avg=%.12g\n",
				stats.Count, stats.Min, stats.Max, stats.Average)
		}
	}

	if ev.BondingCurveAddress != nil {
		fmt.Printf("    bonding curve: %s\n", ev.BondingCurveAddress.Hex())
	} else if ev.PairAddress != nil {
		fmt.Printf("    pair: %s\n", ev.PairAddress.Hex())
	}
	if ev.Timestamp != "" {
		fmt.Printf("    time: %s\n", ev.Timestamp)
	}
}

func printMigration(ev chaintypes.MigrationEvent) {
	fmt.Printf("\n=== migration detected: %s -> %s ===\n", ev.FromPlatform, ev.ToPlatform)
	fmt.Printf("token: %s\n", ev.TokenAddress.Hex())
	fmt.Printf("tx: %s  block: %d\n", ev.TxHash.Hex(), ev.BlockNumber)
	fmt.Printf("pairs found: %d\n", ev.PairCount)
	for i, pair := range ev.PairAddresses {
		fmt.Printf("  pair %d: %s\n", i+1, pair.Hex())
	}
	if ev.Timestamp != "" {
		fmt.Printf("time: %s\n", ev.Timestamp)
	}
	fmt.Println("===")
}
