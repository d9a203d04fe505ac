// Command streamer is a runnable front-end over the event-routing core: it
// dials a BSC JSON-RPC/WebSocket endpoint, watches one or more tokens, and
// prints decoded swap and migration events to stdout.
package main

import (
	"fmt"
	"log/slog"
	"os"

	applog "github.com/bscsentry/streamer/log"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

const clientIdentifier = "streamer"

var app = &cli.App{
	Name:    clientIdentifier,
	Usage:   "watch BSC tokens across PancakeSwap and the four.meme bonding curve",
	Version: "0.1.0",
}

func init() {
	app.Commands = []*cli.Command{
		watchCommand,
		findCommand,
		multiCommand,
	}
	app.Flags = []cli.Flag{
		&cli.StringFlag{Name: "log-file", Usage: "write logs to this file instead of stderr (rotated via lumberjack)"},
		&cli.StringFlag{Name: "vmodule", Usage: "glog-style rules (pkg=level,...); validated, but not applied to log filtering"},
	}
	app.Before = func(ctx *cli.Context) error {
		var base slog.Handler
		if path := ctx.String("log-file"); path != "" {
			writer := &lumberjack.Logger{
				Filename:   path,
				MaxSize:    50, // MB
				MaxBackups: 5,
				MaxAge:     28, // days
				Compress:   true,
			}
			base = applog.StreamHandler(writer, applog.TerminalFormat(false))
		} else {
			base = applog.StreamHandler(os.Stderr, applog.TerminalFormat(true))
		}

		if rules := ctx.String("vmodule"); rules != "" {
			glog := applog.NewGlogHandler(base)
			if err := glog.Vmodule(rules); err != nil {
				return fmt.Errorf("vmodule: %w", err)
			}
			base = glog
		}
		applog.Root().SetHandler(base)
		return nil
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
