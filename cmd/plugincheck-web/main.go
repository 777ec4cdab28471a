package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/wallacegibbon/plugincheck/internal/adaptors"
	"github.com/wallacegibbon/plugincheck/internal/app"
	"github.com/wallacegibbon/plugincheck/internal/config"
	"github.com/wallacegibbon/plugincheck/internal/debug"
)

func main() {
	cfg, err := config.Parse("plugincheck-web", os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if cfg.ShowVersion {
		fmt.Printf("plugincheck-web version %s\n", config.Version)
		os.Exit(0)
	}

	if cfg.ShowHelp {
		printHelp()
		os.Exit(0)
	}

	logger := debug.NewLogger(os.Stderr, cfg.Level(), cfg.DebugLog)

	a, err := app.Setup(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adaptor := adaptors.NewWebSocketAdaptor(cfg.Addr, a.Stream, logger)
	if _, err := adaptor.RunOnce(ctx); err != nil {
		logger.Warn("initial run failed", "err", err)
	}

	if cfg.Watch {
		go func() {
			err := a.Watch(ctx, app.DefaultDebounce, func() {
				adaptor.RunOnce(ctx)
			})
			if err != nil {
				logger.Warn("watch stopped", "err", err)
			}
		}()
	}

	fmt.Fprintf(os.Stderr, "Serving %s on %s. Press Ctrl+C to stop.\n", a.Title(), cfg.Addr)
	if err := adaptor.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Print(`plugincheck-web - Serve plugin conformance reports over WebSocket

Usage:
  plugincheck-web [flags] [plugin-dir]

Open the server address in a browser to see results stream in. The page
can ask for a new run; with --watch every change under the plugin root
starts one.

Flags:
  --addr string        Server address to listen on (default ":8080")
  --profile string     Built-in profile name or YAML profile file (default "youtube-strategy")
  --root string        Plugin root directory (overrides the profile)
  --parallel int       Number of rules evaluated at once (0 = GOMAXPROCS)
  --watch              Re-run the checks when files under the root change
  --log-level string   Log level: debug, info, warn, error (default "warn")
  --debug-log          Write debug records to a numbered log file
  --version            Show version information
  -h, --help           Show help information

Endpoints:
  /              Report page
  /ws            Binary TLV result frames
  /report.json   Latest report

Examples:
  plugincheck-web ./plugins/youtube-strategy
  plugincheck-web --addr :9090 --watch .
`)
}
