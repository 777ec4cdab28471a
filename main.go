package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/wallacegibbon/plugincheck/internal/adaptors"
	"github.com/wallacegibbon/plugincheck/internal/app"
	"github.com/wallacegibbon/plugincheck/internal/checker"
	"github.com/wallacegibbon/plugincheck/internal/config"
	"github.com/wallacegibbon/plugincheck/internal/debug"
	"github.com/wallacegibbon/plugincheck/internal/terminal"
)

// Exit codes
const (
	exitOK     = 0
	exitFailed = 1
	exitUsage  = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Parse("plugincheck", os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, "Run 'plugincheck --help' for usage.")
		return exitUsage
	}

	if cfg.ShowVersion {
		fmt.Printf("plugincheck version %s\n", config.Version)
		return exitOK
	}

	if cfg.ShowHelp {
		printHelp()
		return exitOK
	}

	logger := debug.NewLogger(os.Stderr, cfg.Level(), cfg.DebugLog)

	a, err := app.Setup(cfg, logger)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.TUI {
		return runTUI(ctx, a, logger)
	}

	var (
		mu   sync.Mutex
		last *checker.Report
	)
	check := func() {
		mu.Lock()
		defer mu.Unlock()
		report, err := printReport(ctx, a)
		if err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		if report != nil {
			last = report
		}
	}

	check()

	if cfg.Watch {
		fmt.Fprintf(os.Stderr, "Watching %s for changes. Press Ctrl+C to stop.\n", a.Checker.Root())
		if err := a.Watch(ctx, app.DefaultDebounce, check); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitFailed
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if last == nil || !last.OK() {
		return exitFailed
	}
	return exitOK
}

// printReport runs the checks once and writes the report to stdout in the
// configured format. Text output is streamed as results arrive.
func printReport(ctx context.Context, a *app.App) (*checker.Report, error) {
	cfg := a.Settings
	styles := terminal.NewStyles(terminal.IsTerminal(os.Stdout))

	if cfg.Format == config.FormatText {
		fmt.Print(terminal.GetBracketedLine(styles, a.Profile.Name, a.Checker.Root()))
		w := terminal.NewTLVWriter(os.Stdout, styles, cfg.OnlyFailures)
		defer w.Close()
		return a.Stream(ctx, w)
	}

	report, err := a.Run(ctx)
	if err != nil {
		return report, err
	}
	return report, terminal.Render(os.Stdout, cfg.Format, report, terminal.Options{
		Styles:       styles,
		OnlyFailures: cfg.OnlyFailures,
	})
}

func runTUI(ctx context.Context, a *app.App, logger *slog.Logger) int {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	tui := adaptors.NewTUIAdaptor(a.Title(), a.Run, a.Settings.OnlyFailures)

	if a.Settings.Watch {
		go func() {
			if err := a.Watch(ctx, app.DefaultDebounce, tui.Refresh); err != nil {
				logger.Warn("watch stopped", "err", err)
			}
		}()
	}

	if err := tui.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
		return exitFailed
	}

	if report := tui.Report(); report == nil || !report.OK() {
		return exitFailed
	}
	return exitOK
}

func printHelp() {
	fmt.Print(`plugincheck - Conformance checker for plugin directories

Usage:
  plugincheck [flags] [plugin-dir]

Checks that a plugin directory holds the metadata file, skills, commands
and agents its profile expects, that their frontmatter carries the required
keys and allowed values, and that no secrets or build output are packaged.

Examples:
  plugincheck ./plugins/youtube-strategy
  plugincheck --format table --only-failures .
  plugincheck --profile my-plugin.yaml --watch
  PLUGINCHECK_FORMAT=json plugincheck . > report.json

Flags:
  --profile string     Built-in profile name or YAML profile file (default "youtube-strategy")
  --root string        Plugin root directory (overrides the profile)
  --format string      Report format: text, table, json (default "text")
  --only-failures      Hide passing checks in text and table output
  --parallel int       Number of rules evaluated at once (0 = GOMAXPROCS)
  --tui                Browse the report in a terminal UI
  --watch              Re-run the checks when files under the root change
  --log-level string   Log level: debug, info, warn, error (default "warn")
  --debug-log          Write debug records to a numbered log file
  --version            Show version information
  -h, --help           Show help information

Every flag can also be set with a PLUGINCHECK_ environment variable, e.g.
PLUGINCHECK_ONLY_FAILURES=true. Flags override the environment, which
overrides the profile file.

Exit status: 0 when every check passes, 1 when any check fails, 2 on a
usage or configuration error.
`)
}
