package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/wallacegibbon/plugincheck/internal/checker"
	"github.com/wallacegibbon/plugincheck/internal/config"
	"github.com/wallacegibbon/plugincheck/internal/plugin"
	"github.com/wallacegibbon/plugincheck/internal/stream"
)

// App holds the components shared by the plugincheck binaries
type App struct {
	Settings *config.Settings
	Profile  *plugin.Profile
	Rules    []checker.Rule
	Checker  *checker.Checker

	logger *slog.Logger
}

// Setup builds the rule set for the configured profile and a checker rooted
// at the plugin directory
func Setup(s *config.Settings, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if s.Plugin == nil {
		return nil, &config.Error{Err: fmt.Errorf("no profile loaded")}
	}

	info, err := os.Stat(s.Root)
	if err != nil {
		return nil, &config.Error{Err: fmt.Errorf("plugin root: %w", err)}
	}
	if !info.IsDir() {
		return nil, &config.Error{Err: fmt.Errorf("plugin root %s is not a directory", s.Root)}
	}

	rules := plugin.BuildRules(s.Plugin)
	logger.Debug("rule set built",
		"profile", s.Plugin.Name,
		"source", s.PluginSource,
		"root", s.Root,
		"rules", len(rules))

	return &App{
		Settings: s,
		Profile:  s.Plugin,
		Rules:    rules,
		Checker: checker.New(s.Root,
			checker.WithParallelism(s.Parallel),
			checker.WithLogger(logger)),
		logger: logger,
	}, nil
}

// Title names the checked plugin for banners and window titles
func (a *App) Title() string {
	return fmt.Sprintf("plugincheck: %s @ %s", a.Profile.Name, a.Checker.Root())
}

// Run evaluates every rule and returns the complete report
func (a *App) Run(ctx context.Context) (*checker.Report, error) {
	report := a.Checker.Run(ctx, a.Rules)
	a.finish(report)
	return report, ctx.Err()
}

// Stream evaluates every rule, writing result frames to out as they become
// available, followed by the summary frame
func (a *App) Stream(ctx context.Context, out stream.Output) (*checker.Report, error) {
	report, err := a.Checker.Stream(ctx, a.Rules, out)
	if err != nil {
		return report, err
	}
	a.finish(report)
	if err := checker.WriteSummary(out, report); err != nil {
		return report, err
	}
	return report, ctx.Err()
}

func (a *App) finish(report *checker.Report) {
	report.Plugin = a.Profile.Name

	inv, err := plugin.TakeInventory(a.Checker.Root(), a.Profile)
	if err != nil {
		a.logger.Warn("inventory failed", "err", err)
		return
	}
	report.Inventory = inv.Map()

	a.logger.Info("check run finished",
		"passed", report.Passed,
		"failed", report.Failed,
		"skills", inv.Skills,
		"commands", inv.Commands,
		"agents", inv.Agents)
}
