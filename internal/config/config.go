package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/wallacegibbon/plugincheck/internal/plugin"
)

const Version = "0.1.0"

// EnvPrefix is the prefix of environment variables mapped onto settings.
const EnvPrefix = "PLUGINCHECK_"

// Output formats
const (
	FormatText  = "text"
	FormatTable = "table"
	FormatJSON  = "json"
)

// Settings holds all CLI configuration
type Settings struct {
	ShowVersion  bool   `koanf:"version"`
	ShowHelp     bool   `koanf:"help"`
	ProfileName  string `koanf:"profile"`
	Root         string `koanf:"root"`
	Format       string `koanf:"format"`
	OnlyFailures bool   `koanf:"only_failures"`
	Parallel     int    `koanf:"parallel"`
	TUI          bool   `koanf:"tui"`
	Watch        bool   `koanf:"watch"`
	LogLevel     string `koanf:"log_level"`
	DebugLog     bool   `koanf:"debug_log"`
	Addr         string `koanf:"addr"`

	// Plugin is the resolved profile; its Root equals Settings.Root.
	Plugin *plugin.Profile `koanf:"-"`
	// PluginSource is the built-in name or file the profile came from.
	PluginSource string `koanf:"-"`
}

// Level returns the configured log level.
func (s *Settings) Level() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Error is returned for unusable flags, environment or profile files.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func configError(format string, args ...any) error {
	return &Error{Err: fmt.Errorf(format, args...)}
}

var defaults = map[string]any{
	"profile":       plugin.DefaultProfile,
	"format":        FormatText,
	"only_failures": false,
	"parallel":      0,
	"tui":           false,
	"watch":         false,
	"log_level":     "warn",
	"debug_log":     false,
	"addr":          ":8080",
}

// NewFlagSet declares every flag understood by the plugincheck binaries.
func NewFlagSet(name string) *pflag.FlagSet {
	flags := pflag.NewFlagSet(name, pflag.ContinueOnError)
	flags.Bool("version", false, "Show version information")
	flags.BoolP("help", "h", false, "Show help information")
	flags.String("profile", plugin.DefaultProfile, "Built-in profile name or YAML profile file")
	flags.String("root", "", "Plugin root directory (overrides the profile)")
	flags.String("format", FormatText, "Report format: text, table, json")
	flags.Bool("only-failures", false, "Hide passing checks in text and table output")
	flags.Int("parallel", 0, "Number of rules evaluated at once (0 = GOMAXPROCS)")
	flags.Bool("tui", false, "Browse the report in a terminal UI")
	flags.Bool("watch", false, "Re-run the checks when files under the root change")
	flags.String("log-level", "warn", "Log level: debug, info, warn, error")
	flags.Bool("debug-log", false, "Write debug records to a numbered log file")
	flags.String("addr", ":8080", "Server address to listen on (for web server)")
	return flags
}

// Parse parses args and returns settings. Precedence, highest first: the
// positional plugin directory, flags, PLUGINCHECK_* environment variables,
// the profile, built-in defaults.
func Parse(name string, args []string) (*Settings, error) {
	flags := NewFlagSet(name)
	flags.SetOutput(io.Discard)
	if err := flags.Parse(args); err != nil {
		return nil, configError("%w", err)
	}
	return Load(flags)
}

// Load builds settings from an already parsed flag set.
func Load(flags *pflag.FlagSet) (*Settings, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, configError("failed to load defaults: %w", err)
	}
	if err := plugin.LoadDefaults(k); err != nil {
		return nil, configError("%w", err)
	}

	// 2. Profile, built-in or file
	source := selectProfile(flags)
	profileDir, err := loadProfile(k, source)
	if err != nil {
		return nil, err
	}

	// 3. Environment: PLUGINCHECK_ONLY_FAILURES -> only_failures
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, configError("failed to load env vars: %w", err)
	}

	// 4. Flags that were explicitly set
	if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
		if !f.Changed {
			return "", nil
		}
		return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
	}), nil); err != nil {
		return nil, configError("failed to load flags: %w", err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, configError("unable to decode config: %w", err)
	}

	profile, err := plugin.Unmarshal(k)
	if err != nil {
		return nil, configError("%w", err)
	}

	userRoot := flags.Changed("root") || os.Getenv(EnvPrefix+"ROOT") != ""
	if flags.NArg() > 0 {
		s.Root = flags.Arg(0)
		userRoot = true
	}
	if !userRoot && profileDir != "" && s.Root != "" && !filepath.IsAbs(s.Root) {
		s.Root = filepath.Join(profileDir, s.Root)
	}
	if s.Root == "" {
		s.Root = "."
	}
	profile.Root = s.Root

	s.Plugin = profile
	s.PluginSource = source

	if err := s.validate(flags.NArg()); err != nil {
		return nil, err
	}
	return &s, nil
}

func selectProfile(flags *pflag.FlagSet) string {
	if flags.Changed("profile") {
		v, _ := flags.GetString("profile")
		return v
	}
	if v := os.Getenv(EnvPrefix + "PROFILE"); v != "" {
		return v
	}
	return plugin.DefaultProfile
}

// loadProfile merges the selected profile into k and returns the directory
// of the profile file, or "" for a built-in profile.
func loadProfile(k *koanf.Koanf, source string) (string, error) {
	if _, ok := plugin.Builtin(source); ok {
		if _, err := os.Stat(source); errors.Is(err, os.ErrNotExist) {
			if err := plugin.LoadBuiltinInto(k, source); err != nil {
				return "", configError("%w", err)
			}
			return "", nil
		}
	}

	if _, err := os.Stat(source); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", configError("profile %q is neither a built-in profile (%s) nor a readable file",
				source, strings.Join(plugin.BuiltinNames(), ", "))
		}
		return "", configError("cannot read profile %s: %w", source, err)
	}
	if err := k.Load(file.Provider(source), yaml.Parser()); err != nil {
		return "", configError("error reading profile file %s: %w", source, err)
	}

	abs, err := filepath.Abs(source)
	if err != nil {
		return filepath.Dir(source), nil
	}
	return filepath.Dir(abs), nil
}

func (s *Settings) validate(nargs int) error {
	switch s.Format {
	case FormatText, FormatTable, FormatJSON:
	default:
		return configError("invalid format %q (want text, table or json)", s.Format)
	}
	if s.Parallel < 0 {
		return configError("parallel must not be negative, got %d", s.Parallel)
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return configError("invalid log level %q", s.LogLevel)
	}
	if nargs > 1 {
		return configError("expected at most one plugin directory, got %d", nargs)
	}
	return nil
}
