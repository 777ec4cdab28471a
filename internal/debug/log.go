// Package debug builds the process logger and the optional numbered debug
// log file.
package debug

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

const logBaseName = "plugincheck-debug"

// maxLogFiles bounds the search for a free log file name.
const maxLogFiles = 100

var (
	debugWriter io.Writer
	debugPath   string
	debugErr    error
	initOnce    sync.Once
)

// Enable opens the debug log file next to the executable, once per process.
// It returns the path of the file.
func Enable() (string, error) {
	initOnce.Do(func() {
		// Try to create log file in executable directory
		execPath, err := os.Executable()
		if err != nil {
			// Fallback to current directory
			execPath = "plugincheck"
		}

		execDir := filepath.Dir(execPath)
		if execDir == "." {
			execDir, _ = os.Getwd()
		}

		f, path, err := openNumbered(execDir, logBaseName)
		if err != nil {
			debugErr = err
			return
		}
		debugWriter = f
		debugPath = path
	})
	return debugPath, debugErr
}

// openNumbered creates dir/base-N.log for the lowest free N.
func openNumbered(dir, base string) (*os.File, string, error) {
	for i := 0; i < maxLogFiles; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%s-%d.log", base, i))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", fmt.Errorf("failed to create debug log: %w", err)
		}
	}
	return nil, "", fmt.Errorf("no free debug log name in %s", dir)
}

// NewLogger returns a logger writing colored text to w at level. When
// debugLog is set, debug-level JSON records also go to the numbered log
// file; if that file cannot be created the error is logged and the stderr
// logger is still returned.
func NewLogger(w io.Writer, level slog.Leveler, debugLog bool) *slog.Logger {
	handler := newTextHandler(w, level)
	if !debugLog {
		return slog.New(handler)
	}

	path, err := Enable()
	if err != nil {
		logger := slog.New(handler)
		logger.Warn("debug log disabled", "err", err)
		return logger
	}

	fileHandler := slog.NewJSONHandler(debugWriter, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(fanout{handler, fileHandler})
	logger.Debug("debug log started", "path", path)
	return logger
}

func newTextHandler(w io.Writer, level slog.Leveler) slog.Handler {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	return tint.NewHandler(w, &tint.Options{
		NoColor:    noColor,
		TimeFormat: time.Kitchen,
		Level:      level,
	})
}

// fanout sends every record to each handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
