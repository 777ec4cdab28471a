package debug

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenNumbered(t *testing.T) {
	dir := t.TempDir()

	f0, p0, err := openNumbered(dir, "plugincheck-debug")
	require.NoError(t, err)
	defer f0.Close()
	f1, p1, err := openNumbered(dir, "plugincheck-debug")
	require.NoError(t, err)
	defer f1.Close()

	assert.Equal(t, filepath.Join(dir, "plugincheck-debug-0.log"), p0)
	assert.Equal(t, filepath.Join(dir, "plugincheck-debug-1.log"), p1)
}

func TestOpenNumberedMissingDir(t *testing.T) {
	_, _, err := openNumbered(filepath.Join(t.TempDir(), "missing"), "x")
	assert.Error(t, err)
}

func TestNewLoggerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelWarn, false)

	logger.Info("hidden")
	logger.Warn("shown", "rule", "skills/yt-brief/keys")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "skills/yt-brief/keys")
}

func TestFanout(t *testing.T) {
	var text, js bytes.Buffer
	h := fanout{
		slog.NewTextHandler(&text, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&js, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}
	logger := slog.New(h).With("run", 1)

	logger.Debug("rule evaluated")
	logger.Warn("rule panicked")

	assert.NotContains(t, text.String(), "rule evaluated")
	assert.Contains(t, text.String(), "rule panicked")
	assert.Contains(t, js.String(), `"msg":"rule evaluated"`)
	assert.Contains(t, js.String(), `"run":1`)
}

func TestHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	h := Handler(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/report.json", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, buf.String(), "path=/report.json")
	assert.Contains(t, buf.String(), "status=418")
}
