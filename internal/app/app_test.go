package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallacegibbon/plugincheck/internal/checker"
	"github.com/wallacegibbon/plugincheck/internal/config"
	"github.com/wallacegibbon/plugincheck/internal/plugin"
	"github.com/wallacegibbon/plugincheck/internal/stream"
)

func demoProfile(root string) *plugin.Profile {
	return &plugin.Profile{
		Name: "demo",
		Root: root,
		Metadata: plugin.MetadataSpec{
			Path:     ".claude-plugin/plugin.json",
			Required: []string{"name", "version"},
			Allowed:  []string{"name", "version", "description"},
		},
		Commands: plugin.ArtifactSpec{
			Dir:      "commands",
			Names:    []string{"hello.md"},
			Required: []string{"name", "description"},
		},
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func demoApp(t *testing.T) (*App, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".claude-plugin", "plugin.json"), `{"name":"demo","version":"1.0.0"}`)
	writeFile(t, filepath.Join(root, "commands", "hello.md"), "---\nname: hello\ndescription: says hello\n---\nbody\n")

	a, err := Setup(&config.Settings{Root: root, Parallel: 2, Plugin: demoProfile(root)}, nil)
	require.NoError(t, err)
	return a, root
}

func TestSetupRejectsMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "absent")
	_, err := Setup(&config.Settings{Root: root, Plugin: demoProfile(root)}, nil)
	require.Error(t, err)

	var cfgErr *config.Error
	assert.True(t, errors.As(err, &cfgErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSetupRejectsFileRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "plugin.json")
	writeFile(t, root, "{}")
	_, err := Setup(&config.Settings{Root: root, Plugin: demoProfile(root)}, nil)
	assert.ErrorContains(t, err, "not a directory")
}

func TestRun(t *testing.T) {
	a, root := demoApp(t)
	assert.Len(t, a.Rules, 7)
	assert.Contains(t, a.Title(), "demo @ "+root)

	report, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.OK(), "failures: %v", report.Failures())
	assert.Equal(t, "demo", report.Plugin)
	assert.Equal(t, map[string]int{"skills": 0, "commands": 1, "agents": 0}, report.Inventory)
}

func TestRunReportsFailures(t *testing.T) {
	a, root := demoApp(t)
	require.NoError(t, os.Remove(filepath.Join(root, "commands", "hello.md")))

	report, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed)

	res, ok := report.Result("commands/hello/exists")
	require.True(t, ok)
	assert.Equal(t, checker.MissingArtifact, res.Category)
	assert.Equal(t, 0, report.Inventory["commands"])
}

func TestStreamEndsWithSummary(t *testing.T) {
	a, _ := demoApp(t)

	var buf bytes.Buffer
	report, err := a.Stream(context.Background(), &stream.GenericWriter{Writer: &buf})
	require.NoError(t, err)

	var d stream.Decoder
	frames := d.Feed(buf.Bytes())
	require.NotEmpty(t, frames)
	assert.Equal(t, 0, d.Pending())

	var results int
	for _, f := range frames {
		if f.Tag == stream.TagPass || f.Tag == stream.TagFail {
			results++
		}
	}
	assert.Equal(t, len(report.Results), results)

	last := frames[len(frames)-1]
	require.Equal(t, byte(stream.TagSummary), last.Tag)
	var sum checker.Summary
	require.NoError(t, json.Unmarshal([]byte(last.Value), &sum))
	assert.Equal(t, "demo", sum.Plugin)
	assert.Equal(t, 7, sum.Passed)
	assert.Equal(t, 1, sum.Inventory["commands"])
}

func TestWatchDebouncesChanges(t *testing.T) {
	a, root := demoApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, 50*time.Millisecond, func() { calls.Add(1) })
	}()

	// Give the watcher time to register the tree
	time.Sleep(100 * time.Millisecond)
	for i := 0; i < 3; i++ {
		writeFile(t, filepath.Join(root, "commands", "hello.md"), "---\nname: hello\n---\n")
	}
	writeFile(t, filepath.Join(root, "agents", "new.md"), "---\nname: new\n---\n")

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.LessOrEqual(t, calls.Load(), int32(2))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
