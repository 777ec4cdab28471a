package adaptors

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wallacegibbon/plugincheck/internal/checker"
	"github.com/wallacegibbon/plugincheck/internal/stream"
)

func testReport() *checker.Report {
	return checker.NewReport("root", []checker.CheckResult{
		{RuleID: "metadata/exists", Group: "metadata", Status: checker.Pass},
		{RuleID: "agents/yt-scraper/model", Group: "agents", Status: checker.Fail,
			Category: checker.DisallowedValue, Message: "agents/yt-scraper.md: invalid model value 'gpt4'"},
	})
}

func testStream(ctx context.Context, out stream.Output) (*checker.Report, error) {
	r := testReport()
	group := ""
	for _, res := range r.Results {
		if res.Group != group {
			group = res.Group
			if err := stream.WriteTLV(out, stream.TagHeader, group); err != nil {
				return nil, err
			}
		}
		tag := byte(stream.TagPass)
		if !res.Passed() {
			tag = stream.TagFail
		}
		if err := stream.WriteJSON(out, tag, res); err != nil {
			return nil, err
		}
	}
	return r, checker.WriteSummary(out, r)
}

func TestTUIRunAndFilter(t *testing.T) {
	runs := 0
	run := func(ctx context.Context) (*checker.Report, error) {
		runs++
		return testReport(), nil
	}

	m := NewTUI(context.Background(), "plugincheck", run, false)
	cmd := m.Init()
	require.NotNil(t, cmd)
	assert.Contains(t, m.status, "Checking")

	m.Update(cmd())
	assert.Equal(t, 1, runs)
	assert.Contains(t, m.status, "1 passed | 1 failed")
	assert.Contains(t, m.View(), "plugincheck")
	assert.Contains(t, m.View(), "metadata/exists")

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	assert.True(t, m.onlyFailures)
	assert.Contains(t, m.status, "failures only")
	assert.NotContains(t, m.View(), "metadata/exists")

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)
	m.Update(cmd())
	assert.Equal(t, 2, runs)

	_, cmd = m.Update(refreshMsg{})
	require.NotNil(t, cmd)
	m.Update(cmd())
	assert.Equal(t, 3, runs)
}

func TestTUIError(t *testing.T) {
	run := func(ctx context.Context) (*checker.Report, error) {
		return nil, errors.New("root not found")
	}

	m := NewTUI(context.Background(), "plugincheck", run, false)
	m.Update(m.Init()())
	assert.Contains(t, m.status, "Error: root not found")
	assert.Contains(t, m.View(), "root not found")
}

func TestTUIQuit(t *testing.T) {
	m := NewTUI(context.Background(), "plugincheck", nil, false)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func newTestAdaptor(t *testing.T) (*WebSocketAdaptor, *httptest.Server) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	a := NewWebSocketAdaptor(":0", testStream, logger)
	srv := httptest.NewServer(a.Server.Handler)
	t.Cleanup(srv.Close)
	return a, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readFrames reads messages until a summary frame arrives.
func readFrames(t *testing.T, conn *websocket.Conn) []stream.Frame {
	t.Helper()
	var (
		d      stream.Decoder
		frames []stream.Frame
	)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		for _, f := range d.Feed(data) {
			frames = append(frames, f)
			if f.Tag == stream.TagSummary {
				return frames
			}
		}
	}
}

func tags(frames []stream.Frame) string {
	var sb strings.Builder
	for _, f := range frames {
		sb.WriteByte(f.Tag)
	}
	return sb.String()
}

func TestWebSocketRunOnClientRequest(t *testing.T) {
	a, srv := newTestAdaptor(t)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("run")))
	frames := readFrames(t, conn)
	assert.Equal(t, "HPHFS", tags(frames))

	var res checker.CheckResult
	require.NoError(t, json.Unmarshal([]byte(frames[3].Value), &res))
	assert.Equal(t, "agents/yt-scraper/model", res.RuleID)

	require.Eventually(t, func() bool { return a.Latest() != nil }, 5*time.Second, 10*time.Millisecond)
}

func TestWebSocketReplaysLastRun(t *testing.T) {
	a, srv := newTestAdaptor(t)
	_, err := a.RunOnce(context.Background())
	require.NoError(t, err)

	conn := dial(t, srv)
	frames := readFrames(t, conn)
	assert.Equal(t, "HPHFS", tags(frames))
}

func TestWebSocketDropsStalledClient(t *testing.T) {
	a, srv := newTestAdaptor(t)
	a.writeWait = time.Nanosecond
	dial(t, srv)
	require.Eventually(t, func() bool { return a.broadcast.Len() == 1 }, 5*time.Second, 10*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, err := a.RunOnce(context.Background())
		done <- err
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run blocked on a client that does not keep up")
	}

	assert.Equal(t, 0, a.broadcast.Len())
	assert.NotNil(t, a.Latest())
}

func TestReportJSON(t *testing.T) {
	a, srv := newTestAdaptor(t)

	resp, err := http.Get(srv.URL + "/report.json")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	_, err = a.RunOnce(context.Background())
	require.NoError(t, err)

	resp, err = http.Get(srv.URL + "/report.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var got checker.Report
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 1, got.Failed)
}

func TestServeIndex(t *testing.T) {
	_, srv := newTestAdaptor(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), "<title>plugincheck</title>")

	resp, err = http.Get(srv.URL + "/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
