package adaptors

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	_ "embed"

	"github.com/wallacegibbon/plugincheck/internal/checker"
	"github.com/wallacegibbon/plugincheck/internal/debug"
	"github.com/wallacegibbon/plugincheck/internal/stream"
)

// writeWait bounds a single write to a client; a client that stops reading
// is dropped from the broadcast once it expires
const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketAdaptor streams check runs to browsers. Every run is broadcast to
// all connected clients; a client that connects late first receives the
// frames of the current run so far.
type WebSocketAdaptor struct {
	Server *http.Server

	stream    StreamFunc
	logger    *slog.Logger
	broadcast *stream.Broadcast
	writeWait time.Duration

	runMu sync.Mutex // serializes runs

	mu     sync.Mutex // guards frames, latest and writes to broadcast
	frames []byte
	latest *checker.Report
}

// NewWebSocketAdaptor creates a new WebSocket adaptor that listens on addr
func NewWebSocketAdaptor(addr string, run StreamFunc, logger *slog.Logger) *WebSocketAdaptor {
	a := &WebSocketAdaptor{
		stream:    run,
		logger:    logger,
		broadcast: stream.NewBroadcast(),
		writeWait: writeWait,
	}

	mux := http.NewServeMux()

	// Handle WebSocket
	mux.HandleFunc("/ws", a.handleWebSocket)

	// Latest report as JSON
	mux.HandleFunc("/report.json", a.serveReport)

	// Serve embedded report.html
	mux.HandleFunc("/", serveIndex)

	a.Server = &http.Server{
		Addr:              addr,
		Handler:           debug.Handler(logger, mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return a
}

// serveIndex serves the embedded report.html
func serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func (a *WebSocketAdaptor) serveReport(w http.ResponseWriter, r *http.Request) {
	report := a.Latest()
	if report == nil {
		http.Error(w, "no report yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(report)
}

// Latest returns the report of the last completed run
func (a *WebSocketAdaptor) Latest() *checker.Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.latest
}

// RunOnce performs a check run and broadcasts its frames
func (a *WebSocketAdaptor) RunOnce(ctx context.Context) (*checker.Report, error) {
	a.runMu.Lock()
	defer a.runMu.Unlock()

	a.mu.Lock()
	a.frames = nil
	a.mu.Unlock()

	out := &recordingOutput{a: a}
	report, err := a.stream(ctx, out)
	if err != nil {
		stream.WriteTLV(out, stream.TagError, err.Error())
		a.logger.Warn("check run failed", "err", err)
		return report, err
	}

	a.mu.Lock()
	a.latest = report
	a.mu.Unlock()

	a.logger.Info("check run finished", "passed", report.Passed, "failed", report.Failed, "clients", a.broadcast.Len())
	return report, nil
}

// Start serves HTTP until ctx is cancelled
func (a *WebSocketAdaptor) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// handleWebSocket replays the current run to a new client, subscribes it to
// later runs and re-runs the checks whenever the client sends "run"
func (a *WebSocketAdaptor) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		a.logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	output := &clientOutput{conn: conn, wait: a.writeWait}

	a.mu.Lock()
	if len(a.frames) > 0 {
		output.Write(a.frames)
	}
	a.broadcast.Subscribe(output)
	a.mu.Unlock()
	defer a.broadcast.Unsubscribe(output)

	// Read loop - handles client commands and blocks until connection closes
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if string(message) == "run" {
			go a.RunOnce(context.WithoutCancel(r.Context()))
		}
	}
}

// recordingOutput keeps the frames of the current run and forwards them to
// every subscribed client
type recordingOutput struct {
	a *WebSocketAdaptor
}

func (o *recordingOutput) Write(p []byte) (int, error) {
	o.a.mu.Lock()
	defer o.a.mu.Unlock()
	o.a.frames = append(o.a.frames, p...)
	return o.a.broadcast.Write(p)
}

func (o *recordingOutput) WriteString(s string) (int, error) {
	return o.Write([]byte(s))
}

func (o *recordingOutput) Flush() error {
	return nil
}

// clientOutput implements stream.Output for a single WebSocket client
type clientOutput struct {
	conn *websocket.Conn
	wait time.Duration
	mu   sync.Mutex
}

// Write implements stream.Output
func (o *clientOutput) Write(p []byte) (n int, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err = o.conn.SetWriteDeadline(time.Now().Add(o.wait)); err != nil {
		return 0, err
	}
	err = o.conn.WriteMessage(websocket.BinaryMessage, p)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

// WriteString implements stream.Output
func (o *clientOutput) WriteString(s string) (int, error) {
	return o.Write([]byte(s))
}

// Flush implements stream.Output
func (o *clientOutput) Flush() error {
	return nil
}

//go:embed report.html
var indexHTML []byte

var _ Adaptor = (*WebSocketAdaptor)(nil)
