package terminal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/wallacegibbon/plugincheck/internal/checker"
	"github.com/wallacegibbon/plugincheck/internal/stream"
)

// TLVWriter decodes result frames and prints them as a colored text report.
type TLVWriter struct {
	*bufio.Writer
	styles       Styles
	onlyFailures bool
	decoder      stream.Decoder
	pending      string // header waiting for its first visible result
}

// NewTLVWriter creates a text report writer on w.
func NewTLVWriter(w io.Writer, styles Styles, onlyFailures bool) *TLVWriter {
	return &TLVWriter{
		Writer:       bufio.NewWriter(w),
		styles:       styles,
		onlyFailures: onlyFailures,
	}
}

// Write implements the stream.Output interface - buffers and processes TLV
func (w *TLVWriter) Write(p []byte) (n int, err error) {
	for _, f := range w.decoder.Feed(p) {
		w.writeFrame(f)
	}
	return len(p), nil
}

// WriteString implements the stream.Output interface
func (w *TLVWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// writeFrame renders one frame as text
func (w *TLVWriter) writeFrame(f stream.Frame) {
	switch f.Tag {
	case stream.TagHeader:
		w.pending = f.Value
	case stream.TagPass, stream.TagFail:
		var res checker.CheckResult
		if err := json.Unmarshal([]byte(f.Value), &res); err != nil {
			w.Writer.WriteString(w.styles.Fail.Render("bad result frame: "+err.Error()) + "\n")
			return
		}
		if w.onlyFailures && res.Passed() {
			return
		}
		if w.pending != "" {
			w.Writer.WriteString(FormatHeader(w.styles, w.pending))
			w.pending = ""
		}
		w.Writer.WriteString(FormatResult(w.styles, res))
	case stream.TagSummary:
		var sum checker.Summary
		if err := json.Unmarshal([]byte(f.Value), &sum); err != nil {
			w.Writer.WriteString(w.styles.Fail.Render("bad summary frame: "+err.Error()) + "\n")
			return
		}
		w.Writer.WriteString(FormatSummary(w.styles, sum))
	case stream.TagError:
		w.Writer.WriteString(w.styles.Fail.Render("error: "+f.Value) + "\n")
	default:
		w.Writer.WriteString(f.Value)
	}
}

// Flush flushes any buffered data
func (w *TLVWriter) Flush() error {
	return w.Writer.Flush()
}

// Close implements io.Closer
func (w *TLVWriter) Close() error {
	return w.Flush()
}

// FormatHeader renders a section title line.
func FormatHeader(s Styles, group string) string {
	return s.Header.Render(group) + "\n"
}

// FormatResult renders one result line.
func FormatResult(s Styles, res checker.CheckResult) string {
	if res.Passed() {
		return fmt.Sprintf("  %s %s\n", s.Pass.Render("✓"), s.Dim.Render(res.RuleID))
	}
	line := fmt.Sprintf("  %s %s", s.Fail.Render("✗"), s.Rule.Render(res.RuleID))
	if res.Category != "" {
		line += " " + s.Dim.Render("["+string(res.Category)+"]")
	}
	if res.Message != "" {
		line += "\n      " + s.Text.Render(res.Message)
	}
	return line + "\n"
}

// FormatSummary renders the closing totals line.
func FormatSummary(s Styles, sum checker.Summary) string {
	total := sum.Passed + sum.Failed
	verdict := s.Pass.Render("PASS")
	if sum.Failed > 0 {
		verdict = s.Fail.Render("FAIL")
	}

	line := fmt.Sprintf("%d checks: %d passed, %d failed", total, sum.Passed, sum.Failed)
	if inv := FormatInventory(sum.Inventory); inv != "" {
		line += " | " + inv
	}
	return "\n" + verdict + " " + s.Summary.Render(line) + "\n"
}

// FormatInventory renders inventory counts as "agents 3, commands 7, skills 5".
func FormatInventory(inv map[string]int) string {
	if len(inv) == 0 {
		return ""
	}
	keys := make([]string, 0, len(inv))
	for k := range inv {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %d", k, inv[k])
	}
	return strings.Join(parts, ", ")
}
