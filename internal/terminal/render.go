package terminal

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/wallacegibbon/plugincheck/internal/checker"
	"github.com/wallacegibbon/plugincheck/internal/stream"
)

// Options controls report rendering.
type Options struct {
	Styles       Styles
	OnlyFailures bool
}

// RenderText writes a finished report in the text format.
func RenderText(w io.Writer, r *checker.Report, opts Options) error {
	out := NewTLVWriter(w, opts.Styles, opts.OnlyFailures)
	group := ""
	for _, res := range r.Results {
		if res.Group != group {
			group = res.Group
			if err := stream.WriteTLV(out, stream.TagHeader, group); err != nil {
				return err
			}
		}
		tag := byte(stream.TagPass)
		if !res.Passed() {
			tag = stream.TagFail
		}
		if err := stream.WriteJSON(out, tag, res); err != nil {
			return err
		}
	}
	return checker.WriteSummary(out, r)
}

// RenderTable writes the report as a table.
func RenderTable(w io.Writer, r *checker.Report, opts Options) error {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Group", "Rule", "Status", "Category", "Message"})

	for _, res := range r.Results {
		if opts.OnlyFailures && res.Passed() {
			continue
		}
		status := opts.Styles.Pass.Render("pass")
		if !res.Passed() {
			status = opts.Styles.Fail.Render("fail")
		}
		t.AppendRow(table.Row{res.Group, res.RuleID, status, string(res.Category), res.Message})
	}

	footer := fmt.Sprintf("%d passed, %d failed", r.Passed, r.Failed)
	if inv := FormatInventory(r.Inventory); inv != "" {
		footer += " | " + inv
	}
	t.AppendFooter(table.Row{"", "", "", "", footer})
	t.Render()
	return nil
}

// RenderJSON writes the full report as indented JSON. OnlyFailures does
// not apply.
func RenderJSON(w io.Writer, r *checker.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}

// Render dispatches on format: text, table or json.
func Render(w io.Writer, format string, r *checker.Report, opts Options) error {
	switch format {
	case "table":
		return RenderTable(w, r, opts)
	case "json":
		return RenderJSON(w, r)
	case "text", "":
		return RenderText(w, r, opts)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
