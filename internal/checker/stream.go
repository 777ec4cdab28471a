package checker

import (
	"context"

	"github.com/wallacegibbon/plugincheck/internal/stream"
)

// Summary is the payload of the summary frame.
type Summary struct {
	Plugin    string         `json:"plugin,omitempty"`
	Root      string         `json:"root"`
	Passed    int            `json:"passed"`
	Failed    int            `json:"failed"`
	Inventory map[string]int `json:"inventory,omitempty"`
}

// Summary returns the report totals.
func (r *Report) Summary() Summary {
	return Summary{
		Plugin:    r.Plugin,
		Root:      r.Root,
		Passed:    r.Passed,
		Failed:    r.Failed,
		Inventory: r.Inventory,
	}
}

// Stream runs rules and writes each result to out as it becomes available.
// A header frame precedes the first result of every group. The summary is
// left to the caller (see WriteSummary) so it can carry extra totals.
func (c *Checker) Stream(ctx context.Context, rules []Rule, out stream.Output) (*Report, error) {
	var (
		group string
		werr  error
	)

	report := c.RunFunc(ctx, rules, func(res CheckResult) {
		if werr != nil {
			return
		}
		if res.Group != group {
			group = res.Group
			if werr = stream.WriteTLV(out, stream.TagHeader, group); werr != nil {
				return
			}
		}
		tag := byte(stream.TagPass)
		if !res.Passed() {
			tag = stream.TagFail
		}
		werr = stream.WriteJSON(out, tag, res)
	})
	if werr != nil {
		return report, werr
	}
	return report, out.Flush()
}

// WriteSummary writes the summary frame for r.
func WriteSummary(out stream.Output, r *Report) error {
	if err := stream.WriteJSON(out, stream.TagSummary, r.Summary()); err != nil {
		return err
	}
	return out.Flush()
}
