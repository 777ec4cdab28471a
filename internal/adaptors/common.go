package adaptors

import (
	"context"

	"github.com/wallacegibbon/plugincheck/internal/checker"
	"github.com/wallacegibbon/plugincheck/internal/stream"
)

// RunFunc performs one complete check run.
type RunFunc func(ctx context.Context) (*checker.Report, error)

// StreamFunc performs one check run, writing result frames to out as they
// become available.
type StreamFunc func(ctx context.Context, out stream.Output) (*checker.Report, error)

// Adaptor is the interface for report front ends
type Adaptor interface {
	Start(ctx context.Context) error
}
