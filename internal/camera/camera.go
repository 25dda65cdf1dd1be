// Package camera provides depth frame sources: an external streamer process
// speaking a simple binary protocol, and a synthetic generator for running
// without hardware.
package camera

import (
	"context"
	"errors"

	"github.com/vortex-uav/depthbridge/internal/depth"
)

var (
	// ErrFrameTimeout is returned when no frame arrived within the
	// configured per-frame wait. The cycle should be skipped, not aborted.
	ErrFrameTimeout = errors.New("timed out waiting for depth frame")

	// ErrSourceClosed is returned from Next after Close.
	ErrSourceClosed = errors.New("depth source is closed")
)

// Source delivers depth frames on demand. Next blocks for a bounded time:
// it returns ErrFrameTimeout on a transient stall, ErrSourceClosed after
// Close, and any other error is fatal for the acquisition loop.
type Source interface {
	// Next returns the next depth frame. The returned image is owned by the
	// caller until the following Next call.
	Next(ctx context.Context) (*depth.Image, error)

	// Close stops frame delivery and releases the device. Safe to call more
	// than once and concurrently with a blocked Next.
	Close() error
}
