// Package debugview renders obstacle maps as single-line ASCII strips for
// eyeballing the pipeline in a terminal, one glyph per sector.
package debugview

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/vortex-uav/depthbridge/internal/depth"
	"github.com/vortex-uav/depthbridge/internal/proximity"
)

// glyphRamp orders glyphs from far (sparse) to near (dense). Sectors with no
// valid reading render as a space.
const glyphRamp = ".:nhBXW"

// Line renders one obstacle map as an ASCII strip. Sector zero is the
// leftmost glyph.
func Line(distances []uint16, bounds depth.RangeBounds) string {
	minCM := bounds.MinCM()
	maxCM := bounds.MaxCM()
	span := int(maxCM) - int(minCM)

	var sb strings.Builder
	sb.Grow(len(distances))

	for _, d := range distances {
		if d < minCM || d > maxCM {
			sb.WriteByte(' ')
			continue
		}
		// Near readings map to the dense end of the ramp.
		pos := int(maxCM-d) * (len(glyphRamp) - 1) / span
		sb.WriteByte(glyphRamp[pos])
	}
	return sb.String()
}

// WithLogger sets the logger for the viewer.
func WithLogger(logger *slog.Logger) func(*Viewer) {
	return func(v *Viewer) {
		v.logger = logger.With(slog.String("component", "debugview"))
	}
}

// Viewer periodically logs the latest obstacle map as an ASCII strip. It
// runs at its own cadence, independent of the telemetry rate.
type Viewer struct {
	latest *proximity.Latest
	bounds depth.RangeBounds
	period time.Duration
	logger *slog.Logger
}

// NewViewer creates a viewer reading from latest at rateHz.
func NewViewer(latest *proximity.Latest, bounds depth.RangeBounds, rateHz float64, options ...func(*Viewer)) (*Viewer, error) {
	if rateHz <= 0 {
		return nil, fmt.Errorf("view rate must be positive, got %g", rateHz)
	}
	v := &Viewer{
		latest: latest,
		bounds: bounds,
		period: time.Duration(float64(time.Second) / rateHz),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, option := range options {
		option(v)
	}
	return v, nil
}

// Run logs strips until ctx is canceled.
func (v *Viewer) Run(ctx context.Context) error {
	ticker := time.NewTicker(v.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		snap, ok := v.latest.Read()
		if !ok {
			continue
		}
		v.logger.Info(fmt.Sprintf("[%s]", Line(snap.Distances, v.bounds)))
	}
}
