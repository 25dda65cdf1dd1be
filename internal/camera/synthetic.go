package camera

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/vortex-uav/depthbridge/internal/depth"
)

// Scene selects what a SyntheticSource renders.
type Scene string

const (
	// SceneUniform fills every pixel with the configured depth.
	SceneUniform Scene = "uniform"
	// SceneGradient ramps from the configured depth on the left edge to
	// twice that depth on the right.
	SceneGradient Scene = "gradient"
	// SceneSweep renders a near obstacle block sweeping left to right over
	// a far background, one image-width per ten seconds.
	SceneSweep Scene = "sweep"
)

func (s Scene) Validate() error {
	switch s {
	case SceneUniform, SceneGradient, SceneSweep:
		return nil
	}
	return fmt.Errorf("unknown synthetic scene '%s'", s)
}

// SyntheticConfig describes the generated stream.
type SyntheticConfig struct {
	Width, Height int
	Scale         float64 // meters per raw unit
	FPS           int
	Scene         Scene
	Depth         float64 // base scene depth in meters
}

func (c SyntheticConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("dimensions must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.Scale <= 0 {
		return fmt.Errorf("depth scale must be positive, got %g", c.Scale)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("frame rate must be positive, got %d", c.FPS)
	}
	if c.Depth <= 0 {
		return fmt.Errorf("scene depth must be positive, got %g", c.Depth)
	}
	return c.Scene.Validate()
}

// SyntheticSource generates depth frames at a fixed rate without hardware.
// Frame content depends only on the configuration and the frame index, so
// runs are reproducible.
type SyntheticSource struct {
	cfg    SyntheticConfig
	ticker *time.Ticker
	frame  atomic.Int64
	closed atomic.Bool
	now    func() time.Time
}

// NewSyntheticSource creates a generator for the given configuration.
func NewSyntheticSource(cfg SyntheticConfig) (*SyntheticSource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("synthetic source config: %w", err)
	}
	return &SyntheticSource{
		cfg:    cfg,
		ticker: time.NewTicker(time.Second / time.Duration(cfg.FPS)),
		now:    time.Now,
	}, nil
}

func (s *SyntheticSource) Next(ctx context.Context) (*depth.Image, error) {
	if s.closed.Load() {
		return nil, ErrSourceClosed
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.ticker.C:
	}
	if s.closed.Load() {
		return nil, ErrSourceClosed
	}

	n := s.frame.Add(1) - 1
	return s.render(n), nil
}

func (s *SyntheticSource) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.ticker.Stop()
	}
	return nil
}

func (s *SyntheticSource) render(frame int64) *depth.Image {
	im := depth.NewImage(s.cfg.Width, s.cfg.Height, s.cfg.Scale)
	im.TimestampUS = s.now().UnixMicro()

	base := uint16(s.cfg.Depth / s.cfg.Scale)

	switch s.cfg.Scene {
	case SceneUniform:
		for i := range im.Samples {
			im.Samples[i] = base
		}

	case SceneGradient:
		for y := 0; y < im.Height; y++ {
			row := im.Row(y)
			for x := range row {
				row[x] = base + uint16(int(base)*x/im.Width)
			}
		}

	case SceneSweep:
		far := base * 3
		blockWidth := im.Width / 8
		offset := int(frame) * im.Width / (10 * s.cfg.FPS) % im.Width
		for y := 0; y < im.Height; y++ {
			row := im.Row(y)
			for x := range row {
				row[x] = far
				if x >= offset && x < offset+blockWidth {
					row[x] = base
				}
			}
		}
	}
	return im
}

var (
	_ Source = (*SyntheticSource)(nil)
	_ Source = (*PipeSource)(nil)
)
