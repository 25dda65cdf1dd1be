package depth

import (
	"fmt"
	"math"
)

// Filter is a single depth-frame transform. Filters may modify the frame in
// place and must return the frame that downstream stages should consume.
type Filter interface {
	Name() string
	Process(im *Image) *Image
}

// Chain applies a fixed ordered sequence of filters to each frame. The order
// is set at construction time and never changes based on frame content.
type Chain struct {
	stages []Filter
}

func NewChain(stages ...Filter) *Chain {
	return &Chain{stages: stages}
}

func (c *Chain) Process(im *Image) *Image {
	for _, stage := range c.stages {
		im = stage.Process(im)
	}
	return im
}

// Stages returns the filter names in application order.
func (c *Chain) Stages() []string {
	names := make([]string, len(c.stages))
	for i, stage := range c.stages {
		names[i] = stage.Name()
	}
	return names
}

// HoleFillingMode selects how zero (no reading) samples are replaced.
type HoleFillingMode string

const (
	// FillFromLeft propagates the last valid sample to the left of the hole.
	FillFromLeft HoleFillingMode = "fill-from-left"
	// FillNearest uses the closer of the two valid neighbors around the hole.
	FillNearest HoleFillingMode = "nearest"
	// FillFarthest uses the farther of the two valid neighbors around the hole.
	FillFarthest HoleFillingMode = "farthest"
)

func (m HoleFillingMode) Validate() error {
	switch m {
	case FillFromLeft, FillNearest, FillFarthest:
		return nil
	}
	return fmt.Errorf("unknown hole filling mode '%s'", m)
}

// HoleFilling replaces zero samples with values borrowed from valid
// neighbors on the same row.
type HoleFilling struct {
	Mode HoleFillingMode
}

func (f *HoleFilling) Name() string { return "hole-filling" }

func (f *HoleFilling) Process(im *Image) *Image {
	for y := 0; y < im.Height; y++ {
		row := im.Row(y)
		fillRow(row, f.Mode)
	}
	return im
}

func fillRow(row []uint16, mode HoleFillingMode) {
	var left uint16
	for x := 0; x < len(row); x++ {
		if row[x] != 0 {
			left = row[x]
			continue
		}
		if mode == FillFromLeft {
			row[x] = left
			continue
		}

		right := nextValid(row, x)
		switch {
		case left == 0:
			row[x] = right
		case right == 0:
			row[x] = left
		case mode == FillNearest:
			row[x] = min(left, right)
		default: // FillFarthest
			row[x] = max(left, right)
		}
	}
}

func nextValid(row []uint16, from int) uint16 {
	for x := from + 1; x < len(row); x++ {
		if row[x] != 0 {
			return row[x]
		}
	}
	return 0
}

// Decimation downsamples the frame by an integer magnitude, replacing each
// block with the mean of its valid samples.
type Decimation struct {
	Magnitude int
}

func (f *Decimation) Name() string { return "decimation" }

func (f *Decimation) Process(im *Image) *Image {
	m := f.Magnitude
	if m < 2 {
		return im
	}

	out := NewImage(im.Width/m, im.Height/m, im.Scale)
	out.TimestampUS = im.TimestampUS

	for oy := 0; oy < out.Height; oy++ {
		for ox := 0; ox < out.Width; ox++ {
			var sum, n uint64
			for y := oy * m; y < (oy+1)*m; y++ {
				for x := ox * m; x < (ox+1)*m; x++ {
					if v := im.At(x, y); v != 0 {
						sum += uint64(v)
						n++
					}
				}
			}
			if n > 0 {
				out.Set(ox, oy, uint16(sum/n))
			}
		}
	}
	return out
}

// disparityScale converts between depth and disparity domains. The exact
// constant only has to survive the round trip; it mirrors the stereo
// baseline*focal product of the D4xx at unit depth scale.
const disparityScale = 1 << 22

// DisparityTransform converts the frame between depth and disparity
// representations. Smoothing in disparity space weights near obstacles more
// heavily, so the spatial stage is sandwiched between a to-disparity and a
// from-disparity transform.
type DisparityTransform struct {
	ToDisparity bool
}

func (f *DisparityTransform) Name() string {
	if f.ToDisparity {
		return "depth-to-disparity"
	}
	return "disparity-to-depth"
}

func (f *DisparityTransform) Process(im *Image) *Image {
	for i, v := range im.Samples {
		if v == 0 {
			continue
		}
		// The mapping is its own inverse up to rounding.
		conv := math.Round(disparityScale / float64(v))
		if conv > math.MaxUint16 {
			conv = math.MaxUint16
		}
		im.Samples[i] = uint16(conv)
	}
	return im
}

// Spatial is an edge-preserving smoothing pass: a one-dimensional recursive
// filter run left-to-right and right-to-left over rows, then both ways over
// columns, for a configured number of iterations. Samples further than Delta
// raw units from their predecessor are treated as edges and left untouched.
type Spatial struct {
	Alpha      float64 // smoothing weight on the current sample, (0, 1]
	Delta      int     // edge threshold in raw units
	Iterations int
}

func (f *Spatial) Name() string { return "spatial" }

func (f *Spatial) Process(im *Image) *Image {
	iters := f.Iterations
	if iters <= 0 {
		iters = 1
	}
	for n := 0; n < iters; n++ {
		for y := 0; y < im.Height; y++ {
			row := im.Row(y)
			f.smooth(row, 1)
			f.smooth(row, -1)
		}
		col := make([]uint16, im.Height)
		for x := 0; x < im.Width; x++ {
			for y := 0; y < im.Height; y++ {
				col[y] = im.At(x, y)
			}
			f.smooth(col, 1)
			f.smooth(col, -1)
			for y := 0; y < im.Height; y++ {
				im.Set(x, y, col[y])
			}
		}
	}
	return im
}

func (f *Spatial) smooth(line []uint16, dir int) {
	start, end := 1, len(line)
	if dir < 0 {
		start, end = len(line)-2, -1
	}
	for i := start; i != end; i += dir {
		cur, prev := line[i], line[i-dir]
		if cur == 0 || prev == 0 {
			continue
		}
		diff := int(cur) - int(prev)
		if diff < 0 {
			diff = -diff
		}
		if diff > f.Delta {
			continue
		}
		line[i] = uint16(f.Alpha*float64(cur) + (1-f.Alpha)*float64(prev))
	}
}
