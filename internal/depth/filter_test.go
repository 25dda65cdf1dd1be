package depth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rowImage(samples ...uint16) *Image {
	im := NewImage(len(samples), 1, 0.001)
	copy(im.Samples, samples)
	return im
}

func TestHoleFillingFromLeft(t *testing.T) {
	im := rowImage(0, 500, 0, 0, 700, 0)

	out := (&HoleFilling{Mode: FillFromLeft}).Process(im)

	assert.Equal(t, []uint16{0, 500, 500, 500, 700, 700}, out.Samples)
}

func TestHoleFillingNearest(t *testing.T) {
	im := rowImage(500, 0, 700)

	out := (&HoleFilling{Mode: FillNearest}).Process(im)

	// Nearest obstacle wins: the smaller depth value.
	assert.Equal(t, []uint16{500, 500, 700}, out.Samples)
}

func TestHoleFillingFarthest(t *testing.T) {
	im := rowImage(500, 0, 700)

	out := (&HoleFilling{Mode: FillFarthest}).Process(im)

	assert.Equal(t, []uint16{500, 700, 700}, out.Samples)
}

func TestHoleFillingLeavesValidSamples(t *testing.T) {
	im := rowImage(100, 200, 300)
	want := []uint16{100, 200, 300}

	for _, mode := range []HoleFillingMode{FillFromLeft, FillNearest, FillFarthest} {
		out := (&HoleFilling{Mode: mode}).Process(rowImage(want...))
		assert.Equal(t, want, out.Samples, "mode %s", mode)
	}
	_ = im
}

func TestHoleFillingModeValidate(t *testing.T) {
	require.NoError(t, FillFromLeft.Validate())
	require.NoError(t, FillNearest.Validate())
	require.NoError(t, FillFarthest.Validate())
	require.Error(t, HoleFillingMode("median").Validate())
}

func TestDecimationBlockMean(t *testing.T) {
	im := NewImage(4, 4, 0.001)
	im.TimestampUS = 42
	for i := range im.Samples {
		im.Samples[i] = uint16(1000 + i)
	}

	out := (&Decimation{Magnitude: 2}).Process(im)

	require.Equal(t, 2, out.Width)
	require.Equal(t, 2, out.Height)
	assert.Equal(t, int64(42), out.TimestampUS)
	assert.Equal(t, im.Scale, out.Scale)

	// Top-left block holds samples 1000, 1001, 1004, 1005.
	assert.Equal(t, uint16(1002), out.At(0, 0))
}

func TestDecimationSkipsInvalidSamples(t *testing.T) {
	im := NewImage(2, 2, 0.001)
	im.Set(0, 0, 800)
	// Remaining three samples are zero holes.

	out := (&Decimation{Magnitude: 2}).Process(im)

	assert.Equal(t, uint16(800), out.At(0, 0))
}

func TestDisparityRoundTrip(t *testing.T) {
	orig := []uint16{0, 400, 2000, 8000, 65000}
	im := rowImage(orig...)

	im = (&DisparityTransform{ToDisparity: true}).Process(im)
	im = (&DisparityTransform{ToDisparity: false}).Process(im)

	for i, v := range im.Samples {
		// Zero holes stay zero; everything else survives within rounding.
		if orig[i] == 0 {
			assert.Equal(t, uint16(0), v, "sample %d", i)
			continue
		}
		assert.InDelta(t, float64(orig[i]), float64(v), float64(orig[i])*0.01, "sample %d", i)
	}
}

func TestSpatialPreservesEdges(t *testing.T) {
	im := rowImage(1000, 1000, 8000, 8000)

	out := (&Spatial{Alpha: 0.5, Delta: 50, Iterations: 1}).Process(im)

	// The 7m jump is far above delta and must not be smeared.
	assert.Equal(t, uint16(1000), out.Samples[1])
	assert.Equal(t, uint16(8000), out.Samples[2])
}

func TestSpatialSmoothsSmallSteps(t *testing.T) {
	im := rowImage(1000, 1020, 1000, 1020)

	out := (&Spatial{Alpha: 0.5, Delta: 50, Iterations: 1}).Process(im)

	for _, v := range out.Samples {
		assert.InDelta(t, 1010, float64(v), 15)
	}
}

func TestChainOrderAndIdentity(t *testing.T) {
	chain := NewChain(
		&DisparityTransform{ToDisparity: true},
		&Spatial{Alpha: 0.5, Delta: 20, Iterations: 1},
		&DisparityTransform{ToDisparity: false},
		&HoleFilling{Mode: FillFromLeft},
	)

	assert.Equal(t, []string{
		"depth-to-disparity", "spatial", "disparity-to-depth", "hole-filling",
	}, chain.Stages())

	// An empty chain is the identity pipeline.
	im := rowImage(100, 0, 300)
	out := NewChain().Process(im)
	assert.Same(t, im, out)
}
