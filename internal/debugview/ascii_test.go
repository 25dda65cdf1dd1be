package debugview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vortex-uav/depthbridge/internal/depth"
)

func testBounds(t *testing.T) depth.RangeBounds {
	t.Helper()

	bounds := depth.RangeBounds{Min: 0.1, Max: 8.0}
	require.NoError(t, bounds.Validate())
	return bounds
}

func TestLineGlyphEnds(t *testing.T) {
	bounds := testBounds(t)

	line := Line([]uint16{bounds.MinCM(), bounds.MaxCM()}, bounds)
	require.Len(t, line, 2)
	assert.Equal(t, byte('W'), line[0], "nearest reading must use the densest glyph")
	assert.Equal(t, byte('.'), line[1], "farthest reading must use the sparsest glyph")
}

func TestLineNoReading(t *testing.T) {
	bounds := testBounds(t)

	line := Line([]uint16{bounds.SentinelCM(), 0, bounds.MaxCM()}, bounds)
	assert.Equal(t, "  .", line)
}

func TestLineMonotonic(t *testing.T) {
	bounds := testBounds(t)

	// Glyph density must never increase as distance grows.
	rank := func(b byte) int {
		for i := 0; i < len(glyphRamp); i++ {
			if glyphRamp[i] == b {
				return i
			}
		}
		t.Fatalf("glyph %q not in ramp", b)
		return -1
	}

	distances := make([]uint16, 0, 80)
	for d := bounds.MinCM(); d <= bounds.MaxCM(); d += 10 {
		distances = append(distances, d)
	}
	line := Line(distances, bounds)
	require.Len(t, line, len(distances))

	for i := 1; i < len(line); i++ {
		assert.GreaterOrEqual(t, rank(line[i-1]), rank(line[i]),
			"density increased between %d cm and %d cm", distances[i-1], distances[i])
	}
}
