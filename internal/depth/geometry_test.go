package depth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectorGeometryValidate(t *testing.T) {
	cases := []struct {
		name    string
		geom    SectorGeometry
		wantErr bool
	}{
		{"valid", SectorGeometry{Sectors: 72, HFOV: 87}, false},
		{"zero sectors", SectorGeometry{Sectors: 0, HFOV: 87}, true},
		{"negative sectors", SectorGeometry{Sectors: -1, HFOV: 87}, true},
		{"zero fov", SectorGeometry{Sectors: 72, HFOV: 0}, true},
		{"negative fov", SectorGeometry{Sectors: 72, HFOV: -10}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.geom.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSectorGeometryAngles(t *testing.T) {
	geom := SectorGeometry{Sectors: 72, HFOV: 87}

	assert.InDelta(t, 87.0/72.0, geom.Increment(), 1e-9)
	assert.InDelta(t, -43.5, geom.AngleOffset(), 1e-9)
}

func TestRangeBoundsValidate(t *testing.T) {
	require.NoError(t, RangeBounds{Min: 0.1, Max: 8.0}.Validate())
	require.Error(t, RangeBounds{Min: 8.0, Max: 0.1}.Validate())
	require.Error(t, RangeBounds{Min: 2.0, Max: 2.0}.Validate())
	require.Error(t, RangeBounds{Min: -1.0, Max: 8.0}.Validate())
}

func TestRangeBoundsCentimeters(t *testing.T) {
	b := RangeBounds{Min: 0.1, Max: 8.0}

	assert.Equal(t, uint16(10), b.MinCM())
	assert.Equal(t, uint16(800), b.MaxCM())
	assert.Equal(t, uint16(801), b.SentinelCM())
}

func TestImageCheckDimensions(t *testing.T) {
	im := NewImage(640, 480, 0.001)

	require.NoError(t, im.CheckDimensions(640, 480))
	require.Error(t, im.CheckDimensions(320, 240))

	im.Samples = im.Samples[:100]
	require.Error(t, im.CheckDimensions(640, 480))
}
