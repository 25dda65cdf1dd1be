package app

import (
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vortex-uav/depthbridge/internal/storage"
)

func recordedMap(ts int64, distances []uint16) *storage.ObstacleMap {
	return &storage.ObstacleMap{
		SessionID:   1,
		TimestampUS: ts,
		Distances:   distances,
		MinCM:       10,
		MaxCM:       800,
		IncrementF:  87.0 / 72,
		AngleOffset: -43.5,
	}
}

func TestMapDataAccumulation(t *testing.T) {
	data := NewMapData()
	data.Update(recordedMap(1_000_000, []uint16{100, 200, 801}))
	data.Update(recordedMap(2_000_000, []uint16{300, 801, 801}))

	assert.Equal(t, 3, data.Sectors)
	assert.Equal(t, 2, data.Height)
	assert.Equal(t, uint16(10), data.MinCM)
	assert.Equal(t, uint16(800), data.MaxCM)
	assert.Equal(t, time.UnixMicro(1_000_000), data.TimestampStart)
	assert.Equal(t, time.UnixMicro(2_000_000), data.TimestampEnd)
}

func TestMapDataStats(t *testing.T) {
	data := NewMapData()
	data.Update(recordedMap(0, []uint16{100, 300, 801, 801}))

	stats := data.Stats()
	assert.InDelta(t, 2.0, stats.Mean, 1e-9, "mean of 1m and 3m")
	assert.InDelta(t, 0.5, stats.Coverage, 1e-9, "two of four sectors valid")
}

func TestMapDataStatsEmpty(t *testing.T) {
	assert.Equal(t, Stats{}, NewMapData().Stats())
}

func TestColorMapperNearIsHot(t *testing.T) {
	cm := NewColorMapper(ThermalTheme, 10, 800)

	near := cm.GetColor(10)
	far := cm.GetColor(800)

	nr, ng, nb, _ := near.RGBA()
	fr, fg, fb, _ := far.RGBA()
	assert.Greater(t, nr+ng+nb, fr+fg+fb, "near reading must render hotter than far")
}

func TestColorMapperSentinelIsNoData(t *testing.T) {
	cm := NewColorMapper(ThermalTheme, 10, 800)

	assert.Equal(t, color.Black, cm.GetColor(801))
	assert.Equal(t, color.Black, cm.GetColor(0))
}

func TestRenderSmoke(t *testing.T) {
	data := NewMapData()
	for i := int64(0); i < 10; i++ {
		data.Update(recordedMap(i*100_000, []uint16{100, 200, 400, 801}))
	}

	renderer, err := NewMapRenderer(RenderConfig{ColorTheme: ThermalTheme, CellWidth: 4, CellHeight: 2})
	require.NoError(t, err)

	img, err := renderer.Render(data)
	require.NoError(t, err)

	bounds := img.Bounds()
	assert.Equal(t, 4*4+defaultLeftBorder+defaultRightBorder, bounds.Dx())
	assert.Equal(t, 10*2+defaultTopBorder+defaultBottomBorder, bounds.Dy())
}
