package proximity

import (
	"testing"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vortex-uav/depthbridge/internal/depth"
)

var (
	encGeometry = depth.SectorGeometry{Sectors: 72, HFOV: 87}
	encBounds   = depth.RangeBounds{Min: 0.1, Max: 8.0}
)

func uniformSnapshot(d uint16, ts int64) Snapshot {
	distances := make([]uint16, 72)
	for i := range distances {
		distances[i] = d
	}
	return Snapshot{Distances: distances, TimestampUS: ts}
}

func TestObstacleDistanceFields(t *testing.T) {
	msg := ObstacleDistance(uniformSnapshot(200, 123456789), encGeometry, encBounds)

	assert.Equal(t, uint64(123456789), msg.TimeUsec)
	assert.Equal(t, common.MAV_DISTANCE_SENSOR_LASER, msg.SensorType)
	assert.Equal(t, uint8(0), msg.Increment)
	assert.Equal(t, uint16(10), msg.MinDistance)
	assert.Equal(t, uint16(800), msg.MaxDistance)
	assert.InDelta(t, 87.0/72.0, float64(msg.IncrementF), 1e-6)
	assert.InDelta(t, -43.5, float64(msg.AngleOffset), 1e-6)
	assert.Equal(t, common.MAV_FRAME_BODY_FRD, msg.Frame)

	for i, d := range msg.Distances {
		require.Equal(t, uint16(200), d, "sector %d", i)
	}
}

func TestObstacleDistanceClampsToSentinel(t *testing.T) {
	snap := uniformSnapshot(200, 1)
	snap.Distances[0] = 5     // below declared minimum
	snap.Distances[1] = 60000 // far beyond the sentinel

	msg := ObstacleDistance(snap, encGeometry, encBounds)

	assert.Equal(t, uint16(801), msg.Distances[0])
	assert.Equal(t, uint16(801), msg.Distances[1])
	assert.Equal(t, uint16(200), msg.Distances[2])
}

func TestObstacleDistancePadsShortArrays(t *testing.T) {
	// A snapshot narrower than the wire array leaves the tail at sentinel.
	snap := Snapshot{Distances: []uint16{150, 150}, TimestampUS: 1}

	msg := ObstacleDistance(snap, encGeometry, encBounds)

	assert.Equal(t, uint16(150), msg.Distances[0])
	assert.Equal(t, uint16(150), msg.Distances[1])
	for i := 2; i < len(msg.Distances); i++ {
		require.Equal(t, uint16(801), msg.Distances[i], "sector %d", i)
	}
}

func TestDistanceSensorCentralWindow(t *testing.T) {
	msg := DistanceSensor(uniformSnapshot(200, 1))

	assert.Equal(t, uint32(0), msg.TimeBootMs)
	assert.Equal(t, uint16(10), msg.MinDistance)
	assert.Equal(t, uint16(65), msg.MaxDistance)
	assert.Equal(t, uint16(200), msg.CurrentDistance)
	assert.Equal(t, common.MAV_DISTANCE_SENSOR_LASER, msg.Type)
	assert.Equal(t, uint8(0), msg.Id)
	assert.Equal(t, common.MAV_SENSOR_ROTATION_NONE, msg.Orientation)
	assert.Equal(t, uint8(0), msg.Covariance)
}

func TestDistanceSensorMeansAndRounds(t *testing.T) {
	snap := uniformSnapshot(0, 1)
	// Sectors 33-37: mean of 100,101,102,103,105 is 102.2, rounds to 102.
	for i, v := range []uint16{100, 101, 102, 103, 105} {
		snap.Distances[33+i] = v
	}

	msg := DistanceSensor(snap)
	assert.Equal(t, uint16(102), msg.CurrentDistance)

	// Sectors outside the window must not contribute.
	snap.Distances[32] = 9999
	snap.Distances[38] = 9999
	assert.Equal(t, uint16(102), DistanceSensor(snap).CurrentDistance)
}
