package proximity

import (
	"math"

	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"

	"github.com/vortex-uav/depthbridge/internal/depth"
)

const (
	// Central window of sectors averaged into the DISTANCE_SENSOR reading.
	centerWindowLow  = 33
	centerWindowHigh = 37

	// Fixed DISTANCE_SENSOR range declaration, independent of the sector
	// report bounds.
	pointMinDistanceCM = 10
	pointMaxDistanceCM = 65
)

// ObstacleDistance builds the 72-sector OBSTACLE_DISTANCE payload for a
// snapshot. Sector values outside the declared range clamp to the sentinel
// maxCM+1; they never wrap or truncate.
func ObstacleDistance(snap Snapshot, geom depth.SectorGeometry, bounds depth.RangeBounds) *common.MessageObstacleDistance {
	msg := &common.MessageObstacleDistance{
		TimeUsec:    uint64(snap.TimestampUS),
		SensorType:  common.MAV_DISTANCE_SENSOR_LASER,
		Increment:   0, // superseded by IncrementF
		MinDistance: bounds.MinCM(),
		MaxDistance: bounds.MaxCM(),
		IncrementF:  float32(geom.Increment()),
		AngleOffset: float32(geom.AngleOffset()),
		Frame:       common.MAV_FRAME_BODY_FRD,
	}

	sentinel := bounds.SentinelCM()
	for i := range msg.Distances {
		msg.Distances[i] = sentinel
	}
	for i, d := range snap.Distances {
		if i >= len(msg.Distances) {
			break
		}
		if d < bounds.MinCM() || d > sentinel {
			d = sentinel
		}
		msg.Distances[i] = d
	}
	return msg
}

// DistanceSensor builds the single-point DISTANCE_SENSOR payload: the mean
// of a small central sector window, forward-oriented, with a fixed
// short-range declaration. The timestamp field is ignored by consumers and
// stays zero.
func DistanceSensor(snap Snapshot) *common.MessageDistanceSensor {
	var sum, n int
	for i := centerWindowLow; i <= centerWindowHigh && i < len(snap.Distances); i++ {
		sum += int(snap.Distances[i])
		n++
	}

	var current uint16
	if n > 0 {
		current = uint16(math.Round(float64(sum) / float64(n)))
	}

	return &common.MessageDistanceSensor{
		TimeBootMs:      0,
		MinDistance:     pointMinDistanceCM,
		MaxDistance:     pointMaxDistanceCM,
		CurrentDistance: current,
		Type:            common.MAV_DISTANCE_SENSOR_LASER,
		Id:              0,
		Orientation:     common.MAV_SENSOR_ROTATION_NONE,
		Covariance:      0,
	}
}
