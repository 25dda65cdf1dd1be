// Package storage persists recorded obstacle maps to SQLite for later
// analysis and rendering.
package storage

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Session describes a single recording run.
type Session struct {
	ID        int64
	StartTime time.Time
	Source    string  // camera source description, e.g. device path or "synthetic"
	Config    *string // JSON dump of the daemon configuration, if recorded
}

// ObstacleMap is one published sector map.
type ObstacleMap struct {
	ID          int64
	SessionID   int64
	TimestampUS int64
	Distances   []uint16 // sector distances in centimeters
	MinCM       uint16
	MaxCM       uint16
	IncrementF  float32 // sector angular width, degrees
	AngleOffset float32 // angle of sector zero relative to vehicle heading, degrees
}

// Time returns the map timestamp as wall clock time.
func (m *ObstacleMap) Time() time.Time {
	return time.UnixMicro(m.TimestampUS)
}

// encodeDistances packs sector distances into a little-endian blob.
func encodeDistances(distances []uint16) []byte {
	blob := make([]byte, 2*len(distances))
	for i, d := range distances {
		binary.LittleEndian.PutUint16(blob[2*i:], d)
	}
	return blob
}

// decodeDistances unpacks a little-endian distance blob.
func decodeDistances(blob []byte) ([]uint16, error) {
	if len(blob)%2 != 0 {
		return nil, fmt.Errorf("odd distance blob length %d", len(blob))
	}
	distances := make([]uint16, len(blob)/2)
	for i := range distances {
		distances[i] = binary.LittleEndian.Uint16(blob[2*i:])
	}
	return distances, nil
}

func closeWithError(cl interface{ Close() error }, err *error) {
	if cErr := cl.Close(); cErr != nil && *err == nil {
		*err = cErr
	}
}

func rollbackWithError(rb interface{ Rollback() error }, err *error) {
	if cErr := rb.Rollback(); cErr != nil && *err == nil {
		*err = cErr
	}
}
