package app

import (
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/vortex-uav/depthbridge/internal/storage"
)

// MapData accumulates a session's obstacle maps into a grid: one row per
// map, one column per sector.
type MapData struct {
	Sectors                      int
	Height                       int
	MinCM, MaxCM                 uint16
	IncrementF, AngleOffset      float32
	TimestampStart, TimestampEnd time.Time
	Rows                         [][]uint16

	valid []float64 // flattened valid readings, meters, for session stats
}

func NewMapData() *MapData {
	return &MapData{
		Rows: make([][]uint16, 0),
	}
}

// Update folds one recorded map into the grid. Range metadata is taken from
// the first map; a recording session never changes it mid-flight.
func (d *MapData) Update(m *storage.ObstacleMap) {
	if d.Height == 0 {
		d.MinCM = m.MinCM
		d.MaxCM = m.MaxCM
		d.IncrementF = m.IncrementF
		d.AngleOffset = m.AngleOffset
		d.TimestampStart = m.Time()
	}
	d.Sectors = max(d.Sectors, len(m.Distances))
	d.Height++
	d.TimestampEnd = m.Time()

	d.Rows = append(d.Rows, m.Distances)
	for _, v := range m.Distances {
		if v >= d.MinCM && v <= d.MaxCM {
			d.valid = append(d.valid, float64(v)/100)
		}
	}
}

// Stats summarizes the session's valid readings.
type Stats struct {
	Mean     float64 // meters
	StdDev   float64 // meters
	Coverage float64 // fraction of cells with a valid reading
}

func (d *MapData) Stats() Stats {
	cells := d.Height * d.Sectors
	if cells == 0 || len(d.valid) == 0 {
		return Stats{}
	}
	return Stats{
		Mean:     stat.Mean(d.valid, nil),
		StdDev:   stat.StdDev(d.valid, nil),
		Coverage: float64(len(d.valid)) / float64(cells),
	}
}
