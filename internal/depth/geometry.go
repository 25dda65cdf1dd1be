package depth

import "fmt"

// SectorGeometry describes how the horizontal field of view is divided into
// fixed angular sectors. Validated once at startup and treated as immutable
// afterwards.
type SectorGeometry struct {
	Sectors int     // number of angular sectors (N)
	HFOV    float64 // horizontal field of view in degrees
}

// Increment returns the per-sector angular increment in degrees.
func (g SectorGeometry) Increment() float64 {
	return g.HFOV / float64(g.Sectors)
}

// AngleOffset returns the angle of sector 0 relative to the camera axis in
// degrees. Sector 0 is the leftmost sector.
func (g SectorGeometry) AngleOffset() float64 {
	return -g.HFOV / 2
}

func (g SectorGeometry) Validate() error {
	if g.Sectors <= 0 {
		return fmt.Errorf("sector count must be positive, got %d", g.Sectors)
	}
	if g.HFOV <= 0 {
		return fmt.Errorf("horizontal FOV must be positive, got %g", g.HFOV)
	}
	return nil
}

// columnSpan returns the half-open pixel column range [lo, hi) covered by
// sector i in an image of the given width. The span is clamped to
// [0, width-1] and is never empty.
func (g SectorGeometry) columnSpan(i, width int) (lo, hi int) {
	step := float64(width) / float64(g.Sectors)
	half := step / 2

	lof := float64(i)*step - half
	if lof < 0 {
		lof = 0
	}
	hif := float64(i)*step + half
	if hif > float64(width-1) {
		hif = float64(width - 1)
	}

	lo, hi = int(lof), int(hif)
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

// RangeBounds is the usable depth range of the sensor in meters.
type RangeBounds struct {
	Min, Max float64
}

// MinCM and MaxCM convert the bounds to integer centimeters as carried on
// the wire.
func (b RangeBounds) MinCM() uint16 { return uint16(b.Min * 100) }
func (b RangeBounds) MaxCM() uint16 { return uint16(b.Max * 100) }

// SentinelCM is the reserved value meaning "no obstacle within range".
func (b RangeBounds) SentinelCM() uint16 { return b.MaxCM() + 1 }

func (b RangeBounds) Validate() error {
	if b.Min < 0 {
		return fmt.Errorf("min range must not be negative, got %g", b.Min)
	}
	if b.Min >= b.Max {
		return fmt.Errorf("min range %g must be below max range %g", b.Min, b.Max)
	}
	return nil
}
