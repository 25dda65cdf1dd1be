package depth

import "math"

// Reduce folds a depth frame into a per-sector minimum-range array.
//
// Each sector is the mean of the raw samples across its pixel column span on
// the image's horizontal center row, converted to meters through the frame's
// depth scale. In-range distances become centimeters rounded to the nearest
// integer; anything at or below zero, or outside the configured bounds,
// becomes the sentinel value maxCM+1.
//
// The function is pure: identical frame and configuration always produce a
// bit-identical result, and no state is retained across calls. out must hold
// exactly geom.Sectors entries and is overwritten in full.
func Reduce(im *Image, bounds RangeBounds, geom SectorGeometry, out []uint16) {
	row := im.Row(im.Height / 2)
	sentinel := bounds.SentinelCM()

	for i := 0; i < geom.Sectors; i++ {
		lo, hi := geom.columnSpan(i, im.Width)

		var sum uint64
		for x := lo; x < hi; x++ {
			sum += uint64(row[x])
		}
		mean := float64(sum) / float64(hi-lo)
		distM := mean * im.Scale

		if distM <= 0 || distM < bounds.Min || distM > bounds.Max {
			out[i] = sentinel
		} else {
			out[i] = uint16(math.Round(distM * 100))
		}
	}
}
