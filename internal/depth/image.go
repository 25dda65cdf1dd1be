package depth

import "fmt"

// Image is a single depth frame: a row-major grid of raw range samples plus
// the scale that converts a raw sample to meters. A zero sample means the
// sensor produced no reading for that pixel.
type Image struct {
	Width, Height int
	Scale         float64  // meters per raw unit
	TimestampUS   int64    // capture time, microseconds
	Samples       []uint16 // len == Width*Height, row-major
}

// NewImage allocates a blank frame with the given dimensions.
func NewImage(width, height int, scale float64) *Image {
	return &Image{
		Width:   width,
		Height:  height,
		Scale:   scale,
		Samples: make([]uint16, width*height),
	}
}

// At returns the raw sample at column x, row y. No bounds checking beyond
// the slice's own.
func (im *Image) At(x, y int) uint16 {
	return im.Samples[y*im.Width+x]
}

// Set writes the raw sample at column x, row y.
func (im *Image) Set(x, y int, v uint16) {
	im.Samples[y*im.Width+x] = v
}

// Row returns the row-major slice for row y.
func (im *Image) Row(y int) []uint16 {
	return im.Samples[y*im.Width : (y+1)*im.Width]
}

// CheckDimensions verifies the frame matches the configured geometry.
// A mismatch is a configuration fault, not a per-frame condition.
func (im *Image) CheckDimensions(width, height int) error {
	if im.Width != width || im.Height != height {
		return fmt.Errorf("frame is %dx%d, configured geometry expects %dx%d",
			im.Width, im.Height, width, height)
	}
	if len(im.Samples) != im.Width*im.Height {
		return fmt.Errorf("frame buffer holds %d samples, expected %d",
			len(im.Samples), im.Width*im.Height)
	}
	return nil
}
