package app

import (
	"image/color"
	"math"
)

// ColorTheme selects the proximity color scheme:
// - ClassicTheme: blue (far) to red (near)
// - GrayscaleTheme: black (far) to white (near)
// - ThermalTheme: black through red and yellow to white
type ColorTheme string

const (
	ClassicTheme   ColorTheme = "classic"
	GrayscaleTheme ColorTheme = "grayscale"
	ThermalTheme   ColorTheme = "thermal"

	DefaultColorMapSize = 256
)

// noDataColor marks sectors without a valid reading.
var noDataColor = color.Black

// ColorMapper maps sector distances to colors through a pre-computed table.
// Near obstacles get the hot end of the theme.
type ColorMapper struct {
	colorMap   []color.Color
	themeName  ColorTheme
	size       int
	minCM      float64
	maxCM      float64
	cmPerIndex float64
}

// NewColorMapper creates a mapper for distances within [minCM, maxCM].
func NewColorMapper(theme ColorTheme, minCM, maxCM uint16) *ColorMapper {
	return NewColorMapperWithSize(theme, minCM, maxCM, DefaultColorMapSize)
}

// NewColorMapperWithSize creates a mapper with an explicit table size.
func NewColorMapperWithSize(theme ColorTheme, minCM, maxCM uint16, size int) *ColorMapper {
	if size <= 0 {
		size = DefaultColorMapSize
	}

	cm := &ColorMapper{
		colorMap:   make([]color.Color, size),
		themeName:  theme,
		size:       size,
		minCM:      float64(minCM),
		maxCM:      float64(maxCM),
		cmPerIndex: float64(maxCM-minCM) / float64(size-1),
	}

	themeFn := getColorTheme(theme)
	for i := 0; i < size; i++ {
		// Index zero is the nearest distance, which renders hottest.
		proximity := 1 - float64(i)/float64(size-1)
		cm.colorMap[i] = themeFn(proximity)
	}
	return cm
}

// GetColor returns the color for a sector distance in centimeters. Readings
// outside the mapped range count as no data.
func (cm *ColorMapper) GetColor(distanceCM uint16) color.Color {
	d := float64(distanceCM)
	if d < cm.minCM || d > cm.maxCM {
		return noDataColor
	}
	index := int((d - cm.minCM) / cm.cmPerIndex)
	if index >= cm.size {
		index = cm.size - 1
	}
	return cm.colorMap[index]
}

// ThemeName returns the current color theme name.
func (cm *ColorMapper) ThemeName() ColorTheme {
	return cm.themeName
}

// HSV represents a color in HSV (Hue, Saturation, Value) color space.
type HSV struct {
	H float64 // Hue angle in degrees [0-360]
	S float64 // Saturation [0-1]
	V float64 // Value/Brightness [0-1]
}

// RGB converts HSV to RGB color space.
func (hsv HSV) RGB() color.Color {
	if hsv.S <= 0.0 {
		v := uint8(hsv.V * 255)
		return color.RGBA{R: v, G: v, B: v, A: 255}
	}

	h := hsv.H
	if h >= 360 {
		h -= 360
	}
	h /= 60

	i := int(h)
	f := h - float64(i)

	v := uint8(hsv.V * 255)
	p := uint8((hsv.V * (1 - hsv.S)) * 255)
	q := uint8((hsv.V * (1 - (hsv.S * f))) * 255)
	t := uint8((hsv.V * (1 - (hsv.S * (1 - f)))) * 255)

	switch i {
	case 0:
		return color.RGBA{R: v, G: t, B: p, A: 255}
	case 1:
		return color.RGBA{R: q, G: v, B: p, A: 255}
	case 2:
		return color.RGBA{R: p, G: v, B: t, A: 255}
	case 3:
		return color.RGBA{R: p, G: q, B: v, A: 255}
	case 4:
		return color.RGBA{R: t, G: p, B: v, A: 255}
	default: // case 5:
		return color.RGBA{R: v, G: p, B: q, A: 255}
	}
}

// getColorTheme returns a function mapping normalized proximity [0-1]
// (1 = nearest) to a color.
func getColorTheme(theme ColorTheme) func(float64) color.Color {
	switch theme {
	case ClassicTheme:
		return func(proximity float64) color.Color {
			return HSV{
				H: 240 - (proximity * 240),
				S: 0.9 + (proximity * 0.1),
				V: 0.3 + (math.Pow(proximity, 0.7) * 0.7),
			}.RGB()
		}

	case GrayscaleTheme:
		return func(proximity float64) color.Color {
			v := uint8(math.Pow(proximity, 0.7) * 255)
			return color.RGBA{R: v, G: v, B: v, A: 255}
		}

	default: // ThermalTheme
		return func(proximity float64) color.Color {
			proximity = math.Max(0, math.Min(1, proximity))
			if proximity < 0.33 {
				return color.RGBA{
					R: uint8((proximity * 3) * 255),
					A: 255,
				}
			}
			if proximity < 0.66 {
				return color.RGBA{
					R: 255,
					G: uint8(((proximity - 0.33) * 3) * 255),
					A: 255,
				}
			}
			return color.RGBA{
				R: 255,
				G: 255,
				B: uint8(((proximity - 0.66) * 3) * 255),
				A: 255,
			}
		}
	}
}
