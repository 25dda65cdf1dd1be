package app

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	dpi            = 120.0
	fontSize       = 12.0
	tickMarkHeight = 5
	pixelsPerLabel = 100.0

	// Default border sizes in pixels
	defaultTopBorder    = 40
	defaultLeftBorder   = 80
	defaultBottomBorder = 40
	defaultRightBorder  = 40

	defaultTimeFormat     = "15:04:05"
	defaultDatetimeFormat = time.DateTime
)

// BorderConfig defines the sizes of white space around the map.
type BorderConfig struct {
	Top    int // Space for the sector angle scale
	Left   int // Space for the time scale
	Bottom int // Space for the information bar
	Right  int // Right padding
}

// RenderConfig holds configuration options for map visualization.
type RenderConfig struct {
	TimeFormat     string
	DatetimeFormat string
	Location       *time.Location

	FontSize   float64
	ColorTheme ColorTheme

	CellWidth  int // pixels per sector column
	CellHeight int // pixels per map row

	BorderConfig BorderConfig
}

// MapRenderer draws an accumulated session grid as an annotated image.
type MapRenderer struct {
	colorMap *ColorMapper
	config   RenderConfig
}

// NewMapRenderer creates a renderer with the given configuration.
func NewMapRenderer(config RenderConfig) (*MapRenderer, error) {
	if config.TimeFormat == "" {
		config.TimeFormat = defaultTimeFormat
	}
	if config.DatetimeFormat == "" {
		config.DatetimeFormat = defaultDatetimeFormat
	}
	if config.Location == nil {
		config.Location = time.Local
	}
	if config.FontSize == 0 {
		config.FontSize = fontSize
	}
	if config.CellWidth <= 0 {
		config.CellWidth = 8
	}
	if config.CellHeight <= 0 {
		config.CellHeight = 1
	}
	if config.BorderConfig.Top == 0 {
		config.BorderConfig.Top = defaultTopBorder
	}
	if config.BorderConfig.Left == 0 {
		config.BorderConfig.Left = defaultLeftBorder
	}
	if config.BorderConfig.Bottom == 0 {
		config.BorderConfig.Bottom = defaultBottomBorder
	}
	if config.BorderConfig.Right == 0 {
		config.BorderConfig.Right = defaultRightBorder
	}

	return &MapRenderer{config: config}, nil
}

// Render creates an image of the session grid with annotations.
func (r *MapRenderer) Render(data *MapData) (*image.RGBA, error) {
	mapWidth := data.Sectors * r.config.CellWidth
	mapHeight := data.Height * r.config.CellHeight

	fullWidth := mapWidth + r.config.BorderConfig.Left + r.config.BorderConfig.Right
	fullHeight := mapHeight + r.config.BorderConfig.Top + r.config.BorderConfig.Bottom
	img := image.NewRGBA(image.Rect(0, 0, fullWidth, fullHeight))

	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	mapArea := image.Rect(
		r.config.BorderConfig.Left,
		r.config.BorderConfig.Top,
		r.config.BorderConfig.Left+mapWidth,
		r.config.BorderConfig.Top+mapHeight,
	)

	if r.colorMap == nil {
		r.colorMap = NewColorMapper(r.config.ColorTheme, data.MinCM, data.MaxCM)
	}

	ann, err := newAnnotator(annotatorConfig{
		TimeFormat:     r.config.TimeFormat,
		DatetimeFormat: r.config.DatetimeFormat,
		Location:       r.config.Location,
		FontSize:       r.config.FontSize,
		CellWidth:      r.config.CellWidth,
		CellHeight:     r.config.CellHeight,
		Borders:        r.config.BorderConfig,
	})
	if err != nil {
		return nil, fmt.Errorf("creating annotator: %w", err)
	}
	defer ann.Close()

	if err = ann.annotate(img, data); err != nil {
		return nil, fmt.Errorf("drawing annotations: %w", err)
	}

	r.renderMap(img, mapArea, data)

	return img, nil
}

// renderMap draws the session grid using the color map, one cell per
// sector per map.
func (r *MapRenderer) renderMap(img *image.RGBA, area image.Rectangle, data *MapData) {
	for row, distances := range data.Rows {
		for sector, d := range distances {
			c := r.colorMap.GetColor(d)
			for dy := 0; dy < r.config.CellHeight; dy++ {
				imgY := area.Min.Y + row*r.config.CellHeight + dy
				for dx := 0; dx < r.config.CellWidth; dx++ {
					img.Set(area.Min.X+sector*r.config.CellWidth+dx, imgY, c)
				}
			}
		}
	}
}

type annotatorConfig struct {
	TimeFormat     string
	DatetimeFormat string
	Location       *time.Location
	FontSize       float64
	CellWidth      int
	CellHeight     int
	Borders        BorderConfig
}

type annotator struct {
	context  *freetype.Context
	config   annotatorConfig
	fontFace font.Face
}

func newAnnotator(config annotatorConfig) (*annotator, error) {
	parsedFont, err := freetype.ParseFont(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}

	ctx := freetype.NewContext()
	ctx.SetDPI(dpi)
	ctx.SetFont(parsedFont)
	ctx.SetFontSize(config.FontSize)
	ctx.SetHinting(font.HintingNone)
	ctx.SetSrc(image.Black)

	return &annotator{
		context: ctx,
		config:  config,
		fontFace: truetype.NewFace(parsedFont, &truetype.Options{
			Size:    config.FontSize,
			DPI:     dpi,
			Hinting: font.HintingNone,
		}),
	}, nil
}

func (a *annotator) Close() error {
	if a.fontFace != nil {
		return a.fontFace.Close()
	}
	return nil
}

func (a *annotator) annotate(img *image.RGBA, data *MapData) error {
	a.context.SetClip(img.Bounds())
	a.context.SetDst(img)

	if err := a.drawAngleScale(img, data); err != nil {
		return fmt.Errorf("drawing angle scale: %w", err)
	}
	if err := a.drawTimeScale(img, data); err != nil {
		return fmt.Errorf("drawing time scale: %w", err)
	}
	if err := a.drawInfoBar(img, data); err != nil {
		return fmt.Errorf("drawing info bar: %w", err)
	}

	return nil
}

// drawAngleScale labels sector headings in degrees relative to the vehicle
// nose across the top border.
func (a *annotator) drawAngleScale(img *image.RGBA, data *MapData) error {
	mapWidth := data.Sectors * a.config.CellWidth
	sectorsPerLabel := max(1, int(pixelsPerLabel)/a.config.CellWidth)

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := a.config.Borders.Top - fontHeight/2

	for sector := 0; sector < data.Sectors; sector += sectorsPerLabel {
		x := a.config.Borders.Left + sector*a.config.CellWidth + a.config.CellWidth/2
		if x > a.config.Borders.Left+mapWidth {
			break
		}

		for y := a.config.Borders.Top - tickMarkHeight; y < a.config.Borders.Top; y++ {
			img.Set(x, y, color.Black)
		}

		angle := float64(data.AngleOffset) + float64(sector)*float64(data.IncrementF)
		label := fmt.Sprintf("%+.0f°", angle)
		width := font.MeasureString(a.fontFace, label)
		pt := freetype.Pt(x-(width.Round()/2), textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing angle label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawTimeScale(img *image.RGBA, data *MapData) error {
	mapHeight := data.Height * a.config.CellHeight
	if data.Height < 2 {
		return nil
	}

	duration := data.TimestampEnd.Sub(data.TimestampStart)
	rowsPerSecond := float64(data.Height) / max(duration.Seconds(), 1)
	timeStep := calculateNiceTimeStep(duration)

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()

	for t := time.Duration(0); t <= duration; t += timeStep {
		imgY := a.config.Borders.Top + int(t.Seconds()*rowsPerSecond*float64(a.config.CellHeight))
		if imgY > a.config.Borders.Top+mapHeight {
			break
		}

		for x := a.config.Borders.Left - tickMarkHeight; x < a.config.Borders.Left; x++ {
			img.Set(x, imgY, color.Black)
		}

		textY := imgY + fontHeight/2 - metrics.Descent.Round()
		label := data.TimestampStart.Add(t).In(a.config.Location).Format(a.config.TimeFormat)
		pt := freetype.Pt(10, textY)
		if _, err := a.context.DrawString(label, pt); err != nil {
			return fmt.Errorf("drawing time label: %w", err)
		}
	}
	return nil
}

func (a *annotator) drawInfoBar(img *image.RGBA, data *MapData) error {
	stats := data.Stats()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Range: %s - %s", formatDistance(data.MinCM), formatDistance(data.MaxCM)))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("Time: %s - %s",
		data.TimestampStart.In(a.config.Location).Format(a.config.DatetimeFormat),
		data.TimestampEnd.In(a.config.Location).Format(a.config.DatetimeFormat)))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("%s maps", humanize.Comma(int64(data.Height))))
	sb.WriteString("; ")
	sb.WriteString(fmt.Sprintf("mean %.1fm ± %.1fm, %.0f%% coverage",
		stats.Mean, stats.StdDev, stats.Coverage*100))

	metrics := a.fontFace.Metrics()
	fontHeight := (metrics.Ascent + metrics.Descent).Round()
	textY := img.Bounds().Max.Y - (a.config.Borders.Bottom-fontHeight)/2 - metrics.Descent.Round()

	pt := freetype.Pt(a.config.Borders.Left, textY)
	if _, err := a.context.DrawString(sb.String(), pt); err != nil {
		return fmt.Errorf("drawing info text: %w", err)
	}

	return nil
}

func formatDistance(cm uint16) string {
	if cm >= 100 {
		return fmt.Sprintf("%.1fm", float64(cm)/100)
	}
	return fmt.Sprintf("%dcm", cm)
}

func calculateNiceTimeStep(duration time.Duration) time.Duration {
	seconds := duration.Seconds()
	roughStep := seconds / 8 // aim for about 8 time labels

	niceIntervals := []float64{
		1,    // 1 second
		5,    // 5 seconds
		10,   // 10 seconds
		30,   // 30 seconds
		60,   // 1 minute
		300,  // 5 minutes
		600,  // 10 minutes
		1800, // 30 minutes
		3600, // 1 hour
	}

	for _, interval := range niceIntervals {
		if roughStep <= interval {
			return time.Duration(interval) * time.Second
		}
	}

	return 2 * time.Hour
}
