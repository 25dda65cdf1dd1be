package app

import (
	"context"
	"fmt"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"time"

	"github.com/vortex-uav/depthbridge/internal/storage"
)

// Run reads a recorded session and writes the rendered range map image.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	if _, err := os.Stat(config.DBPath); err != nil && os.IsNotExist(err) {
		return fmt.Errorf("database file '%s' does not exist: %w", config.DBPath, err)
	}

	store := storage.NewSqliteStore(config.DBPath)
	defer store.Close()

	iter, err := store.ReadMaps(ctx, config.SessionID)
	if err != nil {
		return err
	}
	defer iter.Close()

	session := iter.Session()
	logger.Info("reading obstacle maps",
		slog.Int64("session", session.ID),
		slog.String("source", session.Source),
		slog.String("started", session.StartTime.Local().Format(time.DateTime)))

	data := NewMapData()
	for iter.Next(ctx) {
		data.Update(iter.Current())
	}
	if err = iter.Error(); err != nil {
		return err
	}
	if data.Height == 0 {
		return storage.ErrNoData
	}

	stats := data.Stats()
	logger.Info("finished reading obstacle maps",
		slog.Group("stats",
			slog.Int("maps", data.Height),
			slog.Int("sectors", data.Sectors),
			slog.String("start", data.TimestampStart.Local().Format(time.DateTime)),
			slog.String("end", data.TimestampEnd.Local().Format(time.DateTime)),
			slog.String("mean", fmt.Sprintf("%.2fm", stats.Mean)),
			slog.String("stddev", fmt.Sprintf("%.2fm", stats.StdDev)),
			slog.String("coverage", fmt.Sprintf("%.0f%%", stats.Coverage*100)),
		))

	renderer, err := NewMapRenderer(RenderConfig{
		ColorTheme: config.Theme,
		CellWidth:  config.CellWidth,
		CellHeight: config.CellHeight,
	})
	if err != nil {
		return fmt.Errorf("creating map renderer: %w", err)
	}

	logger.Info("rendering range map",
		slog.Group("image",
			slog.String("destination", config.OutputFile),
			slog.String("format", string(config.Format)),
			slog.String("theme", string(config.Theme)),
		))

	img, err := renderer.Render(data)
	if err != nil {
		return fmt.Errorf("rendering range map: %w", err)
	}

	out, err := os.Create(config.OutputFile)
	if err != nil {
		return err
	}
	defer out.Close()

	switch config.Format {
	case ImageJPEG:
		err = jpeg.Encode(out, img, &jpeg.Options{
			Quality: 98,
		})

	default:
		err = png.Encode(out, img)
	}
	return err
}
