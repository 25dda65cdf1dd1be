package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vortex-uav/depthbridge/internal/camera"
	"github.com/vortex-uav/depthbridge/internal/debugview"
	"github.com/vortex-uav/depthbridge/internal/depth"
	"github.com/vortex-uav/depthbridge/internal/mavlink"
	"github.com/vortex-uav/depthbridge/internal/proximity"
	"github.com/vortex-uav/depthbridge/internal/storage"
)

const (
	// mapBatchSize is the number of obstacle maps stored per transaction.
	mapBatchSize = 32

	syntheticScale = 0.001
	syntheticDepth = 2.0
)

// Run wires the pipeline and blocks until ctx is canceled or a fatal error
// occurs.
func Run(ctx context.Context, config *Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	source, err := createSource(ctx, config, logger)
	if err != nil {
		return fmt.Errorf("creating depth source: %w", err)
	}
	defer source.Close()

	client, err := mavlink.Dial(mavlink.Config{
		Target:   config.Connection.Target,
		BaudRate: config.Connection.BaudRate,
		SystemID: 1,
	}, mavlink.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("connecting to flight controller: %w", err)
	}
	defer client.Close()

	var recorder *mapRecorder
	if config.Recording.Enabled {
		if recorder, err = newMapRecorder(ctx, config, logger); err != nil {
			return fmt.Errorf("creating recorder: %w", err)
		}
		defer recorder.Close()
	}

	geom := config.SectorGeometry()
	bounds := config.RangeBounds()
	latest := proximity.NewLatest(geom.Sectors)

	var announced atomic.Bool
	emit := func(snap proximity.Snapshot) {
		if !client.Connected() {
			return
		}
		if announced.CompareAndSwap(false, true) {
			if err := client.SendStatusText("obstacle stream active"); err != nil {
				logger.Warn(fmt.Sprintf("sending status text: %s", err.Error()))
			}
		}

		if err := client.SendObstacleDistance(proximity.ObstacleDistance(snap, geom, bounds)); err != nil {
			logger.Warn(fmt.Sprintf("sending obstacle distance: %s", err.Error()))
		}
		if err := client.SendDistanceSensor(proximity.DistanceSensor(snap)); err != nil {
			logger.Warn(fmt.Sprintf("sending distance sensor: %s", err.Error()))
		}
	}

	scheduler, err := proximity.NewScheduler(latest, config.Connection.UpdateHz, emit)
	if err != nil {
		return fmt.Errorf("creating scheduler: %w", err)
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error(fmt.Sprintf("scheduler stopped: %s", err.Error()))
		}
	}()

	if config.Debug.Enabled {
		viewer, err := debugview.NewViewer(latest, bounds,
			1/config.Debug.Interval.Duration().Seconds(), debugview.WithLogger(logger))
		if err != nil {
			return fmt.Errorf("creating debug viewer: %w", err)
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = viewer.Run(ctx)
		}()
	}

	// Stdin is a tiny command surface for field use: an empty line sets the
	// EKF home. The goroutine is not joined because a blocked stdin read
	// cannot be interrupted; it dies with the process.
	go handleStdin(config, client, logger)

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := acquisitionLoop(ctx, config, source, latest, recorder, logger); err != nil {
			logger.Error(fmt.Sprintf("acquisition stopped: %s", err.Error()))
			cancel()
		}
	}()

	wg.Wait()
	return nil
}

func createSource(ctx context.Context, config *Config, logger *slog.Logger) (camera.Source, error) {
	switch config.Camera.Source {
	case SourceSynthetic:
		return camera.NewSyntheticSource(camera.SyntheticConfig{
			Width:  config.Camera.Width,
			Height: config.Camera.Height,
			Scale:  syntheticScale,
			FPS:    config.Camera.FPS,
			Scene:  camera.SceneSweep,
			Depth:  syntheticDepth,
		})

	default:
		source := camera.NewPipeSource(config.Camera.Command, config.Camera.Args,
			camera.WithLogger(logger),
			camera.WithFrameTimeout(config.Camera.FrameTimeout.Duration()))
		if err := source.Start(ctx); err != nil {
			return nil, err
		}
		return source, nil
	}
}

// acquisitionLoop pulls frames, filters and reduces them, and publishes the
// resulting sector map. A frame timeout skips the cycle; any other source
// error is fatal and shuts the daemon down.
func acquisitionLoop(ctx context.Context, config *Config, source camera.Source,
	latest *proximity.Latest, recorder *mapRecorder, logger *slog.Logger) error {

	chain := config.FilterChain()
	geom := config.SectorGeometry()
	bounds := config.RangeBounds()
	expectWidth, expectHeight := config.ReducedGeometry()

	distances := make([]uint16, geom.Sectors)
	firstFrame := true

	for {
		if ctx.Err() != nil {
			return nil
		}

		im, err := source.Next(ctx)
		switch {
		case errors.Is(err, camera.ErrFrameTimeout):
			logger.Warn("no depth frame, skipping cycle")
			continue
		case errors.Is(err, context.Canceled):
			return nil
		case err != nil:
			return fmt.Errorf("reading depth frame: %w", err)
		}

		im = chain.Process(im)

		if firstFrame {
			if err := im.CheckDimensions(expectWidth, expectHeight); err != nil {
				return fmt.Errorf("depth stream does not match configuration: %w", err)
			}
			logger.Info("depth pipeline running",
				slog.Int("width", im.Width),
				slog.Int("height", im.Height),
				slog.String("filters", strings.Join(chain.Stages(), ",")))
			firstFrame = false
		}

		depth.Reduce(im, bounds, geom, distances)
		latest.Publish(distances, im.TimestampUS)

		if recorder != nil {
			recorder.Record(ctx, distances, im.TimestampUS, geom, bounds)
		}
	}
}

func handleStdin(config *Config, client *mavlink.Client, logger *slog.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			logger.Info(fmt.Sprintf("unknown command '%s', press Enter to set EKF home", line))
			continue
		}

		if !config.Home.Enabled {
			logger.Warn("EKF home is not configured")
			continue
		}
		if !client.Connected() {
			logger.Warn("flight controller not connected, cannot set EKF home")
			continue
		}

		if err := client.SendStatusText("setting EKF home"); err != nil {
			logger.Warn(fmt.Sprintf("sending status text: %s", err.Error()))
		}

		err := client.SetHomePosition(
			int32(math.Round(config.Home.Latitude*1e7)),
			int32(math.Round(config.Home.Longitude*1e7)),
			int32(math.Round(config.Home.Altitude*1e3)),
		)
		if err != nil {
			logger.Error(fmt.Sprintf("setting EKF home: %s", err.Error()))
			continue
		}
		logger.Info("EKF home set",
			slog.Float64("latitude", config.Home.Latitude),
			slog.Float64("longitude", config.Home.Longitude))
	}
}

// mapRecorder buffers published obstacle maps and stores them in batches.
type mapRecorder struct {
	store     *storage.SqliteStore
	sessionID int64
	logger    *slog.Logger

	pending []*storage.ObstacleMap
}

func newMapRecorder(ctx context.Context, config *Config, logger *slog.Logger) (*mapRecorder, error) {
	dir := config.Recording.DataDirectory
	if dir == "" {
		dir = "data"
	}
	stat, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("recording directory '%s': %w", dir, err)
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("recording path '%s' is not a directory", dir)
	}

	dbPath := filepath.Join(dir, fmt.Sprintf("depthbridge_session_%s.sqlite", time.Now().UTC().Format("20060102_150405")))
	store := storage.NewSqliteStore(dbPath)

	sessionID, err := store.CreateSession(ctx, config.Camera.Source, config)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("creating session: %w", err)
	}

	logger.Info("recording obstacle maps",
		slog.String("path", dbPath),
		slog.Int64("session", sessionID))

	return &mapRecorder{
		store:     store,
		sessionID: sessionID,
		logger:    logger,
		pending:   make([]*storage.ObstacleMap, 0, mapBatchSize),
	}, nil
}

// Record buffers one map. Called from the acquisition loop only.
func (r *mapRecorder) Record(ctx context.Context, distances []uint16, timestampUS int64,
	geom depth.SectorGeometry, bounds depth.RangeBounds) {

	m := &storage.ObstacleMap{
		SessionID:   r.sessionID,
		TimestampUS: timestampUS,
		Distances:   append([]uint16(nil), distances...),
		MinCM:       bounds.MinCM(),
		MaxCM:       bounds.MaxCM(),
		IncrementF:  float32(geom.Increment()),
		AngleOffset: float32(geom.AngleOffset()),
	}

	r.pending = append(r.pending, m)
	if len(r.pending) < mapBatchSize {
		return
	}
	r.flush(ctx)
}

func (r *mapRecorder) flush(ctx context.Context) {
	if len(r.pending) == 0 {
		return
	}
	if err := r.store.StoreMaps(ctx, r.sessionID, r.pending); err != nil {
		r.logger.Error(fmt.Sprintf("storing obstacle maps: %s", err.Error()))
	}
	r.pending = r.pending[:0]
}

func (r *mapRecorder) Close() error {
	r.flush(context.Background())
	return r.store.Close()
}
