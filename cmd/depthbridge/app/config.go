package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vortex-uav/depthbridge/internal/depth"
)

const (
	SourcePipe      = "pipe"
	SourceSynthetic = "synthetic"
)

// LogLevel is a yaml-friendly slog level name.
type LogLevel string

func (l LogLevel) Level() slog.Level {
	switch l {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l LogLevel) Validate() error {
	switch l {
	case "", "debug", "info", "warn", "error":
		return nil
	}
	return fmt.Errorf("unknown log level '%s'", l)
}

// Duration wraps time.Duration for yaml values like "500ms".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parsing duration '%s': %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config is the daemon configuration.
type Config struct {
	Settings   Settings         `yaml:"settings"`
	Camera     CameraConfig     `yaml:"camera"`
	Filters    FiltersConfig    `yaml:"filters"`
	Geometry   GeometryConfig   `yaml:"geometry"`
	Range      RangeConfig      `yaml:"range"`
	Connection ConnectionConfig `yaml:"connection"`
	Home       HomeConfig       `yaml:"home"`
	Recording  RecordingConfig  `yaml:"recording"`
	Debug      DebugConfig      `yaml:"debug"`
}

// Settings represents global application settings.
type Settings struct {
	LogLevel LogLevel `yaml:"logLevel"`
}

// CameraConfig selects and parameterizes the depth frame source.
type CameraConfig struct {
	Source       string   `yaml:"source"` // "pipe" or "synthetic"
	Command      string   `yaml:"command"`
	Args         []string `yaml:"args"`
	Width        int      `yaml:"width"`
	Height       int      `yaml:"height"`
	FPS          int      `yaml:"fps"`
	FrameTimeout Duration `yaml:"frameTimeout"`
}

// FiltersConfig enables and tunes the depth post-processing stages.
type FiltersConfig struct {
	Decimation struct {
		Enabled   bool `yaml:"enabled"`
		Magnitude int  `yaml:"magnitude"`
	} `yaml:"decimation"`
	Disparity struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"disparity"`
	Spatial struct {
		Enabled    bool    `yaml:"enabled"`
		Alpha      float64 `yaml:"alpha"`
		Delta      int     `yaml:"delta"`
		Iterations int     `yaml:"iterations"`
	} `yaml:"spatial"`
	HoleFilling struct {
		Enabled bool                  `yaml:"enabled"`
		Mode    depth.HoleFillingMode `yaml:"mode"`
	} `yaml:"holeFilling"`
}

// GeometryConfig describes the sector layout.
type GeometryConfig struct {
	Sectors int     `yaml:"sectors"`
	HFOV    float64 `yaml:"hfov"`
}

// RangeConfig bounds valid distances, in meters.
type RangeConfig struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// ConnectionConfig describes the flight controller link.
type ConnectionConfig struct {
	Target   string  `yaml:"target"`
	BaudRate int     `yaml:"baudRate"`
	UpdateHz float64 `yaml:"updateHz"`
}

// HomeConfig is the location sent on the EKF home command.
type HomeConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Latitude  float64 `yaml:"latitude"`
	Longitude float64 `yaml:"longitude"`
	Altitude  float64 `yaml:"altitude"` // meters
}

// RecordingConfig controls obstacle map recording.
type RecordingConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DataDirectory string `yaml:"dataDirectory"`
}

// DebugConfig controls the ASCII obstacle strip.
type DebugConfig struct {
	Enabled  bool     `yaml:"enabled"`
	Interval Duration `yaml:"interval"`
}

// DefaultConfig returns the configuration used when no file is provided.
// The defaults match an Intel D435 at VGA resolution bridged to ArduPilot
// over a USB serial adapter.
func DefaultConfig() *Config {
	config := &Config{}
	config.Settings.LogLevel = "info"

	config.Camera.Source = SourcePipe
	config.Camera.Command = "depth-streamer"
	config.Camera.Width = 640
	config.Camera.Height = 480
	config.Camera.FPS = 30
	config.Camera.FrameTimeout = Duration(time.Second)

	config.Filters.HoleFilling.Enabled = true
	config.Filters.HoleFilling.Mode = depth.FillFromLeft
	config.Filters.Decimation.Magnitude = 2
	config.Filters.Spatial.Alpha = 0.5
	config.Filters.Spatial.Delta = 20
	config.Filters.Spatial.Iterations = 2

	config.Geometry.Sectors = 72
	config.Geometry.HFOV = 87

	config.Range.Min = 0.1
	config.Range.Max = 8.0

	config.Connection.Target = "/dev/ttyUSB0"
	config.Connection.BaudRate = 921600
	config.Connection.UpdateHz = 15

	config.Debug.Interval = Duration(time.Second)
	return config
}

// LoadConfig reads the yaml configuration at path, layered over the
// defaults. An empty path returns the defaults unchanged.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	if err = yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}
	return config, nil
}

// Validate checks the configuration once at startup.
func (c *Config) Validate() error {
	if err := c.Settings.LogLevel.Validate(); err != nil {
		return err
	}

	switch c.Camera.Source {
	case SourcePipe:
		if c.Camera.Command == "" {
			return fmt.Errorf("camera command is required for the '%s' source", SourcePipe)
		}
	case SourceSynthetic:
	default:
		return fmt.Errorf("unknown camera source '%s'", c.Camera.Source)
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		return fmt.Errorf("camera dimensions must be positive, got %dx%d", c.Camera.Width, c.Camera.Height)
	}
	if c.Camera.FPS <= 0 {
		return fmt.Errorf("camera frame rate must be positive, got %d", c.Camera.FPS)
	}
	if c.Camera.FrameTimeout <= 0 {
		return fmt.Errorf("camera frame timeout must be positive, got %s", c.Camera.FrameTimeout.Duration())
	}

	if c.Filters.Decimation.Enabled && c.Filters.Decimation.Magnitude < 2 {
		return fmt.Errorf("decimation magnitude must be at least 2, got %d", c.Filters.Decimation.Magnitude)
	}
	if c.Filters.Spatial.Enabled {
		if c.Filters.Spatial.Alpha <= 0 || c.Filters.Spatial.Alpha > 1 {
			return fmt.Errorf("spatial alpha must be in (0, 1], got %g", c.Filters.Spatial.Alpha)
		}
		if c.Filters.Spatial.Delta <= 0 {
			return fmt.Errorf("spatial delta must be positive, got %d", c.Filters.Spatial.Delta)
		}
	}
	if c.Filters.HoleFilling.Enabled {
		if err := c.Filters.HoleFilling.Mode.Validate(); err != nil {
			return err
		}
	}

	geom := c.SectorGeometry()
	if err := geom.Validate(); err != nil {
		return err
	}
	if err := c.RangeBounds().Validate(); err != nil {
		return err
	}

	// The reduced frame must still have at least one column per sector.
	width := c.Camera.Width
	if c.Filters.Decimation.Enabled {
		width /= c.Filters.Decimation.Magnitude
	}
	if width < geom.Sectors {
		return fmt.Errorf("frame width %d is narrower than %d sectors", width, geom.Sectors)
	}

	if c.Connection.Target == "" {
		return fmt.Errorf("connection target is required")
	}
	if c.Connection.UpdateHz <= 0 {
		return fmt.Errorf("update rate must be positive, got %g", c.Connection.UpdateHz)
	}

	if c.Debug.Enabled && c.Debug.Interval <= 0 {
		return fmt.Errorf("debug interval must be positive, got %s", c.Debug.Interval.Duration())
	}
	return nil
}

// SectorGeometry returns the configured sector layout.
func (c *Config) SectorGeometry() depth.SectorGeometry {
	return depth.SectorGeometry{Sectors: c.Geometry.Sectors, HFOV: c.Geometry.HFOV}
}

// RangeBounds returns the configured distance bounds.
func (c *Config) RangeBounds() depth.RangeBounds {
	return depth.RangeBounds{Min: c.Range.Min, Max: c.Range.Max}
}

// FilterChain builds the depth post-processing chain in fixed stage order:
// decimation, then smoothing in disparity space, then hole filling.
func (c *Config) FilterChain() *depth.Chain {
	var stages []depth.Filter

	if c.Filters.Decimation.Enabled {
		stages = append(stages, &depth.Decimation{Magnitude: c.Filters.Decimation.Magnitude})
	}
	if c.Filters.Disparity.Enabled {
		stages = append(stages, &depth.DisparityTransform{ToDisparity: true})
	}
	if c.Filters.Spatial.Enabled {
		stages = append(stages, &depth.Spatial{
			Alpha:      c.Filters.Spatial.Alpha,
			Delta:      c.Filters.Spatial.Delta,
			Iterations: c.Filters.Spatial.Iterations,
		})
	}
	if c.Filters.Disparity.Enabled {
		stages = append(stages, &depth.DisparityTransform{ToDisparity: false})
	}
	if c.Filters.HoleFilling.Enabled {
		stages = append(stages, &depth.HoleFilling{Mode: c.Filters.HoleFilling.Mode})
	}
	return depth.NewChain(stages...)
}

// ReducedGeometry returns the frame dimensions after the filter chain, which
// is what the first-frame dimension check validates against.
func (c *Config) ReducedGeometry() (width, height int) {
	width, height = c.Camera.Width, c.Camera.Height
	if c.Filters.Decimation.Enabled {
		width /= c.Filters.Decimation.Magnitude
		height /= c.Filters.Decimation.Magnitude
	}
	return width, height
}
