package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
settings:
  logLevel: debug
camera:
  source: synthetic
  width: 424
  height: 240
  frameTimeout: 500ms
connection:
  target: udp://127.0.0.1:14550
  updateHz: 10
`), 0o644))

	config, err := LoadConfig(path)
	require.NoError(t, err)
	require.NoError(t, config.Validate())

	assert.Equal(t, LogLevel("debug"), config.Settings.LogLevel)
	assert.Equal(t, SourceSynthetic, config.Camera.Source)
	assert.Equal(t, 424, config.Camera.Width)
	assert.Equal(t, 500*time.Millisecond, config.Camera.FrameTimeout.Duration())
	assert.Equal(t, "udp://127.0.0.1:14550", config.Connection.Target)
	assert.Equal(t, 10.0, config.Connection.UpdateHz)

	// Untouched sections keep their defaults.
	assert.Equal(t, 72, config.Geometry.Sectors)
	assert.Equal(t, 921600, config.Connection.BaudRate)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mangle func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Settings.LogLevel = "verbose" }},
		{"unknown source", func(c *Config) { c.Camera.Source = "realsense" }},
		{"pipe without command", func(c *Config) { c.Camera.Command = "" }},
		{"zero fps", func(c *Config) { c.Camera.FPS = 0 }},
		{"zero sectors", func(c *Config) { c.Geometry.Sectors = 0 }},
		{"inverted range", func(c *Config) { c.Range.Min, c.Range.Max = 8, 0.1 }},
		{"small decimation", func(c *Config) {
			c.Filters.Decimation.Enabled = true
			c.Filters.Decimation.Magnitude = 1
		}},
		{"bad spatial alpha", func(c *Config) {
			c.Filters.Spatial.Enabled = true
			c.Filters.Spatial.Alpha = 1.5
		}},
		{"bad hole filling mode", func(c *Config) { c.Filters.HoleFilling.Mode = "extrapolate" }},
		{"empty target", func(c *Config) { c.Connection.Target = "" }},
		{"zero update rate", func(c *Config) { c.Connection.UpdateHz = 0 }},
		{"too narrow after decimation", func(c *Config) {
			c.Filters.Decimation.Enabled = true
			c.Filters.Decimation.Magnitude = 16
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := DefaultConfig()
			tc.mangle(config)
			assert.Error(t, config.Validate())
		})
	}
}

func TestFilterChainStageOrder(t *testing.T) {
	config := DefaultConfig()
	config.Filters.Decimation.Enabled = true
	config.Filters.Disparity.Enabled = true
	config.Filters.Spatial.Enabled = true

	chain := config.FilterChain()
	assert.Equal(t, []string{
		"decimation",
		"depth-to-disparity",
		"spatial",
		"disparity-to-depth",
		"hole-filling",
	}, chain.Stages())
}

func TestReducedGeometry(t *testing.T) {
	config := DefaultConfig()
	config.Filters.Decimation.Enabled = true
	config.Filters.Decimation.Magnitude = 2

	width, height := config.ReducedGeometry()
	assert.Equal(t, 320, width)
	assert.Equal(t, 240, height)
}
