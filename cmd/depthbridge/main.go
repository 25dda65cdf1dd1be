package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/vortex-uav/depthbridge/cmd/depthbridge/app"
)

func main() {
	var logLevel slog.LevelVar
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: &logLevel}))

	var (
		configPath string
		connect    string
		baudRate   int
		updateHz   float64
	)
	flag.StringVar(&configPath, "c", "", "Path to the configuration file")
	flag.StringVar(&connect, "connect", "", "Flight controller target, overrides configuration")
	flag.IntVar(&baudRate, "baudrate", 0, "Serial baud rate, overrides configuration")
	flag.Float64Var(&updateHz, "update-hz", 0, "Telemetry update rate, overrides configuration")
	flag.Parse()

	config, err := app.LoadConfig(configPath)
	if err != nil {
		logger.Error(fmt.Sprintf("failed to load configuration file: %s", err.Error()), slog.String("path", configPath))
		os.Exit(1)
	}

	if connect != "" {
		config.Connection.Target = connect
	}
	if baudRate > 0 {
		config.Connection.BaudRate = baudRate
	}
	if updateHz > 0 {
		config.Connection.UpdateHz = updateHz
	}

	if err = config.Validate(); err != nil {
		logger.Error(fmt.Sprintf("invalid configuration: %s", err.Error()))
		os.Exit(1)
	}

	logLevel.Set(config.Settings.LogLevel.Level())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err = app.Run(ctx, config, logger); err != nil {
		logger.Error(err.Error())

		cancel()
		os.Exit(1)
	}
}
