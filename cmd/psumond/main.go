package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/psumond/internal/config"
	"codeberg.org/mutker/psumond/internal/hwaccess"
	"codeberg.org/mutker/psumond/internal/logger"
	"codeberg.org/mutker/psumond/internal/monitor"
	"codeberg.org/mutker/psumond/internal/statestore"
)

const (
	exitFailure    = 1
	exitNoHardware = 2
)

func main() {
	cfg, err := config.Load(os.Args[1:]...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(exitFailure)
	}

	logger.Init(cfg.Debug, cfg.Verbose, logger.IsService())
	if !cfg.Debug && !cfg.Verbose {
		level, err := logger.ParseLevel(cfg.LogLevel)
		if err == nil {
			logger.SetLogLevel(level)
		}
	}
	logger.Debug().Msg("Config loaded")

	hw, err := hwaccess.Acquire(cfg.PlatformPath, cfg.LegacyPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to acquire PSU hardware access")
		os.Exit(exitNoHardware)
	}
	logger.Info().
		Str("variant", hw.Variant()).
		Int("psus", hw.Count()).
		Msg("PSU hardware access acquired")

	store, err := statestore.Open(cfg.StateDB)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open state store")
		os.Exit(exitFailure)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close state store")
		}
	}()

	daemon, err := monitor.NewDaemon(monitor.New(hw, store), time.Duration(cfg.Interval)*time.Second)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize daemon")
		os.Exit(exitFailure)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := daemon.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Error in main loop")
	}
	logger.Info().Msg("Exiting...")
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
