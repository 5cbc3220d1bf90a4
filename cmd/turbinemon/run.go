package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"codeberg.org/mutker/turbinemon/internal/api"
	"codeberg.org/mutker/turbinemon/internal/config"
	"codeberg.org/mutker/turbinemon/internal/errors"
	"codeberg.org/mutker/turbinemon/internal/estimator"
	"codeberg.org/mutker/turbinemon/internal/logger"
	"codeberg.org/mutker/turbinemon/internal/metrics"
	"codeberg.org/mutker/turbinemon/internal/monitor"
	"codeberg.org/mutker/turbinemon/internal/pid"
	"codeberg.org/mutker/turbinemon/internal/thermo"
	"github.com/spf13/cobra"
)

func runMonitor(cmd *cobra.Command, _ []string) error {
	errFactory := errors.New()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return errFactory.Wrap(errors.ErrBindFlags, err)
	}
	pidPath, err := cmd.Flags().GetString("pid-file")
	if err != nil {
		return errFactory.Wrap(errors.ErrBindFlags, err)
	}

	cfg, err := config.Load(config.WithFlags(cmd.Flags()), config.WithConfigFile(configPath))
	if err != nil {
		return err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.Init(level, logger.IsService())
	logger.Debug().Str("config_file", cfg.ConfigFile).Msg("Config loaded")

	pidFile := pid.New(pidPath)
	if err := pidFile.Write(); err != nil {
		return err
	}
	defer func() {
		if err := pidFile.Remove(); err != nil {
			logger.Error().Err(err).Msg("Failed to remove PID file")
		}
	}()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	go handleSignals(ctx, cancel)

	return run(ctx, cfg)
}

func run(ctx context.Context, cfg *config.Config) error {
	errFactory := errors.New()
	log := logger.Default()

	est, err := estimator.New(thermo.NewIF97(), cfg.EstimatorConfig())
	if err != nil {
		return errFactory.Wrap(errors.ErrInitApp, err)
	}

	collector, err := metrics.NewService(ctx, cfg.MetricsConfig(), log.With("metrics"))
	if err != nil {
		return errFactory.Wrap(errors.ErrInitMetrics, err)
	}
	defer func() {
		if err := collector.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close metrics collector")
		}
	}()

	mon := monitor.New(cfg.MonitorConfig(), est, collector, log.With("monitor"))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if cfg.Listen != "" {
		srv := api.NewServer(mon.Status(), collector, log.With("api"))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.ListenAndServe(ctx, cfg.Listen); err != nil {
				logger.Error().Err(err).Msg("Status API stopped")
			}
		}()
	}

	err = mon.Run(ctx)
	cancel()
	wg.Wait()

	if err != nil {
		return errFactory.Wrap(errors.ErrSession, err)
	}

	logger.Info().Msg("Exiting...")
	return nil
}

func handleSignals(ctx context.Context, cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case <-sigs:
		logger.Info().Msg("Received termination signal.")
		cancel()
	case <-ctx.Done():
	}
}
