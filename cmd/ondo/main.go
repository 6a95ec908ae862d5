// Package main is the entry point for the Ondo sensor agent.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ondo/internal/config"
	"ondo/internal/engine"
	"ondo/internal/logger"
	"ondo/internal/scheduler"
	"ondo/internal/sender"
	"ondo/internal/service"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

const startupErrorLogDir = "log/Ondo"

func main() {
	var (
		configPath  = flag.String("config", "conf/Ondo/Ondo.json", "Path to main configuration file")
		loggingPath = flag.String("logging", "conf/Ondo/Logging.json", "Path to logging configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		once        = flag.Bool("once", false, "Poll once, print the snapshot as JSON and exit")
		simulate    = flag.Bool("simulate", false, "Serve simulated readings instead of querying hardware")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s (built %s)\n", service.Name, version, buildTime)
		os.Exit(0)
	}

	// A service starts in System32; an absolute config path
	// (<base>\conf\Ondo\Ondo.json) names the install directory.
	if filepath.IsAbs(*configPath) {
		basePath := filepath.Dir(filepath.Dir(filepath.Dir(*configPath)))
		if err := os.Chdir(basePath); err != nil {
			service.ReportStartupError(service.Name, fmt.Errorf("failed to chdir to %s: %w", basePath, err))
			fmt.Fprintf(os.Stderr, "Failed to change directory to %s: %v\n", basePath, err)
			os.Exit(1)
		}
	}

	platformSvc := service.New(service.Options{})
	if platformSvc.IsService() && !*once {
		logger.SetServiceMode(true)
	}

	cfg, lc, err := config.LoadSplit(*configPath, *loggingPath)
	if err != nil {
		fail(err, "Failed to load configuration")
	}
	if *simulate {
		cfg.Sensor.Simulate = true
	}

	if err := logger.Init(*lc); err != nil {
		fail(err, "Failed to initialize logger")
	}

	log := logger.WithComponent("main")

	if *once {
		if err := pollOnce(cfg.Sensor); err != nil {
			log.Error().Err(err).Msg("Poll failed")
			fmt.Fprintf(os.Stderr, "Poll failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	log.Info().
		Str("version", version).
		Str("config", *configPath).
		Str("logging", *loggingPath).
		Msg("Starting Ondo")

	eng := engine.New(cfg.Sensor)
	svc := service.New(service.Options{
		Run: func(ctx context.Context) error {
			return run(ctx, eng, cfg, lc, *configPath, *loggingPath)
		},
		Release: eng.Shutdown,
	})

	if err := svc.Run(context.Background()); err != nil {
		log.Error().Err(err).Msg("Service exited with error")
		os.Exit(1)
	}

	log.Info().Msg("Ondo stopped")
}

func fail(err error, msg string) {
	service.ReportStartupError(service.Name, err)
	service.WriteStartupErrorFile(startupErrorLogDir, err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	os.Exit(1)
}

// pollOnce serves a single snapshot to stdout.
func pollOnce(cfg config.SensorConfig) error {
	eng := engine.New(cfg)
	defer eng.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.PollTimeout)
	defer cancel()

	snap, err := eng.Poll(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

// setupSender creates the sender. Logging.json Console is the master switch
// for echoing snapshots to the console.
func setupSender(cfg *config.Config, lc *logger.Config) (sender.Sender, error) {
	cfg.File.Console = lc.Console

	snd, err := sender.NewSender(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create sender: %w", err)
	}
	return snd, nil
}

// setupWatchers creates hot-reload watchers for Ondo.json and Logging.json.
// Returns a cleanup function that stops all started watchers.
func setupWatchers(sched *scheduler.Scheduler, snd sender.Sender, configPath, loggingPath string) func() {
	log := logger.WithComponent("main")
	var watcherMu sync.Mutex
	var cleanups []func()

	start := func(name string, w *config.FileWatcher, err error) {
		if err != nil {
			log.Warn().Err(err).Str("watcher", name).Msg("Failed to create watcher, hot reload disabled")
			return
		}
		if err := w.Start(); err != nil {
			log.Warn().Err(err).Str("watcher", name).Msg("Failed to start watcher")
			return
		}
		cleanups = append(cleanups, func() {
			if err := w.Stop(); err != nil {
				log.Error().Err(err).Str("watcher", name).Msg("Error stopping watcher")
			}
		})
	}

	// Only the poll interval is applied live; sender and helper settings need a restart.
	configWatcher, err := config.NewWatcher(configPath, func(newCfg *config.Config) {
		watcherMu.Lock()
		defer watcherMu.Unlock()

		sched.Reconfigure(newCfg.Sensor.PollInterval)
		log.Info().Dur("poll_interval", newCfg.Sensor.PollInterval).Msg("Configuration reloaded")
	})
	start("config", configWatcher, err)

	loggingWatcher, err := config.NewLoggingWatcher(loggingPath, func(newLC *logger.Config) {
		watcherMu.Lock()
		defer watcherMu.Unlock()

		if err := logger.Init(*newLC); err != nil {
			log.Error().Err(err).Msg("Failed to update logging configuration")
			return
		}
		if fs, ok := snd.(*sender.FileSender); ok {
			fs.SetConsole(newLC.Console)
		}
		log.Info().Str("level", newLC.Level).Bool("console", newLC.Console).Msg("Logging configuration updated")
	})
	start("logging", loggingWatcher, err)

	return func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
}

// run drives the scheduler until ctx is done. The service releases eng.
func run(ctx context.Context, eng *engine.Engine, cfg *config.Config, lc *logger.Config, configPath, loggingPath string) error {
	log := logger.WithComponent("main")

	snd, err := setupSender(cfg, lc)
	if err != nil {
		return err
	}
	defer func() {
		log.Info().Msg("Closing sender")
		if err := snd.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing sender")
		}
	}()

	sched := scheduler.New(eng, snd, cfg.Sensor.PollInterval, cfg.Sensor.PollTimeout, nil)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	cleanupWatchers := setupWatchers(sched, snd, configPath, loggingPath)
	defer cleanupWatchers()

	log.Info().
		Str("sender", cfg.SenderType).
		Dur("poll_interval", cfg.Sensor.PollInterval).
		Bool("simulate", cfg.Sensor.Simulate).
		Msg("Agent running")

	<-ctx.Done()
	log.Info().Msg("Received shutdown signal")
	return nil
}
