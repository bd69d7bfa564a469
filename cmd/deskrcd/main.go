// Package main is the entry point for the deskrcd configuration daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmylchreest/deskrc/internal/config"
	"github.com/jmylchreest/deskrc/internal/daemon"
	"github.com/jmylchreest/deskrc/internal/dbus"
	"github.com/jmylchreest/deskrc/internal/eventloop"
	"github.com/jmylchreest/deskrc/internal/store"
)

const appName = "deskrcd"

var (
	// Build-time variables
	version = "dev"
)

// configureTimeout bounds the first configuration pass.
const configureTimeout = 10 * time.Second

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file (default: ~/.config/deskrc/config.toml)")
	statePath := flag.String("state-file", "", "Path to the runtime state file (default: ~/.local/state/deskrc/state.json)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(appName, "version", version)
		os.Exit(0)
	}

	// Set up structured logging
	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if err := run(*configPath, *statePath, logger); err != nil {
		logger.Error("deskrcd failed", "error", err)
		os.Exit(1)
	}
	logger.Info("deskrcd stopped")
}

// run owns the daemon's lifetime: every host callback, timer tick and
// reload executes on the event loop until a signal or a quit binding
// cancels the context.
func run(configPath, statePath string, logger *slog.Logger) error {
	logger.Info("starting deskrcd", "version", version)

	if configPath == "" {
		configPath = config.ConfigPath()
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if statePath == "" {
		statePath, err = store.StateFilePath()
		if err != nil {
			logger.Warn("runtime state disabled", "error", err)
			statePath = ""
		}
	}

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loop := eventloop.New(logger)
	bridge := dbus.NewBridge(loop, nil, logger)

	// Initialize D-Bus server
	server := dbus.NewServer(bridge, loop, logger)
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start D-Bus server: %w", err)
	}
	defer func() { _ = server.Stop() }()

	// Initialize internal notifier for reload results
	var notifier *daemon.InternalNotifier
	if cfg.Daemon.Notifications {
		client, err := dbus.NewNotificationClient(server.Connection(), logger)
		if err != nil {
			logger.Warn("desktop notifications unavailable", "error", err)
		} else {
			notifier = daemon.NewInternalNotifier(client, logger)
		}
	}

	d := daemon.New(cfg, daemon.Deps{
		StatePath:  statePath,
		ConfigPath: configPath,
		Notifier:   notifier,
	}, logger)

	// Initialize config watcher for hot-reload
	var configWatcher *daemon.ConfigWatcher
	if cfg.Daemon.WatchConfig {
		configWatcher = daemon.NewConfigWatcher(configPath, cfg.Daemon.Debounce.Duration(), logger)
	}
	reload := func() {
		if err := d.ReloadFromDisk(); err != nil {
			return
		}
		if configWatcher != nil {
			// The keymap path may have changed.
			if err := configWatcher.Restart(d.Config()); err != nil {
				logger.Warn("failed to restart config watcher", "error", err)
			}
		}
	}
	bridge.SetQuitHandler(stop)
	bridge.SetReloadHandler(reload)

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- loop.Run(ctx)
	}()

	configureCtx, cancel := context.WithTimeout(ctx, configureTimeout)
	var (
		configureErr error
		generation   string
	)
	err = loop.Do(configureCtx, func() {
		configureErr = d.Configure(ctx, bridge)
		generation = d.Generation()
	})
	cancel()
	if err != nil {
		return fmt.Errorf("failed to configure: %w", err)
	}
	if configureErr != nil {
		return fmt.Errorf("failed to configure: %w", configureErr)
	}

	if configWatcher != nil {
		configWatcher.SetChangeCallback(func() {
			if !loop.Post(reload) {
				logger.Debug("reload dropped: loop stopped")
			}
		})
		if err := configWatcher.Start(cfg); err != nil {
			logger.Warn("failed to start config watcher", "error", err)
		}
		defer configWatcher.Stop()
	}

	if notifier != nil {
		notifier.NotifyStartup(version)
	}
	logger.Info("deskrcd ready",
		"dbus_interface", dbus.HostInterface,
		"generation", generation,
		"state", statePath,
	)

	<-ctx.Done()
	logger.Info("shutting down")
	return <-loopErr
}
