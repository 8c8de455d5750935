package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/e7canasta/frametie"
	"github.com/e7canasta/frametie/config"
	"github.com/e7canasta/frametie/internal/control"
	"github.com/e7canasta/frametie/internal/metrics"
	"github.com/e7canasta/frametie/pipeline"
)

const defaultConfigPath = "config/frametied.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Setup structured logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load configuration", "error", err, "config", *configPath)
		os.Exit(1)
	}

	// The config log level applies unless -debug forces it down
	level := parseLevel(cfg.LogLevel)
	if *debug {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	slog.Info("starting frametied",
		"config", *configPath,
		"instance", cfg.InstanceID,
		"source", cfg.Pipeline.Source.Kind,
		"sink", cfg.Pipeline.Sink.Kind,
	)

	eng, err := pipeline.New(cfg.Pipeline)
	if err != nil {
		slog.Error("failed to assemble pipeline", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		m := metrics.New(eng)
		go func() {
			if err := m.StartServer(cfg.Metrics.Listen); err != nil {
				slog.Error("metrics server failed", "error", err)
			}
		}()
		slog.Info("metrics server listening", "addr", cfg.Metrics.Listen)
	}

	// MQTT control plane
	var pub *control.Publisher
	var handler *control.Handler
	if cfg.MQTT.Enabled {
		pub = control.NewPublisher(cfg.MQTT)
		if err := pub.Connect(); err != nil {
			slog.Error("failed to connect control plane", "error", err)
			os.Exit(1)
		}
		handler = control.NewHandler(cfg.MQTT, pub.Client, control.CommandCallbacks{
			OnStart:     func() error { return eng.Start(ctx) },
			OnPause:     eng.Pause,
			OnResume:    func() error { return eng.Start(ctx) },
			OnStop:      eng.Stop,
			OnGetStatus: func() map[string]interface{} { return statusData(eng) },
		})
		if err := handler.Start(ctx); err != nil {
			slog.Error("failed to start control plane", "error", err)
			os.Exit(1)
		}
	}

	if err := eng.Start(ctx); err != nil {
		slog.Error("failed to start tie", "error", err)
		os.Exit(1)
	}
	if pub != nil {
		pub.PublishEvent("running", statusData(eng))
	}

	// Wait for a shutdown signal or a terminal engine state
	var exitErr error
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case exitErr = <-watchEngine(ctx, eng, pub):
	}

	cancel()
	if handler != nil {
		handler.Stop()
	}
	if err := eng.Stop(); err != nil {
		slog.Error("tie shutdown failed", "error", err)
	}
	if pub != nil {
		pub.PublishEvent("stopped", statusData(eng))
		pub.Disconnect()
	}

	stats := eng.Stats()
	slog.Info("frametied stopped",
		"frames_copied", stats.FramesCopied,
		"read_retries", stats.ReadRetries,
		"average_fps", stats.AverageFPS,
	)
	if exitErr != nil {
		slog.Error("tie failed", "error", exitErr)
		os.Exit(1)
	}
}

// watchEngine publishes state transitions and reports the terminal
// one. Pause/resume cycles keep the daemon alive; only Stopped (a
// fatal fault or a commanded stop) ends it.
func watchEngine(ctx context.Context, eng *frametie.Engine, pub *control.Publisher) <-chan error {
	out := make(chan error, 1)
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()

		last := eng.State()
		for {
			select {
			case <-ctx.Done():
				out <- nil
				return
			case <-ticker.C:
				state := eng.State()
				if state == last {
					continue
				}
				slog.Info("tie state changed", "from", last.String(), "to", state.String())
				if pub != nil {
					pub.PublishEvent(state.String(), statusData(eng))
				}
				last = state
				if state == frametie.StateStopped {
					out <- eng.Err()
					return
				}
			}
		}
	}()
	return out
}

// statusData builds the status payload served to get_status and
// attached to state events.
func statusData(eng *frametie.Engine) map[string]interface{} {
	stats := eng.Stats()
	data := map[string]interface{}{
		"state":         stats.State.String(),
		"mode":          eng.InputMode().String(),
		"frames_copied": stats.FramesCopied,
		"read_retries":  stats.ReadRetries,
		"reconfigures":  stats.Reconfigures,
		"average_fps":   stats.AverageFPS,
		"uptime_s":      stats.Uptime.Seconds(),
	}
	if err := eng.Err(); err != nil {
		data["last_error"] = err.Error()
	}
	return data
}

func parseLevel(s string) slog.Level {
	switch s {
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
