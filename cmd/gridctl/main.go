package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/solarhome/gridctl/config"
	"github.com/solarhome/gridctl/engine"
	"github.com/solarhome/gridctl/livefeed"
	"github.com/solarhome/gridctl/statusapi"
	"github.com/solarhome/gridctl/store"
	"github.com/solarhome/gridctl/telemetry"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	var configFilePath string
	flag.StringVar(&configFilePath, "f", "./config.json", "Specify config file path")
	flag.Parse()

	slog.Info("Starting", "config_file", configFilePath)

	cfg, err := config.Read(configFilePath)
	if err != nil {
		slog.Error("Failed to read config", "error", err)
		return
	}

	st, err := store.New(cfg.StorePath)
	if err != nil {
		slog.Error("Failed to open persistent store", "error", err)
		return
	}

	eng, err := engine.New(cfg, st)
	if err != nil {
		slog.Error("Failed to load engine state", "error", err)
		return
	}

	var hub *livefeed.Hub
	if cfg.LiveFeedAddr != "" {
		hub = livefeed.NewHub()
		go func() {
			slog.Info("Live feed listening", "addr", cfg.LiveFeedAddr)
			if err := http.ListenAndServe(cfg.LiveFeedAddr, hub); err != nil {
				slog.Error("Live feed server stopped", "error", err)
			}
		}()
	}

	if cfg.StatusAPIAddr != "" {
		router := statusapi.NewRouter(eng)
		go func() {
			slog.Info("Status API listening", "addr", cfg.StatusAPIAddr)
			if err := http.ListenAndServe(cfg.StatusAPIAddr, router); err != nil {
				slog.Error("Status API server stopped", "error", err)
			}
		}()
	}

	source := telemetry.NewRandomWalkSource(1)

	period := time.Duration(cfg.TickPeriodSeconds * float64(time.Second))
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt)

	slog.Info("Controller running", "tick_period", period)
	for {
		select {
		case <-signalChan:
			slog.Info("Exiting")
			return

		case <-ticker.C:
			input, err := source.Read()
			if err != nil {
				slog.Error("Failed to read telemetry", "error", err)
				continue
			}

			cmd, err := eng.Tick(input)
			if err != nil {
				slog.Error("Tick failed", "error", err)
				continue
			}

			slog.Debug("Tick complete", "state", cmd.CurrentState, "reason", cmd.Debug.StateReason)
			if hub != nil {
				hub.Publish(cmd)
			}
		}
	}
}
