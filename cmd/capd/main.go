// Command capd is the conversation capture daemon.
//
// It drives a Chrome instance over CDP, watches configured assistant
// pages for new conversation content, and relays normalized snapshots
// to the local ingestion service. A small admin HTTP surface toggles
// capture at runtime.
//
// Usage:
//
//	capd -config capd.yaml                    # watch pages from YAML config
//	capd -url https://claude.ai/chat/xyz789   # quick single-page watch
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dimcortex/capture/capture"
	"github.com/dimcortex/capture/control"
	"github.com/dimcortex/capture/obslog"
	"github.com/dimcortex/capture/platform"
	"github.com/dimcortex/capture/relay"
)

func main() {
	configPath := flag.String("config", "", "path to capd.yaml config file")
	singleURL := flag.String("url", "", "watch a single assistant page URL")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, *configPath, *singleURL); err != nil {
		logger.Error("capd: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, configPath, singleURL string) error {
	cfg, err := loadConfig(configPath, singleURL)
	if err != nil {
		return err
	}

	// Observability store.
	db, err := obslog.Open(cfg.Observability.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := obslog.Migrate(ctx, db); err != nil {
		return err
	}
	if err := obslog.Cleanup(ctx, db, cfg.Observability.RetentionDays); err != nil {
		logger.Warn("capd: event cleanup failed", "error", err)
	}
	events := obslog.NewLogger(db)

	// Background context: the relay client.
	client := relay.NewClient(cfg.Ingest.BaseURL,
		relay.WithLogger(logger),
		relay.WithQueueSize(cfg.Relay.QueueSize))
	go client.Run(ctx)

	// Page context: the watcher.
	state := capture.NewState(cfg.StartEnabled)
	watcher := capture.New(cfg, state, client, logger, capture.WithEvents(events))

	// Control surface.
	bus := control.NewBus(control.WithLogger(logger))
	watcher.RegisterControl(bus)
	bus.RegisterLocal(control.ServicePing, pingHandler(client))

	admin := control.NewServer(cfg.Admin.Addr, bus, logger)
	go func() {
		if err := admin.Start(); err != nil {
			logger.Error("capd: admin server failed", "error", err)
		}
	}()

	if err := watcher.Start(ctx); err != nil {
		return err
	}

	logger.Info("capd: running",
		"pages", len(cfg.Pages),
		"ingest", cfg.Ingest.BaseURL,
		"admin", cfg.Admin.Addr,
		"enabled", cfg.StartEnabled)

	<-ctx.Done()

	watcher.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := admin.Stop(shutdownCtx); err != nil {
		logger.Warn("capd: admin shutdown", "error", err)
	}
	logger.Info("capd: stopped")
	return nil
}

func loadConfig(configPath, singleURL string) (*capture.Config, error) {
	if configPath != "" {
		return capture.LoadConfigFile(configPath)
	}
	if singleURL != "" {
		cfg := &capture.Config{
			Pages:        []capture.PageConfig{{ID: "page-1", URL: singleURL}},
			StartEnabled: true,
		}
		cfg.ApplyDefaults()
		return cfg, nil
	}
	return nil, fmt.Errorf("usage: capd -config <file> | -url <url>")
}

// pingHandler bridges the control surface to the relay's diagnostic
// round trip. The bus call is synchronous; it waits for the relay
// future to settle.
func pingHandler(client *relay.Client) control.Handler {
	return func(ctx context.Context, payload []byte) ([]byte, error) {
		var msg struct {
			Text     string `json:"text"`
			Platform string `json:"platform"`
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &msg); err != nil {
				return nil, fmt.Errorf("relay_ping: unmarshal: %w", err)
			}
		}
		if msg.Text == "" {
			msg.Text = "ping"
		}

		reply := client.Relay(ctx, relay.Request{
			Kind:     relay.KindPing,
			Text:     msg.Text,
			Platform: platform.Tag(msg.Platform),
		})
		select {
		case res := <-reply:
			return json.Marshal(res)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
