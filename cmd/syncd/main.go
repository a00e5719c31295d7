package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/opsboard/fleet-sync/internal/config"
	"github.com/opsboard/fleet-sync/internal/database"
	"github.com/opsboard/fleet-sync/internal/realtime"
	"github.com/opsboard/fleet-sync/internal/recorder"
	"github.com/opsboard/fleet-sync/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/syncd.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting syncd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"ws_url", cfg.Realtime.WSURL,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Journal database, only when the recorder is on
	var pool *pgxpool.Pool
	if cfg.Recorder.Enabled {
		logger.Info("connecting to journal database",
			"host", cfg.Database.Journal.Host,
			"port", cfg.Database.Journal.Port,
			"database", cfg.Database.Journal.Name,
		)
		pool, err = database.Connect(ctx, cfg.Database.Journal)
		if err != nil {
			logger.Error("failed to connect to journal database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		logger.Info("journal database connected")
	}

	// Sync service
	svc := realtime.NewService(realtime.Config{
		URL:                cfg.Realtime.WSURL,
		Token:              cfg.Realtime.Token,
		ReconnectBaseDelay: cfg.Realtime.ReconnectBaseDelay,
		ReconnectMaxDelay:  cfg.Realtime.ReconnectMaxDelay,
		HeartbeatInterval:  cfg.Realtime.HeartbeatInterval,
		MaxQueueSize:       cfg.Realtime.MaxQueueSize,
		WriteTimeout:       cfg.Realtime.WriteTimeout,
		HandshakeTimeout:   cfg.Realtime.HandshakeTimeout,
		ReceiveBufferSize:  cfg.Realtime.ReceiveBufferSize,
	}, realtime.WithLogger(logger.With("component", "realtime")))

	// Recorder
	var rec *recorder.Recorder
	if cfg.Recorder.Enabled {
		rec = recorder.NewRecorder(recorder.Config{
			BatchSize:     cfg.Recorder.BatchSize,
			FlushInterval: cfg.Recorder.FlushInterval,
		}, svc.Events(), pool, logger.With("component", "recorder"))
		if err := rec.Start(ctx); err != nil {
			logger.Error("failed to start recorder", "error", err)
			os.Exit(1)
		}
	}

	// Configured subscriptions, registered before the first connect so
	// the initial replay establishes them
	for _, sub := range cfg.Realtime.Subscriptions {
		svc.Subscribe(sub.Entity, sub.ID)
	}

	svc.Connect()

	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(cfg.Health.Path, svc, pool),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting health server", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		logger.Info("shutting down...")
		svc.Disconnect()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if rec != nil {
			rec.Stop(shutdownCtx)
		}
		healthServer.Shutdown(shutdownCtx)
		return nil
	})

	logger.Info("syncd running",
		"instance_id", cfg.Instance.ID,
		"health_url", fmt.Sprintf("http://localhost:%d%s", cfg.Health.Port, cfg.Health.Path),
	)

	if err := g.Wait(); err != nil {
		logger.Error("syncd exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("syncd stopped")
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(path string, svc *realtime.Service, pool *pgxpool.Pool) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := svc.Status()

		health := struct {
			Status     string          `json:"status"`
			Realtime   realtime.Status `json:"realtime"`
			Components map[string]any  `json:"components"`
		}{
			Status:     "healthy",
			Realtime:   status,
			Components: make(map[string]any),
		}

		switch status.State {
		case realtime.StateConnected:
			health.Components["realtime"] = "connected"
		case realtime.StateConnecting, realtime.StateReconnecting:
			health.Status = "degraded"
			health.Components["realtime"] = string(status.State)
		default:
			health.Status = "unhealthy"
			health.Components["realtime"] = "offline"
		}

		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["journal"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["journal"] = "connected"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
