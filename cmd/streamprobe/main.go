// streamprobe connects to the fleet realtime endpoint, subscribes to
// one entity, and prints received frames to the console.
//
// Usage: go run ./cmd/streamprobe --config configs/syncd.local.yaml --entity vehicle --id V-1042
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/opsboard/fleet-sync/internal/bus"
	"github.com/opsboard/fleet-sync/internal/config"
	"github.com/opsboard/fleet-sync/internal/realtime"
)

func main() {
	configPath := flag.String("config", "configs/syncd.example.yaml", "path to config file")
	entity := flag.String("entity", "vehicle", "entity kind to subscribe")
	id := flag.String("id", "", "entity id to subscribe (empty = configured subscriptions only)")
	duration := flag.Duration("duration", 0, "exit after this long (0 = run until interrupted)")
	verbose := flag.Bool("verbose", false, "print full payload JSON")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.LoadWithDefaults(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	if *duration > 0 {
		go func() {
			select {
			case <-time.After(*duration):
				logger.Info("duration elapsed")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

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
	}, realtime.WithLogger(logger))

	// Count frames per type, print each as it arrives. The handler
	// runs on the service's read goroutine, so the map needs a lock.
	var countsMu sync.Mutex
	counts := make(map[string]int)
	svc.Events().On(bus.TopicAll, func(ev bus.Event) {
		countsMu.Lock()
		counts[ev.Type]++
		countsMu.Unlock()
		if *verbose {
			fmt.Printf("[%s] %s %s\n", ev.ReceivedAt.Format(time.RFC3339Nano), ev.Type, ev.Payload)
		} else {
			fmt.Printf("[%s] %s (%d bytes)\n", ev.ReceivedAt.Format(time.RFC3339), ev.Type, len(ev.Payload))
		}
	})

	for _, sub := range cfg.Realtime.Subscriptions {
		svc.Subscribe(sub.Entity, sub.ID)
	}
	if *id != "" {
		svc.Subscribe(*entity, *id)
	}

	logger.Info("connecting", "url", cfg.Realtime.WSURL)
	svc.Connect()

	<-ctx.Done()
	svc.Disconnect()

	status := svc.Status()
	fmt.Println("\n--- summary ---")
	countsMu.Lock()
	for typ, n := range counts {
		fmt.Printf("%-30s %d\n", typ, n)
	}
	countsMu.Unlock()
	fmt.Printf("queued unsent: %d\n", status.QueueDepth)
}
