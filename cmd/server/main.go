package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/bulk-dispatch/internal/api"
	"github.com/ignite/bulk-dispatch/internal/config"
	"github.com/ignite/bulk-dispatch/internal/dispatch"
	"github.com/ignite/bulk-dispatch/internal/pkg/logger"
	"github.com/ignite/bulk-dispatch/internal/ratelimit"
	"github.com/ignite/bulk-dispatch/internal/transport"
)

// checkPortAvailable verifies that the target port is not already in use.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v", port, addr, err)
	}
	ln.Close()
	return nil
}

func main() {
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if os.Getenv("LOG_LEVEL") == "debug" {
		logger.SetLevel(logger.DEBUG)
	}

	// Fail fast on an empty pool: every dispatch request would 500 anyway.
	if len(cfg.Dispatch.Credentials) == 0 {
		log.Fatalf("Startup failed: %v", dispatch.ErrNoCredentials)
	}

	sender, err := transport.New(
		cfg.Transport.Kind,
		cfg.Transport.SMTPHost,
		cfg.Transport.SMTPPort,
		cfg.Transport.SESRegion,
		cfg.Transport.FromEmail,
	)
	if err != nil {
		log.Fatalf("Failed to build transport: %v", err)
	}

	var limiter dispatch.Limiter
	if cfg.Redis.URL != "" {
		rl, err := ratelimit.NewFromURL(cfg.Redis.URL, cfg.Redis.CeilingPerMinute)
		if err != nil {
			log.Fatalf("Failed to connect throughput ceiling: %v", err)
		}
		defer rl.Close()
		limiter = rl
		logger.Info("shared throughput ceiling enabled", "per_minute", cfg.Redis.CeilingPerMinute)
	}

	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check failed: %v", err)
	}

	server := api.NewServer(cfg, sender, limiter)
	addr := fmt.Sprintf("%s:%d", host, port)

	go func() {
		logger.Info("dispatch server listening",
			"addr", addr,
			"transport", cfg.Transport.Kind,
			"credentials", len(cfg.Dispatch.Credentials),
			"batch_size", cfg.Dispatch.BatchSize,
			"batch_delay", cfg.Dispatch.BatchDelay().String(),
		)
		if err := server.ListenAndServe(addr); err != nil {
			logger.Error("server stopped", "error", err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err.Error())
	}
}
