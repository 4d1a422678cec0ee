// Command kannader-policy loads SMTP policy bundles, spins each one up
// in the Wasm sandbox, and verifies it end to end: setup, the welcome
// banner, and the session timeouts. It is the operational check run
// before a module is handed to the mail server.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/median-kliniken/kannader/internal/bundle"
	"github.com/median-kliniken/kannader/internal/config"
	"github.com/median-kliniken/kannader/internal/wasm"
	"github.com/median-kliniken/kannader/pkg/policy"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "", "Path to configuration file")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	only := flag.String("bundle", "", "Verify a single bundle by name (default: all)")
	flag.Parse()

	// Initialize logger
	var logger *zap.Logger
	if *logLevel == "debug" {
		logger, _ = zap.NewDevelopment()
	} else {
		logger, _ = zap.NewProduction()
	}

	defer logger.Sync()

	logger.Info("Starting kannader-policy",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("date", date),
	)

	// Load configuration
	cfg, err := config.LoadServerConfig(*configPath)
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	runtime, err := wasm.NewRuntime(ctx, logger, &wasm.RuntimeConfig{
		MemoryPages:  cfg.Wasm.MemoryPages,
		DebugEnabled: cfg.Wasm.Debug,
		CacheDir:     cfg.Wasm.CacheDir,
		MaxInstances: cfg.Wasm.MaxInstances,
	})
	if err != nil {
		logger.Fatal("Failed to create Wasm runtime", zap.Error(err))
	}

	manager := bundle.NewManager(cfg, runtime, wasm.NewHostFunctions(logger), logger)
	defer func() {
		if err := manager.Shutdown(context.Background()); err != nil {
			logger.Error("Shutdown failed", zap.Error(err))
		}
	}()

	if err := manager.LoadAll(ctx); err != nil {
		logger.Fatal("Failed to load bundles", zap.Error(err))
	}

	bundles := manager.Registry().List()
	if *only != "" {
		b, err := manager.GetBundle(*only)
		if err != nil {
			logger.Fatal("Bundle not found", zap.String("bundle", *only), zap.Error(err))
		}
		bundles = []*bundle.Bundle{b}
	}

	failed := 0
	for _, b := range bundles {
		if err := verify(ctx, manager, b, logger); err != nil {
			logger.Error("Bundle verification failed",
				zap.String("bundle", b.Name()),
				zap.Error(err),
			)
			failed++
		}
	}

	if failed > 0 {
		logger.Fatal("Verification failed", zap.Int("failed", failed), zap.Int("total", len(bundles)))
	}
	logger.Info("All bundles verified", zap.Int("count", len(bundles)))
}

// verify spawns one configured instance and exercises the procedures a
// fresh SMTP session would hit first.
func verify(ctx context.Context, manager *bundle.Manager, b *bundle.Bundle, logger *zap.Logger) error {
	client, err := manager.Spawn(ctx, b.Name())
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Close(ctx); err != nil {
			logger.Warn("failed to close verified instance", zap.Error(err))
		}
	}()

	cm := policy.ConnMeta{IsEncrypted: false}
	banner, err := client.WelcomeBannerReply(ctx, &cm)
	if err != nil {
		return err
	}

	readMillis, err := client.CommandReadTimeoutMillis(ctx)
	if err != nil {
		return err
	}
	writeMillis, err := client.ReplyWriteTimeoutMillis(ctx)
	if err != nil {
		return err
	}

	logger.Info("bundle verified",
		zap.String("bundle", b.Name()),
		zap.String("version", b.Version()),
		zap.Uint16("banner_code", banner.Code),
		zap.Uint64("command_read_timeout_ms", readMillis),
		zap.Uint64("reply_write_timeout_ms", writeMillis),
	)
	return nil
}
