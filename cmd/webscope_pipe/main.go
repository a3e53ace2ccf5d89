// The pipe binary speaks JSON-RPC over stdin/stdout for local tool hosts.
// Stdout carries responses only; logs go to the rotating file.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgnsrekt/webscope/internal/analyzer"
	"github.com/dgnsrekt/webscope/internal/browser"
	"github.com/dgnsrekt/webscope/internal/config"
	"github.com/dgnsrekt/webscope/internal/rpc"
	"github.com/dgnsrekt/webscope/internal/security"
	"github.com/dgnsrekt/webscope/internal/store"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		_, _ = io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n")
		os.Exit(1)
	}

	sigs := security.DefaultSignatures()
	if cfg.SignaturesFile != "" {
		loaded, err := security.LoadSignatures(cfg.SignaturesFile)
		if err != nil {
			slog.Warn("signatures file unusable, using built-in defaults", "path", cfg.SignaturesFile, "error", err)
		} else {
			sigs = loaded
		}
	}

	mgr := browser.NewManager(browser.Config{
		CDPURL:    cfg.CDPURL,
		Headless:  cfg.Headless,
		UserAgent: cfg.UserAgent,
	})
	limits := analyzer.Limits{
		NavTimeout:   time.Duration(cfg.NavTimeoutMS) * time.Millisecond,
		IdleTimeout:  time.Duration(cfg.IdleTimeoutMS) * time.Millisecond,
		MaxBodyChars: cfg.MaxBodyChars,
	}
	svc := analyzer.NewService(mgr, store.NewMemory(), security.NewDetector(sigs), nil, limits)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("pipe transport ready")
	srv := rpc.NewServer(svc, os.Stdout)
	done := make(chan error, 1)
	go func() {
		done <- srv.Serve(ctx, os.Stdin)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-done:
		if err != nil && err != context.Canceled {
			slog.Error("pipe transport failed", "error", err)
		}
	case sig := <-sigCh:
		slog.Info("shutdown signal received", "signal", sig.String())
		cancel()
	}

	svc.Shutdown()
	slog.Info("pipe transport closed")
}

// setupLogger keeps stdout clean: every log line goes to the rotating file
// only, since stdout is the response channel.
func setupLogger(level, filename string) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(logWriter, &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
