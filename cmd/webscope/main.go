package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgnsrekt/webscope/internal/analyzer"
	"github.com/dgnsrekt/webscope/internal/api"
	"github.com/dgnsrekt/webscope/internal/browser"
	"github.com/dgnsrekt/webscope/internal/config"
	"github.com/dgnsrekt/webscope/internal/netutil"
	"github.com/dgnsrekt/webscope/internal/relay"
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

	slog.Info("config loaded",
		"bind_addr", cfg.BindAddr,
		"cdp_url", cfg.CDPURL,
		"headless", cfg.Headless,
		"port_auto_fallback", cfg.PortAutoFallback,
		"port_candidates", cfg.PortCandidates,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	bindAddr, err := netutil.SelectBindAddr(cfg.BindAddr, cfg.PortCandidates, cfg.PortAutoFallback)
	if err != nil {
		slog.Error("failed to select bind address", "preferred", cfg.BindAddr, "error", err)
		os.Exit(1)
	}

	sigs := loadSignatures(cfg.SignaturesFile)

	mgr := browser.NewManager(browser.Config{
		CDPURL:    cfg.CDPURL,
		Headless:  cfg.Headless,
		UserAgent: cfg.UserAgent,
	})
	broker := relay.NewBroker()
	limits := analyzer.Limits{
		NavTimeout:   time.Duration(cfg.NavTimeoutMS) * time.Millisecond,
		IdleTimeout:  time.Duration(cfg.IdleTimeoutMS) * time.Millisecond,
		MaxBodyChars: cfg.MaxBodyChars,
	}
	svc := analyzer.NewService(mgr, store.NewMemory(), security.NewDetector(sigs), broker, limits)
	defer svc.Shutdown()

	h := api.NewServer(svc, broker)
	srv := &http.Server{Addr: bindAddr, Handler: h}

	go func() {
		slog.Info("webscope listening", "addr", bindAddr, "docs", "http://"+bindAddr+"/docs")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
}

func loadSignatures(path string) security.Signatures {
	if path == "" {
		return security.DefaultSignatures()
	}
	sigs, err := security.LoadSignatures(path)
	if err != nil {
		slog.Warn("signatures file unusable, using built-in defaults", "path", path, "error", err)
		return security.DefaultSignatures()
	}
	slog.Info("signatures loaded", "path", path)
	return sigs
}

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

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
