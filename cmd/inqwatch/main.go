// Command inqwatch observes an e-commerce seller console in a live Chrome
// tab, extracts customer inquiries as the operator navigates, publishes
// them to sinks, and exposes extraction and reply filling over a local
// control API and an optional MCP stdio surface.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/inqwatch/config"
	"github.com/hazyhaar/inqwatch/draft"
	"github.com/hazyhaar/inqwatch/driver"
	"github.com/hazyhaar/inqwatch/extractor"
	"github.com/hazyhaar/inqwatch/extractor/rmesse"
	"github.com/hazyhaar/inqwatch/internal/browser"
	"github.com/hazyhaar/inqwatch/sink"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration")
	startURL := flag.String("url", "", "console URL to observe (overrides config)")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.LoadFile(*configPath)
		if err != nil {
			slog.Error("load config", "error", err)
			os.Exit(1)
		}
	}
	if *startURL != "" {
		cfg.Watch.StartURL = *startURL
	}
	if cfg.Watch.StartURL == "" {
		slog.Error("a start URL is required (flag -url or watch.start_url)")
		os.Exit(1)
	}

	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Sinks.
	sinks, err := buildSinks(ctx, cfg.Sinks, logger)
	if err != nil {
		slog.Error("sinks", "error", err)
		os.Exit(1)
	}
	router := sink.NewRouter(logger, sinks...)
	defer router.Close()

	// Browser.
	mgr := browser.NewManager(browser.Config{
		RemoteURL:       cfg.Browser.Remote,
		Headless:        *cfg.Browser.Headless,
		UserDataDir:     cfg.Browser.UserDataDir,
		MemoryLimit:     cfg.Browser.MemoryLimit,
		RecycleInterval: cfg.Browser.RecycleInterval,
		Logger:          logger,
	})
	if _, err := mgr.Start(ctx); err != nil {
		slog.Error("start browser", "error", err)
		os.Exit(1)
	}
	defer mgr.Close()

	session, err := browser.NewSession(ctx, mgr, cfg.Watch.StartURL, browser.SessionConfig{
		MutationDebounce: cfg.Watch.MutationDebounce,
		Logger:           logger,
	})
	if err != nil {
		slog.Error("open session", "error", err)
		os.Exit(1)
	}
	defer session.Close()

	// Driver.
	registry := extractor.NewRegistry(rmesse.New(rmesse.WithLogger(logger)))
	d := driver.New(driver.Config{
		PollInterval: cfg.Watch.PollInterval,
		BurstDelays:  cfg.Watch.BurstDelays,
		Gate: draft.GateConfig{
			MinFinalLen: cfg.Gate.MinFinalLen,
			MinDraftLen: cfg.Gate.MinDraftLen,
		},
	}, session, registry, router, driver.WithLogger(logger))

	go func() {
		if err := d.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("driver stopped", "error", err)
		}
	}()

	// Control API.
	srv := &http.Server{
		Addr:              cfg.API.Addr,
		Handler:           driver.NewAPIHandler(d, driver.APIConfig{TokenBcrypt: cfg.API.TokenBcrypt}),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		slog.Info("api starting", "addr", cfg.API.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("api error", "error", err)
			os.Exit(1)
		}
	}()

	// Optional MCP over stdio.
	if cfg.MCP.Enabled {
		mcpSrv := mcp.NewServer(&mcp.Implementation{
			Name:    "inqwatch",
			Version: "1.0.0",
		}, nil)
		d.RegisterMCP(mcpSrv)
		go func() {
			slog.Info("mcp stdio starting")
			if err := mcpSrv.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
				slog.Error("mcp stdio", "error", err)
			}
		}()
	}

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("stopped")
}

func buildSinks(ctx context.Context, specs []config.SinkConfig, logger *slog.Logger) ([]sink.Sink, error) {
	var sinks []sink.Sink
	for _, s := range specs {
		switch s.Type {
		case "stdout":
			sinks = append(sinks, sink.NewStdout(nil))
		case "webhook":
			sinks = append(sinks, sink.NewWebhook(s.URL, sink.WithWebhookLogger(logger)))
		case "history":
			h, err := sink.OpenHistory(s.Path)
			if err != nil {
				return nil, err
			}
			if s.Retention > 0 {
				go pruneLoop(ctx, h, s.Retention, logger)
			}
			sinks = append(sinks, h)
		}
	}
	return sinks, nil
}

// pruneLoop enforces the history retention window once an hour until the
// signal context is cancelled.
func pruneLoop(ctx context.Context, h *sink.History, retention time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		n, err := h.Prune(ctx, retention)
		if err != nil {
			logger.Warn("history prune failed", "error", err)
			continue
		}
		if n > 0 {
			logger.Info("history pruned", "events", n)
		}
	}
}
