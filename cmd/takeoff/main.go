// Package main runs the Takeoff webhook server: a Slack bot that merges
// GitHub pull requests on demand.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/takeoff-dev/takeoff/pkg/config"
	"github.com/takeoff-dev/takeoff/pkg/slackbot"
	"github.com/takeoff-dev/takeoff/pkg/takeoff"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func main() {
	debug := flag.Bool("debug", false, "Enable debug logging")
	configPath := flag.String("config", "", "Path to optional YAML config file")
	addr := flag.String("addr", "", "Listen address (overrides config)")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(logger, *configPath, *addr); err != nil {
		logger.Error("takeoff exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, configPath, addrFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if addrFlag != "" {
		cfg.ListenAddr = addrFlag
	}

	extractor, err := takeoff.NewExtractor(cfg.MergeKeywords)
	if err != nil {
		return fmt.Errorf("building extractor: %w", err)
	}
	allowlist := takeoff.NewAllowlist(cfg.AuthorizedSlackUserIDs)
	if len(allowlist) == 0 {
		logger.Warn("allow-list is empty; no one is authorized to trigger merges")
	}

	merger := takeoff.NewClient(cfg.GitHubToken, takeoff.WithLogger(logger))
	responder := slackbot.NewSlackResponder(cfg.SlackBotToken, logger)

	bot := slackbot.New(extractor, allowlist, merger, responder, cfg.SlackSigningSecret,
		slackbot.WithLogger(logger),
		slackbot.WithMetrics(slackbot.NewMetrics()),
	)

	r := chi.NewRouter()
	r.Post("/slack/events", bot.HandleEvents)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logger.Debug("failed to write health response", "error", err)
		}
	})
	r.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting webhook server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
