// Package main implements the synthetic reading producer for smokewatch.
// It provisions the configured JetStream stream and publishes smoker
// temperature readings that ramp up and then plateau.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/grillworks/smokewatch/feed"
	"github.com/grillworks/smokewatch/natsclient"
)

const (
	Version = "1.0.0"
	appName = "smokewatch-feed"
)

type cliConfig struct {
	natsURL     string
	stream      string
	subject     string
	interval    time.Duration
	startTemp   float64
	rampRate    float64
	plateau     float64
	jitter      float64
	logLevel    string
	logFormat   string
	showVersion bool
}

func main() {
	if err := run(); err != nil {
		slog.Error("Feed failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := parseFlags()

	if cfg.showVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}

	logger := setupLogger(cfg.logLevel, cfg.logFormat)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	natsClient, err := natsclient.NewClient(cfg.natsURL, natsclient.WithName(appName))
	if err != nil {
		return fmt.Errorf("create NATS client: %w", err)
	}

	slog.Info("Connecting to NATS", "url", cfg.natsURL)
	if err := natsClient.Connect(ctx); err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer natsClient.Close(context.Background())

	if _, err := natsClient.EnsureStream(ctx, jetstream.StreamConfig{
		Name:     cfg.stream,
		Subjects: []string{cfg.subject},
	}); err != nil {
		return fmt.Errorf("ensure stream %s: %w", cfg.stream, err)
	}

	producer := feed.New(feed.Deps{
		Config: feed.Config{
			Subject:   cfg.subject,
			Interval:  cfg.interval,
			StartTemp: cfg.startTemp,
			RampRate:  cfg.rampRate,
			Plateau:   cfg.plateau,
			Jitter:    cfg.jitter,
			Unit:      "F",
		},
		Publisher: natsClient,
		Logger:    logger.With("component", "feed"),
	})

	if err := producer.Initialize(); err != nil {
		return fmt.Errorf("initialize producer: %w", err)
	}
	if err := producer.Start(ctx); err != nil {
		return fmt.Errorf("start producer: %w", err)
	}

	slog.Info("Feed started",
		"stream", cfg.stream,
		"subject", cfg.subject,
		"interval", cfg.interval)

	<-ctx.Done()
	slog.Info("Received shutdown signal")

	return producer.Stop(10 * time.Second)
}

func parseFlags() *cliConfig {
	cfg := &cliConfig{}

	flag.StringVar(&cfg.natsURL, "nats-url",
		getEnv("SMOKEWATCH_NATS_URL", "nats://localhost:4222"),
		"NATS server URL (env: SMOKEWATCH_NATS_URL)")
	flag.StringVar(&cfg.stream, "stream",
		getEnv("SMOKEWATCH_STREAM", "SMOKEHOUSE"),
		"JetStream stream name (env: SMOKEWATCH_STREAM)")
	flag.StringVar(&cfg.subject, "subject",
		getEnv("SMOKEWATCH_SUBJECT", "smokewatch.readings.smoker"),
		"Subject readings are published to (env: SMOKEWATCH_SUBJECT)")
	flag.DurationVar(&cfg.interval, "interval", time.Second, "Interval between readings")
	flag.Float64Var(&cfg.startTemp, "start-temp", 70, "Starting temperature")
	flag.Float64Var(&cfg.rampRate, "ramp-rate", 2.5, "Degrees gained per reading while climbing")
	flag.Float64Var(&cfg.plateau, "plateau", 160, "Temperature where the stall begins")
	flag.Float64Var(&cfg.jitter, "jitter", 0.4, "Max random wobble during the plateau")
	flag.StringVar(&cfg.logLevel, "log-level",
		getEnv("SMOKEWATCH_LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	flag.StringVar(&cfg.logFormat, "log-format",
		getEnv("SMOKEWATCH_LOG_FORMAT", "text"), "Log format: json, text")
	flag.BoolVar(&cfg.showVersion, "version", false, "Show version information")

	flag.Parse()
	return cfg
}

func setupLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler).With("service", appName, "version", Version)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
