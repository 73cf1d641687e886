// Package main implements the entry point for the smokewatch service.
// Smokewatch consumes smoker temperature readings from NATS JetStream
// and raises an alert when a sensor's temperature stalls.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/grillworks/smokewatch/component"
	"github.com/grillworks/smokewatch/config"
	"github.com/grillworks/smokewatch/health"
	"github.com/grillworks/smokewatch/metric"
	"github.com/grillworks/smokewatch/monitor"
	"github.com/grillworks/smokewatch/natsclient"
	"github.com/grillworks/smokewatch/output/alertfile"
	"github.com/grillworks/smokewatch/pkg/retry"
)

// Build information constants
const (
	Version   = "1.0.0"
	BuildTime = "dev"
	appName   = "smokewatch"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	ctx := context.Background()

	metricsRegistry := metric.NewMetricsRegistry()

	natsClient, err := connectNATS(ctx, cfg, metricsRegistry, logger)
	if err != nil {
		return err
	}
	defer natsClient.Close(ctx)

	components, err := buildComponents(ctx, cfg, natsClient, metricsRegistry, logger)
	if err != nil {
		return err
	}

	metricsServer := startMetricsServer(cfg, metricsRegistry, logger)

	return runWithSignalHandling(ctx, components, metricsServer, cliCfg.ShutdownTimeout)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting smokewatch",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// connectNATS creates the client and waits for a live connection
func connectNATS(
	ctx context.Context,
	cfg *config.Config,
	metricsRegistry *metric.MetricsRegistry,
	logger *slog.Logger,
) (*natsclient.Client, error) {
	opts := []natsclient.ClientOption{
		natsclient.WithName(cfg.NATS.Name),
		natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
		natsclient.WithMetrics(metricsRegistry.CoreMetrics()),
		natsclient.WithLogger(natsclient.NewSlogLogger(logger.With("component", "nats"))),
		natsclient.WithDisconnectCallback(func(err error) {
			logger.Warn("NATS disconnected", "error", err)
		}),
		natsclient.WithReconnectCallback(func() {
			logger.Info("NATS reconnected")
		}),
	}
	if cfg.NATS.ReconnectWait > 0 {
		opts = append(opts, natsclient.WithReconnectWait(cfg.NATS.ReconnectWait))
	}
	if cfg.NATS.PingInterval > 0 {
		opts = append(opts, natsclient.WithPingInterval(cfg.NATS.PingInterval))
	}
	if cfg.NATS.DrainTimeout > 0 {
		opts = append(opts, natsclient.WithDrainTimeout(cfg.NATS.DrainTimeout))
	}
	if cfg.NATS.Username != "" {
		opts = append(opts, natsclient.WithCredentials(cfg.NATS.Username, cfg.NATS.Password))
	}

	natsClient, err := natsclient.NewClient(cfg.NATS.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	slog.Info("Connecting to NATS", "url", cfg.NATS.URL)
	if err := natsClient.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := natsClient.WaitForConnection(connCtx); err != nil {
		return nil, fmt.Errorf("NATS connection timeout: %w", err)
	}

	return natsClient, nil
}

// buildComponents provisions streams and creates one monitor per sensor
// plus the alert writer, initialized but not started.
func buildComponents(
	ctx context.Context,
	cfg *config.Config,
	natsClient *natsclient.Client,
	metricsRegistry *metric.MetricsRegistry,
	logger *slog.Logger,
) ([]component.LifecycleComponent, error) {
	if err := ensureStreams(ctx, cfg, natsClient); err != nil {
		return nil, err
	}

	var components []component.LifecycleComponent
	var alertSubjects []string

	for _, sensor := range cfg.Sensors {
		source, err := natsClient.NewStreamSource(ctx, sensor.Stream, sensor.Subject, sensor.Durable)
		if err != nil {
			return nil, fmt.Errorf("create source for sensor %s: %w", sensor.Name, err)
		}

		m := monitor.New(monitor.Deps{
			Config:          sensor,
			Source:          source,
			Publisher:       natsClient,
			MetricsRegistry: metricsRegistry,
			Logger:          logger.With("component", "monitor", "sensor", sensor.Name),
		})
		if err := m.Initialize(); err != nil {
			return nil, fmt.Errorf("initialize monitor %s: %w", sensor.Name, err)
		}
		components = append(components, m)

		alertSubjects = append(alertSubjects, sensor.AlertsSubject())
	}

	if cfg.Alerts.Enabled {
		writer := alertfile.New(alertfile.Deps{
			Config:     cfg.Alerts,
			Subjects:   alertSubjects,
			Subscriber: natsClient,
			Logger:     logger.With("component", "alert-writer"),
		})
		if err := writer.Initialize(); err != nil {
			return nil, fmt.Errorf("initialize alert writer: %w", err)
		}
		components = append(components, writer)
	}

	return components, nil
}

// ensureStreams provisions one JetStream stream per distinct stream name,
// covering all subjects configured on it.
func ensureStreams(ctx context.Context, cfg *config.Config, natsClient *natsclient.Client) error {
	subjectsByStream := make(map[string][]string)
	for _, sensor := range cfg.Sensors {
		subjectsByStream[sensor.Stream] = append(subjectsByStream[sensor.Stream], sensor.Subject)
	}

	for stream, subjects := range subjectsByStream {
		provision := func() error {
			_, err := natsClient.EnsureStream(ctx, jetstream.StreamConfig{
				Name:     stream,
				Subjects: subjects,
			})
			return err
		}
		if err := retry.Do(ctx, retry.Quick(), provision); err != nil {
			return fmt.Errorf("ensure stream %s: %w", stream, err)
		}
		slog.Info("Stream ready", "stream", stream, "subjects", subjects)
	}

	return nil
}

// startMetricsServer starts the Prometheus endpoint when enabled
func startMetricsServer(cfg *config.Config, metricsRegistry *metric.MetricsRegistry, logger *slog.Logger) *metric.Server {
	if !cfg.Metrics.Enabled {
		return nil
	}

	server := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, metricsRegistry)
	go func() {
		logger.Info("Metrics server starting", "address", server.Address())
		if err := server.Start(); err != nil {
			logger.Error("Metrics server failed", "error", err)
		}
	}()
	return server
}

// runWithSignalHandling starts components and handles shutdown signals
func runWithSignalHandling(
	ctx context.Context,
	components []component.LifecycleComponent,
	metricsServer *metric.Server,
	shutdownTimeout time.Duration,
) error {
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	for _, c := range components {
		if err := c.Start(signalCtx); err != nil {
			return fmt.Errorf("start %s: %w", c.Meta().Name, err)
		}
	}

	healthMonitor := health.NewMonitor()
	go watchHealth(signalCtx, healthMonitor, components)

	slog.Info("Smokewatch started", "components", len(components))

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	return shutdown(components, metricsServer, shutdownTimeout)
}

// watchHealth periodically refreshes component health and logs degradation
func watchHealth(ctx context.Context, monitor *health.Monitor, components []component.LifecycleComponent) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, c := range components {
				name := c.Meta().Name
				monitor.Update(name, health.FromComponentHealth(name, c.Health()))
			}

			agg := monitor.AggregateHealth(appName)
			if !agg.IsHealthy() {
				slog.Warn("Service health degraded",
					"status", agg.Status,
					"message", agg.Message)
			}
		}
	}
}

// shutdown stops components in reverse start order
func shutdown(components []component.LifecycleComponent, metricsServer *metric.Server, timeout time.Duration) error {
	var firstErr error

	for i := len(components) - 1; i >= 0; i-- {
		c := components[i]
		if err := c.Stop(timeout); err != nil {
			slog.Error("Error stopping component", "component", c.Meta().Name, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			slog.Error("Error stopping metrics server", "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", firstErr)
	}

	slog.Info("Smokewatch shutdown complete")
	return nil
}
