package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/wizfi/ESP8266-AT-Commands-parser/wizfi"
)

func main() {
	configFile := flag.String("config", "", "Path to a config file (yaml, json or toml)")
	flag.String("serial-port", "/dev/ttyUSB0", "Serial port the module is attached to")
	flag.Int("baud-rate", 115200, "Baud rate for serial communication")
	flag.String("bind-address", "0.0.0.0:8080", "Bind address for the HTTP server")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("log-format", "json", "Log format (json, console)")
	flag.String("ssid", "", "Network to join")
	flag.String("password", "", "Network password")
	flag.String("echo-mode", "off", "Echo mode (off, client, server)")
	flag.String("echo-host", "", "Echo server host in client mode")
	flag.Int("echo-port", 7, "Echo port")
	flag.Duration("echo-interval", 10*time.Second, "Minimum spacing between echo sends")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithFile(*configFile), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := NewLogger(config.Logging.Level, config.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(config, logger); err != nil {
		logger.Error("Daemon failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(config *Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	gateway := NewGateway(config.Echo, logger.With(zap.String("component", "gateway")))

	sessionConfig, err := wizfi.NewConfigBuilder().
		WithDialer(wizfi.SerialDialer{
			PortName: config.Serial.Port,
			BaudRate: config.Serial.BaudRate,
		}).
		WithBaudRate(config.Serial.BaudRate).
		WithHandler(gateway).
		WithLogger(logger.With(zap.String("component", "wizfi"))).
		WithRegisterer(registry).
		WithPollInterval(time.Millisecond).
		Build()
	if err != nil {
		return fmt.Errorf("create session config: %w", err)
	}

	session, err := wizfi.New(ctx, sessionConfig)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	defer func() {
		logger.Info("Closing module connection")
		if err := session.Close(); err != nil {
			logger.Error("Failed to close module", zap.Error(err))
		}
	}()

	gateway.Attach(session)
	logger.Info("Starting wizfi360d", zap.String("session", session.ID()), zap.Int("baud_rate", session.BaudRate()))
	if err := gateway.Start(ctx, config.Wifi); err != nil {
		return fmt.Errorf("start gateway: %w", err)
	}

	httpServer := &http.Server{
		Addr: config.HTTP.BindAddress,
		Handler: &Server{
			Logger:   logger.With(zap.String("component", "server")),
			Gateway:  gateway,
			Gatherer: registry,
		},
	}

	// Start HTTP server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	runErr := make(chan error, 1)
	go func() { runErr <- gateway.Run(runCtx) }()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
		cancel()
		<-runErr
	case err = <-runErr:
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	case err = <-serverErr:
		err = fmt.Errorf("http server: %w", err)
		cancel()
		<-runErr
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Closing HTTP server")
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Error("Failed to gracefully shutdown server", zap.Error(shutdownErr))
	}
	return err
}
