package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/1broseidon/webviewd/internal/bridge"
	"github.com/1broseidon/webviewd/internal/config"
	"github.com/1broseidon/webviewd/internal/ipc"
	"github.com/1broseidon/webviewd/internal/logging"
	"github.com/1broseidon/webviewd/internal/metrics"
	"github.com/1broseidon/webviewd/internal/platform"
	"github.com/1broseidon/webviewd/internal/runtimepath"
)

// newBackend builds the backend named by cfg.Backend.
func newBackend(cfg *config.Config, logger *logging.Logger) (platform.Backend, error) {
	switch cfg.Backend {
	case config.BackendHeadless:
		return platform.NewHeadlessBackend(logger, cfg.EvalTimeout), nil
	case config.BackendX11:
		return platform.NewNativeBackend(cfg.Display, logger, cfg.EvalTimeout)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

// startHost loads config, builds the logger and backend and starts a host.
// The returned cleanup closes the host and flushes the logger.
func startHost(cfgPath, backendOverride string, rec metrics.Recorder) (*bridge.Host, *config.Config, *logging.Logger, func(), error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if backendOverride != "" {
		cfg.Backend = backendOverride
		if err := cfg.Validate(); err != nil {
			return nil, nil, nil, nil, err
		}
	}

	logger, err := logging.New(cfg.LoggerConfig())
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	backend, err := newBackend(cfg, logger)
	if err != nil {
		logger.Sync()
		return nil, nil, nil, nil, fmt.Errorf("failed to start %s backend: %w", cfg.Backend, err)
	}

	host := bridge.NewHost(backend, bridge.WithLogger(logger), bridge.WithRecorder(rec))
	cleanup := func() {
		host.Close()
		logger.Sync()
	}
	return host, cfg, logger, cleanup, nil
}

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	cfgPath := fs.String("config", "", "Config file path (default: ~/.config/webviewd/config.yaml)")
	backendName := fs.String("backend", "", "Override the configured backend (x11, headless)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: webviewd serve [options]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Run the daemon in the foreground, serving IPC requests until SIGINT or SIGTERM.")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	m := metrics.New()
	host, cfg, logger, cleanup, err := startHost(*cfgPath, *backendName, m)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cleanup()

	socketPath, err := runtimepath.ResolveSocket(cfg.SocketPath)
	if err != nil {
		logger.Error("failed to resolve IPC socket path", zap.Error(err))
		return 1
	}
	server := ipc.NewServer(socketPath, host, logger)
	if err := server.Start(); err != nil {
		logger.Error("failed to start IPC server", zap.Error(err))
		return 1
	}
	defer server.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := m.Serve(ctx, cfg.MetricsAddr, logger); err != nil {
				logger.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	logger.Info("webviewd started",
		zap.String("backend", cfg.Backend),
		zap.String("socket", socketPath),
	)
	<-ctx.Done()
	logger.Info("shutting down")
	return 0
}
