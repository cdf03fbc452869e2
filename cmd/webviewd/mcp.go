package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/1broseidon/webviewd/internal/mcp"
	"github.com/1broseidon/webviewd/internal/metrics"
)

func runMCP(args []string) int {
	fs := flag.NewFlagSet("mcp", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	cfgPath := fs.String("config", "", "Config file path (default: ~/.config/webviewd/config.yaml)")
	backendName := fs.String("backend", "", "Override the configured backend (x11, headless)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: webviewd mcp [options]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Start an MCP server on stdio. It owns its own windows and does not")
		fmt.Fprintln(os.Stderr, "talk to a running daemon. Logs go to the configured output paths,")
		fmt.Fprintln(os.Stderr, "which must not include stdout.")
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	host, cfg, logger, cleanup, err := startHost(*cfgPath, *backendName, metrics.Nop{})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cleanup()

	for _, p := range cfg.Logging.OutputPaths {
		if p == "stdout" {
			logger.Warn("logging to stdout corrupts the MCP stdio stream")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mcp.NewServer(host, logger).Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("MCP server error", zap.Error(err))
		return 1
	}
	return 0
}
