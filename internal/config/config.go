// Package config loads webviewd settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/1broseidon/webviewd/internal/logging"
	"github.com/1broseidon/webviewd/internal/script"
)

// Backend names accepted by the backend setting.
const (
	BackendX11      = "x11"
	BackendHeadless = "headless"
)

// Config is the daemon configuration. Every field can be overridden from the
// environment as WEBVIEWD_<FIELD>, e.g. WEBVIEWD_EVAL_TIMEOUT or
// WEBVIEWD_LOGGING_LEVEL.
type Config struct {
	// Backend selects the native backend: x11 or headless.
	Backend string `yaml:"backend"`
	// Display overrides $DISPLAY for the x11 backend.
	Display string `yaml:"display,omitempty"`
	// SocketPath is the IPC socket. Empty means the runtime directory default.
	SocketPath string `yaml:"socket_path,omitempty" split_words:"true"`
	// MetricsAddr enables the Prometheus endpoint when non-empty, e.g. "127.0.0.1:9464".
	MetricsAddr string `yaml:"metrics_addr,omitempty" split_words:"true"`
	// EvalTimeout bounds a single webview_eval script run.
	EvalTimeout time.Duration `yaml:"eval_timeout" split_words:"true"`
	Logging     LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures the daemon logger.
type LoggingConfig struct {
	// Level controls logging verbosity: debug, info, warn, error
	Level       string   `yaml:"level"`
	Development bool     `yaml:"development,omitempty"`
	OutputPaths []string `yaml:"output_paths,omitempty" split_words:"true"`
}

// ValidationError reports the offending key of an invalid configuration.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend:     BackendX11,
		EvalTimeout: script.DefaultTimeout,
		Logging: LoggingConfig{
			Level:       "info",
			OutputPaths: []string{"stderr"},
		},
	}
}

// LoggerConfig converts the logging section for logging.New.
func (c *Config) LoggerConfig() logging.Config {
	out := logging.DefaultConfig()
	if c == nil {
		return out
	}
	if c.Logging.Level != "" {
		out.Level = c.Logging.Level
	}
	out.Development = c.Logging.Development
	if len(c.Logging.OutputPaths) > 0 {
		out.OutputPaths = append([]string(nil), c.Logging.OutputPaths...)
	}
	return out
}

// Validate performs strict validation of the effective configuration.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendX11, BackendHeadless:
	default:
		return &ValidationError{Path: "backend", Err: fmt.Errorf("backend must be one of: %s, %s", BackendX11, BackendHeadless)}
	}
	if c.EvalTimeout <= 0 {
		return &ValidationError{Path: "eval_timeout", Err: fmt.Errorf("eval_timeout must be > 0")}
	}
	if c.SocketPath != "" && !filepath.IsAbs(c.SocketPath) {
		return &ValidationError{Path: "socket_path", Err: fmt.Errorf("socket_path must be absolute")}
	}
	if c.MetricsAddr != "" && !strings.Contains(c.MetricsAddr, ":") {
		return &ValidationError{Path: "metrics_addr", Err: fmt.Errorf("metrics_addr must be host:port")}
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return &ValidationError{Path: "logging.level", Err: err}
	}
	for i, p := range c.Logging.OutputPaths {
		if strings.TrimSpace(p) == "" {
			return &ValidationError{Path: fmt.Sprintf("logging.output_paths[%d]", i), Err: fmt.Errorf("output path must not be empty")}
		}
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Save writes the configuration to the standard location.
func (c *Config) Save() error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo validates and writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
