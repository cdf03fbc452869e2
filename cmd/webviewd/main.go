package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/1broseidon/webviewd/internal/bridge"
	"github.com/1broseidon/webviewd/internal/config"
	"github.com/1broseidon/webviewd/internal/ipc"
	"github.com/1broseidon/webviewd/internal/runtimepath"
)

func main() {
	if len(os.Args) < 2 {
		printMainUsage(os.Stdout)
		os.Exit(0)
	}

	switch os.Args[1] {
	case "serve":
		os.Exit(runServe(os.Args[2:]))
	case "mcp":
		os.Exit(runMCP(os.Args[2:]))
	case "call":
		os.Exit(runCall(os.Args[2:]))
	case "status":
		os.Exit(runStatus(os.Args[2:]))
	case "config":
		os.Exit(runConfig(os.Args[2:]))
	case "help", "-h", "--help":
		printMainUsage(os.Stdout)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printMainUsage(os.Stderr)
		os.Exit(2)
	}
}

func printMainUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: webviewd <command> [options]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve               Start the daemon (foreground)")
	fmt.Fprintln(w, "  mcp                 Start an MCP server on stdio with its own windows")
	fmt.Fprintln(w, "  call <op> [json]    Send one operation to the daemon and print the envelope")
	fmt.Fprintln(w, "  status              Show daemon status")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "  config init         Write the default configuration file")
	fmt.Fprintln(w, "  config print        Print configuration")
	fmt.Fprintln(w, "  config validate     Validate configuration")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Operations:")
	for _, op := range bridge.OpNames {
		fmt.Fprintf(w, "  %s\n", op)
	}
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Run 'webviewd <command> --help' for command-specific options.")
}

// loadConfig loads from path, or the default location when path is empty.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFromPath(path)
}

// newClient resolves the daemon socket from the socket flag, then config.
func newClient(socket, cfgPath string, timeout time.Duration) (*ipc.Client, error) {
	if socket == "" {
		cfg, err := loadConfig(cfgPath)
		if err != nil {
			return nil, err
		}
		socket = cfg.SocketPath
	}
	path, err := runtimepath.ResolveSocket(socket)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve IPC socket path: %w", err)
	}
	return ipc.NewClient(path).WithTimeout(timeout), nil
}

func runCall(args []string) int {
	fs := flag.NewFlagSet("call", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	socket := fs.String("socket", "", "IPC socket path (default: from config or runtime dir)")
	cfgPath := fs.String("config", "", "Config file path (default: ~/.config/webviewd/config.yaml)")
	timeout := fs.Duration("timeout", ipc.DefaultTimeout, "Request timeout")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: webviewd call [options] <op> [json-payload]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Send one operation to the running daemon. The payload defaults to {}.")
		fmt.Fprintln(os.Stderr, "Exit status is 1 when the envelope carries an error.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Example:")
		fmt.Fprintln(os.Stderr, `  webviewd call webview_new '{"title":"Hi","url":"about:blank","width":640,"height":480,"resizable":true,"debug":false,"frameless":false}'`)
		fmt.Fprintln(os.Stderr, "")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	op, payload, err := parseCallArgs(fs.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fs.Usage()
		return 2
	}

	client, err := newClient(*socket, *cfgPath, *timeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	out, err := client.Call(op, payload)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fmt.Println(formatEnvelope(out, term.IsTerminal(int(os.Stdout.Fd()))))
	if envelopeFailed(out) {
		return 1
	}
	return 0
}

func parseCallArgs(args []string) (string, json.RawMessage, error) {
	switch len(args) {
	case 1:
		return args[0], json.RawMessage("{}"), nil
	case 2:
		if !json.Valid([]byte(args[1])) {
			return "", nil, fmt.Errorf("payload is not valid JSON: %s", args[1])
		}
		return args[0], json.RawMessage(args[1]), nil
	default:
		return "", nil, fmt.Errorf("expected <op> [json-payload], got %d arguments", len(args))
	}
}

// formatEnvelope indents the envelope for a terminal and leaves it as a
// single line otherwise so scripts can parse it.
func formatEnvelope(data []byte, pretty bool) string {
	if !pretty {
		return string(data)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data)
	}
	return buf.String()
}

func envelopeFailed(data []byte) bool {
	var env bridge.Response[json.RawMessage]
	if err := json.Unmarshal(data, &env); err != nil {
		return true
	}
	return env.Err != nil
}

func runStatus(args []string) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	socket := fs.String("socket", "", "IPC socket path (default: from config or runtime dir)")
	cfgPath := fs.String("config", "", "Config file path (default: ~/.config/webviewd/config.yaml)")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: webviewd status [options]")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Show daemon status via IPC.")
	}
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	client, err := newClient(*socket, *cfgPath, ipc.DefaultTimeout)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	st, err := client.Status()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	fmt.Printf("Backend:   %s\n", st.Backend)
	fmt.Printf("Uptime:    %s\n", time.Duration(st.UptimeSeconds)*time.Second)
	fmt.Printf("Instances: %d\n", len(st.Instances))
	for _, id := range st.Instances {
		fmt.Printf("  - %d\n", id)
	}
	return 0
}

func runConfig(args []string) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		fmt.Fprintln(os.Stderr, "Usage:")
		fmt.Fprintln(os.Stderr, "  webviewd config init [--path PATH] [--force]")
		fmt.Fprintln(os.Stderr, "  webviewd config validate [--path PATH]")
		fmt.Fprintln(os.Stderr, "  webviewd config print [--path PATH] [--defaults]")
		return 2
	}

	switch args[0] {
	case "init":
		fs := flag.NewFlagSet("init", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/webviewd/config.yaml)")
		force := fs.Bool("force", false, "Overwrite an existing file")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		written, err := initConfig(*path, *force)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Printf("wrote %s\n", written)
		return 0

	case "validate":
		fs := flag.NewFlagSet("validate", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/webviewd/config.yaml)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		if _, err := loadConfig(*path); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Println("config: ok")
		return 0

	case "print":
		fs := flag.NewFlagSet("print", flag.ContinueOnError)
		fs.SetOutput(os.Stderr)
		path := fs.String("path", "", "Config file path (default: ~/.config/webviewd/config.yaml)")
		printDefaults := fs.Bool("defaults", false, "Print built-in defaults (no file, no environment)")
		if err := fs.Parse(args[1:]); err != nil {
			return 2
		}

		cfg := config.DefaultConfig()
		if !*printDefaults {
			var err error
			if cfg, err = loadConfig(*path); err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 1
			}
		}
		data, err := cfg.Marshal()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		fmt.Print(string(data))
		return 0

	default:
		fmt.Fprintf(os.Stderr, "Unknown config command: %s\n", args[0])
		return 2
	}
}

// initConfig writes the built-in defaults to path, or to the standard
// location when path is empty. An existing file is kept unless force is set.
func initConfig(path string, force bool) (string, error) {
	target := path
	if target == "" {
		var err error
		if target, err = config.DefaultConfigPath(); err != nil {
			return "", err
		}
	}
	if _, err := os.Stat(target); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use --force to overwrite)", target)
	}

	cfg := config.DefaultConfig()
	if path == "" {
		return target, cfg.Save()
	}
	return target, cfg.SaveTo(path)
}
