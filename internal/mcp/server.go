// Package mcp serves the webview operations as Model Context Protocol tools
// over stdio.
package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/webviewd/internal/bridge"
	"github.com/1broseidon/webviewd/internal/logging"
)

const (
	ServerName    = "webviewd"
	ServerVersion = "0.1.0"
)

// Caller runs named operations. *bridge.Host implements it.
type Caller interface {
	Call(ctx context.Context, name string, payload []byte) ([]byte, error)
	Status(ctx context.Context) (bridge.Status, error)
}

// Server is the MCP server. Every tool forwards to the caller and returns the
// operation's {ok|err} envelope as text.
type Server struct {
	mcpServer *mcpsdk.Server
	caller    Caller
	logger    *logging.Logger
}

// NewServer creates an MCP server over caller. A nil logger discards output.
func NewServer(caller Caller, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		caller: caller,
		logger: logger.Named("mcp"),
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving on stdio")
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        bridge.OpNew,
		Description: "Create a native window loading url. Returns {\"ok\":{\"id\":N}}; pass the id to every other webview_* tool.",
	}, s.handleNew)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        bridge.OpExit,
		Description: "Destroy a window. The id is invalid afterwards; exiting it again reports not found.",
	}, s.handleExit)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        bridge.OpEval,
		Description: "Run JavaScript in the window's page. Reports \"could not evaluate script\" when the script throws or times out.",
	}, s.handleEval)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        bridge.OpSetColor,
		Description: "Set the window background color from RGBA channels.",
	}, s.handleSetColor)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        bridge.OpSetTitle,
		Description: "Set the window title.",
	}, s.handleSetTitle)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        bridge.OpSetFullscreen,
		Description: "Enter or leave fullscreen.",
	}, s.handleSetFullscreen)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        bridge.OpLoop,
		Description: "Advance the window's event loop one step. Returns {\"ok\":{\"code\":N}}; a non-zero code means the window was closed and should no longer be driven.",
	}, s.handleLoop)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        bridge.OpGetUserData,
		Description: "Check that a window id is live. Returns an empty ok payload.",
	}, s.handleGetUserData)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "status",
		Description: "Report the backend name, live window ids and uptime.",
	}, s.handleStatus)
}
