package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/webviewd/internal/bridge"
	"github.com/1broseidon/webviewd/internal/platform"
	"github.com/1broseidon/webviewd/internal/registry"
)

// DefaultTimeout bounds one request/response exchange.
const DefaultTimeout = 5 * time.Second

// Client handles IPC communication with the daemon.
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a client for the daemon listening on socketPath.
func NewClient(socketPath string) *Client {
	return &Client{
		socketPath: socketPath,
		timeout:    DefaultTimeout,
	}
}

// WithTimeout returns a copy of c using timeout for each exchange. Blocking
// loop steps need more than the default.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	cp := *c
	cp.timeout = timeout
	return &cp
}

// Call sends a raw payload for op and returns the envelope line without the
// trailing newline.
func (c *Client) Call(op string, payload json.RawMessage) ([]byte, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	defer conn.Close()

	if c.timeout > 0 {
		conn.SetDeadline(time.Now().Add(c.timeout))
	}

	line, err := (&Request{Op: op, Payload: payload}).Marshal()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	if _, err := conn.Write(line); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	resp, err := bufio.NewReader(conn).ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp[:len(resp)-1], nil
}

// invoke calls op with params and returns the decoded ok payload. An err
// envelope becomes a *RemoteError.
func invoke[T any](c *Client, op string, params any) (*T, error) {
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	data, err := c.Call(op, payload)
	if err != nil {
		return nil, err
	}

	var env bridge.Response[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if env.Err != nil {
		return nil, &RemoteError{Op: op, Message: *env.Err}
	}
	if env.Ok == nil {
		return nil, fmt.Errorf("%s: response has neither ok nor err", op)
	}
	return env.Ok, nil
}

// New creates a window and returns its identifier.
func (c *Client) New(p bridge.NewParams) (registry.ID, error) {
	res, err := invoke[bridge.NewResult](c, bridge.OpNew, p)
	if err != nil {
		return 0, err
	}
	return res.ID, nil
}

// Exit destroys the window.
func (c *Client) Exit(id registry.ID) error {
	_, err := invoke[bridge.Empty](c, bridge.OpExit, bridge.IDParams{ID: id})
	return err
}

// Eval runs js in the window.
func (c *Client) Eval(id registry.ID, js string) error {
	_, err := invoke[bridge.Empty](c, bridge.OpEval, bridge.EvalParams{ID: id, JS: js})
	return err
}

// SetColor sets the window background.
func (c *Client) SetColor(id registry.ID, col platform.Color) error {
	_, err := invoke[bridge.Empty](c, bridge.OpSetColor, bridge.SetColorParams{
		ID: id, R: col.R, G: col.G, B: col.B, A: col.A,
	})
	return err
}

// SetTitle sets the window title.
func (c *Client) SetTitle(id registry.ID, title string) error {
	_, err := invoke[bridge.Empty](c, bridge.OpSetTitle, bridge.SetTitleParams{ID: id, Title: title})
	return err
}

// SetFullscreen enters or leaves fullscreen.
func (c *Client) SetFullscreen(id registry.ID, fullscreen bool) error {
	_, err := invoke[bridge.Empty](c, bridge.OpSetFullscreen, bridge.SetFullscreenParams{ID: id, Fullscreen: fullscreen})
	return err
}

// Loop advances the window's event loop once and returns the native code.
func (c *Client) Loop(id registry.ID, blocking bool) (int, error) {
	res, err := invoke[bridge.LoopResult](c, bridge.OpLoop, bridge.LoopParams{
		ID:       id,
		Blocking: int32(platform.Flag(blocking)),
	})
	if err != nil {
		return 0, err
	}
	return res.Code, nil
}

// GetUserData checks that the window exists.
func (c *Client) GetUserData(id registry.ID) error {
	_, err := invoke[bridge.Empty](c, bridge.OpGetUserData, bridge.IDParams{ID: id})
	return err
}

// Status queries the daemon status.
func (c *Client) Status() (*StatusData, error) {
	return invoke[StatusData](c, OpStatus, struct{}{})
}
