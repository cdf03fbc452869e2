//go:build linux

package platform

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"go.uber.org/zap"

	"github.com/1broseidon/webviewd/internal/logging"
	"github.com/1broseidon/webviewd/internal/script"
	"github.com/1broseidon/webviewd/internal/x11"
)

type x11Window struct {
	id     xproto.Window
	engine *script.Engine
	title  string
	closed bool
}

// LinuxBackend drives native X11 top-level windows over an xgb connection.
type LinuxBackend struct {
	conn         *x11.Connection
	logger       *logging.Logger
	evalTimeout  time.Duration
	windows      map[xproto.Window]*x11Window
	disconnected bool
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection, logger *logging.Logger, evalTimeout time.Duration) *LinuxBackend {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LinuxBackend{
		conn:        conn,
		logger:      logger,
		evalTimeout: evalTimeout,
		windows:     make(map[xproto.Window]*x11Window),
	}
}

// NewNativeBackend opens a fresh X11 connection on display (empty means
// $DISPLAY) and wraps it in a backend.
func NewNativeBackend(display string, logger *logging.Logger, evalTimeout time.Duration) (Backend, error) {
	conn, err := x11.Connect(display)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return NewLinuxBackend(conn, logger, evalTimeout), nil
}

// Close closes the underlying X11 connection.
func (b *LinuxBackend) Close() error {
	if b != nil && b.conn != nil && !b.disconnected {
		b.disconnected = true
		b.conn.Close()
	}
	return nil
}

// Name implements Backend.
func (b *LinuxBackend) Name() string { return "x11" }

// Create implements Backend.
func (b *LinuxBackend) Create(opts WindowOptions) (Handle, error) {
	if err := CheckSize(opts.Width, opts.Height); err != nil {
		return nil, err
	}
	spec := x11.WindowSpec{
		Title:     opts.Title,
		Width:     opts.Width,
		Height:    opts.Height,
		Resizable: opts.Resizable,
		Frameless: opts.Frameless,
	}
	if mon, err := b.conn.PlacementMonitor(); err == nil {
		spec.X, spec.Y = x11.CenterIn(mon, opts.Width, opts.Height)
	} else {
		b.logger.Debug("no active monitor, placing window at origin", zap.Error(err))
	}

	engine, err := script.New(scriptOptions(b.logger, b.evalTimeout, opts), script.Page{
		Title: opts.Title,
		URL:   opts.URL,
	})
	if err != nil {
		return nil, err
	}

	id, err := b.conn.CreateWindow(spec)
	if err != nil {
		return nil, err
	}
	if err := b.conn.FocusWindow(id); err != nil {
		b.logger.Debug("focus request failed", zap.Uint32("window", uint32(id)), zap.Error(err))
	}

	w := &x11Window{id: id, engine: engine, title: opts.Title}
	b.windows[id] = w
	if opts.Debug {
		b.logger.Info("window created",
			zap.Uint32("window", uint32(id)),
			zap.String("url", opts.URL),
			zap.Int("x", spec.X),
			zap.Int("y", spec.Y))
	}
	return w, nil
}

// Exit implements Backend.
func (b *LinuxBackend) Exit(h Handle) {
	w := b.window(h)
	delete(b.windows, w.id)
	if !b.disconnected {
		b.conn.DestroyWindow(w.id)
	}
	w.engine = nil
}

// Eval implements Backend.
func (b *LinuxBackend) Eval(h Handle, js string) int {
	w := b.window(h)
	if err := w.engine.Run(js); err != nil {
		b.logger.Debug("script failed", zap.Uint32("window", uint32(w.id)), zap.Error(err))
		return 1
	}

	// Scripts may retitle the page; mirror that onto the native window.
	if title := w.engine.Title(); title != w.title {
		b.setTitle(w, title)
	}
	return 0
}

// SetColor implements Backend.
func (b *LinuxBackend) SetColor(h Handle, c Color) {
	w := b.window(h)
	if err := b.conn.SetBackground(w.id, c.R, c.G, c.B); err != nil {
		b.logger.Warn("set background failed", zap.Uint32("window", uint32(w.id)), zap.Error(err))
	}
}

// SetTitle implements Backend.
func (b *LinuxBackend) SetTitle(h Handle, title string) {
	w := b.window(h)
	w.engine.SetTitle(title)
	b.setTitle(w, title)
}

func (b *LinuxBackend) setTitle(w *x11Window, title string) {
	w.title = title
	if err := b.conn.SetTitle(w.id, title); err != nil {
		b.logger.Warn("set title failed", zap.Uint32("window", uint32(w.id)), zap.Error(err))
	}
}

// SetFullscreen implements Backend.
func (b *LinuxBackend) SetFullscreen(h Handle, fullscreen bool) {
	w := b.window(h)
	if err := b.conn.SetFullscreen(w.id, fullscreen); err != nil {
		b.logger.Warn("fullscreen request failed", zap.Uint32("window", uint32(w.id)), zap.Error(err))
	}
}

// Loop implements Backend. Events for every window on the connection are
// consumed; the return value only describes h.
func (b *LinuxBackend) Loop(h Handle, blocking int) int {
	w := b.window(h)
	if w.closed || b.disconnected {
		return 1
	}

	events, err := b.conn.Pump(blocking != 0)
	for _, ev := range events {
		if target, ok := b.windows[ev.Window]; ok {
			target.closed = true
		}
	}
	if err != nil {
		if errors.Is(err, x11.ErrDisconnected) {
			b.logger.Warn("x11 connection lost")
			b.disconnected = true
		}
		return 1
	}

	if w.closed {
		return 1
	}
	return 0
}

func (b *LinuxBackend) window(h Handle) *x11Window {
	w, ok := h.(*x11Window)
	if !ok {
		panic(fmt.Sprintf("platform: handle %T was not created by the x11 backend", h))
	}
	return w
}
