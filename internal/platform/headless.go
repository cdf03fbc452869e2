package platform

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/1broseidon/webviewd/internal/logging"
	"github.com/1broseidon/webviewd/internal/script"
)

// WindowState is a snapshot of a headless window.
type WindowState struct {
	Title      string
	URL        string
	Width      int
	Height     int
	Resizable  bool
	Debug      bool
	Frameless  bool
	Fullscreen bool
	Color      Color
	Exited     bool
}

type headlessWindow struct {
	state          WindowState
	engine         *script.Engine
	closeRequested bool
}

// HeadlessBackend keeps windows in memory. Scripts run for real; nothing is
// drawn.
type HeadlessBackend struct {
	logger      *logging.Logger
	evalTimeout time.Duration
}

var _ Backend = (*HeadlessBackend)(nil)

// NewHeadlessBackend creates an in-memory backend.
func NewHeadlessBackend(logger *logging.Logger, evalTimeout time.Duration) *HeadlessBackend {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HeadlessBackend{logger: logger, evalTimeout: evalTimeout}
}

// Name implements Backend.
func (b *HeadlessBackend) Name() string { return "headless" }

// Create implements Backend.
func (b *HeadlessBackend) Create(opts WindowOptions) (Handle, error) {
	engine, err := script.New(scriptOptions(b.logger, b.evalTimeout, opts), script.Page{
		Title: opts.Title,
		URL:   opts.URL,
	})
	if err != nil {
		return nil, err
	}

	return &headlessWindow{
		state: WindowState{
			Title:     opts.Title,
			URL:       opts.URL,
			Width:     opts.Width,
			Height:    opts.Height,
			Resizable: opts.Resizable,
			Debug:     opts.Debug,
			Frameless: opts.Frameless,
			Color:     Color{R: 255, G: 255, B: 255, A: 255},
		},
		engine: engine,
	}, nil
}

// Exit implements Backend.
func (b *HeadlessBackend) Exit(h Handle) {
	w := b.window(h)
	w.state.Exited = true
	w.engine = nil
}

// Eval implements Backend.
func (b *HeadlessBackend) Eval(h Handle, js string) int {
	w := b.window(h)
	if err := w.engine.Run(js); err != nil {
		b.logger.Debug("script failed", zap.Error(err))
		return 1
	}
	w.state.Title = w.engine.Title()
	return 0
}

// SetColor implements Backend.
func (b *HeadlessBackend) SetColor(h Handle, c Color) {
	b.window(h).state.Color = c
}

// SetTitle implements Backend.
func (b *HeadlessBackend) SetTitle(h Handle, title string) {
	w := b.window(h)
	w.state.Title = title
	w.engine.SetTitle(title)
}

// SetFullscreen implements Backend.
func (b *HeadlessBackend) SetFullscreen(h Handle, fullscreen bool) {
	b.window(h).state.Fullscreen = fullscreen
}

// Loop implements Backend. There is never anything to wait for, so blocking
// and non-blocking steps behave the same.
func (b *HeadlessBackend) Loop(h Handle, _ int) int {
	w := b.window(h)
	if w.closeRequested || w.state.Exited {
		return 1
	}
	return 0
}

// Inspect returns the current state of the window behind h.
func (b *HeadlessBackend) Inspect(h Handle) (WindowState, bool) {
	w, ok := h.(*headlessWindow)
	if !ok {
		return WindowState{}, false
	}
	return w.state, true
}

// RequestClose simulates the user closing the window; the next Loop step
// reports it.
func (b *HeadlessBackend) RequestClose(h Handle) {
	b.window(h).closeRequested = true
}

func (b *HeadlessBackend) window(h Handle) *headlessWindow {
	w, ok := h.(*headlessWindow)
	if !ok {
		panic(fmt.Sprintf("platform: handle %T was not created by the headless backend", h))
	}
	return w
}

func scriptOptions(logger *logging.Logger, timeout time.Duration, opts WindowOptions) script.Options {
	so := script.Options{Timeout: timeout}
	if opts.Debug {
		console := logger.Named("console").With(zap.String("url", opts.URL))
		so.Console = func(level, msg string) {
			console.Debug(msg, zap.String("level", level))
		}
	}
	return so
}
