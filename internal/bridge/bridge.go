// Package bridge marshals JSON operation requests onto a native webview
// backend.
//
// Each operation decodes its request, resolves the target instance through
// the Registry, calls the Backend and encodes a {ok|err} envelope. A Bridge
// holds no locks: it must be driven from a single execution context, which
// Host provides.
package bridge

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/1broseidon/webviewd/internal/logging"
	"github.com/1broseidon/webviewd/internal/metrics"
	"github.com/1broseidon/webviewd/internal/platform"
	"github.com/1broseidon/webviewd/internal/registry"
)

var (
	// ErrInvalidRequest prefixes decode and text-conversion failures.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrEvalFailed is reported when the backend rejects a script.
	ErrEvalFailed = errors.New("could not evaluate script")
	// ErrInternal is reported when a backend call panics.
	ErrInternal = errors.New("internal error")
)

// NotFoundError is reported for identifiers that were never issued or whose
// window has been exited.
type NotFoundError struct {
	ID registry.ID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not find instance of id %d", e.ID)
}

// Op is one named entry point. Exactly one of Sync and Async is set.
type Op struct {
	Sync  func(data []byte) []byte
	Async func(data []byte) <-chan []byte
}

// Bridge implements the webview operations over one Registry and Backend.
type Bridge struct {
	registry *registry.Registry[platform.Handle]
	backend  platform.Backend
	logger   *logging.Logger
	recorder metrics.Recorder
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *logging.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithRecorder sets the metrics recorder. The default discards observations.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Bridge) {
		if r != nil {
			b.recorder = r
		}
	}
}

// New creates a bridge that owns reg and drives backend.
func New(reg *registry.Registry[platform.Handle], backend platform.Backend, opts ...Option) *Bridge {
	b := &Bridge{
		registry: reg,
		backend:  backend,
		logger:   logging.NewNop(),
		recorder: metrics.Nop{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Ops returns the operation table keyed by operation name.
func (b *Bridge) Ops() map[string]Op {
	return map[string]Op{
		OpNew:           {Sync: b.New},
		OpExit:          {Sync: b.Exit},
		OpEval:          {Sync: b.Eval},
		OpSetColor:      {Sync: b.SetColor},
		OpSetTitle:      {Sync: b.SetTitle},
		OpSetFullscreen: {Sync: b.SetFullscreen},
		OpLoop:          {Sync: b.Loop},
		OpGetUserData:   {Async: b.GetUserData},
	}
}

// New creates a window and registers it under a fresh identifier.
func (b *Bridge) New(data []byte) []byte {
	return run(b, OpNew, data, newFields, func(p *NewParams) (*NewResult, error) {
		title, err := nativeText("title", p.Title)
		if err != nil {
			return nil, err
		}
		url, err := nativeText("url", p.URL)
		if err != nil {
			return nil, err
		}

		h, err := b.backend.Create(platform.WindowOptions{
			Title:     title,
			URL:       url,
			Width:     int(p.Width),
			Height:    int(p.Height),
			Resizable: p.Resizable,
			Debug:     p.Debug,
			Frameless: p.Frameless,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create window: %w", err)
		}
		if h == nil {
			return nil, errors.New("could not create window: backend returned no handle")
		}

		id := b.registry.Allocate()
		b.registry.Insert(id, h)
		b.recorder.SetInstances(b.registry.Len())
		b.logger.Info("instance created", zap.Uint32("id", uint32(id)), zap.String("url", url))
		return &NewResult{ID: id}, nil
	})
}

// Exit destroys a window and forgets its identifier. Exiting an unknown or
// already exited identifier reports not found.
func (b *Bridge) Exit(data []byte) []byte {
	return run(b, OpExit, data, idFields, func(p *IDParams) (*Empty, error) {
		h, ok := b.registry.Remove(p.ID)
		if !ok {
			return nil, &NotFoundError{ID: p.ID}
		}
		b.recorder.SetInstances(b.registry.Len())
		b.backend.Exit(h)
		b.logger.Info("instance exited", zap.Uint32("id", uint32(p.ID)))
		return &Empty{}, nil
	})
}

// Eval runs a script in the window.
func (b *Bridge) Eval(data []byte) []byte {
	return run(b, OpEval, data, evalFields, func(p *EvalParams) (*Empty, error) {
		h, err := b.lookup(p.ID)
		if err != nil {
			return nil, err
		}
		js, err := nativeText("js", p.JS)
		if err != nil {
			return nil, err
		}
		if status := b.backend.Eval(h, js); status != 0 {
			return nil, ErrEvalFailed
		}
		return &Empty{}, nil
	})
}

// SetColor sets the window background color.
func (b *Bridge) SetColor(data []byte) []byte {
	return run(b, OpSetColor, data, setColorFields, func(p *SetColorParams) (*Empty, error) {
		h, err := b.lookup(p.ID)
		if err != nil {
			return nil, err
		}
		b.backend.SetColor(h, platform.Color{R: p.R, G: p.G, B: p.B, A: p.A})
		return &Empty{}, nil
	})
}

// SetTitle sets the window title.
func (b *Bridge) SetTitle(data []byte) []byte {
	return run(b, OpSetTitle, data, setTitleFields, func(p *SetTitleParams) (*Empty, error) {
		h, err := b.lookup(p.ID)
		if err != nil {
			return nil, err
		}
		title, err := nativeText("title", p.Title)
		if err != nil {
			return nil, err
		}
		b.backend.SetTitle(h, title)
		return &Empty{}, nil
	})
}

// SetFullscreen enters or leaves fullscreen.
func (b *Bridge) SetFullscreen(data []byte) []byte {
	return run(b, OpSetFullscreen, data, setFullscreenFields, func(p *SetFullscreenParams) (*Empty, error) {
		h, err := b.lookup(p.ID)
		if err != nil {
			return nil, err
		}
		b.backend.SetFullscreen(h, p.Fullscreen)
		return &Empty{}, nil
	})
}

// Loop advances the window's event loop by one step and reports the native
// status code.
func (b *Bridge) Loop(data []byte) []byte {
	return run(b, OpLoop, data, loopFields, func(p *LoopParams) (*LoopResult, error) {
		h, err := b.lookup(p.ID)
		if err != nil {
			return nil, err
		}
		return &LoopResult{Code: b.backend.Loop(h, int(p.Blocking))}, nil
	})
}

// GetUserData resolves the instance and reports an empty result. It uses the
// asynchronous calling convention, but the lookup happens before it returns
// and the channel is already resolved, so no registry access is deferred.
func (b *Bridge) GetUserData(data []byte) <-chan []byte {
	out := make(chan []byte, 1)
	out <- run(b, OpGetUserData, data, idFields, func(p *IDParams) (*Empty, error) {
		if _, err := b.lookup(p.ID); err != nil {
			return nil, err
		}
		return &Empty{}, nil
	})
	close(out)
	return out
}

// Instances returns the live identifiers in ascending order.
func (b *Bridge) Instances() []registry.ID {
	return b.registry.IDs()
}

// ExitAll exits every registered window and returns how many were exited.
func (b *Bridge) ExitAll() int {
	n := 0
	for _, id := range b.registry.IDs() {
		h, _ := b.registry.Remove(id)
		if err := b.exitQuietly(h); err != nil {
			b.logger.Error("exit failed during shutdown", zap.Uint32("id", uint32(id)), zap.Error(err))
			continue
		}
		n++
	}
	b.recorder.SetInstances(b.registry.Len())
	return n
}

func (b *Bridge) exitQuietly(h platform.Handle) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
	}()
	b.backend.Exit(h)
	return nil
}

func (b *Bridge) lookup(id registry.ID) (platform.Handle, error) {
	h, ok := b.registry.Get(id)
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return h, nil
}

func nativeText(field, s string) (string, error) {
	out, err := platform.NativeText(s)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInvalidRequest, field, err)
	}
	return out, nil
}

// run is the shared decode, invoke, encode path. Every call yields exactly one
// envelope; a panic in fn becomes an internal error envelope.
func run[P, R any](b *Bridge, op string, data []byte, required []string, fn func(*P) (*R, error)) (out []byte) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("operation panicked", zap.String("op", op), zap.Any("panic", r))
			out = b.fail(op, start, fmt.Errorf("%w: %v", ErrInternal, r))
		}
	}()

	var params P
	if err := decode(data, &params, required...); err != nil {
		return b.fail(op, start, err)
	}

	res, err := fn(&params)
	if err != nil {
		return b.fail(op, start, err)
	}

	b.recorder.ObserveOp(op, true, time.Since(start))
	b.logger.Debug("operation ok", zap.String("op", op), zap.Duration("took", time.Since(start)))
	return okResponse(res)
}

func (b *Bridge) fail(op string, start time.Time, err error) []byte {
	b.recorder.ObserveOp(op, false, time.Since(start))
	b.logger.Warn("operation failed", zap.String("op", op), zap.Error(err))
	return errResponse(err)
}
