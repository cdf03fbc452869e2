package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/1broseidon/webviewd/internal/logging"
	"github.com/1broseidon/webviewd/internal/platform"
	"github.com/1broseidon/webviewd/internal/registry"
)

var (
	// ErrUnknownOp is returned by Host.Call for names no operation is
	// registered under.
	ErrUnknownOp = errors.New("unknown operation")
	// ErrHostClosed is returned once Close has been called.
	ErrHostClosed = errors.New("host closed")
)

// Status describes a running host.
type Status struct {
	Backend   string        `json:"backend"`
	Instances []registry.ID `json:"instances"`
	Uptime    time.Duration `json:"-"`
}

// Host owns one Registry and one Backend and runs every operation on a single
// goroutine locked to its OS thread. Callers on any goroutine submit work
// through Call; the registry and native handles never leave the owner.
type Host struct {
	bridge  *Bridge
	ops     map[string]Op
	backend platform.Backend
	logger  *logging.Logger
	started time.Time

	tasks     chan func()
	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewHost starts the owner goroutine for backend. Bridge options are passed
// through to the Bridge the host creates.
func NewHost(backend platform.Backend, opts ...Option) *Host {
	b := New(registry.New[platform.Handle](), backend, opts...)
	h := &Host{
		bridge:  b,
		ops:     b.Ops(),
		backend: backend,
		logger:  b.logger.Named("host"),
		started: time.Now(),
		tasks:   make(chan func()),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go h.run()
	return h
}

func (h *Host) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(h.done)

	h.logger.Info("host started", zap.String("backend", h.backend.Name()))
	for {
		select {
		case task := <-h.tasks:
			task()
		case <-h.quit:
			n := h.bridge.ExitAll()
			if c, ok := h.backend.(io.Closer); ok {
				if err := c.Close(); err != nil {
					h.logger.Warn("backend close failed", zap.Error(err))
				}
			}
			h.logger.Info("host stopped", zap.Int("exited", n))
			return
		}
	}
}

// Call runs the named operation on the owner context and returns its
// envelope. The error is non-nil only when no envelope could be produced:
// unknown op, host closed, or ctx done before the result arrived. An
// operation that has started is not interrupted by ctx.
func (h *Host) Call(ctx context.Context, name string, payload []byte) ([]byte, error) {
	op, ok := h.ops[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOp, name)
	}

	reply := make(chan (<-chan []byte), 1)
	err := h.submit(ctx, func() {
		if op.Async != nil {
			reply <- op.Async(payload)
			return
		}
		out := make(chan []byte, 1)
		out <- op.Sync(payload)
		reply <- out
	})
	if err != nil {
		return nil, err
	}

	var result <-chan []byte
	select {
	case result = <-reply:
	case <-h.done:
		return nil, ErrHostClosed
	case <-ctx.Done():
		go func() {
			select {
			case r := <-reply:
				h.dropped(name, r)
			case <-h.done:
			}
		}()
		return nil, ctx.Err()
	}

	select {
	case data := <-result:
		return data, nil
	case <-ctx.Done():
		go h.dropped(name, result)
		return nil, ctx.Err()
	}
}

// dropped logs the envelope of a call whose caller gave up after the task
// was accepted. A window created that way stays registered until exited or
// until Close.
func (h *Host) dropped(name string, result <-chan []byte) {
	select {
	case data := <-result:
		h.logger.Warn("caller gone, envelope dropped",
			zap.String("op", name),
			zap.ByteString("envelope", data))
	case <-h.done:
	}
}

// Status reports the backend, live instances and uptime.
func (h *Host) Status(ctx context.Context) (Status, error) {
	st := Status{Backend: h.backend.Name(), Uptime: time.Since(h.started)}
	reply := make(chan []registry.ID, 1)
	if err := h.submit(ctx, func() { reply <- h.bridge.Instances() }); err != nil {
		return Status{}, err
	}
	select {
	case st.Instances = <-reply:
		return st, nil
	case <-h.done:
		return Status{}, ErrHostClosed
	case <-ctx.Done():
		return Status{}, ctx.Err()
	}
}

func (h *Host) submit(ctx context.Context, task func()) error {
	select {
	case h.tasks <- task:
		return nil
	case <-h.quit:
		return ErrHostClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close exits every remaining window, closes the backend if it implements
// io.Closer, and stops the owner goroutine. It is safe to call more than once.
func (h *Host) Close() error {
	h.closeOnce.Do(func() {
		close(h.quit)
	})
	<-h.done
	return nil
}
