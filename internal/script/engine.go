// Package script evaluates page scripts for a single window.
//
// Each window owns one Engine. An Engine is not safe for concurrent use; it
// runs on the same execution context as the window it belongs to.
package script

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// DefaultTimeout bounds a single Run call when Options.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// ErrTimeout is returned when a script runs past its deadline.
var ErrTimeout = errors.New("script timed out")

// Page is the window-visible state exposed to scripts.
type Page struct {
	Title string
	URL   string
}

// Options configures an Engine.
type Options struct {
	Timeout time.Duration
	// Console receives console.* output. Nil discards it.
	Console func(level, msg string)
}

// Engine wraps a goja runtime with a page-shaped global scope.
type Engine struct {
	vm       *goja.Runtime
	timeout  time.Duration
	console  func(level, msg string)
	document *goja.Object

	// mu orders timeout interrupts against the end of a run. run is bumped
	// when a run starts and again when it ends, so it is odd only while a
	// script executes.
	mu  sync.Mutex
	run uint64
}

// New creates an engine for page.
func New(opts Options, page Page) (*Engine, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	e := &Engine{
		vm:      goja.New(),
		timeout: timeout,
		console: opts.Console,
	}
	e.vm.SetMaxCallStackSize(1024)

	if err := e.setupGlobals(page); err != nil {
		return nil, fmt.Errorf("failed to set up script globals: %w", err)
	}
	return e, nil
}

func (e *Engine) setupGlobals(page Page) error {
	// No host access from page scripts.
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := e.vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	location := e.vm.NewObject()
	if err := location.Set("href", page.URL); err != nil {
		return err
	}

	document := e.vm.NewObject()
	if err := document.Set("title", page.Title); err != nil {
		return err
	}
	e.document = document

	window := e.vm.GlobalObject()
	if err := window.Set("window", window); err != nil {
		return err
	}
	if err := window.Set("location", location); err != nil {
		return err
	}
	if err := window.Set("document", document); err != nil {
		return err
	}

	console := e.vm.NewObject()
	for _, level := range []string{"log", "info", "warn", "error", "debug"} {
		if err := console.Set(level, e.consoleFunc(level)); err != nil {
			return err
		}
	}
	return window.Set("console", console)
}

func (e *Engine) consoleFunc(level string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if e.console == nil {
			return goja.Undefined()
		}
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, arg.String())
		}
		e.console(level, strings.Join(parts, " "))
		return goja.Undefined()
	}
}

// SetTitle updates document.title.
func (e *Engine) SetTitle(title string) {
	_ = e.document.Set("title", title)
}

// Title returns document.title as the page currently sees it.
func (e *Engine) Title() string {
	v := e.document.Get("title")
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}

// Run evaluates js. Syntax errors, uncaught exceptions and timeouts are
// returned as errors.
func (e *Engine) Run(js string) error {
	e.mu.Lock()
	e.run++
	run := e.run
	e.mu.Unlock()

	timer := time.AfterFunc(e.timeout, func() { e.expire(run) })
	defer func() {
		timer.Stop()
		e.mu.Lock()
		e.run++
		e.vm.ClearInterrupt()
		e.mu.Unlock()
	}()

	if _, err := e.vm.RunString(js); err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return ErrTimeout
		}
		return err
	}
	return nil
}

// expire interrupts the script if run is still executing. A timer that fires
// after its run has finished is a no-op.
func (e *Engine) expire(run uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.run == run {
		e.vm.Interrupt(ErrTimeout)
	}
}
