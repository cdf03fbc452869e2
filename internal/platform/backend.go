package platform

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNulByte is returned when text bound for a native call contains a NUL
// byte and therefore cannot be represented as a C string.
var ErrNulByte = errors.New("text contains NUL byte")

// MaxDimension is the largest width or height a native window can take.
const MaxDimension = 65535

// Handle is an opaque native window handle. Only the Backend that created a
// Handle may interpret it.
type Handle any

// Color is a background color as four unsigned byte channels.
type Color struct {
	R uint8
	G uint8
	B uint8
	A uint8
}

// WindowOptions describes a window to create.
type WindowOptions struct {
	Title     string
	URL       string
	Width     int
	Height    int
	Resizable bool
	Debug     bool
	Frameless bool
}

// Backend abstracts the native webview library. Implementations are not safe
// for concurrent use; every call for a given Backend must come from the same
// execution context.
type Backend interface {
	// Name identifies the backend in logs and status output.
	Name() string
	Create(opts WindowOptions) (Handle, error)
	// Exit destroys the window. The handle must not be used afterwards.
	Exit(h Handle)
	// Eval runs js in the window and returns 0 on success.
	Eval(h Handle, js string) int
	SetColor(h Handle, c Color)
	SetTitle(h Handle, title string)
	SetFullscreen(h Handle, fullscreen bool)
	// Loop advances the window's event loop by one step. blocking != 0 waits
	// for events. The result is 0 to keep going and non-zero when the window
	// should stop being driven.
	Loop(h Handle, blocking int) int
}

// NativeText validates s for hand-off to a native call. Text is never
// truncated at an embedded NUL; it is rejected instead.
func NativeText(s string) (string, error) {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return "", fmt.Errorf("%w at offset %d", ErrNulByte, i)
	}
	return s, nil
}

// CheckSize rejects window dimensions outside 1..MaxDimension.
func CheckSize(width, height int) error {
	if width < 1 || width > MaxDimension || height < 1 || height > MaxDimension {
		return fmt.Errorf("invalid window size %dx%d: dimensions must be in 1..%d", width, height, MaxDimension)
	}
	return nil
}

// Flag converts a boolean to the integer flag form native APIs take.
func Flag(b bool) int {
	if b {
		return 1
	}
	return 0
}
