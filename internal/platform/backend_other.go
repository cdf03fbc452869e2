//go:build !linux

package platform

import (
	"errors"
	"time"

	"github.com/1broseidon/webviewd/internal/logging"
)

// ErrUnsupported is returned by NewNativeBackend on platforms without a
// native backend.
var ErrUnsupported = errors.New("native backend is only available on linux; use the headless backend")

// NewNativeBackend reports that no native backend exists on this platform.
func NewNativeBackend(string, *logging.Logger, time.Duration) (Backend, error) {
	return nil, ErrUnsupported
}
