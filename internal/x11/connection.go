// Package x11 drives top-level X11 windows for the native backend.
//
// A Connection is not safe for concurrent use; it belongs to the goroutine
// that created it.
package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// Connection is one client connection plus the root window of its default
// screen.
type Connection struct {
	XUtil   *xgbutil.XUtil
	Root    xproto.Window
	Display string
}

// Connect opens display, e.g. ":1". An empty display uses $DISPLAY.
func Connect(display string) (*Connection, error) {
	xu, err := xgbutil.NewConnDisplay(display)
	if err != nil {
		if display == "" {
			display = "$DISPLAY"
		}
		return nil, fmt.Errorf("connect %s: %w", display, err)
	}
	return &Connection{XUtil: xu, Root: xu.RootWin(), Display: display}, nil
}

// Close disconnects from the server.
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
