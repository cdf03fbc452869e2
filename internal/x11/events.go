package x11

import (
	"errors"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/xprop"
)

// ErrDisconnected is returned by Pump once the X server connection is gone.
var ErrDisconnected = errors.New("x11 connection closed")

// EventKind classifies window events that matter to callers driving the loop.
type EventKind int

const (
	// CloseRequested means the user asked the window manager to close the window.
	CloseRequested EventKind = iota + 1
	// Destroyed means the window no longer exists on the server.
	Destroyed
)

// WindowEvent is a lifecycle event for one window.
type WindowEvent struct {
	Window xproto.Window
	Kind   EventKind
}

// Pump reads pending events. With block set it first waits for at least one
// event. Events that are not lifecycle events are consumed and dropped.
func (c *Connection) Pump(block bool) ([]WindowEvent, error) {
	conn := c.XUtil.Conn()
	var out []WindowEvent

	if block {
		ev, xerr := conn.WaitForEvent()
		if ev == nil && xerr == nil {
			return nil, ErrDisconnected
		}
		out = c.appendEvent(out, ev)
	}

	for {
		ev, xerr := conn.PollForEvent()
		if ev == nil && xerr == nil {
			return out, nil
		}
		out = c.appendEvent(out, ev)
	}
}

func (c *Connection) appendEvent(out []WindowEvent, ev xgb.Event) []WindowEvent {
	switch e := ev.(type) {
	case xproto.ClientMessageEvent:
		if c.isDeleteWindow(e) {
			out = append(out, WindowEvent{Window: e.Window, Kind: CloseRequested})
		}
	case xproto.DestroyNotifyEvent:
		out = append(out, WindowEvent{Window: e.Window, Kind: Destroyed})
	}
	return out
}

func (c *Connection) isDeleteWindow(e xproto.ClientMessageEvent) bool {
	if e.Format != 32 {
		return false
	}
	typeName, err := xprop.AtomName(c.XUtil, e.Type)
	if err != nil || typeName != "WM_PROTOCOLS" {
		return false
	}
	protoName, err := xprop.AtomName(c.XUtil, xproto.Atom(e.Data.Data32[0]))
	return err == nil && protoName == "WM_DELETE_WINDOW"
}
