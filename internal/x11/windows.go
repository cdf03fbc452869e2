package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/motif"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// WindowSpec describes a top-level window to create.
type WindowSpec struct {
	Title     string
	X         int
	Y         int
	Width     int
	Height    int
	Resizable bool
	Frameless bool
}

// CreateWindow creates, decorates and maps a top-level window. The window
// participates in WM_DELETE_WINDOW so close requests surface as events
// instead of killing the client.
func (c *Connection) CreateWindow(spec WindowSpec) (xproto.Window, error) {
	win, err := xwindow.Generate(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate window id: %w", err)
	}

	err = win.CreateChecked(c.Root, spec.X, spec.Y, spec.Width, spec.Height,
		xproto.CwBackPixel|xproto.CwEventMask,
		Pixel(255, 255, 255),
		xproto.EventMaskStructureNotify|xproto.EventMaskExposure)
	if err != nil {
		return 0, fmt.Errorf("failed to create window: %w", err)
	}

	if err := c.SetTitle(win.Id, spec.Title); err != nil {
		win.Destroy()
		return 0, err
	}

	if err := icccm.WmProtocolsSet(c.XUtil, win.Id, []string{"WM_DELETE_WINDOW"}); err != nil {
		win.Destroy()
		return 0, fmt.Errorf("failed to set WM_PROTOCOLS: %w", err)
	}

	if !spec.Resizable {
		hints := &icccm.NormalHints{
			Flags:     icccm.SizeHintPMinSize | icccm.SizeHintPMaxSize,
			MinWidth:  uint(spec.Width),
			MinHeight: uint(spec.Height),
			MaxWidth:  uint(spec.Width),
			MaxHeight: uint(spec.Height),
		}
		if err := icccm.WmNormalHintsSet(c.XUtil, win.Id, hints); err != nil {
			win.Destroy()
			return 0, fmt.Errorf("failed to set size hints: %w", err)
		}
	}

	if spec.Frameless {
		hints := &motif.Hints{
			Flags:      motif.HintDecorations,
			Decoration: motif.DecorationNone,
		}
		if err := motif.WmHintsSet(c.XUtil, win.Id, hints); err != nil {
			win.Destroy()
			return 0, fmt.Errorf("failed to set motif hints: %w", err)
		}
	}

	win.Map()
	return win.Id, nil
}

// SetTitle sets both the EWMH (UTF-8) and ICCCM window names.
func (c *Connection) SetTitle(windowID xproto.Window, title string) error {
	if err := ewmh.WmNameSet(c.XUtil, windowID, title); err != nil {
		return fmt.Errorf("failed to set _NET_WM_NAME: %w", err)
	}
	if err := icccm.WmNameSet(c.XUtil, windowID, title); err != nil {
		return fmt.Errorf("failed to set WM_NAME: %w", err)
	}
	return nil
}

// SetBackground changes the window background pixel and repaints it.
func (c *Connection) SetBackground(windowID xproto.Window, r, g, b uint8) error {
	conn := c.XUtil.Conn()
	err := xproto.ChangeWindowAttributesChecked(conn, windowID,
		xproto.CwBackPixel, []uint32{Pixel(r, g, b)}).Check()
	if err != nil {
		return fmt.Errorf("failed to set background: %w", err)
	}
	return xproto.ClearAreaChecked(conn, false, windowID, 0, 0, 0, 0).Check()
}

// DestroyWindow destroys a window created by CreateWindow.
func (c *Connection) DestroyWindow(windowID xproto.Window) {
	xwindow.New(c.XUtil, windowID).Destroy()
}

// Pixel packs an RGB triple for a 24-bit TrueColor visual. X core windows
// have no alpha channel.
func Pixel(r, g, b uint8) uint32 {
	return uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}
