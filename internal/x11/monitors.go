package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
)

// ErrNoMonitors is returned when RandR reports no enabled CRTC.
var ErrNoMonitors = errors.New("no monitors found")

// Monitor is the root-relative rectangle of one enabled output.
type Monitor struct {
	ID     int
	Name   string
	X      int
	Y      int
	Width  int
	Height int
}

// Contains reports whether the root coordinate (x, y) lies on m.
func (m Monitor) Contains(x, y int) bool {
	return x >= m.X && x < m.X+m.Width && y >= m.Y && y < m.Y+m.Height
}

// Monitors lists enabled outputs through RandR, one per active CRTC.
func (c *Connection) Monitors() ([]Monitor, error) {
	xc := c.XUtil.Conn()
	if err := randr.Init(xc); err != nil {
		return nil, fmt.Errorf("randr init failed: %w", err)
	}
	res, err := randr.GetScreenResources(xc, c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var out []Monitor
	for i, crtc := range res.Crtcs {
		info, err := randr.GetCrtcInfo(xc, crtc, res.ConfigTimestamp).Reply()
		if err != nil || info.Width == 0 || info.Height == 0 || len(info.Outputs) == 0 {
			continue
		}
		name := fmt.Sprintf("Monitor%d", i)
		if oi, err := randr.GetOutputInfo(xc, info.Outputs[0], res.ConfigTimestamp).Reply(); err == nil {
			name = string(oi.Name)
		}
		out = append(out, Monitor{
			ID:     i,
			Name:   name,
			X:      int(info.X),
			Y:      int(info.Y),
			Width:  int(info.Width),
			Height: int(info.Height),
		})
	}
	return out, nil
}

// PlacementMonitor picks the monitor new windows open on: the one holding
// the focused window's center, else the one under the pointer, else the
// first. The result is clipped to the current desktop's work area.
func (c *Connection) PlacementMonitor() (Monitor, error) {
	monitors, err := c.Monitors()
	if err != nil {
		return Monitor{}, err
	}
	if len(monitors) == 0 {
		return Monitor{}, ErrNoMonitors
	}

	mon := monitors[0]
	for _, locate := range []func() (int, int, bool){c.focusCenter, c.pointer} {
		if x, y, ok := locate(); ok {
			if m, found := monitorAt(monitors, x, y); found {
				mon = m
				break
			}
		}
	}

	if wa, ok := c.workArea(); ok {
		if clipped := Intersect(mon, wa); clipped.Width > 0 && clipped.Height > 0 {
			clipped.ID, clipped.Name = mon.ID, mon.Name
			mon = clipped
		}
	}
	return mon, nil
}

func monitorAt(monitors []Monitor, x, y int) (Monitor, bool) {
	for _, m := range monitors {
		if m.Contains(x, y) {
			return m, true
		}
	}
	return Monitor{}, false
}

// focusCenter returns the root coordinate of the focused window's center.
func (c *Connection) focusCenter() (int, int, bool) {
	win, err := ewmh.ActiveWindowGet(c.XUtil)
	if err != nil || win == 0 {
		return 0, 0, false
	}
	xc := c.XUtil.Conn()
	geom, err := xproto.GetGeometry(xc, xproto.Drawable(win)).Reply()
	if err != nil {
		return 0, 0, false
	}
	pos, err := xproto.TranslateCoordinates(xc, win, c.Root, 0, 0).Reply()
	if err != nil {
		return 0, 0, false
	}
	return int(pos.DstX) + int(geom.Width)/2, int(pos.DstY) + int(geom.Height)/2, true
}

func (c *Connection) pointer() (int, int, bool) {
	p, err := xproto.QueryPointer(c.XUtil.Conn(), c.Root).Reply()
	if err != nil {
		return 0, 0, false
	}
	return int(p.RootX), int(p.RootY), true
}

// workArea returns _NET_WORKAREA for the current desktop, excluding panels
// and docks.
func (c *Connection) workArea() (Monitor, bool) {
	areas, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil || len(areas) == 0 {
		return Monitor{}, false
	}
	idx := 0
	if cur, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil && int(cur) < len(areas) {
		idx = int(cur)
	}
	wa := areas[idx]
	return Monitor{X: wa.X, Y: wa.Y, Width: int(wa.Width), Height: int(wa.Height)}, true
}

// Intersect returns the overlap of a and b. Width and Height are zero when
// they do not overlap.
func Intersect(a, b Monitor) Monitor {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.Width, b.X+b.Width)
	y2 := min(a.Y+a.Height, b.Y+b.Height)
	if x2 <= x1 || y2 <= y1 {
		return Monitor{}
	}
	return Monitor{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// CenterIn returns the top-left corner that centers a width x height window
// on mon. Windows larger than the monitor are pinned to its top-left corner.
func CenterIn(mon Monitor, width, height int) (x, y int) {
	x = max(mon.X+(mon.Width-width)/2, mon.X)
	y = max(mon.Y+(mon.Height-height)/2, mon.Y)
	return x, y
}
