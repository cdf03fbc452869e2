package x11

import "testing"

func TestPixel(t *testing.T) {
	tests := []struct {
		r, g, b uint8
		want    uint32
	}{
		{0, 0, 0, 0x000000},
		{255, 255, 255, 0xffffff},
		{0x12, 0x34, 0x56, 0x123456},
		{255, 0, 0, 0xff0000},
	}
	for _, tt := range tests {
		if got := Pixel(tt.r, tt.g, tt.b); got != tt.want {
			t.Errorf("Pixel(%d, %d, %d) = %#06x, want %#06x", tt.r, tt.g, tt.b, got, tt.want)
		}
	}
}

func TestIntersect(t *testing.T) {
	mon := Monitor{X: 0, Y: 0, Width: 1920, Height: 1080}

	got := Intersect(mon, Monitor{X: 0, Y: 32, Width: 1920, Height: 2048})
	want := Monitor{X: 0, Y: 32, Width: 1920, Height: 1048}
	if got != want {
		t.Fatalf("Intersect() = %+v, want %+v", got, want)
	}

	if got := Intersect(mon, Monitor{X: 1920, Y: 0, Width: 100, Height: 100}); got.Width != 0 || got.Height != 0 {
		t.Fatalf("Intersect() of disjoint rects = %+v, want empty", got)
	}
}

func TestCenterIn(t *testing.T) {
	tests := []struct {
		name   string
		mon    Monitor
		w, h   int
		wantX  int
		wantY  int
	}{
		{"primary", Monitor{Width: 1920, Height: 1080}, 320, 240, 800, 420},
		{"offset monitor", Monitor{X: 1920, Y: 0, Width: 1280, Height: 1024}, 640, 480, 2240, 272},
		{"larger than monitor", Monitor{X: 100, Y: 50, Width: 800, Height: 600}, 1000, 700, 100, 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := CenterIn(tt.mon, tt.w, tt.h)
			if x != tt.wantX || y != tt.wantY {
				t.Errorf("CenterIn() = (%d, %d), want (%d, %d)", x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestMonitorContains(t *testing.T) {
	mon := Monitor{X: 1920, Y: 0, Width: 1280, Height: 1024}
	if !mon.Contains(1920, 0) {
		t.Error("top-left corner should be inside")
	}
	if mon.Contains(3200, 10) {
		t.Error("right edge is exclusive")
	}
	if _, ok := monitorAt([]Monitor{{Width: 1920, Height: 1080}, mon}, 2000, 500); !ok {
		t.Error("monitorAt() did not find the second monitor")
	}
	if _, ok := monitorAt([]Monitor{mon}, 10, 10); ok {
		t.Error("monitorAt() matched a point outside every monitor")
	}
}
