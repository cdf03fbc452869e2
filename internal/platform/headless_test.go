package platform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHeadlessWindow(t *testing.T) (*HeadlessBackend, Handle) {
	t.Helper()
	b := NewHeadlessBackend(nil, 0)
	h, err := b.Create(WindowOptions{
		Title:     "T",
		URL:       "U",
		Width:     320,
		Height:    240,
		Resizable: true,
	})
	require.NoError(t, err)
	return b, h
}

func TestHeadless_CreateRecordsOptions(t *testing.T) {
	b, h := newHeadlessWindow(t)

	st, ok := b.Inspect(h)
	require.True(t, ok)
	assert.Equal(t, "T", st.Title)
	assert.Equal(t, "U", st.URL)
	assert.Equal(t, 320, st.Width)
	assert.Equal(t, 240, st.Height)
	assert.True(t, st.Resizable)
	assert.False(t, st.Debug)
	assert.False(t, st.Frameless)
	assert.False(t, st.Fullscreen)
}

func TestHeadless_Setters(t *testing.T) {
	b, h := newHeadlessWindow(t)

	b.SetTitle(h, "T2")
	b.SetColor(h, Color{R: 1, G: 2, B: 3, A: 4})
	b.SetFullscreen(h, true)

	st, _ := b.Inspect(h)
	assert.Equal(t, "T2", st.Title)
	assert.Equal(t, Color{R: 1, G: 2, B: 3, A: 4}, st.Color)
	assert.True(t, st.Fullscreen)
}

func TestHeadless_Eval(t *testing.T) {
	b, h := newHeadlessWindow(t)

	assert.Equal(t, 0, b.Eval(h, "1+1;"))
	assert.NotEqual(t, 0, b.Eval(h, "throw 'nope'"))

	assert.Equal(t, 0, b.Eval(h, "document.title = 'from script'"))
	st, _ := b.Inspect(h)
	assert.Equal(t, "from script", st.Title)
}

func TestHeadless_LoopReportsClose(t *testing.T) {
	b, h := newHeadlessWindow(t)

	assert.Equal(t, 0, b.Loop(h, 0))
	assert.Equal(t, 0, b.Loop(h, 1))

	b.RequestClose(h)
	assert.Equal(t, 1, b.Loop(h, 0))
}

func TestHeadless_Exit(t *testing.T) {
	b, h := newHeadlessWindow(t)

	b.Exit(h)
	st, _ := b.Inspect(h)
	assert.True(t, st.Exited)
}

func TestHeadless_ForeignHandlePanics(t *testing.T) {
	b := NewHeadlessBackend(nil, 0)
	assert.Panics(t, func() { b.SetTitle(foreignHandle(42), "x") })

	_, ok := b.Inspect(foreignHandle(42))
	assert.False(t, ok)
}

type foreignHandle int

func TestNativeText(t *testing.T) {
	got, err := NativeText("hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", got)

	_, err = NativeText("bad\x00title")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNulByte))
	assert.Contains(t, err.Error(), "offset 3")
}

func TestFlag(t *testing.T) {
	assert.Equal(t, 1, Flag(true))
	assert.Equal(t, 0, Flag(false))
}
