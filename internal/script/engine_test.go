package script

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := New(opts, Page{Title: "T", URL: "https://example.test/"})
	require.NoError(t, err)
	return e
}

func TestRun(t *testing.T) {
	tests := []struct {
		name    string
		script  string
		wantErr bool
	}{
		{name: "arithmetic", script: "1+1;"},
		{name: "page globals", script: "if (location.href !== 'https://example.test/') throw new Error('bad href');"},
		{name: "window alias", script: "if (window.document.title !== 'T') throw new Error('bad title');"},
		{name: "syntax error", script: "1 +* 2", wantErr: true},
		{name: "uncaught throw", script: "throw new Error('boom')", wantErr: true},
		{name: "no require", script: "require('fs')", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, Options{})
			err := e.Run(tt.script)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRun_Timeout(t *testing.T) {
	e := newTestEngine(t, Options{Timeout: 50 * time.Millisecond})

	err := e.Run("for (;;) {}")
	require.ErrorIs(t, err, ErrTimeout)

	// The interrupt must not leak into the next run.
	assert.NoError(t, e.Run("1;"))
}

func TestRun_LateTimerIsIgnored(t *testing.T) {
	e := newTestEngine(t, Options{})

	require.NoError(t, e.Run("1;"))

	// The finished run's timer fires after Run returned.
	e.expire(e.run - 1)
	assert.NoError(t, e.Run("1;"))
}

func TestConsole(t *testing.T) {
	var got []string
	e := newTestEngine(t, Options{Console: func(level, msg string) {
		got = append(got, level+":"+msg)
	}})

	require.NoError(t, e.Run("console.log('a', 1); console.warn('b')"))
	assert.Equal(t, []string{"log:a 1", "warn:b"}, got)
}

func TestSetTitle(t *testing.T) {
	e := newTestEngine(t, Options{})

	e.SetTitle("T2")
	assert.Equal(t, "T2", e.Title())
	require.NoError(t, e.Run("if (document.title !== 'T2') throw new Error(document.title)"))

	require.NoError(t, e.Run("document.title = 'from page'"))
	assert.Equal(t, "from page", e.Title())
}
