package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/1broseidon/webviewd/internal/logging"
	"github.com/1broseidon/webviewd/internal/platform"
	"github.com/1broseidon/webviewd/internal/registry"
)

func newTestHost(t *testing.T) (*Host, *spyBackend) {
	t.Helper()
	spy := newSpy()
	h := NewHost(spy)
	t.Cleanup(func() { _ = h.Close() })
	return h, spy
}

func hostCreate(t *testing.T, h *Host) registry.ID {
	t.Helper()
	out, err := h.Call(context.Background(), OpNew, []byte(defaultNew))
	require.NoError(t, err)
	var res NewResult
	require.NoError(t, json.Unmarshal(requireOK(t, out), &res))
	return res.ID
}

func TestHost_CallDispatchesByName(t *testing.T) {
	h, _ := newTestHost(t)
	id := hostCreate(t, h)

	out, err := h.Call(context.Background(), OpEval, []byte(fmt.Sprintf(`{"id":%d,"js":"1+1;"}`, id)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":{}}`, string(out))

	out, err = h.Call(context.Background(), OpGetUserData, []byte(fmt.Sprintf(`{"id":%d}`, id)))
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":{}}`, string(out))
}

func TestHost_UnknownOp(t *testing.T) {
	h, _ := newTestHost(t)

	_, err := h.Call(context.Background(), "webview_dispatch", []byte(`{}`))
	require.ErrorIs(t, err, ErrUnknownOp)
}

func TestHost_ConcurrentCallersGetUniqueIDs(t *testing.T) {
	h, _ := newTestHost(t)

	const n = 50
	ids := make(chan registry.ID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := h.Call(context.Background(), OpNew, []byte(defaultNew))
			if !assert.NoError(t, err) {
				return
			}
			var env Response[NewResult]
			if assert.NoError(t, json.Unmarshal(out, &env)) && assert.NotNil(t, env.Ok) {
				ids <- env.Ok.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[registry.ID]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, n)

	st, err := h.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "headless", st.Backend)
	assert.Len(t, st.Instances, n)
}

func TestHost_CloseExitsWindowsAndRejectsCalls(t *testing.T) {
	h, spy := newTestHost(t)
	hostCreate(t, h)
	hostCreate(t, h)

	require.NoError(t, h.Close())
	require.NoError(t, h.Close(), "close must be idempotent")
	assert.Equal(t, 2, spy.calls["exit"])

	_, err := h.Call(context.Background(), OpNew, []byte(defaultNew))
	require.ErrorIs(t, err, ErrHostClosed)

	_, err = h.Status(context.Background())
	require.ErrorIs(t, err, ErrHostClosed)
}

// blockingBackend holds the owner context inside Loop until released.
type blockingBackend struct {
	*platform.HeadlessBackend
	entered chan struct{}
	release chan struct{}
}

func (b *blockingBackend) Loop(h platform.Handle, blocking int) int {
	if blocking != 0 {
		close(b.entered)
		<-b.release
	}
	return b.HeadlessBackend.Loop(h, blocking)
}

func TestHost_ContextCancelledWhileQueued(t *testing.T) {
	bb := &blockingBackend{
		HeadlessBackend: platform.NewHeadlessBackend(nil, 0),
		entered:         make(chan struct{}),
		release:         make(chan struct{}),
	}
	h := NewHost(bb)
	defer h.Close()
	id := hostCreate(t, h)

	loopDone := make(chan []byte, 1)
	go func() {
		out, _ := h.Call(context.Background(), OpLoop, []byte(fmt.Sprintf(`{"id":%d,"blocking":1}`, id)))
		loopDone <- out
	}()
	<-bb.entered

	// The owner is busy in a blocking loop step; a queued call gives up with ctx.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := h.Call(ctx, OpSetTitle, []byte(fmt.Sprintf(`{"id":%d,"title":"x"}`, id)))
	require.ErrorIs(t, err, context.DeadlineExceeded)

	close(bb.release)
	assert.JSONEq(t, `{"ok":{"code":0}}`, string(<-loopDone))
}

// slowCreateBackend holds the owner context inside Create until released.
type slowCreateBackend struct {
	*platform.HeadlessBackend
	entered chan struct{}
	release chan struct{}
}

func (b *slowCreateBackend) Create(opts platform.WindowOptions) (platform.Handle, error) {
	close(b.entered)
	<-b.release
	return b.HeadlessBackend.Create(opts)
}

func TestHost_CancelledCreateLogsDroppedID(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	sb := &slowCreateBackend{
		HeadlessBackend: platform.NewHeadlessBackend(nil, 0),
		entered:         make(chan struct{}),
		release:         make(chan struct{}),
	}
	h := NewHost(sb, WithLogger(&logging.Logger{Logger: zap.New(core)}))
	defer h.Close()

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() {
		_, err := h.Call(ctx, OpNew, []byte(defaultNew))
		errs <- err
	}()

	<-sb.entered
	cancel()
	require.ErrorIs(t, <-errs, context.Canceled)
	close(sb.release)

	require.Eventually(t, func() bool {
		return logs.FilterMessage("caller gone, envelope dropped").Len() == 1
	}, time.Second, 5*time.Millisecond)
	entry := logs.FilterMessage("caller gone, envelope dropped").All()[0]
	fields := entry.ContextMap()
	assert.Equal(t, OpNew, fields["op"])
	assert.JSONEq(t, `{"ok":{"id":0}}`, fmt.Sprint(fields["envelope"]))

	st, err := h.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []registry.ID{0}, st.Instances)
}
