package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1broseidon/webviewd/internal/platform"
	"github.com/1broseidon/webviewd/internal/registry"
)

// spyBackend wraps the headless backend and counts native calls.
type spyBackend struct {
	*platform.HeadlessBackend
	calls     map[string]int
	createErr error
	panicOn   string
}

func newSpy() *spyBackend {
	return &spyBackend{
		HeadlessBackend: platform.NewHeadlessBackend(nil, 0),
		calls:           make(map[string]int),
	}
}

func (s *spyBackend) record(name string) {
	s.calls[name]++
	if s.panicOn == name {
		panic("native " + name + " crashed")
	}
}

func (s *spyBackend) total() int {
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *spyBackend) Create(opts platform.WindowOptions) (platform.Handle, error) {
	s.record("create")
	if s.createErr != nil {
		return nil, s.createErr
	}
	return s.HeadlessBackend.Create(opts)
}

func (s *spyBackend) Exit(h platform.Handle) {
	s.record("exit")
	s.HeadlessBackend.Exit(h)
}

func (s *spyBackend) Eval(h platform.Handle, js string) int {
	s.record("eval")
	return s.HeadlessBackend.Eval(h, js)
}

func (s *spyBackend) SetColor(h platform.Handle, c platform.Color) {
	s.record("set_color")
	s.HeadlessBackend.SetColor(h, c)
}

func (s *spyBackend) SetTitle(h platform.Handle, title string) {
	s.record("set_title")
	s.HeadlessBackend.SetTitle(h, title)
}

func (s *spyBackend) SetFullscreen(h platform.Handle, fullscreen bool) {
	s.record("set_fullscreen")
	s.HeadlessBackend.SetFullscreen(h, fullscreen)
}

func (s *spyBackend) Loop(h platform.Handle, blocking int) int {
	s.record("loop")
	return s.HeadlessBackend.Loop(h, blocking)
}

type envelope struct {
	Err *string          `json:"err"`
	Ok  *json.RawMessage `json:"ok"`
}

func parse(t *testing.T, data []byte) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(data, &env), string(data))
	require.True(t, (env.Err == nil) != (env.Ok == nil), "exactly one of ok/err must be set: %s", data)
	return env
}

func requireOK(t *testing.T, data []byte) json.RawMessage {
	t.Helper()
	env := parse(t, data)
	require.Nil(t, env.Err, "unexpected err: %s", data)
	return *env.Ok
}

func requireErr(t *testing.T, data []byte) string {
	t.Helper()
	env := parse(t, data)
	require.NotNil(t, env.Err, "expected err: %s", data)
	return *env.Err
}

func newTestBridge() (*Bridge, *spyBackend, *registry.Registry[platform.Handle]) {
	spy := newSpy()
	reg := registry.New[platform.Handle]()
	return New(reg, spy), spy, reg
}

const defaultNew = `{"title":"T","url":"U","width":320,"height":240,"resizable":true,"debug":false,"frameless":false}`

func create(t *testing.T, b *Bridge) registry.ID {
	t.Helper()
	var res NewResult
	require.NoError(t, json.Unmarshal(requireOK(t, b.New([]byte(defaultNew))), &res))
	return res.ID
}

func call(b *Bridge, op string, payload string) []byte {
	o := b.Ops()[op]
	if o.Async != nil {
		return <-o.Async([]byte(payload))
	}
	return o.Sync([]byte(payload))
}

func TestNew_ReturnsIncreasingIDs(t *testing.T) {
	b, _, _ := newTestBridge()

	first := create(t, b)
	second := create(t, b)
	requireOK(t, b.Exit([]byte(fmt.Sprintf(`{"id":%d}`, second))))
	third := create(t, b)

	assert.Equal(t, registry.ID(0), first)
	assert.Greater(t, second, first)
	assert.Greater(t, third, second)
}

func TestNew_EncodesID(t *testing.T) {
	b, _, _ := newTestBridge()
	assert.JSONEq(t, `{"ok":{"id":0}}`, string(b.New([]byte(defaultNew))))
}

func TestUnknownID_NoNativeCall(t *testing.T) {
	ops := map[string]string{
		OpExit:          `{"id":99}`,
		OpEval:          `{"id":99,"js":"1+1;"}`,
		OpSetColor:      `{"id":99,"r":1,"g":2,"b":3,"a":4}`,
		OpSetTitle:      `{"id":99,"title":"x"}`,
		OpSetFullscreen: `{"id":99,"fullscreen":true}`,
		OpLoop:          `{"id":99,"blocking":0}`,
		OpGetUserData:   `{"id":99}`,
	}

	for op, payload := range ops {
		t.Run(op, func(t *testing.T) {
			b, spy, _ := newTestBridge()
			create(t, b)
			before := spy.total()

			msg := requireErr(t, call(b, op, payload))
			assert.Equal(t, "could not find instance of id 99", msg)
			assert.Equal(t, before, spy.total(), "no native call expected")
		})
	}
}

func TestSetTitle_RoundTrip(t *testing.T) {
	b, spy, reg := newTestBridge()
	id := create(t, b)

	out := b.SetTitle([]byte(fmt.Sprintf(`{"id":%d,"title":"T2"}`, id)))
	assert.JSONEq(t, `{"ok":{}}`, string(out))

	h, ok := reg.Get(id)
	require.True(t, ok)
	st, _ := spy.Inspect(h)
	assert.Equal(t, "T2", st.Title)
}

func TestSetColorAndFullscreen(t *testing.T) {
	b, spy, reg := newTestBridge()
	id := create(t, b)

	assert.JSONEq(t, `{"ok":{}}`, string(b.SetColor([]byte(fmt.Sprintf(`{"id":%d,"r":10,"g":20,"b":30,"a":255}`, id)))))
	assert.JSONEq(t, `{"ok":{}}`, string(b.SetFullscreen([]byte(fmt.Sprintf(`{"id":%d,"fullscreen":true}`, id)))))

	h, _ := reg.Get(id)
	st, _ := spy.Inspect(h)
	assert.Equal(t, platform.Color{R: 10, G: 20, B: 30, A: 255}, st.Color)
	assert.True(t, st.Fullscreen)
}

func TestSetColor_RejectsOutOfRangeChannel(t *testing.T) {
	b, spy, _ := newTestBridge()
	id := create(t, b)

	msg := requireErr(t, b.SetColor([]byte(fmt.Sprintf(`{"id":%d,"r":256,"g":0,"b":0,"a":0}`, id))))
	assert.Contains(t, msg, "invalid request")
	assert.Zero(t, spy.calls["set_color"])
}

func TestEval(t *testing.T) {
	b, _, _ := newTestBridge()
	id := create(t, b)

	assert.JSONEq(t, `{"ok":{}}`, string(b.Eval([]byte(fmt.Sprintf(`{"id":%d,"js":"1+1;"}`, id)))))

	msg := requireErr(t, b.Eval([]byte(fmt.Sprintf(`{"id":%d,"js":"throw new Error('x')"}`, id))))
	assert.Equal(t, "could not evaluate script", msg)

	msg = requireErr(t, b.Eval([]byte(fmt.Sprintf(`{"id":%d,"js":"1 +* 2"}`, id))))
	assert.Equal(t, "could not evaluate script", msg)
}

func TestLoop(t *testing.T) {
	b, spy, reg := newTestBridge()
	id := create(t, b)

	assert.JSONEq(t, `{"ok":{"code":0}}`, string(b.Loop([]byte(fmt.Sprintf(`{"id":%d,"blocking":0}`, id)))))

	h, _ := reg.Get(id)
	spy.RequestClose(h)
	assert.JSONEq(t, `{"ok":{"code":1}}`, string(b.Loop([]byte(fmt.Sprintf(`{"id":%d,"blocking":1}`, id)))))
}

func TestExitTwice(t *testing.T) {
	b, spy, reg := newTestBridge()
	id := create(t, b)
	payload := []byte(fmt.Sprintf(`{"id":%d}`, id))

	assert.JSONEq(t, `{"ok":{}}`, string(b.Exit(payload)))
	msg := requireErr(t, b.Exit(payload))
	assert.Equal(t, fmt.Sprintf("could not find instance of id %d", id), msg)

	assert.Equal(t, 1, spy.calls["exit"], "native exit must run exactly once")
	assert.Equal(t, 0, reg.Len())

	// Exited ids no longer resolve for any operation.
	requireErr(t, b.Loop([]byte(fmt.Sprintf(`{"id":%d,"blocking":0}`, id))))
	assert.Zero(t, spy.calls["loop"])
}

func TestGetUserData(t *testing.T) {
	b, _, _ := newTestBridge()
	id := create(t, b)

	ch := b.GetUserData([]byte(fmt.Sprintf(`{"id":%d}`, id)))
	select {
	case out := <-ch:
		assert.JSONEq(t, `{"ok":{}}`, string(out))
	default:
		t.Fatal("user data result must already be resolved")
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		payload string
		want    string
	}{
		{"malformed json", OpEval, `{"id":`, "invalid request"},
		{"not an object", OpExit, `[1,2]`, "invalid request"},
		{"missing field", OpEval, `{"id":0}`, `invalid request: missing field "js"`},
		{"null field", OpSetTitle, `{"id":0,"title":null}`, `invalid request: field "title" must not be null`},
		{"negative id", OpExit, `{"id":-1}`, "invalid request"},
		{"wrong type", OpSetFullscreen, `{"id":0,"fullscreen":"yes"}`, "invalid request"},
		{"missing create field", OpNew, `{"title":"T","url":"U","width":1,"height":1,"resizable":true,"debug":false}`, `missing field "frameless"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, spy, reg := newTestBridge()
			create(t, b)
			before := spy.total()

			msg := requireErr(t, call(b, tt.op, tt.payload))
			assert.Contains(t, msg, tt.want)
			assert.Equal(t, before, spy.total())
			assert.Equal(t, 1, reg.Len(), "registry must be untouched")
		})
	}
}

func TestNulByteRejected(t *testing.T) {
	b, spy, reg := newTestBridge()

	msg := requireErr(t, b.New([]byte(`{"title":"a\u0000b","url":"U","width":1,"height":1,"resizable":false,"debug":false,"frameless":false}`)))
	assert.Contains(t, msg, "invalid request: title")
	assert.Zero(t, spy.calls["create"])
	assert.Zero(t, reg.Len())

	// No identifier is burned by the failed create.
	assert.Equal(t, registry.ID(0), create(t, b))

	msg = requireErr(t, b.SetTitle([]byte(`{"id":0,"title":"x\u0000"}`)))
	assert.Contains(t, msg, "text contains NUL byte")
	assert.Zero(t, spy.calls["set_title"])

	msg = requireErr(t, b.Eval([]byte(`{"id":0,"js":"1;\u0000"}`)))
	assert.Contains(t, msg, "invalid request: js")
	assert.Zero(t, spy.calls["eval"])
}

func TestCreateFailure(t *testing.T) {
	b, spy, reg := newTestBridge()
	spy.createErr = errors.New("no display")

	msg := requireErr(t, b.New([]byte(defaultNew)))
	assert.Equal(t, "could not create window: no display", msg)
	assert.Zero(t, reg.Len())
}

func TestBackendPanicBecomesError(t *testing.T) {
	b, spy, _ := newTestBridge()
	id := create(t, b)
	spy.panicOn = "set_fullscreen"

	msg := requireErr(t, b.SetFullscreen([]byte(fmt.Sprintf(`{"id":%d,"fullscreen":true}`, id))))
	assert.Contains(t, msg, "internal error")

	// The bridge keeps working afterwards.
	spy.panicOn = ""
	requireOK(t, b.SetFullscreen([]byte(fmt.Sprintf(`{"id":%d,"fullscreen":false}`, id))))
}

func TestExitAll(t *testing.T) {
	b, spy, reg := newTestBridge()
	for i := 0; i < 3; i++ {
		create(t, b)
	}

	assert.Equal(t, 3, b.ExitAll())
	assert.Equal(t, 0, reg.Len())
	assert.Equal(t, 3, spy.calls["exit"])
}

func TestOps_CoversEveryName(t *testing.T) {
	b, _, _ := newTestBridge()
	ops := b.Ops()
	require.Len(t, ops, len(OpNames))
	for _, name := range OpNames {
		op, ok := ops[name]
		require.True(t, ok, name)
		assert.True(t, (op.Sync == nil) != (op.Async == nil), name)
	}
}
