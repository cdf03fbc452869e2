package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOp(t *testing.T) {
	m := New()

	m.ObserveOp("webview_eval", true, time.Millisecond)
	m.ObserveOp("webview_eval", false, time.Millisecond)
	m.ObserveOp("webview_eval", false, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.OpsTotal.WithLabelValues("webview_eval", ResultOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.OpsTotal.WithLabelValues("webview_eval", ResultError)))
}

func TestSetInstances(t *testing.T) {
	m := New()

	m.SetInstances(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.Instances))
	m.SetInstances(0)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Instances))
}

func TestNew_IndependentRegistries(t *testing.T) {
	// Two instances must not panic on duplicate registration.
	a, b := New(), New()
	a.SetInstances(1)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.Instances))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveOp("webview_new", true, 2*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `webviewd_operations_total{op="webview_new",result="ok"} 1`)
	assert.Contains(t, string(body), "webviewd_instances 0")
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.ObserveOp("x", true, 0)
	r.SetInstances(1)
}
