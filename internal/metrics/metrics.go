package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/1broseidon/webviewd/internal/logging"
)

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Recorder receives per-operation observations from the bridge.
type Recorder interface {
	ObserveOp(op string, ok bool, d time.Duration)
	SetInstances(n int)
}

// Nop discards observations.
type Nop struct{}

func (Nop) ObserveOp(string, bool, time.Duration) {}
func (Nop) SetInstances(int)                       {}

// Metrics holds the Prometheus collectors for one daemon.
type Metrics struct {
	OpsTotal    *prometheus.CounterVec
	OpDuration  *prometheus.HistogramVec
	Instances   prometheus.Gauge
	UptimeStart prometheus.Gauge

	registry *prometheus.Registry
}

var _ Recorder = (*Metrics)(nil)

// New creates collectors on a private registry so several daemons (or tests)
// in one process do not collide.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		OpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webviewd_operations_total",
				Help: "Total number of bridge operations by result",
			},
			[]string{"op", "result"},
		),
		OpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webviewd_operation_duration_seconds",
				Help:    "Bridge operation latency, including the native call",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
			},
			[]string{"op"},
		),
		Instances: factory.NewGauge(prometheus.GaugeOpts{
			Name: "webviewd_instances",
			Help: "Number of live webview instances",
		}),
		UptimeStart: factory.NewGauge(prometheus.GaugeOpts{
			Name: "webviewd_start_time_seconds",
			Help: "Unix time the daemon started",
		}),
		registry: reg,
	}
	m.UptimeStart.SetToCurrentTime()
	return m
}

// ObserveOp implements Recorder.
func (m *Metrics) ObserveOp(op string, ok bool, d time.Duration) {
	result := ResultOK
	if !ok {
		result = ResultError
	}
	m.OpsTotal.WithLabelValues(op, result).Inc()
	m.OpDuration.WithLabelValues(op).Observe(d.Seconds())
}

// SetInstances implements Recorder.
func (m *Metrics) SetInstances(n int) {
	m.Instances.Set(float64(n))
}

// Handler serves the metrics registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
