package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is the observability surface used by the directory client and the
// authentication service.
type Recorder interface {
	// RecordAuthAttempt counts one finished authentication attempt by outcome.
	RecordAuthAttempt(outcome string, duration time.Duration)
	// RecordDirectoryOperation counts one directory operation (resolve, verify,
	// fetch_groups, health) by result.
	RecordDirectoryOperation(operation, result string, duration time.Duration)
	// SetDirectoryUp reports whether the directory answered the last request.
	SetDirectoryUp(up bool)
}

// Ensure Metrics implements Recorder interface at compile time
var _ Recorder = (*Metrics)(nil)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	AuthAttemptsTotal *prometheus.CounterVec
	AuthDuration      *prometheus.HistogramVec

	DirectoryOperationsTotal   *prometheus.CounterVec
	DirectoryOperationDuration *prometheus.HistogramVec
	DirectoryUp                prometheus.Gauge
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Init returns Prometheus-backed metrics registered on the default registry,
// or a no-op recorder when disabled. Registration happens at most once.
func Init(enabled bool) Recorder {
	if !enabled {
		return NewNoopMetrics()
	}

	once.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// New creates the metrics and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		AuthAttemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dirauth_auth_attempts_total",
				Help: "Total number of authentication attempts by outcome",
			},
			[]string{"outcome"},
		),
		AuthDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dirauth_auth_duration_seconds",
				Help:    "Duration of authentication attempts",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"outcome"},
		),
		DirectoryOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dirauth_directory_operations_total",
				Help: "Total number of directory operations by operation and result",
			},
			[]string{"operation", "result"},
		),
		DirectoryOperationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dirauth_directory_operation_duration_seconds",
				Help:    "Duration of directory operations",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"operation"},
		),
		DirectoryUp: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "dirauth_directory_up",
				Help: "Whether the directory answered the most recent request (1) or not (0)",
			},
		),
	}
}

func (m *Metrics) RecordAuthAttempt(outcome string, duration time.Duration) {
	m.AuthAttemptsTotal.WithLabelValues(outcome).Inc()
	m.AuthDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func (m *Metrics) RecordDirectoryOperation(operation, result string, duration time.Duration) {
	m.DirectoryOperationsTotal.WithLabelValues(operation, result).Inc()
	m.DirectoryOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (m *Metrics) SetDirectoryUp(up bool) {
	if up {
		m.DirectoryUp.Set(1)
		return
	}
	m.DirectoryUp.Set(0)
}
