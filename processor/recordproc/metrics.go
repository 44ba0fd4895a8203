package recordproc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/semtransform/metric"
	"github.com/c360/semtransform/transform"
)

const metricsService = "recordproc"

// Record statuses used as the status label of records_total.
const (
	statusPassed   = "passed"
	statusModified = "modified"
	statusDropped  = "dropped"
	statusError    = "error"
)

// Error types used as the error_type label of errors_total.
const (
	errorDecode  = "decode"
	errorEncode  = "encode"
	errorPublish = "publish"
	errorQueue   = "queue"
)

// processorMetrics holds Prometheus metrics shared by every record processor
// instance. Instances are told apart by the component label.
type processorMetrics struct {
	component string
	kind      string

	recordsTotal      *prometheus.CounterVec   // component, kind, status
	errors            *prometheus.CounterVec   // component, error_type
	transformDuration *prometheus.HistogramVec // component
	dropRate          *prometheus.GaugeVec     // component
	publishedTotal    *prometheus.CounterVec   // component, subject
}

// newProcessorMetrics registers (or reuses) the processor metrics. A nil
// registry disables metrics and returns a nil value whose methods are no-ops.
func newProcessorMetrics(registry *metric.MetricsRegistry, component, kind string) (*processorMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	recordsTotal, err := metric.Shared(registry, metricsService, "records_total",
		prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: metricsService,
			Name:      "records_total",
			Help:      "Records handled by a processor, by outcome status",
		}, []string{"component", "kind", "status"}))
	if err != nil {
		return nil, err
	}

	errorsTotal, err := metric.Shared(registry, metricsService, "errors_total",
		prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: metricsService,
			Name:      "errors_total",
			Help:      "Record processing errors by type",
		}, []string{"component", "error_type"}))
	if err != nil {
		return nil, err
	}

	duration, err := metric.Shared(registry, metricsService, "transform_duration_seconds",
		prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metric.Namespace,
			Subsystem: metricsService,
			Name:      "transform_duration_seconds",
			Help:      "Time spent applying the transformation to one record",
			Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
		}, []string{"component"}))
	if err != nil {
		return nil, err
	}

	dropRate, err := metric.Shared(registry, metricsService, "drop_rate",
		prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: metricsService,
			Name:      "drop_rate",
			Help:      "Fraction of received records that were dropped",
		}, []string{"component"}))
	if err != nil {
		return nil, err
	}

	published, err := metric.Shared(registry, metricsService, "published_total",
		prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: metricsService,
			Name:      "published_total",
			Help:      "Records published per output subject",
		}, []string{"component", "subject"}))
	if err != nil {
		return nil, err
	}

	return &processorMetrics{
		component:         component,
		kind:              kind,
		recordsTotal:      recordsTotal,
		errors:            errorsTotal,
		transformDuration: duration,
		dropRate:          dropRate,
		publishedTotal:    published,
	}, nil
}

// statusOf maps a transformation outcome to a records_total status.
func statusOf(outcome transform.Outcome) string {
	switch outcome {
	case transform.OutcomeDropped:
		return statusDropped
	case transform.OutcomeModified:
		return statusModified
	default:
		return statusPassed
	}
}

func (m *processorMetrics) recordOutcome(outcome transform.Outcome, d time.Duration) {
	if m == nil {
		return
	}
	m.recordsTotal.WithLabelValues(m.component, m.kind, statusOf(outcome)).Inc()
	m.transformDuration.WithLabelValues(m.component).Observe(d.Seconds())
}

func (m *processorMetrics) recordError(errorType string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(m.component, errorType).Inc()
	if errorType == errorDecode {
		m.recordsTotal.WithLabelValues(m.component, m.kind, statusError).Inc()
	}
}

func (m *processorMetrics) recordPublished(subject string) {
	if m == nil {
		return
	}
	m.publishedTotal.WithLabelValues(m.component, subject).Inc()
}

func (m *processorMetrics) updateDropRate(dropped, total int64) {
	if m == nil || total == 0 {
		return
	}
	m.dropRate.WithLabelValues(m.component).Set(float64(dropped) / float64(total))
}
