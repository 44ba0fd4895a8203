// Package worker provides a generic bounded worker pool. Processors use it to
// transform independent records concurrently off the NATS delivery goroutine.
package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/semtransform/metric"
)

// Pool processes work items of type T on a fixed number of goroutines
type Pool[T any] struct {
	name      string
	workers   int
	queueSize int
	processor func(context.Context, T) error

	workChan chan T
	quit     chan struct{}
	wg       sync.WaitGroup
	metrics  *poolMetrics

	lifecycleMu sync.Mutex
	state       atomic.Int32

	submitted atomic.Int64
	processed atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64

	metricsRegistry *metric.MetricsRegistry
}

const (
	stateIdle int32 = iota
	stateRunning
	stateStopped
)

// Option represents a configuration option for the worker pool
type Option[T any] func(*Pool[T])

// WithMetricsRegistry exports pool metrics labelled with the pool name
func WithMetricsRegistry[T any](registry *metric.MetricsRegistry) Option[T] {
	return func(p *Pool[T]) {
		p.metricsRegistry = registry
	}
}

// NewPool creates a pool. Non-positive workers default to 10 and a
// non-positive queue size to 1000. A nil processor panics.
func NewPool[T any](
	name string, workers, queueSize int, processor func(context.Context, T) error, opts ...Option[T],
) *Pool[T] {
	if workers <= 0 {
		workers = 10
	}
	if queueSize <= 0 {
		queueSize = 1000
	}
	if processor == nil {
		panic(ErrNilProcessor)
	}

	pool := &Pool[T]{
		name:      name,
		workers:   workers,
		queueSize: queueSize,
		processor: processor,
		workChan:  make(chan T, queueSize),
		quit:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(pool)
	}

	if pool.metricsRegistry != nil {
		// Pool metrics are optional, a registration conflict leaves them off.
		pool.metrics, _ = newPoolMetrics(pool.metricsRegistry)
	}

	return pool
}

// Submit enqueues work without blocking. It returns ErrQueueFull when the
// queue is at capacity.
func (p *Pool[T]) Submit(work T) error {
	if err := p.checkRunning(); err != nil {
		return err
	}

	select {
	case p.workChan <- work:
		p.accepted()
		return nil
	case <-p.quit:
		return ErrPoolStopped
	default:
		p.dropped.Add(1)
		p.metrics.recordDropped(p.name)
		return ErrQueueFull
	}
}

// SubmitWait enqueues work, blocking until there is room, the pool stops or
// ctx is done.
func (p *Pool[T]) SubmitWait(ctx context.Context, work T) error {
	if err := p.checkRunning(); err != nil {
		return err
	}

	select {
	case p.workChan <- work:
		p.accepted()
		return nil
	case <-p.quit:
		return ErrPoolStopped
	case <-ctx.Done():
		p.dropped.Add(1)
		p.metrics.recordDropped(p.name)
		return ctx.Err()
	}
}

func (p *Pool[T]) checkRunning() error {
	switch p.state.Load() {
	case stateIdle:
		return ErrPoolNotStarted
	case stateStopped:
		return ErrPoolStopped
	default:
		return nil
	}
}

func (p *Pool[T]) accepted() {
	p.submitted.Add(1)
	p.metrics.recordSubmitted(p.name, len(p.workChan))
}

// Start launches the workers. They exit when ctx is done or Stop is called.
func (p *Pool[T]) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	switch p.state.Load() {
	case stateRunning:
		return ErrPoolAlreadyStarted
	case stateStopped:
		return ErrPoolStopped
	}

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx)
	}

	p.state.Store(stateRunning)
	return nil
}

// Stop refuses new work, lets workers finish what is queued and waits up to
// timeout for them to exit.
func (p *Pool[T]) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.state.Load() != stateRunning {
		return nil
	}
	p.state.Store(stateStopped)
	close(p.quit)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// Stats returns current pool statistics
func (p *Pool[T]) Stats() PoolStats {
	return PoolStats{
		Workers:    p.workers,
		QueueSize:  p.queueSize,
		QueueDepth: len(p.workChan),
		Submitted:  p.submitted.Load(),
		Processed:  p.processed.Load(),
		Failed:     p.failed.Load(),
		Dropped:    p.dropped.Load(),
	}
}

// PoolStats represents worker pool statistics
type PoolStats struct {
	Workers    int   `json:"workers"`
	QueueSize  int   `json:"queue_size"`
	QueueDepth int   `json:"queue_depth"`
	Submitted  int64 `json:"submitted"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
	Dropped    int64 `json:"dropped"`
}

func (p *Pool[T]) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case work := <-p.workChan:
			p.run(ctx, work)
		case <-p.quit:
			p.drain(ctx)
			return
		}
	}
}

// drain processes whatever is still queued after Stop.
func (p *Pool[T]) drain(ctx context.Context) {
	for {
		select {
		case work := <-p.workChan:
			p.run(ctx, work)
		default:
			return
		}
	}
}

func (p *Pool[T]) run(ctx context.Context, work T) {
	start := time.Now()
	err := p.processor(ctx, work)

	p.processed.Add(1)
	if err != nil {
		p.failed.Add(1)
	}
	p.metrics.recordProcessed(p.name, err, time.Since(start), len(p.workChan))
}

type poolMetrics struct {
	queueDepth     *prometheus.GaugeVec
	submitted      *prometheus.CounterVec
	processed      *prometheus.CounterVec
	dropped        *prometheus.CounterVec
	processingTime *prometheus.HistogramVec
}

func newPoolMetrics(registry *metric.MetricsRegistry) (*poolMetrics, error) {
	const service = "worker_pool"
	labels := []string{"pool"}

	queueDepth, err := metric.Shared(registry, service, "queue_depth", prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metric.Namespace, Subsystem: "worker", Name: "queue_depth",
			Help: "Current worker pool queue depth",
		}, labels))
	if err != nil {
		return nil, err
	}
	submitted, err := metric.Shared(registry, service, "submitted_total", prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metric.Namespace, Subsystem: "worker", Name: "submitted_total",
			Help: "Total work items submitted",
		}, labels))
	if err != nil {
		return nil, err
	}
	processed, err := metric.Shared(registry, service, "processed_total", prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metric.Namespace, Subsystem: "worker", Name: "processed_total",
			Help: "Total work items processed",
		}, []string{"pool", "status"}))
	if err != nil {
		return nil, err
	}
	dropped, err := metric.Shared(registry, service, "dropped_total", prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metric.Namespace, Subsystem: "worker", Name: "dropped_total",
			Help: "Total work items rejected because the queue was full",
		}, labels))
	if err != nil {
		return nil, err
	}
	processingTime, err := metric.Shared(registry, service, "processing_duration_seconds", prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metric.Namespace, Subsystem: "worker", Name: "processing_duration_seconds",
			Help:    "Time spent processing work items",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}, []string{"pool", "status"}))
	if err != nil {
		return nil, err
	}

	return &poolMetrics{
		queueDepth:     queueDepth,
		submitted:      submitted,
		processed:      processed,
		dropped:        dropped,
		processingTime: processingTime,
	}, nil
}

func (m *poolMetrics) recordSubmitted(pool string, depth int) {
	if m == nil {
		return
	}
	m.submitted.WithLabelValues(pool).Inc()
	m.queueDepth.WithLabelValues(pool).Set(float64(depth))
}

func (m *poolMetrics) recordDropped(pool string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(pool).Inc()
}

func (m *poolMetrics) recordProcessed(pool string, err error, d time.Duration, depth int) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.processed.WithLabelValues(pool, status).Inc()
	m.processingTime.WithLabelValues(pool, status).Observe(d.Seconds())
	m.queueDepth.WithLabelValues(pool).Set(float64(depth))
}
