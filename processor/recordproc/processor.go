package recordproc

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/semtransform/component"
	"github.com/c360/semtransform/errors"
	"github.com/c360/semtransform/metric"
	"github.com/c360/semtransform/natsclient"
	"github.com/c360/semtransform/pkg/worker"
	"github.com/c360/semtransform/record"
	"github.com/c360/semtransform/transform"
)

// Worker defaults used when Settings leaves them unset.
const (
	DefaultWorkers   = 4
	DefaultQueueSize = 1024
)

// RecordInterface is the interface contract advertised on processor ports.
const RecordInterface = "record.v1"

// Settings describe how a transformation is hosted.
type Settings struct {
	Kind        string // factory name, e.g. "field_router"
	Description string
	Ports       component.PortConfig
	Workers     int
	QueueSize   int
	Schema      component.ConfigSchema
	Retry       *errors.RetryConfig // nil uses errors.DefaultRetryConfig
}

// Stats is a snapshot of the processor counters.
type Stats struct {
	Received int64 `json:"received"`
	Passed   int64 `json:"passed"`
	Modified int64 `json:"modified"`
	Dropped  int64 `json:"dropped"`
	Errors   int64 `json:"errors"`
}

// Processor applies a transformation to every record arriving on its input
// subjects.
type Processor struct {
	name           string
	settings       Settings
	transformation transform.Transformation
	inputSubjects  []string
	outputSubjects []string

	natsClient      *natsclient.Client
	publish         func(context.Context, *nats.Msg) error
	retry           errors.RetryConfig
	logger          *slog.Logger
	metrics         *processorMetrics
	coreMetrics     *metric.Metrics
	metricsRegistry *metric.MetricsRegistry

	// Lifecycle management
	pool         *worker.Pool[*nats.Msg]
	subs         []*nats.Subscription
	running      bool
	startTime    time.Time
	lastActivity time.Time
	lastError    string
	mu           sync.RWMutex
	lifecycleMu  sync.Mutex

	received   atomic.Int64
	passed     atomic.Int64
	modified   atomic.Int64
	dropped    atomic.Int64
	errorCount atomic.Int64
}

var (
	_ component.Discoverable       = (*Processor)(nil)
	_ component.LifecycleComponent = (*Processor)(nil)
)

// New creates a processor for t. The instance name comes from
// deps.InstanceName and defaults to the kind.
func New(settings Settings, t transform.Transformation, deps component.Dependencies) (*Processor, error) {
	if settings.Kind == "" {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "RecordProcessor", "New", "kind required")
	}
	if t == nil {
		return nil, errors.WrapInvalid(errors.ErrMissingConfig, "RecordProcessor", "New", "transformation required")
	}
	if err := settings.Ports.Validate(); err != nil {
		return nil, errors.Wrap(err, "RecordProcessor", "New", "port validation")
	}
	if settings.Workers <= 0 {
		settings.Workers = DefaultWorkers
	}
	if settings.QueueSize <= 0 {
		settings.QueueSize = DefaultQueueSize
	}

	retryCfg := errors.DefaultRetryConfig()
	if settings.Retry != nil {
		retryCfg = *settings.Retry
	}

	name := deps.NameOr(settings.Kind)
	logger := deps.GetLoggerWithComponent(name)

	metrics, err := newProcessorMetrics(deps.MetricsRegistry, name, settings.Kind)
	if err != nil {
		logger.Error("Failed to initialize processor metrics", "error", err)
		metrics = nil
	}

	p := &Processor{
		name:            name,
		settings:        settings,
		transformation:  t,
		inputSubjects:   settings.Ports.InputSubjects(),
		outputSubjects:  settings.Ports.OutputSubjects(),
		natsClient:      deps.NATSClient,
		retry:           retryCfg,
		logger:          logger,
		metrics:         metrics,
		metricsRegistry: deps.MetricsRegistry,
	}
	if deps.MetricsRegistry != nil {
		p.coreMetrics = deps.MetricsRegistry.CoreMetrics()
	}
	if deps.NATSClient != nil {
		p.publish = deps.NATSClient.PublishMsg
	}
	return p, nil
}

// Name returns the instance name
func (p *Processor) Name() string {
	return p.name
}

// Transformation returns the hosted transformation
func (p *Processor) Transformation() transform.Transformation {
	return p.transformation
}

// Initialize prepares the processor (no-op)
func (p *Processor) Initialize() error {
	return nil
}

// Start subscribes to the input subjects and starts the worker pool. ctx
// bounds the lifetime of the workers.
func (p *Processor) Start(ctx context.Context) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	if p.running {
		return errors.WrapFatal(errors.ErrAlreadyStarted, "RecordProcessor", "Start", "check running state")
	}
	if p.natsClient == nil {
		return errors.WrapFatal(errors.ErrMissingConfig, "RecordProcessor", "Start", "NATS client required")
	}

	pool := worker.NewPool(p.name, p.settings.Workers, p.settings.QueueSize, p.handleMessage,
		worker.WithMetricsRegistry[*nats.Msg](p.metricsRegistry))
	if err := pool.Start(ctx); err != nil {
		p.recordStatus(metric.StatusFailed)
		return errors.WrapFatal(err, "RecordProcessor", "Start", "start worker pool")
	}

	subs := make([]*nats.Subscription, 0, len(p.inputSubjects))
	for _, subject := range p.inputSubjects {
		sub, err := p.natsClient.SubscribeMsg(ctx, subject, func(msgCtx context.Context, msg *nats.Msg) {
			p.enqueue(msgCtx, pool, msg)
		})
		if err != nil {
			p.logger.Error("Failed to subscribe to NATS subject", "subject", subject, "error", err)
			for _, s := range subs {
				_ = p.natsClient.Unsubscribe(s)
			}
			_ = pool.Stop(time.Second)
			p.recordStatus(metric.StatusFailed)
			return errors.WrapTransient(err, "RecordProcessor", "Start", fmt.Sprintf("subscribe to %s", subject))
		}
		subs = append(subs, sub)
	}

	p.mu.Lock()
	p.pool = pool
	p.subs = subs
	p.running = true
	p.startTime = time.Now()
	p.mu.Unlock()

	p.recordStatus(metric.StatusRunning)
	p.logger.Info("Record processor started",
		"kind", p.settings.Kind,
		"input_subjects", p.inputSubjects,
		"output_subjects", p.outputSubjects,
		"workers", p.settings.Workers)
	return nil
}

// Stop unsubscribes and lets the worker pool finish queued records within
// timeout.
func (p *Processor) Stop(timeout time.Duration) error {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	p.mu.RLock()
	running, subs, pool := p.running, p.subs, p.pool
	p.mu.RUnlock()
	if !running {
		return nil
	}

	var errs []error
	for _, sub := range subs {
		if err := p.natsClient.Unsubscribe(sub); err != nil {
			errs = append(errs, err)
		}
	}
	if err := pool.Stop(timeout); err != nil {
		errs = append(errs, errors.WrapTransient(err, "RecordProcessor", "Stop", "graceful shutdown"))
	}

	p.mu.Lock()
	p.running = false
	p.subs = nil
	p.pool = nil
	p.mu.Unlock()

	p.recordStatus(metric.StatusStopped)
	stats := p.Stats()
	p.logger.Info("Record processor stopped",
		"received", stats.Received,
		"dropped", stats.Dropped,
		"errors", stats.Errors)

	return stderrors.Join(errs...)
}

func (p *Processor) enqueue(ctx context.Context, pool *worker.Pool[*nats.Msg], msg *nats.Msg) {
	if err := pool.SubmitWait(ctx, msg); err != nil {
		p.fail(errorQueue, err)
		p.logger.Warn("Record not queued", "subject", msg.Subject, "error", err)
	}
}

// handleMessage decodes, transforms and publishes one message. It runs on a
// pool worker.
func (p *Processor) handleMessage(ctx context.Context, msg *nats.Msg) error {
	total := p.received.Add(1)
	p.mu.Lock()
	p.lastActivity = time.Now()
	p.mu.Unlock()

	rec, err := record.Decode(msg)
	if err != nil {
		p.fail(errorDecode, err)
		p.logger.Debug("Failed to decode record", "subject", msg.Subject, "error", err)
		return err
	}

	start := time.Now()
	out, outcome := transform.Run(p.transformation, rec)
	p.metrics.recordOutcome(outcome, time.Since(start))

	if out == nil {
		p.metrics.updateDropRate(p.dropped.Add(1), total)
		p.logger.Debug("Record dropped", "record_id", rec.ID, "topic", rec.Topic)
		return nil
	}
	p.metrics.updateDropRate(p.dropped.Load(), total)

	if outcome == transform.OutcomeModified {
		p.modified.Add(1)
	} else {
		p.passed.Add(1)
		p.logger.Debug("Record passed through", "record_id", rec.ID, "outcome", outcome)
	}

	return p.publishAll(ctx, out)
}

func (p *Processor) publishAll(ctx context.Context, rec *record.Record) error {
	var errs []error
	for _, subject := range p.outputSubjects {
		msg, err := record.Encode(rec, subject)
		if err != nil {
			p.fail(errorEncode, err)
			p.logger.Error("Failed to encode record", "record_id", rec.ID, "error", err)
			errs = append(errs, err)
			continue
		}

		err = p.retry.Retry(ctx, func() error {
			return p.publish(ctx, msg)
		})
		if err != nil {
			p.fail(errorPublish, err)
			p.logger.Error("Failed to publish record",
				"record_id", rec.ID,
				"output_subject", subject,
				"error", err)
			errs = append(errs, err)
			continue
		}
		p.metrics.recordPublished(subject)
	}
	return stderrors.Join(errs...)
}

func (p *Processor) fail(errorType string, err error) {
	p.errorCount.Add(1)
	p.mu.Lock()
	p.lastError = err.Error()
	p.mu.Unlock()

	p.metrics.recordError(errorType)
	if p.coreMetrics != nil {
		p.coreMetrics.RecordError(p.name, errorType)
	}
}

func (p *Processor) recordStatus(status int) {
	if p.coreMetrics != nil {
		p.coreMetrics.RecordComponentStatus(p.name, status)
	}
}

// Stats returns a snapshot of the record counters
func (p *Processor) Stats() Stats {
	return Stats{
		Received: p.received.Load(),
		Passed:   p.passed.Load(),
		Modified: p.modified.Load(),
		Dropped:  p.dropped.Load(),
		Errors:   p.errorCount.Load(),
	}
}

// Discoverable interface implementation

// Meta returns metadata describing this processor component.
func (p *Processor) Meta() component.Metadata {
	return component.Metadata{
		Name:        p.name,
		Type:        "processor",
		Description: p.settings.Description,
		Version:     "0.1.0",
	}
}

// InputPorts returns the NATS input ports this processor subscribes to.
func (p *Processor) InputPorts() []component.Port {
	return component.BuildPorts(p.settings.Ports.Inputs, component.DirectionInput)
}

// OutputPorts returns the NATS output ports records are published to.
func (p *Processor) OutputPorts() []component.Port {
	return component.BuildPorts(p.settings.Ports.Outputs, component.DirectionOutput)
}

// ConfigSchema returns the configuration schema for this processor.
func (p *Processor) ConfigSchema() component.ConfigSchema {
	return p.settings.Schema
}

// Health reports the processor healthy while it runs on a healthy connection.
func (p *Processor) Health() component.HealthStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	status := component.HealthStatus{
		Healthy:    p.running && p.natsClient != nil && p.natsClient.IsHealthy(),
		LastCheck:  time.Now(),
		ErrorCount: int(p.errorCount.Load()),
		LastError:  p.lastError,
	}
	if p.running {
		status.Uptime = time.Since(p.startTime)
	}
	return status
}

// DataFlow returns current data flow metrics for this processor.
func (p *Processor) DataFlow() component.FlowMetrics {
	p.mu.RLock()
	defer p.mu.RUnlock()

	received := p.received.Load()
	flow := component.FlowMetrics{LastActivity: p.lastActivity}
	if received > 0 {
		flow.ErrorRate = float64(p.errorCount.Load()) / float64(received)
	}
	if p.running {
		if elapsed := time.Since(p.startTime).Seconds(); elapsed > 0 {
			flow.MessagesPerSecond = float64(received) / elapsed
		}
	}
	return flow
}
