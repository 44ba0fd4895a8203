package recordproc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semtransform/component"
	"github.com/c360/semtransform/errors"
	"github.com/c360/semtransform/metric"
	"github.com/c360/semtransform/record"
	"github.com/c360/semtransform/transform"
)

type fakePublisher struct {
	mu       sync.Mutex
	attempts int
	failures int   // fail this many attempts before succeeding
	err      error // error returned while failing
	msgs     []*nats.Msg
}

func (f *fakePublisher) publish(_ context.Context, msg *nats.Msg) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.attempts <= f.failures {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakePublisher) published() []*nats.Msg {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*nats.Msg(nil), f.msgs...)
}

func testPorts(outputs ...string) component.PortConfig {
	pc := component.PortConfig{
		Inputs: []component.PortDefinition{{Name: "in", Type: "nats", Subject: "records.in"}},
	}
	for _, subject := range outputs {
		pc.Outputs = append(pc.Outputs, component.PortDefinition{Name: subject, Type: "nats", Subject: subject})
	}
	return pc
}

var fastRetry = &errors.RetryConfig{
	MaxRetries:    3,
	InitialDelay:  time.Millisecond,
	MaxDelay:      2 * time.Millisecond,
	BackoffFactor: 2,
}

func newTestProcessor(
	t *testing.T, tr transform.Transformation, registry *metric.MetricsRegistry, outputs ...string,
) (*Processor, *fakePublisher) {
	t.Helper()
	p, err := New(Settings{
		Kind:        "test_kind",
		Description: "test processor",
		Ports:       testPorts(outputs...),
		Retry:       fastRetry,
	}, tr, component.Dependencies{InstanceName: t.Name(), MetricsRegistry: registry})
	require.NoError(t, err)

	pub := &fakePublisher{}
	p.publish = pub.publish
	return p, pub
}

func encode(t *testing.T, rec *record.Record) *nats.Msg {
	t.Helper()
	msg, err := record.Encode(rec, "records.in")
	require.NoError(t, err)
	return msg
}

func headerFilter(t *testing.T) transform.Transformation {
	t.Helper()
	f, err := transform.NewHeaderFilter(transform.FilterConfig{HeaderKey: "x-debug"})
	require.NoError(t, err)
	return f
}

func TestNew_Validation(t *testing.T) {
	tr := headerFilter(t)

	tests := map[string]func() (*Processor, error){
		"missing kind": func() (*Processor, error) {
			return New(Settings{Ports: testPorts("out")}, tr, component.Dependencies{})
		},
		"missing transformation": func() (*Processor, error) {
			return New(Settings{Kind: "k", Ports: testPorts("out")}, nil, component.Dependencies{})
		},
		"no outputs": func() (*Processor, error) {
			return New(Settings{Kind: "k", Ports: testPorts()}, tr, component.Dependencies{})
		},
	}
	for name, build := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := build()
			require.Error(t, err)
			assert.True(t, errors.IsInvalid(err))
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	p, err := New(Settings{Kind: "header_filter", Ports: testPorts("out")}, headerFilter(t), component.Dependencies{})
	require.NoError(t, err)

	assert.Equal(t, "header_filter", p.Name(), "kind is the fallback name")
	assert.Equal(t, DefaultWorkers, p.settings.Workers)
	assert.Equal(t, DefaultQueueSize, p.settings.QueueSize)
	assert.Equal(t, errors.DefaultRetryConfig(), p.retry)
	assert.Nil(t, p.metrics)
}

func TestStart_RequiresNATSClient(t *testing.T) {
	p, _ := newTestProcessor(t, headerFilter(t), nil, "out")

	err := p.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))
	assert.NoError(t, p.Stop(time.Second), "stop before start is a no-op")
}

func TestHandleMessage_HeaderFilter(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	p, pub := newTestProcessor(t, headerFilter(t), registry, "out.a", "out.b")
	ctx := context.Background()

	debug := &record.Record{ID: "r1", Topic: "records.in", Value: map[string]any{"a": "1"}}
	debug.Headers.Add("x-debug", "true")
	require.NoError(t, p.handleMessage(ctx, encode(t, debug)))
	assert.Empty(t, pub.published())

	clean := &record.Record{ID: "r2", Topic: "records.in", Value: map[string]any{"a": "1"}}
	clean.Headers.Add("trace", "abc")
	require.NoError(t, p.handleMessage(ctx, encode(t, clean)))

	msgs := pub.published()
	require.Len(t, msgs, 2)
	assert.Equal(t, "out.a", msgs[0].Subject)
	assert.Equal(t, "out.b", msgs[1].Subject)
	assert.Equal(t, []string{"abc"}, msgs[0].Header["trace"])

	assert.Equal(t, Stats{Received: 2, Passed: 1, Dropped: 1}, p.Stats())

	m := p.metrics
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recordsTotal.WithLabelValues(p.Name(), "test_kind", statusDropped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.recordsTotal.WithLabelValues(p.Name(), "test_kind", statusPassed)))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.dropRate.WithLabelValues(p.Name())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishedTotal.WithLabelValues(p.Name(), "out.a")))
}

func TestHandleMessage_FieldRouter(t *testing.T) {
	router, err := transform.NewFieldRouter(transform.RouterConfig{SourceKey: "user.id", DestKey: "userId"})
	require.NoError(t, err)
	p, pub := newTestProcessor(t, router, nil, "out")

	in := &record.Record{
		ID:        "r1",
		Topic:     "users",
		Key:       "k1",
		Timestamp: time.UnixMilli(1700000000000),
		Value:     map[string]any{"user": map[string]any{"id": "42", "name": "ada"}},
	}
	require.NoError(t, p.handleMessage(context.Background(), encode(t, in)))

	msgs := pub.published()
	require.Len(t, msgs, 1)
	out, err := record.Decode(msgs[0])
	require.NoError(t, err)

	assert.Equal(t, "r1", out.ID)
	assert.Equal(t, "users", out.Topic)
	assert.Equal(t, "k1", out.Key)
	assert.True(t, in.Timestamp.Equal(out.Timestamp))
	assert.Equal(t, map[string]any{
		"user":   map[string]any{"name": "ada"},
		"userId": "42",
	}, out.Value)
	assert.Equal(t, int64(1), p.Stats().Modified)
}

func TestHandleMessage_DecodeError(t *testing.T) {
	registry := metric.NewMetricsRegistry()
	p, pub := newTestProcessor(t, headerFilter(t), registry, "out")

	msg := nats.NewMsg("records.in")
	msg.Data = []byte("not json")
	err := p.handleMessage(context.Background(), msg)
	require.Error(t, err)

	assert.Empty(t, pub.published())
	assert.Equal(t, int64(1), p.Stats().Errors)
	assert.NotEmpty(t, p.Health().LastError)
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.errors.WithLabelValues(p.Name(), errorDecode)))
	assert.Equal(t, 1.0, testutil.ToFloat64(
		registry.CoreMetrics().ErrorsTotal.WithLabelValues(p.Name(), errorDecode)))
}

func TestPublish_RetriesTransientErrors(t *testing.T) {
	p, pub := newTestProcessor(t, headerFilter(t), nil, "out")
	pub.failures = 2
	pub.err = errors.WrapTransient(errors.ErrConnectionLost, "test", "publish", "send")

	rec := &record.Record{ID: "r1", Value: map[string]any{"a": "1"}}
	require.NoError(t, p.handleMessage(context.Background(), encode(t, rec)))

	assert.Equal(t, 3, pub.attempts)
	assert.Len(t, pub.published(), 1)
	assert.Zero(t, p.Stats().Errors)
}

func TestPublish_DoesNotRetryInvalidErrors(t *testing.T) {
	p, pub := newTestProcessor(t, headerFilter(t), nil, "out")
	pub.failures = 10
	pub.err = errors.WrapInvalid(errors.ErrInvalidData, "test", "publish", "send")

	rec := &record.Record{ID: "r1", Value: map[string]any{"a": "1"}}
	require.Error(t, p.handleMessage(context.Background(), encode(t, rec)))

	assert.Equal(t, 1, pub.attempts)
	assert.Equal(t, int64(1), p.Stats().Errors)
}

func TestPublish_GivesUpAfterMaxRetries(t *testing.T) {
	p, pub := newTestProcessor(t, headerFilter(t), nil, "out")
	pub.failures = 100
	pub.err = errors.WrapTransient(errors.ErrConnectionLost, "test", "publish", "send")

	rec := &record.Record{ID: "r1", Value: map[string]any{"a": "1"}}
	require.Error(t, p.handleMessage(context.Background(), encode(t, rec)))
	assert.Equal(t, fastRetry.MaxRetries+1, pub.attempts)
}

func TestDiscoverable(t *testing.T) {
	p, _ := newTestProcessor(t, headerFilter(t), nil, "out.a", "out.b")

	meta := p.Meta()
	assert.Equal(t, t.Name(), meta.Name)
	assert.Equal(t, "processor", meta.Type)
	assert.Equal(t, "test processor", meta.Description)

	inputs := p.InputPorts()
	require.Len(t, inputs, 1)
	assert.Equal(t, component.DirectionInput, inputs[0].Direction)
	assert.Equal(t, "records.in", inputs[0].Config.(component.NATSPort).Subject)
	assert.Len(t, p.OutputPorts(), 2)

	health := p.Health()
	assert.False(t, health.Healthy)
	assert.Zero(t, health.Uptime)

	flow := p.DataFlow()
	assert.Zero(t, flow.ErrorRate)
	assert.Zero(t, flow.MessagesPerSecond)
}

func TestMetrics_SharedAcrossInstances(t *testing.T) {
	registry := metric.NewMetricsRegistry()

	a, _ := newTestProcessor(t, headerFilter(t), registry, "out")
	b, err := New(Settings{Kind: "test_kind", Ports: testPorts("out")}, headerFilter(t),
		component.Dependencies{InstanceName: "second", MetricsRegistry: registry})
	require.NoError(t, err)

	require.NotNil(t, a.metrics)
	require.NotNil(t, b.metrics)
	assert.Same(t, a.metrics.recordsTotal, b.metrics.recordsTotal)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, statusDropped, statusOf(transform.OutcomeDropped))
	assert.Equal(t, statusModified, statusOf(transform.OutcomeModified))
	for _, o := range []transform.Outcome{transform.OutcomePassed, transform.OutcomeNoBody, transform.OutcomeNoMatch} {
		assert.Equal(t, statusPassed, statusOf(o))
	}

	var m *processorMetrics
	m.recordOutcome(transform.OutcomePassed, time.Millisecond)
	m.recordError(errorDecode)
	m.recordPublished("x")
	m.updateDropRate(1, 2)
}
