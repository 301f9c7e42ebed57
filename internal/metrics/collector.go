package metrics

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/angeloszaimis/threadserve"

type EventType string

const (
	EventRequestReceived   EventType = "request_received"
	EventParseFailed       EventType = "parse_failed"
	EventRouteMissed       EventType = "route_missed"
	EventResponseCompleted EventType = "response_completed"
	EventWorkerSpawned     EventType = "worker_spawned"
	EventWorkerReaped      EventType = "worker_reaped"
	EventWorkerPanicked    EventType = "worker_panicked"
	EventTaskRequeued      EventType = "task_requeued"
)

type MetricEvent struct {
	Type       EventType
	Timestamp  time.Time
	Path       string
	Worker     int
	Duration   time.Duration
	StatusCode int
}

type Collector struct {
	eventCh     chan MetricEvent
	metrics     *Metrics
	logger      *slog.Logger
	instruments *instruments
}

type Option func(*collectorOptions)

type collectorOptions struct {
	meter metric.Meter
}

// WithMeter mirrors events to instruments created from meter instead of
// the global meter provider.
func WithMeter(meter metric.Meter) Option {
	return func(o *collectorOptions) {
		o.meter = meter
	}
}

func NewCollector(bufferSize int, logger *slog.Logger, opts ...Option) *Collector {
	o := collectorOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.meter == nil {
		o.meter = otel.Meter(instrumentationName)
	}

	inst, err := newInstruments(o.meter)
	if err != nil {
		logger.Warn("failed to create metric instruments, falling back to no-op", slog.Any("err", err))
		inst = noopInstruments()
	}

	return &Collector{
		eventCh:     make(chan MetricEvent, bufferSize),
		metrics:     NewMetrics(),
		logger:      logger,
		instruments: inst,
	}
}

func (c *Collector) EventChannel() chan<- MetricEvent {
	return c.eventCh
}

// Emit queues event without blocking; it is dropped when the buffer is
// full. A nil Collector ignores every event.
func (c *Collector) Emit(event MetricEvent) {
	if c == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case c.eventCh <- event:
	default:
	}
}

func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
}

func (c *Collector) run(ctx context.Context) {
	c.logger.Info("Metrics collector started")
	defer c.logger.Info("Metrics collector stopped")

	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		case <-ctx.Done():
			// Drain remaining events before shutdown
			c.drain()
			return
		}
	}
}

func (c *Collector) processEvent(event MetricEvent) {
	switch event.Type {
	case EventRequestReceived:
		c.metrics.IncrementRequests()

	case EventParseFailed:
		c.metrics.RecordParseFailure()

	case EventRouteMissed:
		c.metrics.RecordMiss(event.StatusCode)

	case EventResponseCompleted:
		c.metrics.RecordResponse(event.Path, event.Duration, event.StatusCode)

	case EventWorkerSpawned:
		c.metrics.RecordWorkerSpawned()

	case EventWorkerReaped:
		c.metrics.RecordWorkerReaped()

	case EventWorkerPanicked:
		c.metrics.RecordWorkerPanicked()

	case EventTaskRequeued:
		c.metrics.RecordTaskRequeued()
	}

	c.instruments.record(context.Background(), event)
}

func (c *Collector) drain() {
	for {
		select {
		case event := <-c.eventCh:
			c.processEvent(event)
		default:
			return
		}
	}
}

func (c *Collector) Snapshot(strategy string) Snapshot {
	return c.metrics.Snapshot(strategy)
}
