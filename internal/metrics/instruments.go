package metrics

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type instruments struct {
	requests      metric.Int64Counter
	parseFailures metric.Int64Counter
	misses        metric.Int64Counter
	responses     metric.Int64Counter
	duration      metric.Float64Histogram
	spawned       metric.Int64Counter
	reaped        metric.Int64Counter
	panicked      metric.Int64Counter
	requeued      metric.Int64Counter
}

func newInstruments(meter metric.Meter) (*instruments, error) {
	var (
		inst instruments
		errs []error
	)

	counter := func(name, desc, unit string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
		errs = append(errs, err)
		return c
	}

	inst.requests = counter("threadserve.requests", "Requests parsed successfully", "{request}")
	inst.parseFailures = counter("threadserve.parse_failures", "Connections whose request could not be parsed", "{request}")
	inst.misses = counter("threadserve.route_misses", "Requests answered with 404 or 405", "{request}")
	inst.responses = counter("threadserve.responses", "Responses produced by route handlers", "{response}")
	inst.spawned = counter("threadserve.workers.spawned", "Workers started by the pool", "{worker}")
	inst.reaped = counter("threadserve.workers.reaped", "Dead workers removed from the pool", "{worker}")
	inst.panicked = counter("threadserve.workers.panicked", "Workers terminated by a panicking task", "{worker}")
	inst.requeued = counter("threadserve.tasks.requeued", "Tasks moved off a dead worker", "{task}")

	hist, err := meter.Float64Histogram("threadserve.response.duration",
		metric.WithDescription("Handler execution time"),
		metric.WithUnit("s"))
	errs = append(errs, err)
	inst.duration = hist

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &inst, nil
}

func noopInstruments() *instruments {
	inst, _ := newInstruments(noop.NewMeterProvider().Meter(instrumentationName))
	return inst
}

func (i *instruments) record(ctx context.Context, event MetricEvent) {
	switch event.Type {
	case EventRequestReceived:
		i.requests.Add(ctx, 1)
	case EventParseFailed:
		i.parseFailures.Add(ctx, 1)
	case EventRouteMissed:
		i.misses.Add(ctx, 1, metric.WithAttributes(attribute.Int("http.response.status_code", event.StatusCode)))
	case EventResponseCompleted:
		attrs := metric.WithAttributes(
			attribute.String("http.route", event.Path),
			attribute.Int("http.response.status_code", event.StatusCode),
		)
		i.responses.Add(ctx, 1, attrs)
		i.duration.Record(ctx, event.Duration.Seconds(), attrs)
	case EventWorkerSpawned:
		i.spawned.Add(ctx, 1)
	case EventWorkerReaped:
		i.reaped.Add(ctx, 1)
	case EventWorkerPanicked:
		i.panicked.Add(ctx, 1)
	case EventTaskRequeued:
		i.requeued.Add(ctx, 1)
	}
}
