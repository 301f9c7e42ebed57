package workerpool

import (
	"log/slog"

	"github.com/angeloszaimis/threadserve/internal/metrics"
	"github.com/angeloszaimis/threadserve/internal/strategy"
)

type Option func(*Pool)

// WithCapacity caps the number of live workers. Values below 1 are ignored
// and the default of runtime.NumCPU() applies.
func WithCapacity(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.capacity = n
		}
	}
}

// WithStrategy sets how a busy pool at capacity picks the worker that
// queues the next task.
func WithStrategy(s strategy.Strategy) Option {
	return func(p *Pool) {
		if s != nil {
			p.strategy = s
		}
	}
}

func WithQueueOrder(order QueueOrder) Option {
	return func(p *Pool) {
		p.order = order
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithCollector(collector *metrics.Collector) Option {
	return func(p *Pool) {
		p.collector = collector
	}
}
