package workerpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"

	"github.com/angeloszaimis/threadserve/internal/metrics"
	"github.com/angeloszaimis/threadserve/internal/strategy"
	"github.com/angeloszaimis/threadserve/pkg/logger"
)

var (
	ErrPoolClosed      = errors.New("workerpool: pool is shut down")
	ErrShutdownTimeout = errors.New("workerpool: shutdown timed out")
	ErrNilTask         = errors.New("workerpool: nil task")
)

// WorkerStats is a point-in-time view of one worker.
type WorkerStats struct {
	ID       int
	QueueLen int
	Occupied bool
	Alive    bool
}

// Pool is safe for concurrent use. Submit and Shutdown serialize on the
// pool mutex; workers only ever take their own lock.
type Pool struct {
	mutex   sync.Mutex
	workers []*worker
	freeIDs []int
	nextID  int
	closed  bool
	wg      sync.WaitGroup

	capacity  int
	strategy  strategy.Strategy
	order     QueueOrder
	logger    *slog.Logger
	collector *metrics.Collector
}

func New(opts ...Option) *Pool {
	p := &Pool{
		capacity: runtime.NumCPU(),
		strategy: strategy.NewLeastQueueStrategy(),
		order:    LIFO,
		logger:   slog.New(slog.DiscardHandler),
	}

	for _, opt := range opts {
		opt(p)
	}
	p.logger = logger.Component(p.logger, "workerpool")

	return p
}

// Submit places task on a worker. It never blocks on task execution.
func (p *Pool) Submit(task Task) error {
	if task == nil {
		return ErrNilTask
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.closed {
		return ErrPoolClosed
	}

	p.reap()
	p.place(task)

	return nil
}

// place retries until some live worker accepts task. A failed attempt means
// the chosen worker died in between, so dead workers are reaped first.
func (p *Pool) place(task Task) {
	for !p.placeOnce(task) {
		p.reap()
	}
}

func (p *Pool) placeOnce(task Task) bool {
	for _, w := range p.workers {
		if w.offer(task) {
			return true
		}
	}

	if len(p.workers) < p.capacity {
		return p.spawn().push(task)
	}

	lens := make([]int, len(p.workers))
	for i, w := range p.workers {
		lens[i] = w.queueLen()
	}

	idx := p.strategy.SelectWorker(lens)
	if idx < 0 || idx >= len(p.workers) {
		idx = 0
	}

	return p.workers[idx].push(task)
}

// reap removes dead workers, frees their ids and places their orphaned
// tasks again. Requires p.mutex.
func (p *Pool) reap() {
	var orphans []Task

	live := p.workers[:0]
	for _, w := range p.workers {
		if w.alive() {
			live = append(live, w)
			continue
		}

		tasks := w.drain()
		orphans = append(orphans, tasks...)
		p.releaseID(w.id)

		p.logger.Debug("reaped dead worker",
			slog.Int("worker", w.id),
			slog.Int("orphaned_tasks", len(tasks)))
		p.collector.Emit(metrics.MetricEvent{Type: metrics.EventWorkerReaped, Worker: w.id})
	}
	clear(p.workers[len(live):])
	p.workers = live

	for _, task := range orphans {
		p.place(task)
		p.collector.Emit(metrics.MetricEvent{Type: metrics.EventTaskRequeued})
	}
}

// spawn requires p.mutex.
func (p *Pool) spawn() *worker {
	w := newWorker(p.allocateID(), p.order, p.handlePanic)
	w.start(&p.wg)
	p.workers = append(p.workers, w)

	p.logger.Debug("spawned worker",
		slog.Int("worker", w.id),
		slog.Int("live", len(p.workers)),
		slog.Int("capacity", p.capacity))
	p.collector.Emit(metrics.MetricEvent{Type: metrics.EventWorkerSpawned, Worker: w.id})

	return w
}

func (p *Pool) allocateID() int {
	if len(p.freeIDs) > 0 {
		id := p.freeIDs[0]
		p.freeIDs = p.freeIDs[1:]
		return id
	}

	id := p.nextID
	p.nextID++
	return id
}

func (p *Pool) releaseID(id int) {
	i, _ := slices.BinarySearch(p.freeIDs, id)
	p.freeIDs = slices.Insert(p.freeIDs, i, id)
}

// handlePanic runs on the dying worker's goroutine.
func (p *Pool) handlePanic(w *worker, recovered any, stack []byte) {
	p.logger.Error("task panicked, worker terminated",
		slog.Int("worker", w.id),
		slog.Any("panic", recovered),
		slog.String("stack", string(stack)))
	p.collector.Emit(metrics.MetricEvent{Type: metrics.EventWorkerPanicked, Worker: w.id})
}

// Shutdown stops accepting tasks and waits for every worker to finish its
// queue. Tasks stranded on a worker that dies during shutdown are dropped.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mutex.Lock()
	if !p.closed {
		p.reap()
		p.closed = true
		for _, w := range p.workers {
			w.stop()
		}
		p.logger.Debug("pool shutting down", slog.Int("workers", len(p.workers)))
	}
	p.mutex.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrShutdownTimeout, ctx.Err())
	}
}

// Stats reports every worker the pool still tracks, dead ones included
// until the next Submit reaps them.
func (p *Pool) Stats() []WorkerStats {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	stats := make([]WorkerStats, len(p.workers))
	for i, w := range p.workers {
		stats[i] = w.stats()
	}
	return stats
}

func (p *Pool) Capacity() int { return p.capacity }

// Size is the number of tracked workers, which never exceeds Capacity.
func (p *Pool) Size() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.workers)
}

func (p *Pool) StrategyName() string { return p.strategy.Name() }
