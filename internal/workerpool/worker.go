package workerpool

import (
	"fmt"
	"runtime/debug"
	"sync"
)

// Task is a unit of work run exactly once on some worker.
type Task func()

// QueueOrder selects which queued task a worker runs next.
type QueueOrder int

const (
	LIFO QueueOrder = iota
	FIFO
)

func ParseQueueOrder(s string) (QueueOrder, error) {
	switch s {
	case "lifo":
		return LIFO, nil
	case "fifo":
		return FIFO, nil
	default:
		return 0, fmt.Errorf("workerpool: unknown queue order %q", s)
	}
}

func (o QueueOrder) String() string {
	if o == FIFO {
		return "fifo"
	}
	return "lifo"
}

type panicHandler func(w *worker, recovered any, stack []byte)

// worker state is guarded by mutex; wake is signalled whenever a task is
// queued or the worker is asked to stop.
type worker struct {
	id      int
	order   QueueOrder
	onPanic panicHandler

	mutex    sync.Mutex
	wake     *sync.Cond
	queue    []Task
	occupied bool
	stopping bool
	dead     bool
}

func newWorker(id int, order QueueOrder, onPanic panicHandler) *worker {
	w := &worker{
		id:      id,
		order:   order,
		onPanic: onPanic,
	}
	w.wake = sync.NewCond(&w.mutex)
	return w
}

func (w *worker) start(wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.run()
	}()
}

func (w *worker) run() {
	for {
		task, ok := w.next()
		if !ok {
			return
		}
		if !w.execute(task) {
			return
		}
	}
}

// next blocks until a task is queued, or returns false once the worker is
// stopping and its queue is empty.
func (w *worker) next() (Task, bool) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	for len(w.queue) == 0 && !w.stopping {
		w.wake.Wait()
	}

	if len(w.queue) == 0 {
		w.occupied = false
		w.dead = true
		return nil, false
	}

	var task Task
	if w.order == FIFO {
		task = w.queue[0]
		w.queue[0] = nil
		w.queue = w.queue[1:]
	} else {
		last := len(w.queue) - 1
		task = w.queue[last]
		w.queue[last] = nil
		w.queue = w.queue[:last]
	}
	w.occupied = true

	return task, true
}

// execute runs task and reports whether the worker survived it.
func (w *worker) execute(task Task) (survived bool) {
	defer func() {
		if r := recover(); r != nil {
			stack := debug.Stack()

			w.mutex.Lock()
			w.dead = true
			w.mutex.Unlock()

			w.onPanic(w, r, stack)
			survived = false
		}
	}()

	task()

	w.mutex.Lock()
	if len(w.queue) == 0 {
		w.occupied = false
	}
	w.mutex.Unlock()

	return true
}

// offer hands task to the worker only if it is idle.
func (w *worker) offer(task Task) bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.dead || w.stopping || w.occupied {
		return false
	}
	w.enqueue(task)
	return true
}

// push queues task regardless of load. It fails only for a worker that has
// died or is stopping.
func (w *worker) push(task Task) bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.dead || w.stopping {
		return false
	}
	w.enqueue(task)
	return true
}

// enqueue requires w.mutex.
func (w *worker) enqueue(task Task) {
	w.queue = append(w.queue, task)
	w.occupied = true
	w.wake.Signal()
}

func (w *worker) stop() {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	w.stopping = true
	w.wake.Broadcast()
}

func (w *worker) alive() bool {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return !w.dead
}

func (w *worker) queueLen() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return len(w.queue)
}

// drain empties the queue of a dead worker and returns what was left, in
// submission order.
func (w *worker) drain() []Task {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	tasks := w.queue
	w.queue = nil
	return tasks
}

func (w *worker) stats() WorkerStats {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	return WorkerStats{
		ID:       w.id,
		QueueLen: len(w.queue),
		Occupied: w.occupied,
		Alive:    !w.dead,
	}
}
