// Package workerpool runs tasks on a capacity-capped set of long-lived
// worker goroutines, each owning a private unbounded queue.
//
// On every Submit the pool first reaps workers that have died, then places
// the task: on an idle worker if there is one, on a newly spawned worker if
// the pool is below capacity, and otherwise on the worker chosen by the
// configured strategy (shortest queue by default).
//
// A task that panics terminates its worker. The panic is logged, the worker
// is removed at the next Submit, its id is reused by the next spawned
// worker, and the tasks still queued on it are placed again.
//
// Queues pop in LIFO order by default: the most recently submitted task
// runs first. FIFO is available through WithQueueOrder.
package workerpool
