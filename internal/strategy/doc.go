// Package strategy decides which busy worker receives a task once the pool
// has no idle worker and no room to grow:
//
//   - Least Queue: the worker with the fewest queued tasks, earliest worker on ties
//   - Round Robin: workers in turn, ignoring queue lengths
//   - Random: a uniformly random worker
//
// Strategies see a snapshot of queue lengths; the lengths may change before
// the task is actually enqueued.
package strategy
