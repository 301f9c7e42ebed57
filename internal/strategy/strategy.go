package strategy

import "fmt"

const (
	LeastQueue = "least-queue"
	RoundRobin = "round-robin"
	Random     = "random"
)

// Strategy picks the worker that receives a task when every worker is
// busy. queueLens holds one entry per live worker in creation order; the
// result is an index into it, or -1 when it is empty.
type Strategy interface {
	SelectWorker(queueLens []int) int
	Name() string
}

// New returns the strategy registered under name.
func New(name string) (Strategy, error) {
	switch name {
	case LeastQueue:
		return NewLeastQueueStrategy(), nil
	case RoundRobin:
		return NewRoundRobinStrategy(), nil
	case Random:
		return NewRandomStrategy(), nil
	default:
		return nil, fmt.Errorf("strategy: unknown strategy %q", name)
	}
}
