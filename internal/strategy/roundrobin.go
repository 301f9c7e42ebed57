package strategy

import (
	"sync/atomic"
)

type roundRobinStrategy struct {
	current uint64
}

func (rb *roundRobinStrategy) SelectWorker(queueLens []int) int {
	if len(queueLens) == 0 {
		return -1
	}

	n := atomic.AddUint64(&rb.current, 1)

	return int((n - 1) % uint64(len(queueLens)))
}

func (rb *roundRobinStrategy) Name() string { return RoundRobin }

func NewRoundRobinStrategy() Strategy {
	return &roundRobinStrategy{
		current: 0,
	}
}
