package strategy

import "math"

type leastQueueStrategy struct {
}

// SelectWorker returns the worker with the shortest queue. Ties go to the
// earliest created worker.
func (l *leastQueueStrategy) SelectWorker(queueLens []int) int {
	if len(queueLens) == 0 {
		return -1
	}

	best := -1
	bestLen := math.MaxInt

	for i, n := range queueLens {
		if n < bestLen {
			bestLen = n
			best = i
		}
	}

	return best
}

func (l *leastQueueStrategy) Name() string { return LeastQueue }

func NewLeastQueueStrategy() Strategy {
	return &leastQueueStrategy{}
}
