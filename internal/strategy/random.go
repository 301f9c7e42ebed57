package strategy

import (
	"math/rand/v2"
)

type randomStrategy struct{}

func (r *randomStrategy) SelectWorker(queueLens []int) int {
	if len(queueLens) == 0 {
		return -1
	}

	return rand.IntN(len(queueLens))
}

func (r *randomStrategy) Name() string { return Random }

func NewRandomStrategy() Strategy {
	return &randomStrategy{}
}
