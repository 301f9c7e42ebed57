package strategy_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/threadserve/internal/strategy"
)

var _ = Describe("LeastQueue", func() {
	var strat strategy.Strategy

	BeforeEach(func() {
		strat = strategy.NewLeastQueueStrategy()
	})

	Describe("SelectWorker", func() {
		It("should select worker with fewest queued tasks", func() {
			Expect(strat.SelectWorker([]int{2, 1, 0})).To(Equal(2))
			Expect(strat.SelectWorker([]int{3, 0, 4})).To(Equal(1))
		})

		It("should prefer the earliest worker on ties", func() {
			Expect(strat.SelectWorker([]int{1, 1, 1})).To(Equal(0))
			Expect(strat.SelectWorker([]int{5, 2, 2})).To(Equal(1))
		})

		It("should return -1 for no workers", func() {
			Expect(strat.SelectWorker(nil)).To(Equal(-1))
		})

		It("should spread successive placements when lengths are updated", func() {
			lens := []int{0, 0, 0, 0}
			for i := 0; i < 8; i++ {
				lens[strat.SelectWorker(lens)]++
			}
			Expect(lens).To(Equal([]int{2, 2, 2, 2}))
		})
	})
})
