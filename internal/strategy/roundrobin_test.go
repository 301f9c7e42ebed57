package strategy_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/threadserve/internal/strategy"
)

var _ = Describe("Roundrobin", func() {
	var strat strategy.Strategy

	BeforeEach(func() {
		strat = strategy.NewRoundRobinStrategy()
	})

	Describe("SelectWorker", func() {
		It("should cycle through workers in order", func() {
			lens := []int{5, 0, 9}
			Expect(strat.SelectWorker(lens)).To(Equal(0))
			Expect(strat.SelectWorker(lens)).To(Equal(1))
			Expect(strat.SelectWorker(lens)).To(Equal(2))
			Expect(strat.SelectWorker(lens)).To(Equal(0))
		})

		It("should distribute load evenly", func() {
			counts := make(map[int]int)
			for i := 0; i < 300; i++ {
				counts[strat.SelectWorker([]int{0, 0, 0})]++
			}
			Expect(counts).To(Equal(map[int]int{0: 100, 1: 100, 2: 100}))
		})

		It("should return -1 for no workers", func() {
			Expect(strat.SelectWorker([]int{})).To(Equal(-1))
		})
	})
})

var _ = Describe("Random", func() {
	var strat strategy.Strategy

	BeforeEach(func() {
		strat = strategy.NewRandomStrategy()
	})

	It("should select an index in range", func() {
		for i := 0; i < 50; i++ {
			Expect(strat.SelectWorker([]int{0, 0, 0})).To(BeNumerically("~", 1, 1))
		}
	})

	It("should distribute across workers over multiple calls", func() {
		seen := make(map[int]bool)
		for i := 0; i < 100; i++ {
			seen[strat.SelectWorker([]int{0, 0, 0})] = true
		}
		Expect(len(seen)).To(BeNumerically(">=", 2))
	})

	It("should return -1 for no workers", func() {
		Expect(strat.SelectWorker(nil)).To(Equal(-1))
	})
})
