package metrics_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/threadserve/internal/metrics"
)

var _ = Describe("Metrics", func() {
	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	Describe("NewMetrics", func() {
		It("should create a new metrics instance", func() {
			Expect(m).NotTo(BeNil())
			snap := m.Snapshot("least-queue")
			Expect(snap.TotalRequests).To(BeZero())
			Expect(snap.Routes).To(BeEmpty())
			Expect(snap.Pool.Strategy).To(Equal("least-queue"))
		})
	})

	Describe("IncrementRequests", func() {
		It("should count every parsed request", func() {
			m.IncrementRequests()
			m.IncrementRequests()

			Expect(m.Snapshot("").TotalRequests).To(Equal(int64(2)))
		})
	})

	Describe("RecordMiss", func() {
		It("should count misses per status code", func() {
			m.RecordMiss(404)
			m.RecordMiss(404)
			m.RecordMiss(405)

			snap := m.Snapshot("")
			Expect(snap.Misses).To(Equal(map[int]int64{404: 2, 405: 1}))
		})
	})

	Describe("RecordParseFailure", func() {
		It("should count parse failures", func() {
			m.RecordParseFailure()
			Expect(m.Snapshot("").ParseFailures).To(Equal(int64(1)))
		})
	})

	Describe("RecordResponse", func() {
		It("should record response time and status code", func() {
			m.RecordResponse("/hello", 100*time.Millisecond, 200)

			route := m.Snapshot("").Routes["/hello"]
			Expect(route.Responses).To(Equal(int64(1)))
			Expect(route.AvgResponse).To(Equal(100 * time.Millisecond))
			Expect(route.StatusCodes[200]).To(Equal(int64(1)))
		})

		It("should track routes separately", func() {
			m.RecordResponse("/a", 10*time.Millisecond, 200)
			m.RecordResponse("/b", 20*time.Millisecond, 500)
			m.RecordResponse("/a", 30*time.Millisecond, 401)

			snap := m.Snapshot("")
			Expect(snap.Routes).To(HaveLen(2))
			Expect(snap.Routes["/a"].Responses).To(Equal(int64(2)))
			Expect(snap.Routes["/a"].AvgResponse).To(Equal(20 * time.Millisecond))
			Expect(snap.Routes["/a"].StatusCodes).To(Equal(map[int]int64{200: 1, 401: 1}))
			Expect(snap.Routes["/b"].StatusCodes).To(Equal(map[int]int64{500: 1}))
		})

		It("should calculate percentiles", func() {
			for i := 1; i <= 100; i++ {
				m.RecordResponse("/p", time.Duration(i)*time.Millisecond, 200)
			}

			route := m.Snapshot("").Routes["/p"]
			Expect(route.P50Response).To(Equal(51 * time.Millisecond))
			Expect(route.P95Response).To(Equal(96 * time.Millisecond))
			Expect(route.P99Response).To(Equal(100 * time.Millisecond))
		})

		It("should keep only the most recent samples", func() {
			for i := 0; i < 1500; i++ {
				m.RecordResponse("/busy", time.Millisecond, 200)
			}
			m.RecordResponse("/busy", 2*time.Second, 200)

			route := m.Snapshot("").Routes["/busy"]
			Expect(route.Responses).To(Equal(int64(1501)))
			// 999 samples of 1ms plus the 2s one
			Expect(route.AvgResponse).To(Equal((999*time.Millisecond + 2*time.Second) / 1000))
		})
	})

	Describe("pool counters", func() {
		It("should count worker lifecycle events", func() {
			m.RecordWorkerSpawned()
			m.RecordWorkerSpawned()
			m.RecordWorkerPanicked()
			m.RecordWorkerReaped()
			m.RecordTaskRequeued()
			m.RecordTaskRequeued()

			pool := m.Snapshot("round-robin").Pool
			Expect(pool).To(Equal(metrics.PoolMetrics{
				Strategy:       "round-robin",
				WorkersSpawned: 2,
				WorkersReaped:  1,
				WorkerPanics:   1,
				TasksRequeued:  2,
			}))
		})
	})

	Describe("Snapshot", func() {
		It("should not share maps with the live metrics", func() {
			m.RecordMiss(404)
			snap := m.Snapshot("")
			snap.Misses[404] = 99

			Expect(m.Snapshot("").Misses[404]).To(Equal(int64(1)))
		})
	})
})
