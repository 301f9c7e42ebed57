package metrics

import (
	"sort"
	"sync"
	"time"
)

const maxSamples = 1000

type Metrics struct {
	mutex         sync.RWMutex
	totalRequests int64
	parseFailures int64
	misses        map[int]int64
	responses     map[string]int64
	responseTimes map[string][]time.Duration
	statusCodes   map[string]map[int]int64
	spawned       int64
	reaped        int64
	panicked      int64
	requeued      int64
	startTime     time.Time
}

type Snapshot struct {
	TotalRequests int64                   `json:"total_requests"`
	ParseFailures int64                   `json:"parse_failures"`
	Uptime        time.Duration           `json:"uptime"`
	Misses        map[int]int64           `json:"misses"`
	Routes        map[string]RouteMetrics `json:"routes"`
	Pool          PoolMetrics             `json:"pool"`
}

type RouteMetrics struct {
	Responses   int64         `json:"responses"`
	AvgResponse time.Duration `json:"avg_response"`
	P50Response time.Duration `json:"p50_response"`
	P95Response time.Duration `json:"p95_response"`
	P99Response time.Duration `json:"p99_response"`
	StatusCodes map[int]int64 `json:"status_codes"`
}

type PoolMetrics struct {
	Strategy       string `json:"strategy"`
	WorkersSpawned int64  `json:"workers_spawned"`
	WorkersReaped  int64  `json:"workers_reaped"`
	WorkerPanics   int64  `json:"worker_panics"`
	TasksRequeued  int64  `json:"tasks_requeued"`
}

func (m *Metrics) IncrementRequests() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.totalRequests++
}

func (m *Metrics) RecordParseFailure() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.parseFailures++
}

func (m *Metrics) RecordMiss(statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.misses[statusCode]++
}

// RecordResponse is keyed by registered route path only, so the number of
// keys stays bounded by the route table.
func (m *Metrics) RecordResponse(path string, duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.responses[path]++
	m.responseTimes[path] = append(m.responseTimes[path], duration)

	if len(m.responseTimes[path]) > maxSamples {
		m.responseTimes[path] = m.responseTimes[path][1:]
	}

	if m.statusCodes[path] == nil {
		m.statusCodes[path] = make(map[int]int64)
	}
	m.statusCodes[path][statusCode]++
}

func (m *Metrics) RecordWorkerSpawned() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.spawned++
}

func (m *Metrics) RecordWorkerReaped() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.reaped++
}

func (m *Metrics) RecordWorkerPanicked() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.panicked++
}

func (m *Metrics) RecordTaskRequeued() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.requeued++
}

func (m *Metrics) Snapshot(strategy string) Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		TotalRequests: m.totalRequests,
		ParseFailures: m.parseFailures,
		Uptime:        time.Since(m.startTime),
		Misses:        make(map[int]int64, len(m.misses)),
		Routes:        make(map[string]RouteMetrics, len(m.responses)),
		Pool: PoolMetrics{
			Strategy:       strategy,
			WorkersSpawned: m.spawned,
			WorkersReaped:  m.reaped,
			WorkerPanics:   m.panicked,
			TasksRequeued:  m.requeued,
		},
	}

	for code, n := range m.misses {
		snap.Misses[code] = n
	}

	for path, n := range m.responses {
		rm := RouteMetrics{
			Responses:   n,
			StatusCodes: make(map[int]int64, len(m.statusCodes[path])),
		}
		for code, count := range m.statusCodes[path] {
			rm.StatusCodes[code] = count
		}

		durations := m.responseTimes[path]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			rm.AvgResponse = average(sorted)
			rm.P50Response = percentile(sorted, 0.50)
			rm.P95Response = percentile(sorted, 0.95)
			rm.P99Response = percentile(sorted, 0.99)
		}

		snap.Routes[path] = rm
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		misses:        make(map[int]int64),
		responses:     make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		startTime:     time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
