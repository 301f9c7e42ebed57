// Loadtest fires concurrent requests at a running threadserve instance and
// reports throughput, status distribution and latency percentiles per path.
//
// Usage:
//
//	go run loadtest.go -addr http://localhost:8080 -paths /,/headers -concurrency 50 -requests 5000
//	go run loadtest.go -paths /echo -method POST -body hello -csv results.csv -out summary.json
//
// Every request opens a fresh connection because the server closes each
// connection after one response.
package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type pathStats struct {
	Count     int32
	Success   int32
	Failure   int32
	Latencies []time.Duration
}

type latencySummary struct {
	Samples int     `json:"samples"`
	Min     float64 `json:"min_ms"`
	Avg     float64 `json:"avg_ms"`
	Max     float64 `json:"max_ms"`
	P50     float64 `json:"p50_ms"`
	P90     float64 `json:"p90_ms"`
	P95     float64 `json:"p95_ms"`
	P99     float64 `json:"p99_ms"`
}

func summarize(latencies []time.Duration) latencySummary {
	if len(latencies) == 0 {
		return latencySummary{}
	}

	sorted := slices.Clone(latencies)
	slices.Sort(sorted)

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000.0 }
	pick := func(p float64) float64 { return ms(sorted[int(float64(len(sorted)-1)*p)]) }

	return latencySummary{
		Samples: len(sorted),
		Min:     ms(sorted[0]),
		Avg:     ms(sum / time.Duration(len(sorted))),
		Max:     ms(sorted[len(sorted)-1]),
		P50:     pick(0.50),
		P90:     pick(0.90),
		P95:     pick(0.95),
		P99:     pick(0.99),
	}
}

func (s latencySummary) String() string {
	return fmt.Sprintf("samples=%d min=%.3fms avg=%.3fms max=%.3fms p50=%.3fms p90=%.3fms p95=%.3fms p99=%.3fms",
		s.Samples, s.Min, s.Avg, s.Max, s.P50, s.P90, s.P95, s.P99)
}

func main() {
	var (
		addr        = flag.String("addr", "http://localhost:8080", "Server base URL")
		pathList    = flag.String("paths", "/", "Comma separated paths, used round robin")
		concurrency = flag.Int("concurrency", 10, "Number of concurrent clients")
		requests    = flag.Int("requests", 100, "Total number of requests to send")
		method      = flag.String("method", "GET", "Request method")
		body        = flag.String("body", "", "Request body")
		timeout     = flag.Duration("timeout", 10*time.Second, "Per-request timeout")
	)

	outJSON := flag.String("out", "", "Write JSON summary to this file (optional)")
	outCSV := flag.String("csv", "", "Write per-request CSV to this file (optional)")
	verbose := flag.Bool("v", false, "Verbose per-request logging to stdout")
	flag.Parse()

	paths := strings.Split(*pathList, ",")

	client := &http.Client{
		Timeout:   *timeout,
		Transport: &http.Transport{DisableKeepAlives: true},
	}

	var (
		total, success, failure atomic.Int32

		statsMu     sync.Mutex
		stats       = make(map[string]*pathStats)
		statusCodes = make(map[int]int32)
		all         []time.Duration
	)

	var (
		csvMu     sync.Mutex
		csvFile   *os.File
		csvWriter *csv.Writer
	)
	if *outCSV != "" {
		f, err := os.Create(*outCSV)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create csv file: %v\n", err)
			os.Exit(1)
		}
		csvFile = f
		csvWriter = csv.NewWriter(f)
		_ = csvWriter.Write([]string{"idx", "timestamp", "path", "status", "duration_ms"})
	}

	record := func(idx int, path string, status int, dur time.Duration) {
		statsMu.Lock()
		ps, ok := stats[path]
		if !ok {
			ps = &pathStats{}
			stats[path] = ps
		}
		ps.Count++
		if status >= 200 && status <= 299 {
			ps.Success++
		} else {
			ps.Failure++
		}
		ps.Latencies = append(ps.Latencies, dur)
		all = append(all, dur)
		statusCodes[status]++
		statsMu.Unlock()

		if csvWriter != nil {
			csvMu.Lock()
			_ = csvWriter.Write([]string{
				strconv.Itoa(idx),
				time.Now().Format(time.RFC3339Nano),
				path,
				strconv.Itoa(status),
				fmt.Sprintf("%.3f", float64(dur.Microseconds())/1000.0),
			})
			csvMu.Unlock()
		}
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	testStart := time.Now()

	for i := 0; i < *concurrency; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			for idx := range jobs {
				total.Add(1)
				path := paths[idx%len(paths)]

				req, err := http.NewRequest(*method, *addr+path, bytes.NewBufferString(*body))
				if err != nil {
					failure.Add(1)
					continue
				}

				start := time.Now()
				resp, err := client.Do(req)
				dur := time.Since(start)

				if err != nil {
					failure.Add(1)
					record(idx, path, 0, dur)
					if *verbose {
						fmt.Printf("[%d] idx=%d path=%s error=%v\n", clientID, idx, path, err)
					}
					continue
				}

				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()

				if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
					success.Add(1)
				} else {
					failure.Add(1)
				}
				record(idx, path, resp.StatusCode, dur)

				if *verbose {
					fmt.Printf("[%d] idx=%d path=%s status=%d dur=%v\n", clientID, idx, path, resp.StatusCode, dur)
				}
			}
		}(i)
	}

	go func() {
		for i := 0; i < *requests; i++ {
			jobs <- i
		}
		close(jobs)
	}()

	wg.Wait()
	totalDuration := time.Since(testStart)

	if csvWriter != nil {
		csvWriter.Flush()
		csvFile.Close()
	}

	throughput := float64(total.Load()) / totalDuration.Seconds()

	fmt.Println("--- Load Test Summary ---")
	fmt.Printf("Target: %s  Paths: %s\n", *addr, *pathList)
	fmt.Printf("Requests: %d  Concurrency: %d\n", *requests, *concurrency)
	fmt.Printf("Total sent: %d  Success: %d  Failure: %d\n", total.Load(), success.Load(), failure.Load())
	fmt.Printf("Duration: %v  Throughput: %.2f req/s\n", totalDuration, throughput)

	fmt.Println("\nStatus codes (0 = transport error):")
	codes := make([]int, 0, len(statusCodes))
	for k := range statusCodes {
		codes = append(codes, k)
	}
	slices.Sort(codes)
	for _, k := range codes {
		fmt.Printf("  %d -> %d\n", k, statusCodes[k])
	}

	fmt.Println("\nPer path:")
	names := make([]string, 0, len(stats))
	for k := range stats {
		names = append(names, k)
	}
	slices.Sort(names)
	for _, k := range names {
		ps := stats[k]
		fmt.Printf("  %s -> total=%d success=%d failure=%d\n", k, ps.Count, ps.Success, ps.Failure)
		fmt.Printf("    %s\n", summarize(ps.Latencies))
	}

	overall := summarize(all)
	fmt.Printf("\nOverall latencies:\n  %s\n", overall)
	fmt.Printf("\nGOMAXPROCS=%d  NumGoroutine=%d\n", runtime.GOMAXPROCS(0), runtime.NumGoroutine())

	if *outJSON != "" {
		type pathSummary struct {
			Total     int32          `json:"total"`
			Success   int32          `json:"success"`
			Failure   int32          `json:"failure"`
			Latencies latencySummary `json:"latencies"`
		}

		perPath := make(map[string]pathSummary, len(stats))
		for k, ps := range stats {
			perPath[k] = pathSummary{
				Total:     ps.Count,
				Success:   ps.Success,
				Failure:   ps.Failure,
				Latencies: summarize(ps.Latencies),
			}
		}

		report := map[string]interface{}{
			"target":         *addr,
			"requests":       *requests,
			"concurrency":    *concurrency,
			"total_sent":     total.Load(),
			"success":        success.Load(),
			"failure":        failure.Load(),
			"duration_ms":    totalDuration.Milliseconds(),
			"throughput_rps": throughput,
			"status_codes":   statusCodes,
			"latencies":      overall,
			"paths":          perPath,
		}

		f, err := os.Create(*outJSON)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create json file: %v\n", err)
			os.Exit(1)
		}
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		_ = enc.Encode(report)
		f.Close()
		fmt.Printf("\nWrote JSON summary to %s\n", *outJSON)
	}

	if failure.Load() > 0 {
		os.Exit(2)
	}
}
