// Package metrics provides real-time metrics collection for the server.
//
// It uses a channel-based event pipeline to asynchronously collect metrics about:
//   - Requests received, parse failures and route misses (404/405)
//   - Per-route response counts, status codes and latency percentiles (P50, P95, P99)
//   - Worker pool activity: workers spawned, reaped and panicked, tasks re-queued
//
// Every event is also mirrored to OpenTelemetry instruments. Without a
// configured meter provider the global one is used, which is a no-op until
// telemetry is set up.
package metrics
