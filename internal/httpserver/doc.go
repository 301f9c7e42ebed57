// Package httpserver accepts TCP connections and serves one request per
// connection.
//
// Requests are parsed on the accepting goroutine, so a slow client delays
// the next accept. Misses (404, 405) and malformed requests (400) are
// answered right there; matched requests are handed to a workerpool.Pool
// together with their connection, and the worker closes the connection once
// the handler returns.
package httpserver
