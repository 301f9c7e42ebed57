package httpserver

import (
	"log/slog"
	"time"

	"github.com/angeloszaimis/threadserve/internal/metrics"
	"github.com/angeloszaimis/threadserve/internal/protocol"
)

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithCollector(collector *metrics.Collector) Option {
	return func(s *Server) {
		s.collector = collector
	}
}

// WithReadTimeout bounds how long the accept loop waits for a client to
// deliver its request. Zero disables the deadline.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.readTimeout = d
	}
}

// WithShutdownTimeout bounds Shutdown in addition to the caller's context.
func WithShutdownTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithRequestLimits caps the header and body bytes read per request.
// Requests over either cap are answered with 400.
func WithRequestLimits(limits protocol.Limits) Option {
	return func(s *Server) {
		s.limits = limits
	}
}
