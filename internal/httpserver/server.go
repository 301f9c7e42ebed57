package httpserver

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/angeloszaimis/threadserve/internal/metrics"
	"github.com/angeloszaimis/threadserve/internal/protocol"
	"github.com/angeloszaimis/threadserve/internal/router"
	"github.com/angeloszaimis/threadserve/internal/workerpool"
	"github.com/angeloszaimis/threadserve/pkg/logger"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

var (
	ErrServerClosed = errors.New("httpserver: server closed")
	ErrMissingDeps  = errors.New("httpserver: route table and worker pool are required")
)

// BindError is returned by ListenAndServe when the address cannot be bound.
type BindError struct {
	Addr string
	Err  error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("httpserver: bind %s: %v", e.Addr, e.Err)
}

func (e *BindError) Unwrap() error { return e.Err }

type Server struct {
	addr            string
	table           *router.Table
	pool            *workerpool.Pool
	logger          *slog.Logger
	collector       *metrics.Collector
	readTimeout     time.Duration
	shutdownTimeout time.Duration
	limits          protocol.Limits

	mutex    sync.Mutex
	listener net.Listener
	closed   bool
}

// New validates addr and returns a server that is not yet listening.
func New(addr string, table *router.Table, pool *workerpool.Pool, opts ...Option) (*Server, error) {
	if err := ValidateAddress(addr); err != nil {
		return nil, err
	}
	if table == nil || pool == nil {
		return nil, ErrMissingDeps
	}

	srv := &Server{
		addr:            addr,
		table:           table,
		pool:            pool,
		logger:          slog.New(slog.DiscardHandler),
		readTimeout:     15 * time.Second,
		shutdownTimeout: 5 * time.Second,
		limits:          protocol.DefaultLimits,
	}

	for _, opt := range opts {
		opt(srv)
	}
	srv.logger = logger.Component(srv.logger, "httpserver")

	return srv, nil
}

// Start listens and serves until Shutdown. Unlike ListenAndServe it returns
// nil after a clean shutdown.
func (s *Server) Start() error {
	err := s.ListenAndServe()
	if err != nil && !errors.Is(err, ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return &BindError{Addr: s.addr, Err: err}
	}

	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown, and always returns a
// non-nil error. After Shutdown the error is ErrServerClosed.
func (s *Server) Serve(ln net.Listener) error {
	s.mutex.Lock()
	if s.closed {
		s.mutex.Unlock()
		_ = ln.Close()
		return ErrServerClosed
	}
	s.listener = ln
	s.mutex.Unlock()

	s.logger.Info("server listening", slog.String("addr", ln.Addr().String()))

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.isClosed() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("httpserver: accept: %w", err)
			}

			backoff = nextBackoff(backoff)
			s.logger.Warn("accept failed",
				slog.Any("err", err),
				slog.Duration("retry_in", backoff))
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		s.handle(conn)
	}
}

func nextBackoff(current time.Duration) time.Duration {
	if current == 0 {
		return minAcceptBackoff
	}
	return min(current*2, maxAcceptBackoff)
}

// handle parses one request and either answers it directly or hands it to
// the pool. It runs on the accept goroutine.
func (s *Server) handle(conn net.Conn) {
	start := time.Now()

	if s.readTimeout > 0 {
		_ = conn.SetReadDeadline(start.Add(s.readTimeout))
	}

	req, err := protocol.ReadRequestWithLimits(bufio.NewReader(conn), s.limits)
	if err != nil {
		s.logger.Warn("failed to parse request",
			slog.String("remote", conn.RemoteAddr().String()),
			slog.Any("err", err))
		s.collector.Emit(metrics.MetricEvent{Type: metrics.EventParseFailed})
		s.reply(conn, protocol.StatusBadRequest, nil)
		return
	}
	_ = conn.SetReadDeadline(time.Time{})

	s.collector.Emit(metrics.MetricEvent{Type: metrics.EventRequestReceived, Path: req.Path()})

	handler, outcome := s.table.Lookup(req.Path(), req.Method())
	switch outcome {
	case router.PathUnknown:
		s.miss(conn, req, protocol.StatusNotFound, nil)

	case router.MethodUnknown:
		s.miss(conn, req, protocol.StatusMethodNotAllowed, map[string]string{
			"allow": allowHeader(s.table.Allowed(req.Path())),
		})

	default:
		if err := s.pool.Submit(s.dispatch(conn, req, handler, start)); err != nil {
			s.logger.Error("failed to dispatch request",
				slog.String("path", req.Path()),
				slog.Any("err", err))
			s.reply(conn, protocol.StatusInternalServerError, nil)
		}
	}
}

func (s *Server) miss(conn net.Conn, req *protocol.Request, status protocol.Status, headers map[string]string) {
	s.logger.Debug("route miss",
		slog.String("method", req.Method().String()),
		slog.String("path", req.Path()),
		slog.Int("status", int(status)))
	s.collector.Emit(metrics.MetricEvent{Type: metrics.EventRouteMissed, Path: req.Path(), StatusCode: int(status)})
	s.reply(conn, status, headers)
}

// reply writes a body equal to the reason phrase and closes conn.
func (s *Server) reply(conn net.Conn, status protocol.Status, headers map[string]string) {
	defer conn.Close()

	res := protocol.NewResponse(conn)
	res.SetStatus(status)
	for k, v := range headers {
		res.SetHeader(k, v)
	}

	if err := res.SendString(status.Reason()); err != nil {
		s.logger.Debug("failed to write response",
			slog.Int("status", int(status)),
			slog.Any("err", err))
	}
}

// dispatch builds the task that runs handler on a worker. The task owns
// conn and closes it. A panicking handler gets a 500 if nothing was sent
// yet, and the panic is passed on to the worker.
func (s *Server) dispatch(conn net.Conn, req *protocol.Request, handler router.Handler, start time.Time) workerpool.Task {
	return func() {
		res := protocol.NewResponse(conn)

		defer func() {
			r := recover()
			if r == nil {
				return
			}

			if !res.Sent() {
				fallback := protocol.NewResponse(conn)
				fallback.SetStatus(protocol.StatusInternalServerError)
				_ = fallback.SendString(protocol.StatusInternalServerError.Reason())
			}
			_ = conn.Close()
			s.complete(req, protocol.StatusInternalServerError, start)

			panic(r)
		}()

		handler.ServeRequest(req, res)
		_ = conn.Close()

		status, ok := res.Status()
		if !res.Sent() {
			s.logger.Warn("handler returned without sending a response",
				slog.String("method", req.Method().String()),
				slog.String("path", req.Path()))
		}
		if !ok {
			status = protocol.StatusInternalServerError
		}
		s.complete(req, status, start)
	}
}

func (s *Server) complete(req *protocol.Request, status protocol.Status, start time.Time) {
	duration := time.Since(start)

	s.logger.Debug("request served",
		slog.String("method", req.Method().String()),
		slog.String("path", req.Path()),
		slog.Int("status", int(status)),
		slog.Duration("duration", duration))
	s.collector.Emit(metrics.MetricEvent{
		Type:       metrics.EventResponseCompleted,
		Path:       req.Path(),
		Duration:   duration,
		StatusCode: int(status),
	})
}

func allowHeader(methods []protocol.Method) string {
	names := make([]string, len(methods))
	for i, m := range methods {
		names[i] = m.String()
	}
	return strings.Join(names, ", ")
}

// Shutdown stops accepting connections and then waits for the pool to
// finish the requests already handed to it.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	s.mutex.Lock()
	s.closed = true
	ln := s.listener
	s.mutex.Unlock()

	var errs []error
	if ln != nil {
		if err := ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			errs = append(errs, err)
		}
	}

	if err := s.pool.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	s.logger.Info("server stopped")

	return errors.Join(errs...)
}

// Addr is the bound address once serving, else the configured one.
func (s *Server) Addr() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) isClosed() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.closed
}

// ValidateAddress is an ozzo-validation rule body for host:port strings.
// The host may be empty; the port may not.
func ValidateAddress(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cant be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}
