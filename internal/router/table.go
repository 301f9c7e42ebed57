package router

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/angeloszaimis/threadserve/internal/protocol"
)

var (
	ErrDuplicateRoute = errors.New("route already registered")
	ErrInvalidPath    = errors.New("route path must start with /")
	ErrInvalidMethod  = errors.New("route method is not supported")
	ErrNilHandler     = errors.New("route handler is nil")
)

// ConflictError reports a rejected registration.
type ConflictError struct {
	Method protocol.Method
	Path   string
	Err    error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("router: %s %q: %v", e.Method, e.Path, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// Outcome is the result class of a lookup.
type Outcome int

const (
	Found Outcome = iota
	PathUnknown
	MethodUnknown
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case PathUnknown:
		return "path-unknown"
	case MethodUnknown:
		return "method-unknown"
	default:
		return "unknown"
	}
}

type Table struct {
	mutex  sync.RWMutex
	routes map[string]map[protocol.Method]Handler
}

func NewTable() *Table {
	return &Table{
		routes: make(map[string]map[protocol.Method]Handler),
	}
}

// Register adds handler for the exact (path, method) pair.
func (t *Table) Register(method protocol.Method, path string, handler Handler) error {
	if !strings.HasPrefix(path, "/") {
		return &ConflictError{Method: method, Path: path, Err: ErrInvalidPath}
	}
	if !method.Valid() {
		return &ConflictError{Method: method, Path: path, Err: ErrInvalidMethod}
	}
	if handler == nil {
		return &ConflictError{Method: method, Path: path, Err: ErrNilHandler}
	}

	t.mutex.Lock()
	defer t.mutex.Unlock()

	methods, ok := t.routes[path]
	if !ok {
		methods = make(map[protocol.Method]Handler)
		t.routes[path] = methods
	}
	if _, exists := methods[method]; exists {
		return &ConflictError{Method: method, Path: path, Err: ErrDuplicateRoute}
	}

	methods[method] = handler
	return nil
}

// MustRegister is Register for build-time tables; it panics on conflict.
func (t *Table) MustRegister(method protocol.Method, path string, handler Handler) {
	if err := t.Register(method, path, handler); err != nil {
		panic(err)
	}
}

func (t *Table) Get(path string, fn HandlerFunc) error {
	return t.Register(protocol.MethodGet, path, fn)
}

func (t *Table) Post(path string, fn HandlerFunc) error {
	return t.Register(protocol.MethodPost, path, fn)
}

func (t *Table) Put(path string, fn HandlerFunc) error {
	return t.Register(protocol.MethodPut, path, fn)
}

func (t *Table) Patch(path string, fn HandlerFunc) error {
	return t.Register(protocol.MethodPatch, path, fn)
}

func (t *Table) Delete(path string, fn HandlerFunc) error {
	return t.Register(protocol.MethodDelete, path, fn)
}

func (t *Table) Options(path string, fn HandlerFunc) error {
	return t.Register(protocol.MethodOptions, path, fn)
}

// Lookup finds the handler for an exact (path, method) pair. The handler is
// nil unless the outcome is Found.
func (t *Table) Lookup(path string, method protocol.Method) (Handler, Outcome) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	methods, ok := t.routes[path]
	if !ok {
		return nil, PathUnknown
	}

	handler, ok := methods[method]
	if !ok {
		return nil, MethodUnknown
	}

	return handler, Found
}

// Allowed lists the methods registered for path in enum order.
func (t *Table) Allowed(path string) []protocol.Method {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	methods := make([]protocol.Method, 0, len(t.routes[path]))
	for m := range t.routes[path] {
		methods = append(methods, m)
	}
	slices.Sort(methods)
	return methods
}

// Len returns the number of registered (path, method) pairs.
func (t *Table) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	n := 0
	for _, methods := range t.routes {
		n += len(methods)
	}
	return n
}
