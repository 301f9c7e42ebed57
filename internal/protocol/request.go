package protocol

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"strconv"
	"strings"
)

// Request is a parsed request. It is not modified after ReadRequest
// returns it.
type Request struct {
	method  Method
	path    string
	version string
	headers map[string]string
	body    []byte
}

// NewRequest builds a Request directly, mainly for exercising handlers
// without a connection. Header keys are lower-cased.
func NewRequest(method Method, path string, headers map[string]string, body []byte) *Request {
	h := make(map[string]string, len(headers))
	for k, v := range headers {
		h[strings.ToLower(strings.TrimSpace(k))] = v
	}
	if len(body) == 0 {
		body = nil
	}
	return &Request{
		method:  method,
		path:    path,
		version: "HTTP/1.1",
		headers: h,
		body:    body,
	}
}

func (r *Request) Method() Method  { return r.method }
func (r *Request) Path() string    { return r.path }
func (r *Request) Version() string { return r.version }

// Header returns the value stored under the lower-cased key.
func (r *Request) Header(key string) (string, bool) {
	v, ok := r.headers[strings.ToLower(key)]
	return v, ok
}

// Headers returns a copy of all headers.
func (r *Request) Headers() map[string]string {
	return maps.Clone(r.headers)
}

// Body returns the request body, or nil when the request had none.
func (r *Request) Body() []byte { return r.body }

func (r *Request) HasBody() bool { return r.body != nil }

// Limits bounds what ReadRequest buffers for one request. A zero field
// disables that bound.
type Limits struct {
	// MaxHeaderBytes covers the request line and all header lines,
	// terminators included.
	MaxHeaderBytes int
	MaxBodyBytes   int64
}

var DefaultLimits = Limits{
	MaxHeaderBytes: 1 << 20,
	MaxBodyBytes:   10 << 20,
}

// bodyChunk caps the up-front allocation for a body; the buffer grows
// only as bytes actually arrive.
const bodyChunk = 64 << 10

// ReadRequest reads exactly one request from br under DefaultLimits.
// Bytes after the body are left unread in br.
func ReadRequest(br *bufio.Reader) (*Request, error) {
	return ReadRequestWithLimits(br, DefaultLimits)
}

func ReadRequestWithLimits(br *bufio.Reader, limits Limits) (*Request, error) {
	budget := &headerBudget{max: limits.MaxHeaderBytes}

	line, err := budget.readLine(br)
	if err != nil {
		if errors.Is(err, ErrHeadersTooLarge) {
			return nil, &ParseError{Reason: ErrHeadersTooLarge}
		}
		return nil, &ParseError{Reason: ErrMalformedRequestLine, Err: err}
	}

	method, path, version, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}

	headers, err := readHeaders(br, budget)
	if err != nil {
		return nil, err
	}

	req := &Request{
		method:  method,
		path:    path,
		version: version,
		headers: headers,
	}

	raw, ok := headers["content-length"]
	if !ok {
		return req, nil
	}

	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, &ParseError{Reason: ErrInvalidContentLength, Err: err}
	}
	if n < 0 {
		return nil, &ParseError{Reason: ErrInvalidContentLength}
	}
	if limits.MaxBodyBytes > 0 && n > limits.MaxBodyBytes {
		return nil, &ParseError{Reason: ErrBodyTooLarge, Err: fmt.Errorf("%d > %d bytes", n, limits.MaxBodyBytes)}
	}
	if n == 0 {
		return req, nil
	}

	body, err := readBody(br, n)
	if err != nil {
		return nil, &ParseError{Reason: ErrTruncatedBody, Err: err}
	}
	req.body = body

	return req, nil
}

func readBody(br *bufio.Reader, n int64) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(int(min(n, bodyChunk)))

	if _, err := io.CopyN(&buf, br, n); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

func parseRequestLine(line string) (Method, string, string, error) {
	parts := strings.Split(line, " ")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return 0, "", "", &ParseError{Reason: ErrMalformedRequestLine}
	}

	method, ok := ParseMethod(parts[0])
	if !ok {
		return 0, "", "", &ParseError{Reason: ErrUnknownMethod, Err: errors.New(strconv.Quote(parts[0]))}
	}

	if !strings.HasPrefix(parts[1], "/") {
		return 0, "", "", &ParseError{Reason: ErrInvalidPath}
	}

	return method, parts[1], parts[2], nil
}

func readHeaders(br *bufio.Reader, budget *headerBudget) (map[string]string, error) {
	headers := make(map[string]string)
	for {
		line, err := budget.readLine(br)
		if err != nil {
			if errors.Is(err, ErrHeadersTooLarge) {
				return nil, &ParseError{Reason: ErrHeadersTooLarge}
			}
			return nil, &ParseError{Reason: ErrTruncatedHeaders, Err: err}
		}
		if line == "" {
			return headers, nil
		}

		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		if key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(value)
	}
}

// headerBudget counts the bytes consumed by the request line and headers.
type headerBudget struct {
	max  int
	used int
}

// readLine returns one line without its CRLF or bare LF terminator. A line
// cut short by EOF is an error, and so is a line that would exceed the
// remaining budget.
func (b *headerBudget) readLine(br *bufio.Reader) (string, error) {
	var line []byte
	for {
		chunk, err := br.ReadSlice('\n')
		b.used += len(chunk)
		if b.max > 0 && b.used > b.max {
			return "", ErrHeadersTooLarge
		}
		line = append(line, chunk...)

		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return "", io.ErrUnexpectedEOF
		}
		return "", err
	}

	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	return string(line), nil
}
