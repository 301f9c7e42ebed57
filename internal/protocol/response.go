package protocol

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
)

// Response builds and sends the single response of one connection.
// Header keys are lower-cased. Send may be called once.
type Response struct {
	mutex     sync.Mutex
	w         io.Writer
	status    Status
	hasStatus bool
	headers   map[string]string
	sent      bool
}

func NewResponse(w io.Writer) *Response {
	return &Response{
		w:       w,
		headers: make(map[string]string),
	}
}

func (r *Response) SetStatus(status Status) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.status = status
	r.hasStatus = true
}

// Status returns the status set so far and whether one was set at all.
func (r *Response) Status() (Status, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.status, r.hasStatus
}

func (r *Response) SetHeader(key, value string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.headers[strings.ToLower(strings.TrimSpace(key))] = value
}

func (r *Response) Header(key string) string {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.headers[strings.ToLower(key)]
}

// Sent reports whether Send has been attempted, successfully or not.
func (r *Response) Sent() bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.sent
}

// Send writes the status line, the headers in key order, a computed
// content-length, the blank line and body, then flushes. It fails with
// ErrMissingStatus, without writing anything, when no status was set.
func (r *Response) Send(body []byte) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.hasStatus {
		return ErrMissingStatus
	}
	if r.sent {
		return ErrAlreadySent
	}
	r.sent = true

	if err := r.write(body); err != nil {
		return &WriteError{Err: err}
	}
	return nil
}

func (r *Response) SendString(body string) error {
	return r.Send([]byte(body))
}

func (r *Response) write(body []byte) error {
	bw, ok := r.w.(*bufio.Writer)
	if !ok {
		bw = bufio.NewWriter(r.w)
	}

	if _, err := fmt.Fprintf(bw, "HTTP/1.1 %d %s\r\n", int(r.status), r.status.Reason()); err != nil {
		return err
	}

	keys := make([]string, 0, len(r.headers))
	for k := range r.headers {
		if k == "content-length" {
			continue
		}
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		if _, err := fmt.Fprintf(bw, "%s:%s\r\n", sanitize(k), sanitize(r.headers[k])); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(bw, "content-length:%d\r\n\r\n", len(body)); err != nil {
		return err
	}
	if len(body) > 0 {
		if _, err := bw.Write(body); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// sanitize drops CR, LF and other control characters except HTAB so a
// header cannot break out of its line.
func sanitize(v string) string {
	return strings.Map(func(c rune) rune {
		if c == '\t' {
			return c
		}
		if c < 0x20 || c == 0x7f {
			return -1
		}
		return c
	}, v)
}
