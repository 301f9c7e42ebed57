package protocol

import (
	"errors"
	"strings"
)

var (
	ErrMalformedRequestLine = errors.New("protocol: malformed request line")
	ErrUnknownMethod        = errors.New("protocol: method not implemented")
	ErrInvalidPath          = errors.New("protocol: path must start with /")
	ErrTruncatedHeaders     = errors.New("protocol: connection closed before end of headers")
	ErrHeadersTooLarge      = errors.New("protocol: request line and headers too large")
	ErrInvalidContentLength = errors.New("protocol: invalid content-length")
	ErrTruncatedBody        = errors.New("protocol: body shorter than content-length")
	ErrBodyTooLarge         = errors.New("protocol: content-length exceeds body limit")

	ErrMissingStatus = errors.New("protocol: send called before status was set")
	ErrAlreadySent   = errors.New("protocol: response already sent")
)

// ParseError is returned by ReadRequest. Reason is one of the Err*
// sentinels above; Err carries the underlying I/O or conversion failure
// when there is one.
type ParseError struct {
	Reason error
	Err    error
}

func (e *ParseError) Error() string {
	var b strings.Builder
	b.WriteString(e.Reason.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *ParseError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Reason}
	}
	return []error{e.Reason, e.Err}
}

// WriteError wraps an I/O failure while writing a response. It is fatal to
// the connection it happened on and nothing else.
type WriteError struct {
	Err error
}

func (e *WriteError) Error() string { return "protocol: write response: " + e.Err.Error() }

func (e *WriteError) Unwrap() error { return e.Err }
