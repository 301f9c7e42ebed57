package protocol

import "strconv"

// Status is a response status code.
type Status int

const (
	StatusOK                  Status = 200
	StatusBadRequest          Status = 400
	StatusUnauthorized        Status = 401
	StatusNotFound            Status = 404
	StatusMethodNotAllowed    Status = 405
	StatusInternalServerError Status = 500
)

// Reason returns the fixed reason phrase for s, or "" for codes outside
// the supported set.
func (s Status) Reason() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusBadRequest:
		return "Bad Request"
	case StatusUnauthorized:
		return "Unauthorized"
	case StatusNotFound:
		return "Not Found"
	case StatusMethodNotAllowed:
		return "Method Not Allowed"
	case StatusInternalServerError:
		return "Internal Server Error"
	default:
		return ""
	}
}

// String renders the status the way it appears on the status line,
// e.g. "404 Not Found".
func (s Status) String() string {
	return strconv.Itoa(int(s)) + " " + s.Reason()
}
