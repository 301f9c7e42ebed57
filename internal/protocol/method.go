package protocol

// Method is the closed set of request methods the parser accepts.
type Method int

const (
	MethodGet Method = iota + 1
	MethodPost
	MethodPut
	MethodPatch
	MethodDelete
	MethodOptions
)

var methodNames = map[Method]string{
	MethodGet:     "GET",
	MethodPost:    "POST",
	MethodPut:     "PUT",
	MethodPatch:   "PATCH",
	MethodDelete:  "DELETE",
	MethodOptions: "OPTIONS",
}

// ParseMethod maps a request-line token onto a Method. Matching is
// case-sensitive, as on the wire.
func ParseMethod(token string) (Method, bool) {
	switch token {
	case "GET":
		return MethodGet, true
	case "POST":
		return MethodPost, true
	case "PUT":
		return MethodPut, true
	case "PATCH":
		return MethodPatch, true
	case "DELETE":
		return MethodDelete, true
	case "OPTIONS":
		return MethodOptions, true
	default:
		return 0, false
	}
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return "UNKNOWN"
}

// Valid reports whether m is one of the recognized methods.
func (m Method) Valid() bool {
	_, ok := methodNames[m]
	return ok
}
