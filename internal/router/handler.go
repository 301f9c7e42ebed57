package router

import "github.com/angeloszaimis/threadserve/internal/protocol"

// Handler answers one request. Implementations may carry their own state.
type Handler interface {
	ServeRequest(req *protocol.Request, res *protocol.Response)
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(req *protocol.Request, res *protocol.Response)

func (f HandlerFunc) ServeRequest(req *protocol.Request, res *protocol.Response) {
	f(req, res)
}
