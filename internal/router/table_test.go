package router_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/threadserve/internal/protocol"
	"github.com/angeloszaimis/threadserve/internal/router"
)

type countingHandler struct {
	calls int
	name  string
}

func (h *countingHandler) ServeRequest(req *protocol.Request, res *protocol.Response) {
	h.calls++
	res.SetStatus(protocol.StatusOK)
	_ = res.SendString(h.name)
}

var _ = Describe("Table", func() {
	var table *router.Table

	BeforeEach(func() {
		table = router.NewTable()
	})

	Describe("Register", func() {
		It("should store a handler for a path and method", func() {
			Expect(table.Register(protocol.MethodGet, "/", &countingHandler{})).To(Succeed())
			Expect(table.Len()).To(Equal(1))
		})

		It("should allow several methods on one path", func() {
			Expect(table.Register(protocol.MethodGet, "/items", &countingHandler{})).To(Succeed())
			Expect(table.Register(protocol.MethodPost, "/items", &countingHandler{})).To(Succeed())
			Expect(table.Len()).To(Equal(2))
		})

		It("should reject a duplicate path and method", func() {
			Expect(table.Register(protocol.MethodGet, "/dup", &countingHandler{})).To(Succeed())

			err := table.Register(protocol.MethodGet, "/dup", &countingHandler{})
			Expect(err).To(MatchError(router.ErrDuplicateRoute))

			var conflict *router.ConflictError
			Expect(err).To(BeAssignableToTypeOf(conflict))
			Expect(err.Error()).To(ContainSubstring(`GET "/dup"`))
			Expect(table.Len()).To(Equal(1))
		})

		DescribeTable("should reject invalid registrations",
			func(method protocol.Method, path string, handler router.Handler, expected error) {
				err := table.Register(method, path, handler)
				Expect(err).To(MatchError(expected))
				Expect(table.Len()).To(BeZero())
			},
			Entry("path without leading slash", protocol.MethodGet, "hello", &countingHandler{}, router.ErrInvalidPath),
			Entry("empty path", protocol.MethodGet, "", &countingHandler{}, router.ErrInvalidPath),
			Entry("unsupported method", protocol.Method(42), "/x", &countingHandler{}, router.ErrInvalidMethod),
			Entry("nil handler", protocol.MethodGet, "/x", nil, router.ErrNilHandler),
		)
	})

	Describe("MustRegister", func() {
		It("should panic on conflict", func() {
			table.MustRegister(protocol.MethodPut, "/p", &countingHandler{})
			Expect(func() {
				table.MustRegister(protocol.MethodPut, "/p", &countingHandler{})
			}).To(Panic())
		})
	})

	Describe("convenience helpers", func() {
		It("should register each helper under its own method", func() {
			noop := func(*protocol.Request, *protocol.Response) {}

			Expect(table.Get("/r", noop)).To(Succeed())
			Expect(table.Post("/r", noop)).To(Succeed())
			Expect(table.Put("/r", noop)).To(Succeed())
			Expect(table.Patch("/r", noop)).To(Succeed())
			Expect(table.Delete("/r", noop)).To(Succeed())
			Expect(table.Options("/r", noop)).To(Succeed())

			Expect(table.Allowed("/r")).To(Equal([]protocol.Method{
				protocol.MethodGet,
				protocol.MethodPost,
				protocol.MethodPut,
				protocol.MethodPatch,
				protocol.MethodDelete,
				protocol.MethodOptions,
			}))
		})
	})

	Describe("Lookup", func() {
		var getHandler, postHandler *countingHandler

		BeforeEach(func() {
			getHandler = &countingHandler{name: "get"}
			postHandler = &countingHandler{name: "post"}
			table.MustRegister(protocol.MethodGet, "/users", getHandler)
			table.MustRegister(protocol.MethodPost, "/users", postHandler)
		})

		It("should find the exact handler", func() {
			h, outcome := table.Lookup("/users", protocol.MethodPost)
			Expect(outcome).To(Equal(router.Found))

			var buf bytes.Buffer
			h.ServeRequest(protocol.NewRequest(protocol.MethodPost, "/users", nil, nil), protocol.NewResponse(&buf))

			Expect(postHandler.calls).To(Equal(1))
			Expect(getHandler.calls).To(BeZero())
			Expect(buf.String()).To(HaveSuffix("post"))
		})

		It("should report an unknown path", func() {
			h, outcome := table.Lookup("/missing", protocol.MethodGet)
			Expect(outcome).To(Equal(router.PathUnknown))
			Expect(h).To(BeNil())
		})

		It("should report an unknown method on a known path", func() {
			h, outcome := table.Lookup("/users", protocol.MethodDelete)
			Expect(outcome).To(Equal(router.MethodUnknown))
			Expect(h).To(BeNil())
		})

		DescribeTable("should match paths exactly",
			func(path string) {
				_, outcome := table.Lookup(path, protocol.MethodGet)
				Expect(outcome).To(Equal(router.PathUnknown))
			},
			Entry("trailing slash", "/users/"),
			Entry("prefix", "/user"),
			Entry("sub path", "/users/1"),
			Entry("query string", "/users?id=1"),
			Entry("different case", "/Users"),
		)

		It("should list allowed methods of a path", func() {
			Expect(table.Allowed("/users")).To(Equal([]protocol.Method{protocol.MethodGet, protocol.MethodPost}))
			Expect(table.Allowed("/missing")).To(BeEmpty())
		})
	})

	Describe("Outcome", func() {
		It("should render readable names", func() {
			Expect(router.Found.String()).To(Equal("found"))
			Expect(router.PathUnknown.String()).To(Equal("path-unknown"))
			Expect(router.MethodUnknown.String()).To(Equal("method-unknown"))
		})
	})
})
