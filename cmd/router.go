package main

import (
	"slices"
	"strings"

	"github.com/angeloszaimis/threadserve/internal/metrics"
	"github.com/angeloszaimis/threadserve/internal/protocol"
	"github.com/angeloszaimis/threadserve/internal/router"
)

// setupRouter registers the built-in routes. The metrics route is skipped
// when collector is nil.
func setupRouter(collector *metrics.Collector, metricsPath, strategyName string) (*router.Table, error) {
	table := router.NewTable()

	if err := table.Get("/", hello); err != nil {
		return nil, err
	}
	if err := table.Post("/echo", echo); err != nil {
		return nil, err
	}
	if err := table.Get("/headers", headers); err != nil {
		return nil, err
	}

	if collector != nil {
		if err := table.Register(protocol.MethodGet, metricsPath, collector.Handler(strategyName)); err != nil {
			return nil, err
		}
	}

	return table, nil
}

func hello(req *protocol.Request, res *protocol.Response) {
	res.SetStatus(protocol.StatusOK)
	_ = res.SendString("Hello World")
}

func echo(req *protocol.Request, res *protocol.Response) {
	if ct, ok := req.Header("content-type"); ok {
		res.SetHeader("content-type", ct)
	}
	res.SetStatus(protocol.StatusOK)
	_ = res.Send(req.Body())
}

// headers answers with the request headers, one key:value per line,
// sorted by key.
func headers(req *protocol.Request, res *protocol.Response) {
	all := req.Headers()

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(all[k])
		b.WriteByte('\n')
	}

	res.SetStatus(protocol.StatusOK)
	_ = res.SendString(b.String())
}
