package metrics

import (
	"encoding/json"
	"log/slog"

	"github.com/angeloszaimis/threadserve/internal/protocol"
	"github.com/angeloszaimis/threadserve/internal/router"
)

// Handler serves the current snapshot as JSON. It is registered in the
// route table like any other route.
func (c *Collector) Handler(strategy string) router.Handler {
	return router.HandlerFunc(func(req *protocol.Request, res *protocol.Response) {
		body, err := json.Marshal(c.metrics.Snapshot(strategy))
		if err != nil {
			res.SetStatus(protocol.StatusInternalServerError)
			_ = res.SendString(err.Error())
			return
		}

		res.SetStatus(protocol.StatusOK)
		res.SetHeader("Content-Type", "application/json")
		if err := res.Send(body); err != nil {
			c.logger.Warn("failed to send metrics snapshot", slog.Any("err", err))
		}
	})
}
