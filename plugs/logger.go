// Package plugs contains the stock plugs.
package plugs

import (
	"log/slog"

	"github.com/benbjohnson/clock"
	"github.com/namjae/plug/conn"
	"github.com/namjae/plug/internal/logattr"
	"github.com/namjae/plug/pipeline"
)

// Logger logs a line per request right before the response is sent.
func Logger(logger *slog.Logger, clk clock.Clock) pipeline.Plug {
	if logger == nil {
		logger = slog.Default()
	}

	if clk == nil {
		clk = clock.New()
	}

	return func(c conn.Conn) (conn.Conn, error) {
		start := clk.Now()

		return c.RegisterBeforeSend(func(c conn.Conn) conn.Conn {
			var requestID string
			if ids := c.GetRespHeader(RequestIDHeader); len(ids) > 0 {
				requestID = ids[0]
			}

			logger.LogAttrs(c.Context(), slog.LevelInfo, "request",
				logattr.Method(c.Method),
				logattr.Path(c.RequestPath),
				logattr.StatusCode(c.Status()),
				logattr.Duration(clk.Since(start)),
				logattr.RequestID(requestID),
				slog.String("kind", c.State().String()),
			)

			return c
		})
	}
}
