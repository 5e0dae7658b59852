package plugs

import (
	"fmt"
	"log/slog"

	"github.com/namjae/plug/conn"
	"github.com/namjae/plug/http/status"
	"github.com/namjae/plug/internal/logattr"
	"github.com/namjae/plug/pipeline"
)

// Recover runs the plug and turns its panic into 500 Internal Server Error. The response
// staged by the plug is discarded, avoiding half-cooked responses being sent. If the plug
// sent anything before panicking, the connection is just halted.
func Recover(logger *slog.Logger, next pipeline.Plug) pipeline.Plug {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c conn.Conn) (result conn.Conn, err error) {
		signal := conn.NewSignal()
		c = c.AddOwner(signal)

		defer func() {
			r := recover()
			if r == nil {
				return
			}

			logger.LogAttrs(c.Context(), slog.LevelError, "plug panicked",
				logattr.Error(fmt.Errorf("%v", r)),
				logattr.Method(c.Method),
				logattr.Path(c.RequestPath),
			)

			result, err = c, nil
			if c.State().Unsent() && !signal.Sent() {
				result, err = c.SendString(status.InternalServerError, "")
			}

			result = result.Halt()
		}()

		return next(c)
	}
}
