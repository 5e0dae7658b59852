package pipeline

import (
	"log/slog"

	"github.com/namjae/plug/conn"
	"github.com/namjae/plug/http/status"
	"github.com/namjae/plug/internal/logattr"
)

// Complete is run by transports once the pipeline returns. A staged response is sent;
// a connection left without a response, or a failed pipeline which hasn't sent anything
// yet, is answered with an error status. Errors are answered with the code status.CodeOf
// picks for them.
func Complete(logger *slog.Logger, c conn.Conn, err error) (conn.Conn, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err != nil {
		logger.LogAttrs(c.Context(), slog.LevelError, "pipeline failed",
			logattr.Error(err),
			logattr.Method(c.Method),
			logattr.Path(c.RequestPath),
		)

		if !c.State().Unsent() {
			return c, nil
		}

		code := status.CodeOf(err)
		return c.SendString(code, string(status.Text(code)))
	}

	switch c.State() {
	case conn.Set:
		return c.SendResp()
	case conn.Unset:
		logger.LogAttrs(c.Context(), slog.LevelError, "pipeline did not send a response",
			logattr.Method(c.Method),
			logattr.Path(c.RequestPath),
		)

		return c.SendString(status.InternalServerError, string(status.Text(status.InternalServerError)))
	default:
		return c, nil
	}
}
