// Package logattr holds slog attribute helpers. Helpers taking optional values return an
// empty attribute for zero values, which slog drops.
package logattr

import (
	"log/slog"
	"time"

	"github.com/namjae/plug/http/status"
)

func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}

	return slog.Any("error", err)
}

func Method(method string) slog.Attr {
	return slog.String("method", method)
}

func Path(path string) slog.Attr {
	return slog.String("path", path)
}

func StatusCode(code status.Code) slog.Attr {
	return slog.Int("status", int(code))
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

func RequestID(id string) slog.Attr {
	if len(id) == 0 {
		return slog.Attr{}
	}

	return slog.String("request_id", id)
}

func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Remote(addr string) slog.Attr {
	if len(addr) == 0 {
		return slog.Attr{}
	}

	return slog.String("remote", addr)
}
