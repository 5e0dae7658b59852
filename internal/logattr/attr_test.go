package logattr

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestAttrs(t *testing.T) {
	var buff bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buff, nil))

	logger.Info("request",
		Method("GET"), Path("/"), StatusCode(200), Duration(time.Second),
		Error(nil), RequestID(""), Remote(""),
	)

	line := buff.String()
	require.Contains(t, line, "method=GET")
	require.Contains(t, line, "status=200")
	require.Contains(t, line, "duration=1s")
	require.NotContains(t, line, "error=")
	require.NotContains(t, line, "request_id")

	buff.Reset()
	logger.Error("failed", Error(errors.New("boom")), Component("nethttp"))
	require.Contains(t, buff.String(), "error=boom")
	require.Contains(t, buff.String(), "component=nethttp")
}
