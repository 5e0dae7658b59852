package fasthttp

import (
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/namjae/plug/conn"
	"github.com/namjae/plug/http/status"
	"github.com/namjae/plug/pipeline"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
)

func newCtx(method, uri string, body []byte) *fasthttp.RequestCtx {
	var req fasthttp.Request
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)
	req.Header.SetHost("example.com:8080")
	req.Header.Set("X-Multi", "1")
	req.Header.Add("X-Multi", "2")
	if body != nil {
		req.SetBody(body)
	}

	ctx := new(fasthttp.RequestCtx)
	ctx.Init(&req, &net.TCPAddr{IP: net.ParseIP("10.0.0.1"), Port: 5555}, nil)
	return ctx
}

func handle(plug pipeline.Plug, ctx *fasthttp.RequestCtx) {
	NewHandler(plug, slog.New(slog.NewTextHandler(io.Discard, nil))).Handle(ctx)
}

func TestRequest(t *testing.T) {
	ctx := newCtx("GET", "/a/b?c=d", nil)

	req := Request(ctx)
	require.Equal(t, "GET", req.Method)
	require.Equal(t, "http", req.Scheme)
	require.Equal(t, "example.com", req.Host)
	require.Equal(t, uint16(8080), req.Port)
	require.Equal(t, []string{"a", "b"}, req.PathInfo)
	require.Equal(t, "/a/b", req.RequestPath)
	require.Equal(t, "c=d", req.QueryString)
	require.Equal(t, "10.0.0.1", req.RemoteIP.String())
	require.Equal(t, uint16(5555), req.PeerAddr.Port())

	headers := Headers(ctx)
	require.Equal(t, []string{"1", "2"}, headers.Values("x-multi"))
	require.Equal(t, "example.com:8080", headers.Value("host"))
}

func TestHandler(t *testing.T) {
	t.Run("staged response is sent", func(t *testing.T) {
		ctx := newCtx("GET", "/hello", nil)
		handle(func(c conn.Conn) (conn.Conn, error) {
			c, err := c.PutRespHeader("x-path", c.RequestPath)
			if err != nil {
				return c, err
			}

			return c.RespString(status.Created, "Hello")
		}, ctx)

		require.Equal(t, fasthttp.StatusCreated, ctx.Response.StatusCode())
		require.Equal(t, "/hello", string(ctx.Response.Header.Peek("X-Path")))
		require.Equal(t, "Hello", string(ctx.Response.Body()))
	})

	t.Run("no response", func(t *testing.T) {
		ctx := newCtx("GET", "/", nil)
		handle(func(c conn.Conn) (conn.Conn, error) {
			return c, nil
		}, ctx)

		require.Equal(t, fasthttp.StatusInternalServerError, ctx.Response.StatusCode())
	})

	t.Run("body in parts", func(t *testing.T) {
		var parts []string
		ctx := newCtx("POST", "/", []byte("Hello, world"))
		handle(func(c conn.Conn) (conn.Conn, error) {
			for {
				var (
					chunk conn.BodyChunk
					err   error
				)

				c, chunk, err = c.ReadBody(conn.WithLength(5))
				if err != nil {
					return c, err
				}

				parts = append(parts, string(chunk.Data))
				if !chunk.More {
					return c.RespString(status.OK, "")
				}
			}
		}, ctx)

		require.Equal(t, []string{"Hello", ", wor", "ld"}, parts)
	})

	t.Run("chunks are buffered", func(t *testing.T) {
		ctx := newCtx("GET", "/", nil)
		handle(func(c conn.Conn) (conn.Conn, error) {
			c, err := c.SendChunked(status.OK)
			if err != nil {
				return c, err
			}

			if c, err = c.ChunkString("Hello, "); err != nil {
				return c, err
			}

			return c.ChunkString("world!")
		}, ctx)

		require.Equal(t, "Hello, world!", string(ctx.Response.Body()))
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file.txt")
		require.NoError(t, os.WriteFile(path, []byte("0123456789"), 0o600))

		ctx := newCtx("GET", "/", nil)
		handle(func(c conn.Conn) (conn.Conn, error) {
			return c.SendFile(status.OK, path, 1, 3)
		}, ctx)

		require.Equal(t, "123", string(ctx.Response.Body()))
	})

	t.Run("upgrade is unsupported", func(t *testing.T) {
		ctx := newCtx("GET", "/", nil)
		handle(func(c conn.Conn) (conn.Conn, error) {
			_, err := c.UpgradeAdapter("websocket", nil)
			require.ErrorIs(t, err, conn.ErrUpgradeUnsupported)
			return c.RespString(status.OK, "")
		}, ctx)

		require.Equal(t, fasthttp.StatusOK, ctx.Response.StatusCode())
	})
}
