package conn_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/namjae/plug/adapter/dummy"
	"github.com/namjae/plug/conn"
	"github.com/namjae/plug/http/cookie"
	"github.com/namjae/plug/http/status"
	"github.com/namjae/plug/kv"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newConn(t *testing.T, target string, opts ...conn.Option) (conn.Conn, *dummy.Recorder) {
	t.Helper()
	return dummy.NewConn("GET", target, nil, opts...)
}

func TestSendResp(t *testing.T) {
	t.Run("unset fails", func(t *testing.T) {
		c, rec := newConn(t, "/")
		_, err := c.SendResp()
		require.ErrorIs(t, err, conn.ErrNotSet)
		require.Empty(t, rec.Responses())
	})

	t.Run("set is sent", func(t *testing.T) {
		c, rec := newConn(t, "/")
		c, err := c.RespString(status.OK, "Hello")
		require.NoError(t, err)
		require.Equal(t, conn.Set, c.State())

		c, err = c.SendResp()
		require.NoError(t, err)
		require.Equal(t, conn.Sent, c.State())
		require.Equal(t, "Hello", string(c.RespBody()))

		resp, ok := rec.Response()
		require.True(t, ok)
		require.Equal(t, status.OK, resp.Status)
		require.Equal(t, "Hello", string(resp.Body))
	})

	t.Run("resp may be restaged", func(t *testing.T) {
		c, rec := newConn(t, "/")
		c, err := c.RespString(status.OK, "first")
		require.NoError(t, err)
		c, err = c.RespString(status.Created, "second")
		require.NoError(t, err)
		_, err = c.SendResp()
		require.NoError(t, err)

		resp, _ := rec.Response()
		require.Equal(t, status.Created, resp.Status)
		require.Equal(t, "second", string(resp.Body))
	})

	t.Run("zero status", func(t *testing.T) {
		c, _ := newConn(t, "/")
		_, err := c.Resp(0, nil)
		require.ErrorIs(t, err, conn.ErrInvalidStatus)
	})
}

func TestCommitOnce(t *testing.T) {
	file := writeFile(t, "0123456789")

	commits := map[string]func(conn.Conn) (conn.Conn, error){
		"send_resp": func(c conn.Conn) (conn.Conn, error) {
			return c.SendString(status.OK, "body")
		},
		"send_file": func(c conn.Conn) (conn.Conn, error) {
			return c.SendFile(status.OK, file, 0, -1)
		},
		"send_chunked": func(c conn.Conn) (conn.Conn, error) {
			return c.SendChunked(status.OK)
		},
	}

	for first, commit := range commits {
		for second, again := range commits {
			t.Run(first+" then "+second, func(t *testing.T) {
				signal := conn.NewSignal()
				c, rec := newConn(t, "/", conn.WithOwner(signal))
				c, err := commit(c)
				require.NoError(t, err)
				require.False(t, c.State().Unsent())

				_, err = again(c)
				require.ErrorIs(t, err, conn.ErrAlreadySent)
				require.Len(t, rec.Responses(), 1)
				require.Equal(t, 1, signal.Count())
			})
		}
	}
}

func TestBeforeSend(t *testing.T) {
	t.Run("reverse registration order", func(t *testing.T) {
		var calls []string
		record := func(name string) conn.BeforeSendFunc {
			return func(c conn.Conn) conn.Conn {
				calls = append(calls, name)
				return c
			}
		}

		c, _ := newConn(t, "/")
		c, err := c.RegisterBeforeSend(record("f"))
		require.NoError(t, err)
		c, err = c.RegisterBeforeSend(record("g"))
		require.NoError(t, err)

		c, err = c.SendString(status.OK, "")
		require.NoError(t, err)
		require.Equal(t, []string{"g", "f"}, calls)

		_, err = c.RegisterBeforeSend(record("h"))
		require.ErrorIs(t, err, conn.ErrAlreadySent)
	})

	t.Run("callbacks see the staged state and may change the response", func(t *testing.T) {
		for name, tc := range map[string]struct {
			staged conn.State
			commit func(conn.Conn) (conn.Conn, error)
		}{
			"send_resp": {conn.Set, func(c conn.Conn) (conn.Conn, error) {
				return c.SendString(status.OK, "")
			}},
			"send_file": {conn.SetFile, func(c conn.Conn) (conn.Conn, error) {
				return c.SendFile(status.OK, writeFile(t, "x"), 0, -1)
			}},
			"send_chunked": {conn.SetChunked, func(c conn.Conn) (conn.Conn, error) {
				return c.SendChunked(status.OK)
			}},
		} {
			t.Run(name, func(t *testing.T) {
				var observed conn.State
				c, rec := newConn(t, "/")
				c, err := c.RegisterBeforeSend(func(c conn.Conn) conn.Conn {
					observed = c.State()
					c, _ = c.PutRespHeader("x-before-send", "1")
					c, _ = c.PutStatus(status.Accepted)
					return c
				})
				require.NoError(t, err)

				_, err = tc.commit(c)
				require.NoError(t, err)
				require.Equal(t, tc.staged, observed)

				resp, _ := rec.Response()
				require.Equal(t, status.Accepted, resp.Status)
				require.Contains(t, resp.Headers, kv.Pair{Key: "x-before-send", Value: "1"})
			})
		}
	})

	t.Run("changing state aborts the commit", func(t *testing.T) {
		signal := conn.NewSignal()
		c, rec := newConn(t, "/", conn.WithOwner(signal))
		stale := c
		c, err := c.RegisterBeforeSend(func(conn.Conn) conn.Conn {
			return stale
		})
		require.NoError(t, err)

		c, err = c.SendString(status.OK, "")
		require.ErrorIs(t, err, conn.ErrBeforeSendStateChanged)
		require.Equal(t, conn.Set, c.State())
		require.Empty(t, rec.Responses())
		require.False(t, signal.Sent())
	})

	t.Run("callbacks can't upgrade", func(t *testing.T) {
		var nested error
		c, rec := newConn(t, "/")
		c, err := c.RegisterBeforeSend(func(c conn.Conn) conn.Conn {
			c, nested = c.UpgradeAdapter("websocket", nil)
			return c
		})
		require.NoError(t, err)

		c, err = c.SendString(status.OK, "")
		require.NoError(t, err)
		require.ErrorIs(t, nested, conn.ErrAlreadySent)
		require.Equal(t, conn.Sent, c.State())
		require.Empty(t, rec.Upgrades())
	})

	t.Run("callbacks can't send the buffered response", func(t *testing.T) {
		var nested error
		signal := conn.NewSignal()
		c, rec := newConn(t, "/", conn.WithOwner(signal))
		c, err := c.RegisterBeforeSend(func(c conn.Conn) conn.Conn {
			_, nested = c.SendString(status.Teapot, "from callback")
			return c
		})
		require.NoError(t, err)

		c, err = c.SendString(status.OK, "outer")
		require.NoError(t, err)
		require.ErrorIs(t, nested, conn.ErrAlreadySent)
		require.Equal(t, conn.Sent, c.State())
		require.Len(t, rec.Responses(), 1)
		require.Equal(t, status.OK, rec.Responses()[0].Status)
		require.Equal(t, 1, signal.Count())
	})

	t.Run("callbacks can't register callbacks", func(t *testing.T) {
		var nested error
		c, _ := newConn(t, "/")
		c, err := c.RegisterBeforeSend(func(c conn.Conn) conn.Conn {
			c, nested = c.RegisterBeforeSend(func(c conn.Conn) conn.Conn { return c })
			return c
		})
		require.NoError(t, err)

		_, err = c.SendString(status.OK, "")
		require.NoError(t, err)
		require.ErrorIs(t, nested, conn.ErrAlreadySent)
	})

	t.Run("callbacks can't start another commit", func(t *testing.T) {
		var nested error
		c, rec := newConn(t, "/")
		c, err := c.RegisterBeforeSend(func(c conn.Conn) conn.Conn {
			_, nested = c.SendChunked(status.OK)
			return c
		})
		require.NoError(t, err)

		_, err = c.SendFile(status.OK, writeFile(t, "x"), 0, -1)
		require.NoError(t, err)
		require.ErrorIs(t, nested, conn.ErrAlreadySent)
		require.Len(t, rec.Responses(), 1)
	})
}

func TestRespHeaders(t *testing.T) {
	t.Run("put keeps position of existing key", func(t *testing.T) {
		c, _ := newConn(t, "/")
		c, err := c.MergeRespHeaders(kv.Pair{Key: "a", Value: "1"}, kv.Pair{Key: "b", Value: "2"})
		require.NoError(t, err)
		c, err = c.PutRespHeader("a", "3")
		require.NoError(t, err)
		c, err = c.PutRespHeader("c", "4")
		require.NoError(t, err)

		require.Equal(t, []kv.Pair{
			{Key: "cache-control", Value: "max-age=0, private, must-revalidate"},
			{Key: "a", Value: "3"},
			{Key: "b", Value: "2"},
			{Key: "c", Value: "4"},
		}, c.RespHeaders())
	})

	t.Run("delete removes all occurrences", func(t *testing.T) {
		c, _ := newConn(t, "/", conn.WithRespHeaders())
		c, err := c.PrependRespHeaders(kv.Pair{Key: "x", Value: "1"}, kv.Pair{Key: "y", Value: "2"}, kv.Pair{Key: "x", Value: "3"})
		require.NoError(t, err)
		c, err = c.DeleteRespHeader("x")
		require.NoError(t, err)
		require.Equal(t, []kv.Pair{{Key: "y", Value: "2"}}, c.RespHeaders())
	})

	t.Run("update", func(t *testing.T) {
		c, _ := newConn(t, "/")
		c, err := c.UpdateRespHeader("x-count", "1", func(v string) string { return v + "1" })
		require.NoError(t, err)
		c, err = c.UpdateRespHeader("x-count", "1", func(v string) string { return v + "1" })
		require.NoError(t, err)
		require.Equal(t, []string{"11"}, c.GetRespHeader("x-count"))
	})

	t.Run("content type", func(t *testing.T) {
		c, _ := newConn(t, "/")
		c, err := c.PutRespContentType("text/plain", "latin1")
		require.NoError(t, err)
		require.Equal(t, []string{"text/plain; charset=latin1"}, c.GetRespHeader("content-type"))
		require.Equal(t, "latin1", c.RespCharset())

		c, err = c.PutRespContentType("application/octet-stream", "")
		require.NoError(t, err)
		require.Equal(t, []string{"application/octet-stream"}, c.GetRespHeader("content-type"))
	})

	t.Run("invalid values", func(t *testing.T) {
		c, _ := newConn(t, "/")
		_, err := c.PutRespHeader("x", "a\r\nb")
		require.ErrorIs(t, err, conn.ErrInvalidHeader)
		_, err = c.PutRespHeader("X-Upper", "v")
		require.NoError(t, err)

		strict, _ := newConn(t, "/", conn.WithHeaderKeyValidation(true))
		_, err = strict.PutRespHeader("X-Upper", "v")
		require.ErrorIs(t, err, conn.ErrInvalidHeader)
	})

	t.Run("immutable after commit", func(t *testing.T) {
		c, _ := newConn(t, "/")
		c, err := c.SendString(status.OK, "")
		require.NoError(t, err)

		_, err = c.PutRespHeader("x", "1")
		require.ErrorIs(t, err, conn.ErrAlreadySent)
		_, err = c.DeleteRespHeader("x")
		require.ErrorIs(t, err, conn.ErrAlreadySent)
		_, err = c.PutStatus(status.NotFound)
		require.ErrorIs(t, err, conn.ErrAlreadySent)
		_, err = c.PutRespCookie("a", "b")
		require.ErrorIs(t, err, conn.ErrAlreadySent)
	})
}

func TestReqHeaders(t *testing.T) {
	headers := kv.New().Add("accept", "text/html").Add("accept", "application/json")
	c := dummy.NewConnWithRecorder(dummy.NewRecorder(), "GET", "/", nil, headers)
	require.Equal(t, []string{"text/html", "application/json"}, c.GetReqHeader("accept"))

	updated, err := c.PutReqHeader("accept", "*/*")
	require.NoError(t, err)
	require.Equal(t, []string{"*/*", "application/json"}, updated.GetReqHeader("accept"))
	require.Equal(t, []string{"text/html", "application/json"}, c.GetReqHeader("accept"))

	updated = updated.DeleteReqHeader("accept")
	require.Empty(t, updated.GetReqHeader("accept"))
}

func TestCopyOnWrite(t *testing.T) {
	original, _ := newConn(t, "/")
	original = original.Assign("user", "alice")

	changed := original.Assign("user", "bob").PutPrivate("lib_key", 1).Halt()
	changed, err := changed.PutRespHeader("x", "1")
	require.NoError(t, err)
	changed, err = changed.PutRespCookie("c", "v")
	require.NoError(t, err)

	user, _ := original.GetAssign("user")
	require.Equal(t, "alice", user)
	_, found := original.GetPrivate("lib_key")
	require.False(t, found)
	require.False(t, original.Halted())
	require.Empty(t, original.GetRespHeader("x"))
	require.Empty(t, original.RespCookies())

	user, _ = changed.GetAssign("user")
	require.Equal(t, "bob", user)
	require.True(t, changed.Halted())
}

func TestCookies(t *testing.T) {
	t.Run("merged into headers at commit, prepended in order", func(t *testing.T) {
		c, rec := newConn(t, "/")
		c, err := c.PutRespHeader("set-cookie", "manual=1")
		require.NoError(t, err)
		c, err = c.PutRespCookie("a", "1")
		require.NoError(t, err)
		c, err = c.PutRespCookie("b", "2")
		require.NoError(t, err)

		_, err = c.SendString(status.OK, "")
		require.NoError(t, err)

		resp, _ := rec.Response()
		require.Equal(t, []kv.Pair{
			{Key: "set-cookie", Value: "b=2; path=/; HttpOnly"},
			{Key: "set-cookie", Value: "a=1; path=/; HttpOnly"},
			{Key: "cache-control", Value: "max-age=0, private, must-revalidate"},
			{Key: "set-cookie", Value: "manual=1"},
		}, resp.Headers)
	})

	t.Run("delete stages an expired cookie", func(t *testing.T) {
		c, rec := newConn(t, "/")
		c, err := c.PutRespCookie("session", "abc", cookie.WithMaxAge(3600), cookie.WithDomain("example.com"))
		require.NoError(t, err)
		c, err = c.DeleteRespCookie("session", cookie.WithDomain("example.com"))
		require.NoError(t, err)
		require.Len(t, c.RespCookies(), 1)

		_, err = c.SendString(status.OK, "")
		require.NoError(t, err)

		resp, _ := rec.Response()
		require.Equal(t, kv.Pair{
			Key:   "set-cookie",
			Value: "session=; path=/; domain=example.com; expires=Thu, 01 Jan 1970 00:00:00 GMT; max-age=0; HttpOnly",
		}, resp.Headers[0])
	})

	t.Run("secure follows scheme unless overridden", func(t *testing.T) {
		c, _ := newConn(t, "https://example.com/")
		c, err := c.PutRespCookie("a", "1")
		require.NoError(t, err)
		c, err = c.PutRespCookie("b", "2", cookie.WithSecure(false))
		require.NoError(t, err)

		cookies := c.RespCookies()
		require.True(t, cookies[0].Secure)
		require.False(t, cookies[1].Secure)

		plain, _ := newConn(t, "/")
		plain, err = plain.PutRespCookie("a", "1")
		require.NoError(t, err)
		require.False(t, plain.RespCookies()[0].Secure)
	})

	t.Run("max age sets expires", func(t *testing.T) {
		mock := clock.NewMock()
		mock.Set(time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC))
		c, _ := newConn(t, "/", conn.WithClock(mock))
		c, err := c.PutRespCookie("a", "1", cookie.WithMaxAge(60))
		require.NoError(t, err)
		require.Equal(t,
			"a=1; path=/; expires=Tue, 01 Jan 2030 00:01:00 GMT; max-age=60; HttpOnly",
			cookie.Render(c.RespCookies()[0]),
		)
	})

	t.Run("too large", func(t *testing.T) {
		c, _ := newConn(t, "/")
		_, err := c.PutRespCookie("a", strings.Repeat("x", cookie.MaxSize))
		var tooLarge cookie.ErrCookieTooLarge
		require.ErrorAs(t, err, &tooLarge)
		require.Equal(t, "a", tooLarge.Name)
	})

	t.Run("fetch merges request and response cookies", func(t *testing.T) {
		headers := kv.New().Add("cookie", "a=1; b=2").Add("cookie", "c=3")
		c := dummy.NewConnWithRecorder(dummy.NewRecorder(), "GET", "/", nil, headers)

		_, err := c.Cookies()
		require.ErrorIs(t, err, conn.UnfetchedError{Aspect: conn.AspectCookies})

		c, err = c.PutRespCookie("b", "20")
		require.NoError(t, err)
		c, err = c.DeleteRespCookie("c")
		require.NoError(t, err)
		c, err = c.FetchCookies()
		require.NoError(t, err)

		cookies, err := c.Cookies()
		require.NoError(t, err)
		require.Equal(t, map[string]string{"a": "1", "b": "20"}, cookies)

		reqCookies, err := c.ReqCookies()
		require.NoError(t, err)
		require.Equal(t, map[string]string{"a": "1", "b": "2", "c": "3"}, reqCookies)

		c, err = c.PutRespCookie("d", "4")
		require.NoError(t, err)
		cookies, _ = c.Cookies()
		require.Equal(t, "4", cookies["d"])
	})

	t.Run("malformed request cookies are skipped", func(t *testing.T) {
		headers := kv.New().Add("cookie", "theme=dark; flag")
		c := dummy.NewConnWithRecorder(dummy.NewRecorder(), "GET", "/", nil, headers)

		c, err := c.FetchCookies()
		require.NoError(t, err)

		cookies, err := c.Cookies()
		require.NoError(t, err)
		require.Equal(t, map[string]string{"theme": "dark"}, cookies)
	})

	t.Run("signed and encrypted", func(t *testing.T) {
		keys := cookie.NewKeyGenerator(strings.Repeat("k", 64))
		c, rec := newConn(t, "/", conn.WithSecretKeyBase(keys))
		c, err := c.PutRespCookie("signed", "hello", cookie.WithSign())
		require.NoError(t, err)
		c, err = c.PutRespCookie("sealed", "secret", cookie.WithEncrypt())
		require.NoError(t, err)
		_, err = c.SendString(status.OK, "")
		require.NoError(t, err)

		resp, _ := rec.Response()
		var jar []string
		for _, header := range resp.Headers {
			if header.Key == "set-cookie" {
				pair, _, _ := strings.Cut(header.Value, ";")
				jar = append(jar, pair)
			}
		}
		require.Len(t, jar, 2)

		headers := kv.New().Add("cookie", strings.Join(jar, "; ")+"; forged=eA.bad")
		next := dummy.NewConnWithRecorder(dummy.NewRecorder(), "GET", "/", nil, headers, conn.WithSecretKeyBase(keys))
		next, err = next.FetchCookies(conn.Signed("signed", "forged"), conn.Encrypted("sealed"))
		require.NoError(t, err)

		cookies, err := next.Cookies()
		require.NoError(t, err)
		require.Equal(t, map[string]string{"signed": "hello", "sealed": "secret"}, cookies)
	})

	t.Run("signing without a secret", func(t *testing.T) {
		c, _ := newConn(t, "/")
		_, err := c.PutRespCookie("a", "b", cookie.WithSign())
		require.ErrorIs(t, err, cookie.ErrNoSecret)
	})
}

func TestParams(t *testing.T) {
	c, _ := newConn(t, "/users?a=1&b[]=2&b[]=3&c[d]=4")

	_, err := c.Params()
	require.ErrorIs(t, err, conn.UnfetchedError{Aspect: conn.AspectParams})

	c, err = c.FetchQueryParams()
	require.NoError(t, err)
	first, err := c.QueryParams()
	require.NoError(t, err)
	require.Equal(t, map[string]any{
		"a": "1",
		"b": []any{"2", "3"},
		"c": map[string]any{"d": "4"},
	}, first)

	c.QueryString = "a=changed"
	c, err = c.FetchQueryParams()
	require.NoError(t, err)
	second, err := c.QueryParams()
	require.NoError(t, err)
	require.Equal(t, first, second)

	c = c.PutPathParams(map[string]string{"a": "path", "id": "7"})
	params, err := c.Params()
	require.NoError(t, err)
	require.Equal(t, "path", params["a"])
	require.Equal(t, "7", params["id"])
}

func TestFullPath(t *testing.T) {
	c, _ := newConn(t, "/bar/baz")
	c.ScriptName = []string{"foo"}
	require.Equal(t, "/foo/bar/baz", c.FullPath())

	c.ScriptName, c.PathInfo = nil, nil
	require.Equal(t, "/", c.FullPath())
}

func TestRequestURL(t *testing.T) {
	c, _ := newConn(t, "/path?x=1")
	require.Equal(t, "http://www.example.com/path?x=1", c.RequestURL())

	c, _ = newConn(t, "https://example.org:8443/a")
	require.Equal(t, "https://example.org:8443/a", c.RequestURL())
}

func TestChunked(t *testing.T) {
	t.Run("chunk requires chunked state", func(t *testing.T) {
		c, _ := newConn(t, "/")
		_, err := c.ChunkString("x")
		require.ErrorIs(t, err, conn.ErrNotChunked)

		c, err = c.RespString(status.OK, "")
		require.NoError(t, err)
		_, err = c.ChunkString("x")
		require.ErrorIs(t, err, conn.ErrNotChunked)
	})

	t.Run("chunks keep the state", func(t *testing.T) {
		c, rec := newConn(t, "/")
		c, err := c.SendChunked(status.OK)
		require.NoError(t, err)
		require.Equal(t, conn.Chunked, c.State())

		c, err = c.ChunkString("Hello, ")
		require.NoError(t, err)
		c, err = c.ChunkString("")
		require.NoError(t, err)
		c, err = c.ChunkString("world")
		require.NoError(t, err)

		require.Equal(t, conn.Chunked, c.State())
		require.Equal(t, "Hello, world", string(c.RespBody()))
		require.Len(t, rec.Chunks(), 2)
	})

	t.Run("transport error keeps the state", func(t *testing.T) {
		boom := errors.New("connection reset")
		c, rec := newConn(t, "/")
		c, err := c.SendChunked(status.OK)
		require.NoError(t, err)

		rec.FailOn("chunk", boom)
		c, err = c.ChunkString("x")
		require.ErrorIs(t, err, boom)
		var transportErr *conn.TransportError
		require.ErrorAs(t, err, &transportErr)
		require.Equal(t, "chunk", transportErr.Op)
		require.Equal(t, conn.Chunked, c.State())
	})
}

func TestTransportError(t *testing.T) {
	boom := errors.New("broken pipe")
	signal := conn.NewSignal()
	c, rec := newConn(t, "/", conn.WithOwner(signal))
	rec.FailOn("send_resp", boom)

	c, err := c.RespString(status.OK, "x")
	require.NoError(t, err)
	c, err = c.SendResp()
	require.ErrorIs(t, err, boom)
	require.Equal(t, conn.Set, c.State())
	require.False(t, signal.Sent())
}

func TestSendFile(t *testing.T) {
	file := writeFile(t, "0123456789")

	c, rec := newConn(t, "/")
	c, err := c.SendFile(status.PartialContent, file, 2, 5)
	require.NoError(t, err)
	require.Equal(t, conn.File, c.State())
	require.Equal(t, "23456", string(c.RespBody()))

	resp, _ := rec.Response()
	require.Equal(t, "send_file", resp.Kind)
	require.Equal(t, int64(2), resp.Offset)

	c, _ = newConn(t, "/")
	_, err = c.SendFile(status.OK, "bad\x00path", 0, -1)
	require.ErrorIs(t, err, conn.ErrInvalidFilePath)
}

func TestReadBody(t *testing.T) {
	c, rec := dummy.NewConn("POST", "/", []byte("0123456789"))

	var received []string
	for {
		var (
			chunk conn.BodyChunk
			err   error
		)

		c, chunk, err = c.ReadBody(conn.WithLength(4))
		require.NoError(t, err)
		received = append(received, string(chunk.Data))
		if !chunk.More {
			break
		}
	}

	require.Equal(t, []string{"0123", "4567", "89"}, received)
	require.Equal(t, 3, rec.BodyReads())

	c, _ = dummy.NewConn("POST", "/", []byte("0123456789"))
	_, body, err := c.ReadFullBody(conn.WithLength(100))
	require.NoError(t, err)
	require.Equal(t, "0123456789", string(body))

	c, rec = dummy.NewConn("POST", "/", []byte("x"))
	rec.FailOn("read_req_body", context.DeadlineExceeded)
	_, _, err = c.ReadBody()
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReadBodyDefaults(t *testing.T) {
	t.Run("zero length reads the whole body", func(t *testing.T) {
		c, rec := dummy.NewConn("POST", "/", []byte("abc"))
		_, body, err := c.ReadFullBody(conn.WithLength(0))
		require.NoError(t, err)
		require.Equal(t, "abc", string(body))
		require.Equal(t, 1, rec.BodyReads())
	})

	t.Run("negative length", func(t *testing.T) {
		c, rec := dummy.NewConn("POST", "/", []byte("abc"))
		_, chunk, err := c.ReadBody(conn.WithLength(-1), conn.WithReadLength(-1))
		require.NoError(t, err)
		require.Equal(t, "abc", string(chunk.Data))
		require.False(t, chunk.More)
		require.Equal(t, 1, rec.BodyReads())
	})

	t.Run("connection defaults", func(t *testing.T) {
		c, rec := dummy.NewConn("POST", "/", []byte("abc"), conn.WithBodyDefaults(conn.BodyOptions{}))
		_, body, err := c.ReadFullBody()
		require.NoError(t, err)
		require.Equal(t, "abc", string(body))
		require.Equal(t, 1, rec.BodyReads())
	})
}

func TestAsyncAssign(t *testing.T) {
	t.Run("await replaces the handle", func(t *testing.T) {
		calls := 0
		c, _ := newConn(t, "/")
		c = c.AsyncAssign("answer", func(context.Context) (any, error) {
			calls++
			return 42, nil
		})

		c, err := c.AwaitAssign("answer", time.Second)
		require.NoError(t, err)
		value, _ := c.GetAssign("answer")
		require.Equal(t, 42, value)

		c, err = c.AwaitAssign("answer", 0)
		require.NoError(t, err)
		value, _ = c.GetAssign("answer")
		require.Equal(t, 42, value)
		require.Equal(t, 1, calls)
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		c, _ := newConn(t, "/")
		c = c.AsyncAssign("slow", func(context.Context) (any, error) {
			<-release
			return nil, nil
		})

		_, err := c.AwaitAssign("slow", 5*time.Millisecond)
		require.Error(t, err)
		close(release)

		_, err = c.AwaitAssign("slow", time.Second)
		require.NoError(t, err)
	})

	t.Run("unknown key", func(t *testing.T) {
		c, _ := newConn(t, "/")
		_, err := c.AwaitAssign("nope", time.Second)
		require.ErrorIs(t, err, conn.ErrNoAssign)
	})
}

func TestSession(t *testing.T) {
	withSession := func(c conn.Conn) conn.Conn {
		return c.PutPrivate(conn.PrivateSessionFetch, conn.SessionFetcher(func(c conn.Conn) (conn.Conn, error) {
			return c.PutPrivate(conn.PrivateSession, map[string]any{"user_id": 1}), nil
		}))
	}

	t.Run("not configured", func(t *testing.T) {
		c, _ := newConn(t, "/")
		_, err := c.FetchSession()
		require.ErrorIs(t, err, conn.ErrSessionNotConfigured)
	})

	t.Run("not fetched", func(t *testing.T) {
		c, _ := newConn(t, "/")
		c = withSession(c)
		_, err := c.GetSession("user_id")
		require.ErrorIs(t, err, conn.ErrSessionNotFetched)
		_, err = c.PutSession("a", 1)
		require.ErrorIs(t, err, conn.ErrSessionNotFetched)
		_, err = c.DeleteSession("a")
		require.ErrorIs(t, err, conn.ErrSessionNotFetched)
	})

	t.Run("round trip", func(t *testing.T) {
		type key string

		c, _ := newConn(t, "/")
		c, err := withSession(c).FetchSession()
		require.NoError(t, err)
		_, err = c.Cookies()
		require.NoError(t, err)

		value, err := c.GetSession("user_id")
		require.NoError(t, err)
		require.Equal(t, 1, value)
		require.Equal(t, conn.SessionUnchanged, c.SessionInfo())

		c, err = c.PutSession(key("theme"), "dark")
		require.NoError(t, err)
		value, err = c.GetSession("theme")
		require.NoError(t, err)
		require.Equal(t, "dark", value)
		require.Equal(t, conn.SessionWrite, c.SessionInfo())

		c, err = c.DeleteSession("theme")
		require.NoError(t, err)
		value, err = c.GetSession("theme")
		require.NoError(t, err)
		require.Nil(t, value)

		c, err = c.ConfigureSession(conn.SessionRenew)
		require.NoError(t, err)
		c, err = c.ClearSession()
		require.NoError(t, err)
		session, err := c.Session()
		require.NoError(t, err)
		require.Empty(t, session)
		require.Equal(t, conn.SessionRenew, c.SessionInfo())

		c, err = c.FetchSession()
		require.NoError(t, err)
		session, _ = c.Session()
		require.Empty(t, session)
	})
}

func TestInformAndUpgrade(t *testing.T) {
	c, rec := newConn(t, "/")
	c, err := c.Inform(status.EarlyHints, kv.Pair{Key: "link", Value: "</style.css>; rel=preload"})
	require.NoError(t, err)
	require.Len(t, rec.Informs(), 1)

	_, err = c.Inform(status.OK)
	require.ErrorIs(t, err, conn.ErrInvalidStatus)

	c, err = c.UpgradeAdapter("websocket", "args")
	require.NoError(t, err)
	require.Equal(t, conn.Upgraded, c.State())
	require.Equal(t, []dummy.Upgrade{{Protocol: "websocket", Args: "args"}}, rec.Upgrades())

	_, err = c.SendString(status.OK, "")
	require.ErrorIs(t, err, conn.ErrAlreadySent)
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
