package main

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/namjae/plug/adapter/nethttp"
	"github.com/namjae/plug/conn"
	"github.com/namjae/plug/http/status"
	"github.com/namjae/plug/kv"
	"github.com/pkg/errors"
)

// routes dispatches by the request path. Unknown paths are answered with 404.
func routes(logger *slog.Logger) func(conn.Conn) (conn.Conn, error) {
	return func(c conn.Conn) (conn.Conn, error) {
		switch c.RequestPath {
		case "/":
			return c.SendString(status.OK, "Hello from plug!")
		case "/visits":
			return visits(c)
		case "/logout":
			return logout(c)
		case "/echo":
			return echo(c)
		case "/stream":
			return stream(c)
		case "/hints":
			return hints(c)
		case "/lucky":
			return lucky(c)
		case "/ws":
			return upgrade(c, logger)
		default:
			return c.SendString(status.NotFound, string(status.Text(status.NotFound)))
		}
	}
}

func visits(c conn.Conn) (conn.Conn, error) {
	c, err := c.FetchSession()
	if err != nil {
		return c, err
	}

	value, err := c.GetSession("visits")
	if err != nil {
		return c, err
	}

	var count int
	switch v := value.(type) {
	case int:
		count = v
	case float64:
		// sessions decoded from JSON
		count = int(v)
	}

	count++
	if c, err = c.PutSession("visits", count); err != nil {
		return c, err
	}

	return c.SendString(status.OK, "visits: "+strconv.Itoa(count))
}

func logout(c conn.Conn) (conn.Conn, error) {
	c, err := c.FetchSession()
	if err != nil {
		return c, err
	}

	if c, err = c.ConfigureSession(conn.SessionDrop); err != nil {
		return c, err
	}

	return c.SendString(status.OK, "bye")
}

func echo(c conn.Conn) (conn.Conn, error) {
	c, body, err := c.ReadFullBody()
	switch {
	case errors.Is(err, conn.ErrBodyTooLarge):
		return c.SendString(status.RequestEntityTooLarge, string(status.Text(status.RequestEntityTooLarge)))
	case err != nil:
		return c, err
	}

	if types := c.GetReqHeader("content-type"); len(types) > 0 {
		if c, err = c.PutRespHeader("content-type", types[0]); err != nil {
			return c, err
		}
	}

	return c.Send(status.OK, body)
}

func stream(c conn.Conn) (conn.Conn, error) {
	c, err := c.PutRespContentType("text/plain", "utf-8")
	if err != nil {
		return c, err
	}

	if c, err = c.SendChunked(status.OK); err != nil {
		return c, err
	}

	for i := range 3 {
		if c, err = c.ChunkString("chunk " + strconv.Itoa(i) + "\n"); err != nil {
			return c, err
		}
	}

	return c, nil
}

// hints sends 103 Early Hints first. Transports unable to inform skip it silently.
func hints(c conn.Conn) (conn.Conn, error) {
	c, err := c.Inform(status.EarlyHints, kv.Pair{Key: "link", Value: "</style.css>; rel=preload; as=style"})
	if err != nil {
		return c, err
	}

	return c.SendString(status.OK, "see the hints")
}

// lucky computes the response in the background while the connection goes on.
func lucky(c conn.Conn) (conn.Conn, error) {
	c = c.AsyncAssign("number", func(ctx context.Context) (any, error) {
		select {
		case <-time.After(10 * time.Millisecond):
			return 7, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})

	c, err := c.AwaitAssign("number", time.Second)
	if err != nil {
		return c, err
	}

	number, _ := c.GetAssign("number")
	return c.SendString(status.OK, "lucky number: "+strconv.Itoa(number.(int)))
}

func upgrade(c conn.Conn, logger *slog.Logger) (conn.Conn, error) {
	c, err := c.UpgradeAdapter(nethttp.ProtocolWebSocket, nethttp.WebSocketHandler(
		func(ctx context.Context, ws *websocket.Conn) error {
			for {
				kind, msg, err := ws.ReadMessage()
				if err != nil {
					if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
						return nil
					}

					return err
				}

				if err = ws.WriteMessage(kind, msg); err != nil {
					return err
				}
			}
		},
	))
	if errors.Is(err, conn.ErrUpgradeUnsupported) {
		logger.Debug("websocket requested over a transport without upgrades")
		return c.SendString(status.NotImplemented, "websockets are served over nethttp only")
	}

	return c, err
}
