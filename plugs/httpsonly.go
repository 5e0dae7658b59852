package plugs

import (
	"strconv"

	"github.com/namjae/plug/conn"
	"github.com/namjae/plug/http/status"
	"github.com/namjae/plug/pipeline"
)

type HTTPSOnlyParams struct {
	// RedirectTo defines the host, where the user will be redirected.
	// If empty, the request host will be used
	RedirectTo string
	// Port is added to the host value. Zero means the default 443 port
	Port uint16
}

// HTTPSOnly redirects all http requests to https. Requests without a host are answered
// with 400 Bad Request.
func HTTPSOnly(params HTTPSOnlyParams) pipeline.Plug {
	return func(c conn.Conn) (conn.Conn, error) {
		if c.Scheme == "https" {
			return c, nil
		}

		host := params.RedirectTo
		if len(host) == 0 {
			host = c.Host
		}

		if len(host) == 0 {
			c, err := c.SendString(status.BadRequest, "no Host header")
			return c.Halt(), err
		}

		if params.Port != 0 && params.Port != 443 {
			host += ":" + strconv.Itoa(int(params.Port))
		}

		location := "https://" + host + c.RequestPath
		if len(c.QueryString) > 0 {
			location += "?" + c.QueryString
		}

		c, err := c.PutRespHeader("location", location)
		if err != nil {
			return c, err
		}

		c, err = c.SendString(status.MovedPermanently, "")
		return c.Halt(), err
	}
}

const DefaultServerHeader = "plug"

// ServerHeader sets the server response header.
func ServerHeader(value string) pipeline.Plug {
	if len(value) == 0 {
		value = DefaultServerHeader
	}

	return func(c conn.Conn) (conn.Conn, error) {
		return c.PutRespHeader("server", value)
	}
}
