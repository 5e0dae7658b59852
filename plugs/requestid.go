package plugs

import (
	"github.com/google/uuid"
	"github.com/namjae/plug/conn"
	"github.com/namjae/plug/pipeline"
)

const (
	RequestIDHeader = "x-request-id"
	// RequestIDAssign is the assigns key the request id is stored under.
	RequestIDAssign = "request_id"
)

// RequestID reuses the request id sent by the client if it looks sane, otherwise
// generates a new one. The id is echoed in the response headers.
func RequestID() pipeline.Plug {
	return func(c conn.Conn) (conn.Conn, error) {
		id := ""
		if ids := c.GetReqHeader(RequestIDHeader); len(ids) > 0 && validRequestID(ids[0]) {
			id = ids[0]
		} else {
			id = uuid.NewString()
		}

		c, err := c.PutRespHeader(RequestIDHeader, id)
		if err != nil {
			return c, err
		}

		return c.Assign(RequestIDAssign, id), nil
	}
}

func validRequestID(id string) bool {
	if len(id) < 20 || len(id) > 200 {
		return false
	}

	for i := 0; i < len(id); i++ {
		if c := id[i]; c < 0x21 || c > 0x7e {
			return false
		}
	}

	return true
}
