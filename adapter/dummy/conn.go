package dummy

import (
	"net/netip"
	"net/url"

	"github.com/namjae/plug/conn"
	"github.com/namjae/plug/internal/strutil"
	"github.com/namjae/plug/kv"
)

// NewConn builds a connection for the target, which is either a path with an optional
// query or an absolute URL. The host defaults to www.example.com, the client address
// to 127.0.0.1.
func NewConn(method, target string, body []byte, opts ...conn.Option) (conn.Conn, *Recorder) {
	rec := NewRecorder()
	return NewConnWithRecorder(rec, method, target, body, kv.New(), opts...), rec
}

// NewConnWithRecorder is NewConn with explicit recorder and request headers.
func NewConnWithRecorder(
	rec *Recorder, method, target string, body []byte, headers *kv.Storage, opts ...conn.Option,
) conn.Conn {
	u, err := url.Parse(target)
	if err != nil {
		u = &url.URL{Path: target}
	}

	req := conn.Request{
		Method:      method,
		Scheme:      "http",
		Host:        "www.example.com",
		Port:        80,
		Protocol:    "HTTP/1.1",
		RemoteIP:    netip.MustParseAddr("127.0.0.1"),
		PeerAddr:    netip.MustParseAddrPort("127.0.0.1:111"),
		PathInfo:    strutil.SplitPath(u.Path),
		RequestPath: u.Path,
		QueryString: u.RawQuery,
	}

	if len(req.RequestPath) == 0 {
		req.RequestPath = "/"
	}

	if u.IsAbs() {
		req.Scheme = u.Scheme
		req.Host, req.Port = strutil.HostPort(u.Host, u.Scheme)
	}

	return conn.New(New(rec, body), req, headers, opts...)
}
