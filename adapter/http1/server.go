package http1

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/indigo-web/utils/uf"
	"github.com/namjae/plug/conn"
	"github.com/namjae/plug/http/status"
	"github.com/namjae/plug/internal/logattr"
	"github.com/namjae/plug/internal/strutil"
	"github.com/namjae/plug/pipeline"
	"github.com/namjae/plug/transport"
)

type Options struct {
	// Scheme the connections are served over, either http or https.
	Scheme string
	// MaxHeadSize limits the request line together with the headers.
	MaxHeadSize int
	// ReadBufferSize is the size of the buffer a connection is read into.
	ReadBufferSize int
	// FileBufferSize is the size of the buffer files are sent through.
	FileBufferSize int
	// IdleTimeout limits waiting for the next request.
	IdleTimeout time.Duration
	// ConnOptions are applied to every connection.
	ConnOptions []conn.Option
}

func DefaultOptions() Options {
	return Options{
		Scheme:         "http",
		MaxHeadSize:    64 * 1024,
		ReadBufferSize: 4096,
		FileBufferSize: 64 * 1024,
		IdleTimeout:    90 * time.Second,
	}
}

// Server runs the pipeline for every request read off a connection.
type Server struct {
	handler pipeline.Plug
	logger  *slog.Logger
	opts    Options
}

func NewServer(handler pipeline.Plug, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	defaults := DefaultOptions()
	if len(opts.Scheme) == 0 {
		opts.Scheme = defaults.Scheme
	}

	if opts.MaxHeadSize <= 0 {
		opts.MaxHeadSize = defaults.MaxHeadSize
	}

	if opts.ReadBufferSize <= 0 {
		opts.ReadBufferSize = defaults.ReadBufferSize
	}

	if opts.FileBufferSize <= 0 {
		opts.FileBufferSize = defaults.FileBufferSize
	}

	return &Server{
		handler: handler,
		logger:  logger.With(logattr.Component("http1")),
		opts:    opts,
	}
}

// ServeConn serves the network connection until the client goes away. Fits as the
// transport.TCP callback.
func (s *Server) ServeConn(nc net.Conn) {
	client := transport.NewClient(nc, s.opts.IdleTimeout, make([]byte, s.opts.ReadBufferSize))
	if err := s.Serve(context.Background(), client); err != nil {
		s.logger.Debug("connection closed", logattr.Error(err), logattr.Remote(nc.RemoteAddr().String()))
	}
}

// Serve serves requests off the client one by one while the connection is kept alive.
// The client isn't closed.
func (s *Server) Serve(ctx context.Context, client transport.Client) error {
	ser := newSerializer(make([]byte, 0, 1024), s.opts.FileBufferSize)

	for {
		client.SetReadTimeout(s.opts.IdleTimeout)
		h, err := readHead(client, s.opts.MaxHeadSize)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			var httpErr status.HTTPError
			if errors.As(err, &httpErr) {
				s.reject(client, ser, err)
			}

			return err
		}

		adapter := newAdapter(client, ser, h)
		if err = s.serve(ctx, client, adapter, h); err != nil {
			return err
		}

		if !adapter.KeepAlive() {
			return nil
		}

		if err = adapter.body.discard(); err != nil {
			return err
		}
	}
}

func (s *Server) serve(ctx context.Context, client transport.Client, adapter *Adapter, h head) error {
	signal := conn.NewSignal()
	opts := append(s.opts.ConnOptions[:len(s.opts.ConnOptions):len(s.opts.ConnOptions)],
		conn.WithContext(ctx), conn.WithOwner(signal),
	)

	c := conn.New(adapter, s.request(client, h), h.headers, opts...)
	c, err := s.handler(c)
	c, err = pipeline.Complete(s.logger, c, err)
	if err != nil {
		s.logger.LogAttrs(ctx, slog.LevelError, "send response",
			logattr.Error(err),
			logattr.Method(c.Method),
			logattr.Path(c.RequestPath),
		)

		return err
	}

	if c.State() == conn.Upgraded {
		// the connection doesn't speak HTTP anymore
		return nil
	}

	return adapter.Finish()
}

func (s *Server) request(client transport.Client, h head) conn.Request {
	path, query := splitTarget(h.target)
	req := conn.Request{
		Method:      h.method,
		Scheme:      s.opts.Scheme,
		Protocol:    h.protocol,
		PathInfo:    strutil.SplitPath(path),
		RequestPath: path,
		QueryString: query,
	}

	req.Host, req.Port = strutil.HostPort(h.headers.Value("host"), s.opts.Scheme)
	if addr, ok := client.Remote().(*net.TCPAddr); ok {
		req.PeerAddr = addr.AddrPort()
		req.RemoteIP = req.PeerAddr.Addr().Unmap()
	}

	return req
}

// reject answers the request which failed to be parsed. The connection is closed
// afterwards anyway, so the write result doesn't matter.
func (s *Server) reject(client transport.Client, ser *serializer, err error) {
	code := status.CodeOf(err)
	body := uf.S2B(string(status.Text(code)))
	buff := ser.head(HTTP11, code, nil, int64(len(body)), false, false)
	_, _ = client.Write(append(buff, body...))
}
