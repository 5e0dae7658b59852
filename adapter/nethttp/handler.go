package nethttp

import (
	"context"
	"log/slog"
	"maps"
	"net/http"
	"net/netip"
	"slices"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/namjae/plug/conn"
	"github.com/namjae/plug/internal/logattr"
	"github.com/namjae/plug/internal/strutil"
	"github.com/namjae/plug/kv"
	"github.com/namjae/plug/pipeline"
)

// Handler is the http.Handler running the pipeline for every request.
type Handler struct {
	plug     pipeline.Plug
	logger   *slog.Logger
	upgrader websocket.Upgrader
	connOpts []conn.Option
	maxBody  int64
}

type Option func(*Handler)

// WithConnOptions sets the options every connection is created with.
func WithConnOptions(opts ...conn.Option) Option {
	return func(h *Handler) {
		h.connOpts = append(h.connOpts, opts...)
	}
}

// WithUpgrader replaces the websocket upgrader. The default one checks the origin
// the way gorilla/websocket does.
func WithUpgrader(upgrader websocket.Upgrader) Option {
	return func(h *Handler) {
		h.upgrader = upgrader
	}
}

// WithMaxBodySize limits the request body as a whole. Zero disables the limit.
func WithMaxBodySize(size int64) Option {
	return func(h *Handler) {
		h.maxBody = size
	}
}

func NewHandler(plug pipeline.Plug, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		plug:   plug,
		logger: logger.With(logattr.Component("nethttp")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}

	adapter := newAdapter(w, r)
	signal := conn.NewSignal()
	opts := append(h.connOpts[:len(h.connOpts):len(h.connOpts)],
		conn.WithContext(r.Context()), conn.WithOwner(signal),
	)

	c := conn.New(adapter, Request(r), Headers(r), opts...)
	c, err := h.plug(c)
	c, err = pipeline.Complete(h.logger, c, err)
	if err != nil {
		h.logger.LogAttrs(r.Context(), slog.LevelError, "send response",
			logattr.Error(err),
			logattr.Method(c.Method),
			logattr.Path(c.RequestPath),
		)

		return
	}

	if c.State() == conn.Upgraded && adapter.ws != nil {
		h.serveWebSocket(c.Context(), w, r, adapter.ws)
	}
}

func (h *Handler) serveWebSocket(ctx context.Context, w http.ResponseWriter, r *http.Request, handler WebSocketHandler) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered with an error status
		h.logger.WarnContext(ctx, "websocket handshake", logattr.Error(err))
		return
	}

	defer ws.Close()

	if err = handler(ctx, ws); err != nil {
		h.logger.WarnContext(ctx, "websocket", logattr.Error(err), logattr.Path(r.URL.Path))
	}
}

// Request converts the net/http request into the connection request fields.
func Request(r *http.Request) conn.Request {
	req := conn.Request{
		Method:      r.Method,
		Scheme:      "http",
		Protocol:    r.Proto,
		RequestPath: r.URL.Path,
		QueryString: r.URL.RawQuery,
	}

	if r.TLS != nil {
		req.Scheme = "https"
	}

	if len(req.RequestPath) == 0 {
		req.RequestPath = "/"
	}

	req.PathInfo = strutil.SplitPath(req.RequestPath)
	req.Host, req.Port = strutil.HostPort(r.Host, req.Scheme)
	if peer, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		req.PeerAddr = peer
		req.RemoteIP = peer.Addr().Unmap()
	}

	return req
}

// Headers converts the request headers. Keys are lower-cased and sorted, values of a
// key keep their order. net/http strips the Host header, so it's restored.
func Headers(r *http.Request) *kv.Storage {
	headers := kv.NewPrealloc(len(r.Header) + 1)
	if len(r.Host) > 0 {
		headers.Add("host", r.Host)
	}

	for _, key := range slices.Sorted(maps.Keys(r.Header)) {
		lower := strings.ToLower(key)
		for _, value := range r.Header[key] {
			headers.Add(lower, value)
		}
	}

	return headers
}
