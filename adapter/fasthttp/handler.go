package fasthttp

import (
	"context"
	"log/slog"
	"net"
	"net/netip"
	"strings"

	"github.com/namjae/plug/conn"
	"github.com/namjae/plug/internal/logattr"
	"github.com/namjae/plug/internal/strutil"
	"github.com/namjae/plug/kv"
	"github.com/namjae/plug/pipeline"
	"github.com/valyala/fasthttp"
)

// Handler runs the pipeline for every request.
type Handler struct {
	plug     pipeline.Plug
	logger   *slog.Logger
	connOpts []conn.Option
}

func NewHandler(plug pipeline.Plug, logger *slog.Logger, connOpts ...conn.Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		plug:     plug,
		logger:   logger.With(logattr.Component("fasthttp")),
		connOpts: connOpts,
	}
}

// Handle fits as fasthttp.RequestHandler.
func (h *Handler) Handle(ctx *fasthttp.RequestCtx) {
	opts := append(h.connOpts[:len(h.connOpts):len(h.connOpts)],
		// RequestCtx implements context.Context, but is recycled after the handler returns
		conn.WithContext(context.Background()), conn.WithOwner(conn.NewSignal()),
	)

	c := conn.New(newAdapter(ctx), Request(ctx), Headers(ctx), opts...)
	c, err := h.plug(c)
	if c, err = pipeline.Complete(h.logger, c, err); err != nil {
		h.logger.LogAttrs(c.Context(), slog.LevelError, "send response",
			logattr.Error(err),
			logattr.Method(c.Method),
			logattr.Path(c.RequestPath),
		)
	}
}

// Request converts the fasthttp request into the connection request fields.
func Request(ctx *fasthttp.RequestCtx) conn.Request {
	req := conn.Request{
		Method:      string(ctx.Method()),
		Scheme:      "http",
		Protocol:    string(ctx.Request.Header.Protocol()),
		RequestPath: string(ctx.Path()),
		QueryString: string(ctx.URI().QueryString()),
	}

	if ctx.IsTLS() {
		req.Scheme = "https"
	}

	req.PathInfo = strutil.SplitPath(req.RequestPath)
	req.Host, req.Port = strutil.HostPort(string(ctx.Host()), req.Scheme)
	if addr, ok := ctx.RemoteAddr().(*net.TCPAddr); ok {
		req.PeerAddr = addr.AddrPort()
		req.RemoteIP = req.PeerAddr.Addr().Unmap()
	} else if ip, ok := netip.AddrFromSlice(ctx.RemoteIP()); ok {
		req.RemoteIP = ip.Unmap()
	}

	return req
}

// Headers converts the request headers, lower-casing the keys.
func Headers(ctx *fasthttp.RequestCtx) *kv.Storage {
	headers := kv.NewPrealloc(ctx.Request.Header.Len())
	ctx.Request.Header.VisitAll(func(key, value []byte) {
		headers.Add(strings.ToLower(string(key)), string(value))
	})

	return headers
}
