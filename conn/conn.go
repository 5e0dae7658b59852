// Package conn implements the connection: a value carrying a single request together with
// the response staged for it, and the state machine governing how the response is handed
// over to the transport.
//
// Conn is passed by value. Every operation changing it returns a new Conn, leaving the
// original untouched, so a plug holding an older copy never observes changes made later.
package conn

import (
	"context"
	"maps"
	"net/netip"
	"strconv"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/namjae/plug/http/cookie"
	"github.com/namjae/plug/http/query"
	"github.com/namjae/plug/http/status"
	"github.com/namjae/plug/kv"
)

// Request holds the request fields. They are set once by the transport.
type Request struct {
	Method   string
	Scheme   string
	Host     string
	Port     uint16
	Protocol string
	// RemoteIP is the address of the client. Proxy-aware plugs may override it.
	RemoteIP netip.Addr
	// PeerAddr is the address of the other end of the socket.
	PeerAddr netip.AddrPort
	// PathInfo is the request path split into segments.
	PathInfo []string
	// ScriptName is the part of the path already consumed by mounting.
	ScriptName  []string
	RequestPath string
	QueryString string
}

type Conn struct {
	Request

	ctx        context.Context
	clock      clock.Clock
	adapter    Adapter
	owner      Owner
	keys       *cookie.KeyGenerator
	cookieOpts cookie.Options
	bodyOpts   BodyOptions
	strictKeys bool

	reqHeaders *kv.Storage

	cookies     Fetchable[map[string]string]
	reqCookies  Fetchable[map[string]string]
	queryParams Fetchable[query.Params]
	params      Fetchable[query.Params]
	pathParams  map[string]string

	state       State
	status      status.Code
	respBody    []byte
	respHeaders *kv.Storage
	respCookies []respCookie
	respCharset string
	beforeSend  []BeforeSendFunc

	// committing is set while before-send callbacks of a commit run.
	committing bool

	halted  bool
	assigns map[string]any
	private map[string]any
}

type Option func(*Conn)

// WithOwner sets the owner notified on commit.
func WithOwner(owner Owner) Option {
	return func(c *Conn) {
		c.owner = owner
	}
}

func WithContext(ctx context.Context) Option {
	return func(c *Conn) {
		c.ctx = ctx
	}
}

// WithClock sets the clock cookie expiration is computed with.
func WithClock(clk clock.Clock) Option {
	return func(c *Conn) {
		c.clock = clk
	}
}

// WithSecretKeyBase enables signed and encrypted cookies.
func WithSecretKeyBase(keys *cookie.KeyGenerator) Option {
	return func(c *Conn) {
		c.keys = keys
	}
}

// WithCookieDefaults sets the attributes response cookies start with.
func WithCookieDefaults(opts cookie.Options) Option {
	return func(c *Conn) {
		c.cookieOpts = opts
	}
}

// WithBodyDefaults sets the limits body reads use unless overridden per call.
func WithBodyDefaults(opts BodyOptions) Option {
	return func(c *Conn) {
		c.bodyOpts = opts
	}
}

// WithHeaderKeyValidation rejects header keys which aren't lower-cased.
func WithHeaderKeyValidation(enabled bool) Option {
	return func(c *Conn) {
		c.strictKeys = enabled
	}
}

// WithDefaultCharset sets the charset reported by RespCharset until the content-type
// is put explicitly.
func WithDefaultCharset(charset string) Option {
	return func(c *Conn) {
		c.respCharset = charset
	}
}

// WithRespHeaders sets the response headers every response starts with.
func WithRespHeaders(pairs ...kv.Pair) Option {
	return func(c *Conn) {
		c.respHeaders = kv.NewFromPairs(pairs...)
	}
}

// New returns a connection for the request. The request headers are owned by the
// connection from now on.
func New(adapter Adapter, req Request, headers *kv.Storage, opts ...Option) Conn {
	if headers == nil {
		headers = kv.New()
	}

	c := Conn{
		Request:     req,
		ctx:         context.Background(),
		clock:       clock.New(),
		adapter:     adapter,
		owner:       nopOwner{},
		cookieOpts:  cookie.DefaultOptions(),
		bodyOpts:    DefaultBodyOptions(),
		reqHeaders:  headers,
		cookies:     Unfetched[map[string]string](AspectCookies),
		reqCookies:  Unfetched[map[string]string](AspectReqCookies),
		queryParams: Unfetched[query.Params](AspectQueryParams),
		params:      Unfetched[query.Params](AspectParams),
		respHeaders: kv.NewFromPairs(kv.Pair{Key: "cache-control", Value: "max-age=0, private, must-revalidate"}),
		respCharset: "utf-8",
		assigns:     map[string]any{},
		private:     map[string]any{},
	}

	for _, opt := range opts {
		opt(&c)
	}

	if c.Scheme == "" {
		c.Scheme = "http"
	}

	return c
}

func (c Conn) Context() context.Context {
	return c.ctx
}

func (c Conn) WithContext(ctx context.Context) Conn {
	c.ctx = ctx
	return c
}

func (c Conn) Clock() clock.Clock {
	return c.clock
}

// Adapter returns the adapter the connection currently uses.
func (c Conn) Adapter() Adapter {
	return c.adapter
}

func (c Conn) Owner() Owner {
	return c.owner
}

func (c Conn) State() State {
	return c.state
}

// Halt marks the connection as halted, so pipelines stop invoking further plugs.
func (c Conn) Halt() Conn {
	c.halted = true
	return c
}

func (c Conn) Halted() bool {
	return c.halted
}

// FullPath returns the request path, including the script name.
func (c Conn) FullPath() string {
	if len(c.ScriptName) == 0 && len(c.PathInfo) == 0 {
		return "/"
	}

	var b strings.Builder
	for _, segment := range c.ScriptName {
		b.WriteByte('/')
		b.WriteString(segment)
	}

	for _, segment := range c.PathInfo {
		b.WriteByte('/')
		b.WriteString(segment)
	}

	return b.String()
}

// RequestURL returns the absolute URL of the request. Default ports are omitted.
func (c Conn) RequestURL() string {
	var b strings.Builder
	b.WriteString(c.Scheme)
	b.WriteString("://")
	b.WriteString(c.Host)

	if !(c.Port == 0 || c.Scheme == "http" && c.Port == 80 || c.Scheme == "https" && c.Port == 443) {
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(int(c.Port)))
	}

	if len(c.RequestPath) > 0 {
		b.WriteString(c.RequestPath)
	} else {
		b.WriteString(c.FullPath())
	}

	if len(c.QueryString) > 0 {
		b.WriteByte('?')
		b.WriteString(c.QueryString)
	}

	return b.String()
}

// Assign stores the value under the key in the assigns.
func (c Conn) Assign(key string, value any) Conn {
	c.assigns = cloneMap(c.assigns)
	c.assigns[key] = value
	return c
}

// MergeAssigns stores every pair from the map in the assigns.
func (c Conn) MergeAssigns(values map[string]any) Conn {
	c.assigns = cloneMap(c.assigns)
	maps.Copy(c.assigns, values)
	return c
}

func (c Conn) GetAssign(key string) (any, bool) {
	value, found := c.assigns[key]
	return value, found
}

// Assigns returns a copy of the assigns.
func (c Conn) Assigns() map[string]any {
	return maps.Clone(c.assigns)
}

// PutPrivate stores the value under the key in the private storage. The private storage
// is meant for libraries. Keys are prefixed with the library name by convention.
func (c Conn) PutPrivate(key string, value any) Conn {
	c.private = cloneMap(c.private)
	c.private[key] = value
	return c
}

func (c Conn) MergePrivate(values map[string]any) Conn {
	c.private = cloneMap(c.private)
	maps.Copy(c.private, values)
	return c
}

func (c Conn) GetPrivate(key string) (any, bool) {
	value, found := c.private[key]
	return value, found
}

func cloneMap[V any](m map[string]V) map[string]V {
	if m == nil {
		return make(map[string]V, 1)
	}

	return maps.Clone(m)
}
