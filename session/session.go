package session

import (
	"log/slog"

	"github.com/namjae/plug/conn"
	"github.com/namjae/plug/http/cookie"
	"github.com/namjae/plug/internal/logattr"
	"github.com/namjae/plug/pipeline"
)

// PrivateSessionID is the private key the id of the loaded session is stored under.
const PrivateSessionID = "plug_session_id"

type Options struct {
	// Key is the name of the session cookie.
	Key   string
	Store Store
	// Sign and Encrypt protect the session cookie with the connection's secret key base.
	// Encrypt takes precedence.
	Sign, Encrypt bool
	// Cookie is applied over the connection's cookie defaults.
	Cookie []cookie.Option
	Logger *slog.Logger
}

type Session struct {
	opts       Options
	cookieOpts []cookie.Option
	logger     *slog.Logger
}

func New(opts Options) (*Session, error) {
	if len(opts.Key) == 0 {
		return nil, ErrNoKey
	}

	if opts.Store == nil {
		return nil, ErrNoStore
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cookieOpts := append([]cookie.Option(nil), opts.Cookie...)
	switch {
	case opts.Encrypt:
		cookieOpts = append(cookieOpts, cookie.WithEncrypt())
	case opts.Sign:
		cookieOpts = append(cookieOpts, cookie.WithSign())
	}

	return &Session{
		opts:       opts,
		cookieOpts: cookieOpts,
		logger:     logger.With(logattr.Component("session")),
	}, nil
}

// Plug configures the connection to lazily load the session on Conn.FetchSession and
// registers the callback persisting it before the response is sent.
func (s *Session) Plug() pipeline.Plug {
	return func(c conn.Conn) (conn.Conn, error) {
		c = c.PutPrivate(conn.PrivateSessionFetch, conn.SessionFetcher(s.fetch))
		return c.RegisterBeforeSend(s.beforeSend)
	}
}

func (s *Session) fetch(c conn.Conn) (conn.Conn, error) {
	var opts []conn.CookieFetchOption
	switch {
	case s.opts.Encrypt:
		opts = append(opts, conn.Encrypted(s.opts.Key))
	case s.opts.Sign:
		opts = append(opts, conn.Signed(s.opts.Key))
	}

	c, err := c.FetchCookies(opts...)
	if err != nil {
		return c, err
	}

	cookies, err := c.Cookies()
	if err != nil {
		return c, err
	}

	raw, found := cookies[s.opts.Key]
	if !found {
		return c.PutPrivate(conn.PrivateSession, map[string]any{}), nil
	}

	sid, data, err := s.opts.Store.Get(c.Context(), raw)
	if err != nil {
		return c, err
	}

	if data == nil {
		data = map[string]any{}
	}

	return c.MergePrivate(map[string]any{
		PrivateSessionID:    sid,
		conn.PrivateSession: data,
	}), nil
}

func (s *Session) beforeSend(c conn.Conn) conn.Conn {
	data, err := c.Session()
	if err != nil {
		// the session was never fetched, so there's nothing to persist
		return c
	}

	sid, _ := c.GetPrivate(PrivateSessionID)
	id, _ := sid.(string)

	switch c.SessionInfo() {
	case conn.SessionWrite:
		return s.put(c, id, data)
	case conn.SessionRenew:
		if len(id) > 0 {
			s.delete(c, id)
		}

		return s.put(c, "", data)
	case conn.SessionDrop:
		if len(id) > 0 {
			s.delete(c, id)
		}

		updated, err := c.DeleteRespCookie(s.opts.Key, s.opts.Cookie...)
		if err != nil {
			s.logger.ErrorContext(c.Context(), "drop session cookie", logattr.Error(err))
			return c
		}

		return updated
	default:
		return c
	}
}

func (s *Session) put(c conn.Conn, sid string, data map[string]any) conn.Conn {
	value, err := s.opts.Store.Put(c.Context(), sid, data)
	if err != nil {
		s.logger.ErrorContext(c.Context(), "store session", logattr.Error(err))
		return c
	}

	updated, err := c.PutRespCookie(s.opts.Key, value, s.cookieOpts...)
	if err != nil {
		s.logger.ErrorContext(c.Context(), "put session cookie", logattr.Error(err))
		return c
	}

	return updated
}

func (s *Session) delete(c conn.Conn, sid string) {
	if err := s.opts.Store.Delete(c.Context(), sid); err != nil {
		s.logger.WarnContext(c.Context(), "delete session", logattr.Error(err))
	}
}
