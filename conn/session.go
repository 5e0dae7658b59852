package conn

import (
	"fmt"
	"maps"
)

// Private keys the session machinery stores its state under.
const (
	PrivateSessionFetch = "plug_session_fetch"
	PrivateSession      = "plug_session"
	PrivateSessionInfo  = "plug_session_info"
)

// SessionFetcher loads the session into the connection. It's registered under
// PrivateSessionFetch by the session plug and is expected to store the session data
// under PrivateSession.
type SessionFetcher func(Conn) (Conn, error)

type sessionDone struct{}

// SessionInfo tells the session plug what to do with the session before sending.
type SessionInfo uint8

const (
	SessionUnchanged SessionInfo = iota
	// SessionWrite persists the session.
	SessionWrite
	// SessionRenew persists the session under a new id.
	SessionRenew
	// SessionDrop removes the session.
	SessionDrop
	// SessionIgnore leaves the stored session as is, even if it was changed.
	SessionIgnore
)

// FetchSession fetches the cookies and loads the session with the registered fetcher.
// Fetching again is a no-op.
func (c Conn) FetchSession() (Conn, error) {
	switch fetch := c.private[PrivateSessionFetch].(type) {
	case sessionDone:
		return c, nil
	case SessionFetcher:
		c, err := c.FetchCookies()
		if err != nil {
			return c, err
		}

		if c, err = fetch(c); err != nil {
			return c, err
		}

		if _, ok := c.private[PrivateSession].(map[string]any); !ok {
			c = c.PutPrivate(PrivateSession, map[string]any{})
		}

		return c.PutPrivate(PrivateSessionFetch, sessionDone{}), nil
	default:
		return c, ErrSessionNotConfigured
	}
}

// GetSession returns the session value by the key. Keys are either strings, fmt.Stringer
// or anything else formatted with fmt, so typed constants and plain strings are
// interchangeable. A missing key yields nil.
func (c Conn) GetSession(key any) (any, error) {
	session, err := c.session()
	if err != nil {
		return nil, err
	}

	return session[sessionKey(key)], nil
}

// Session returns a copy of the whole session.
func (c Conn) Session() (map[string]any, error) {
	session, err := c.session()
	if err != nil {
		return nil, err
	}

	return maps.Clone(session), nil
}

func (c Conn) PutSession(key, value any) (Conn, error) {
	if err := c.mutableResp(); err != nil {
		return c, err
	}

	session, err := c.session()
	if err != nil {
		return c, err
	}

	session = maps.Clone(session)
	session[sessionKey(key)] = value
	return c.putSession(session), nil
}

func (c Conn) DeleteSession(key any) (Conn, error) {
	if err := c.mutableResp(); err != nil {
		return c, err
	}

	session, err := c.session()
	if err != nil {
		return c, err
	}

	session = maps.Clone(session)
	delete(session, sessionKey(key))
	return c.putSession(session), nil
}

// ClearSession removes every value from the session.
func (c Conn) ClearSession() (Conn, error) {
	if err := c.mutableResp(); err != nil {
		return c, err
	}

	if _, err := c.session(); err != nil {
		return c, err
	}

	return c.putSession(map[string]any{}), nil
}

// ConfigureSession tells the session plug to renew, drop or ignore the session.
func (c Conn) ConfigureSession(info SessionInfo) (Conn, error) {
	if err := c.mutableResp(); err != nil {
		return c, err
	}

	if _, err := c.session(); err != nil {
		return c, err
	}

	return c.PutPrivate(PrivateSessionInfo, info), nil
}

// SessionInfo returns what the session plug is expected to do with the session.
func (c Conn) SessionInfo() SessionInfo {
	info, _ := c.private[PrivateSessionInfo].(SessionInfo)
	return info
}

func (c Conn) session() (map[string]any, error) {
	session, ok := c.private[PrivateSession].(map[string]any)
	if !ok {
		return nil, ErrSessionNotFetched
	}

	return session, nil
}

func (c Conn) putSession(session map[string]any) Conn {
	c = c.PutPrivate(PrivateSession, session)
	if c.SessionInfo() == SessionUnchanged {
		c = c.PutPrivate(PrivateSessionInfo, SessionWrite)
	}

	return c
}

func sessionKey(key any) string {
	switch k := key.(type) {
	case string:
		return k
	case fmt.Stringer:
		return k.String()
	default:
		return fmt.Sprint(k)
	}
}
