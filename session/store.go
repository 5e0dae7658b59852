// Package session keeps per-client data between requests. The plug registers the fetch
// strategy on the connection and persists the session right before the response is sent;
// the data itself lives in a Store.
package session

import (
	"context"
	"errors"

	"github.com/dchest/uniuri"
	jsoniter "github.com/json-iterator/go"
)

var (
	ErrNoKey   = errors.New("session cookie key is not set")
	ErrNoStore = errors.New("session store is not set")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store persists sessions.
type Store interface {
	// Get returns the session by the cookie value. An unknown or expired session is
	// reported as an empty sid with no data, not as an error.
	Get(ctx context.Context, cookie string) (sid string, data map[string]any, err error)
	// Put stores the data under the sid and returns the value for the session cookie.
	// An empty sid means a new session.
	Put(ctx context.Context, sid string, data map[string]any) (cookie string, err error)
	Delete(ctx context.Context, sid string) error
}

const sidLength = 32

func newSID() string {
	return uniuri.NewLen(sidLength)
}

func encode(data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}

	return json.Marshal(data)
}

func decode(raw []byte) (map[string]any, error) {
	data := map[string]any{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}

	return data, nil
}
