package session

import (
	"context"
	"encoding/base64"
)

// CookieStore keeps the whole session in the cookie. Sign or encrypt the cookie, as the
// client is able to read and forge it otherwise.
type CookieStore struct{}

func NewCookieStore() CookieStore {
	return CookieStore{}
}

// Get decodes the session. Malformed payloads result in an empty session.
func (CookieStore) Get(_ context.Context, cookie string) (string, map[string]any, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cookie)
	if err != nil {
		return "", nil, nil
	}

	data, err := decode(raw)
	if err != nil {
		return "", nil, nil
	}

	return "", data, nil
}

func (CookieStore) Put(_ context.Context, _ string, data map[string]any) (string, error) {
	raw, err := encode(data)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func (CookieStore) Delete(context.Context, string) error {
	return nil
}
