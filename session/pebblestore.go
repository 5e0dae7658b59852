package session

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
)

type pebbleRecord struct {
	Expires int64          `json:"expires,omitempty"`
	Data    map[string]any `json:"data"`
}

// PebbleStore keeps sessions in an embedded pebble database. Expired sessions are
// dropped lazily, on read.
type PebbleStore struct {
	db     *pebble.DB
	prefix string
	ttl    time.Duration
	clock  clock.Clock
}

func NewPebbleStore(db *pebble.DB, ttl time.Duration, clk clock.Clock) *PebbleStore {
	if clk == nil {
		clk = clock.New()
	}

	return &PebbleStore{
		db:     db,
		prefix: "session:",
		ttl:    ttl,
		clock:  clk,
	}
}

// OpenPebble opens the database at the path, creating it if necessary.
func OpenPebble(path string, opts *pebble.Options) (*pebble.DB, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}

	db, err := pebble.Open(path, opts)
	return db, errors.Wrapf(err, "open pebble at %s", path)
}

func (p *PebbleStore) key(sid string) []byte {
	return []byte(p.prefix + sid)
}

func (p *PebbleStore) Get(ctx context.Context, sid string) (string, map[string]any, error) {
	value, closer, err := p.db.Get(p.key(sid))
	switch {
	case errors.Is(err, pebble.ErrNotFound):
		return "", nil, nil
	case err != nil:
		return "", nil, errors.Wrapf(err, "get session %s", sid)
	}

	var record pebbleRecord
	err = json.Unmarshal(value, &record)
	_ = closer.Close()
	if err != nil {
		return "", nil, nil
	}

	if record.Expires != 0 && p.clock.Now().UnixNano() >= record.Expires {
		return "", nil, p.Delete(ctx, sid)
	}

	if record.Data == nil {
		record.Data = map[string]any{}
	}

	return sid, record.Data, nil
}

func (p *PebbleStore) Put(_ context.Context, sid string, data map[string]any) (string, error) {
	if len(sid) == 0 {
		sid = newSID()
	}

	record := pebbleRecord{Data: data}
	if p.ttl > 0 {
		record.Expires = p.clock.Now().Add(p.ttl).UnixNano()
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return "", err
	}

	if err = p.db.Set(p.key(sid), raw, pebble.Sync); err != nil {
		return "", errors.Wrapf(err, "put session %s", sid)
	}

	return sid, nil
}

func (p *PebbleStore) Delete(_ context.Context, sid string) error {
	return errors.Wrapf(p.db.Delete(p.key(sid), pebble.Sync), "delete session %s", sid)
}
