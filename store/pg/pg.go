// Package pg implements a key-value store in a Postgresql database.
// Channel messages ride on the database's NOTIFY mechanism,
// so they reach subscribers in other processes sharing the database.
package pg

import (
	"context"
	"database/sql"
	stderrs "errors"
	"net/url"
	"time"

	"github.com/bobg/sqlutil"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"siteembed"
	"siteembed/store"
)

var (
	_ siteembed.Store      = &Store{}
	_ siteembed.Publisher  = &Store{}
	_ siteembed.Subscriber = &Store{}
)

// Store is a Postgresql-based key-value store.
// Expirations are stored as deadlines
// and enforced lazily on read and scan.
type Store struct {
	db       *sql.DB
	conninfo string
}

// Schema is the SQL that New executes.
// It creates the `kv` table if it does not exist.
// (If it does exist, it must have the columns, constraints, and indexing described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS kv (
  key TEXT PRIMARY KEY NOT NULL,
  val BYTEA NOT NULL,
  expires_at TIMESTAMP WITH TIME ZONE
);

CREATE INDEX IF NOT EXISTS kv_expires_idx ON kv (expires_at) WHERE expires_at IS NOT NULL;
`

// New produces a new Store using `db` for storage.
// It expects to create the `kv` table,
// or for that table already to exist with the correct schema.
// (See variable Schema.)
// A Store built this way cannot Subscribe;
// for that, use Open,
// which keeps the connection string that a notification listener needs.
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Store{db: db}, err
}

// Open produces a new Store on the database named by conninfo,
// which is a connection string or postgres:// URL.
func Open(ctx context.Context, conninfo string) (*Store, error) {
	db, err := sql.Open("postgres", conninfo)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	s, err := New(ctx, db)
	if err != nil {
		return nil, err
	}
	s.conninfo = conninfo
	return s, nil
}

// Close releases the store's database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get gets the value stored under the given key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	const q = `SELECT val, expires_at FROM kv WHERE key = $1`

	var (
		val     []byte
		expires sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, q, key).Scan(&val, &expires)
	if stderrs.Is(err, sql.ErrNoRows) {
		return nil, siteembed.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "getting %s", key)
	}
	if expired(expires) {
		return nil, siteembed.ErrNotFound
	}
	return val, nil
}

func expired(at sql.NullTime) bool {
	return at.Valid && !at.Time.After(time.Now())
}

// Set stores val under key,
// discarding any expiration already set.
func (s *Store) Set(ctx context.Context, key string, val []byte) error {
	const q = `
INSERT INTO kv (key, val, expires_at) VALUES ($1, $2, NULL)
  ON CONFLICT (key) DO UPDATE SET val = excluded.val, expires_at = NULL`

	_, err := s.db.ExecContext(ctx, q, key, val)
	return errors.Wrapf(err, "setting %s", key)
}

// Scan calls f for each key with the given prefix,
// in lexicographic order.
// Rows whose expiration has passed are purged first.
func (s *Store) Scan(ctx context.Context, prefix string, f func(key string) error) error {
	if err := s.purge(ctx); err != nil {
		return err
	}

	lo, hi := store.PrefixRange(prefix)
	if hi == "" {
		const q = `SELECT key FROM kv WHERE key >= $1 ORDER BY key`
		return sqlutil.ForQueryRows(ctx, s.db, q, lo, f)
	}

	const q = `SELECT key FROM kv WHERE key >= $1 AND key < $2 ORDER BY key`
	return sqlutil.ForQueryRows(ctx, s.db, q, lo, hi, f)
}

func (s *Store) purge(ctx context.Context) error {
	const q = `DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= $1`

	_, err := s.db.ExecContext(ctx, q, time.Now())
	return errors.Wrap(err, "purging expired keys")
}

// Expire arranges for key to be removed after ttl.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	const q = `
UPDATE kv SET expires_at = $1
  WHERE key = $2 AND (expires_at IS NULL OR expires_at > $3)`

	now := time.Now()
	res, err := s.db.ExecContext(ctx, q, now.Add(ttl), key, now)
	if err != nil {
		return errors.Wrapf(err, "expiring %s", key)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "counting affected rows")
	}
	if aff == 0 {
		return siteembed.ErrNotFound
	}
	return nil
}

// TTL reports the remaining time to live of key.
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	const q = `SELECT expires_at FROM kv WHERE key = $1`

	var expires sql.NullTime
	err := s.db.QueryRowContext(ctx, q, key).Scan(&expires)
	if stderrs.Is(err, sql.ErrNoRows) {
		return 0, siteembed.ErrNotFound
	}
	if err != nil {
		return 0, errors.Wrapf(err, "reading ttl of %s", key)
	}
	if !expires.Valid {
		return 0, nil
	}
	d := time.Until(expires.Time)
	if d <= 0 {
		return 0, siteembed.ErrNotFound
	}
	return d, nil
}

// Publish announces msg on the named channel.
// Delivery happens via NOTIFY,
// whose payload limit (about 8kB) is ample for logical keys.
func (s *Store) Publish(ctx context.Context, channel, msg string) error {
	const q = `SELECT pg_notify($1, $2)`

	_, err := s.db.ExecContext(ctx, q, channel, msg)
	return errors.Wrapf(err, "publishing on %s", channel)
}

// Subscribe subscribes to the named channel.
// The subscription holds its own database connection,
// reconnecting (with gaps) if the connection drops.
// It is an error to Subscribe on a Store that was not built by Open.
func (s *Store) Subscribe(_ context.Context, channel string) (siteembed.Subscription, error) {
	if s.conninfo == "" {
		return nil, errors.New("store has no connection string (use Open)")
	}

	l := pq.NewListener(s.conninfo, 10*time.Second, time.Minute, nil)
	if err := l.Listen(channel); err != nil {
		l.Close()
		return nil, errors.Wrapf(err, "listening on %s", channel)
	}

	sub := &subscription{
		listener: l,
		c:        make(chan string),
		done:     make(chan struct{}),
	}
	go sub.run()
	return sub, nil
}

type subscription struct {
	listener *pq.Listener
	c        chan string
	done     chan struct{}
}

func (sub *subscription) run() {
	defer close(sub.c)

	for {
		select {
		case n, ok := <-sub.listener.Notify:
			if !ok {
				return
			}
			if n == nil {
				// A nil notification marks a reconnection;
				// messages may have been missed in the gap.
				continue
			}
			select {
			case sub.c <- n.Extra:
			case <-sub.done:
				return
			}
		case <-sub.done:
			return
		}
	}
}

func (sub *subscription) C() <-chan string { return sub.c }

func (sub *subscription) Close() error {
	close(sub.done)
	return sub.listener.Close()
}

func init() {
	f := func(ctx context.Context, u *url.URL) (siteembed.Store, error) {
		return Open(ctx, u.String())
	}
	store.Register("postgres", f)
	store.Register("postgresql", f)
}
