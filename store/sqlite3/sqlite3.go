// Package sqlite3 implements a key-value store in a SQLite database file.
package sqlite3

import (
	"context"
	"database/sql"
	stderrs "errors"
	"net/url"
	"time"

	"github.com/bobg/sqlutil"
	_ "github.com/mattn/go-sqlite3" // register the sqlite3 type for sql.Open
	"github.com/pkg/errors"

	"siteembed"
	"siteembed/store"
)

var _ siteembed.Store = &Store{}

// Store is a Sqlite-based key-value store.
// It implements neither Publisher nor Subscriber:
// the database is process-local,
// so there is no other process to notify.
// Expirations are stored as deadlines
// and enforced lazily on read and scan.
type Store struct {
	db *sql.DB
}

// Schema is the SQL that New executes.
// It creates the `kv` table if it does not exist.
// (If it does exist, it must have the columns, constraints, and indexing described here.)
const Schema = `
CREATE TABLE IF NOT EXISTS kv (
  key TEXT PRIMARY KEY NOT NULL,
  val BLOB NOT NULL,
  expires_at INTEGER
);

CREATE INDEX IF NOT EXISTS kv_expires_idx ON kv (expires_at) WHERE expires_at IS NOT NULL;
`

// New produces a new Store using `db` for storage.
// It expects to create the `kv` table,
// or for that table already to exist with the correct schema.
// (See variable Schema.)
func New(ctx context.Context, db *sql.DB) (*Store, error) {
	_, err := db.ExecContext(ctx, Schema)
	return &Store{db: db}, err
}

// Open produces a new Store on the database file named by a sqlite3: URL,
// such as sqlite3:cache.db or sqlite3:///var/lib/siteembed/kv.db.
func Open(ctx context.Context, u *url.URL) (*Store, error) {
	name := u.Opaque
	if name == "" {
		name = u.Path
	}
	if name == "" {
		return nil, errors.New("no database file in url")
	}
	db, err := sql.Open("sqlite3", name)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	return New(ctx, db)
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
		expires sql.NullInt64
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

func expired(at sql.NullInt64) bool {
	return at.Valid && at.Int64 <= time.Now().UnixNano()
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

	_, err := s.db.ExecContext(ctx, q, time.Now().UnixNano())
	return errors.Wrap(err, "purging expired keys")
}

// Expire arranges for key to be removed after ttl.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	const q = `
UPDATE kv SET expires_at = $1
  WHERE key = $2 AND (expires_at IS NULL OR expires_at > $3)`

	now := time.Now()
	res, err := s.db.ExecContext(ctx, q, now.Add(ttl).UnixNano(), key, now.UnixNano())
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

	var expires sql.NullInt64
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
	d := time.Until(time.Unix(0, expires.Int64))
	if d <= 0 {
		return 0, siteembed.ErrNotFound
	}
	return d, nil
}

func init() {
	f := func(ctx context.Context, u *url.URL) (siteembed.Store, error) {
		return Open(ctx, u)
	}
	store.Register("sqlite3", f)
	store.Register("sqlite", f)
}
