package pg

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"siteembed"
	"siteembed/store/testutil"
)

func TestStore(t *testing.T) {
	withStore(t, func(ctx context.Context, store *Store) {
		testutil.KV(ctx, t, store)
	})
}

func TestPubSub(t *testing.T) {
	withStore(t, func(ctx context.Context, store *Store) {
		testutil.PubSub(ctx, t, store)
	})
}

func TestQuickScan(t *testing.T) {
	withStore(t, func(ctx context.Context, store *Store) {
		testutil.QuickScan(ctx, t, store)
	})
}

func TestExpiry(t *testing.T) {
	withStore(t, func(ctx context.Context, store *Store) {
		if err := store.Set(ctx, "asset:stale", []byte("text/plain;x")); err != nil {
			t.Fatal(err)
		}
		if err := store.Expire(ctx, "asset:stale", 10*time.Millisecond); err != nil {
			t.Fatal(err)
		}
		time.Sleep(20 * time.Millisecond)

		err := store.Scan(ctx, "asset:", func(key string) error {
			t.Errorf("unexpected key %s", key)
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if _, err = store.Get(ctx, "asset:stale"); !errors.Is(err, siteembed.ErrNotFound) {
			t.Errorf("got %v, want %v", err, siteembed.ErrNotFound)
		}
	})
}

const connVar = "SITEEMBED_PG_TESTING_CONN"

func withStore(t *testing.T, f func(context.Context, *Store)) {
	conninfo := os.Getenv(connVar)
	if conninfo == "" {
		t.Skipf("to run %s, set %s to a valid Postgresql connection string", t.Name(), connVar)
	}

	ctx := context.Background()
	store, err := Open(ctx, conninfo)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err = store.db.ExecContext(ctx, `DELETE FROM kv`); err != nil {
		t.Fatal(err)
	}

	f(ctx, store)
}
