// Package testutil supplies conformance tests
// that every key-value store backend must pass.
package testutil

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"testing"
	"testing/quick"
	"time"

	"github.com/google/go-cmp/cmp"

	"siteembed"
)

// KV exercises the Store contract on s,
// which must start out empty.
func KV(ctx context.Context, t *testing.T, s siteembed.Store) {
	_, err := s.Get(ctx, "asset:missing")
	if !errors.Is(err, siteembed.ErrNotFound) {
		t.Errorf("got %v, want %v", err, siteembed.ErrNotFound)
	}

	err = s.Set(ctx, "asset:a.css", []byte("text/css;body { margin: 0 }"))
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.Get(ctx, "asset:a.css")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "text/css;body { margin: 0 }" {
		t.Errorf("got %q, want %q", got, "text/css;body { margin: 0 }")
	}

	// Overwrite.
	err = s.Set(ctx, "asset:a.css", []byte("text/css;body { margin: 1em }"))
	if err != nil {
		t.Fatal(err)
	}
	got, err = s.Get(ctx, "asset:a.css")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "text/css;body { margin: 1em }" {
		t.Errorf("got %q, want %q", got, "text/css;body { margin: 1em }")
	}

	scanTest(ctx, t, s)
	expireTest(ctx, t, s)
}

func scanTest(ctx context.Context, t *testing.T, s siteembed.Store) {
	for _, key := range []string{"asset:sub", "asset:img/logo.png", "card:promo"} {
		if err := s.Set(ctx, key, []byte("text/plain;x")); err != nil {
			t.Fatal(err)
		}
	}

	seen := make(map[string]bool)
	err := s.Scan(ctx, "asset:", func(key string) error {
		seen[key] = true
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	var keys []string
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	want := []string{"asset:a.css", "asset:img/logo.png", "asset:sub"}
	if diff := cmp.Diff(want, keys); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	// A callback error propagates out.
	wantErr := errors.New("stop")
	err = s.Scan(ctx, "asset:", func(string) error { return wantErr })
	if !errors.Is(err, wantErr) {
		t.Errorf("got %v, want %v", err, wantErr)
	}
}

func expireTest(ctx context.Context, t *testing.T, s siteembed.Store) {
	err := s.Set(ctx, "asset:stale", []byte("text/plain;old"))
	if err != nil {
		t.Fatal(err)
	}

	// No expiration yet.
	ttl, err := s.TTL(ctx, "asset:stale")
	if err != nil {
		t.Fatal(err)
	}
	if ttl != 0 {
		t.Errorf("got ttl %v, want 0", ttl)
	}

	err = s.Expire(ctx, "asset:stale", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	ttl, err = s.TTL(ctx, "asset:stale")
	if err != nil {
		t.Fatal(err)
	}
	if ttl <= 0 || ttl > time.Hour {
		t.Errorf("got ttl %v, want in (0, %v]", ttl, time.Hour)
	}

	// The value stays readable until the TTL fires.
	got, err := s.Get(ctx, "asset:stale")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "text/plain;old" {
		t.Errorf("got %q, want %q", got, "text/plain;old")
	}

	// Setting the key again discards the expiration.
	err = s.Set(ctx, "asset:stale", []byte("text/plain;new"))
	if err != nil {
		t.Fatal(err)
	}
	ttl, err = s.TTL(ctx, "asset:stale")
	if err != nil {
		t.Fatal(err)
	}
	if ttl != 0 {
		t.Errorf("got ttl %v, want 0", ttl)
	}

	if err = s.Expire(ctx, "asset:nope", time.Hour); !errors.Is(err, siteembed.ErrNotFound) {
		t.Errorf("got %v, want %v", err, siteembed.ErrNotFound)
	}
	if _, err = s.TTL(ctx, "asset:nope"); !errors.Is(err, siteembed.ErrNotFound) {
		t.Errorf("got %v, want %v", err, siteembed.ErrNotFound)
	}
}

// PubSub exercises the Publisher and Subscriber contracts on s.
// Messages published on a channel arrive,
// in order,
// at a subscription opened beforehand.
func PubSub(ctx context.Context, t *testing.T, s siteembed.Store) {
	pub, ok := s.(siteembed.Publisher)
	if !ok {
		t.Fatal("store is not a Publisher")
	}
	subber, ok := s.(siteembed.Subscriber)
	if !ok {
		t.Fatal("store is not a Subscriber")
	}

	sub, err := subber.Subscribe(ctx, "invalidations")
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	const n = 3
	for i := 0; i < n; i++ {
		if err := pub.Publish(ctx, "invalidations", fmt.Sprintf("key%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	for i := 0; i < n; i++ {
		select {
		case got := <-sub.C():
			if want := fmt.Sprintf("key%d", i); got != want {
				t.Errorf("got %q, want %q", got, want)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for message")
		}
	}
}

// QuickScan writes random sets of keys to s
// and makes sure that exactly the right set comes back from Scan.
// Each set goes under its own prefix,
// so s need not be empty.
func QuickScan(ctx context.Context, t *testing.T, s siteembed.Store) {
	var iter int
	f := func(suffixes []string) bool {
		iter++
		prefix := fmt.Sprintf("quick:%03d:", iter)

		want := make(map[string]bool)
		for _, suffix := range suffixes {
			// Hex keeps the key printable
			// whatever bytes quick generates.
			key := prefix + hex.EncodeToString([]byte(suffix))
			if err := s.Set(ctx, key, []byte(suffix)); err != nil {
				t.Fatal(err)
			}
			want[key] = true
		}

		got := make(map[string]bool)
		err := s.Scan(ctx, prefix, func(key string) error {
			got[key] = true
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}

		return cmp.Equal(got, want)
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 20}); err != nil {
		t.Error(err)
	}
}
