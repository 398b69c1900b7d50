package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"siteembed"
	"siteembed/store"
	"siteembed/store/testutil"
)

func TestStore(t *testing.T) {
	m := miniredis.RunT(t)
	s, err := Open("redis://" + m.Addr())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	testutil.KV(context.Background(), t, s)
}

func TestPubSub(t *testing.T) {
	m := miniredis.RunT(t)
	s, err := Open("redis://" + m.Addr())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	testutil.PubSub(context.Background(), t, s)
}

func TestQuickScan(t *testing.T) {
	m := miniredis.RunT(t)
	s, err := Open("redis://" + m.Addr())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	testutil.QuickScan(context.Background(), t, s)
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	m := miniredis.RunT(t)
	s, err := Open("redis://" + m.Addr())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err = s.Set(ctx, "asset:stale", []byte("text/plain;x")); err != nil {
		t.Fatal(err)
	}
	if err = s.Expire(ctx, "asset:stale", time.Minute); err != nil {
		t.Fatal(err)
	}
	m.FastForward(2 * time.Minute)

	if _, err = s.Get(ctx, "asset:stale"); !errors.Is(err, siteembed.ErrNotFound) {
		t.Errorf("got %v, want %v", err, siteembed.ErrNotFound)
	}
}

func TestRegistry(t *testing.T) {
	m := miniredis.RunT(t)
	s, err := store.Create(context.Background(), "redis://"+m.Addr())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*Store); !ok {
		t.Errorf("got %T, want *redis.Store", s)
	}
}
