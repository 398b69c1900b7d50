// Package mem implements an in-memory key-value store.
package mem

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"siteembed"
	"siteembed/store"
)

var (
	_ siteembed.Store      = &Store{}
	_ siteembed.Publisher  = &Store{}
	_ siteembed.Subscriber = &Store{}
)

// Store is a memory-based implementation of a key-value store.
// Expirations are enforced lazily:
// an expired key is removed when next read or scanned.
// Publish is an in-process fan-out to this Store's own subscribers.
type Store struct {
	mu      sync.Mutex
	vals    map[string][]byte
	expires map[string]time.Time
	subs    map[string]map[chan string]struct{}
}

// New produces a new Store.
func New() *Store {
	return &Store{
		vals:    make(map[string][]byte),
		expires: make(map[string]time.Time),
		subs:    make(map[string]map[chan string]struct{}),
	}
}

// Get gets the value stored under the given key.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.live(key) {
		return nil, siteembed.ErrNotFound
	}
	return s.vals[key], nil
}

// Caller must obtain a lock.
// It removes key if its expiration has passed
// and reports whether the key remains.
func (s *Store) live(key string) bool {
	if _, ok := s.vals[key]; !ok {
		return false
	}
	if at, ok := s.expires[key]; ok && !at.After(time.Now()) {
		delete(s.vals, key)
		delete(s.expires, key)
		return false
	}
	return true
}

// Set stores val under key,
// discarding any expiration previously set.
func (s *Store) Set(_ context.Context, key string, val []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vals[key] = val
	delete(s.expires, key)
	return nil
}

// Scan calls f for each key with the given prefix, in lexicographic order.
func (s *Store) Scan(_ context.Context, prefix string, f func(key string) error) error {
	s.mu.Lock()
	keys := make([]string, 0, len(s.vals))
	for key := range s.vals {
		if strings.HasPrefix(key, prefix) && s.live(key) {
			keys = append(keys, key)
		}
	}
	s.mu.Unlock()

	sort.Strings(keys)
	for _, key := range keys {
		if err := f(key); err != nil {
			return err
		}
	}
	return nil
}

// Expire arranges for key to be removed after ttl.
func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.live(key) {
		return siteembed.ErrNotFound
	}
	s.expires[key] = time.Now().Add(ttl)
	return nil
}

// TTL reports the remaining time to live of key.
func (s *Store) TTL(_ context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.live(key) {
		return 0, siteembed.ErrNotFound
	}
	at, ok := s.expires[key]
	if !ok {
		return 0, nil
	}
	return time.Until(at), nil
}

// Publish delivers msg to every current subscriber of the named channel.
// A subscriber that has fallen subscriptionBuf messages behind misses msg.
func (s *Store) Publish(_ context.Context, channel, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.subs[channel] {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

const subscriptionBuf = 64

// Subscribe subscribes to the named channel.
func (s *Store) Subscribe(_ context.Context, channel string) (siteembed.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan string, subscriptionBuf)
	if s.subs[channel] == nil {
		s.subs[channel] = make(map[chan string]struct{})
	}
	s.subs[channel][ch] = struct{}{}

	return &subscription{s: s, channel: channel, ch: ch}, nil
}

type subscription struct {
	s       *Store
	channel string
	ch      chan string
}

func (sub *subscription) C() <-chan string { return sub.ch }

func (sub *subscription) Close() error {
	sub.s.mu.Lock()
	defer sub.s.mu.Unlock()

	if _, ok := sub.s.subs[sub.channel][sub.ch]; ok {
		delete(sub.s.subs[sub.channel], sub.ch)
		close(sub.ch)
	}
	return nil
}

func init() {
	store.Register("mem", func(context.Context, *url.URL) (siteembed.Store, error) {
		return New(), nil
	})
}
