// Package redis implements a key-value store backed by a Redis server.
// It is the only backend whose keyspace can be shared with other processes;
// expirations are enforced by the server itself
// and channel messages fan out to every connected subscriber.
package redis

import (
	"context"
	stderrs "errors"
	"net/url"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"

	"siteembed"
	"siteembed/store"
)

var (
	_ siteembed.Store      = &Store{}
	_ siteembed.Publisher  = &Store{}
	_ siteembed.Subscriber = &Store{}
)

// Store is a Redis-based implementation of a key-value store.
type Store struct {
	client *goredis.Client
}

// New produces a new Store using the given client.
func New(client *goredis.Client) *Store {
	return &Store{client: client}
}

// Open produces a new Store connected to the server named by a
// redis:// or rediss:// URL.
func Open(rawurl string) (*Store, error) {
	opts, err := goredis.ParseURL(rawurl)
	if err != nil {
		return nil, errors.Wrap(err, "parsing url")
	}
	return New(goredis.NewClient(opts)), nil
}

// Close releases the store's connections.
func (s *Store) Close() error {
	return s.client.Close()
}

// Get gets the value stored under the given key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if stderrs.Is(err, goredis.Nil) {
		return nil, siteembed.ErrNotFound
	}
	return val, errors.Wrapf(err, "getting %s", key)
}

// Set stores val under key with no expiration,
// discarding any expiration already set.
func (s *Store) Set(ctx context.Context, key string, val []byte) error {
	return errors.Wrapf(s.client.Set(ctx, key, val, 0).Err(), "setting %s", key)
}

// Scan calls f for each key with the given prefix.
// The order is the server's cursor order,
// which can deliver a key more than once.
func (s *Store) Scan(ctx context.Context, prefix string, f func(key string) error) error {
	iter := s.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := f(iter.Val()); err != nil {
			return err
		}
	}
	return errors.Wrap(iter.Err(), "scanning keys")
}

// Expire arranges for key to be removed after ttl.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	ok, err := s.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		return errors.Wrapf(err, "expiring %s", key)
	}
	if !ok {
		return siteembed.ErrNotFound
	}
	return nil
}

// TTL reports the remaining time to live of key.
func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := s.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, errors.Wrapf(err, "reading ttl of %s", key)
	}
	// The server reports "no such key" and "no expiration" out of band;
	// the client maps those onto -2ns and -1ns.
	switch d {
	case -2 * time.Nanosecond:
		return 0, siteembed.ErrNotFound
	case -1 * time.Nanosecond:
		return 0, nil
	}
	return d, nil
}

// Publish announces msg on the named channel.
func (s *Store) Publish(ctx context.Context, channel, msg string) error {
	return errors.Wrapf(s.client.Publish(ctx, channel, msg).Err(), "publishing on %s", channel)
}

// Subscribe subscribes to the named channel.
// It does not return until the server has confirmed the subscription,
// so a message published after Subscribe will be seen.
func (s *Store) Subscribe(ctx context.Context, channel string) (siteembed.Subscription, error) {
	pubsub := s.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, errors.Wrapf(err, "subscribing to %s", channel)
	}

	sub := &subscription{
		pubsub: pubsub,
		c:      make(chan string),
		done:   make(chan struct{}),
	}
	go sub.run()
	return sub, nil
}

type subscription struct {
	pubsub *goredis.PubSub
	c      chan string
	done   chan struct{}
}

func (sub *subscription) run() {
	defer close(sub.c)

	msgs := sub.pubsub.Channel()
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			select {
			case sub.c <- msg.Payload:
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
	return sub.pubsub.Close()
}

func init() {
	f := func(_ context.Context, u *url.URL) (siteembed.Store, error) {
		return Open(u.String())
	}
	store.Register("redis", f)
	store.Register("rediss", f)
}
