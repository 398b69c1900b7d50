package siteembed

import (
	"context"
	"errors"
	"time"
)

// Getter is a read-only Store (qv).
type Getter interface {
	// Get gets the value stored under the given key.
	// If the key is absent, the error is ErrNotFound.
	Get(context.Context, string) ([]byte, error)

	// Scan calls a function for each key in the store
	// that begins with the given prefix.
	//
	// The calls reflect at least the set of keys
	// known at the moment Scan was called.
	// Keys may arrive in any order,
	// and a backend is allowed to deliver a key more than once.
	//
	// If the callback function returns an error,
	// Scan exits with that error.
	Scan(context.Context, string, func(key string) error) error

	// TTL reports the remaining time to live of the given key.
	// A key with no expiration set reports zero.
	// If the key is absent, the error is ErrNotFound.
	TTL(context.Context, string) (time.Duration, error)
}

// Store is a key-value store.
// It stores byte sequences of arbitrary length
// under caller-chosen string keys.
// Keys persist until expired with Expire;
// nothing else removes them.
type Store interface {
	Getter

	// Set stores val under key,
	// creating the key if necessary
	// and overwriting any previous value.
	// Any expiration previously set on the key is discarded.
	Set(ctx context.Context, key string, val []byte) error

	// Expire arranges for the given key to be deleted
	// after the given duration.
	// Until then the value remains readable.
	// Expiring the same key again replaces the pending deadline.
	// If the key is absent, the error is ErrNotFound.
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Publisher is a Store that can announce messages on named channels.
// Delivery is best-effort fan-out to current subscribers;
// nothing is stored.
type Publisher interface {
	Publish(ctx context.Context, channel, msg string) error
}

// Subscriber is a Store whose channel announcements can be listened to.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Subscription is a live subscription to one channel.
type Subscription interface {
	// C is the channel on which messages arrive.
	// It closes when the subscription does.
	C() <-chan string

	// Close ends the subscription and releases its resources.
	Close() error
}

// ErrNotFound is the error returned
// when a Getter tries to access a non-existent key.
var ErrNotFound = errors.New("not found")
