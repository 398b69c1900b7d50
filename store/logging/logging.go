// Package logging implements a store that delegates everything to a nested store,
// logging operations as they happen.
package logging

import (
	"context"
	"log"
	"time"

	"siteembed"
)

var _ siteembed.Store = &Store{}

type Store struct {
	s siteembed.Store
}

func New(s siteembed.Store) *Store {
	return &Store{s: s}
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.s.Get(ctx, key)
	if err != nil {
		log.Printf("ERROR Get %s: %s", key, err)
	} else {
		log.Printf("Get %s, %d bytes", key, len(val))
	}
	return val, err
}

func (s *Store) Set(ctx context.Context, key string, val []byte) error {
	err := s.s.Set(ctx, key, val)
	if err != nil {
		log.Printf("ERROR Set %s: %s", key, err)
	} else {
		log.Printf("Set %s, %d bytes", key, len(val))
	}
	return err
}

func (s *Store) Scan(ctx context.Context, prefix string, f func(string) error) error {
	log.Printf("Scan, prefix=%s", prefix)
	return s.s.Scan(ctx, prefix, func(key string) error {
		err := f(key)
		if err != nil {
			log.Printf("  ERROR in Scan: %s: %s", key, err)
		} else {
			log.Printf("  Scan: %s", key)
		}
		return err
	})
}

func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	err := s.s.Expire(ctx, key, ttl)
	if err != nil {
		log.Printf("ERROR Expire %s: %s", key, err)
	} else {
		log.Printf("Expire %s, ttl=%s", key, ttl)
	}
	return err
}

func (s *Store) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.s.TTL(ctx, key)
	if err != nil {
		log.Printf("ERROR TTL %s: %s", key, err)
	} else {
		log.Printf("TTL %s: %s", key, ttl)
	}
	return ttl, err
}
