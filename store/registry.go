// Package store maintains a registry of key-value store backends,
// so that a store can be constructed from a URL alone.
package store

import (
	"context"
	"fmt"
	"net/url"

	"siteembed"
)

// Factory is a function that can create a store from a URL.
type Factory func(context.Context, *url.URL) (siteembed.Store, error)

var registry = make(map[string]Factory)

// Register associates a URL scheme with a Factory.
// Backend packages call this from their init functions;
// blank-import a backend to make its scheme available.
func Register(scheme string, f Factory) {
	registry[scheme] = f
}

// Create creates a store from the given URL,
// dispatching on its scheme.
func Create(ctx context.Context, rawurl string) (siteembed.Store, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, err
	}
	f, ok := registry[u.Scheme]
	if !ok {
		return nil, fmt.Errorf("scheme %s not found in registry", u.Scheme)
	}
	return f(ctx, u)
}
