// Package siteembed mirrors a directory tree of website content
// into a key-value store
// and serves it back out over HTTP.
//
// Content comes in two flavors.
// An _asset_ is a plain file:
// a page, a stylesheet, an image.
// Assets live under the "asset:" key namespace,
// with the value holding the file's mimetype and raw bytes.
// A _card_ is a small JSON document
// describing an offsite link:
// a title, a call to action, a destination URL, and a theme color.
// Cards live under the "card:" namespace
// as canonical JSON text.
//
// Keys are _logical_:
// derived from a file's path relative to the mirror root,
// not from its content.
// Syncing the same tree twice is therefore idempotent.
// A key whose backing file disappears is not deleted;
// it is given a grace-period expiration instead,
// so in-flight readers are not cut off.
//
// Every created or updated key is announced
// on a fixed notification channel,
// so downstream caches
// (such as the serving shim in the shim subpackage)
// can drop stale entries promptly.
//
// This package defines the key-value store interface;
// the store subpackage holds the backend registry
// and the backends that implement it.
// The mirror subpackage walks a local tree
// and drives it into a store.
// The shim subpackage serves the mirrored content,
// rendering link-unfurl embeds for cards.
package siteembed
