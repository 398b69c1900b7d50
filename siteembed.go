package siteembed

import (
	"path"
	"strings"
	"time"
)

const (
	// AssetNamespace is the store-key prefix for mirrored site assets.
	AssetNamespace = "asset:"

	// CardNamespace is the store-key prefix for link cards.
	CardNamespace = "card:"
)

// InvalidationsChannel is the notification channel
// on which the logical key of every created or updated item is published.
const InvalidationsChannel = "invalidations"

// StaleTTL is the expiration given to a key
// whose backing local file has disappeared.
// The value stays readable until the TTL fires.
const StaleTTL = 24 * time.Hour

// AssetKey returns the store key for the asset with the given logical key.
func AssetKey(logical string) string {
	return AssetNamespace + logical
}

// CardKey returns the store key for the card with the given logical key.
func CardKey(logical string) string {
	return CardNamespace + logical
}

// AssetLogicalKey maps an asset file's path,
// relative to the mirror root and slash-separated,
// to its logical key.
// Most files map to their own relative path.
// A file named index.html stands for its containing directory
// and maps to the directory's path;
// an index.html at the root maps to the empty string.
func AssetLogicalKey(rel string) string {
	if path.Base(rel) != "index.html" {
		return rel
	}
	if dir := path.Dir(rel); dir != "." {
		return dir
	}
	return ""
}

// CardLogicalKey maps a card file's path,
// relative to the mirror root and slash-separated,
// to its logical key:
// the file's base name,
// truncated at the first dot.
// Directory structure does not contribute,
// so files with the same stem in different directories collide,
// and the one synced later wins.
func CardLogicalKey(rel string) string {
	stem, _, _ := strings.Cut(path.Base(rel), ".")
	return stem
}
