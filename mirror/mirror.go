package mirror

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"siteembed"
)

// An Item pairs a logical key with the path of the local file backing it.
type Item struct {
	Key  string
	Path string
}

// A Syncer mirrors local directory trees into a key-value store.
//
// A sync is one sequential pass:
// enumerate local files,
// enumerate the remote namespace,
// upload every local file under its logical key,
// then give a grace-period expiration to each remote key
// no longer backed by a local file.
// There are no retries;
// the first error aborts the run,
// leaving earlier writes in place.
// Reruns converge,
// so a partially-completed run is safe.
type Syncer struct {
	Store siteembed.Store

	// Pub, if non-nil, announces the logical key
	// of every created or updated item
	// on the invalidations channel.
	Pub siteembed.Publisher

	// TTL is the expiration given to keys that have lost their backing file.
	// Zero means siteembed.StaleTTL.
	TTL time.Duration
}

// Assets mirrors the files under root into the asset namespace.
// Each value is the file's mimetype
// (chosen by extension)
// joined to its raw bytes.
func (s *Syncer) Assets(ctx context.Context, root string) error {
	items, err := localItems(root, siteembed.AssetLogicalKey)
	if err != nil {
		return err
	}
	remote, err := s.remoteKeys(ctx, siteembed.AssetNamespace)
	if err != nil {
		return err
	}

	for _, item := range items {
		delete(remote, item.Key)

		body, err := os.ReadFile(item.Path)
		if err != nil {
			return errors.Wrapf(err, "reading %s", item.Path)
		}
		key := siteembed.AssetKey(item.Key)
		val := siteembed.EncodeAsset(siteembed.MimeForPath(item.Path), body)
		if err = s.Store.Set(ctx, key, val); err != nil {
			return err
		}
		if err = s.publish(ctx, item.Key); err != nil {
			return err
		}
		log.Printf("uploaded %s to %s", item.Path, key)
	}

	return s.expire(ctx, siteembed.AssetNamespace, remote)
}

// Cards mirrors the files under root into the card namespace.
// Each file must hold a single JSON value,
// which is re-serialized to canonical text;
// a malformed file fails the run.
func (s *Syncer) Cards(ctx context.Context, root string) error {
	items, err := localItems(root, siteembed.CardLogicalKey)
	if err != nil {
		return err
	}
	remote, err := s.remoteKeys(ctx, siteembed.CardNamespace)
	if err != nil {
		return err
	}

	for _, item := range items {
		delete(remote, item.Key)

		body, err := os.ReadFile(item.Path)
		if err != nil {
			return errors.Wrapf(err, "reading %s", item.Path)
		}
		val, err := siteembed.CanonicalJSON(body)
		if err != nil {
			return errors.Wrapf(err, "parsing %s", item.Path)
		}
		if err = s.Store.Set(ctx, siteembed.CardKey(item.Key), val); err != nil {
			return err
		}
		if err = s.publish(ctx, item.Key); err != nil {
			return err
		}
		log.Printf("updated card %s from %s", item.Key, item.Path)
	}

	return s.expire(ctx, siteembed.CardNamespace, remote)
}

// localItems enumerates the files under root,
// deriving each one's logical key.
// Keys are not necessarily unique;
// when two files share one, the later upload wins.
func localItems(root string, logicalKey func(string) string) ([]Item, error) {
	var items []Item
	err := Walk(root, func(rel string) error {
		items = append(items, Item{
			Key:  logicalKey(rel),
			Path: filepath.Join(root, rel),
		})
		return nil
	})
	return items, err
}

// remoteKeys returns the logical keys currently stored under the given namespace.
func (s *Syncer) remoteKeys(ctx context.Context, ns string) (map[string]bool, error) {
	keys := make(map[string]bool)
	err := s.Store.Scan(ctx, ns, func(key string) error {
		keys[strings.TrimPrefix(key, ns)] = true
		return nil
	})
	return keys, errors.Wrap(err, "listing remote keys")
}

// expire puts a grace-period TTL on every key in gone,
// leaving the values readable until it fires.
func (s *Syncer) expire(ctx context.Context, ns string, gone map[string]bool) error {
	ttl := s.TTL
	if ttl == 0 {
		ttl = siteembed.StaleTTL
	}

	keys := make([]string, 0, len(gone))
	for key := range gone {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		nskey := ns + key
		if err := s.Store.Expire(ctx, nskey, ttl); err != nil {
			return err
		}
		log.Printf("expired %s", nskey)
	}
	return nil
}

func (s *Syncer) publish(ctx context.Context, logical string) error {
	if s.Pub == nil {
		return nil
	}
	err := s.Pub.Publish(ctx, siteembed.InvalidationsChannel, logical)
	return errors.Wrapf(err, "publishing invalidation for %s", logical)
}
