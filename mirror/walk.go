// Package mirror syncs local directory trees into a key-value store.
package mirror

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Walk calls f for each file under root,
// passing the file's path relative to root,
// slash-separated.
// Directories are recursed into,
// unbounded by depth,
// and are not themselves reported.
// Anything that is not a directory counts as a file.
// Entries arrive in sorted order, one directory at a time.
// If f returns an error, Walk exits with that error.
func Walk(root string, f func(rel string) error) error {
	return walk(root, "", f)
}

func walk(dir, rel string, f func(string) error) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return errors.Wrapf(err, "reading dir %s", dir)
	}
	for _, entry := range entries {
		erel := entry.Name()
		if rel != "" {
			erel = rel + "/" + erel
		}
		if entry.IsDir() {
			if err := walk(filepath.Join(dir, entry.Name()), erel, f); err != nil {
				return err
			}
			continue
		}
		if err := f(erel); err != nil {
			return err
		}
	}
	return nil
}
