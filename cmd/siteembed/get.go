package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/pkg/errors"

	"siteembed"
)

func (c maincmd) get(ctx context.Context, fs *flag.FlagSet, args []string) error {
	raw := fs.Bool("raw", false, "write the stored value verbatim (asset mimetype prefix included)")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	args = fs.Args()
	if len(args) == 0 {
		return errors.New("missing key")
	}
	key := args[0]

	val, err := c.s.Get(ctx, key)
	if err != nil {
		return errors.Wrapf(err, "getting %s", key)
	}

	if !*raw && strings.HasPrefix(key, siteembed.AssetNamespace) {
		_, body, err := siteembed.DecodeAsset(val)
		if err != nil {
			return errors.Wrapf(err, "decoding %s", key)
		}
		val = body
	}

	_, err = os.Stdout.Write(val)
	return errors.Wrap(err, "writing value to stdout")
}
