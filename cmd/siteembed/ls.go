package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/pkg/errors"
)

func (c maincmd) ls(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		prefix  = fs.String("prefix", "", "list only keys with this prefix")
		withTTL = fs.Bool("ttl", false, "also show each key's time to live")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	return c.s.Scan(ctx, *prefix, func(key string) error {
		if !*withTTL {
			fmt.Printf("%s\n", key)
			return nil
		}
		ttl, err := c.s.TTL(ctx, key)
		if err != nil {
			return errors.Wrapf(err, "getting ttl of %s", key)
		}
		if ttl == 0 {
			fmt.Printf("%s -\n", key)
			return nil
		}
		fmt.Printf("%s %s\n", key, ttl)
		return nil
	})
}
