package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/pkg/errors"

	"siteembed"
	"siteembed/mirror"
)

func (c maincmd) syncAssets(ctx context.Context, fs *flag.FlagSet, args []string) error {
	ttl := fs.Duration("ttl", siteembed.StaleTTL, "time to live for keys whose file is gone")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	args = fs.Args()
	if len(args) == 0 {
		return errors.New("missing directory")
	}

	return c.syncer(*ttl).Assets(ctx, args[0])
}

func (c maincmd) syncCards(ctx context.Context, fs *flag.FlagSet, args []string) error {
	ttl := fs.Duration("ttl", siteembed.StaleTTL, "time to live for keys whose file is gone")
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	args = fs.Args()
	if len(args) == 0 {
		return errors.New("missing directory")
	}

	return c.syncer(*ttl).Cards(ctx, args[0])
}

func (c maincmd) syncer(ttl time.Duration) *mirror.Syncer {
	if c.pub == nil {
		log.Print("store cannot publish, skipping invalidation notices")
	}
	return &mirror.Syncer{Store: c.s, Pub: c.pub, TTL: ttl}
}
