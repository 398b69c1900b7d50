package main

import (
	"context"
	stderrs "errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"siteembed/shim"
)

func (c maincmd) serve(ctx context.Context, fs *flag.FlagSet, args []string) error {
	var (
		addr  = fs.String("addr", c.conf.ListenAddr, "listen address")
		base  = fs.String("base", c.conf.PublicBase, "externally visible base URL")
		cache = fs.Int("cache", c.conf.CacheSize, "max cached lookups (0 disables the cache)")
	)
	err := fs.Parse(args)
	if err != nil {
		return errors.Wrap(err, "parsing args")
	}

	if *base == "" {
		return errors.New("public base URL not set (use -base or PUBLIC_BASE)")
	}
	if c.sub == nil && *cache > 0 {
		log.Print("store cannot subscribe, disabling the lookup cache")
	}

	sh, err := shim.New(c.s, c.sub, *base, *cache)
	if err != nil {
		return errors.Wrap(err, "creating server")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", *addr)
	if err != nil {
		return errors.Wrapf(err, "listening on %s", *addr)
	}
	defer lis.Close()

	hs := &http.Server{Handler: sh}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := sh.Listen(ctx)
		if stderrs.Is(err, context.Canceled) {
			return nil
		}
		return errors.Wrap(err, "listening for invalidations")
	})
	g.Go(func() error {
		<-ctx.Done()
		return hs.Shutdown(context.Background())
	})
	g.Go(func() error {
		log.Printf("listening on %s", lis.Addr())
		err := hs.Serve(lis)
		if stderrs.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})

	return g.Wait()
}
