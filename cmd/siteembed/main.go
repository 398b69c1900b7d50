// Command siteembed mirrors a website's source tree into a key-value store
// and serves the mirrored content over HTTP.
package main

import (
	"context"
	"flag"
	"io"
	"log"

	"github.com/bobg/subcmd"
	"github.com/caarlos0/env/v11"

	"siteembed"
	"siteembed/store"
	"siteembed/store/logging"
	_ "siteembed/store/mem"
	_ "siteembed/store/pg"
	_ "siteembed/store/redis"
	_ "siteembed/store/sqlite3"
)

type config struct {
	StoreURL   string `env:"STORE_URL"`
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	PublicBase string `env:"PUBLIC_BASE"`
	CacheSize  int    `env:"CACHE_SIZE" envDefault:"1024"`
}

type maincmd struct {
	s    siteembed.Store
	pub  siteembed.Publisher
	sub  siteembed.Subscriber
	conf config
}

func main() {
	var (
		storeURL = flag.String("store", "", "store URL (default: $STORE_URL)")
		debug    = flag.Bool("debug", false, "log each store operation")
	)
	flag.Parse()

	var conf config
	err := env.Parse(&conf)
	if err != nil {
		log.Fatalf("Parsing environment: %s", err)
	}
	if *storeURL != "" {
		conf.StoreURL = *storeURL
	}
	if conf.StoreURL == "" {
		log.Fatal("Store URL not set (use -store or STORE_URL)")
	}

	ctx := context.Background()

	s, err := store.Create(ctx, conf.StoreURL)
	if err != nil {
		log.Fatalf("Creating store from %s: %s", conf.StoreURL, err)
	}

	c := maincmd{s: s, conf: conf}
	c.pub, _ = s.(siteembed.Publisher)
	c.sub, _ = s.(siteembed.Subscriber)
	if *debug {
		c.s = logging.New(s)
	}

	err = subcmd.Run(ctx, c, flag.Args())
	if cl, ok := s.(io.Closer); ok {
		cl.Close()
	}
	if err != nil {
		log.Fatal(err)
	}
}

func (c maincmd) Subcmds() map[string]subcmd.Subcmd {
	return map[string]subcmd.Subcmd{
		"sync-assets": c.syncAssets,
		"sync-cards":  c.syncCards,
		"ls":          c.ls,
		"get":         c.get,
		"serve":       c.serve,
	}
}
