// Package shim serves mirrored site content over HTTP.
//
// Requests are answered straight from the key-value store:
// a path naming an asset gets the asset's bytes under its stored mimetype,
// and a path naming a card gets either a link-unfurl embed page
// (when the requester is an unfurling crawler)
// or a permanent redirect to the card's URL.
// Lookups pass through an in-memory cache
// that is invalidated by the notification channel the mirror publishes on,
// so a freshly synced file is served promptly.
package shim

import (
	"context"
	"encoding/json"
	stderrs "errors"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"siteembed"
)

var _ http.Handler = &Server{}

// Server answers HTTP requests from a key-value store
// populated by the mirror.
type Server struct {
	store      siteembed.Getter
	sub        siteembed.Subscriber
	cache      *lru.Cache
	publicBase string
	mux        *http.ServeMux
}

// New produces a new Server serving content from g.
//
// publicBase is the server's own externally visible base URL,
// used to build the oembed link inside embed pages.
//
// sub, which may be nil, receives invalidation notices for g's keys.
// When it is present,
// lookups are cached in an LRU of cacheSize entries
// (including negative entries for paths with no content),
// and Listen must be run to keep the cache honest.
// Without it the cache is disabled entirely:
// an uninvalidated cache would serve stale content forever.
func New(g siteembed.Getter, sub siteembed.Subscriber, publicBase string, cacheSize int) (*Server, error) {
	s := &Server{
		store:      g,
		publicBase: strings.TrimSuffix(publicBase, "/"),
	}

	if sub != nil && cacheSize > 0 {
		cache, err := lru.New(cacheSize)
		if err != nil {
			return nil, errors.Wrap(err, "creating cache")
		}
		s.sub = sub
		s.cache = cache
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/_/oembed.json", s.oembed)
	mux.HandleFunc("/", s.content)
	s.mux = mux

	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Listen drops cache entries named on the invalidations channel,
// returning when ctx ends or the subscription fails.
// On a Server whose cache is disabled it returns immediately.
func (s *Server) Listen(ctx context.Context) error {
	if s.sub == nil {
		return nil
	}

	sub, err := s.sub.Subscribe(ctx, siteembed.InvalidationsChannel)
	if err != nil {
		return err
	}
	defer sub.Close()

	for {
		select {
		case key, ok := <-sub.C():
			if !ok {
				return errors.New("invalidations subscription closed")
			}
			s.cache.Remove(key)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// An entry is one cached lookup result.
// A nil *entry records that the path has no content.
// A non-nil card means the entry is a card;
// otherwise it is an asset.
type entry struct {
	mime string
	body []byte
	card *siteembed.Card
}

func (s *Server) content(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(r.URL.Path, "/")

	e, status, err := s.lookup(r.Context(), path)
	if err != nil {
		log.Printf("ERROR serving /%s: %s", path, err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("X-Cache-Status", status)
	switch {
	case e == nil:
		http.Error(w, "not found", http.StatusNotFound)
	case e.card != nil:
		s.card(w, r, e.card)
	default:
		w.Header().Set("Content-Type", e.mime)
		w.Write(e.body)
	}
}

func (s *Server) lookup(ctx context.Context, path string) (*entry, string, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(path); ok {
			e, _ := v.(*entry)
			return e, "hit", nil
		}
	}

	e, err := s.load(ctx, path)
	if err != nil {
		return nil, "", err
	}
	if s.cache != nil {
		s.cache.Add(path, e)
	}
	return e, "miss", nil
}

// load resolves path against the store:
// first as an asset, then as a card.
// A path with neither yields (nil, nil).
func (s *Server) load(ctx context.Context, path string) (*entry, error) {
	val, err := s.store.Get(ctx, siteembed.AssetKey(path))
	if err == nil {
		mime, body, err := siteembed.DecodeAsset(val)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding asset %s", path)
		}
		return &entry{mime: mime, body: body}, nil
	}
	if !stderrs.Is(err, siteembed.ErrNotFound) {
		return nil, errors.Wrapf(err, "getting asset %s", path)
	}

	val, err = s.store.Get(ctx, siteembed.CardKey(path))
	if stderrs.Is(err, siteembed.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "getting card %s", path)
	}
	card, err := siteembed.ParseCard(val)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding card %s", path)
	}
	return &entry{card: card}, nil
}

var embedTmpl = template.Must(template.New("embed").Parse(`<!doctype html>
<html>
    <head>
        <link rel="alternate" type="application/json+oembed" href="{{.OEmbedURL}}"/>
        <meta name="theme-color" content="{{.Color}}">
        <script>location.href = {{.URL}}</script>
    </head>
    <body>
        <noscript>Please navigate to <a href="{{.URL}}">{{.URL}}</a></noscript>
    </body>
</html>
<!-- hi from siteembed -->`))

type embedData struct {
	OEmbedURL string
	Color     string
	URL       string
}

// card answers a request for a card:
// an embed page for unfurling crawlers,
// a permanent redirect to the card's URL for everyone else.
func (s *Server) card(w http.ResponseWriter, r *http.Request, card *siteembed.Card) {
	if !strings.Contains(r.Header.Get("User-Agent"), "Discordbot") {
		http.Redirect(w, r, card.URL, http.StatusPermanentRedirect)
		return
	}

	qs := url.Values{
		"provider_name": {card.CTA},
		"provider_url":  {card.URL},
		"author_name":   {card.Title},
		"author_url":    {card.URL},
	}
	w.Header().Set("Content-Type", "text/html")
	err := embedTmpl.Execute(w, embedData{
		OEmbedURL: s.publicBase + "/_/oembed.json?" + qs.Encode(),
		Color:     card.Color,
		URL:       card.URL,
	})
	if err != nil {
		log.Printf("ERROR rendering embed for %s: %s", r.URL.Path, err)
	}
}

type oembedResponse struct {
	ProviderName string `json:"provider_name"`
	ProviderURL  string `json:"provider_url"`
	AuthorName   string `json:"author_name"`
	AuthorURL    string `json:"author_url"`
}

// oembed echoes the query parameters that the embed page put there,
// in the shape unfurling crawlers expect.
func (s *Server) oembed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp := oembedResponse{
		ProviderName: q.Get("provider_name"),
		ProviderURL:  q.Get("provider_url"),
		AuthorName:   q.Get("author_name"),
		AuthorURL:    q.Get("author_url"),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("ERROR encoding oembed response: %s", err)
	}
}
