package mirror

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"siteembed"
	"siteembed/store/mem"
)

func TestAssets(t *testing.T) {
	ctx := context.Background()
	m := mem.New()

	// A remote key left over from some earlier run, with no local backing.
	if err := m.Set(ctx, "asset:stale", []byte("text/plain;old")); err != nil {
		t.Fatal(err)
	}

	sub, err := m.Subscribe(ctx, siteembed.InvalidationsChannel)
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Close()

	root := t.TempDir()
	writeFile(t, root, "a.css", "body { margin: 0 }")
	writeFile(t, root, "sub/index.html", "<p>hello</p>")

	s := &Syncer{Store: m, Pub: m}
	if err = s.Assets(ctx, root); err != nil {
		t.Fatal(err)
	}

	cases := []struct{ key, want string }{
		{key: "asset:a.css", want: "text/css;body { margin: 0 }"},
		{key: "asset:sub", want: "text/html;<p>hello</p>"},
	}
	for _, c := range cases {
		got, err := m.Get(ctx, c.key)
		if err != nil {
			t.Fatalf("%s: %s", c.key, err)
		}
		if string(got) != c.want {
			t.Errorf("%s: got %q, want %q", c.key, got, c.want)
		}
		ttl, err := m.TTL(ctx, c.key)
		if err != nil {
			t.Fatal(err)
		}
		if ttl != 0 {
			t.Errorf("%s: got ttl %v, want 0", c.key, ttl)
		}
	}

	// The unbacked key keeps its value but acquires an expiration.
	got, err := m.Get(ctx, "asset:stale")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "text/plain;old" {
		t.Errorf("got %q, want %q", got, "text/plain;old")
	}
	ttl, err := m.TTL(ctx, "asset:stale")
	if err != nil {
		t.Fatal(err)
	}
	if ttl <= 0 || ttl > siteembed.StaleTTL {
		t.Errorf("got ttl %v, want in (0, %v]", ttl, siteembed.StaleTTL)
	}

	// One invalidation per uploaded item, in walk order.
	for _, want := range []string{"a.css", "sub"} {
		select {
		case got := <-sub.C():
			if got != want {
				t.Errorf("got %q, want %q", got, want)
			}
		default:
			t.Fatalf("missing invalidation for %q", want)
		}
	}
	select {
	case extra := <-sub.C():
		t.Errorf("unexpected invalidation %q", extra)
	default:
	}
}

func TestAssetsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := mem.New()

	root := t.TempDir()
	writeFile(t, root, "index.html", "<p>home</p>")
	writeFile(t, root, "notes.txt", "plain text")

	s := &Syncer{Store: m, Pub: m}
	for i := 0; i < 2; i++ {
		if err := s.Assets(ctx, root); err != nil {
			t.Fatal(err)
		}
	}

	want := map[string]string{
		"asset:":          "text/html;<p>home</p>",
		"asset:notes.txt": "text/plain;plain text",
	}
	got := make(map[string]string)
	err := m.Scan(ctx, siteembed.AssetNamespace, func(key string) error {
		val, err := m.Get(ctx, key)
		if err != nil {
			return err
		}
		got[key] = string(val)

		// Nothing went missing, so nothing should be expiring.
		ttl, err := m.TTL(ctx, key)
		if err != nil {
			return err
		}
		if ttl != 0 {
			t.Errorf("%s: got ttl %v, want 0", key, ttl)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestAssetsRemoval(t *testing.T) {
	ctx := context.Background()
	m := mem.New()

	root := t.TempDir()
	writeFile(t, root, "a.css", "body { margin: 0 }")
	writeFile(t, root, "b.css", "p { color: blue }")

	s := &Syncer{Store: m, TTL: time.Minute}
	if err := s.Assets(ctx, root); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(root, "b.css")); err != nil {
		t.Fatal(err)
	}
	if err := s.Assets(ctx, root); err != nil {
		t.Fatal(err)
	}

	// The removed file's key is expiring but its value is untouched.
	got, err := m.Get(ctx, "asset:b.css")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "text/css;p { color: blue }" {
		t.Errorf("got %q, want %q", got, "text/css;p { color: blue }")
	}
	ttl, err := m.TTL(ctx, "asset:b.css")
	if err != nil {
		t.Fatal(err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("got ttl %v, want in (0, %v]", ttl, time.Minute)
	}

	// The surviving key is not expiring.
	ttl, err = m.TTL(ctx, "asset:a.css")
	if err != nil {
		t.Fatal(err)
	}
	if ttl != 0 {
		t.Errorf("got ttl %v, want 0", ttl)
	}
}

func TestCards(t *testing.T) {
	ctx := context.Background()
	m := mem.New()

	root := t.TempDir()
	writeFile(t, root, "foo/bar.json", `{"url": "https://example.com", "title": "Bar", "cta": "Read", "color": "#fff"}`)
	writeFile(t, root, "promo.json", `{"b": 1, "a": 2}`)

	s := &Syncer{Store: m, Pub: m}
	if err := s.Cards(ctx, root); err != nil {
		t.Fatal(err)
	}

	cases := []struct{ key, want string }{
		{key: "card:bar", want: `{"color":"#fff","cta":"Read","title":"Bar","url":"https://example.com"}`},
		{key: "card:promo", want: `{"a":2,"b":1}`},
	}
	for _, c := range cases {
		got, err := m.Get(ctx, c.key)
		if err != nil {
			t.Fatalf("%s: %s", c.key, err)
		}
		if string(got) != c.want {
			t.Errorf("%s: got %s, want %s", c.key, got, c.want)
		}
	}
}

func TestCardsCollision(t *testing.T) {
	ctx := context.Background()
	m := mem.New()

	// Two files with the same stem; the one walked later wins.
	root := t.TempDir()
	writeFile(t, root, "a/promo.json", `{"v": 1}`)
	writeFile(t, root, "b/promo.json", `{"v": 2}`)

	s := &Syncer{Store: m}
	if err := s.Cards(ctx, root); err != nil {
		t.Fatal(err)
	}

	got, err := m.Get(ctx, "card:promo")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `{"v":2}` {
		t.Errorf("got %s, want %s", got, `{"v":2}`)
	}
}

func TestCardsMalformed(t *testing.T) {
	ctx := context.Background()
	m := mem.New()

	root := t.TempDir()
	writeFile(t, root, "bad.json", `{"unterminated": `)

	s := &Syncer{Store: m}
	if err := s.Cards(ctx, root); err == nil {
		t.Fatal("got nil, want error")
	}
}
