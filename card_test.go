package siteembed

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCanonicalJSON(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: `{"b": 1, "a": 2}`, want: `{"a":2,"b":1}`},
		{in: "\t[1, 2, 3]\n", want: `[1,2,3]`},
		{in: `"x"`, want: `"x"`},
		{in: `{"nested": {"z": true, "a": null}}`, want: `{"nested":{"a":null,"z":true}}`},
		{
			in:   `{"title": "Hi", "cta": "Read more", "url": "https://example.com/post", "color": "#aabbcc"}`,
			want: `{"color":"#aabbcc","cta":"Read more","title":"Hi","url":"https://example.com/post"}`,
		},
		{in: `{"a": "b"} trailing`, wantErr: true},
		{in: `{"unterminated": `, wantErr: true},
		{in: ``, wantErr: true},
	}
	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%02d", i+1), func(t *testing.T) {
			got, err := CanonicalJSON([]byte(c.in))
			if c.wantErr {
				if err == nil {
					t.Fatalf("got %s, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != c.want {
				t.Errorf("got %s, want %s", got, c.want)
			}
		})
	}
}

func TestCanonicalJSONIdempotent(t *testing.T) {
	in := []byte(`{"url": "https://example.com", "title": "T", "cta": "C", "color": "#000000"}`)
	once, err := CanonicalJSON(in)
	if err != nil {
		t.Fatal(err)
	}
	twice, err := CanonicalJSON(once)
	if err != nil {
		t.Fatal(err)
	}
	if string(once) != string(twice) {
		t.Errorf("got %s, want %s", twice, once)
	}
}

func TestParseCard(t *testing.T) {
	got, err := ParseCard([]byte(`{"title":"Hi","cta":"Read more","url":"https://example.com","color":"#aabbcc","extra":true}`))
	if err != nil {
		t.Fatal(err)
	}
	want := &Card{
		Title: "Hi",
		CTA:   "Read more",
		URL:   "https://example.com",
		Color: "#aabbcc",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}

	if _, err = ParseCard([]byte(`{`)); err == nil {
		t.Error("got nil, want error")
	}
}
