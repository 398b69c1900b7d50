package store

import (
	"fmt"
	"testing"
)

func TestPrefixRange(t *testing.T) {
	cases := []struct {
		prefix string
		lo, hi string
	}{
		{prefix: "asset:", lo: "asset:", hi: "asset;"},
		{prefix: "card:", lo: "card:", hi: "card;"},
		{prefix: "", lo: "", hi: ""},
		{prefix: "a\xff", lo: "a\xff", hi: "b"},
		{prefix: "\xff\xff", lo: "\xff\xff", hi: ""},
	}
	for i, c := range cases {
		t.Run(fmt.Sprintf("case_%02d", i+1), func(t *testing.T) {
			lo, hi := PrefixRange(c.prefix)
			if lo != c.lo || hi != c.hi {
				t.Errorf("got (%q, %q), want (%q, %q)", lo, hi, c.lo, c.hi)
			}
		})
	}
}
