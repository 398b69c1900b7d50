package siteembed

import (
	"encoding/json"

	canonicaljson "github.com/gibson042/canonicaljson-go"
	"github.com/pkg/errors"
)

// Card is the payload of a link card.
// The shim renders it as a link-unfurl embed
// for crawlers that ask for one,
// and as a redirect to URL for everyone else.
type Card struct {
	Title string `json:"title"`
	CTA   string `json:"cta"`
	URL   string `json:"url"`
	Color string `json:"color"`
}

// ParseCard decodes the store value of a card.
// Fields beyond the known ones are ignored.
func ParseCard(val []byte) (*Card, error) {
	var c Card
	if err := json.Unmarshal(val, &c); err != nil {
		return nil, errors.Wrap(err, "decoding card")
	}
	return &c, nil
}

// CanonicalJSON parses in as a single JSON value
// and re-serializes it to canonical form:
// object keys sorted,
// no insignificant whitespace,
// strings minimally escaped,
// numbers in canonical notation.
// Malformed input,
// or trailing data after the first value,
// is an error.
func CanonicalJSON(in []byte) ([]byte, error) {
	var v interface{}
	if err := json.Unmarshal(in, &v); err != nil {
		return nil, errors.Wrap(err, "parsing")
	}
	out, err := canonicaljson.Marshal(v)
	return out, errors.Wrap(err, "reserializing")
}
