package siteembed

import (
	"bytes"
	"errors"
	"path"
	"strings"
)

// MimeForPath returns the mimetype recorded for the file at the given path,
// chosen by file extension from a small fixed table.
// Unrecognized extensions,
// including none at all,
// get text/plain.
func MimeForPath(p string) string {
	switch strings.TrimPrefix(path.Ext(p), ".") {
	case "html":
		return "text/html"
	case "css":
		return "text/css"
	case "js":
		return "application/javascript"
	case "svg":
		return "image/svg+xml"
	case "ico":
		return "image/vnd.microsoft.icon"
	case "woff2":
		return "font/woff2"
	case "png":
		return "image/png"
	}
	return "text/plain"
}

// EncodeAsset builds the store value for an asset:
// its mimetype, a semicolon, and the raw file bytes.
func EncodeAsset(mime string, body []byte) []byte {
	val := make([]byte, 0, len(mime)+1+len(body))
	val = append(val, mime...)
	val = append(val, ';')
	return append(val, body...)
}

// ErrNoSeparator is the error returned by DecodeAsset
// when a value contains no mimetype separator.
var ErrNoSeparator = errors.New("no mimetype separator")

// DecodeAsset splits an asset value into its mimetype and body.
// The returned body aliases val.
func DecodeAsset(val []byte) (mime string, body []byte, err error) {
	m, b, ok := bytes.Cut(val, []byte{';'})
	if !ok {
		return "", nil, ErrNoSeparator
	}
	return string(m), b, nil
}
