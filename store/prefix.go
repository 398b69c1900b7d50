package store

// PrefixRange returns the key range [lo, hi)
// containing exactly the keys that begin with prefix.
// A hi of "" means the range is unbounded above.
// SQL-backed stores use it to turn a prefix scan into a range query.
func PrefixRange(prefix string) (lo, hi string) {
	lo = prefix
	b := []byte(prefix)
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] < 0xff {
			b[i]++
			return lo, string(b[:i+1])
		}
	}
	return lo, ""
}
