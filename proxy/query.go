package proxy

import "strings"

const upperhex = "0123456789ABCDEF"

// FixQueryString percent-encodes the bytes of a raw query that are not legal
// in a request line: non-ASCII bytes, controls and spaces. Existing escapes
// and reserved characters are left as they are, so a query the client already
// encoded passes through unchanged.
func FixQueryString(raw string) string {
	n := 0
	for i := 0; i < len(raw); i++ {
		if mustEscape(raw[i]) {
			n++
		}
	}
	if n == 0 {
		return raw
	}

	var b strings.Builder
	b.Grow(len(raw) + 2*n)
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if mustEscape(c) {
			b.WriteByte('%')
			b.WriteByte(upperhex[c>>4])
			b.WriteByte(upperhex[c&15])
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func mustEscape(c byte) bool {
	return c >= 0x80 || c <= 0x20 || c == 0x7f
}
