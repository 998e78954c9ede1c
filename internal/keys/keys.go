// Package keys derives node keys from ordered field values.
//
// A key is the field values joined by Separator. Separator and Escape occurring
// inside a value are prefixed with Escape, so distinct value lists always yield
// distinct keys and Split can recover the original values.
package keys

import "strings"

const (
	Separator = '|'
	Escape    = '\\'
)

// Derive joins values into a single key. It is a pure function: the same
// ordered values always produce the same key.
func Derive(values ...string) string {
	n := len(values)
	for _, v := range values {
		n += len(v)
	}
	var b strings.Builder
	b.Grow(n)
	for i, v := range values {
		if i > 0 {
			b.WriteByte(Separator)
		}
		for j := 0; j < len(v); j++ {
			c := v[j]
			if c == Separator || c == Escape {
				b.WriteByte(Escape)
			}
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Split reverses Derive. A trailing lone Escape is kept as a literal.
func Split(key string) []string {
	var (
		out []string
		cur strings.Builder
	)
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c == Escape && i+1 < len(key):
			i++
			cur.WriteByte(key[i])
		case c == Separator:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(out, cur.String())
}
