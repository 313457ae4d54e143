// Package text defines the fixed-width code-unit sequence abstraction that
// pkg/sft and pkg/levenshtein are built over. A Text is opaque: no
// normalization, casing, or grapheme-cluster logic lives here, that is a
// caller concern per the index's scope.
package text

import "golang.org/x/exp/constraints"

// Symbol is one code unit of an alphabet. The alphabet is a totally ordered
// set of integers, so any ordered integer type works: byte for UTF-8 code
// units, rune for UTF-32/decoded Unicode, uint16 for UTF-16, etc.
type Symbol interface {
	constraints.Ordered
}

// Offset is the integer type used for node/transition/array indices.
type Offset interface {
	constraints.Unsigned
}

// Text is an immutable sequence of symbols. It is value-comparable when the
// underlying symbol type is comparable, which Symbol's constraint already
// guarantees.
type Text[S Symbol] []S

// Clone returns a copy of t, safe to mutate independently.
func Clone[S Symbol](t Text[S]) Text[S] {
	c := make(Text[S], len(t))
	copy(c, t)
	return c
}

// Compare returns -1, 0, or 1 as a orders before, equal to, or after b,
// lexicographically by symbol.
func Compare[S Symbol](a, b Text[S]) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] < b[i] {
			return -1
		}
		if a[i] > b[i] {
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// Less reports whether a sorts strictly before b.
func Less[S Symbol](a, b Text[S]) bool {
	return Compare(a, b) < 0
}

// HasPrefix reports whether p is a prefix of t.
func HasPrefix[S Symbol](t, p Text[S]) bool {
	if len(p) > len(t) {
		return false
	}
	for i := range p {
		if t[i] != p[i] {
			return false
		}
	}
	return true
}

// FromString builds a Text[byte] from a Go string's raw UTF-8 bytes. This
// is the common case for the CLI/server layers, which treat code units as
// bytes per spec.
func FromString(s string) Text[byte] {
	return Text[byte](s)
}

// String renders a Text[byte] back into a Go string.
func String(t Text[byte]) string {
	return string(t)
}

// FromRunes builds a Text[rune] by decoding a Go string, for callers who
// want one code unit per Unicode code point instead of per UTF-8 byte.
func FromRunes(s string) Text[rune] {
	return Text[rune]([]rune(s))
}

// RuneString renders a Text[rune] back into a Go string.
func RuneString(t Text[rune]) string {
	return string([]rune(t))
}
