// Package store holds the Redis semantics that the SQL backend has to
// reproduce itself: glob matching for scans, which SQLite GLOB cannot do
// because it has no backslash escape, index range resolution for list and
// ordered set reads, and common errors.
package store

import (
	"errors"
	"unicode/utf8"
)

var (
	// ErrWrongType is returned when a key holds a different kind of value.
	ErrWrongType = errors.New("operation against a key holding the wrong kind of value")
	// ErrNotInteger is returned when an increment targets a non-integer field.
	ErrNotInteger = errors.New("hash value is not an integer")
)

// DefaultScanCount is used when a scan is issued without a count hint.
const DefaultScanCount = 10

// Range resolves Redis style inclusive start/stop indexes, where negative
// values count from the end, against a sequence of length n. It returns the
// half-open bounds to slice with, or ok == false when the range is empty.
func Range(n int, start, stop int64) (lo, hi int, ok bool) {
	size := int64(n)
	if start < 0 {
		start += size
	}
	if stop < 0 {
		stop += size
	}
	if start < 0 {
		start = 0
	}
	if stop >= size {
		stop = size - 1
	}
	if start > stop || start >= size {
		return 0, 0, false
	}
	return int(start), int(stop) + 1, true
}

// Match reports whether s matches the glob pattern. It understands '*', '?',
// character classes such as "[a-z]" or "[^0-9]", and backslash escapes.
// Unlike path.Match, '*' also matches '/'.
func Match(pattern, s string) bool {
	for len(pattern) > 0 {
		switch pattern[0] {
		case '*':
			for len(pattern) > 1 && pattern[1] == '*' {
				pattern = pattern[1:]
			}
			if len(pattern) == 1 {
				return true
			}
			for i := 0; i <= len(s); i++ {
				if Match(pattern[1:], s[i:]) {
					return true
				}
			}
			return false
		case '?':
			if len(s) == 0 {
				return false
			}
			_, size := utf8.DecodeRuneInString(s)
			s = s[size:]
			pattern = pattern[1:]
		case '[':
			if len(s) == 0 {
				return false
			}
			r, size := utf8.DecodeRuneInString(s)
			matched, rest, ok := matchClass(pattern[1:], r)
			if !ok {
				// unterminated class, '[' is literal
				if s[0] != '[' {
					return false
				}
				s = s[1:]
				pattern = pattern[1:]
				continue
			}
			if !matched {
				return false
			}
			s = s[size:]
			pattern = rest
		case '\\':
			if len(pattern) >= 2 {
				pattern = pattern[1:]
			}
			fallthrough
		default:
			if len(s) == 0 || s[0] != pattern[0] {
				return false
			}
			s = s[1:]
			pattern = pattern[1:]
		}
	}
	return len(s) == 0
}

// matchClass matches r against the class body p (after the opening '[') and
// returns the pattern remaining after the closing ']'.
func matchClass(p string, r rune) (matched bool, rest string, ok bool) {
	negate := false
	if len(p) > 0 && p[0] == '^' {
		negate = true
		p = p[1:]
	}
	for {
		if len(p) == 0 {
			return false, "", false
		}
		if p[0] == ']' {
			return matched != negate, p[1:], true
		}
		lo, n := classRune(p)
		p = p[n:]
		hi := lo
		if len(p) >= 2 && p[0] == '-' && p[1] != ']' {
			hi, n = classRune(p[1:])
			p = p[1+n:]
			if lo > hi {
				lo, hi = hi, lo
			}
		}
		if lo <= r && r <= hi {
			matched = true
		}
	}
}

func classRune(p string) (rune, int) {
	if p[0] == '\\' && len(p) >= 2 {
		r, n := utf8.DecodeRuneInString(p[1:])
		return r, n + 1
	}
	return utf8.DecodeRuneInString(p)
}
