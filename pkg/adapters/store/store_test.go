package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	tests := []struct {
		pattern string
		s       string
		want    bool
	}{
		{"*", "", true},
		{"/*", "/foo/bar", true},
		{"/*", "alice@example.com", false},
		{"target:*x.test*", "target:https://x.test/", true},
		{"target:*x.test*", "/target:x.test", false},
		{"/link-1?", "/link-10", true},
		{"/link-1?", "/link-1", false},
		{"/[ab]*", "/bar", true},
		{"/[^ab]*", "/bar", false},
		{"/[a-c]x", "/bx", true},
		{"/\\*", "/*", true},
		{"/\\*", "/x", false},
		{"/*\\?*", "/what?now", true},
		{"/*\\?*", "/whatnow", false},
		{"/[oops", "/[oops", true},
		{"/é?", "/éa", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"~"+tt.s, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.pattern, tt.s))
		})
	}
}

func TestRange(t *testing.T) {
	tests := []struct {
		name        string
		n           int
		start, stop int64
		lo, hi      int
		ok          bool
	}{
		{"all", 5, 0, -1, 0, 5, true},
		{"head", 5, 0, 1, 0, 2, true},
		{"tail", 5, -2, -1, 3, 5, true},
		{"clamped stop", 5, 3, 100, 3, 5, true},
		{"start past end", 5, 5, 10, 0, 0, false},
		{"inverted", 5, 3, 1, 0, 0, false},
		{"negative start clamped", 5, -100, 1, 0, 2, true},
		{"empty", 0, 0, -1, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, ok := Range(tt.n, tt.start, tt.stop)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.lo, lo)
				assert.Equal(t, tt.hi, hi)
			}
		})
	}
}
