package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeysDoNotCollide(t *testing.T) {
	all := []string{
		Link("/foo"),
		User("alice@example.com"),
		Complete,
		Target("https://x.test/"),
	}
	seen := map[string]bool{}
	for _, k := range all {
		assert.False(t, seen[k], "duplicate key %q", k)
		seen[k] = true
	}
	assert.Equal(t, "/foo", Link("/foo"))
	assert.Equal(t, "target:https://x.test/", Target("https://x.test/"))
}

func TestTargetFromKey(t *testing.T) {
	url, ok := TargetFromKey(Target("https://x.test/a:b"))
	assert.True(t, ok)
	assert.Equal(t, "https://x.test/a:b", url)

	_, ok = TargetFromKey("/foo")
	assert.False(t, ok)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, "plain", EscapeGlob("plain"))
	assert.Equal(t, `a\*b\?c\[d\]e\\f`, EscapeGlob(`a*b?c[d]e\f`))
	assert.Equal(t, "target:*x.test*", TargetPattern("*x.test*"))
}
