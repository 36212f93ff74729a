package indexes

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/custom-links/pkg/adapters/store/storetest"
	"github.com/wadjakorntonsri/custom-links/pkg/core/keys"
)

func TestMembers(t *testing.T) {
	assert.Equal(t, []string{"f", "fo", "foo*"}, Members("/foo"))
	assert.Equal(t, []string{"a*"}, Members("/a"))
	assert.Equal(t, []string{"é", "éa*"}, Members("/éa"), "prefixes split on rune boundaries")
}

func addPaths(t *testing.T, a *Autocomplete, paths ...string) {
	t.Helper()
	for _, p := range paths {
		require.NoError(t, a.AddLinkPrefixes(context.Background(), p))
	}
}

func TestCompleteString(t *testing.T) {
	a := NewAutocomplete(storetest.NewMemory(t), 0)
	addPaths(t, a, "/foo", "/foobar", "/foo/baz", "/fob", "/bar", "/fizz")

	tests := []struct {
		name   string
		prefix string
		want   []string
	}{
		{"shared prefix", "fo", []string{"/fob", "/foo", "/foo/baz", "/foobar"}},
		{"leading slash", "/fo", []string{"/fob", "/foo", "/foo/baz", "/foobar"}},
		{"prefix that is also a path", "foo", []string{"/foo", "/foo/baz", "/foobar"}},
		{"full path only", "foobar", []string{"/foobar"}},
		{"nested", "foo/", []string{"/foo/baz"}},
		{"no match", "zz", []string{}},
		{"longer than any path", "foobarbaz", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.CompleteString(context.Background(), tt.prefix, 2)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompleteStringStableAcrossPageSizes(t *testing.T) {
	a := NewAutocomplete(storetest.NewMemory(t), 1000)
	var paths []string
	for i := 0; i < 40; i++ {
		paths = append(paths, fmt.Sprintf("/go/%d", i), fmt.Sprintf("/go%d/x", i))
	}
	paths = append(paths, "/g", "/gone", "/golang", "/h/go")
	addPaths(t, a, paths...)

	for _, prefix := range []string{"go", "go/", "go1", "gol"} {
		small, err := a.CompleteString(context.Background(), prefix, 2)
		require.NoError(t, err)
		large, err := a.CompleteString(context.Background(), prefix, 100)
		require.NoError(t, err)
		assert.Equal(t, large, small, "prefix %q", prefix)
		assert.NotEmpty(t, large)
	}
}

func TestCompleteStringPrefixEndingInMarker(t *testing.T) {
	a := NewAutocomplete(storetest.NewMemory(t), 0)
	addPaths(t, a, "/fo", "/foo")

	got, err := a.CompleteString(context.Background(), "/fo*", 10)
	require.NoError(t, err)
	assert.Empty(t, got, "/fo does not start with /fo*")

	addPaths(t, a, "/fo*x")
	got, err = a.CompleteString(context.Background(), "/fo*", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"/fo*x"}, got)

	got, err = a.CompleteString(context.Background(), "/fo", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"/fo", "/fo*x", "/foo"}, got)
}

func TestCompleteStringMaxResults(t *testing.T) {
	a := NewAutocomplete(storetest.NewMemory(t), 3)
	addPaths(t, a, "/ab1", "/ab2", "/ab3", "/ab4", "/ab5")

	got, err := a.CompleteString(context.Background(), "ab", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"/ab1", "/ab2", "/ab3"}, got)
}

func TestRemoveLinkKeepsPrefixes(t *testing.T) {
	ctx := context.Background()
	s := storetest.NewMemory(t)
	a := NewAutocomplete(s, 0)
	addPaths(t, a, "/foo", "/foobar")
	addPaths(t, a, "/foo") // idempotent

	require.NoError(t, a.RemoveLink(ctx, "/foo", nil))
	require.NoError(t, a.RemoveLink(ctx, "/foobar", nil))

	got, err := a.CompleteString(ctx, "foo", 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	// prefix members are never reclaimed
	_, ok, err := s.ZRank(ctx, keys.Complete, "foob")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAutocompleteNeverReindexes(t *testing.T) {
	a := NewAutocomplete(storetest.NewMemory(t), 0)
	assert.False(t, a.ShouldReindexLink("/foo", nil, nil))
}

func TestCompleteStringStoreFailure(t *testing.T) {
	s := storetest.NewFaulty(storetest.NewMemory(t))
	a := NewAutocomplete(s, 0)
	addPaths(t, a, "/foo")

	s.FailOn("ZRange", "", nil)
	_, err := a.CompleteString(context.Background(), "fo", 10)
	assert.ErrorIs(t, err, storetest.ErrInjected)
}
