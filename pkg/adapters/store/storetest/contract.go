package storetest

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wadjakorntonsri/custom-links/pkg/core/search"
	"github.com/wadjakorntonsri/custom-links/pkg/ports"
)

// Run exercises the primitive store contract against stores built by
// newStore. Each subtest gets a fresh, empty store.
func Run(t *testing.T, newStore func(t *testing.T) ports.Store) {
	t.Run("Hashes", func(t *testing.T) { testHashes(t, newStore(t)) })
	t.Run("ConditionalHashWrites", func(t *testing.T) { testConditionalHashWrites(t, newStore(t)) })
	t.Run("Keys", func(t *testing.T) { testKeys(t, newStore(t)) })
	t.Run("Lists", func(t *testing.T) { testLists(t, newStore(t)) })
	t.Run("OrderedSets", func(t *testing.T) { testOrderedSets(t, newStore(t)) })
	t.Run("Sets", func(t *testing.T) { testSets(t, newStore(t)) })
	t.Run("Scan", func(t *testing.T) { testScan(t, newStore(t)) })
	t.Run("ScanDuringDeletes", func(t *testing.T) { testScanDuringDeletes(t, newStore(t)) })
	t.Run("WrongType", func(t *testing.T) { testWrongType(t, newStore(t)) })
}

func testHashes(t *testing.T, s ports.Store) {
	ctx := context.Background()

	set, err := s.HSetNX(ctx, "/foo", "owner", "alice")
	require.NoError(t, err)
	assert.True(t, set)

	set, err = s.HSetNX(ctx, "/foo", "owner", "bob")
	require.NoError(t, err)
	assert.False(t, set)

	require.NoError(t, s.HSet(ctx, "/foo", map[string]string{"target": "https://x.test/", "count": "0"}))

	v, ok, err := s.HGet(ctx, "/foo", "owner")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", v)

	_, ok, err = s.HGet(ctx, "/foo", "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	all, err := s.HGetAll(ctx, "/foo")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"owner": "alice", "target": "https://x.test/", "count": "0"}, all)

	all, err = s.HGetAll(ctx, "/absent")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testConditionalHashWrites(t *testing.T, s ports.Store) {
	ctx := context.Background()

	set, err := s.HSetIfExists(ctx, "/foo", map[string]string{"target": "https://y.test/"})
	require.NoError(t, err)
	assert.False(t, set)

	_, ok, err := s.HIncrByIfExists(ctx, "/foo", "count", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := s.Exists(ctx, "/foo")
	require.NoError(t, err)
	assert.False(t, exists, "conditional writes must not create the hash")

	require.NoError(t, s.HSet(ctx, "/foo", map[string]string{"owner": "alice", "count": "0"}))

	set, err = s.HSetIfExists(ctx, "/foo", map[string]string{"target": "https://y.test/"})
	require.NoError(t, err)
	assert.True(t, set)

	for want := int64(1); want <= 3; want++ {
		n, ok, err := s.HIncrByIfExists(ctx, "/foo", "count", 1)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, want, n)
	}

	all, err := s.HGetAll(ctx, "/foo")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"owner": "alice", "count": "3", "target": "https://y.test/"}, all)
}

func testKeys(t *testing.T, s ports.Store) {
	ctx := context.Background()

	deleted, err := s.Del(ctx, "/foo")
	require.NoError(t, err)
	assert.False(t, deleted)

	require.NoError(t, s.HSet(ctx, "/foo", map[string]string{"owner": "alice"}))
	exists, err := s.Exists(ctx, "/foo")
	require.NoError(t, err)
	assert.True(t, exists)

	deleted, err = s.Del(ctx, "/foo")
	require.NoError(t, err)
	assert.True(t, deleted)

	exists, err = s.Exists(ctx, "/foo")
	require.NoError(t, err)
	assert.False(t, exists)
}

func testLists(t *testing.T, s ports.Store) {
	ctx := context.Background()

	n, err := s.LPushX(ctx, "alice", "/foo")
	require.NoError(t, err)
	assert.Zero(t, n)
	exists, err := s.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, exists, "LPushX must not create the list")

	n, err = s.LPush(ctx, "alice", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	for i, path := range []string{"/a", "/b", "/a", "/c"} {
		n, err = s.LPushX(ctx, "alice", path)
		require.NoError(t, err)
		assert.Equal(t, int64(i+2), n)
	}

	all, err := s.LRange(ctx, "alice", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"/c", "/a", "/b", "/a", ""}, all)

	head, err := s.LRange(ctx, "alice", 0, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"/c", "/a"}, head)

	tail, err := s.LRange(ctx, "alice", -2, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", ""}, tail)

	removed, err := s.LRem(ctx, "alice", 1, "/a")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	all, err = s.LRange(ctx, "alice", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"/c", "/b", "/a", ""}, all)

	removed, err = s.LRem(ctx, "alice", 1, "/missing")
	require.NoError(t, err)
	assert.Zero(t, removed)

	for _, v := range []string{"/c", "/b", "/a", ""} {
		_, err = s.LRem(ctx, "alice", 0, v)
		require.NoError(t, err)
	}
	exists, err = s.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, exists, "an emptied list must cease to exist")

	empty, err := s.LRange(ctx, "alice", 0, -1)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testOrderedSets(t *testing.T, s ports.Store) {
	ctx := context.Background()

	added, err := s.ZAdd(ctx, "complete:links", "fo", "foo*", "b", "ba", "bar*")
	require.NoError(t, err)
	assert.Equal(t, int64(5), added)

	added, err = s.ZAdd(ctx, "complete:links", "fo", "f")
	require.NoError(t, err)
	assert.Equal(t, int64(1), added)

	all, err := s.ZRange(ctx, "complete:links", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "ba", "bar*", "f", "fo", "foo*"}, all)

	rank, ok, err := s.ZRank(ctx, "complete:links", "fo")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(4), rank)

	_, ok, err = s.ZRank(ctx, "complete:links", "zz")
	require.NoError(t, err)
	assert.False(t, ok)

	page, err := s.ZRange(ctx, "complete:links", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"bar*", "f"}, page)

	page, err = s.ZRange(ctx, "complete:links", 5, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"foo*"}, page)

	page, err = s.ZRange(ctx, "complete:links", 10, 20)
	require.NoError(t, err)
	assert.Empty(t, page)

	page, err = s.ZRange(ctx, "complete:links", -2, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"fo", "foo*"}, page)

	removed, err := s.ZRem(ctx, "complete:links", "foo*", "nope")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	_, ok, err = s.ZRank(ctx, "complete:links", "foo*")
	require.NoError(t, err)
	assert.False(t, ok)
}

func testSets(t *testing.T, s ports.Store) {
	ctx := context.Background()

	added, err := s.SAdd(ctx, "target:https://x.test/", "/foo", "/bar", "/foo")
	require.NoError(t, err)
	assert.Equal(t, int64(2), added)

	members, err := s.SMembers(ctx, "target:https://x.test/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/bar", "/foo"}, members)

	removed, err := s.SRem(ctx, "target:https://x.test/", "/foo", "/bar")
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	exists, err := s.Exists(ctx, "target:https://x.test/")
	require.NoError(t, err)
	assert.False(t, exists, "an emptied set must cease to exist")

	members, err = s.SMembers(ctx, "target:https://x.test/")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func testScan(t *testing.T, s ports.Store) {
	ctx := context.Background()

	var want []string
	for i := 0; i < 25; i++ {
		path := fmt.Sprintf("/link-%02d", i)
		require.NoError(t, s.HSet(ctx, path, map[string]string{"owner": "alice"}))
		want = append(want, path)
	}
	_, err := s.LPush(ctx, "alice", "")
	require.NoError(t, err)
	_, err = s.SAdd(ctx, "target:https://x.test/", "/link-00")
	require.NoError(t, err)

	got, err := search.KeysBatched(ctx, s, "/*", 4)
	require.NoError(t, err)
	assert.ElementsMatch(t, want, got)

	got, err = search.KeysBatched(ctx, s, "target:*x.test*", 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"target:https://x.test/"}, got)

	got, err = search.Keys(ctx, s, "/link-1?")
	require.NoError(t, err)
	assert.Len(t, got, 10)
}

// testScanDuringDeletes removes every key of the first batch before asking
// for the next one. Keys that were never deleted must all be reported.
func testScanDuringDeletes(t *testing.T, s ports.Store) {
	ctx := context.Background()

	all := []string{"/a", "/b", "/c", "/d", "/e", "/f"}
	for _, k := range all {
		require.NoError(t, s.HSet(ctx, k, map[string]string{"owner": "alice"}))
	}

	var (
		cursor uint64
		first  = make(map[string]bool)
		seen   = make(map[string]bool)
	)
	for calls := 0; ; calls++ {
		require.Less(t, calls, 100, "scan did not terminate")
		keys, next, err := s.Scan(ctx, cursor, "/*", 2)
		require.NoError(t, err)
		for _, k := range keys {
			seen[k] = true
		}
		if calls == 0 {
			for _, k := range keys {
				first[k] = true
				deleted, err := s.Del(ctx, k)
				require.NoError(t, err)
				assert.True(t, deleted)
			}
		}
		if next == 0 {
			break
		}
		cursor = next
	}

	for _, k := range all {
		if !first[k] {
			assert.True(t, seen[k], "%s existed for the whole scan but was not reported", k)
		}
	}
}

func testWrongType(t *testing.T, s ports.Store) {
	ctx := context.Background()

	require.NoError(t, s.HSet(ctx, "/foo", map[string]string{"owner": "alice"}))
	_, err := s.LPush(ctx, "/foo", "x")
	assert.Error(t, err)
	_, err = s.SAdd(ctx, "/foo", "x")
	assert.Error(t, err)
}
