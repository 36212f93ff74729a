package ports

import (
	"context"

	"github.com/wadjakorntonsri/custom-links/pkg/core/domain"
)

// Store is the primitive key-value contract the link store is built on.
// Every method is atomic for the single key it touches; nothing spans keys.
// Lists, sets and hashes that become empty cease to exist.
type Store interface {
	// Hashes
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HSetNX(ctx context.Context, key, field, value string) (bool, error)
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetIfExists(ctx context.Context, key string, fields map[string]string) (bool, error)
	HIncrByIfExists(ctx context.Context, key, field string, delta int64) (int64, bool, error)

	// Keys
	Exists(ctx context.Context, key string) (bool, error)
	Del(ctx context.Context, key string) (bool, error)
	// Scan returns one batch of keys matching the glob pattern. A zero cursor
	// starts an iteration and a zero next cursor ends it.
	Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error)

	// Lists, head first
	LPush(ctx context.Context, key, value string) (int64, error)
	LPushX(ctx context.Context, key, value string) (int64, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LRem(ctx context.Context, key string, count int64, value string) (int64, error)

	// Ordered sets with a uniform score, so members sort lexicographically
	ZAdd(ctx context.Context, key string, members ...string) (int64, error)
	ZRem(ctx context.Context, key string, members ...string) (int64, error)
	ZRank(ctx context.Context, key, member string) (int64, bool, error)
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// Sets
	SAdd(ctx context.Context, key string, members ...string) (int64, error)
	SRem(ctx context.Context, key string, members ...string) (int64, error)
	SMembers(ctx context.Context, key string) ([]string, error)
}

// Indexer maintains a secondary index over link records.
type Indexer interface {
	AddLink(ctx context.Context, path string, link *domain.Link) error
	RemoveLink(ctx context.Context, path string, link *domain.Link) error
	ShouldReindexLink(path string, prev, next *domain.Link) bool
}

// LinkStore defines the link registry operations
type LinkStore interface {
	UserExists(ctx context.Context, userID string) (bool, error)
	FindOrCreateUser(ctx context.Context, userID string) (bool, error)

	GetLink(ctx context.Context, path string, opts GetLinkOptions) (*domain.Link, error)
	GetOwnedLinks(ctx context.Context, owner string) ([]domain.Link, error)
	CreateLink(ctx context.Context, path, target, owner string) (*domain.Link, error)
	UpdateProperty(ctx context.Context, path, owner, property, value string) error
	ChangeOwner(ctx context.Context, path, owner, newOwner string) error
	DeleteLink(ctx context.Context, path, owner string) error

	GetLinksToTarget(ctx context.Context, target string) ([]string, error)
	CompleteLink(ctx context.Context, prefix string) ([]string, error)

	// Search
	SearchShortLinks(ctx context.Context, term string) ([]string, error)
	SearchTargetLinks(ctx context.Context, term string) (map[string][]string, error)
}

// GetLinkOptions controls side effects of GetLink
type GetLinkOptions struct {
	RecordAccess bool
}
