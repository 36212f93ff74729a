package indexes

import (
	"context"
	"fmt"
	"slices"

	"github.com/wadjakorntonsri/custom-links/pkg/core/domain"
	"github.com/wadjakorntonsri/custom-links/pkg/core/keys"
	"github.com/wadjakorntonsri/custom-links/pkg/ports"
)

// Target keeps one set of link paths per target URL.
type Target struct {
	store ports.Store
}

func NewTarget(store ports.Store) *Target {
	return &Target{store: store}
}

func (t *Target) AddLink(ctx context.Context, path string, link *domain.Link) error {
	if _, err := t.store.SAdd(ctx, keys.Target(link.Target), path); err != nil {
		return fmt.Errorf("index %s under target %s: %w", path, link.Target, err)
	}
	return nil
}

func (t *Target) RemoveLink(ctx context.Context, path string, link *domain.Link) error {
	if _, err := t.store.SRem(ctx, keys.Target(link.Target), path); err != nil {
		return fmt.Errorf("unindex %s from target %s: %w", path, link.Target, err)
	}
	return nil
}

// ShouldReindexLink reports whether next carries a target different from prev.
func (t *Target) ShouldReindexLink(_ string, prev, next *domain.Link) bool {
	if next == nil || next.Target == "" {
		return false
	}
	return prev == nil || prev.Target != next.Target
}

// GetLinksToTarget returns the sorted paths of links redirecting to target.
func (t *Target) GetLinksToTarget(ctx context.Context, target string) ([]string, error) {
	paths, err := t.store.SMembers(ctx, keys.Target(target))
	if err != nil {
		return nil, fmt.Errorf("links to target %s: %w", target, err)
	}
	if paths == nil {
		paths = []string{}
	}
	slices.Sort(paths)
	return paths, nil
}

// Ensure interface compliance
var _ ports.Indexer = (*Target)(nil)
