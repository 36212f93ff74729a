// Package indexes maintains the secondary structures kept alongside link
// records: the autocomplete prefix index and the target reverse index.
package indexes

import (
	"context"
	"fmt"
	"strings"

	"github.com/wadjakorntonsri/custom-links/pkg/core/domain"
	"github.com/wadjakorntonsri/custom-links/pkg/core/keys"
	"github.com/wadjakorntonsri/custom-links/pkg/ports"
)

// Terminal marks a member of the autocomplete set as a complete link path
// rather than a prefix shared by longer paths.
const Terminal = "*"

const (
	DefaultMaxResults = 10
	DefaultPageSize   = 25
)

// Autocomplete keeps every prefix of every link path in one ordered set.
// All members share a score, so the set is in lexicographic order and the
// completions of a prefix form one contiguous run starting at the prefix.
//
// Removing a link only removes its terminal marker. Prefix members are never
// reclaimed because nothing records how many live paths share them, so the
// set grows with total link churn.
type Autocomplete struct {
	store      ports.Store
	key        string
	maxResults int
}

// NewAutocomplete returns an indexer over the shared autocomplete set. A
// non-positive maxResults uses DefaultMaxResults.
func NewAutocomplete(store ports.Store, maxResults int) *Autocomplete {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return &Autocomplete{store: store, key: keys.Complete, maxResults: maxResults}
}

// Members returns the autocomplete members for path: each non-empty proper
// prefix of the path without its leading "/", then the terminal marker.
func Members(path string) []string {
	stripped := strings.TrimPrefix(path, "/")
	members := make([]string, 0, len(stripped)+1)
	for i := range stripped {
		if i > 0 {
			members = append(members, stripped[:i])
		}
	}
	return append(members, stripped+Terminal)
}

func (a *Autocomplete) AddLink(ctx context.Context, path string, _ *domain.Link) error {
	return a.AddLinkPrefixes(ctx, path)
}

// AddLinkPrefixes adds every member for path. Members already present are
// left alone, so adding a path twice is harmless.
func (a *Autocomplete) AddLinkPrefixes(ctx context.Context, path string) error {
	if _, err := a.store.ZAdd(ctx, a.key, Members(path)...); err != nil {
		return fmt.Errorf("index completions of %s: %w", path, err)
	}
	return nil
}

func (a *Autocomplete) RemoveLink(ctx context.Context, path string, _ *domain.Link) error {
	marker := strings.TrimPrefix(path, "/") + Terminal
	if _, err := a.store.ZRem(ctx, a.key, marker); err != nil {
		return fmt.Errorf("remove completion of %s: %w", path, err)
	}
	return nil
}

// ShouldReindexLink is always false: the index depends only on the path,
// which never changes for an existing link.
func (a *Autocomplete) ShouldReindexLink(string, *domain.Link, *domain.Link) bool {
	return false
}

// CompleteString returns up to the configured maximum of live link paths
// starting with prefix, in lexicographic order. The set is read forward from
// the prefix's rank pageSize members at a time.
func (a *Autocomplete) CompleteString(ctx context.Context, prefix string, pageSize int64) ([]string, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	prefix = strings.TrimPrefix(prefix, "/")
	results := []string{}

	start, ok, err := a.store.ZRank(ctx, a.key, prefix)
	if err != nil {
		return nil, fmt.Errorf("rank %q: %w", prefix, err)
	}
	if !ok {
		// A prefix that is only ever a full path has no prefix member, only
		// its terminal marker.
		start, ok, err = a.store.ZRank(ctx, a.key, prefix+Terminal)
		if err != nil {
			return nil, fmt.Errorf("rank %q: %w", prefix+Terminal, err)
		}
		if !ok {
			return results, nil
		}
	}

	for {
		page, err := a.store.ZRange(ctx, a.key, start, start+pageSize-1)
		if err != nil {
			return nil, fmt.Errorf("range %q from %d: %w", prefix, start, err)
		}
		for _, member := range page {
			if !strings.HasPrefix(member, prefix) {
				return results, nil
			}
			// A prefix ending in the marker ranks at a shorter path's
			// terminal member, whose path does not start with it.
			if path, ok := strings.CutSuffix(member, Terminal); ok && strings.HasPrefix(path, prefix) {
				results = append(results, "/"+path)
				if len(results) == a.maxResults {
					return results, nil
				}
			}
		}
		if int64(len(page)) < pageSize {
			return results, nil
		}
		start += pageSize
	}
}

// Ensure interface compliance
var _ ports.Indexer = (*Autocomplete)(nil)
