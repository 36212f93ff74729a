// Package search collects keys matching a glob pattern across as many cursor
// round trips as the store needs.
package search

import (
	"context"
	"fmt"

	"github.com/wadjakorntonsri/custom-links/pkg/ports"
)

// DefaultBatchSize is the count hint sent with each scan call.
const DefaultBatchSize = 100

// Keys returns every key matching pattern. Keys added or removed while the
// scan is in progress may or may not be reported, and the result is unordered.
func Keys(ctx context.Context, store ports.Store, pattern string) ([]string, error) {
	return KeysBatched(ctx, store, pattern, DefaultBatchSize)
}

// KeysBatched is Keys with an explicit count hint per round trip.
func KeysBatched(ctx context.Context, store ports.Store, pattern string, batch int64) ([]string, error) {
	var (
		result []string
		cursor uint64
	)
	seen := make(map[string]struct{})
	for {
		keys, next, err := store.Scan(ctx, cursor, pattern, batch)
		if err != nil {
			return nil, fmt.Errorf("scan %q at cursor %d: %w", pattern, cursor, err)
		}
		// Redis may report a key more than once during a full iteration
		for _, k := range keys {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			result = append(result, k)
		}
		if next == 0 {
			return result, nil
		}
		cursor = next
	}
}
