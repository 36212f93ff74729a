// Package memory runs the Redis store adapter against an embedded miniredis
// server. It backs tests and single-process development servers, and gives
// them the same command semantics as the production Redis backend.
package memory

import (
	"context"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/wadjakorntonsri/custom-links/pkg/adapters/store/redis"
	"github.com/wadjakorntonsri/custom-links/pkg/ports"
)

type Store struct {
	*redis.Store
	client *goredis.Client
	server *miniredis.Miniredis
}

// New starts an embedded server on a loopback port and connects to it.
func New() (*Store, error) {
	server, err := miniredis.Run()
	if err != nil {
		return nil, err
	}
	client := goredis.NewClient(&goredis.Options{Addr: server.Addr()})
	return &Store{
		Store:  redis.New(client),
		client: client,
		server: server,
	}, nil
}

// Scan reports every matching key in a single batch. miniredis pages SCAN by
// offset into its sorted key list, so a key deleted between pages would shift
// a live key past the cursor; KEYS reads the whole key space at once.
func (s *Store) Scan(ctx context.Context, cursor uint64, match string, _ int64) ([]string, uint64, error) {
	if cursor != 0 {
		return nil, 0, nil
	}
	if match == "" {
		match = "*"
	}
	keys, err := s.client.Keys(ctx, match).Result()
	if err != nil {
		return nil, 0, err
	}
	return keys, 0, nil
}

// Close disconnects the client and stops the server.
func (s *Store) Close() error {
	err := s.client.Close()
	s.server.Close()
	return err
}

// Ensure interface compliance
var _ ports.Store = (*Store)(nil)
