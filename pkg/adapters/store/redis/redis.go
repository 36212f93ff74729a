// Package redis adapts a go-redis client to the primitive store contract.
//
// Each method issues exactly one Redis command, or one Lua script where the
// contract needs a conditional write that Redis has no native command for.
// Scripts touch a single key, so atomicity stays per key.
package redis

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/wadjakorntonsri/custom-links/pkg/ports"
)

// KEYS[1]: hash key
// ARGV: field, value pairs
var hsetIfExistsScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
    return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)

// KEYS[1]: hash key
// ARGV[1]: field
// ARGV[2]: delta
// Returns nil when the hash does not exist.
var hincrByIfExistsScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
    return false
end
return redis.call('HINCRBY', KEYS[1], ARGV[1], ARGV[2])
`)

// Store implements ports.Store on top of a Redis client.
type Store struct {
	client goredis.UniversalClient
}

// New wraps an existing client. The caller keeps ownership of the client.
func New(client goredis.UniversalClient) *Store {
	return &Store{client: client}
}

// Options configures Dial
type Options struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Dial connects to Redis and verifies the connection with a PING.
func Dial(ctx context.Context, opts Options) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return New(client), nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Hashes

func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return s.client.HGetAll(ctx, key).Result()
}

func (s *Store) HGet(ctx context.Context, key, field string) (string, bool, error) {
	v, err := s.client.HGet(ctx, key, field).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) HSetNX(ctx context.Context, key, field, value string) (bool, error) {
	return s.client.HSetNX(ctx, key, field, value).Result()
}

func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return s.client.HSet(ctx, key, pairs(fields)...).Err()
}

func (s *Store) HSetIfExists(ctx context.Context, key string, fields map[string]string) (bool, error) {
	if len(fields) == 0 {
		return s.Exists(ctx, key)
	}
	n, err := hsetIfExistsScript.Run(ctx, s.client, []string{key}, pairs(fields)...).Int()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) HIncrByIfExists(ctx context.Context, key, field string, delta int64) (int64, bool, error) {
	n, err := hincrByIfExistsScript.Run(ctx, s.client, []string{key}, field, delta).Int64()
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// Keys

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, key).Result()
	return n > 0, err
}

func (s *Store) Del(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, key).Result()
	return n > 0, err
}

func (s *Store) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	return s.client.Scan(ctx, cursor, match, count).Result()
}

// Lists

func (s *Store) LPush(ctx context.Context, key, value string) (int64, error) {
	return s.client.LPush(ctx, key, value).Result()
}

func (s *Store) LPushX(ctx context.Context, key, value string) (int64, error) {
	return s.client.LPushX(ctx, key, value).Result()
}

func (s *Store) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return s.client.LRange(ctx, key, start, stop).Result()
}

func (s *Store) LRem(ctx context.Context, key string, count int64, value string) (int64, error) {
	return s.client.LRem(ctx, key, count, value).Result()
}

// Ordered sets

func (s *Store) ZAdd(ctx context.Context, key string, members ...string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	zs := make([]goredis.Z, len(members))
	for i, m := range members {
		zs[i] = goredis.Z{Score: 0, Member: m}
	}
	return s.client.ZAdd(ctx, key, zs...).Result()
}

func (s *Store) ZRem(ctx context.Context, key string, members ...string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	return s.client.ZRem(ctx, key, values(members)...).Result()
}

func (s *Store) ZRank(ctx context.Context, key, member string) (int64, bool, error) {
	rank, err := s.client.ZRank(ctx, key, member).Result()
	if errors.Is(err, goredis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rank, true, nil
}

func (s *Store) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	return s.client.ZRange(ctx, key, start, stop).Result()
}

// Sets

func (s *Store) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	return s.client.SAdd(ctx, key, values(members)...).Result()
}

func (s *Store) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	return s.client.SRem(ctx, key, values(members)...).Result()
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	return s.client.SMembers(ctx, key).Result()
}

func pairs(fields map[string]string) []interface{} {
	args := make([]interface{}, 0, 2*len(fields))
	for f, v := range fields {
		args = append(args, f, v)
	}
	return args
}

func values(members []string) []interface{} {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return args
}

// Ensure interface compliance
var _ ports.Store = (*Store)(nil)
