// Package storetest holds helpers shared by the store adapter and link
// store tests: a contract suite every ports.Store must pass and a decorator
// that injects failures into selected calls.
package storetest

import (
	"context"
	"errors"
	"sync"

	"github.com/wadjakorntonsri/custom-links/pkg/ports"
)

// ErrInjected is the default failure returned by Faulty.
var ErrInjected = errors.New("injected failure")

type fault struct {
	key string
	err error
}

// Faulty wraps a store and fails or intercepts chosen operations. Operation
// names are the ports.Store method names.
type Faulty struct {
	ports.Store

	mu     sync.Mutex
	faults map[string]fault
	hooks  map[string]func(key string)
}

func NewFaulty(store ports.Store) *Faulty {
	return &Faulty{
		Store:  store,
		faults: make(map[string]fault),
		hooks:  make(map[string]func(string)),
	}
}

// FailOn makes op fail with err when called on key. An empty key matches
// every key and a nil err means ErrInjected.
func (f *Faulty) FailOn(op, key string, err error) {
	if err == nil {
		err = ErrInjected
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op] = fault{key: key, err: err}
}

// Before runs fn ahead of every call to op.
func (f *Faulty) Before(op string, fn func(key string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks[op] = fn
}

// Reset removes every fault and hook.
func (f *Faulty) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	clear(f.faults)
	clear(f.hooks)
}

func (f *Faulty) check(op, key string) error {
	f.mu.Lock()
	hook := f.hooks[op]
	flt, ok := f.faults[op]
	f.mu.Unlock()

	if hook != nil {
		hook(key)
	}
	if ok && (flt.key == "" || flt.key == key) {
		return flt.err
	}
	return nil
}

func (f *Faulty) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if err := f.check("HGetAll", key); err != nil {
		return nil, err
	}
	return f.Store.HGetAll(ctx, key)
}

func (f *Faulty) HGet(ctx context.Context, key, field string) (string, bool, error) {
	if err := f.check("HGet", key); err != nil {
		return "", false, err
	}
	return f.Store.HGet(ctx, key, field)
}

func (f *Faulty) HSetNX(ctx context.Context, key, field, value string) (bool, error) {
	if err := f.check("HSetNX", key); err != nil {
		return false, err
	}
	return f.Store.HSetNX(ctx, key, field, value)
}

func (f *Faulty) HSet(ctx context.Context, key string, fields map[string]string) error {
	if err := f.check("HSet", key); err != nil {
		return err
	}
	return f.Store.HSet(ctx, key, fields)
}

func (f *Faulty) HSetIfExists(ctx context.Context, key string, fields map[string]string) (bool, error) {
	if err := f.check("HSetIfExists", key); err != nil {
		return false, err
	}
	return f.Store.HSetIfExists(ctx, key, fields)
}

func (f *Faulty) HIncrByIfExists(ctx context.Context, key, field string, delta int64) (int64, bool, error) {
	if err := f.check("HIncrByIfExists", key); err != nil {
		return 0, false, err
	}
	return f.Store.HIncrByIfExists(ctx, key, field, delta)
}

func (f *Faulty) Exists(ctx context.Context, key string) (bool, error) {
	if err := f.check("Exists", key); err != nil {
		return false, err
	}
	return f.Store.Exists(ctx, key)
}

func (f *Faulty) Del(ctx context.Context, key string) (bool, error) {
	if err := f.check("Del", key); err != nil {
		return false, err
	}
	return f.Store.Del(ctx, key)
}

func (f *Faulty) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	if err := f.check("Scan", match); err != nil {
		return nil, 0, err
	}
	return f.Store.Scan(ctx, cursor, match, count)
}

func (f *Faulty) LPush(ctx context.Context, key, value string) (int64, error) {
	if err := f.check("LPush", key); err != nil {
		return 0, err
	}
	return f.Store.LPush(ctx, key, value)
}

func (f *Faulty) LPushX(ctx context.Context, key, value string) (int64, error) {
	if err := f.check("LPushX", key); err != nil {
		return 0, err
	}
	return f.Store.LPushX(ctx, key, value)
}

func (f *Faulty) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if err := f.check("LRange", key); err != nil {
		return nil, err
	}
	return f.Store.LRange(ctx, key, start, stop)
}

func (f *Faulty) LRem(ctx context.Context, key string, count int64, value string) (int64, error) {
	if err := f.check("LRem", key); err != nil {
		return 0, err
	}
	return f.Store.LRem(ctx, key, count, value)
}

func (f *Faulty) ZAdd(ctx context.Context, key string, members ...string) (int64, error) {
	if err := f.check("ZAdd", key); err != nil {
		return 0, err
	}
	return f.Store.ZAdd(ctx, key, members...)
}

func (f *Faulty) ZRem(ctx context.Context, key string, members ...string) (int64, error) {
	if err := f.check("ZRem", key); err != nil {
		return 0, err
	}
	return f.Store.ZRem(ctx, key, members...)
}

func (f *Faulty) ZRank(ctx context.Context, key, member string) (int64, bool, error) {
	if err := f.check("ZRank", key); err != nil {
		return 0, false, err
	}
	return f.Store.ZRank(ctx, key, member)
}

func (f *Faulty) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	if err := f.check("ZRange", key); err != nil {
		return nil, err
	}
	return f.Store.ZRange(ctx, key, start, stop)
}

func (f *Faulty) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	if err := f.check("SAdd", key); err != nil {
		return 0, err
	}
	return f.Store.SAdd(ctx, key, members...)
}

func (f *Faulty) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	if err := f.check("SRem", key); err != nil {
		return 0, err
	}
	return f.Store.SRem(ctx, key, members...)
}

func (f *Faulty) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := f.check("SMembers", key); err != nil {
		return nil, err
	}
	return f.Store.SMembers(ctx, key)
}

// Ensure interface compliance
var _ ports.Store = (*Faulty)(nil)
