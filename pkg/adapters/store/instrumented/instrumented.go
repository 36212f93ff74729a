// Package instrumented wraps a primitive store with Prometheus metrics.
package instrumented

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wadjakorntonsri/custom-links/pkg/ports"
)

const (
	namespace = "custom_links"
	subsystem = "store"
)

// Metrics holds the collectors shared by every instrumented store.
type Metrics struct {
	Ops      *prometheus.CounterVec
	Duration *prometheus.HistogramVec
}

// NewMetrics creates the store collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "operations_total",
			Help:      "Primitive store calls by operation and result.",
		}, []string{"op", "result"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "operation_duration_seconds",
			Help:      "Latency of primitive store calls.",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(m.Ops, m.Duration)
	}
	return m
}

// Store decorates a ports.Store, counting and timing every call.
type Store struct {
	next    ports.Store
	metrics *Metrics
}

func New(next ports.Store, metrics *Metrics) *Store {
	return &Store{next: next, metrics: metrics}
}

func (s *Store) observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.Ops.WithLabelValues(op, result).Inc()
	s.metrics.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (s *Store) HGetAll(ctx context.Context, key string) (fields map[string]string, err error) {
	defer func(start time.Time) { s.observe("hgetall", start, err) }(time.Now())
	return s.next.HGetAll(ctx, key)
}

func (s *Store) HGet(ctx context.Context, key, field string) (value string, ok bool, err error) {
	defer func(start time.Time) { s.observe("hget", start, err) }(time.Now())
	return s.next.HGet(ctx, key, field)
}

func (s *Store) HSetNX(ctx context.Context, key, field, value string) (set bool, err error) {
	defer func(start time.Time) { s.observe("hsetnx", start, err) }(time.Now())
	return s.next.HSetNX(ctx, key, field, value)
}

func (s *Store) HSet(ctx context.Context, key string, fields map[string]string) (err error) {
	defer func(start time.Time) { s.observe("hset", start, err) }(time.Now())
	return s.next.HSet(ctx, key, fields)
}

func (s *Store) HSetIfExists(ctx context.Context, key string, fields map[string]string) (set bool, err error) {
	defer func(start time.Time) { s.observe("hset_if_exists", start, err) }(time.Now())
	return s.next.HSetIfExists(ctx, key, fields)
}

func (s *Store) HIncrByIfExists(ctx context.Context, key, field string, delta int64) (value int64, ok bool, err error) {
	defer func(start time.Time) { s.observe("hincrby_if_exists", start, err) }(time.Now())
	return s.next.HIncrByIfExists(ctx, key, field, delta)
}

func (s *Store) Exists(ctx context.Context, key string) (exists bool, err error) {
	defer func(start time.Time) { s.observe("exists", start, err) }(time.Now())
	return s.next.Exists(ctx, key)
}

func (s *Store) Del(ctx context.Context, key string) (deleted bool, err error) {
	defer func(start time.Time) { s.observe("del", start, err) }(time.Now())
	return s.next.Del(ctx, key)
}

func (s *Store) Scan(ctx context.Context, cursor uint64, match string, count int64) (keys []string, next uint64, err error) {
	defer func(start time.Time) { s.observe("scan", start, err) }(time.Now())
	return s.next.Scan(ctx, cursor, match, count)
}

func (s *Store) LPush(ctx context.Context, key, value string) (n int64, err error) {
	defer func(start time.Time) { s.observe("lpush", start, err) }(time.Now())
	return s.next.LPush(ctx, key, value)
}

func (s *Store) LPushX(ctx context.Context, key, value string) (n int64, err error) {
	defer func(start time.Time) { s.observe("lpushx", start, err) }(time.Now())
	return s.next.LPushX(ctx, key, value)
}

func (s *Store) LRange(ctx context.Context, key string, start, stop int64) (values []string, err error) {
	defer func(begin time.Time) { s.observe("lrange", begin, err) }(time.Now())
	return s.next.LRange(ctx, key, start, stop)
}

func (s *Store) LRem(ctx context.Context, key string, count int64, value string) (n int64, err error) {
	defer func(start time.Time) { s.observe("lrem", start, err) }(time.Now())
	return s.next.LRem(ctx, key, count, value)
}

func (s *Store) ZAdd(ctx context.Context, key string, members ...string) (n int64, err error) {
	defer func(start time.Time) { s.observe("zadd", start, err) }(time.Now())
	return s.next.ZAdd(ctx, key, members...)
}

func (s *Store) ZRem(ctx context.Context, key string, members ...string) (n int64, err error) {
	defer func(start time.Time) { s.observe("zrem", start, err) }(time.Now())
	return s.next.ZRem(ctx, key, members...)
}

func (s *Store) ZRank(ctx context.Context, key, member string) (rank int64, ok bool, err error) {
	defer func(start time.Time) { s.observe("zrank", start, err) }(time.Now())
	return s.next.ZRank(ctx, key, member)
}

func (s *Store) ZRange(ctx context.Context, key string, start, stop int64) (members []string, err error) {
	defer func(begin time.Time) { s.observe("zrange", begin, err) }(time.Now())
	return s.next.ZRange(ctx, key, start, stop)
}

func (s *Store) SAdd(ctx context.Context, key string, members ...string) (n int64, err error) {
	defer func(start time.Time) { s.observe("sadd", start, err) }(time.Now())
	return s.next.SAdd(ctx, key, members...)
}

func (s *Store) SRem(ctx context.Context, key string, members ...string) (n int64, err error) {
	defer func(start time.Time) { s.observe("srem", start, err) }(time.Now())
	return s.next.SRem(ctx, key, members...)
}

func (s *Store) SMembers(ctx context.Context, key string) (members []string, err error) {
	defer func(start time.Time) { s.observe("smembers", start, err) }(time.Now())
	return s.next.SMembers(ctx, key)
}

// Ensure interface compliance
var _ ports.Store = (*Store)(nil)
