// Package sqlite implements the primitive store contract on SQLite, either a
// local database through modernc.org/sqlite or a remote Turso/libSQL
// database. Every mutating call runs in its own transaction, which gives the
// same per-key atomicity as a single Redis command.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	_ "modernc.org/sqlite"                              // Local SQLite driver

	"github.com/wadjakorntonsri/custom-links/pkg/adapters/store"
	"github.com/wadjakorntonsri/custom-links/pkg/ports"
)

const (
	kindHash = "hash"
	kindList = "list"
	kindZSet = "zset"
	kindSet  = "set"
)

// tables maps a value kind to the table holding its elements.
var tables = map[string]string{
	kindHash: "kv_hash",
	kindList: "kv_list",
	kindZSet: "kv_zset",
	kindSet:  "kv_set",
}

type SQLiteStore struct {
	db *sql.DB
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewSQLiteStore(dbURL string) (*SQLiteStore, error) {
	driverName := "sqlite"
	if strings.Contains(dbURL, "libsql://") || strings.Contains(dbURL, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dbURL)
	if err != nil {
		return nil, err
	}
	// SQLite allows a single writer; one connection serializes transactions
	// instead of failing them with SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	query := `
	-- seq orders scans; AUTOINCREMENT never hands out a number twice
	CREATE TABLE IF NOT EXISTS kv_keys (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		key TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS kv_hash (
		key TEXT NOT NULL,
		field TEXT NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (key, field)
	);

	CREATE TABLE IF NOT EXISTS kv_list (
		key TEXT NOT NULL,
		pos INTEGER NOT NULL,
		value TEXT NOT NULL,
		PRIMARY KEY (key, pos)
	);

	CREATE TABLE IF NOT EXISTS kv_zset (
		key TEXT NOT NULL,
		member TEXT NOT NULL,
		PRIMARY KEY (key, member)
	);

	CREATE TABLE IF NOT EXISTS kv_set (
		key TEXT NOT NULL,
		member TEXT NOT NULL,
		PRIMARY KEY (key, member)
	);
	`
	_, err := db.Exec(query)
	return err
}

// Close closes the database handle.
func (r *SQLiteStore) Close() error {
	return r.db.Close()
}

func (r *SQLiteStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// kindOf returns the kind registered for key, or "" when the key is absent.
func kindOf(ctx context.Context, q querier, key string) (string, error) {
	var kind string
	err := q.QueryRowContext(ctx, `SELECT kind FROM kv_keys WHERE key = ?`, key).Scan(&kind)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return kind, err
}

// claim registers key as holding kind, failing if it already holds another.
func claim(ctx context.Context, q querier, key, kind string) error {
	current, err := kindOf(ctx, q, key)
	if err != nil {
		return err
	}
	switch current {
	case kind:
		return nil
	case "":
		_, err = q.ExecContext(ctx, `INSERT INTO kv_keys (key, kind) VALUES (?, ?)`, key, kind)
		return err
	default:
		return store.ErrWrongType
	}
}

// existing reports whether key holds kind, failing if it holds another.
func existing(ctx context.Context, q querier, key, kind string) (bool, error) {
	current, err := kindOf(ctx, q, key)
	if err != nil {
		return false, err
	}
	if current == "" {
		return false, nil
	}
	if current != kind {
		return false, store.ErrWrongType
	}
	return true, nil
}

// release drops the key registration once its last element is gone.
func release(ctx context.Context, q querier, key, kind string) error {
	var remaining int64
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+tables[kind]+` WHERE key = ?`, key).Scan(&remaining)
	if err != nil {
		return err
	}
	if remaining > 0 {
		return nil
	}
	_, err = q.ExecContext(ctx, `DELETE FROM kv_keys WHERE key = ?`, key)
	return err
}

// Hashes

func (r *SQLiteStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT field, value FROM kv_hash WHERE key = ?`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fields := make(map[string]string)
	for rows.Next() {
		var f, v string
		if err := rows.Scan(&f, &v); err != nil {
			return nil, err
		}
		fields[f] = v
	}
	return fields, rows.Err()
}

func (r *SQLiteStore) HGet(ctx context.Context, key, field string) (string, bool, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM kv_hash WHERE key = ? AND field = ?`, key, field).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (r *SQLiteStore) HSetNX(ctx context.Context, key, field, value string) (bool, error) {
	var set bool
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := claim(ctx, tx, key, kindHash); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO kv_hash (key, field, value) VALUES (?, ?, ?) ON CONFLICT (key, field) DO NOTHING`,
			key, field, value)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		set = n == 1
		return err
	})
	return set, err
}

func (r *SQLiteStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := claim(ctx, tx, key, kindHash); err != nil {
			return err
		}
		return upsertFields(ctx, tx, key, fields)
	})
}

func (r *SQLiteStore) HSetIfExists(ctx context.Context, key string, fields map[string]string) (bool, error) {
	var set bool
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := existing(ctx, tx, key, kindHash)
		if err != nil || !ok {
			return err
		}
		set = true
		return upsertFields(ctx, tx, key, fields)
	})
	return set, err
}

func (r *SQLiteStore) HIncrByIfExists(ctx context.Context, key, field string, delta int64) (int64, bool, error) {
	var (
		value int64
		found bool
	)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := existing(ctx, tx, key, kindHash)
		if err != nil || !ok {
			return err
		}
		var raw string
		err = tx.QueryRowContext(ctx, `SELECT value FROM kv_hash WHERE key = ? AND field = ?`, key, field).Scan(&raw)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return err
		default:
			if value, err = strconv.ParseInt(raw, 10, 64); err != nil {
				return store.ErrNotInteger
			}
		}
		value += delta
		found = true
		return upsertFields(ctx, tx, key, map[string]string{field: strconv.FormatInt(value, 10)})
	})
	return value, found, err
}

func upsertFields(ctx context.Context, tx *sql.Tx, key string, fields map[string]string) error {
	for f, v := range fields {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO kv_hash (key, field, value) VALUES (?, ?, ?)
			 ON CONFLICT (key, field) DO UPDATE SET value = excluded.value`,
			key, f, v)
		if err != nil {
			return err
		}
	}
	return nil
}

// Keys

func (r *SQLiteStore) Exists(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM kv_keys WHERE key = ?)`, key).Scan(&exists)
	return exists, err
}

func (r *SQLiteStore) Del(ctx context.Context, key string) (bool, error) {
	var deleted bool
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		kind, err := kindOf(ctx, tx, key)
		if err != nil || kind == "" {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+tables[kind]+` WHERE key = ?`, key); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv_keys WHERE key = ?`, key); err != nil {
			return err
		}
		deleted = true
		return nil
	})
	return deleted, err
}

// Scan pages through the registered keys in creation order. The cursor is
// the sequence number of the last key examined, so deleting keys between
// calls never moves a surviving key behind it. As with Redis, count bounds
// the keys examined and matching happens afterwards, so a batch may come
// back empty before the end.
func (r *SQLiteStore) Scan(ctx context.Context, cursor uint64, match string, count int64) ([]string, uint64, error) {
	if count <= 0 {
		count = store.DefaultScanCount
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, key FROM kv_keys WHERE seq > ? ORDER BY seq LIMIT ?`, int64(cursor), count)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		keys     []string
		examined int64
		last     int64
	)
	for rows.Next() {
		var k string
		if err := rows.Scan(&last, &k); err != nil {
			return nil, 0, err
		}
		examined++
		if match == "" || store.Match(match, k) {
			keys = append(keys, k)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	var next uint64
	if examined == count {
		next = uint64(last)
	}
	return keys, next, nil
}

// Lists

func (r *SQLiteStore) LPush(ctx context.Context, key, value string) (int64, error) {
	var length int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := claim(ctx, tx, key, kindList); err != nil {
			return err
		}
		var err error
		length, err = pushHead(ctx, tx, key, value)
		return err
	})
	return length, err
}

func (r *SQLiteStore) LPushX(ctx context.Context, key, value string) (int64, error) {
	var length int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := existing(ctx, tx, key, kindList)
		if err != nil || !ok {
			return err
		}
		length, err = pushHead(ctx, tx, key, value)
		return err
	})
	return length, err
}

func pushHead(ctx context.Context, tx *sql.Tx, key, value string) (int64, error) {
	var head int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MIN(pos), 0) FROM kv_list WHERE key = ?`, key).Scan(&head); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO kv_list (key, pos, value) VALUES (?, ?, ?)`, key, head-1, value); err != nil {
		return 0, err
	}
	var length int64
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_list WHERE key = ?`, key).Scan(&length)
	return length, err
}

func (r *SQLiteStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT value FROM kv_list WHERE key = ? ORDER BY pos`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	lo, hi, ok := store.Range(len(values), start, stop)
	if !ok {
		return []string{}, nil
	}
	return values[lo:hi], nil
}

func (r *SQLiteStore) LRem(ctx context.Context, key string, count int64, value string) (int64, error) {
	var removed int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := existing(ctx, tx, key, kindList)
		if err != nil || !ok {
			return err
		}
		order := "ASC"
		limit := count
		if count < 0 {
			order = "DESC"
			limit = -count
		}
		if limit == 0 {
			limit = -1 // SQLite: no limit
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM kv_list WHERE key = ? AND pos IN (
				SELECT pos FROM kv_list WHERE key = ? AND value = ? ORDER BY pos `+order+` LIMIT ?)`,
			key, key, value, limit)
		if err != nil {
			return err
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}
		return release(ctx, tx, key, kindList)
	})
	return removed, err
}

// Ordered sets. Members share one score, so the BINARY collation order of
// the member column is the set order, matching Redis byte-wise ordering.

func (r *SQLiteStore) ZAdd(ctx context.Context, key string, members ...string) (int64, error) {
	return r.addMembers(ctx, key, kindZSet, members)
}

func (r *SQLiteStore) ZRem(ctx context.Context, key string, members ...string) (int64, error) {
	return r.removeMembers(ctx, key, kindZSet, members)
}

func (r *SQLiteStore) ZRank(ctx context.Context, key, member string) (int64, bool, error) {
	var rank int64
	err := r.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM kv_zset WHERE key = ? AND member < ?)
		 WHERE EXISTS (SELECT 1 FROM kv_zset WHERE key = ? AND member = ?)`,
		key, member, key, member).Scan(&rank)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rank, true, nil
}

func (r *SQLiteStore) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	lo, hi := start, stop+1
	if start < 0 || stop < 0 {
		var size int64
		if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_zset WHERE key = ?`, key).Scan(&size); err != nil {
			return nil, err
		}
		l, h, ok := store.Range(int(size), start, stop)
		if !ok {
			return []string{}, nil
		}
		lo, hi = int64(l), int64(h)
	}
	if lo >= hi {
		return []string{}, nil
	}
	return r.members(ctx, `SELECT member FROM kv_zset WHERE key = ? ORDER BY member LIMIT ? OFFSET ?`, key, hi-lo, lo)
}

// Sets

func (r *SQLiteStore) SAdd(ctx context.Context, key string, members ...string) (int64, error) {
	return r.addMembers(ctx, key, kindSet, members)
}

func (r *SQLiteStore) SRem(ctx context.Context, key string, members ...string) (int64, error) {
	return r.removeMembers(ctx, key, kindSet, members)
}

func (r *SQLiteStore) SMembers(ctx context.Context, key string) ([]string, error) {
	return r.members(ctx, `SELECT member FROM kv_set WHERE key = ? ORDER BY member`, key)
}

func (r *SQLiteStore) addMembers(ctx context.Context, key, kind string, members []string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	var added int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := claim(ctx, tx, key, kind); err != nil {
			return err
		}
		for _, m := range members {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO `+tables[kind]+` (key, member) VALUES (?, ?) ON CONFLICT (key, member) DO NOTHING`,
				key, m)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			added += n
		}
		return nil
	})
	return added, err
}

func (r *SQLiteStore) removeMembers(ctx context.Context, key, kind string, members []string) (int64, error) {
	if len(members) == 0 {
		return 0, nil
	}
	var removed int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		ok, err := existing(ctx, tx, key, kind)
		if err != nil || !ok {
			return err
		}
		for _, m := range members {
			res, err := tx.ExecContext(ctx, `DELETE FROM `+tables[kind]+` WHERE key = ? AND member = ?`, key, m)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			removed += n
		}
		return release(ctx, tx, key, kind)
	})
	return removed, err
}

func (r *SQLiteStore) members(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []string{}
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// Ensure interface compliance
var _ ports.Store = (*SQLiteStore)(nil)
