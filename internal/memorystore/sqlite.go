package memorystore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteStore is Backend B (embedded file DB, §4.9). The driver is
// single-writer, so every mutating method is serialized through mu;
// reads proceed without it. Expired rows are swept lazily, on the next
// touch of the same key; that sweep's DELETE runs outside mu.
type sqliteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (creating if needed) the embedded-DB backend at
// path and ensures its schema exists.
func NewSQLiteStore(path string) (Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("memorystore: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &sqliteStore{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *sqliteStore) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS kv_store (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			expires_at INTEGER,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS list_store (
			key TEXT NOT NULL,
			idx INTEGER NOT NULL,
			value TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (key, idx)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("memorystore: ensure schema: %w", err)
		}
	}
	return nil
}

// sweepKey deletes key from kv_store if it has expired. Called lazily
// on every touch of that key, per §4.9.
func (s *sqliteStore) sweepKey(key string) {
	_, _ = s.db.Exec(`DELETE FROM kv_store WHERE key=? AND expires_at IS NOT NULL AND expires_at <= ?`, key, time.Now().Unix())
}

func (s *sqliteStore) Get(ctx context.Context, key string) (string, bool, error) {
	s.sweepKey(key)
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key=?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *sqliteStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expiresAt any
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl).Unix()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO kv_store (key, value, expires_at, created_at) VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, expires_at=excluded.expires_at, created_at=excluded.created_at
`, key, value, expiresAt, time.Now().Unix())
	return err
}

func (s *sqliteStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key=?`, key)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `DELETE FROM list_store WHERE key=?`, key)
	return err
}

func (s *sqliteStore) Exists(ctx context.Context, key string) (bool, error) {
	_, ok, err := s.Get(ctx, key)
	return ok, err
}

func (s *sqliteStore) GetJSON(ctx context.Context, key string, out any) (bool, error) {
	v, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal([]byte(v), out); err != nil {
		return false, nil
	}
	return true, nil
}

func (s *sqliteStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	enc, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, string(enc), ttl)
}

func (s *sqliteStore) RPush(ctx context.Context, key string, value string) error {
	return s.pushAt(ctx, key, value, false)
}

func (s *sqliteStore) LPush(ctx context.Context, key string, value string) error {
	return s.pushAt(ctx, key, value, true)
}

func (s *sqliteStore) pushAt(ctx context.Context, key, value string, front bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if front {
		if _, err := tx.ExecContext(ctx, `UPDATE list_store SET idx = idx + 1 WHERE key=?`, key); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO list_store (key, idx, value, created_at) VALUES (?, 0, ?, ?)`, key, value, time.Now().Unix()); err != nil {
			return err
		}
	} else {
		var next int
		err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(idx)+1, 0) FROM list_store WHERE key=?`, key).Scan(&next)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO list_store (key, idx, value, created_at) VALUES (?, ?, ?, ?)`, key, next, value, time.Now().Unix()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqliteStore) LRange(ctx context.Context, key string, start, end int) ([]string, error) {
	n, err := s.LLen(ctx, key)
	if err != nil || n == 0 {
		return nil, err
	}
	lo, hi := normalizeRange(start, end, n)
	if lo > hi {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT value FROM list_store WHERE key=? AND idx BETWEEN ? AND ? ORDER BY idx`, key, lo, hi)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *sqliteStore) LLen(ctx context.Context, key string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM list_store WHERE key=?`, key).Scan(&n)
	return n, err
}

// LTrim retains the inclusive [start,end] range and re-indexes the
// survivors to a dense 0..len-1 range, per §4.9's invariant.
func (s *sqliteStore) LTrim(ctx context.Context, key string, start, end int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM list_store WHERE key=?`, key).Scan(&n); err != nil {
		return err
	}
	lo, hi := normalizeRange(start, end, n)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT idx, value, created_at FROM list_store WHERE key=? AND idx BETWEEN ? AND ? ORDER BY idx`, key, lo, hi)
	if err != nil {
		return err
	}
	type row struct {
		value     string
		createdAt int64
	}
	var kept []row
	for rows.Next() {
		var r row
		var idx int
		if err := rows.Scan(&idx, &r.value, &r.createdAt); err != nil {
			rows.Close()
			return err
		}
		kept = append(kept, r)
	}
	rows.Close()

	if _, err := tx.ExecContext(ctx, `DELETE FROM list_store WHERE key=?`, key); err != nil {
		return err
	}
	for i, r := range kept {
		if _, err := tx.ExecContext(ctx, `INSERT INTO list_store (key, idx, value, created_at) VALUES (?, ?, ?, ?)`, key, i, r.value, r.createdAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Expire sets the expiry of a kv_store key. List keys carry no
// expiration in this backend, so Expire on a list key has no effect.
func (s *sqliteStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `UPDATE kv_store SET expires_at=? WHERE key=?`, time.Now().Add(ttl).Unix(), key)
	return err
}

func (s *sqliteStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	s.sweepKey(key)
	var expiresAt sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT expires_at FROM kv_store WHERE key=?`, key).Scan(&expiresAt)
	if err == sql.ErrNoRows {
		return -2 * time.Second, nil
	}
	if err != nil {
		return -2 * time.Second, err
	}
	if !expiresAt.Valid {
		return -1 * time.Second, nil
	}
	remaining := time.Unix(expiresAt.Int64, 0).Sub(time.Now())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

func (s *sqliteStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok, err := s.Get(ctx, key)
	if err != nil {
		return 0, err
	}
	var n int64
	if ok {
		fmt.Sscanf(v, "%d", &n)
	}
	n++
	_, err = s.db.ExecContext(ctx, `
INSERT INTO kv_store (key, value, expires_at, created_at) VALUES (?, ?, NULL, ?)
ON CONFLICT(key) DO UPDATE SET value=excluded.value
`, key, fmt.Sprintf("%d", n), time.Now().Unix())
	return n, err
}

func (s *sqliteStore) Keys(ctx context.Context, pattern string) ([]string, error) {
	like := strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`, "*", "%").Replace(pattern)
	rows, err := s.db.QueryContext(ctx, `SELECT key FROM kv_store WHERE key LIKE ? ESCAPE '\'`, like)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *sqliteStore) FlushAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv_store`); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM list_store`)
	return err
}
