// Package localcache implements the device-scoped ephemeral cache
// tier: a single-file SQLite key-value store with a lazy TTL. It
// survives process restarts but is never a source of truth — every
// failure is reported to the caller, who is expected to carry on as if
// the operation were a miss or a no-op.
package localcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/medfocus/medgenie/internal/material"
)

// cacheDDL is the schema for the local cache database, applied with
// CREATE TABLE IF NOT EXISTS at open so the cache file initializes
// independently of any migration system.
const cacheDDL = `
CREATE TABLE IF NOT EXISTS materials_cache (
    cache_key TEXT PRIMARY KEY,
    payload BLOB NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_materials_cache_created
    ON materials_cache(created_at);
`

// storedEntry is the serialized form of a cache entry. CreatedAt is
// duplicated into its own column so expiry checks never need to parse
// the payload.
type storedEntry struct {
	Content     material.Content `json:"content"`
	Research    string           `json:"research"`
	CreatedAt   time.Time        `json:"createdAt"`
	RecordID    *string          `json:"recordId,omitempty"`
	AccessCount int64            `json:"accessCount,omitempty"`
}

// Cache is a TTL-bounded SQLite-backed key-value store.
//
// Cache implements material.LocalCache.
type Cache struct {
	db  *sql.DB
	ttl time.Duration
	log *slog.Logger
}

// DefaultCachePath returns the default location of the local cache
// database.
func DefaultCachePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(home, ".medgenie", "cache.db"), nil
}

// Open opens (creating if needed) the cache database at the given path.
func Open(path string, ttl time.Duration, log *slog.Logger) (*Cache, error) {
	if log == nil {
		log = slog.Default()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w",
			err)
	}

	dsn := fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_busy_timeout=5000", path,
	)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w",
			err)
	}

	// Single writer, multiple readers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(cacheDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply cache schema: %w", err)
	}

	return &Cache{
		db:  db,
		ttl: ttl,
		log: log.With("component", "localcache"),
	}, nil
}

// Get returns the cached entry for the key, or nil when absent. An
// entry past its TTL is treated as absent and deleted as a side effect
// rather than waiting for a sweeper.
func (c *Cache) Get(ctx context.Context, key string) (
	*material.CachedEntry, error) {

	var (
		payload   []byte
		createdAt int64
	)
	err := c.db.QueryRowContext(ctx,
		"SELECT payload, created_at FROM materials_cache "+
			"WHERE cache_key = ?", key,
	).Scan(&payload, &createdAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("cache read: %w", err)
	}

	created := time.Unix(createdAt, 0)
	if time.Since(created) > c.ttl {
		if err := c.Evict(ctx, key); err != nil {
			c.log.Warn("Failed to evict expired entry",
				"key", key, "error", err)
		}
		return nil, nil
	}

	var stored storedEntry
	if err := json.Unmarshal(payload, &stored); err != nil {
		// A corrupt payload is unusable; drop it so the next
		// lookup regenerates.
		if evictErr := c.Evict(ctx, key); evictErr != nil {
			c.log.Warn("Failed to evict corrupt entry",
				"key", key, "error", evictErr)
		}
		return nil, fmt.Errorf("cache decode: %w", err)
	}

	entry := &material.CachedEntry{
		Content:     stored.Content,
		Research:    stored.Research,
		CreatedAt:   stored.CreatedAt,
		RecordID:    fn.None[string](),
		AccessCount: stored.AccessCount,
	}
	if stored.RecordID != nil {
		entry.RecordID = fn.Some(*stored.RecordID)
	}

	return entry, nil
}

// Put stores the entry under the key, unconditionally replacing any
// previous entry (last-write-wins).
func (c *Cache) Put(ctx context.Context, key string,
	entry *material.CachedEntry) error {

	stored := storedEntry{
		Content:     entry.Content,
		Research:    entry.Research,
		CreatedAt:   entry.CreatedAt,
		AccessCount: entry.AccessCount,
	}
	entry.RecordID.WhenSome(func(id string) {
		stored.RecordID = &id
	})

	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	_, err = c.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO materials_cache "+
			"(cache_key, payload, created_at) VALUES (?, ?, ?)",
		key, payload, entry.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("cache write: %w", err)
	}

	return nil
}

// Evict removes the entry for the key, if any.
func (c *Cache) Evict(ctx context.Context, key string) error {
	_, err := c.db.ExecContext(ctx,
		"DELETE FROM materials_cache WHERE cache_key = ?", key,
	)
	if err != nil {
		return fmt.Errorf("cache evict: %w", err)
	}

	return nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Compile-time interface check.
var _ material.LocalCache = (*Cache)(nil)
