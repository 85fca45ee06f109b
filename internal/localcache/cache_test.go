package localcache

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"

	"github.com/medfocus/medgenie/internal/material"
)

// newTestCache creates a Cache backed by a real SQLite database in a
// temporary directory, cleaned up when the test finishes.
func newTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cache.db")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	cache, err := Open(path, ttl, log)
	require.NoError(t, err)

	t.Cleanup(func() {
		cache.Close()
	})

	return cache
}

func makeEntry(summary string, createdAt time.Time) *material.CachedEntry {
	return &material.CachedEntry{
		Content: material.Content{
			Summary:   summary,
			KeyPoints: []string{"ponto um"},
			Flashcards: []material.Flashcard{
				{Front: "frente", Back: "verso"},
			},
			Quiz: []material.QuizQuestion{{
				Question:     "Pergunta?",
				Options:      []string{"a", "b"},
				CorrectIndex: 0,
				Explanation:  "porque sim",
			}},
			VisualPrompt: "diagrama",
		},
		Research:  "pesquisa",
		CreatedAt: createdAt,
		RecordID:  fn.None[string](),
	}
}

// TestCacheMissOnEmpty verifies that an absent key reads as (nil, nil),
// not an error.
func TestCacheMissOnEmpty(t *testing.T) {
	cache := newTestCache(t, time.Hour)

	entry, err := cache.Get(context.Background(), "material:usp:1:Anatomia")
	require.NoError(t, err)
	require.Nil(t, entry)
}

// TestCacheRoundTrip verifies that a stored entry comes back intact,
// including the nested artifact structures and the record ID.
func TestCacheRoundTrip(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()

	created := time.Now().Truncate(time.Second)
	want := makeEntry("Resumo de Anatomia.", created)
	want.RecordID = fn.Some("rec-42")
	want.AccessCount = 3

	key := "material:usp:1:Anatomia"
	require.NoError(t, cache.Put(ctx, key, want))

	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)

	require.Equal(t, want.Content, got.Content)
	require.Equal(t, want.Research, got.Research)
	require.Equal(t, "rec-42", got.RecordID.UnwrapOr(""))
	require.Equal(t, int64(3), got.AccessCount)
	require.True(t, created.Equal(got.CreatedAt))
}

// TestCacheLastWriteWins verifies that Put unconditionally replaces an
// existing entry for the same key.
func TestCacheLastWriteWins(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()

	key := "material:usp:2:Fisiologia"
	require.NoError(t, cache.Put(
		ctx, key, makeEntry("primeira versão", time.Now()),
	))
	require.NoError(t, cache.Put(
		ctx, key, makeEntry("segunda versão", time.Now()),
	))

	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "segunda versão", got.Content.Summary)
}

// TestCacheTTLExpiry verifies lazy expiry: an entry older than the TTL
// reads as a miss and is physically deleted as a side effect.
func TestCacheTTLExpiry(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()

	key := "material:usp:1:Anatomia"
	stale := makeEntry("velho", time.Now().Add(-2*time.Hour))
	require.NoError(t, cache.Put(ctx, key, stale))

	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.Nil(t, got)

	// The expired row is gone: a count over the table shows zero.
	var count int
	require.NoError(t, cache.db.QueryRow(
		"SELECT COUNT(*) FROM materials_cache",
	).Scan(&count))
	require.Zero(t, count)
}

// TestCacheFreshEntrySurvives verifies that an entry inside the TTL
// window is served, not evicted.
func TestCacheFreshEntrySurvives(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()

	key := "material:usp:1:Anatomia"
	fresh := makeEntry("novo", time.Now().Add(-30*time.Minute))
	require.NoError(t, cache.Put(ctx, key, fresh))

	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "novo", got.Content.Summary)
}

// TestCacheEvict verifies explicit eviction, including eviction of a
// key that does not exist.
func TestCacheEvict(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()

	key := "material:usp:3:Farmacologia"
	require.NoError(t, cache.Put(ctx, key, makeEntry("x", time.Now())))
	require.NoError(t, cache.Evict(ctx, key))

	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.Nil(t, got)

	// Evicting an absent key is a no-op, not an error.
	require.NoError(t, cache.Evict(ctx, "material:none:1:x"))
}

// TestCacheCorruptPayload verifies that an undecodable payload is
// evicted and surfaced as an error so the caller treats it as a miss.
func TestCacheCorruptPayload(t *testing.T) {
	cache := newTestCache(t, time.Hour)
	ctx := context.Background()

	key := "material:usp:1:Anatomia"
	_, err := cache.db.Exec(
		"INSERT INTO materials_cache (cache_key, payload, created_at) "+
			"VALUES (?, ?, ?)",
		key, []byte("{not json"), time.Now().Unix(),
	)
	require.NoError(t, err)

	_, err = cache.Get(ctx, key)
	require.Error(t, err)

	// The corrupt row was dropped; the next read is a clean miss.
	got, err := cache.Get(ctx, key)
	require.NoError(t, err)
	require.Nil(t, got)
}

// TestCachePersistsAcrossReopen verifies that the cache file survives a
// close and reopen, since the tier is meant to outlive the process.
func TestCachePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.db")
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	first, err := Open(path, time.Hour, log)
	require.NoError(t, err)

	key := "material:usp:4:Pediatria"
	require.NoError(t, first.Put(
		ctx, key, makeEntry("persistente", time.Now()),
	))
	require.NoError(t, first.Close())

	second, err := Open(path, time.Hour, log)
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })

	got, err := second.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "persistente", got.Content.Summary)
}
