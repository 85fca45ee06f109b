package material

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
)

// mockLocalCache is an in-memory LocalCache for testing the service
// layer. TTL handling lives in the real implementation; the mock just
// stores whatever it is given.
type mockLocalCache struct {
	mu      sync.Mutex
	entries map[string]*CachedEntry

	getErr error
	putErr error
}

func newMockLocalCache() *mockLocalCache {
	return &mockLocalCache{entries: make(map[string]*CachedEntry)}
}

func (m *mockLocalCache) Get(_ context.Context, key string) (
	*CachedEntry, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return nil, m.getErr
	}

	return m.entries[key], nil
}

func (m *mockLocalCache) Put(_ context.Context, key string,
	entry *CachedEntry) error {

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.putErr != nil {
		return m.putErr
	}
	m.entries[key] = entry

	return nil
}

func (m *mockLocalCache) Evict(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)

	return nil
}

func (m *mockLocalCache) get(key string) *CachedEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.entries[key]
}

// mockRemoteStore is an in-memory RemoteStore keyed by cache key.
type mockRemoteStore struct {
	mu      sync.Mutex
	entries map[string]*CachedEntry

	findCalls int
	saveCalls int
	findErr   error
	saveErr   error

	// saved is signalled once per successful Save so tests can wait
	// for the detached write-back.
	saved chan struct{}
}

func newMockRemoteStore() *mockRemoteStore {
	return &mockRemoteStore{
		entries: make(map[string]*CachedEntry),
		saved:   make(chan struct{}, 16),
	}
}

func (m *mockRemoteStore) Find(_ context.Context, key MaterialKey) (
	*CachedEntry, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	m.findCalls++
	if m.findErr != nil {
		return nil, m.findErr
	}

	entry := m.entries[key.CacheKey()]
	if entry == nil {
		return nil, nil
	}

	// Reads bump the access count, like the real store.
	entry.AccessCount++

	return entry, nil
}

func (m *mockRemoteStore) Save(_ context.Context, key MaterialKey,
	_ string, content Content, research fn.Option[string]) (
	string, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveCalls++
	if m.saveErr != nil {
		return "", m.saveErr
	}

	m.entries[key.CacheKey()] = &CachedEntry{
		Content:   content,
		Research:  research.UnwrapOr(""),
		CreatedAt: time.Now(),
		RecordID:  fn.Some("rec-1"),
	}
	m.saved <- struct{}{}

	return "rec-1", nil
}

func (m *mockRemoteStore) ListRecent(_ context.Context, _ int) (
	[]HistoryItem, error) {

	return nil, nil
}

func (m *mockRemoteStore) Rate(_ context.Context, _ string,
	_ int) error {

	return nil
}

func (m *mockRemoteStore) counts() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.findCalls, m.saveCalls
}

// mockGenerator counts backend calls and returns canned results. An
// optional release channel holds the primary call open until the test
// closes it, for exercising concurrency and cancellation.
type mockGenerator struct {
	mu            sync.Mutex
	contentCalls  int
	researchCalls int

	contentErr  error
	researchErr error
	release     chan struct{}
}

func (m *mockGenerator) GenerateContent(ctx context.Context,
	req GenerateRequest) (*Content, error) {

	m.mu.Lock()
	m.contentCalls++
	release := m.release
	err := m.contentErr
	m.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}

	return &Content{
		Summary:      "Resumo de " + req.SubjectName,
		KeyPoints:    []string{"ponto um", "ponto dois"},
		VisualPrompt: "diagrama",
	}, nil
}

func (m *mockGenerator) FetchResearch(_ context.Context,
	topic string) (string, error) {

	m.mu.Lock()
	defer m.mu.Unlock()

	m.researchCalls++
	if m.researchErr != nil {
		return "", m.researchErr
	}

	return "Artigos recentes sobre " + topic, nil
}

func (m *mockGenerator) calls() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.contentCalls, m.researchCalls
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testKey() MaterialKey {
	return MaterialKey{
		InstitutionID: "usp",
		SubjectName:   "Anatomia",
		YearLevel:     1,
	}
}

func testEntry() *CachedEntry {
	return &CachedEntry{
		Content: Content{
			Summary:   "cached",
			KeyPoints: []string{"kp"},
		},
		Research:  "cached research",
		CreatedAt: time.Now(),
		RecordID:  fn.None[string](),
	}
}

// TestLookupLocalHit verifies that a fresh local entry short-circuits
// the pipeline: no remote read, no generation.
func TestLookupLocalHit(t *testing.T) {
	local := newMockLocalCache()
	remote := newMockRemoteStore()
	gen := &mockGenerator{}

	key := testKey()
	want := testEntry()
	local.entries[key.CacheKey()] = want

	svc := NewService(DefaultConfig(), local, remote, gen, testLogger())

	got, err := svc.Lookup(context.Background(), key, "USP")
	require.NoError(t, err)
	require.Equal(t, want, got)

	findCalls, _ := remote.counts()
	require.Zero(t, findCalls)

	contentCalls, _ := gen.calls()
	require.Zero(t, contentCalls)
}

// TestLookupRemoteHit verifies tier precedence on a local miss: the
// remote entry is served, the local cache is refreshed, and generation
// never runs.
func TestLookupRemoteHit(t *testing.T) {
	local := newMockLocalCache()
	remote := newMockRemoteStore()
	gen := &mockGenerator{}

	key := testKey()
	remote.entries[key.CacheKey()] = &CachedEntry{
		Content: Content{
			Summary:   "remote",
			KeyPoints: []string{"kp"},
		},
		Research: "remote research",
		RecordID: fn.Some("rec-7"),
	}

	svc := NewService(DefaultConfig(), local, remote, gen, testLogger())

	got, err := svc.Lookup(context.Background(), key, "USP")
	require.NoError(t, err)
	require.Equal(t, "remote", got.Content.Summary)
	require.Equal(t, int64(1), got.AccessCount)

	// The hit re-seeds the local tier.
	require.NotNil(t, local.get(key.CacheKey()))

	contentCalls, _ := gen.calls()
	require.Zero(t, contentCalls)
}

// TestLookupGenerates verifies the full-miss path end to end: both
// backend calls run, the entry is cached locally, and the remote
// write-back lands without the caller waiting on it.
func TestLookupGenerates(t *testing.T) {
	local := newMockLocalCache()
	remote := newMockRemoteStore()
	gen := &mockGenerator{}

	key := testKey()
	svc := NewService(DefaultConfig(), local, remote, gen, testLogger())

	got, err := svc.Lookup(context.Background(), key, "USP")
	require.NoError(t, err)
	require.Equal(t, "Resumo de Anatomia", got.Content.Summary)
	require.Contains(t, got.Research, "Anatomia")
	require.False(t, got.RecordID.IsSome())

	contentCalls, researchCalls := gen.calls()
	require.Equal(t, 1, contentCalls)
	require.Equal(t, 1, researchCalls)

	// Local write is synchronous.
	require.NotNil(t, local.get(key.CacheKey()))

	// Remote write is detached; wait for it.
	select {
	case <-remote.saved:
	case <-time.After(5 * time.Second):
		t.Fatal("detached remote write never happened")
	}
}

// TestLookupRoundTrip verifies that a generated artifact is served from
// the local cache on the next lookup without a second backend call.
func TestLookupRoundTrip(t *testing.T) {
	local := newMockLocalCache()
	gen := &mockGenerator{}

	key := testKey()
	svc := NewService(DefaultConfig(), local, nil, gen, testLogger())

	first, err := svc.Lookup(context.Background(), key, "USP")
	require.NoError(t, err)

	second, err := svc.Lookup(context.Background(), key, "USP")
	require.NoError(t, err)
	require.Equal(t, first, second)

	contentCalls, _ := gen.calls()
	require.Equal(t, 1, contentCalls)
}

// TestLookupSingleFlight verifies at-most-once generation: concurrent
// lookups for the same key attach to one in-flight backend call and all
// receive the same artifact.
func TestLookupSingleFlight(t *testing.T) {
	local := newMockLocalCache()
	gen := &mockGenerator{release: make(chan struct{})}

	key := testKey()
	svc := NewService(DefaultConfig(), local, nil, gen, testLogger())

	const callers = 8

	var wg sync.WaitGroup
	results := make([]*CachedEntry, callers)
	errs := make([]error, callers)

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.Lookup(
				context.Background(), key, "USP",
			)
		}(i)
	}

	// Let all callers attach before releasing the backend.
	require.Eventually(t, func() bool {
		calls, _ := gen.calls()
		return calls >= 1
	}, 5*time.Second, 10*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(gen.release)

	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Same(t, results[0], results[i])
	}

	contentCalls, _ := gen.calls()
	require.Equal(t, 1, contentCalls)
}

// TestLookupResearchDegrades verifies partial-failure degradation: a
// failed supplementary call yields the fixed placeholder while the
// primary artifact is still cached and returned as a success.
func TestLookupResearchDegrades(t *testing.T) {
	local := newMockLocalCache()
	gen := &mockGenerator{
		researchErr: errors.New("search backend down"),
	}

	key := testKey()
	svc := NewService(DefaultConfig(), local, nil, gen, testLogger())

	got, err := svc.Lookup(context.Background(), key, "USP")
	require.NoError(t, err)
	require.Equal(t, ResearchUnavailable, got.Research)
	require.Equal(t, "Resumo de Anatomia", got.Content.Summary)

	// The degraded entry is cached as-is, placeholder included.
	cached := local.get(key.CacheKey())
	require.NotNil(t, cached)
	require.Equal(t, ResearchUnavailable, cached.Research)
}

// TestLookupPrimaryFailureAborts verifies that a failed primary call
// surfaces a classified error and persists nothing, even when the
// supplementary call succeeded.
func TestLookupPrimaryFailureAborts(t *testing.T) {
	local := newMockLocalCache()
	remote := newMockRemoteStore()
	gen := &mockGenerator{
		contentErr: errors.New("model returned garbage"),
	}

	key := testKey()
	svc := NewService(DefaultConfig(), local, remote, gen, testLogger())

	_, err := svc.Lookup(context.Background(), key, "USP")
	require.ErrorIs(t, err, ErrGenerationFailed)

	require.Nil(t, local.get(key.CacheKey()))

	_, saveCalls := remote.counts()
	require.Zero(t, saveCalls)
}

// TestLookupQuotaClassification verifies that quota-flavored backend
// failures surface as ErrQuotaExceeded through the full lookup path.
func TestLookupQuotaClassification(t *testing.T) {
	local := newMockLocalCache()
	gen := &mockGenerator{
		contentErr: errors.New("429 quota exceeded for model"),
	}

	svc := NewService(DefaultConfig(), local, nil, gen, testLogger())

	_, err := svc.Lookup(context.Background(), testKey(), "USP")
	require.ErrorIs(t, err, ErrQuotaExceeded)
	require.NotErrorIs(t, err, ErrGenerationFailed)
}

// TestLookupCallerAbandon verifies that cancelling a caller returns its
// context error while the shared generation keeps running and still
// populates the local cache.
func TestLookupCallerAbandon(t *testing.T) {
	local := newMockLocalCache()
	gen := &mockGenerator{release: make(chan struct{})}

	key := testKey()
	svc := NewService(DefaultConfig(), local, nil, gen, testLogger())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := svc.Lookup(ctx, key, "USP")
		done <- err
	}()

	// Wait until the backend call is in flight, then abandon.
	require.Eventually(t, func() bool {
		calls, _ := gen.calls()
		return calls >= 1
	}, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("abandoned caller never returned")
	}

	// The detached generation finishes and the cache still fills.
	close(gen.release)
	require.Eventually(t, func() bool {
		return local.get(key.CacheKey()) != nil
	}, 5*time.Second, 10*time.Millisecond)
}

// TestLookupLocalReadFailureDegrades verifies that a broken local cache
// counts as a miss rather than failing the lookup.
func TestLookupLocalReadFailureDegrades(t *testing.T) {
	local := newMockLocalCache()
	local.getErr = errors.New("disk on fire")
	remote := newMockRemoteStore()
	gen := &mockGenerator{}

	key := testKey()
	remote.entries[key.CacheKey()] = &CachedEntry{
		Content: Content{
			Summary:   "remote",
			KeyPoints: []string{"kp"},
		},
	}

	svc := NewService(DefaultConfig(), local, remote, gen, testLogger())

	got, err := svc.Lookup(context.Background(), key, "USP")
	require.NoError(t, err)
	require.Equal(t, "remote", got.Content.Summary)
}

// TestLookupRemoteReadFailureDegrades verifies that a broken remote
// tier falls through to generation instead of surfacing the error.
func TestLookupRemoteReadFailureDegrades(t *testing.T) {
	local := newMockLocalCache()
	remote := newMockRemoteStore()
	remote.findErr = errors.New("network partition")
	gen := &mockGenerator{}

	svc := NewService(DefaultConfig(), local, remote, gen, testLogger())

	got, err := svc.Lookup(context.Background(), testKey(), "USP")
	require.NoError(t, err)
	require.NotNil(t, got)

	contentCalls, _ := gen.calls()
	require.Equal(t, 1, contentCalls)
}

// TestLookupUnauthenticated walks the canonical guest scenario: no
// remote tier, first lookup generates with a failed research call,
// ends with the placeholder digest and a populated local cache.
func TestLookupUnauthenticated(t *testing.T) {
	local := newMockLocalCache()
	gen := &mockGenerator{
		researchErr: errors.New("tool unavailable"),
	}

	key := MaterialKey{
		InstitutionID: "usp",
		SubjectName:   "Anatomia",
		YearLevel:     1,
	}

	svc := NewService(DefaultConfig(), local, nil, gen, testLogger())

	got, err := svc.Lookup(context.Background(), key, "USP")
	require.NoError(t, err)
	require.NotEmpty(t, got.Content.Summary)
	require.Equal(t, ResearchUnavailable, got.Research)
	require.False(t, got.RecordID.IsSome())

	require.NotNil(t, local.get(key.CacheKey()))

	// No remote tier, so history is empty and rating fails.
	items, err := svc.History(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, items)

	require.Error(t, svc.Rate(context.Background(), "rec-1", 80))
}

// TestLookupInvalidKey verifies that validation failures surface before
// any tier is consulted.
func TestLookupInvalidKey(t *testing.T) {
	local := newMockLocalCache()
	gen := &mockGenerator{}

	svc := NewService(DefaultConfig(), local, nil, gen, testLogger())

	_, err := svc.Lookup(context.Background(), MaterialKey{
		InstitutionID: "usp",
		SubjectName:   "Anatomia",
		YearLevel:     0,
	}, "USP")
	require.Error(t, err)

	contentCalls, _ := gen.calls()
	require.Zero(t, contentCalls)
}

// TestLookupInvalidGeneratedContent verifies that a structurally
// invalid artifact from the backend is rejected as a generation
// failure and never cached.
func TestLookupInvalidGeneratedContent(t *testing.T) {
	local := newMockLocalCache()
	gen := &invalidContentGenerator{}

	key := testKey()
	svc := NewService(DefaultConfig(), local, nil, gen, testLogger())

	_, err := svc.Lookup(context.Background(), key, "USP")
	require.ErrorIs(t, err, ErrGenerationFailed)
	require.Nil(t, local.get(key.CacheKey()))
}

// invalidContentGenerator returns an envelope that fails validation.
type invalidContentGenerator struct{}

func (g *invalidContentGenerator) GenerateContent(_ context.Context,
	_ GenerateRequest) (*Content, error) {

	return &Content{}, nil
}

func (g *invalidContentGenerator) FetchResearch(_ context.Context,
	_ string) (string, error) {

	return "ok", nil
}
