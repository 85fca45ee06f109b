package material

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/sync/singleflight"
)

// Service is the tiered cache-and-generation orchestrator. One lookup
// walks the tiers cheapest-first: local cache, then remote store, then
// generation. Successful generations are written back into both tiers.
//
// The remote store may be nil, which models an unauthenticated caller:
// the tier is then treated as permanently absent and lookups go
// straight from a local miss to generation.
type Service struct {
	cfg    Config
	local  LocalCache
	remote RemoteStore
	gen    Generator
	log    *slog.Logger

	// group coalesces concurrent generations for the same cache key
	// so the backend is called at most once per key at a time.
	group singleflight.Group
}

// NewService creates a material service. local and gen are required;
// remote may be nil for unauthenticated sessions.
func NewService(cfg Config, local LocalCache, remote RemoteStore,
	gen Generator, log *slog.Logger) *Service {

	if log == nil {
		log = slog.Default()
	}

	return &Service{
		cfg:    cfg,
		local:  local,
		remote: remote,
		gen:    gen,
		log:    log.With("component", "material"),
	}
}

// Lookup returns the study artifact for the key, serving it from the
// cheapest tier able to provide it. On a full miss it generates the
// artifact, persists it, and returns it. The only surfaced failures
// are validation errors, caller cancellation, and classified primary
// generation errors; every other failure in the pipeline degrades
// silently.
func (s *Service) Lookup(ctx context.Context, key MaterialKey,
	institutionName string) (*CachedEntry, error) {

	if err := key.Validate(); err != nil {
		return nil, err
	}

	cacheKey := key.CacheKey()

	// Tier 1: local cache. Failures count as misses.
	entry, err := s.local.Get(ctx, cacheKey)
	if err != nil {
		s.log.Warn("Local cache read failed",
			"key", cacheKey, "error", err)
	}
	if entry != nil {
		return entry, nil
	}

	// Tier 2: remote store, authenticated sessions only. Network or
	// server failure degrades to a miss; staleness beats blocking.
	if s.remote != nil {
		entry, err = s.remote.Find(ctx, key)
		if err != nil {
			s.log.Warn("Remote store read failed, treating "+
				"as miss", "key", cacheKey, "error", err)
		}
		if entry != nil {
			s.refreshLocal(ctx, cacheKey, entry)
			return entry, nil
		}
	}

	// Tier 3: generation. Concurrent lookups for the same key attach
	// to a single in-flight generation instead of issuing duplicate
	// backend calls. The generation runs on a context detached from
	// this caller so that abandoning the request does not starve the
	// other attached callers, and so the caches still get populated
	// for the next lookup.
	genCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(cacheKey, func() (any, error) {
		return s.generateAndPersist(genCtx, key, institutionName)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*CachedEntry), nil

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// History returns the caller's remote store entries ordered by recency.
// Unauthenticated sessions have no history.
func (s *Service) History(ctx context.Context, limit int) (
	[]HistoryItem, error) {

	if s.remote == nil {
		return nil, nil
	}

	return s.remote.ListRecent(ctx, limit)
}

// Rate attaches a quality score to a persisted record.
func (s *Service) Rate(ctx context.Context, recordID string,
	score int) error {

	if s.remote == nil {
		return fmt.Errorf("rating requires an authenticated session")
	}

	return s.remote.Rate(ctx, recordID, score)
}

// generateAndPersist runs the full-miss path: both generation calls
// concurrently, then write-back into the cache tiers. It returns a
// classified error if the primary call fails; nothing is persisted in
// that case.
func (s *Service) generateAndPersist(ctx context.Context,
	key MaterialKey, institutionName string) (*CachedEntry, error) {

	depth := DepthInstruction(key.YearLevel)

	req := GenerateRequest{
		SubjectName:      key.SubjectName,
		InstitutionName:  institutionName,
		YearLevel:        key.YearLevel,
		DepthInstruction: depth,
	}

	// Primary artifact and supplementary research are independent:
	// run both concurrently and resume once both have settled.
	type contentResult struct {
		content *Content
		err     error
	}
	type researchResult struct {
		digest string
		err    error
	}

	contentCh := make(chan contentResult, 1)
	researchCh := make(chan researchResult, 1)

	go func() {
		callCtx, cancel := context.WithTimeout(
			ctx, s.cfg.GenerateTimeout,
		)
		defer cancel()

		content, err := s.gen.GenerateContent(callCtx, req)
		contentCh <- contentResult{content: content, err: err}
	}()

	go func() {
		callCtx, cancel := context.WithTimeout(
			ctx, s.cfg.ResearchTimeout,
		)
		defer cancel()

		topic := ResearchTopic(key.SubjectName, depth)
		digest, err := s.gen.FetchResearch(callCtx, topic)
		researchCh <- researchResult{digest: digest, err: err}
	}()

	primary := <-contentCh
	supplementary := <-researchCh

	// Primary failure is fatal for the request: classify, persist
	// nothing, return no partial entry.
	if primary.err != nil {
		return nil, ClassifyGenerationError(primary.err)
	}
	if err := primary.content.Validate(); err != nil {
		return nil, ClassifyGenerationError(err)
	}

	// Supplementary failure degrades to a fixed placeholder.
	research := supplementary.digest
	if supplementary.err != nil {
		s.log.Warn("Research generation failed, substituting "+
			"placeholder", "subject", key.SubjectName,
			"error", supplementary.err)
		research = ResearchUnavailable
	}

	entry := &CachedEntry{
		Content:   *primary.content,
		Research:  research,
		CreatedAt: time.Now(),
		RecordID:  fn.None[string](),
	}

	s.persist(ctx, key, institutionName, entry)

	return entry, nil
}

// persist is the write-back path: local cache first (cheap, best
// effort), remote store second and detached so no caller waits on the
// durable write. Neither failure alters the entry handed back to the
// caller.
func (s *Service) persist(ctx context.Context, key MaterialKey,
	institutionName string, entry *CachedEntry) {

	cacheKey := key.CacheKey()

	if err := s.local.Put(ctx, cacheKey, entry); err != nil {
		s.log.Warn("Local cache write failed",
			"key", cacheKey, "error", err)
	}

	if s.remote == nil {
		return
	}

	// Fire-and-forget: the user already holds a valid result. A
	// failed write only means the next cross-device lookup
	// regenerates.
	content := entry.Content
	research := fn.Some(entry.Research)
	go func() {
		writeCtx, cancel := context.WithTimeout(
			context.WithoutCancel(ctx), s.cfg.PersistTimeout,
		)
		defer cancel()

		recordID, err := s.remote.Save(
			writeCtx, key, institutionName, content, research,
		)
		if err != nil {
			s.log.Warn("Remote store write failed",
				"key", cacheKey, "error", err)
			return
		}

		s.log.Debug("Persisted generated material",
			"key", cacheKey, "record_id", recordID)
	}()
}

// refreshLocal re-seeds the local cache after a remote hit so the next
// lookup on this device is served from the fastest tier.
func (s *Service) refreshLocal(ctx context.Context, cacheKey string,
	entry *CachedEntry) {

	if err := s.local.Put(ctx, cacheKey, entry); err != nil {
		s.log.Warn("Local cache refresh failed",
			"key", cacheKey, "error", err)
	}
}
