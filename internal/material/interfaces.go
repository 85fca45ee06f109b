package material

import (
	"context"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// LocalCache is the device-scoped ephemeral tier. It is an
// optimization, never a source of truth: callers must treat every
// failure as a miss or a no-op.
//
// Implementations must be safe for concurrent use.
type LocalCache interface {
	// Get returns the entry for the key, or nil when absent. An
	// entry older than the configured TTL is treated as absent and
	// evicted as a side effect.
	Get(ctx context.Context, key string) (*CachedEntry, error)

	// Put stores the entry under the key, unconditionally replacing
	// any previous entry.
	Put(ctx context.Context, key string, entry *CachedEntry) error

	// Evict removes the entry for the key, if any.
	Evict(ctx context.Context, key string) error
}

// RemoteStore is the durable shared tier, reached over the network.
// Implementations exist only for authenticated callers; the service
// treats a nil RemoteStore as a permanently missing tier.
type RemoteStore interface {
	// Find returns the authoritative entry for the key, or nil when
	// absent. A hit increments the record's access count as an
	// observable side effect.
	Find(ctx context.Context, key MaterialKey) (*CachedEntry, error)

	// Save persists a newly generated artifact, superseding any
	// prior entry for the same key, and returns the new record ID.
	Save(ctx context.Context, key MaterialKey, institutionName string,
		content Content, research fn.Option[string]) (string, error)

	// ListRecent returns the caller's saved entries ordered by
	// recency of access, newest first.
	ListRecent(ctx context.Context, limit int) ([]HistoryItem, error)

	// Rate attaches a quality score to a persisted record.
	Rate(ctx context.Context, recordID string, score int) error
}

// GenerateRequest carries everything the primary generation call needs.
type GenerateRequest struct {
	// SubjectName is the display subject, passed through exactly as
	// the user entered it.
	SubjectName string

	// InstitutionName is the full institution name for the prompt.
	InstitutionName string

	// YearLevel is the academic year, 1 through 6.
	YearLevel int

	// DepthInstruction is the year-band depth directive shared by
	// both generation calls.
	DepthInstruction string
}

// Generator is the expensive, rate-limited content-generation backend.
type Generator interface {
	// GenerateContent produces the structured primary artifact.
	GenerateContent(ctx context.Context, req GenerateRequest) (
		*Content, error)

	// FetchResearch produces the free-text supplementary digest for
	// a topic.
	FetchResearch(ctx context.Context, topic string) (string, error)
}
