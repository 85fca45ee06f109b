package material

import "time"

const (
	// DefaultLocalTTL is how long a locally cached artifact remains
	// servable. Entries older than this are treated as absent and
	// evicted lazily on the next lookup.
	DefaultLocalTTL = 24 * time.Hour

	// DefaultGenerateTimeout bounds the primary generation call.
	DefaultGenerateTimeout = 2 * time.Minute

	// DefaultResearchTimeout bounds the supplementary research call.
	// Research is cheaper and non-essential, so it gets a shorter
	// leash.
	DefaultResearchTimeout = 45 * time.Second

	// DefaultPersistTimeout bounds the detached remote write-back.
	DefaultPersistTimeout = 30 * time.Second

	// ResearchUnavailable is the fixed digest substituted when the
	// supplementary call fails. The artifact is still reported as a
	// success with this degraded field.
	ResearchUnavailable = "Pesquisa indisponível no momento."
)

// Config holds configuration for the material service.
type Config struct {
	// LocalTTL is the local cache freshness window.
	LocalTTL time.Duration

	// GenerateTimeout bounds each primary generation call.
	GenerateTimeout time.Duration

	// ResearchTimeout bounds each supplementary research call.
	ResearchTimeout time.Duration

	// PersistTimeout bounds the detached remote store write-back.
	PersistTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LocalTTL:        DefaultLocalTTL,
		GenerateTimeout: DefaultGenerateTimeout,
		ResearchTimeout: DefaultResearchTimeout,
		PersistTimeout:  DefaultPersistTimeout,
	}
}
