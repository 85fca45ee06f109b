package material

import (
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Flashcard is a single active-recall card.
type Flashcard struct {
	Front string `json:"front"`
	Back  string `json:"back"`
}

// QuizQuestion is a multiple-choice question with its answer key.
type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
	Source       string   `json:"source,omitempty"`
}

// Reference is a bibliographic citation backing the artifact.
type Reference struct {
	Title      string `json:"title"`
	Author     string `json:"author"`
	Type       string `json:"type,omitempty"`
	VerifiedBy string `json:"verifiedBy,omitempty"`
}

// Content is the structured study artifact produced by the primary
// generation call. The cache tiers treat it as an opaque envelope and
// pass it through unmodified; the typed shape exists so malformed
// generation output is rejected at the boundary instead of propagating
// downstream.
type Content struct {
	Summary      string         `json:"summary"`
	KeyPoints    []string       `json:"keyPoints"`
	Flashcards   []Flashcard    `json:"flashcards"`
	Quiz         []QuizQuestion `json:"quiz"`
	References   []Reference    `json:"references"`
	VisualPrompt string         `json:"visualPrompt"`
	Innovations  []string       `json:"innovations"`
}

// Validate rejects envelopes that are missing the load-bearing fields.
// Optional sections (innovations, references) may legitimately be
// empty.
func (c *Content) Validate() error {
	if c.Summary == "" {
		return fmt.Errorf("content: empty summary")
	}
	if len(c.KeyPoints) == 0 {
		return fmt.Errorf("content: no key points")
	}
	for i, q := range c.Quiz {
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return fmt.Errorf("content: quiz %d correct index "+
				"%d out of range", i, q.CorrectIndex)
		}
	}

	return nil
}

// CachedEntry is one computed study artifact as held by the cache
// tiers.
type CachedEntry struct {
	// Content is the structured primary artifact.
	Content Content

	// Research is the free-text supplementary digest. When the
	// supplementary generation fails this holds a fixed placeholder
	// rather than being absent.
	Research string

	// CreatedAt is the computation time. Set once, immutable.
	CreatedAt time.Time

	// RecordID is present only once the entry has been persisted to
	// the remote store. Entries living only in the local cache carry
	// None.
	RecordID fn.Option[string]

	// AccessCount is the number of successful remote reads of this
	// record. Zero for entries that were never persisted remotely.
	AccessCount int64
}

// HistoryItem is a summary row from the remote store's recency listing.
// It carries no content payload; the record must be fetched by key to
// read it.
type HistoryItem struct {
	RecordID        string
	InstitutionID   string
	InstitutionName string
	SubjectName     string
	YearLevel       int
	AccessCount     int64
	QualityScore    fn.Option[int]
	LastAccessedAt  time.Time
	CreatedAt       time.Time
}
