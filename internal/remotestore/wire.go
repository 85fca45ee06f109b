package remotestore

import (
	"time"

	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/medfocus/medgenie/internal/material"
)

// Wire types shared by the daemon's HTTP API and the client. The JSON
// field names follow the original service's camelCase convention.

// EntryPayload is a full cache entry on the wire.
type EntryPayload struct {
	RecordID    string           `json:"recordId"`
	Content     material.Content `json:"content"`
	Research    *string          `json:"research,omitempty"`
	AccessCount int64            `json:"accessCount"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// ToEntry converts the payload into a domain entry.
func (p *EntryPayload) ToEntry() *material.CachedEntry {
	entry := &material.CachedEntry{
		Content:     p.Content,
		CreatedAt:   p.CreatedAt,
		RecordID:    fn.Some(p.RecordID),
		AccessCount: p.AccessCount,
	}
	if p.Research != nil {
		entry.Research = *p.Research
	}

	return entry
}

// NewEntryPayload converts a domain entry into its wire form.
func NewEntryPayload(entry *material.CachedEntry) EntryPayload {
	p := EntryPayload{
		Content:     entry.Content,
		AccessCount: entry.AccessCount,
		CreatedAt:   entry.CreatedAt,
	}
	entry.RecordID.WhenSome(func(id string) {
		p.RecordID = id
	})
	if entry.Research != "" {
		research := entry.Research
		p.Research = &research
	}

	return p
}

// SaveRequest is the body of a save call.
type SaveRequest struct {
	InstitutionID   string           `json:"institutionId"`
	InstitutionName string           `json:"institutionName"`
	SubjectName     string           `json:"subjectName"`
	YearLevel       int              `json:"yearLevel"`
	Content         material.Content `json:"content"`
	Research        *string          `json:"research,omitempty"`
}

// SaveResponse carries the ID of the newly persisted record.
type SaveResponse struct {
	RecordID string `json:"recordId"`
}

// HistoryItemPayload is one row of the recency listing on the wire.
type HistoryItemPayload struct {
	RecordID        string    `json:"recordId"`
	InstitutionID   string    `json:"institutionId"`
	InstitutionName string    `json:"institutionName"`
	SubjectName     string    `json:"subjectName"`
	YearLevel       int       `json:"yearLevel"`
	AccessCount     int64     `json:"accessCount"`
	QualityScore    *int      `json:"qualityScore,omitempty"`
	LastAccessedAt  time.Time `json:"lastAccessedAt"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ToHistoryItem converts the payload into a domain history item.
func (p *HistoryItemPayload) ToHistoryItem() material.HistoryItem {
	item := material.HistoryItem{
		RecordID:        p.RecordID,
		InstitutionID:   p.InstitutionID,
		InstitutionName: p.InstitutionName,
		SubjectName:     p.SubjectName,
		YearLevel:       p.YearLevel,
		AccessCount:     p.AccessCount,
		QualityScore:    fn.None[int](),
		LastAccessedAt:  p.LastAccessedAt,
		CreatedAt:       p.CreatedAt,
	}
	if p.QualityScore != nil {
		item.QualityScore = fn.Some(*p.QualityScore)
	}

	return item
}

// NewHistoryItemPayload converts a domain history item into its wire
// form.
func NewHistoryItemPayload(item material.HistoryItem) HistoryItemPayload {
	p := HistoryItemPayload{
		RecordID:        item.RecordID,
		InstitutionID:   item.InstitutionID,
		InstitutionName: item.InstitutionName,
		SubjectName:     item.SubjectName,
		YearLevel:       item.YearLevel,
		AccessCount:     item.AccessCount,
		LastAccessedAt:  item.LastAccessedAt,
		CreatedAt:       item.CreatedAt,
	}
	item.QualityScore.WhenSome(func(score int) {
		p.QualityScore = &score
	})

	return p
}

// RateRequest is the body of a rate call.
type RateRequest struct {
	Score int `json:"score"`
}
