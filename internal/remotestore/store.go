package remotestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/medfocus/medgenie/internal/material"
)

// SQLStore is the daemon-side materials store. All methods are scoped
// to an owner ID: records belong to the account that generated them.
type SQLStore struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSQLStore opens the materials database at the given path and
// applies any pending migrations.
func NewSQLStore(dbPath string, log *slog.Logger) (*SQLStore, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "remotestore")

	db, err := OpenSQLite(dbPath)
	if err != nil {
		return nil, err
	}

	if err := applyMigrations(db, log); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return &SQLStore{db: db, log: log}, nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Find returns the authoritative entry for the key, or nil when no
// record exists. A hit increments the record's access count and
// refreshes its last-accessed timestamp; the returned entry reflects
// the incremented count.
func (s *SQLStore) Find(ctx context.Context, ownerID string,
	key material.MaterialKey) (*material.CachedEntry, error) {

	subject := material.NormalizeSubject(key.SubjectName)

	var (
		recordID    string
		contentJSON string
		research    sql.NullString
		accessCount int64
		createdAt   int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT record_id, content, research, access_count, created_at
		FROM generated_materials
		WHERE owner_id = ? AND institution_id = ? AND subject = ?
		    AND year_level = ?
		ORDER BY created_at DESC
		LIMIT 1`,
		ownerID, key.InstitutionID, subject, key.YearLevel,
	).Scan(&recordID, &contentJSON, &research, &accessCount, &createdAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("find material: %w", err)
	}

	// Record the read. The count is a usage signal for the history
	// view, so a failed bump is logged but does not fail the read.
	accessCount++
	_, err = s.db.ExecContext(ctx, `
		UPDATE generated_materials
		SET access_count = ?, last_accessed_at = ?
		WHERE record_id = ?`,
		accessCount, time.Now().Unix(), recordID,
	)
	if err != nil {
		s.log.Warn("Failed to bump access count",
			"record_id", recordID, "error", err)
		accessCount--
	}

	var content material.Content
	if err := json.Unmarshal([]byte(contentJSON), &content); err != nil {
		return nil, fmt.Errorf("decode material content: %w", err)
	}

	entry := &material.CachedEntry{
		Content:     content,
		CreatedAt:   time.Unix(createdAt, 0),
		RecordID:    fn.Some(recordID),
		AccessCount: accessCount,
	}
	if research.Valid {
		entry.Research = research.String
	}

	return entry, nil
}

// Save persists a newly generated artifact, superseding any prior
// record for the same (owner, key), and returns the new record ID.
// The supersede is atomic: readers never observe both the old and the
// new record.
func (s *SQLStore) Save(ctx context.Context, ownerID string,
	key material.MaterialKey, institutionName string,
	content material.Content,
	research fn.Option[string]) (string, error) {

	contentJSON, err := json.Marshal(content)
	if err != nil {
		return "", fmt.Errorf("encode material content: %w", err)
	}

	recordID := newRecordID()
	subject := material.NormalizeSubject(key.SubjectName)
	now := time.Now().Unix()

	var researchVal sql.NullString
	research.WhenSome(func(r string) {
		researchVal = sql.NullString{String: r, Valid: true}
	})

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin save tx: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		DELETE FROM generated_materials
		WHERE owner_id = ? AND institution_id = ? AND subject = ?
		    AND year_level = ?`,
		ownerID, key.InstitutionID, subject, key.YearLevel,
	)
	if err == nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO generated_materials
			    (record_id, owner_id, institution_id,
			     institution_name, subject, year_level, content,
			     research, access_count, created_at,
			     last_accessed_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
			recordID, ownerID, key.InstitutionID,
			institutionName, subject, key.YearLevel,
			string(contentJSON), researchVal, now, now,
		)
	}
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return "", fmt.Errorf("save error: %w, rollback "+
				"error: %v", err, rbErr)
		}
		return "", fmt.Errorf("save material: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit save tx: %w", err)
	}

	return recordID, nil
}

// ListRecent returns the owner's records ordered by last access,
// newest first. Content payloads are not included.
func (s *SQLStore) ListRecent(ctx context.Context, ownerID string,
	limit int) ([]material.HistoryItem, error) {

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT record_id, institution_id, institution_name, subject,
		    year_level, access_count, quality_score,
		    last_accessed_at, created_at
		FROM generated_materials
		WHERE owner_id = ?
		ORDER BY last_accessed_at DESC
		LIMIT ?`,
		ownerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	defer rows.Close()

	var items []material.HistoryItem
	for rows.Next() {
		var (
			item           material.HistoryItem
			quality        sql.NullInt64
			lastAccessedAt int64
			createdAt      int64
		)
		err := rows.Scan(
			&item.RecordID, &item.InstitutionID,
			&item.InstitutionName, &item.SubjectName,
			&item.YearLevel, &item.AccessCount, &quality,
			&lastAccessedAt, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan material row: %w", err)
		}

		item.QualityScore = fn.None[int]()
		if quality.Valid {
			item.QualityScore = fn.Some(int(quality.Int64))
		}
		item.LastAccessedAt = time.Unix(lastAccessedAt, 0)
		item.CreatedAt = time.Unix(createdAt, 0)

		items = append(items, item)
	}

	return items, rows.Err()
}

// ErrRecordNotFound is returned when a record ID does not exist for
// the owner.
var ErrRecordNotFound = errors.New("material record not found")

// Rate attaches a quality score to a persisted record.
func (s *SQLStore) Rate(ctx context.Context, ownerID, recordID string,
	score int) error {

	if score < 0 || score > 100 {
		return fmt.Errorf("quality score %d out of range [0, 100]",
			score)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE generated_materials
		SET quality_score = ?
		WHERE owner_id = ? AND record_id = ?`,
		score, ownerID, recordID,
	)
	if err != nil {
		return fmt.Errorf("rate material: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rate material: %w", err)
	}
	if n == 0 {
		return ErrRecordNotFound
	}

	return nil
}

// DefaultHistoryLimit is the default number of history entries
// returned by ListRecent.
const DefaultHistoryLimit = 50

// newRecordID returns a time-sortable UUIDv7 record ID, falling back
// to v4 if the system clock misbehaves.
func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}

	return id.String()
}

// Binding scopes a SQLStore to a single owner, satisfying the
// material.RemoteStore interface for in-process use (the daemon's own
// lookups, and tests).
type Binding struct {
	store   *SQLStore
	ownerID string
}

// Bind returns a RemoteStore view of the SQLStore for one owner.
func (s *SQLStore) Bind(ownerID string) *Binding {
	return &Binding{store: s, ownerID: ownerID}
}

// Find implements material.RemoteStore.
func (b *Binding) Find(ctx context.Context, key material.MaterialKey) (
	*material.CachedEntry, error) {

	return b.store.Find(ctx, b.ownerID, key)
}

// Save implements material.RemoteStore.
func (b *Binding) Save(ctx context.Context, key material.MaterialKey,
	institutionName string, content material.Content,
	research fn.Option[string]) (string, error) {

	return b.store.Save(
		ctx, b.ownerID, key, institutionName, content, research,
	)
}

// ListRecent implements material.RemoteStore.
func (b *Binding) ListRecent(ctx context.Context, limit int) (
	[]material.HistoryItem, error) {

	return b.store.ListRecent(ctx, b.ownerID, limit)
}

// Rate implements material.RemoteStore.
func (b *Binding) Rate(ctx context.Context, recordID string,
	score int) error {

	return b.store.Rate(ctx, b.ownerID, recordID, score)
}

var _ material.RemoteStore = (*Binding)(nil)
