package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SectionEntry is one extracted section body for a filing.
type SectionEntry struct {
	DocID       string    `json:"doc_id"`
	SectionID   string    `json:"section_id"`
	EDINETCode  string    `json:"edinet_code"`
	PeriodEnd   string    `json:"period_end"`
	MatchedTag  string    `json:"matched_tag"`
	Text        string    `json:"text"`
	ExtractedAt time.Time `json:"extracted_at"`
}

// SectionCache keeps extracted section text per (document, section).
// Postgres is used when a pool is given, otherwise JSON files under dir.
// Filings are immutable once published, so entries do not expire.
type SectionCache struct {
	pool    *pgxpool.Pool
	fileDir string
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// NewSectionCache returns a cache backed by pool, or by files under dir when pool is nil.
func NewSectionCache(pool *pgxpool.Pool, dir string) *SectionCache {
	return &SectionCache{pool: pool, fileDir: dir}
}

// Get returns the cached entry, or nil when absent.
func (c *SectionCache) Get(ctx context.Context, docID, sectionID string) (*SectionEntry, error) {
	if c == nil {
		return nil, nil
	}
	if c.pool != nil {
		query := `
			SELECT edinet_code, period_end, matched_tag, body, extracted_at
			FROM edinet_sections
			WHERE doc_id = $1 AND section_id = $2
		`
		e := SectionEntry{DocID: docID, SectionID: sectionID}
		err := c.pool.QueryRow(ctx, query, docID, sectionID).Scan(&e.EDINETCode, &e.PeriodEnd, &e.MatchedTag, &e.Text, &e.ExtractedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("section cache query %s/%s: %w", docID, sectionID, err)
		}
		return &e, nil
	}
	if c.fileDir == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.path(docID, sectionID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("section cache read: %w", err)
	}
	var e SectionEntry
	if err := json.Unmarshal(data, &e); err != nil {
		// Corrupt entries are rewritten on the next Put.
		return nil, nil
	}
	return &e, nil
}

// Put stores or replaces an entry.
func (c *SectionCache) Put(ctx context.Context, e SectionEntry) error {
	if c == nil {
		return nil
	}
	if e.ExtractedAt.IsZero() {
		e.ExtractedAt = time.Now().UTC()
	}
	if c.pool != nil {
		query := `
			INSERT INTO edinet_sections (doc_id, section_id, edinet_code, period_end, matched_tag, body, extracted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (doc_id, section_id)
			DO UPDATE SET
				matched_tag = EXCLUDED.matched_tag,
				body = EXCLUDED.body,
				extracted_at = EXCLUDED.extracted_at
		`
		_, err := c.pool.Exec(ctx, query, e.DocID, e.SectionID, e.EDINETCode, e.PeriodEnd, e.MatchedTag, e.Text, e.ExtractedAt)
		if err != nil {
			return fmt.Errorf("failed to save section to db cache: %w", err)
		}
		return nil
	}
	if c.fileDir == "" {
		return nil
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal section entry: %w", err)
	}
	return WriteFileAtomic(c.path(e.DocID, e.SectionID), data)
}

func (c *SectionCache) path(docID, sectionID string) string {
	name := unsafeKeyChars.ReplaceAllString(docID, "_") + "__" + unsafeKeyChars.ReplaceAllString(sectionID, "_") + ".json"
	return filepath.Join(c.fileDir, name)
}
