package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store provides read-write access to the local draft journal.
type Store struct {
	db *sql.DB
}

// DefaultDBPath returns the default journal path.
func DefaultDBPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".audino", "drafts.sqlite")
}

const schema = `
	CREATE TABLE IF NOT EXISTS drafts (
		dataId INTEGER NOT NULL,
		slot INTEGER NOT NULL,
		segmentationId INTEGER NOT NULL DEFAULT 0,
		startTime REAL NOT NULL,
		endTime REAL NOT NULL,
		transcription TEXT NOT NULL,
		annotations TEXT NOT NULL,
		updatedAt REAL NOT NULL,
		PRIMARY KEY (dataId, slot)
	);
`

// Open opens the journal, creating the file and schema as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutDraft upserts the draft row for (data id, slot).
func (s *Store) PutDraft(d Draft) error {
	ann, err := json.Marshal(d.Annotations)
	if err != nil {
		return fmt.Errorf("marshal annotations: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO drafts (dataId, slot, segmentationId, startTime, endTime, transcription, annotations, updatedAt)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(dataId, slot) DO UPDATE SET
			segmentationId = excluded.segmentationId,
			startTime = excluded.startTime,
			endTime = excluded.endTime,
			transcription = excluded.transcription,
			annotations = excluded.annotations,
			updatedAt = excluded.updatedAt
	`, d.DataID, d.Slot, d.SegmentationID, d.Start, d.End,
		d.Transcription, string(ann), unixFloat(time.Now()))
	if err != nil {
		return fmt.Errorf("put draft: %w", err)
	}
	return nil
}

// DeleteDraft removes the draft for (data id, slot), if any.
func (s *Store) DeleteDraft(dataID, slot int) error {
	if _, err := s.db.Exec(`DELETE FROM drafts WHERE dataId = ? AND slot = ?`, dataID, slot); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// DeleteDraftsForData removes every draft of one audio item.
func (s *Store) DeleteDraftsForData(dataID int) error {
	if _, err := s.db.Exec(`DELETE FROM drafts WHERE dataId = ?`, dataID); err != nil {
		return fmt.Errorf("delete drafts: %w", err)
	}
	return nil
}

// DraftsForData returns all drafts for one audio item, ordered by slot.
func (s *Store) DraftsForData(dataID int) ([]Draft, error) {
	rows, err := s.db.Query(`
		SELECT dataId, slot, segmentationId, startTime, endTime, transcription, annotations, updatedAt
		FROM drafts
		WHERE dataId = ?
		ORDER BY slot ASC
	`, dataID)
	if err != nil {
		return nil, fmt.Errorf("query drafts: %w", err)
	}
	defer rows.Close()

	var drafts []Draft
	for rows.Next() {
		var d Draft
		var ann string
		var updatedAt float64
		if err := rows.Scan(&d.DataID, &d.Slot, &d.SegmentationID, &d.Start, &d.End,
			&d.Transcription, &ann, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		if err := json.Unmarshal([]byte(ann), &d.Annotations); err != nil {
			return nil, fmt.Errorf("draft %d/%d: %w", d.DataID, d.Slot, err)
		}
		d.UpdatedAt = timeFromUnix(updatedAt)
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

func unixFloat(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
