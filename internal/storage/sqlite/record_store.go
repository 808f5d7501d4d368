// Package sqlite provides a single-file SQLite word count record store for
// local runs without a database server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JakeFAU/wordcount-api/internal/storage"
	"github.com/JakeFAU/wordcount-api/internal/tally"
	"github.com/JakeFAU/wordcount-api/internal/wordcount"
)

const schema = `
CREATE TABLE IF NOT EXISTS word_counts (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	url TEXT NOT NULL,
	date INTEGER NOT NULL,
	processing_type TEXT NOT NULL DEFAULT '',
	sort TEXT NOT NULL DEFAULT '',
	sort_direction TEXT NOT NULL DEFAULT '',
	ignore_punctuation INTEGER NOT NULL DEFAULT 0,
	ignore_numbers INTEGER NOT NULL DEFAULT 0,
	word_count TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS word_counts_date_idx ON word_counts (date);
`

// RecordStore persists records in a SQLite file. Dates are stored as Unix
// nanoseconds so ordering is numeric.
type RecordStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens or creates the database at path and applies the schema.
func Open(ctx context.Context, path string, logger *zap.Logger) (*RecordStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage.sqlite.path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory %s: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection serializes writers and keeps ":memory:" databases alive.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema: %w", err)
	}
	logger.Info("sqlite record store ready", zap.String("path", path))
	return &RecordStore{db: db, logger: logger}, nil
}

// Close closes the database.
func (s *RecordStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close sqlite: %w", err)
	}
	return nil
}

// Insert writes one row.
func (s *RecordStore) Insert(ctx context.Context, rec wordcount.Record) (wordcount.Record, error) {
	if rec.ID == "" {
		return wordcount.Record{}, storage.Insert(errors.New("record id is required"))
	}
	wc := rec.WordCount
	if wc == nil {
		wc = tally.New()
	}
	wordCountJSON, err := wc.MarshalJSON()
	if err != nil {
		return wordcount.Record{}, storage.Insert(fmt.Errorf("marshal word count: %w", err))
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO word_counts (
	id, url, date, processing_type, sort, sort_direction,
	ignore_punctuation, ignore_numbers, word_count
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.URL,
		rec.Date.UnixNano(),
		string(rec.Options.ProcessingType),
		string(rec.Options.Sort),
		rec.Options.SortDirection,
		rec.Options.IgnorePunctuation,
		rec.Options.IgnoreNumbers,
		string(wordCountJSON),
	)
	if err != nil {
		return wordcount.Record{}, storage.Insert(err)
	}
	return rec, nil
}

// Find selects rows shaped by q, skipping the word_count column unless asked.
func (s *RecordStore) Find(ctx context.Context, q wordcount.FindQuery) ([]wordcount.Record, error) {
	cols := "id, url, date, processing_type, sort, sort_direction, ignore_punctuation, ignore_numbers"
	if q.IncludeWordCounts {
		cols += ", word_count"
	}
	order := "seq ASC"
	if q.SortByDate {
		order = "date ASC, seq ASC"
		if q.Descending {
			order = "date DESC, seq DESC"
		}
	}
	rows, err := s.db.QueryContext(ctx, "SELECT "+cols+" FROM word_counts ORDER BY "+order)
	if err != nil {
		return nil, storage.Find(err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			s.logger.Debug("close sqlite rows", zap.Error(cerr))
		}
	}()

	out := []wordcount.Record{}
	for rows.Next() {
		var (
			rec            wordcount.Record
			unixNanos      int64
			processingType string
			sortKey        string
			wordCountJSON  string
		)
		dest := []any{
			&rec.ID,
			&rec.URL,
			&unixNanos,
			&processingType,
			&sortKey,
			&rec.Options.SortDirection,
			&rec.Options.IgnorePunctuation,
			&rec.Options.IgnoreNumbers,
		}
		if q.IncludeWordCounts {
			dest = append(dest, &wordCountJSON)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, storage.Find(fmt.Errorf("scan word count row: %w", err))
		}
		rec.Date = time.Unix(0, unixNanos).UTC()
		rec.Options.ProcessingType = wordcount.ProcessingType(processingType)
		rec.Options.Sort = tally.SortKey(sortKey)
		if q.IncludeWordCounts {
			rec.WordCount = tally.New()
			if err := rec.WordCount.UnmarshalJSON([]byte(wordCountJSON)); err != nil {
				return nil, storage.Find(fmt.Errorf("decode word count for %s: %w", rec.ID, err))
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Find(err)
	}
	return out, nil
}
