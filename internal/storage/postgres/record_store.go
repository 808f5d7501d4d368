// Package postgres provides a Postgres-backed word count record store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/wordcount-api/internal/storage"
	"github.com/JakeFAU/wordcount-api/internal/tally"
	"github.com/JakeFAU/wordcount-api/internal/wordcount"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool used for word count rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// RecordStore writes and reads word count rows. Word counts are kept in a
// JSON (not JSONB) column so key order survives the round trip.
type RecordStore struct {
	pool  pool
	table string
}

// NewRecordStore connects a pool using cfg.
func NewRecordStore(ctx context.Context, cfg Config) (*RecordStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("storage.postgres.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &RecordStore{pool: p, table: table}, nil
}

// NewRecordStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewRecordStoreWithPool(p pool, table string) (*RecordStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &RecordStore{pool: p, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = storage.DefaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// EnsureSchema creates the table and its date index when missing.
func (s *RecordStore) EnsureSchema(ctx context.Context) error {
	create := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	seq BIGSERIAL,
	id TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	date TIMESTAMPTZ NOT NULL,
	processing_type TEXT NOT NULL DEFAULT '',
	sort TEXT NOT NULL DEFAULT '',
	sort_direction TEXT NOT NULL DEFAULT '',
	ignore_punctuation BOOLEAN NOT NULL DEFAULT FALSE,
	ignore_numbers BOOLEAN NOT NULL DEFAULT FALSE,
	word_count JSON NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, create); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	index := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_date_idx ON %s (date)`, s.table, s.table)
	if _, err := s.pool.Exec(ctx, index); err != nil {
		return fmt.Errorf("create index on %s: %w", s.table, err)
	}
	return nil
}

// Close releases the underlying pool resources.
func (s *RecordStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
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
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	url,
	date,
	processing_type,
	sort,
	sort_direction,
	ignore_punctuation,
	ignore_numbers,
	word_count
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9
)`, s.table)

	args := []any{
		rec.ID,
		rec.URL,
		rec.Date,
		string(rec.Options.ProcessingType),
		string(rec.Options.Sort),
		rec.Options.SortDirection,
		rec.Options.IgnorePunctuation,
		rec.Options.IgnoreNumbers,
		wordCountJSON,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return wordcount.Record{}, storage.Insert(err)
	}
	return rec, nil
}

// Find selects rows shaped by q. The word_count column is not read unless
// q.IncludeWordCounts is set.
func (s *RecordStore) Find(ctx context.Context, q wordcount.FindQuery) ([]wordcount.Record, error) {
	rows, err := s.pool.Query(ctx, findQuery(s.table, q))
	if err != nil {
		return nil, storage.Find(err)
	}
	defer rows.Close()

	out := []wordcount.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows, q.IncludeWordCounts)
		if err != nil {
			return nil, storage.Find(err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Find(err)
	}
	return out, nil
}

func findQuery(table string, q wordcount.FindQuery) string {
	cols := []string{
		"id",
		"url",
		"date",
		"processing_type",
		"sort",
		"sort_direction",
		"ignore_punctuation",
		"ignore_numbers",
	}
	if q.IncludeWordCounts {
		cols = append(cols, "word_count")
	}
	order := "seq ASC"
	if q.SortByDate {
		order = "date ASC, seq ASC"
		if q.Descending {
			order = "date DESC, seq DESC"
		}
	}
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY %s", strings.Join(cols, ", "), table, order)
}

func scanRecord(rows pgx.Rows, includeWordCounts bool) (wordcount.Record, error) {
	var (
		rec            wordcount.Record
		processingType string
		sortKey        string
		wordCountJSON  []byte
	)
	dest := []any{
		&rec.ID,
		&rec.URL,
		&rec.Date,
		&processingType,
		&sortKey,
		&rec.Options.SortDirection,
		&rec.Options.IgnorePunctuation,
		&rec.Options.IgnoreNumbers,
	}
	if includeWordCounts {
		dest = append(dest, &wordCountJSON)
	}
	if err := rows.Scan(dest...); err != nil {
		return wordcount.Record{}, fmt.Errorf("scan word count row: %w", err)
	}
	rec.Options.ProcessingType = wordcount.ProcessingType(processingType)
	rec.Options.Sort = tally.SortKey(sortKey)
	rec.Date = rec.Date.UTC()
	if includeWordCounts {
		rec.WordCount = tally.New()
		if err := rec.WordCount.UnmarshalJSON(wordCountJSON); err != nil {
			return wordcount.Record{}, fmt.Errorf("decode word count for %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}
