// Package storage holds helpers shared by the word count record stores.
// Backends live in subpackages: memory, postgres, sqlite, and gcs.
package storage

import (
	"cmp"
	"slices"

	"github.com/JakeFAU/wordcount-api/internal/wordcount"
)

// Backend names accepted by configuration.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendGCS      = "gcs"
)

// DefaultTable is the relational table name used when none is configured.
const DefaultTable = "word_counts"

// ApplyQuery orders records (already in insertion order) as q asks and drops
// word counts when q excludes them. The input slice is not modified. Date
// ties keep insertion order ascending and reverse it descending.
func ApplyQuery(records []wordcount.Record, q wordcount.FindQuery) []wordcount.Record {
	out := make([]wordcount.Record, len(records))
	copy(out, records)
	if q.SortByDate {
		slices.SortStableFunc(out, func(a, b wordcount.Record) int {
			return a.Date.Compare(b.Date)
		})
		if q.Descending {
			slices.Reverse(out)
		}
	}
	for i := range out {
		out[i] = Project(out[i], q.IncludeWordCounts)
	}
	return out
}

// Project returns rec with its word count cloned or dropped.
func Project(rec wordcount.Record, includeWordCounts bool) wordcount.Record {
	if !includeWordCounts || rec.WordCount == nil {
		rec.WordCount = nil
		return rec
	}
	rec.WordCount = rec.WordCount.Clone()
	return rec
}

// Insert wraps err as a failed insert.
func Insert(err error) error {
	return wrap("insert word count", err)
}

// Find wraps err as a failed history read.
func Find(err error) error {
	return wrap("find word counts", err)
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &wordcount.PersistenceError{Op: op, Err: err}
}

// SortByID orders records by ID, which is creation order for UUIDv7 IDs.
func SortByID(records []wordcount.Record) {
	slices.SortStableFunc(records, func(a, b wordcount.Record) int {
		return cmp.Compare(a.ID, b.ID)
	})
}
