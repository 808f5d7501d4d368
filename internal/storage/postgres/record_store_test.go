package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/wordcount-api/internal/tally"
	"github.com/JakeFAU/wordcount-api/internal/wordcount"
)

var baseCols = []string{
	"id", "url", "date", "processing_type", "sort", "sort_direction", "ignore_punctuation", "ignore_numbers",
}

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *RecordStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewRecordStoreWithPool(mock, "")
	require.NoError(t, err)
	return mock, store
}

func TestNewRecordStoreWithPoolValidation(t *testing.T) {
	t.Parallel()

	_, err := NewRecordStoreWithPool(nil, "word_counts")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewRecordStoreWithPool(mock, "word_counts; DROP TABLE x")
	require.Error(t, err)

	store, err := NewRecordStoreWithPool(mock, "")
	require.NoError(t, err)
	assert.Equal(t, "word_counts", store.table)
}

func TestNewRecordStoreRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewRecordStore(context.Background(), Config{})
	require.Error(t, err)

	_, err = NewRecordStore(context.Background(), Config{DSN: "postgres://localhost/db", Table: "bad-name"})
	require.Error(t, err)
}

func TestInsertWritesRow(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()
	rec := wordcount.Record{
		ID:   "uuid-v7",
		URL:  "https://example.com",
		Date: now,
		Options: wordcount.Options{
			ProcessingType:    wordcount.ProcessingStream,
			Sort:              tally.SortKeyWord,
			SortDirection:     "desc",
			IgnorePunctuation: true,
		},
		WordCount: tally.FromEntries([]tally.Entry{{Word: "zebra", Count: 1}, {Word: "apple", Count: 2}}),
	}

	mock.ExpectExec("INSERT INTO word_counts").
		WithArgs(
			rec.ID,
			rec.URL,
			rec.Date,
			"stream",
			"key",
			"desc",
			true,
			false,
			[]byte(`{"zebra":1,"apple":2}`),
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	got, err := store.Insert(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertFailureIsPersistenceError(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	boom := errors.New("connection reset")
	mock.ExpectExec("INSERT INTO word_counts").
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(boom)

	_, err := store.Insert(context.Background(), wordcount.Record{ID: "x", WordCount: tally.New()})
	var pe *wordcount.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertRequiresID(t *testing.T) {
	t.Parallel()

	_, store := newMockStore(t)
	_, err := store.Insert(context.Background(), wordcount.Record{})
	var pe *wordcount.PersistenceError
	require.ErrorAs(t, err, &pe)
}

func TestFindWithoutWordCounts(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	d1 := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows(baseCols).
		AddRow("b", "https://b.example", d1, "whole", "occurrences", "asc", false, true).
		AddRow("a", "https://a.example", d2, "", "", "", false, false)
	mock.ExpectQuery(`SELECT id, url, date, processing_type, sort, sort_direction, ignore_punctuation, ignore_numbers FROM word_counts ORDER BY date DESC, seq DESC`).
		WillReturnRows(rows)

	got, err := store.Find(context.Background(), wordcount.FindQuery{SortByDate: true, Descending: true})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "b", got[0].ID)
	assert.Equal(t, wordcount.ProcessingWhole, got[0].Options.ProcessingType)
	assert.Equal(t, tally.SortOccurrences, got[0].Options.Sort)
	assert.True(t, got[0].Options.IgnoreNumbers)
	assert.Equal(t, d1, got[0].Date)
	assert.Nil(t, got[0].WordCount)
	assert.Equal(t, "a", got[1].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindWithWordCounts(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	cols := append(append([]string(nil), baseCols...), "word_count")
	rows := pgxmock.NewRows(cols).
		AddRow("a", "https://a.example", time.Unix(0, 0).UTC(), "whole", "", "", false, false, []byte(`{"the":3,"cat":1}`))
	mock.ExpectQuery(`SELECT .*word_count FROM word_counts ORDER BY seq ASC`).WillReturnRows(rows)

	got, err := store.Find(context.Background(), wordcount.FindQuery{IncludeWordCounts: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].WordCount)
	assert.Equal(t, []tally.Entry{{Word: "the", Count: 3}, {Word: "cat", Count: 1}}, got[0].WordCount.Entries())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindEmptyReturnsEmptySlice(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	mock.ExpectQuery("SELECT .* FROM word_counts").WillReturnRows(pgxmock.NewRows(baseCols))

	got, err := store.Find(context.Background(), wordcount.FindQuery{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestFindErrors(t *testing.T) {
	t.Parallel()

	t.Run("query", func(t *testing.T) {
		t.Parallel()
		mock, store := newMockStore(t)
		mock.ExpectQuery("SELECT").WillReturnError(errors.New("timeout"))

		_, err := store.Find(context.Background(), wordcount.FindQuery{})
		var pe *wordcount.PersistenceError
		require.ErrorAs(t, err, &pe)
	})

	t.Run("row", func(t *testing.T) {
		t.Parallel()
		mock, store := newMockStore(t)
		rows := pgxmock.NewRows(baseCols).
			AddRow("a", "u", time.Unix(0, 0), "", "", "", false, false).
			RowError(0, errors.New("broken row"))
		mock.ExpectQuery("SELECT").WillReturnRows(rows)

		_, err := store.Find(context.Background(), wordcount.FindQuery{})
		var pe *wordcount.PersistenceError
		require.ErrorAs(t, err, &pe)
	})

	t.Run("bad json", func(t *testing.T) {
		t.Parallel()
		mock, store := newMockStore(t)
		cols := append(append([]string(nil), baseCols...), "word_count")
		rows := pgxmock.NewRows(cols).
			AddRow("a", "u", time.Unix(0, 0), "", "", "", false, false, []byte(`[1,2]`))
		mock.ExpectQuery("SELECT").WillReturnRows(rows)

		_, err := store.Find(context.Background(), wordcount.FindQuery{IncludeWordCounts: true})
		var pe *wordcount.PersistenceError
		require.ErrorAs(t, err, &pe)
	})
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS word_counts").WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS word_counts_date_idx").WillReturnResult(pgxmock.NewResult("CREATE INDEX", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFindQueryShape(t *testing.T) {
	t.Parallel()

	q := findQuery("word_counts", wordcount.FindQuery{SortByDate: true})
	assert.NotContains(t, q, "word_count FROM")
	assert.Contains(t, q, "ORDER BY date ASC, seq ASC")
}
