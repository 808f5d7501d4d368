package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/wordcount-api/internal/tally"
	"github.com/JakeFAU/wordcount-api/internal/wordcount"
)

func openTemp(t *testing.T) (*RecordStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "wordcount.db")
	store, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open(context.Background(), " ", nil)
	require.Error(t, err)
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	store, _ := openTemp(t)
	ctx := context.Background()
	date := time.Date(2024, 6, 1, 8, 30, 0, 123456789, time.UTC)
	rec := wordcount.Record{
		ID:   "rec-1",
		URL:  "https://example.com",
		Date: date,
		Options: wordcount.Options{
			ProcessingType: wordcount.ProcessingStream,
			Sort:           tally.SortOccurencesLegacy,
			SortDirection:  "asc",
			IgnoreNumbers:  true,
		},
		WordCount: tally.FromEntries([]tally.Entry{{Word: "zeta", Count: 4}, {Word: "alpha", Count: 1}}),
	}
	_, err := store.Insert(ctx, rec)
	require.NoError(t, err)

	got, err := store.Find(ctx, wordcount.FindQuery{IncludeWordCounts: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, rec.ID, got[0].ID)
	assert.Equal(t, rec.Options, got[0].Options)
	assert.True(t, date.Equal(got[0].Date))
	assert.Equal(t, rec.WordCount.Entries(), got[0].WordCount.Entries())

	without, err := store.Find(ctx, wordcount.FindQuery{})
	require.NoError(t, err)
	assert.Nil(t, without[0].WordCount)
}

func TestDuplicateIDFails(t *testing.T) {
	t.Parallel()

	store, _ := openTemp(t)
	rec := wordcount.Record{ID: "dup", URL: "u", Date: time.Now(), WordCount: tally.New()}
	_, err := store.Insert(context.Background(), rec)
	require.NoError(t, err)

	_, err = store.Insert(context.Background(), rec)
	var pe *wordcount.PersistenceError
	require.ErrorAs(t, err, &pe)
}

func TestFindOrdering(t *testing.T) {
	t.Parallel()

	store, _ := openTemp(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, r := range []struct {
		id     string
		offset time.Duration
	}{
		{"first", 2 * time.Hour},
		{"second", 0},
		{"third", 2 * time.Hour},
		{"fourth", time.Hour},
	} {
		_, err := store.Insert(ctx, wordcount.Record{ID: r.id, URL: "u", Date: base.Add(r.offset)})
		require.NoError(t, err)
	}

	ids := func(q wordcount.FindQuery) []string {
		recs, err := store.Find(ctx, q)
		require.NoError(t, err)
		out := make([]string, len(recs))
		for i, r := range recs {
			out[i] = r.ID
		}
		return out
	}

	assert.Equal(t, []string{"first", "second", "third", "fourth"}, ids(wordcount.FindQuery{}))
	assert.Equal(t, []string{"second", "fourth", "first", "third"}, ids(wordcount.FindQuery{SortByDate: true}))
	assert.Equal(t, []string{"third", "first", "fourth", "second"}, ids(wordcount.FindQuery{SortByDate: true, Descending: true}))
}

func TestPersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "wordcount.db")
	store, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	_, err = store.Insert(context.Background(), wordcount.Record{ID: "keep", URL: "u", Date: time.Now()})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := Open(context.Background(), path, nil)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	got, err := reopened.Find(context.Background(), wordcount.FindQuery{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "keep", got[0].ID)
}

func TestClosedStoreFails(t *testing.T) {
	t.Parallel()

	store, err := Open(context.Background(), ":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.Find(context.Background(), wordcount.FindQuery{})
	var pe *wordcount.PersistenceError
	require.ErrorAs(t, err, &pe)
}
