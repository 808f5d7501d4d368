package tally

import (
	"encoding/json"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/wordcount-api/internal/textnorm"
)

func seqOf(chunks ...string) iter.Seq2[[]byte, error] {
	return func(yield func([]byte, error) bool) {
		buf := make([]byte, 0, 64)
		for _, c := range chunks {
			// Reuse one buffer the way a body reader would.
			buf = append(buf[:0], c...)
			if !yield(buf, nil) {
				return
			}
		}
	}
}

func splitEvery(s string, n int) []string {
	var out []string
	for len(s) > n {
		out = append(out, s[:n])
		s = s[n:]
	}
	return append(out, s)
}

func TestAccumulateCountsLowercasedWords(t *testing.T) {
	t.Parallel()

	got := Accumulate("the the THE cat", nil)
	assert.Equal(t, map[string]int{"the": 3, "cat": 1}, got.Map())
	assert.Equal(t, []string{"the", "cat"}, got.Words())
}

func TestAccumulateSkipsEmptyTokens(t *testing.T) {
	t.Parallel()

	got := Accumulate(" a  b ", New())
	assert.Equal(t, map[string]int{"a": 1, "b": 1}, got.Map())
	assert.Zero(t, got.Count(""))
}

func TestAccumulateMergesIntoRunningTotal(t *testing.T) {
	t.Parallel()

	acc := New()
	acc = Accumulate("one two", acc)
	acc = Accumulate("two three", acc)
	assert.Equal(t, map[string]int{"one": 1, "two": 2, "three": 1}, acc.Map())
	assert.Equal(t, 4, acc.Total())
}

func TestProcessContractions(t *testing.T) {
	t.Parallel()

	text := "Tell the audience what you're going to say. Say it. Then tell them what you've said."
	got := Process(text, textnorm.Options{IgnorePunctuation: true}, nil)
	assert.Equal(t, map[string]int{
		"tell":     2,
		"the":      1,
		"audience": 1,
		"what":     2,
		"you're":   1,
		"going":    1,
		"to":       1,
		"say":      2,
		"it":       1,
		"then":     1,
		"them":     1,
		"you've":   1,
		"said":     1,
	}, got.Map())
}

func TestFoldMatchesWholeBody(t *testing.T) {
	t.Parallel()

	got, err := Fold(seqOf("the cat ", "sat on the ", "mat"), textnorm.Options{}, nil)
	require.NoError(t, err)
	want := Process("the cat sat on the mat", textnorm.Options{}, nil)
	assert.Equal(t, want.Entries(), got.Entries())
}

func TestFoldIsIndependentOfChunkBoundaries(t *testing.T) {
	t.Parallel()

	doc := "Hello, World!  It's 2024\n\nand the\tworld's  caf\u00e9-cr\u00e8me\r\nserves 3 caf\u00e9s.\r" +
		"Numbers12like34this and punctuation... everywhere;\u00a0right? ~ END \u3000 end"
	optionSets := []textnorm.Options{
		{},
		{IgnorePunctuation: true},
		{IgnoreNumbers: true},
		{IgnorePunctuation: true, IgnoreNumbers: true},
	}
	for _, opts := range optionSets {
		want := Process(doc, opts, nil)
		for size := 1; size <= len(doc); size++ {
			got, err := Fold(seqOf(splitEvery(doc, size)...), opts, nil)
			require.NoError(t, err)
			require.Equal(t, want.Entries(), got.Entries(), "opts=%+v size=%d", opts, size)
		}
	}
}

func TestFoldHoldsBackSplitRunes(t *testing.T) {
	t.Parallel()

	word := "\u00e9t\u00e9"
	raw := []byte(word + " " + word)
	chunks := []string{string(raw[:1]), string(raw[1:4]), string(raw[4:])}
	got, err := Fold(seqOf(chunks...), textnorm.Options{}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{word: 2}, got.Map())
}

func TestFoldReturnsSequenceError(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	chunks := func(yield func([]byte, error) bool) {
		if !yield([]byte("partial words "), nil) {
			return
		}
		yield(nil, boom)
	}
	got, err := Fold(chunks, textnorm.Options{}, nil)
	require.ErrorIs(t, err, boom)
	assert.Nil(t, got)
}

func TestLastCut(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		from int
		want int
	}{
		{text: "a b", want: 2},
		{text: "a b ", want: 2},
		{text: "ab", want: 0},
		{text: "a\rb", want: 0},
		{text: "a\r\rb", want: 3},
		{text: "a\nb c\rd", want: 4},
		{text: "  x", from: 2, want: 2},
		{text: "   ", want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, lastCut(tt.text, tt.from), "%q", tt.text)
	}
}

func TestTallyJSONPreservesOrder(t *testing.T) {
	t.Parallel()

	src := FromEntries([]Entry{{"zebra", 1}, {"apple", 3}, {"don't", 2}})
	data, err := json.Marshal(src)
	require.NoError(t, err)
	assert.Equal(t, `{"zebra":1,"apple":3,"don't":2}`, string(data))

	var back Tally
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, src.Entries(), back.Entries())
}

func TestTallyUnmarshalRejectsNonObject(t *testing.T) {
	t.Parallel()

	var tl Tally
	err := json.Unmarshal([]byte(`[1,2]`), &tl)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "expected object"))
}

func TestTallyCloneIsIndependent(t *testing.T) {
	t.Parallel()

	orig := Accumulate("a b a", nil)
	cp := orig.Clone()
	cp.Add("a", 10)
	assert.Equal(t, 2, orig.Count("a"))
	assert.Equal(t, 12, cp.Count("a"))
}
