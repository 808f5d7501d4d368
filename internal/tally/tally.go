// Package tally accumulates word counts and orders finished tallies.
//
// A Tally is an ordered mapping from word to count. While it is being built
// the order is first-insertion order; Sort produces a new Tally whose order is
// the requested display order. The order survives JSON round trips.
package tally

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Entry is a single word and its occurrence count.
type Entry struct {
	Word  string
	Count int
}

// Tally is an ordered word to count mapping. The zero value is ready to use.
// A Tally is not safe for concurrent mutation.
type Tally struct {
	entries []Entry
	index   map[string]int
}

// New returns an empty Tally.
func New() *Tally {
	return &Tally{index: make(map[string]int)}
}

// FromEntries builds a Tally holding entries in the given order. Later
// duplicates are merged into the first occurrence.
func FromEntries(entries []Entry) *Tally {
	t := &Tally{
		entries: make([]Entry, 0, len(entries)),
		index:   make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		t.Add(e.Word, e.Count)
	}
	return t
}

// Add increments word by n, appending it when absent.
func (t *Tally) Add(word string, n int) {
	if t.index == nil {
		t.index = make(map[string]int)
	}
	if i, ok := t.index[word]; ok {
		t.entries[i].Count += n
		return
	}
	t.index[word] = len(t.entries)
	t.entries = append(t.entries, Entry{Word: word, Count: n})
}

// Count returns the count for word, or zero.
func (t *Tally) Count(word string) int {
	if t == nil {
		return 0
	}
	if i, ok := t.index[word]; ok {
		return t.entries[i].Count
	}
	return 0
}

// Len returns the number of distinct words.
func (t *Tally) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Total returns the sum of all counts.
func (t *Tally) Total() int {
	if t == nil {
		return 0
	}
	total := 0
	for _, e := range t.entries {
		total += e.Count
	}
	return total
}

// Entries returns a copy of the entries in order.
func (t *Tally) Entries() []Entry {
	if t == nil {
		return nil
	}
	return append([]Entry(nil), t.entries...)
}

// Words returns the words in order.
func (t *Tally) Words() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.entries))
	for i, e := range t.entries {
		out[i] = e.Word
	}
	return out
}

// Map returns the counts as an unordered map.
func (t *Tally) Map() map[string]int {
	out := make(map[string]int, t.Len())
	if t == nil {
		return out
	}
	for _, e := range t.entries {
		out[e.Word] = e.Count
	}
	return out
}

// Clone returns a deep copy of t.
func (t *Tally) Clone() *Tally {
	if t == nil {
		return nil
	}
	return FromEntries(t.entries)
}

// MarshalJSON encodes the tally as a JSON object whose keys follow the tally
// order.
func (t *Tally) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range t.entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Word)
		if err != nil {
			return nil, fmt.Errorf("marshal word %q: %w", e.Word, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		fmt.Fprintf(&buf, "%d", e.Count)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, keeping its key order.
func (t *Tally) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode tally: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode tally: expected object, got %v", tok)
	}
	*t = Tally{index: make(map[string]int)}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode tally key: %w", err)
		}
		word, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("decode tally: unexpected key %v", keyTok)
		}
		var count int
		if err := dec.Decode(&count); err != nil {
			return fmt.Errorf("decode count for %q: %w", word, err)
		}
		t.Add(word, count)
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode tally: %w", err)
	}
	return nil
}
