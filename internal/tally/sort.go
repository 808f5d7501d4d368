package tally

import (
	"cmp"
	"slices"
	"strings"
)

// SortKey selects what a tally is ordered by.
type SortKey string

// Recognized sort keys. SortOccurencesLegacy is the spelling older clients send.
const (
	SortNone             SortKey = "none"
	SortKeyWord          SortKey = "key"
	SortOccurrences      SortKey = "occurrences"
	SortOccurencesLegacy SortKey = "occurences"
)

// Descending reports whether direction asks for descending order. Anything
// other than "desc" (case-insensitive) means ascending.
func Descending(direction string) bool {
	return strings.EqualFold(direction, "desc")
}

// Sort returns a new Tally ordered by key. Pairs are stable-sorted ascending
// and, for a descending direction, the ascending sequence is reversed; ties
// therefore appear in reverse tally order when descending. Unrecognized keys
// return t itself, untouched.
func Sort(t *Tally, key SortKey, direction string) *Tally {
	var compare func(a, b Entry) int
	switch key {
	case SortKeyWord:
		compare = func(a, b Entry) int { return strings.Compare(a.Word, b.Word) }
	case SortOccurrences, SortOccurencesLegacy:
		compare = func(a, b Entry) int { return cmp.Compare(a.Count, b.Count) }
	default:
		return t
	}
	pairs := t.Entries()
	slices.SortStableFunc(pairs, compare)
	if Descending(direction) {
		slices.Reverse(pairs)
	}
	return FromEntries(pairs)
}
