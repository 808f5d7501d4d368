package tally

import (
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/JakeFAU/wordcount-api/internal/textnorm"
)

// Accumulate splits normalized on single spaces and counts each lower-cased,
// non-empty token into acc. A nil acc is allocated. The returned Tally is acc.
func Accumulate(normalized string, acc *Tally) *Tally {
	if acc == nil {
		acc = New()
	}
	for word := range strings.SplitSeq(normalized, " ") {
		if word == "" {
			continue
		}
		acc.Add(strings.ToLower(word), 1)
	}
	return acc
}

// Process normalizes text according to opts and accumulates it into acc.
func Process(text string, opts textnorm.Options, acc *Tally) *Tally {
	return Accumulate(textnorm.Normalize(text, opts), acc)
}

// Fold reduces a sequence of raw text chunks into acc and returns the final
// tally. Chunk boundaries may fall anywhere, including inside a rune or a
// word: the result equals Process over the concatenated chunks.
//
// Each chunk is fully consumed before the next is requested, so a pull-based
// producer never runs ahead of the fold. Chunks are not retained after the
// call that receives them returns. If the sequence yields an error the fold
// stops and returns it; acc must then be considered garbage.
func Fold(chunks iter.Seq2[[]byte, error], opts textnorm.Options, acc *Tally) (*Tally, error) {
	if acc == nil {
		acc = New()
	}
	f := folder{opts: opts}
	for chunk, err := range chunks {
		if err != nil {
			return nil, err
		}
		acc = f.push(chunk, acc)
	}
	return f.finish(acc), nil
}

// folder holds the text that cannot be tallied yet: an incomplete trailing
// rune (raw bytes) and the stripped text after the last safe cut.
type folder struct {
	opts    textnorm.Options
	pending []byte
	carry   string
}

func (f *folder) push(chunk []byte, acc *Tally) *Tally {
	data := chunk
	if len(f.pending) > 0 {
		data = append(f.pending, chunk...)
		f.pending = nil
	}
	complete := completeRunes(data)
	if complete < len(data) {
		f.pending = append([]byte(nil), data[complete:]...)
	}
	text := f.carry + textnorm.Strip(string(data[:complete]), f.opts)
	cut := lastCut(text, len(f.carry))
	f.carry = text[cut:]
	if cut == 0 {
		return acc
	}
	return Accumulate(textnorm.NormalizeWhitespace(text[:cut]), acc)
}

func (f *folder) finish(acc *Tally) *Tally {
	text := f.carry + textnorm.Strip(string(f.pending), f.opts)
	f.carry, f.pending = "", nil
	return Accumulate(textnorm.NormalizeWhitespace(text), acc)
}

// completeRunes returns the length of the prefix of b that does not end in a
// truncated UTF-8 sequence.
func completeRunes(b []byte) int {
	for i := len(b) - 1; i >= 0 && i > len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if utf8.FullRune(b[i:]) {
				return len(b)
			}
			return i
		}
	}
	return len(b)
}

// lastCut returns the largest offset p >= from such that text[:p] ends with a
// whitespace run that normalizes to a word separator and text[p:] starts with
// a non-space rune. Tallying text[:p] and text[p:] separately then gives the
// same counts as tallying text. It returns 0 when there is no such offset.
func lastCut(text string, from int) int {
	i := len(text)
	for i > 0 && i >= from {
		r, size := utf8.DecodeLastRuneInString(text[:i])
		if !textnorm.IsSpace(r) {
			i -= size
			continue
		}
		end := i
		runes, separating := 0, false
		for i > 0 {
			r, size := utf8.DecodeLastRuneInString(text[:i])
			if !textnorm.IsSpace(r) {
				break
			}
			if r == ' ' || r == '\n' || r == '\t' {
				separating = true
			}
			runes++
			i -= size
		}
		if end < len(text) && (separating || runes >= 2) {
			return end
		}
	}
	return 0
}
