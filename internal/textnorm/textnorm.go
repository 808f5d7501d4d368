// Package textnorm implements the text transforms applied before words are
// tallied. Every function is a pure string transform.
package textnorm

import (
	"strings"
	"unicode"
)

// Punctuation lists every rune removed by RemovePunctuation. The apostrophe is
// deliberately absent so contractions survive.
const Punctuation = "~`!@#$%^&*(){}[];:\"<,.>?/\\|_+=-"

// Options selects the optional transforms.
type Options struct {
	IgnorePunctuation bool
	IgnoreNumbers     bool
}

// RemovePunctuation drops every rune listed in Punctuation.
func RemovePunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x80 && strings.ContainsRune(Punctuation, r) {
			return -1
		}
		return r
	}, s)
}

// RemoveNumbers drops every run of ASCII decimal digits without inserting a
// separator in its place.
func RemoveNumbers(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return -1
		}
		return r
	}, s)
}

// IsSpace reports whether r counts as whitespace for normalization.
func IsSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', '\u2028', '\u2029', '\ufeff':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

// NormalizeWhitespace collapses every run of two or more whitespace runes, and
// every lone newline or tab, into a single space. A lone space or other lone
// whitespace rune is kept as is.
func NormalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	runStart := -1
	runLen := 0
	flush := func(end int) {
		if runLen == 0 {
			return
		}
		run := s[runStart:end]
		if runLen >= 2 || run == "\n" || run == "\t" {
			b.WriteByte(' ')
		} else {
			b.WriteString(run)
		}
		runStart, runLen = -1, 0
	}
	for i, r := range s {
		if IsSpace(r) {
			if runLen == 0 {
				runStart = i
			}
			runLen++
			continue
		}
		flush(i)
		b.WriteRune(r)
	}
	flush(len(s))
	return b.String()
}

// Strip applies the optional transforms in their fixed order: punctuation
// first, then digits.
func Strip(s string, opts Options) string {
	if opts.IgnorePunctuation {
		s = RemovePunctuation(s)
	}
	if opts.IgnoreNumbers {
		s = RemoveNumbers(s)
	}
	return s
}

// Normalize strips s according to opts and then normalizes its whitespace.
func Normalize(s string, opts Options) string {
	return NormalizeWhitespace(Strip(s, opts))
}
