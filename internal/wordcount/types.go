// Package wordcount defines the request and record types of the word count
// service and the orchestration that ties fetching, tallying, persistence,
// and sorting together.
package wordcount

import (
	"time"

	"github.com/JakeFAU/wordcount-api/internal/tally"
	"github.com/JakeFAU/wordcount-api/internal/textnorm"
)

// ProcessingType selects how a document is acquired.
type ProcessingType string

// Processing types accepted in Options.
const (
	ProcessingWhole  ProcessingType = "whole"
	ProcessingStream ProcessingType = "stream"
)

// Options carries the per-request processing and presentation knobs.
type Options struct {
	ProcessingType    ProcessingType `json:"processingType,omitempty" validate:"omitempty,oneof=whole stream"`
	Sort              tally.SortKey  `json:"sort,omitempty" validate:"omitempty,oneof=none key occurrences occurences"`
	SortDirection     string         `json:"sortDirection,omitempty" validate:"omitempty,sortdirection"`
	IgnorePunctuation bool           `json:"ignorePunctuation"`
	IgnoreNumbers     bool           `json:"ignoreNumbers"`
}

// Normalization extracts the text normalization switches.
func (o Options) Normalization() textnorm.Options {
	return textnorm.Options{
		IgnorePunctuation: o.IgnorePunctuation,
		IgnoreNumbers:     o.IgnoreNumbers,
	}
}

// Request is the client payload for a word count.
type Request struct {
	URL     string  `json:"url" validate:"required,http_url"`
	Options Options `json:"options"`
}

// Record is the persisted result of one successful word count. WordCount is
// nil when a query excluded it.
type Record struct {
	ID        string       `json:"id"`
	URL       string       `json:"url"`
	Options   Options      `json:"options"`
	Date      time.Time    `json:"date"`
	WordCount *tally.Tally `json:"wordCount,omitempty"`
}

// FindQuery describes a history lookup against a Store.
type FindQuery struct {
	// SortByDate orders results by Date; otherwise the store's natural order
	// is used.
	SortByDate bool
	Descending bool
	// IncludeWordCounts loads the WordCount field. Stores must not read it
	// when false.
	IncludeWordCounts bool
}

// HistoryQuery is the client-facing form of a history lookup.
type HistoryQuery struct {
	Sort              bool
	SortDirection     string
	IncludeWordCounts bool
}

// Completion is published after a record has been stored.
type Completion struct {
	ID             string         `json:"id"`
	URL            string         `json:"url"`
	Date           time.Time      `json:"date"`
	ProcessingType ProcessingType `json:"processingType"`
	DistinctWords  int            `json:"distinctWords"`
	TotalWords     int            `json:"totalWords"`
}
