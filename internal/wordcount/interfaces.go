package wordcount

import (
	"context"
	"time"

	"github.com/JakeFAU/wordcount-api/internal/tally"
	"github.com/JakeFAU/wordcount-api/internal/textnorm"
)

// Acquirer fetches a document and tallies its words.
type Acquirer interface {
	Acquire(ctx context.Context, url string, opts textnorm.Options) (*tally.Tally, error)
}

// Store persists word count records.
type Store interface {
	Insert(ctx context.Context, rec Record) (Record, error)
	Find(ctx context.Context, q FindQuery) ([]Record, error)
	Close() error
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs.
type IDGenerator interface {
	NewID() (string, error)
}
