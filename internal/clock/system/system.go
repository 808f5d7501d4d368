// Package system provides a real clock implementation.
package system

import "time"

// DefaultPrecision matches the resolution of TIMESTAMPTZ columns, so a record
// read back from any backend carries the date it was created with.
const DefaultPrecision = time.Microsecond

// Clock implements wordcount.Clock using time.Now.
type Clock struct {
	precision time.Duration
}

// New creates a Clock truncating to DefaultPrecision.
func New() *Clock {
	return &Clock{precision: DefaultPrecision}
}

// NewWithPrecision creates a Clock truncating to p. A non-positive p disables truncation.
func NewWithPrecision(p time.Duration) *Clock {
	return &Clock{precision: p}
}

// Now returns the current UTC time.
func (c Clock) Now() time.Time {
	now := time.Now().UTC()
	if c.precision > 0 {
		now = now.Truncate(c.precision)
	}
	return now
}
