// Package uuid issues word count record IDs. IDs are UUIDv7, so their string
// order follows creation time; stores without an insertion sequence rely on it.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// RecordIDs hands out record IDs.
type RecordIDs struct{}

// New returns a RecordIDs.
func New() RecordIDs {
	return RecordIDs{}
}

// NewID returns the next record ID.
func (RecordIDs) NewID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("new record id: %w", err)
	}
	return id.String(), nil
}
