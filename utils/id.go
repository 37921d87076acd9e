package utils

import "github.com/google/uuid"

// NewSegmentID returns a random UUIDv4 used as an opaque grid segment key.
func NewSegmentID() string {
	return uuid.NewString()
}
