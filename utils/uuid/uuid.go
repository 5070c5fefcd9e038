package uuid

import (
	google_uuid "github.com/google/uuid"
)

// MustUUID returns a new random UUID as a string. It panics
// if the underlying random source cannot produce one, which
// in practice never happens on any supported platform.
func MustUUID() string {
	return google_uuid.New().String()
}

// NewTickID returns an identifier used to correlate every log
// line emitted by a single GetAssignments or Balance call.
func NewTickID() string {
	return MustUUID()
}
