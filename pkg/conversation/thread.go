// Package conversation mints thread identifiers. Threads carry no server-side state.
package conversation

import (
	"github.com/google/uuid"
)

// ThreadID is an opaque conversation identifier.
type ThreadID string

// NewThreadID returns a fresh random (version 4) identifier.
func NewThreadID() ThreadID {
	return ThreadID(uuid.New().String())
}

// String returns the identifier text.
func (t ThreadID) String() string {
	return string(t)
}
