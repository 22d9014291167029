package records

import "github.com/oklog/ulid/v2"

// NewID returns a new time-ordered record identifier.
func NewID() string {
	return ulid.Make().String()
}
