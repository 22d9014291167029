package records

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable marks a failure of the backing store. Backends wrap every
// driver error with it so callers can tell collaborator failures apart.
var ErrUnavailable = errors.New("storage unavailable")

// Store is the persistence interface for children and symptom reports.
type Store interface {
	// AddChild registers a child for userID.
	AddChild(ctx context.Context, userID, name string, dob time.Time) error

	// Children returns the children registered by userID in registration order.
	Children(ctx context.Context, userID string) ([]Child, error)

	// LogSymptomReport appends a raw symptom description to the report log.
	LogSymptomReport(ctx context.Context, userID, text string) error

	// CountRecentReports counts reports created at or after since whose text
	// contains any of keywords, compared case-insensitively. Reports from the
	// same user are counted individually.
	CountRecentReports(ctx context.Context, since time.Time, keywords []string) (int, error)
}
