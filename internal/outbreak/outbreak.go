// Package outbreak implements the community outbreak heuristic: too many
// fever reports in the trailing window triggers a community alert.
package outbreak

import (
	"context"
	"time"
)

const (
	// Threshold is the report count that must be strictly exceeded to alert.
	Threshold = 3

	// Window is the trailing period over which reports are counted.
	Window = 24 * time.Hour
)

// ReportCounter counts recent symptom reports matching keywords.
type ReportCounter interface {
	CountRecentReports(ctx context.Context, since time.Time, keywords []string) (int, error)
}

// Status is a snapshot of the heuristic.
type Status struct {
	Count       int       `json:"count"`
	Threshold   int       `json:"threshold"`
	WindowStart time.Time `json:"window_start"`
	Alert       bool      `json:"alert"`
}

// Monitor evaluates the heuristic on demand. Results are never cached.
type Monitor struct {
	counter  ReportCounter
	keywords []string
	now      func() time.Time
}

// New creates a Monitor counting reports that mention any of keywords.
func New(counter ReportCounter, keywords []string) *Monitor {
	return &Monitor{
		counter:  counter,
		keywords: append([]string(nil), keywords...),
		now:      time.Now,
	}
}

// Status counts matching reports in the trailing Window.
func (m *Monitor) Status(ctx context.Context) (Status, error) {
	since := m.now().Add(-Window)
	n, err := m.counter.CountRecentReports(ctx, since, m.keywords)
	if err != nil {
		return Status{}, err
	}
	return Status{
		Count:       n,
		Threshold:   Threshold,
		WindowStart: since,
		Alert:       n > Threshold,
	}, nil
}

// ShouldAlert reports whether the trailing-window count exceeds Threshold.
func (m *Monitor) ShouldAlert(ctx context.Context) (bool, error) {
	st, err := m.Status(ctx)
	if err != nil {
		return false, err
	}
	return st.Alert, nil
}
