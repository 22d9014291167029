package dialog

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/linnemanlabs/ashabot/internal/session"
	"github.com/linnemanlabs/ashabot/internal/triage"
)

func TestMetrics_Hooks(t *testing.T) {
	t.Parallel()

	m := NewMetrics(prometheus.NewRegistry())
	h := m.Hooks()

	h.OnMessage(session.StateNone)
	h.OnMessage(session.StateNone)
	h.OnTransition(session.StateNone, session.StateAwaitingSymptoms)
	h.OnTriage(triage.Result{Category: triage.CategoryFever, Escalate: true})
	h.OnOutbreakAlert()
	h.OnStorageError("add_child")

	checks := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"messages", m.MessagesTotal.WithLabelValues("none"), 2},
		{"transitions", m.TransitionsTotal.WithLabelValues("none", "awaiting_symptoms"), 1},
		{"triage", m.TriageTotal.WithLabelValues("fever", "true"), 1},
		{"outbreak", m.OutbreakAlertsTotal, 1},
		{"storage", m.StorageErrorsTotal.WithLabelValues("add_child"), 1},
	}
	for _, c := range checks {
		if got := testutil.ToFloat64(c.c); got != c.want {
			t.Errorf("%s = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestMetrics_Sessions(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	now := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	store := session.NewStore(time.Minute,
		session.WithClock(func() time.Time { return now }),
		session.WithEvictHook(m.SessionsEvicted),
	)
	m.TrackSessions(store)

	store.Do("a", func(*session.Session) {})
	store.Do("b", func(*session.Session) {})

	if n, err := testutil.GatherAndCount(reg, "ashabot_sessions_active"); err != nil || n != 1 {
		t.Fatalf("GatherAndCount = %d, %v", n, err)
	}

	now = now.Add(time.Hour)
	store.Sweep()

	if got := testutil.ToFloat64(m.SessionsEvictedTotal); got != 2 {
		t.Errorf("evicted = %v, want 2", got)
	}
}
