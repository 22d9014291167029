package dialog

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/linnemanlabs/ashabot/internal/session"
	"github.com/linnemanlabs/ashabot/internal/triage"
)

// Metrics holds Prometheus metrics for the dialog subsystem.
type Metrics struct {
	MessagesTotal        *prometheus.CounterVec
	TransitionsTotal     *prometheus.CounterVec
	TriageTotal          *prometheus.CounterVec
	OutbreakAlertsTotal  prometheus.Counter
	StorageErrorsTotal   *prometheus.CounterVec
	SessionsEvictedTotal prometheus.Counter

	reg prometheus.Registerer
}

// NewMetrics registers and returns dialog metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		MessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ashabot_messages_total",
			Help: "Inbound messages by the dialog state they arrived in.",
		}, []string{"state"}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ashabot_transitions_total",
			Help: "Dialog state transitions.",
		}, []string{"from", "to"}),
		TriageTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ashabot_triage_total",
			Help: "Symptom reports by triage category and escalation.",
		}, []string{"category", "escalate"}),
		OutbreakAlertsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ashabot_outbreak_alerts_total",
			Help: "Replies carrying the community outbreak alert.",
		}),
		StorageErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ashabot_storage_errors_total",
			Help: "Failed storage calls by operation.",
		}, []string{"op"}),
		SessionsEvictedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ashabot_sessions_evicted_total",
			Help: "Sessions evicted after the idle TTL.",
		}),
		reg: reg,
	}

	reg.MustRegister(
		m.MessagesTotal,
		m.TransitionsTotal,
		m.TriageTotal,
		m.OutbreakAlertsTotal,
		m.StorageErrorsTotal,
		m.SessionsEvictedTotal,
	)

	return m
}

// TrackSessions registers a gauge reporting the live session count of s.
func (m *Metrics) TrackSessions(s *session.Store) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "ashabot_sessions_active",
		Help: "Sessions currently held in memory.",
	}, func() float64 { return float64(s.Len()) }))
}

// SessionsEvicted is a session.WithEvictHook callback.
func (m *Metrics) SessionsEvicted(n int) {
	m.SessionsEvictedTotal.Add(float64(n))
}

// Hooks returns Hooks that increment the corresponding metrics.
func (m *Metrics) Hooks() Hooks {
	return Hooks{
		OnMessage: func(st session.State) {
			m.MessagesTotal.WithLabelValues(string(st)).Inc()
		},
		OnTransition: func(from, to session.State) {
			m.TransitionsTotal.WithLabelValues(string(from), string(to)).Inc()
		},
		OnTriage: func(r triage.Result) {
			m.TriageTotal.WithLabelValues(string(r.Category), strconv.FormatBool(r.Escalate)).Inc()
		},
		OnOutbreakAlert: func() {
			m.OutbreakAlertsTotal.Inc()
		},
		OnStorageError: func(op string) {
			m.StorageErrorsTotal.WithLabelValues(op).Inc()
		},
	}
}
