// Package dialog implements the per-user conversation flow: it reads the
// sender's session, picks the handler for the session's state, and produces
// exactly one reply per inbound message.
package dialog

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/ashabot/internal/content"
	"github.com/linnemanlabs/ashabot/internal/outbreak"
	"github.com/linnemanlabs/ashabot/internal/records"
	"github.com/linnemanlabs/ashabot/internal/schedule"
	"github.com/linnemanlabs/ashabot/internal/session"
	"github.com/linnemanlabs/ashabot/internal/triage"
)

const (
	// dobLayout is the accepted birth date format: DD-MM-YYYY.
	dobLayout = "02-01-2006"

	notifyCooldown = time.Hour
	notifyTimeout  = 10 * time.Second
)

var dobPattern = regexp.MustCompile(`^\d{2}-\d{2}-\d{4}$`)

// ChildStore is the subset of records.Store the dialog reads and writes
// directly. Symptom reports go through the triage engine.
type ChildStore interface {
	AddChild(ctx context.Context, userID, name string, dob time.Time) error
	Children(ctx context.Context, userID string) ([]records.Child, error)
}

// Notifier tells health workers about a community outbreak alert.
type Notifier interface {
	NotifyOutbreak(ctx context.Context, st outbreak.Status) error
}

// Deps are the collaborators of a Machine. Notifier is optional.
type Deps struct {
	Sessions *session.Store
	Catalog  *content.Catalog
	Triage   *triage.Engine
	Outbreak *outbreak.Monitor
	Children ChildStore
	Notifier Notifier
}

// turn is one message being handled for one session.
type turn struct {
	sess  *session.Session
	text  string // trimmed original text
	lower string
}

type handler func(ctx context.Context, t turn) string

// Machine is the dialog state machine. It is safe for concurrent use.
type Machine struct {
	sessions *session.Store
	catalog  *content.Catalog
	triage   *triage.Engine
	outbreak *outbreak.Monitor
	children ChildStore
	notifier Notifier
	logger   log.Logger
	hooks    Hooks
	handlers map[session.State]handler
	now      func() time.Time

	notifyMu     sync.Mutex
	lastNotified time.Time
	inflight     sync.WaitGroup
}

// New creates a Machine. All Deps except Notifier are required.
func New(d Deps, logger log.Logger, hooks Hooks) *Machine {
	if d.Sessions == nil {
		panic(xerrors.New("session store is required"))
	}
	if d.Catalog == nil {
		panic(xerrors.New("content catalog is required"))
	}
	if d.Triage == nil {
		panic(xerrors.New("triage engine is required"))
	}
	if d.Outbreak == nil {
		panic(xerrors.New("outbreak monitor is required"))
	}
	if d.Children == nil {
		panic(xerrors.New("child store is required"))
	}
	if logger == nil {
		logger = log.Nop()
	}

	m := &Machine{
		sessions: d.Sessions,
		catalog:  d.Catalog,
		triage:   d.Triage,
		outbreak: d.Outbreak,
		children: d.Children,
		notifier: d.Notifier,
		logger:   logger,
		hooks:    hooks,
		now:      time.Now,
	}
	m.handlers = map[session.State]handler{
		session.StateNone:               m.handleNone,
		session.StateAwaitingLangChoice: m.handleLangChoice,
		session.StateAwaitingChildName:  m.handleChildName,
		session.StateAwaitingDOB:        m.handleDOB,
		session.StateAwaitingSymptoms:   m.handleSymptoms,
	}
	return m
}

// Handle processes one inbound message from userID and returns the reply.
// It always returns non-empty text; failures of collaborators are logged and
// answered with a localized service error.
func (m *Machine) Handle(ctx context.Context, userID, msg string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error(ctx, fmt.Errorf("panic: %v", r), "dialog handler panicked", "user_id", userID)
			reply = m.catalog.Resolve(content.EN, content.ServiceError, nil)
		}
	}()

	text := strings.TrimSpace(msg)
	m.sessions.Do(userID, func(s *session.Session) {
		from := s.State
		m.hooks.message(from)

		h, ok := m.handlers[from]
		if !ok {
			m.logger.Warn(ctx, "session in unknown state, resetting", "user_id", userID, "state", from)
			s.Transition(session.StateNone)
			h = m.handleNone
		}
		reply = h(ctx, turn{sess: s, text: text, lower: strings.ToLower(text)})

		if s.State != from {
			m.hooks.transition(from, s.State)
		}
	})
	return reply
}

// Wait blocks until in-flight outbreak notifications have finished.
func (m *Machine) Wait() {
	m.inflight.Wait()
}

func (m *Machine) handleNone(ctx context.Context, t turn) string {
	lang := t.sess.Language
	switch classifyIntent(t.lower) {
	case intentRegister:
		t.sess.Transition(session.StateAwaitingChildName)
		return m.catalog.Resolve(lang, content.AskChildName, nil)
	case intentSchedule:
		return m.schedules(ctx, t.sess)
	case intentSymptom:
		t.sess.Transition(session.StateAwaitingSymptoms)
		return m.catalog.Resolve(lang, content.SymptomPrompt, nil)
	case intentStory:
		return m.catalog.Resolve(lang, content.HealthStory, nil)
	default:
		t.sess.Transition(session.StateAwaitingLangChoice)
		return m.catalog.Resolve(content.EN, content.ChooseLang, nil)
	}
}

func (m *Machine) handleLangChoice(_ context.Context, t turn) string {
	var lang content.Language
	switch {
	case strings.Contains(t.lower, "1"):
		lang = content.EN
	case strings.Contains(t.lower, "2"):
		lang = content.HI
	default:
		// no language chosen yet, so the chooser is shown in English
		return m.catalog.Resolve(content.EN, content.ChooseLang, nil)
	}
	t.sess.Language = lang
	t.sess.Transition(session.StateNone)
	return m.catalog.Resolve(lang, content.LangSet, nil) + "\n" + m.catalog.Resolve(lang, content.Welcome, nil)
}

func (m *Machine) handleChildName(_ context.Context, t turn) string {
	lang := t.sess.Language
	if t.text == "" {
		return m.catalog.Resolve(lang, content.AskChildName, nil)
	}
	name := cases.Title(language.Und).String(t.lower)
	t.sess.AwaitDOB(name)
	return m.catalog.Resolve(lang, content.AskDOB, map[string]string{content.VarChildName: name})
}

func (m *Machine) handleDOB(ctx context.Context, t turn) string {
	lang := t.sess.Language
	dob, ok := parseDOB(t.text)
	if !ok {
		return m.catalog.Resolve(lang, content.DOBError, nil)
	}

	name := t.sess.PendingChildName
	if err := m.children.AddChild(ctx, t.sess.UserID, name, dob); err != nil {
		m.storageFailed(ctx, "add_child", t.sess.UserID, err)
		return m.catalog.Resolve(lang, content.ServiceError, nil)
	}
	t.sess.Transition(session.StateNone)
	m.logger.Info(ctx, "child registered", "user_id", t.sess.UserID)
	return m.catalog.Resolve(lang, content.RegisterSuccess, map[string]string{content.VarChildName: name})
}

func (m *Machine) handleSymptoms(ctx context.Context, t turn) string {
	lang := t.sess.Language
	res, err := m.triage.Report(ctx, t.sess.UserID, t.text)
	if err != nil {
		m.storageFailed(ctx, "log_symptom_report", t.sess.UserID, err)
		return m.catalog.Resolve(lang, content.ServiceError, nil)
	}
	t.sess.Transition(session.StateNone)
	m.hooks.triage(res)

	reply := triage.Render(m.catalog, lang, res)

	st, err := m.outbreak.Status(ctx)
	if err != nil {
		m.storageFailed(ctx, "count_recent_reports", t.sess.UserID, err)
		return reply
	}
	if st.Alert {
		m.hooks.outbreakAlert()
		m.notify(ctx, st)
		reply += m.catalog.Resolve(lang, content.OutbreakAlert, nil)
	}
	return reply
}

// schedules renders one schedule block per registered child.
func (m *Machine) schedules(ctx context.Context, s *session.Session) string {
	lang := s.Language
	kids, err := m.children.Children(ctx, s.UserID)
	if err != nil {
		m.storageFailed(ctx, "children", s.UserID, err)
		return m.catalog.Resolve(lang, content.ServiceError, nil)
	}
	if len(kids) == 0 {
		return m.catalog.Resolve(lang, content.NoChildren, nil)
	}

	blocks := make([]string, 0, len(kids))
	for _, c := range kids {
		header := m.catalog.Resolve(lang, content.ScheduleHeader, map[string]string{content.VarChildName: c.Name})
		blocks = append(blocks, header+"\n"+schedule.Render(c.DateOfBirth, lang))
	}
	return strings.TrimSpace(strings.Join(blocks, "\n\n"))
}

// notify sends the outbreak alert to health workers in the background, at
// most once per notifyCooldown.
func (m *Machine) notify(ctx context.Context, st outbreak.Status) {
	if m.notifier == nil {
		return
	}

	m.notifyMu.Lock()
	now := m.now()
	if !m.lastNotified.IsZero() && now.Sub(m.lastNotified) < notifyCooldown {
		m.notifyMu.Unlock()
		return
	}
	m.lastNotified = now
	m.notifyMu.Unlock()

	m.inflight.Add(1)
	go func() {
		defer m.inflight.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := m.notifier.NotifyOutbreak(ctx, st); err != nil {
			m.logger.Error(ctx, err, "outbreak notification failed", "count", st.Count)
		}
	}()
}

func (m *Machine) storageFailed(ctx context.Context, op, userID string, err error) {
	m.hooks.storageError(op)
	m.logger.Error(ctx, err, "storage call failed", "op", op, "user_id", userID)
}

// parseDOB accepts exactly DD-MM-YYYY naming a real calendar date.
func parseDOB(s string) (time.Time, bool) {
	if !dobPattern.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse(dobLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
