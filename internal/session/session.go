// Package session keeps the per-user dialog state. Sessions are created on
// first contact, mutated only inside Store.Do, and evicted after a period of
// inactivity.
package session

import (
	"time"

	"github.com/linnemanlabs/ashabot/internal/content"
)

// State is the active step of a multi-turn dialog.
type State string

const (
	StateNone               State = "none"
	StateAwaitingLangChoice State = "awaiting_lang_choice"
	StateAwaitingChildName  State = "awaiting_child_name"
	StateAwaitingDOB        State = "awaiting_dob"
	StateAwaitingSymptoms   State = "awaiting_symptoms"
)

// States lists every dialog state.
func States() []State {
	return []State{
		StateNone,
		StateAwaitingLangChoice,
		StateAwaitingChildName,
		StateAwaitingDOB,
		StateAwaitingSymptoms,
	}
}

// Session is one user's conversational state.
//
// PendingChildName is non-empty exactly when State is StateAwaitingDOB;
// use Transition and AwaitDOB rather than assigning the fields directly.
type Session struct {
	ID               string
	UserID           string
	State            State
	Language         content.Language
	PendingChildName string
	CreatedAt        time.Time
	LastSeen         time.Time
}

// Transition moves to st, clearing the pending child name.
func (s *Session) Transition(st State) {
	s.State = st
	s.PendingChildName = ""
}

// AwaitDOB moves to StateAwaitingDOB holding name until the birth date arrives.
func (s *Session) AwaitDOB(name string) {
	s.State = StateAwaitingDOB
	s.PendingChildName = name
}
