package dialog

import (
	"github.com/linnemanlabs/ashabot/internal/session"
	"github.com/linnemanlabs/ashabot/internal/triage"
)

// Hooks are optional callbacks fired while handling a message. Nil fields
// are skipped.
type Hooks struct {
	// OnMessage fires once per inbound message with the state it arrived in.
	OnMessage func(state session.State)

	// OnTransition fires when a message moved the session to another state.
	OnTransition func(from, to session.State)

	// OnTriage fires after a symptom report was classified.
	OnTriage func(r triage.Result)

	// OnOutbreakAlert fires when the alert suffix was added to a reply.
	OnOutbreakAlert func()

	// OnStorageError fires when a storage call failed; op names the call.
	OnStorageError func(op string)
}

func (h Hooks) message(st session.State) {
	if h.OnMessage != nil {
		h.OnMessage(st)
	}
}

func (h Hooks) transition(from, to session.State) {
	if h.OnTransition != nil {
		h.OnTransition(from, to)
	}
}

func (h Hooks) triage(r triage.Result) {
	if h.OnTriage != nil {
		h.OnTriage(r)
	}
}

func (h Hooks) outbreakAlert() {
	if h.OnOutbreakAlert != nil {
		h.OnOutbreakAlert()
	}
}

func (h Hooks) storageError(op string) {
	if h.OnStorageError != nil {
		h.OnStorageError(op)
	}
}
