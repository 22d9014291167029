// Package chatapi is the HTTP transport for the dialog: the messaging
// provider webhook, a JSON message endpoint, and a read-only admin API.
package chatapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/ashabot/internal/authmw"
	"github.com/linnemanlabs/ashabot/internal/outbreak"
	"github.com/linnemanlabs/ashabot/internal/records"
)

// Responder produces the reply to one inbound message.
type Responder interface {
	Handle(ctx context.Context, userID, msg string) string
}

// ChildLister reads registered children.
type ChildLister interface {
	Children(ctx context.Context, userID string) ([]records.Child, error)
}

// OutbreakReporter reports the current outbreak heuristic.
type OutbreakReporter interface {
	Status(ctx context.Context) (outbreak.Status, error)
}

// Options control authentication of the routes.
type Options struct {
	// APIToken protects /api/v1. Empty disables those routes.
	APIToken string

	// TwilioAuthToken enables webhook signature verification on /chat.
	TwilioAuthToken string

	// PublicBaseURL is the externally visible origin used when checking
	// webhook signatures behind a proxy.
	PublicBaseURL string
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger   log.Logger
	bot      Responder
	children ChildLister
	outbreak OutbreakReporter
	opts     Options
}

// New creates a new API handler.
func New(logger log.Logger, bot Responder, children ChildLister, ob OutbreakReporter, opts Options) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if bot == nil {
		panic(xerrors.New("responder is required"))
	}
	if children == nil {
		panic(xerrors.New("child lister is required"))
	}
	if ob == nil {
		panic(xerrors.New("outbreak reporter is required"))
	}
	return &API{
		logger:   logger,
		bot:      bot,
		children: children,
		outbreak: ob,
		opts:     opts,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if a.opts.TwilioAuthToken != "" {
			r.Use(authmw.TwilioSignature(a.opts.TwilioAuthToken, a.opts.PublicBaseURL))
		}
		r.Post("/chat", a.handleChat)
	})

	if a.opts.APIToken == "" {
		return
	}
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(authmw.BearerToken(a.opts.APIToken))
		r.Post("/messages", a.handleMessage)
		r.Get("/users/{id}/children", a.handleChildren)
		r.Get("/outbreak", a.handleOutbreak)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
