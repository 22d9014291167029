package chatapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/ashabot/internal/records"
)

type childView struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	DateOfBirth  string    `json:"date_of_birth"`
	RegisteredAt time.Time `json:"registered_at"`
}

type childrenResponse struct {
	UserID   string      `json:"user_id"`
	Children []childView `json:"children"`
}

func (a *API) handleChildren(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	kids, err := a.children.Children(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list children")
		storageError(w, err)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.Int("ashabot.children.count", len(kids)))

	resp := childrenResponse{UserID: id, Children: make([]childView, 0, len(kids))}
	for _, c := range kids {
		resp.Children = append(resp.Children, childView{
			ID:           c.ID,
			Name:         c.Name,
			DateOfBirth:  c.DateOfBirth.Format(time.DateOnly),
			RegisteredAt: c.CreatedAt.UTC(),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleOutbreak(w http.ResponseWriter, r *http.Request) {
	st, err := a.outbreak.Status(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to compute outbreak status")
		storageError(w, err)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.Int("ashabot.outbreak.count", st.Count),
		attribute.Bool("ashabot.outbreak.alert", st.Alert),
	)

	writeJSON(w, http.StatusOK, st)
}

func storageError(w http.ResponseWriter, err error) {
	if errors.Is(err, records.ErrUnavailable) {
		http.Error(w, `{"error":"storage unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
}
