package chatapi

import (
	"encoding/json"
	"encoding/xml"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// twiml is the messaging webhook response envelope.
type twiml struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message"`
}

type messageRequest struct {
	SenderID string `json:"sender_id"`
	Body     string `json:"body"`
}

type messageResponse struct {
	Reply string `json:"reply"`
}

func (a *API) handleChat(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form body", http.StatusBadRequest)
		return
	}
	from := strings.TrimSpace(r.PostForm.Get("From"))
	if from == "" {
		http.Error(w, "missing From", http.StatusBadRequest)
		return
	}
	body := r.PostForm.Get("Body")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("ashabot.channel", "webhook"),
		attribute.Int("ashabot.message.length", len(body)),
	)

	reply := a.bot.Handle(r.Context(), from, body)
	span.SetAttributes(attribute.Int("ashabot.reply.length", len(reply)))

	out, err := xml.Marshal(twiml{Message: reply})
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to encode webhook response")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(out)
}

func (a *API) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	req.SenderID = strings.TrimSpace(req.SenderID)
	if req.SenderID == "" {
		http.Error(w, `{"error":"sender_id is required"}`, http.StatusBadRequest)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("ashabot.channel", "api"),
		attribute.Int("ashabot.message.length", len(req.Body)),
	)

	reply := a.bot.Handle(r.Context(), req.SenderID, req.Body)
	span.SetAttributes(attribute.Int("ashabot.reply.length", len(reply)))

	writeJSON(w, http.StatusOK, messageResponse{Reply: reply})
}
