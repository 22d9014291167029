package chatapi

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/linnemanlabs/ashabot/internal/authmw"
	"github.com/linnemanlabs/ashabot/internal/outbreak"
	"github.com/linnemanlabs/ashabot/internal/records"
)

const testToken = "admin-token"

// mockBot echoes messages and records calls.
type mockBot struct {
	mu    sync.Mutex
	calls [][2]string
}

func (b *mockBot) Handle(_ context.Context, userID, msg string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, [2]string{userID, msg})
	return "reply to " + msg + "\n& <more>"
}

type mockChildren struct {
	kids []records.Child
	err  error
}

func (m *mockChildren) Children(_ context.Context, _ string) ([]records.Child, error) {
	return m.kids, m.err
}

type mockOutbreak struct {
	st  outbreak.Status
	err error
}

func (m *mockOutbreak) Status(context.Context) (outbreak.Status, error) {
	return m.st, m.err
}

type fixture struct {
	router   chi.Router
	bot      *mockBot
	children *mockChildren
	outbreak *mockOutbreak
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	f := &fixture{
		bot:      &mockBot{},
		children: &mockChildren{},
		outbreak: &mockOutbreak{},
	}
	api := New(log.Nop(), f.bot, f.children, f.outbreak, opts)
	f.router = chi.NewRouter()
	api.RegisterRoutes(f.router)
	return f
}

func formRequest(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+testToken)
	return req
}

//  New / constructor

func TestNew_NilLogger(t *testing.T) {
	t.Parallel()

	api := New(nil, &mockBot{}, &mockChildren{}, &mockOutbreak{}, Options{})
	if api.logger == nil {
		t.Fatal("New(nil, ...) left logger nil; expected Nop logger")
	}
}

func TestNew_PanicsOnMissingDeps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		fn   func()
	}{
		{"nil responder", func() { New(nil, nil, &mockChildren{}, &mockOutbreak{}, Options{}) }},
		{"nil children", func() { New(nil, &mockBot{}, nil, &mockOutbreak{}, Options{}) }},
		{"nil outbreak", func() { New(nil, &mockBot{}, &mockChildren{}, nil, Options{}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			defer func() {
				if recover() == nil {
					t.Fatal("expected panic")
				}
			}()
			tt.fn()
		})
	}
}

// Webhook

func TestHandleChat_ReturnsTwiML(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	req := formRequest("/chat", url.Values{"From": {"whatsapp:+911"}, "Body": {"Register"}})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/xml") {
		t.Errorf("content-type = %q, want text/xml", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "<?xml") {
		t.Errorf("body = %q, want xml declaration", rec.Body.String())
	}

	var got twiml
	if err := xml.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode twiml: %v", err)
	}
	if want := "reply to Register\n& <more>"; got.Message != want {
		t.Errorf("Message = %q, want %q", got.Message, want)
	}

	if len(f.bot.calls) != 1 || f.bot.calls[0] != [2]string{"whatsapp:+911", "Register"} {
		t.Errorf("bot calls = %v", f.bot.calls)
	}
}

func TestHandleChat_EmptyBodyStillReplies(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, formRequest("/chat", url.Values{"From": {"+911"}}))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if len(f.bot.calls) != 1 || f.bot.calls[0][1] != "" {
		t.Errorf("bot calls = %v, want one call with empty body", f.bot.calls)
	}
}

func TestHandleChat_MissingFrom(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, formRequest("/chat", url.Values{"Body": {"hi"}}))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if len(f.bot.calls) != 0 {
		t.Errorf("bot called %d times, want 0", len(f.bot.calls))
	}
}

func TestHandleChat_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/chat", http.NoBody))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}

func TestHandleChat_SignatureVerification(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{TwilioAuthToken: "tw-secret", PublicBaseURL: "https://bot.example.org"})
	form := url.Values{"From": {"+911"}, "Body": {"story"}}

	unsigned := httptest.NewRecorder()
	f.router.ServeHTTP(unsigned, formRequest("/chat", form))
	if unsigned.Code != http.StatusForbidden {
		t.Errorf("unsigned status = %d, want %d", unsigned.Code, http.StatusForbidden)
	}

	req := formRequest("/chat", form)
	req.Header.Set(authmw.SignatureHeader, authmw.Sign([]byte("tw-secret"), "https://bot.example.org/chat", form))
	signed := httptest.NewRecorder()
	f.router.ServeHTTP(signed, req)
	if signed.Code != http.StatusOK {
		t.Errorf("signed status = %d, want %d", signed.Code, http.StatusOK)
	}
	if len(f.bot.calls) != 1 {
		t.Errorf("bot calls = %d, want 1", len(f.bot.calls))
	}
}

// JSON messages

func TestHandleMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		auth       bool
		wantStatus int
	}{
		{"valid", `{"sender_id":"u-1","body":"schedule"}`, true, http.StatusOK},
		{"missing sender", `{"body":"schedule"}`, true, http.StatusBadRequest},
		{"blank sender", `{"sender_id":"  ","body":"x"}`, true, http.StatusBadRequest},
		{"invalid json", `{bad`, true, http.StatusBadRequest},
		{"no token", `{"sender_id":"u-1","body":"schedule"}`, false, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, Options{APIToken: testToken})
			req := httptest.NewRequest(http.MethodPost, "/api/v1/messages", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			if tt.auth {
				authed(req)
			}
			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got messageResponse
			if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !strings.HasPrefix(got.Reply, "reply to schedule") {
				t.Errorf("reply = %q", got.Reply)
			}
		})
	}
}

// Admin API

func TestAdminRoutes_DisabledWithoutToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	paths := []string{"/api/v1/outbreak", "/api/v1/users/u-1/children"}

	for _, path := range paths {
		t.Run(path, func(t *testing.T) {
			t.Parallel()

			rec := httptest.NewRecorder()
			f.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, http.NoBody))
			if rec.Code != http.StatusNotFound {
				t.Errorf("GET %s = %d, want %d", path, rec.Code, http.StatusNotFound)
			}
		})
	}
}

func TestHandleChildren(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{APIToken: testToken})
	f.children.kids = []records.Child{{
		ID:          "01J0000000000000000000000A",
		UserID:      "u-1",
		Name:        "Asha",
		DateOfBirth: time.Date(2024, time.August, 25, 0, 0, 0, 0, time.UTC),
		CreatedAt:   time.Date(2024, time.September, 1, 10, 0, 0, 0, time.UTC),
	}}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/users/u-1/children", http.NoBody)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got childrenResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.UserID != "u-1" || len(got.Children) != 1 {
		t.Fatalf("response = %+v", got)
	}
	if c := got.Children[0]; c.Name != "Asha" || c.DateOfBirth != "2024-08-25" {
		t.Errorf("child = %+v, want Asha 2024-08-25", c)
	}
}

func TestHandleChildren_EmptyListIsArray(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{APIToken: testToken})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/users/nobody/children", http.NoBody)))

	if !strings.Contains(rec.Body.String(), `"children":[]`) {
		t.Errorf("body = %s, want empty children array", rec.Body.String())
	}
}

func TestAdmin_StorageErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unavailable", errors.Join(records.ErrUnavailable, errors.New("dial tcp")), http.StatusServiceUnavailable},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			f := newFixture(t, Options{APIToken: testToken})
			f.children.err = tt.err
			f.outbreak.err = tt.err

			for _, path := range []string{"/api/v1/users/u/children", "/api/v1/outbreak"} {
				rec := httptest.NewRecorder()
				f.router.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, path, http.NoBody)))
				if rec.Code != tt.wantStatus {
					t.Errorf("GET %s = %d, want %d", path, rec.Code, tt.wantStatus)
				}
			}
		})
	}
}

func TestHandleOutbreak(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{APIToken: testToken})
	f.outbreak.st = outbreak.Status{Count: 4, Threshold: 3, Alert: true}

	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/v1/outbreak", http.NoBody)))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got outbreak.Status
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Count != 4 || got.Threshold != 3 || !got.Alert {
		t.Errorf("status = %+v, want count 4 threshold 3 alert", got)
	}
}

// Tracing

func TestHandlers_SetSpanAttributes(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	f := newFixture(t, Options{APIToken: testToken})
	f.outbreak.st = outbreak.Status{Count: 5, Threshold: 3, Alert: true}

	serve := func(req *http.Request) {
		ctx, span := tp.Tracer("test").Start(req.Context(), "http.server")
		f.router.ServeHTTP(httptest.NewRecorder(), req.WithContext(ctx))
		span.End()
	}
	serve(formRequest("/chat", url.Values{"From": {"+911"}, "Body": {"hello"}}))
	serve(authed(httptest.NewRequest(http.MethodGet, "/api/v1/outbreak", http.NoBody)))

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2", len(spans))
	}

	attrs := func(i int) map[attribute.Key]attribute.Value {
		m := make(map[attribute.Key]attribute.Value)
		for _, kv := range spans[i].Attributes {
			m[kv.Key] = kv.Value
		}
		return m
	}

	chat := attrs(0)
	if got := chat["ashabot.channel"].AsString(); got != "webhook" {
		t.Errorf("ashabot.channel = %q, want webhook", got)
	}
	if got := chat["ashabot.message.length"].AsInt64(); got != 5 {
		t.Errorf("ashabot.message.length = %d, want 5", got)
	}

	ob := attrs(1)
	if got := ob["ashabot.outbreak.count"].AsInt64(); got != 5 {
		t.Errorf("ashabot.outbreak.count = %d, want 5", got)
	}
	if !ob["ashabot.outbreak.alert"].AsBool() {
		t.Error("ashabot.outbreak.alert = false, want true")
	}
}
