package postgres

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/go-core/log"
)

var queryObserver atomic.Pointer[queryObserverHolder]

type ctxKey int

const (
	ctxKeyQuery ctxKey = iota
	ctxKeyHTTPMethod
)

// queryInfo is stashed in the context between TraceQueryStart and TraceQueryEnd.
type queryInfo struct {
	sql    string
	start  time.Time
	caller string
}

type queryObserverHolder struct{ QueryObserver }

// QueryObserver receives per-query metrics (wired by main for Prometheus).
type QueryObserver interface {
	ObserveQuery(ctx context.Context, method, route, outcome string, dur time.Duration)
}

// QueryObserverFunc adapts a plain function to QueryObserver.
type QueryObserverFunc func(ctx context.Context, method, route, outcome string, dur time.Duration)

// ObserveQuery implements QueryObserver.
func (f QueryObserverFunc) ObserveQuery(ctx context.Context, method, route, outcome string, dur time.Duration) {
	f(ctx, method, route, outcome, dur)
}

// SetQueryObserver sets the global query observer (typically a Prometheus histogram).
func SetQueryObserver(o QueryObserver) {
	if o == nil {
		queryObserver.Store(nil)
		return
	}
	queryObserver.Store(&queryObserverHolder{QueryObserver: o})
}

func getQueryObserver() QueryObserver {
	h := queryObserver.Load()
	if h == nil {
		return nil
	}
	return h.QueryObserver
}

// WithHTTPMethod stores the HTTP method in the context for query metrics labelling.
func WithHTTPMethod(ctx context.Context, method string) context.Context {
	if method == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKeyHTTPMethod, method)
}

func httpMethodFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyHTTPMethod).(string); ok {
		return v
	}
	return ""
}

func routePatternFromContext(ctx context.Context) string {
	if rc := chi.RouteContext(ctx); rc != nil {
		return rc.RoutePattern()
	}
	return ""
}

// queryTracer wraps another pgx.QueryTracer (otelpgx) with metrics and a
// structured log line per query. Query arguments are never logged since they
// carry phone numbers and symptom text.
type queryTracer struct {
	inner pgx.QueryTracer
	slow  time.Duration
}

func newQueryTracer(inner pgx.QueryTracer, slow time.Duration) *queryTracer {
	return &queryTracer{inner: inner, slow: slow}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	qi := &queryInfo{sql: data.SQL, start: time.Now(), caller: findDBCaller()}

	if t.inner != nil {
		ctx = t.inner.TraceQueryStart(ctx, conn, data)
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() && qi.caller != "" {
		span.SetAttributes(attribute.String("db.caller", qi.caller))
	}

	return context.WithValue(ctx, ctxKeyQuery, qi)
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	// inner first so spans are finished correctly
	if t.inner != nil {
		t.inner.TraceQueryEnd(ctx, conn, data)
	}

	qi, _ := ctx.Value(ctxKeyQuery).(*queryInfo)
	if qi == nil {
		return
	}
	dur := time.Since(qi.start)

	outcome := "ok"
	if data.Err != nil {
		outcome = "error"
	}

	if obs := getQueryObserver(); obs != nil {
		method := httpMethodFromContext(ctx)
		if method == "" {
			method = "UNKNOWN"
		}
		route := routePatternFromContext(ctx)
		if route == "" {
			route = "unknown"
		}
		obs.ObserveQuery(ctx, method, route, outcome, dur)
	}

	if data.Err == nil && dur < t.slow {
		return
	}

	fields := []any{
		"db.statement", compactSQL(qi.sql),
		"db.duration", dur.Seconds(),
		"db.caller", qi.caller,
	}
	if tag := strings.TrimSpace(data.CommandTag.String()); tag != "" {
		fields = append(fields, "pg.command_tag", tag, "db.rows", data.CommandTag.RowsAffected())
	}

	L := log.FromContext(ctx)
	if data.Err != nil {
		var pgErr *pgconn.PgError
		if errors.As(data.Err, &pgErr) {
			fields = append(fields, "db.error_code", pgErr.Code)
		}
		L.Error(ctx, data.Err, "db query failed", fields...)
		return
	}
	L.Warn(ctx, "slow db query", fields...)
}

// findDBCaller returns the first application frame below the pgx stack,
// e.g. "(*Store).Children".
func findDBCaller() string {
	pcs := make([]uintptr, 24)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		fr, more := frames.Next()
		fn := fr.Function
		if !strings.HasPrefix(fn, "runtime.") &&
			!strings.Contains(fn, "github.com/jackc/pgx/v5") &&
			!strings.Contains(fn, "github.com/exaring/otelpgx") &&
			!strings.Contains(fn, "internal/postgres.") {
			return shortenFuncName(fn)
		}
		if !more {
			return ""
		}
	}
}

func shortenFuncName(fn string) string {
	if i := strings.LastIndex(fn, "/"); i >= 0 && i+1 < len(fn) {
		fn = fn[i+1:]
	}
	if dot := strings.Index(fn, "."); dot >= 0 && dot+1 < len(fn) {
		fn = fn[dot+1:]
	}
	return fn
}

// compactSQL collapses whitespace so multi-line statements log on one line.
func compactSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
