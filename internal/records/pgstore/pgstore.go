// Package pgstore provides a PostgreSQL implementation of records.Store.
package pgstore

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/ashabot/internal/records"
)

var tracer = otel.Tracer("github.com/linnemanlabs/ashabot/internal/records/pgstore")

//go:embed schema.sql
var schema string

// Store persists children and symptom reports in PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// New applies the schema on pool and returns a ready Store. The caller owns
// the pool lifecycle.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool, now: time.Now}, nil
}

// AddChild inserts a child row.
func (s *Store) AddChild(ctx context.Context, userID, name string, dob time.Time) (err error) {
	ctx, span := startSpan(ctx, "pgstore.AddChild", "INSERT")
	defer endSpan(span, &err)

	_, err = s.pool.Exec(ctx,
		`INSERT INTO children (id, user_id, name, dob, created_at) VALUES ($1, $2, $3, $4, $5)`,
		records.NewID(), userID, name, dob, s.now(),
	)
	if err != nil {
		return fmt.Errorf("%w: insert child: %w", records.ErrUnavailable, err)
	}
	return nil
}

// Children lists the children registered by userID, oldest first.
func (s *Store) Children(ctx context.Context, userID string) (out []records.Child, err error) {
	ctx, span := startSpan(ctx, "pgstore.Children", "SELECT")
	defer endSpan(span, &err)

	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, dob, created_at
		 FROM children WHERE user_id = $1 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("%w: query children: %w", records.ErrUnavailable, err)
	}
	defer rows.Close()

	for rows.Next() {
		var c records.Child
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.DateOfBirth, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan child: %w", records.ErrUnavailable, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate children: %w", records.ErrUnavailable, err)
	}
	return out, nil
}

// LogSymptomReport inserts a report row.
func (s *Store) LogSymptomReport(ctx context.Context, userID, text string) (err error) {
	ctx, span := startSpan(ctx, "pgstore.LogSymptomReport", "INSERT")
	defer endSpan(span, &err)

	_, err = s.pool.Exec(ctx,
		`INSERT INTO symptom_reports (id, user_id, text, created_at) VALUES ($1, $2, $3, $4)`,
		records.NewID(), userID, text, s.now(),
	)
	if err != nil {
		return fmt.Errorf("%w: insert symptom report: %w", records.ErrUnavailable, err)
	}
	return nil
}

// CountRecentReports counts reports since the given instant whose text
// matches any keyword with ILIKE.
func (s *Store) CountRecentReports(ctx context.Context, since time.Time, keywords []string) (n int, err error) {
	ctx, span := startSpan(ctx, "pgstore.CountRecentReports", "SELECT")
	defer endSpan(span, &err)

	patterns := likePatterns(keywords)
	if len(patterns) == 0 {
		return 0, nil
	}

	err = s.pool.QueryRow(ctx,
		`SELECT count(*) FROM symptom_reports WHERE created_at >= $1 AND text ILIKE ANY($2)`,
		since, patterns,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: count symptom reports: %w", records.ErrUnavailable, err)
	}
	return n, nil
}

// likePatterns turns keywords into %kw% patterns with LIKE metacharacters escaped.
func likePatterns(keywords []string) []string {
	esc := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		out = append(out, "%"+esc.Replace(kw)+"%")
	}
	return out
}

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
