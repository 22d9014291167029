package triage

import (
	"context"
	"strings"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/ashabot/internal/content"
)

// ReportLogger persists raw symptom reports.
type ReportLogger interface {
	LogSymptomReport(ctx context.Context, userID, text string) error
}

// Engine classifies symptom text and records each report.
type Engine struct {
	keywords Keywords
	reports  ReportLogger
	logger   log.Logger
}

// NewEngine creates a triage engine using kw for signal detection.
func NewEngine(kw Keywords, reports ReportLogger, logger log.Logger) *Engine {
	if logger == nil {
		logger = log.Nop()
	}
	return &Engine{
		keywords: kw,
		reports:  reports,
		logger:   logger,
	}
}

// Detect lower-cases text and evaluates every signal.
func (e *Engine) Detect(text string) Signals {
	lower := strings.ToLower(text)
	return Signals{
		Cough:     containsAny(lower, e.keywords.Cough),
		Fever:     containsAny(lower, e.keywords.Fever),
		Headache:  containsAny(lower, e.keywords.Headache),
		RunnyNose: containsAny(lower, e.keywords.RunnyNose),
	}
}

// Classify applies the decision table, top to bottom, first match wins:
//
//  1. cough AND (runny nose OR headache) -> cold, no escalation
//  2. fever                              -> fever, escalate
//  3. otherwise                          -> unknown, no escalation
func (e *Engine) Classify(text string) Result {
	return Decide(e.Detect(text))
}

// Decide maps signals to a Result using the decision table.
func Decide(s Signals) Result {
	switch {
	case s.Cough && (s.RunnyNose || s.Headache):
		return Result{Category: CategoryCold, Signals: s}
	case s.Fever:
		return Result{Category: CategoryFever, Escalate: true, Signals: s}
	default:
		return Result{Category: CategoryUnknown, Signals: s}
	}
}

// Report records text as a symptom report for userID and classifies it.
// Empty text is classified but not recorded. A storage failure is returned
// without a classification so the caller can let the user retry.
func (e *Engine) Report(ctx context.Context, userID, text string) (Result, error) {
	if text != "" && e.reports != nil {
		if err := e.reports.LogSymptomReport(ctx, userID, text); err != nil {
			return Result{}, err
		}
	}
	res := e.Classify(text)
	e.logger.Info(ctx, "symptoms triaged",
		"category", res.Category,
		"escalate", res.Escalate,
		"text_len", len(text),
	)
	return res, nil
}

// Render produces the user-facing response for r in lang: the category text,
// followed by the escalation notice when r.Escalate is set.
func Render(cat *content.Catalog, lang content.Language, r Result) string {
	var key content.Key
	switch r.Category {
	case CategoryCold:
		key = content.SymptomCold
	case CategoryFever:
		key = content.SymptomFever
	default:
		key = content.SymptomUnknown
	}
	text := cat.Resolve(lang, key, nil)
	if r.Escalate {
		text += cat.Resolve(lang, content.HumanEscalation, nil)
	}
	return text
}

func containsAny(lower string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
