package triage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/ashabot/internal/content"
)

// mockReports records LogSymptomReport calls.
type mockReports struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (m *mockReports) LogSymptomReport(_ context.Context, _, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.texts = append(m.texts, text)
	return nil
}

func newTestEngine(r ReportLogger) *Engine {
	return NewEngine(DefaultKeywords, r, log.Nop())
}

func TestDetect(t *testing.T) {
	t.Parallel()

	e := newTestEngine(nil)
	tests := []struct {
		name string
		text string
		want Signals
	}{
		{"english cough", "I have a COUGH", Signals{Cough: true}},
		{"devanagari cough", "मुझे खांसी है", Signals{Cough: true}},
		{"transliterated cough", "bahut khansi", Signals{Cough: true}},
		{"fever variants", "fever बुखार bukhar", Signals{Fever: true}},
		{"headache devanagari", "सिर दर्द", Signals{Headache: true}},
		{"headache transliterated", "Sir Dard", Signals{Headache: true}},
		{"stuffy nose", "Stuffy Nose", Signals{RunnyNose: true}},
		{"nose alone is not a signal", "my nose", Signals{}},
		{"empty", "", Signals{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := e.Detect(tt.text); got != tt.want {
				t.Errorf("Detect(%q) = %+v, want %+v", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	e := newTestEngine(nil)
	tests := []struct {
		name         string
		text         string
		wantCategory Category
		wantEscalate bool
	}{
		{"cough and runny nose", "I have a cough and runny nose", CategoryCold, false},
		{"cough and headache", "cough with headache", CategoryCold, false},
		{"hindi cold", "खांसी और सिर दर्द", CategoryCold, false},
		{"fever alone", "high fever since yesterday", CategoryFever, true},
		{"fever with cough only", "cough and fever", CategoryFever, true},
		{"fever with headache no cough", "fever and headache", CategoryFever, true},
		{"cough alone", "just a cough", CategoryUnknown, false},
		{"headache alone", "headache", CategoryUnknown, false},
		{"unrelated", "my knee hurts", CategoryUnknown, false},
		{"empty", "", CategoryUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := e.Classify(tt.text)
			if got.Category != tt.wantCategory {
				t.Errorf("Classify(%q).Category = %q, want %q", tt.text, got.Category, tt.wantCategory)
			}
			if got.Escalate != tt.wantEscalate {
				t.Errorf("Classify(%q).Escalate = %v, want %v", tt.text, got.Escalate, tt.wantEscalate)
			}
		})
	}
}

// The cold rule is evaluated before the fever rule. A message with cough,
// runny nose AND fever is therefore a cold without escalation. Reordering the
// table changes patient-facing guidance, so this case is pinned explicitly.
func TestClassify_ColdRulePrecedesFever(t *testing.T) {
	t.Parallel()

	e := newTestEngine(nil)
	got := e.Classify("I have a cough, a runny nose and a fever")
	if got.Category != CategoryCold {
		t.Errorf("Category = %q, want %q (cold rule precedes fever rule)", got.Category, CategoryCold)
	}
	if got.Escalate {
		t.Error("Escalate = true, want false for the cold rule")
	}
	if !got.Signals.Fever {
		t.Error("Signals.Fever = false, want fever still detected")
	}
}

func TestDecide_Total(t *testing.T) {
	t.Parallel()

	// every combination of the four signals yields exactly one category
	for mask := range 16 {
		s := Signals{
			Cough:     mask&1 != 0,
			Fever:     mask&2 != 0,
			Headache:  mask&4 != 0,
			RunnyNose: mask&8 != 0,
		}
		got := Decide(s)

		var want Category
		switch {
		case s.Cough && (s.RunnyNose || s.Headache):
			want = CategoryCold
		case s.Fever:
			want = CategoryFever
		default:
			want = CategoryUnknown
		}
		if got.Category != want {
			t.Errorf("Decide(%+v) = %q, want %q", s, got.Category, want)
		}
		if got.Escalate != (want == CategoryFever) {
			t.Errorf("Decide(%+v).Escalate = %v", s, got.Escalate)
		}
	}
}

func TestReport_LogsNonEmpty(t *testing.T) {
	t.Parallel()

	reports := &mockReports{}
	e := newTestEngine(reports)

	res, err := e.Report(context.Background(), "u-1", "Fever")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if res.Category != CategoryFever {
		t.Errorf("Category = %q, want %q", res.Category, CategoryFever)
	}
	if len(reports.texts) != 1 || reports.texts[0] != "Fever" {
		t.Errorf("logged = %q, want [Fever]", reports.texts)
	}
}

func TestReport_SkipsEmpty(t *testing.T) {
	t.Parallel()

	reports := &mockReports{}
	e := newTestEngine(reports)

	res, err := e.Report(context.Background(), "u-1", "")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if res.Category != CategoryUnknown {
		t.Errorf("Category = %q, want %q", res.Category, CategoryUnknown)
	}
	if len(reports.texts) != 0 {
		t.Errorf("logged %d reports, want 0 for empty text", len(reports.texts))
	}
}

func TestReport_StoreError(t *testing.T) {
	t.Parallel()

	e := newTestEngine(&mockReports{err: errors.New("db down")})
	if _, err := e.Report(context.Background(), "u-1", "fever"); err == nil {
		t.Fatal("expected error from report logger")
	}
}

func TestRender(t *testing.T) {
	t.Parallel()

	cat := content.Default()
	escalation := cat.Resolve(content.EN, content.HumanEscalation, nil)

	fever := Render(cat, content.EN, Result{Category: CategoryFever, Escalate: true})
	if !strings.HasPrefix(fever, cat.Resolve(content.EN, content.SymptomFever, nil)) {
		t.Errorf("fever response = %q, want fever text first", fever)
	}
	if !strings.HasSuffix(fever, escalation) {
		t.Errorf("fever response = %q, want escalation appended", fever)
	}

	cold := Render(cat, content.HI, Result{Category: CategoryCold})
	if cold != cat.Resolve(content.HI, content.SymptomCold, nil) {
		t.Errorf("cold response = %q, want HI cold text only", cold)
	}

	unknown := Render(cat, content.EN, Result{Category: CategoryUnknown})
	if unknown != cat.Resolve(content.EN, content.SymptomUnknown, nil) {
		t.Errorf("unknown response = %q", unknown)
	}
}

func TestFeverKeywords_ReturnsCopy(t *testing.T) {
	t.Parallel()

	kw := FeverKeywords()
	kw[0] = "mutated"
	if DefaultKeywords.Fever[0] != "fever" {
		t.Error("FeverKeywords exposed the package-level slice")
	}
}

func TestDefaultKeywords_LowerCase(t *testing.T) {
	t.Parallel()

	for _, set := range [][]string{DefaultKeywords.Cough, DefaultKeywords.Fever, DefaultKeywords.Headache, DefaultKeywords.RunnyNose} {
		for _, kw := range set {
			if kw != strings.ToLower(kw) {
				t.Errorf("keyword %q is not lower case", kw)
			}
		}
	}
}
