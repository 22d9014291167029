package triage

// Category is the outcome of classifying a symptom description.
type Category string

const (
	// CategoryCold means cough together with a runny nose or headache.
	CategoryCold Category = "cold"

	// CategoryFever means a fever was mentioned and no cold pattern matched.
	CategoryFever Category = "fever"

	// CategoryUnknown means no rule matched.
	CategoryUnknown Category = "unknown"
)

// Signals are the binary symptom indicators detected in a message.
type Signals struct {
	Cough     bool
	Fever     bool
	Headache  bool
	RunnyNose bool
}

// Result is a triage decision.
type Result struct {
	Category Category
	// Escalate appends the professional-attention notice to the response.
	Escalate bool
	Signals  Signals
}
