package triage

// Keywords lists the substrings that raise each signal. Entries are matched
// against the lower-cased message and must themselves be lower case. Each
// set mixes English, Devanagari and common Latin transliterations.
type Keywords struct {
	Cough     []string
	Fever     []string
	Headache  []string
	RunnyNose []string
}

// DefaultKeywords is the production keyword configuration.
var DefaultKeywords = Keywords{
	Cough:     []string{"cough", "खांसी", "khansi"},
	Fever:     []string{"fever", "बुखार", "bukhar"},
	Headache:  []string{"headache", "सिर दर्द", "sir dard"},
	RunnyNose: []string{"runny nose", "stuffy nose"},
}

// FeverKeywords returns a copy of the default fever keyword family, used by
// the outbreak monitor to count fever reports at the storage layer.
func FeverKeywords() []string {
	return append([]string(nil), DefaultKeywords.Fever...)
}
