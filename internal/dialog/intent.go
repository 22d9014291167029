package dialog

import "strings"

// intent is what a message asks for when no multi-turn flow is active.
type intent int

const (
	intentNone intent = iota
	intentRegister
	intentSchedule
	intentSymptom
	intentStory
)

func (i intent) String() string {
	switch i {
	case intentRegister:
		return "register"
	case intentSchedule:
		return "schedule"
	case intentSymptom:
		return "symptom"
	case intentStory:
		return "story"
	default:
		return "none"
	}
}

// intentKeywords is evaluated in order; the first family with a match wins
// even if a later family also matches.
var intentKeywords = []struct {
	intent   intent
	keywords []string
}{
	{intentRegister, []string{"register", "रजिस्टर"}},
	{intentSchedule, []string{"schedule", "शेड्यूल"}},
	{intentSymptom, []string{"symptom", "लक्षण"}},
	{intentStory, []string{"story", "kahani", "कहानी"}},
}

// classifyIntent expects lower-cased text.
func classifyIntent(lower string) intent {
	for _, fam := range intentKeywords {
		for _, kw := range fam.keywords {
			if strings.Contains(lower, kw) {
				return fam.intent
			}
		}
	}
	return intentNone
}
