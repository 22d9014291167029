// Package schedule derives an illustrative infant vaccination schedule from a
// date of birth. The milestone table is static; only the dates are computed.
package schedule

import (
	"strings"
	"time"

	"github.com/linnemanlabs/ashabot/internal/content"
)

// DateLayout renders milestone dates as day-month-year with an abbreviated month.
const DateLayout = "02-Jan-2006"

// Milestone is one row of the static schedule table.
type Milestone struct {
	Offset   time.Duration
	Vaccines []string
	icon     string
	label    [2]string // indexed by content.Language
}

// Dose is a Milestone resolved against a specific birth date.
type Dose struct {
	Due      time.Time
	Vaccines []string
}

var milestones = []Milestone{
	{
		Offset:   0,
		Vaccines: []string{"BCG", "Oral Polio Vaccine (OPV 0)", "Hepatitis B (Hep-B 1)"},
		icon:     "👶",
		label:    [2]string{"At Birth", "जन्म के समय"},
	},
	{
		Offset:   6 * week,
		Vaccines: []string{"DTP 1", "IPV 1", "Hepatitis B (Hep-B 2)"},
		icon:     "🗓️",
		label:    [2]string{"At 6 Weeks", "6 सप्ताह पर"},
	},
	{
		Offset:   10 * week,
		Vaccines: []string{"DTP 2", "IPV 2"},
		icon:     "🗓️",
		label:    [2]string{"At 10 Weeks", "10 सप्ताह पर"},
	},
	{
		Offset:   14 * week,
		Vaccines: []string{"DTP 3", "IPV 3"},
		icon:     "🗓️",
		label:    [2]string{"At 14 Weeks", "14 सप्ताह पर"},
	},
}

const week = 7 * 24 * time.Hour

var (
	intro = [2]string{
		"Here is a simplified vaccination schedule:",
		"यहाँ एक सरल टीकाकरण शेड्यूल है:",
	}
	around = [2]string{"around", "लगभग"}
	note   = [2]string{
		"*Note: This is an illustrative schedule. Please consult a healthcare professional for exact dates.*",
		"*नोट: यह केवल एक उदाहरण शेड्यूल है। सटीक तिथियों के लिए कृपया किसी स्वास्थ्य विशेषज्ञ से सलाह लें।*",
	}
)

// Milestones returns the due date and vaccine list of every milestone for a
// child born on dob. Offsets are applied in whole calendar days so the result
// does not depend on the time-of-day or DST transitions in dob's location.
func Milestones(dob time.Time) []Dose {
	y, m, d := dob.Date()
	out := make([]Dose, 0, len(milestones))
	for _, ms := range milestones {
		days := int(ms.Offset / (24 * time.Hour))
		out = append(out, Dose{
			Due:      time.Date(y, m, d+days, 0, 0, 0, 0, time.UTC),
			Vaccines: append([]string(nil), ms.Vaccines...),
		})
	}
	return out
}

// Render formats the schedule for dob as a chat message in lang.
func Render(dob time.Time, lang content.Language) string {
	li := langIndex(lang)
	doses := Milestones(dob)

	var b strings.Builder
	b.WriteString(intro[li])
	b.WriteString("\n\n")
	for i, ms := range milestones {
		b.WriteString(ms.icon + " *" + ms.label[li] + "* (" + around[li] + " " + doses[i].Due.Format(DateLayout) + "):\n")
		for _, v := range ms.Vaccines {
			b.WriteString("- " + v + "\n")
		}
		if i < len(milestones)-1 {
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(note[li])
	return b.String()
}

func langIndex(lang content.Language) int {
	if lang == content.HI {
		return 1
	}
	return 0
}
