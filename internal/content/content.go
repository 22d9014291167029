// Package content holds the localized message catalog. Templates are keyed by
// (Language, Key); the catalog is validated for completeness over every
// language and key when it is loaded, so Resolve never has to handle a miss.
package content

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/linnemanlabs/go-core/xerrors"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Language is a supported conversation language.
type Language int

const (
	EN Language = iota
	HI

	numLanguages
)

var languageCodes = [numLanguages]string{
	EN: "en",
	HI: "hi",
}

// Languages returns every supported language in declaration order.
func Languages() []Language {
	out := make([]Language, 0, numLanguages)
	for l := Language(0); l < numLanguages; l++ {
		out = append(out, l)
	}
	return out
}

// String returns the lower-case language code.
func (l Language) String() string {
	if l < 0 || l >= numLanguages {
		return fmt.Sprintf("language(%d)", int(l))
	}
	return languageCodes[l]
}

// ParseLanguage maps a language code ("en", "hi") to a Language.
func ParseLanguage(code string) (Language, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for l, c := range languageCodes {
		if c == code {
			return Language(l), true
		}
	}
	return EN, false
}

// Key names a message template.
type Key int

const (
	Welcome Key = iota
	ChooseLang
	LangSet
	AskChildName
	AskDOB
	DOBError
	RegisterSuccess
	NoChildren
	SymptomPrompt
	SymptomCold
	SymptomFever
	SymptomUnknown
	OutbreakAlert
	HealthStory
	HumanEscalation
	ScheduleHeader
	ServiceError

	numKeys
)

var keyNames = [numKeys]string{
	Welcome:         "welcome",
	ChooseLang:      "choose_lang",
	LangSet:         "lang_set",
	AskChildName:    "ask_child_name",
	AskDOB:          "ask_dob",
	DOBError:        "dob_error",
	RegisterSuccess: "register_success",
	NoChildren:      "no_children",
	SymptomPrompt:   "symptom_prompt",
	SymptomCold:     "symptom_cold",
	SymptomFever:    "symptom_fever",
	SymptomUnknown:  "symptom_unknown",
	OutbreakAlert:   "outbreak_alert",
	HealthStory:     "health_story",
	HumanEscalation: "human_escalation",
	ScheduleHeader:  "schedule_header",
	ServiceError:    "service_error",
}

// Keys returns every template key in declaration order.
func Keys() []Key {
	out := make([]Key, 0, numKeys)
	for k := Key(0); k < numKeys; k++ {
		out = append(out, k)
	}
	return out
}

func (k Key) String() string {
	if k < 0 || k >= numKeys {
		return fmt.Sprintf("key(%d)", int(k))
	}
	return keyNames[k]
}

// Placeholder names used by the built-in templates.
const (
	VarChildName = "child_name"
)

// Catalog is an immutable, fully populated template table.
type Catalog struct {
	text [numLanguages][numKeys]string
}

// Default returns the catalog compiled into the binary. It panics if the
// embedded file is incomplete, which can only happen at build time.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(xerrors.New("embedded content catalog is invalid: " + err.Error()))
	}
	return c
}

// Load reads and validates a catalog file. An empty path selects the
// embedded default catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Parse(defaultCatalog)
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read content catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("content catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes a YAML catalog of the form {lang: {key: text}} and checks
// that every language defines every key with non-empty text. Unknown
// languages and keys are rejected so typos surface at startup.
func Parse(data []byte) (*Catalog, error) {
	var raw map[string]map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	var errs []error
	c := &Catalog{}

	for _, code := range sortedKeys(raw) {
		if _, ok := ParseLanguage(code); !ok {
			errs = append(errs, fmt.Errorf("unknown language %q", code))
		}
	}

	for _, lang := range Languages() {
		entries, ok := raw[lang.String()]
		if !ok {
			errs = append(errs, fmt.Errorf("language %q missing", lang))
			continue
		}
		for _, name := range sortedKeys(entries) {
			if _, ok := lookupKey(name); !ok {
				errs = append(errs, fmt.Errorf("language %q: unknown key %q", lang, name))
			}
		}
		for _, key := range Keys() {
			text := entries[key.String()]
			if strings.TrimSpace(text) == "" {
				errs = append(errs, fmt.Errorf("language %q: key %q missing or empty", lang, key))
				continue
			}
			c.text[lang][key] = text
		}
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return c, nil
}

// Resolve returns the template for (lang, key) with each {name} placeholder
// in vars replaced. Placeholders without a value are left verbatim.
func (c *Catalog) Resolve(lang Language, key Key, vars map[string]string) string {
	if lang < 0 || lang >= numLanguages || key < 0 || key >= numKeys {
		panic(xerrors.New(fmt.Sprintf("content: no template for (%s, %s)", lang, key)))
	}
	text := c.text[lang][key]
	if len(vars) == 0 {
		return text
	}
	pairs := make([]string, 0, len(vars)*2)
	for _, name := range sortedKeys(vars) {
		pairs = append(pairs, "{"+name+"}", vars[name])
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func lookupKey(name string) (Key, bool) {
	for k, n := range keyNames {
		if n == name {
			return Key(k), true
		}
	}
	return 0, false
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
