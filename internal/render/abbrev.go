package render

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"lessonnotes/internal/curriculum"
)

//go:embed abbreviations.yaml
var defaultAbbreviations []byte

// Abbreviations maps subject names to the short codes used in filenames.
type Abbreviations struct {
	Subjects  map[string]string `yaml:"subjects"`
	Fallbacks []Fallback        `yaml:"fallbacks"`
}

// Fallback applies Abbr to any subject whose uppercased name contains
// Contains. Fallbacks are tried in order after an exact lookup misses.
type Fallback struct {
	Contains string `yaml:"contains"`
	Abbr     string `yaml:"abbr"`
}

// ParseAbbreviations decodes a YAML abbreviation table.
func ParseAbbreviations(data []byte) (*Abbreviations, error) {
	var a Abbreviations
	if err := yaml.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse abbreviations: %w", err)
	}
	subjects := make(map[string]string, len(a.Subjects))
	for k, v := range a.Subjects {
		subjects[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	a.Subjects = subjects
	return &a, nil
}

// DefaultAbbreviations returns the built-in table.
func DefaultAbbreviations() *Abbreviations {
	a, err := ParseAbbreviations(defaultAbbreviations)
	if err != nil {
		panic(err)
	}
	return a
}

// LoadAbbreviations reads path and layers it over the built-in table.
// Subject entries in the file win; its fallbacks are tried first.
func LoadAbbreviations(path string) (*Abbreviations, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read abbreviations: %w", err)
	}
	extra, err := ParseAbbreviations(data)
	if err != nil {
		return nil, err
	}
	base := DefaultAbbreviations()
	for k, v := range extra.Subjects {
		base.Subjects[k] = v
	}
	base.Fallbacks = append(extra.Fallbacks, base.Fallbacks...)
	return base, nil
}

var minorWords = map[string]bool{"and": true, "of": true, "the": true, "&": true}

// Subject abbreviates a subject name: exact table entry, then substring
// fallbacks, then the initials of its significant words.
func (a *Abbreviations) Subject(subject string) string {
	key := strings.ToLower(strings.TrimSpace(subject))
	if key == "" {
		return ""
	}
	if abbr, ok := a.Subjects[key]; ok {
		return abbr
	}
	upper := strings.ToUpper(key)
	for _, f := range a.Fallbacks {
		if f.Contains != "" && strings.Contains(upper, strings.ToUpper(f.Contains)) {
			return f.Abbr
		}
	}
	var initials strings.Builder
	for _, w := range strings.Fields(key) {
		if minorWords[w] {
			continue
		}
		r, _ := utf8.DecodeRuneInString(w)
		initials.WriteRune(unicode.ToUpper(r))
	}
	return initials.String()
}

// ClassAbbr abbreviates a class level: "Basic 4" is "B4", "KG 1" is
// "KG1" and "JHS 2" is "JHS2".
func ClassAbbr(class string) string {
	g := curriculum.NormalizeGradeLevel(class)
	if n, ok := strings.CutPrefix(g, "Basic "); ok {
		return "B" + n
	}
	return strings.ToUpper(strings.Join(strings.Fields(g), ""))
}

// WeekAbbr abbreviates a week: "Week 5" is "WK5". It returns "" when no
// week number can be found.
func WeekAbbr(week string) string {
	n, ok := curriculum.FirstNumber(week)
	if !ok {
		return ""
	}
	return "WK" + strconv.Itoa(n)
}

// Filename derives "{class}-{subject}-{week}.docx" from a lesson.
func (a *Abbreviations) Filename(l curriculum.LessonDocument) string {
	var parts []string
	for _, p := range []string{ClassAbbr(l.Class), a.Subject(l.Subject), WeekAbbr(l.WeekNumber)} {
		if p = sanitizeName(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return "lesson-notes.docx"
	}
	return strings.Join(parts, "-") + ".docx"
}

// sanitizeName keeps characters that are safe in a filename.
func sanitizeName(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
