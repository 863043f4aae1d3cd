package render

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"lessonnotes/internal/curriculum"
)

// PerformancePrefix opens every performance indicator.
const PerformancePrefix = "By the end of the lesson, learners will be able to:"

var (
	letterDigitRe = regexp.MustCompile(`([A-Za-z])(\d)`)
	// A leading standard code, its optional trailing dot and colon.
	leadCodeRe = regexp.MustCompile(`^\s*([A-Z][A-Z0-9]*(?:\.[A-Z0-9]+)+)\.?\s*:\s*`)
	acronyms   = map[string]string{"kg": "KG", "jhs": "JHS", "shs": "SHS"}
)

// titleCase title-cases s, keeping short joining words lowercase after
// the first word. A Caser is stateful, so one is built per call.
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	caser := cases.Title(language.English)
	for i, w := range words {
		if i > 0 && minorWords[w] {
			continue
		}
		if up, ok := acronyms[w]; ok {
			words[i] = up
			continue
		}
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}

// DisplaySubject title-cases a subject name.
func DisplaySubject(s string) string {
	return titleCase(s)
}

// DisplayTerm coerces "1", "term one" or "First Term" to "TERM 1".
func DisplayTerm(s string) string {
	return numberedLabel("TERM", s)
}

// DisplayWeek coerces "2", "wk2" or "week two" to "WEEK 2".
func DisplayWeek(s string) string {
	return numberedLabel("WEEK", s)
}

func numberedLabel(label, s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return label
	}
	if n, ok := curriculum.FirstNumber(s); ok {
		return label + " " + strconv.Itoa(n)
	}
	return strings.ToUpper(s)
}

// DisplayClass spaces letters from digits and title-cases the result:
// "basic4" becomes "Basic 4", "jhs2" becomes "JHS 2".
func DisplayClass(s string) string {
	return titleCase(letterDigitRe.ReplaceAllString(strings.TrimSpace(s), "$1 $2"))
}

// CollapseStandardCode rewrites "B4.1.1.1.: B4.1.1.1 Text" as
// "B4.1.1.1: Text". Other strings are returned trimmed.
func CollapseStandardCode(s string) string {
	s = strings.TrimSpace(s)
	loc := leadCodeRe.FindStringSubmatchIndex(s)
	if loc == nil {
		return s
	}
	code := s[loc[2]:loc[3]]
	rest := s[loc[1]:]
	if !strings.HasPrefix(rest, code) {
		return s
	}
	after := rest[len(code):]
	if continuesCode(after) {
		// "B4.1.1.1: B4.1.1.10 ..." names a different code.
		return s
	}
	rest = strings.TrimLeft(after, ".:- ")
	return code + ": " + rest
}

func continuesCode(s string) bool {
	s = strings.TrimPrefix(s, ".")
	if s == "" {
		return false
	}
	c := s[0]
	return c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z'
}

// PerformanceIndicator prefixes text with PerformancePrefix unless it
// already opens with it.
func PerformanceIndicator(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(text), strings.ToLower(PerformancePrefix[:len(PerformancePrefix)-1])) {
		return text
	}
	return PerformancePrefix + "\n" + text
}

// Reference is always synthesized from the subject and class.
func Reference(subject, class string) string {
	return fmt.Sprintf("NaCCA %s Curriculum for %s", DisplaySubject(subject), DisplayClass(class))
}

// Ordinal formats a lesson's position in a batch.
func Ordinal(i, n int) string {
	return fmt.Sprintf("%d of %d", i+1, n)
}

// Prepare returns display-ready copies of lessons. Ordinals are always
// rewritten to the lesson's position in the batch and the reference is
// rebuilt from subject and class, whatever the source said.
func Prepare(lessons []curriculum.LessonDocument) []curriculum.LessonDocument {
	out := make([]curriculum.LessonDocument, len(lessons))
	for i, l := range lessons {
		l.Term = DisplayTerm(l.Term)
		l.WeekNumber = DisplayWeek(l.WeekNumber)
		l.Reference = Reference(l.Subject, l.Class)
		l.Subject = DisplaySubject(l.Subject)
		l.Class = DisplayClass(l.Class)
		l.ContentStandard = CollapseStandardCode(l.ContentStandard)
		l.PerformanceIndicator = PerformanceIndicator(l.PerformanceIndicator)
		l.LessonOrdinal = Ordinal(i, len(lessons))
		out[i] = l
	}
	return out
}
