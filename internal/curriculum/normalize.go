package curriculum

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	digitsRe      = regexp.MustCompile(`\d+`)
	labelNumberRe = regexp.MustCompile(`(?i)\b(?:term|week|wk)\s*[-:#.]?\s*(\d{1,3})\b`)
	// Leading UPPERCASE.DOTS token, e.g. "B4.1.1.1" or "B7.2.3.1.1".
	standardCodeRe = regexp.MustCompile(`(?s)^\s*([A-Z][A-Z0-9]*(?:\.[A-Z0-9]+)+)\.?\s*(?:[:\-–]\s*)?(.*)$`)
)

var ordinalWords = map[string]int{
	"one": 1, "first": 1, "1st": 1,
	"two": 2, "second": 2, "2nd": 2,
	"three": 3, "third": 3, "3rd": 3,
	"four": 4, "fourth": 4,
	"five": 5, "fifth": 5,
	"six": 6, "sixth": 6,
	"seven": 7, "seventh": 7,
	"eight": 8, "eighth": 8,
	"nine": 9, "ninth": 9,
	"ten": 10, "tenth": 10,
	"eleven": 11, "twelve": 12, "thirteen": 13, "fourteen": 14,
	"fifteen": 15, "sixteen": 16, "seventeen": 17, "eighteen": 18,
	"nineteen": 19, "twenty": 20,
}

// FirstNumber returns the number a term or week label carries. A number
// right after "term", "week" or "wk" wins, then an English number or ordinal
// word, then the first digit run shorter than a year, then any digits. So
// "First Term 2024" is 1, not 2024.
func FirstNumber(s string) (int, bool) {
	if m := labelNumberRe.FindStringSubmatch(s); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n, true
		}
	}
	for _, w := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	}) {
		if n, ok := ordinalWords[w]; ok {
			return n, true
		}
	}
	runs := digitsRe.FindAllString(s, -1)
	for _, d := range runs {
		if len(d) < 4 {
			n, _ := strconv.Atoi(d)
			return n, true
		}
	}
	if len(runs) > 0 {
		if n, err := strconv.Atoi(runs[0]); err == nil {
			return n, true
		}
	}
	return 0, false
}

// NormalizeGradeLevel maps "B4", "Class 4", "basic4" and friends to
// "Basic 4". KG, JHS and SHS levels keep their own prefix.
func NormalizeGradeLevel(s string) string {
	s = strings.TrimSpace(s)
	d := digitsRe.FindString(s)
	if d == "" {
		return s
	}
	n, _ := strconv.Atoi(d)
	upper := strings.ToUpper(s)
	switch {
	case strings.HasPrefix(upper, "KG") || strings.Contains(upper, "KINDERGARTEN"):
		return "KG " + strconv.Itoa(n)
	case strings.Contains(upper, "JHS"):
		return "JHS " + strconv.Itoa(n)
	case strings.Contains(upper, "SHS"):
		return "SHS " + strconv.Itoa(n)
	}
	return "Basic " + strconv.Itoa(n)
}

// NormalizeWeek maps "1", "wk1", "week one" to "Week 1".
func NormalizeWeek(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if n, ok := FirstNumber(s); ok {
		return "Week " + strconv.Itoa(n)
	}
	return s
}

// NormalizeTerm maps "1", "term 1", "First Term" to "Term 1". Named terms
// without a number are kept as given.
func NormalizeTerm(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if n, ok := FirstNumber(s); ok {
		return "Term " + strconv.Itoa(n)
	}
	return s
}

// ExtractStandardCode splits "B4.1.1.1: Identify parts" into its code and
// description. Text without a leading code gets PlaceholderCode.
func ExtractStandardCode(s string) (code, description string) {
	m := standardCodeRe.FindStringSubmatch(s)
	if m == nil {
		return PlaceholderCode, strings.TrimSpace(s)
	}
	return m[1], strings.TrimSpace(m[2])
}
