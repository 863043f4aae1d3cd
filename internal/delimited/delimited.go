// Package delimited parses comma- or semicolon-delimited text exported from
// spreadsheets into rows of string cells.
package delimited

import (
	"errors"
	"regexp"
	"strings"
)

// ErrTooFewLines is returned when the text has fewer than two non-blank lines.
var ErrTooFewLines = errors.New("delimited: need a header and at least one data row")

// Field names a canonical column.
type Field string

const (
	Week            Field = "week"
	WeekEnding      Field = "weekEnding"
	Term            Field = "term"
	Subject         Field = "subject"
	Class           Field = "class"
	Strand          Field = "strand"
	SubStrand       Field = "subStrand"
	ContentStandard Field = "contentStandard"
	Indicators      Field = "indicators"
	Exemplars       Field = "exemplars"
	Resources       Field = "resources"
)

// HeaderMap maps canonical fields to column indexes.
type HeaderMap map[Field]int

// Get returns row's cell for field f, or "" when the column is absent.
func (h HeaderMap) Get(row []string, f Field) string {
	i, ok := h[f]
	if !ok || i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Table is the result of Parse.
type Table struct {
	Delimiter rune
	// Header holds the raw header tokens; nil when the first line was data.
	Header    []string
	HeaderMap HeaderMap
	Rows      [][]string
}

// HasHeader reports whether the first line was detected as a header.
func (t *Table) HasHeader() bool { return t.Header != nil }

var headerKeywords = []string{
	"week", "subject", "strand", "class", "content", "indicator",
	"exemplar", "standard", "grade", "term",
}

var (
	weekDataRe = regexp.MustCompile(`(?i)week\s*\d`)
	dateRe     = regexp.MustCompile(`\d{1,2}/\d{1,2}/\d{4}`)
)

// Parse splits text into lines, sniffs the delimiter, detects a header and
// tokenizes every line.
func Parse(text string) (*Table, error) {
	lines := SplitLines(text)
	if len(lines) < 2 {
		return nil, ErrTooFewLines
	}
	t := &Table{Delimiter: SniffDelimiter(lines[0])}
	body := lines
	if IsHeaderLine(lines[0]) {
		t.Header = SplitLine(lines[0], t.Delimiter)
		t.HeaderMap = BuildHeaderMap(t.Header)
		body = lines[1:]
	}
	for _, line := range body {
		row := SplitLine(line, t.Delimiter)
		if meaningful(row) < 2 {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// SplitLines splits on CRLF, LF or CR and drops blank lines.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	var out []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

// SniffDelimiter picks ',' or ';' by frequency in line. Ties favor ','.
func SniffDelimiter(line string) rune {
	if strings.Count(line, ";") > strings.Count(line, ",") {
		return ';'
	}
	return ','
}

// IsHeaderLine reports whether line names columns rather than holding data.
func IsHeaderLine(line string) bool {
	if weekDataRe.MatchString(line) || dateRe.MatchString(line) {
		return false
	}
	lower := strings.ToLower(line)
	for _, kw := range headerKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// SplitLine tokenizes line on delim, ignoring delimiters inside double
// quotes. One layer of surrounding quotes is stripped from each token.
func SplitLine(line string, delim rune) []string {
	var (
		out      []string
		cur      strings.Builder
		inQuotes bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			cur.WriteRune(r)
		case r == delim && !inQuotes:
			out = append(out, cleanToken(cur.String()))
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	out = append(out, cleanToken(cur.String()))
	return out
}

func cleanToken(tok string) string {
	tok = strings.TrimSpace(tok)
	if len(tok) >= 2 && tok[0] == '"' && tok[len(tok)-1] == '"' {
		tok = tok[1 : len(tok)-1]
		// Spreadsheet exports escape quotes by doubling them.
		tok = strings.ReplaceAll(tok, `""`, `"`)
	}
	return strings.TrimSpace(tok)
}

func meaningful(row []string) int {
	n := 0
	for _, c := range row {
		if c != "" {
			n++
		}
	}
	return n
}

// headerRule assigns a field when the lowercased header passes match.
type headerRule struct {
	field Field
	match func(h string) bool
}

func has(h string, subs ...string) bool {
	for _, s := range subs {
		if !strings.Contains(h, s) {
			return false
		}
	}
	return true
}

// headerRules run in priority order; a column takes the first rule it
// satisfies whose field is still unassigned.
var headerRules = []headerRule{
	{WeekEnding, func(h string) bool { return has(h, "week", "ending") }},
	{Week, func(h string) bool { return has(h, "week") }},
	{Term, func(h string) bool { return has(h, "term") }},
	{Subject, func(h string) bool { return has(h, "subject") }},
	{SubStrand, func(h string) bool { return has(h, "sub", "strand") }},
	{Strand, func(h string) bool { return has(h, "strand") }},
	{Exemplars, func(h string) bool { return has(h, "exemplar") }},
	{Indicators, func(h string) bool {
		return (has(h, "indicator") || has(h, "learning")) && !has(h, "exemplar")
	}},
	{ContentStandard, func(h string) bool { return has(h, "content") || has(h, "standard") }},
	{Class, func(h string) bool { return has(h, "class") || has(h, "grade") || has(h, "level") }},
	{Resources, func(h string) bool { return has(h, "resource") || has(h, "material") }},
}

// BuildHeaderMap maps header tokens onto canonical fields.
func BuildHeaderMap(header []string) HeaderMap {
	m := make(HeaderMap)
	for i, raw := range header {
		h := strings.ToLower(raw)
		for _, rule := range headerRules {
			if _, taken := m[rule.field]; taken {
				continue
			}
			if rule.match(h) {
				m[rule.field] = i
				break
			}
		}
	}
	return m
}
