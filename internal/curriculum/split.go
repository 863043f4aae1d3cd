package curriculum

import (
	"regexp"
	"strings"
)

var (
	// A numbered-list marker ("2. ") that is not at the start of the text.
	numberedItemRe = regexp.MustCompile(`\s+(\d{1,2}\.\s)`)
	bulletChars    = "•●▪◦·‣"
)

// SplitIndicators breaks an indicators cell into items. A line break is
// forced before every "N. " marker so numbering stays with its own item,
// then the text is split on newlines, bullet characters and semicolons.
func SplitIndicators(cell string) []string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	cell = numberedItemRe.ReplaceAllString(cell, "\n$1")
	return splitItems(cell)
}

// SplitExemplars breaks an exemplars cell on semicolons, bullets and
// newlines.
func SplitExemplars(cell string) []string {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil
	}
	return splitItems(cell)
}

func splitItems(cell string) []string {
	parts := strings.FieldsFunc(cell, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ';' || strings.ContainsRune(bulletChars, r)
	})
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		p = strings.TrimLeft(p, "-* ")
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return AppendUnique(nil, out...)
}

// AppendUnique appends items that are not already present (exact text),
// preserving first-seen order.
func AppendUnique(list []string, items ...string) []string {
	seen := make(map[string]struct{}, len(list)+len(items))
	for _, s := range list {
		seen[s] = struct{}{}
	}
	for _, s := range items {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		list = append(list, s)
	}
	return list
}

// MergeLines unions the non-empty lines of a and b, keeping first-seen
// order.
func MergeLines(a, b string) string {
	var lines []string
	for _, s := range []string{a, b} {
		for _, l := range strings.Split(s, "\n") {
			lines = AppendUnique(lines, strings.TrimSpace(l))
		}
	}
	return strings.Join(lines, "\n")
}

// MergeCommaList unions comma-separated phrases (case-insensitive) and
// rejoins them with ", ".
func MergeCommaList(a, b string) string {
	var out []string
	seen := make(map[string]struct{})
	for _, s := range []string{a, b} {
		for _, p := range strings.Split(s, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			k := strings.ToLower(p)
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
