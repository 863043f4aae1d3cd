package render

import (
	"regexp"
	"strings"
)

// Run is a span of text with one set of character properties.
type Run struct {
	Text   string
	Bold   bool
	Italic bool
}

// Paragraph is a list of runs plus optional space before it, in twips.
type Paragraph struct {
	Runs          []Run
	SpacingBefore int
}

// Text returns the paragraph's plain text.
func (p Paragraph) Text() string {
	var sb strings.Builder
	for _, r := range p.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// sectionSpacing is the gap placed before a section heading, in twips.
const sectionSpacing = 240

var (
	bulletRe     = regexp.MustCompile(`^[-*]\s+`)
	stepHeadRe   = regexp.MustCompile(`(?i)^(activity|step|part|phase|group)\s*\d`)
	inlineMarkRe = regexp.MustCompile(`\*\*(.+?)\*\*|\*(.+?)\*`)
	sectionHeads = []string{"sample class exercises", "class exercise", "assessment"}
)

// FormatBody turns model-written activity text into paragraphs.
//
//	# Heading        bold, markers removed
//	- item / * item  "• item"
//	Line ending ":"  bold
//	Activity 1 ...   bold (also Step, Part, Phase, Group)
//	**b** / *i*      bold and italic runs
func FormatBody(text string) []Paragraph {
	var out []Paragraph
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var p Paragraph
		switch {
		case strings.HasPrefix(line, "#"):
			heading := strings.TrimSpace(strings.TrimLeft(line, "#"))
			heading = strings.ReplaceAll(heading, "**", "")
			p.Runs = []Run{{Text: heading, Bold: true}}
		case bulletRe.MatchString(line):
			p.Runs = append([]Run{{Text: "• "}}, inlineRuns(bulletRe.ReplaceAllString(line, ""))...)
		default:
			p.Runs = inlineRuns(line)
			if strings.HasSuffix(line, ":") || stepHeadRe.MatchString(line) {
				for i := range p.Runs {
					p.Runs[i].Bold = true
				}
			}
		}
		if isSectionHead(line) && len(out) > 0 {
			p.SpacingBefore = sectionSpacing
		}
		out = append(out, p)
	}
	return out
}

func isSectionHead(line string) bool {
	l := strings.ToLower(strings.Trim(line, "#*: "))
	for _, h := range sectionHeads {
		if strings.HasPrefix(l, h) {
			return true
		}
	}
	return false
}

// inlineRuns splits **bold** and *italic* spans out of line.
func inlineRuns(line string) []Run {
	var runs []Run
	last := 0
	for _, m := range inlineMarkRe.FindAllStringSubmatchIndex(line, -1) {
		if m[0] > last {
			runs = append(runs, Run{Text: line[last:m[0]]})
		}
		if m[2] >= 0 {
			runs = append(runs, Run{Text: line[m[2]:m[3]], Bold: true})
		} else {
			runs = append(runs, Run{Text: line[m[4]:m[5]], Italic: true})
		}
		last = m[1]
	}
	if last < len(line) {
		runs = append(runs, Run{Text: line[last:]})
	}
	return runs
}
