// Package render writes lesson documents as fixed-layout Word files.
package render

import (
	"errors"
	"fmt"
	"strings"

	"lessonnotes/internal/curriculum"
)

// ErrNoLessons is returned when Render is given nothing to render.
var ErrNoLessons = errors.New("render: no lessons")

// Column widths in twips. Each plan spans the full usable page width and
// must match the printed lesson note template.
var (
	TermWeekWidths   = []int{5233, 5233}
	DateWidths       = []int{3489, 2616, 4361}
	ClassWidths      = []int{2093, 4187, 2093, 2093}
	StandardWidths   = []int{4187, 6279}
	IndicatorWidths  = []int{6279, 4187}
	PhaseTableWidths = []int{1745, 5931, 2790}
)

// Artifact is a rendered document and its derived filename.
type Artifact struct {
	Name string
	Data []byte
	// Lessons holds the display-ready lessons that were rendered.
	Lessons []curriculum.LessonDocument
}

// Renderer renders lesson documents.
type Renderer struct {
	abbr *Abbreviations
}

// New returns a Renderer using abbr for filenames; nil means the built-in
// table.
func New(abbr *Abbreviations) *Renderer {
	if abbr == nil {
		abbr = DefaultAbbreviations()
	}
	return &Renderer{abbr: abbr}
}

// Filename derives the document name from the first lesson.
func (r *Renderer) Filename(lessons []curriculum.LessonDocument) string {
	if len(lessons) == 0 {
		return "lesson-notes.docx"
	}
	return r.abbr.Filename(lessons[0])
}

// Render writes lessons into one document, one lesson per page.
func (r *Renderer) Render(lessons []curriculum.LessonDocument) (*Artifact, error) {
	if len(lessons) == 0 {
		return nil, ErrNoLessons
	}
	prepared := Prepare(lessons)

	var doc wordDoc
	for i, l := range prepared {
		if i > 0 {
			doc.pageBreak()
		}
		writeLesson(&doc, l)
	}
	data, err := doc.pack()
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return &Artifact{Name: r.Filename(lessons), Data: data, Lessons: prepared}, nil
}

// lessonTables lays out one prepared lesson as its sequence of tables.
func lessonTables(l curriculum.LessonDocument) []table {
	return []table{
		{widths: TermWeekWidths, rows: [][]cell{{
			boldCell(l.Term), boldCell(l.WeekNumber),
		}}},
		{widths: DateWidths, rows: [][]cell{{
			labelCell("Week Ending", l.WeekEnding),
			labelCell("Day", l.Day),
			labelCell("Subject", l.Subject),
		}}},
		{widths: ClassWidths, rows: [][]cell{{
			labelCell("Duration", l.Duration),
			labelCell("Strand", l.Strand),
			labelCell("Class", l.Class),
			labelCell("Class Size", l.ClassSize),
		}}},
		{widths: StandardWidths, rows: [][]cell{{
			labelCell("Sub Strand", l.SubStrand),
			labelCell("Content Standard", l.ContentStandard),
		}}},
		{widths: IndicatorWidths, rows: [][]cell{
			{labelCell("Indicator", l.Indicator), labelCell("Lesson", l.LessonOrdinal)},
			{labelCell("Performance Indicator", l.PerformanceIndicator), labelCell("Core Competencies", l.CoreCompetencies)},
			{labelCell("Keywords", l.Keywords), labelCell("Reference", l.Reference)},
		}},
		phaseTable(l.Phases),
	}
}

func writeLesson(doc *wordDoc, l curriculum.LessonDocument) {
	tables := lessonTables(l)
	for i, t := range tables {
		if i == len(tables)-1 {
			doc.spacer()
		}
		doc.table(t)
	}
}

func phaseTable(p curriculum.Phases) table {
	header := []cell{
		shadedCell("PHASE/DURATION"),
		shadedCell("LEARNERS ACTIVITIES"),
		shadedCell("RESOURCES"),
	}
	row := func(label string, ph curriculum.Phase) []cell {
		first := cell{paras: []Paragraph{{Runs: []Run{{Text: label, Bold: true}}}}}
		if d := strings.TrimSpace(ph.Duration); d != "" {
			first.paras = append(first.paras, Paragraph{Runs: []Run{{Text: d}}})
		}
		return []cell{
			first,
			{paras: FormatBody(ph.LearnerActivities)},
			{paras: FormatBody(ph.Resources)},
		}
	}
	return table{
		widths: PhaseTableWidths,
		rows: [][]cell{
			header,
			row("PHASE 1: STARTER", p.Starter),
			row("PHASE 2: NEW LEARNING", p.NewLearning),
			row("PHASE 3: REFLECTION", p.Reflection),
		},
	}
}

func boldCell(text string) cell {
	return cell{paras: []Paragraph{{Runs: []Run{{Text: text, Bold: true}}}}}
}

func shadedCell(text string) cell {
	c := boldCell(text)
	c.shade = headerShade
	return c
}

// labelCell renders "Label: value" with a bold label. A multi-line value
// puts each later line in its own paragraph without the label.
func labelCell(label, value string) cell {
	lines := splitNonEmpty(value)
	first := Paragraph{Runs: []Run{{Text: label + ": ", Bold: true}}}
	if len(lines) == 0 {
		return cell{paras: []Paragraph{first}}
	}
	first.Runs = append(first.Runs, inlineRuns(lines[0])...)
	paras := []Paragraph{first}
	for _, l := range lines[1:] {
		paras = append(paras, Paragraph{Runs: inlineRuns(l)})
	}
	return cell{paras: paras}
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, l := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}
