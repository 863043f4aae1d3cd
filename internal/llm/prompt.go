package llm

import (
	"fmt"
	"strings"

	"lessonnotes/internal/curriculum"
)

// LessonRequest describes one lesson to generate from a curriculum record.
type LessonRequest struct {
	Record     curriculum.CurriculumRecord
	Term       string
	Week       string
	WeekEnding string
	Day        string
	Duration   string
	ClassSize  string
	// Lessons asks for that many lessons in one response when > 1.
	Lessons int
}

var systemPrompt = `You write lesson notes for Ghanaian basic schools following the NaCCA curriculum.
Respond with JSON only. Each lesson is an object with these keys:
term, weekNumber, weekEnding, day, subject, duration, strand, class, classSize,
subStrand, contentStandard, indicator, lessonOrdinal, performanceIndicator,
coreCompetencies, keywords, reference, and phases.
phases has starter, newLearning and reflection; each has duration,
learnerActivities and resources. When asked for several lessons, return a JSON array.`

// BuildPrompt renders the user message for req.
func BuildPrompt(req LessonRequest) string {
	r := req.Record
	var sb strings.Builder
	fmt.Fprintf(&sb, "Class: %s\nSubject: %s\n", r.GradeLevel, r.Subject)
	fmt.Fprintf(&sb, "Strand: %s\nSub-strand: %s\n", r.Strand, r.SubStrand)
	fmt.Fprintf(&sb, "Content standard: %s\n", r.ContentStandard())
	if len(r.LearningIndicators) > 0 {
		sb.WriteString("Indicators:\n")
		for _, ind := range r.LearningIndicators {
			fmt.Fprintf(&sb, "- %s\n", ind)
		}
	}
	if len(r.Exemplars) > 0 {
		sb.WriteString("Exemplars:\n")
		for _, ex := range r.Exemplars {
			fmt.Fprintf(&sb, "- %s\n", ex)
		}
	}
	for _, kv := range [][2]string{
		{"Term", req.Term},
		{"Week", req.Week},
		{"Week ending", req.WeekEnding},
		{"Day", req.Day},
		{"Duration", req.Duration},
		{"Class size", req.ClassSize},
	} {
		if kv[1] != "" {
			fmt.Fprintf(&sb, "%s: %s\n", kv[0], kv[1])
		}
	}
	if req.Lessons > 1 {
		fmt.Fprintf(&sb, "Write %d lessons as a JSON array.\n", req.Lessons)
	}
	return sb.String()
}
