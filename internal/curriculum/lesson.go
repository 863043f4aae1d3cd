package curriculum

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Phase is one block of the lesson phase table.
type Phase struct {
	Duration          string `json:"duration"`
	LearnerActivities string `json:"learnerActivities"`
	Resources         string `json:"resources"`
}

// Phases groups the three fixed lesson phases.
type Phases struct {
	Starter     Phase `json:"starter"`
	NewLearning Phase `json:"newLearning"`
	Reflection  Phase `json:"reflection"`
}

// LessonDocument is the canonical shape consumed by the renderer.
type LessonDocument struct {
	Term                 string `json:"term"`
	WeekNumber           string `json:"weekNumber"`
	WeekEnding           string `json:"weekEnding"`
	Day                  string `json:"day"`
	Subject              string `json:"subject"`
	Duration             string `json:"duration"`
	Strand               string `json:"strand"`
	Class                string `json:"class"`
	ClassSize            string `json:"classSize"`
	SubStrand            string `json:"subStrand"`
	ContentStandard      string `json:"contentStandard"`
	Indicator            string `json:"indicator"`
	LessonOrdinal        string `json:"lessonOrdinal"`
	PerformanceIndicator string `json:"performanceIndicator"`
	CoreCompetencies     string `json:"coreCompetencies"`
	Keywords             string `json:"keywords"`
	Reference            string `json:"reference"`
	Phases               Phases `json:"phases"`
}

// Text decodes a JSON value that should be a string but may arrive as a
// number, boolean, list or null from a generative model.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case '[':
		var items []Text
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		parts := make([]string, 0, len(items))
		for _, it := range items {
			if s := strings.TrimSpace(string(it)); s != "" {
				parts = append(parts, s)
			}
		}
		*t = Text(strings.Join(parts, "\n"))
	case '{':
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*t = Text(buf.String())
	default:
		*t = Text(data)
	}
	return nil
}

type phaseWire struct {
	Duration          Text `json:"duration"`
	LearnerActivities Text `json:"learnerActivities"`
	Activities        Text `json:"activities"`
	Resources         Text `json:"resources"`
}

func (w phaseWire) phase() Phase {
	acts := w.LearnerActivities
	if acts == "" {
		acts = w.Activities
	}
	return Phase{
		Duration:          string(w.Duration),
		LearnerActivities: string(acts),
		Resources:         string(w.Resources),
	}
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	var w phaseWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*p = w.phase()
	return nil
}

type lessonWire struct {
	Term                 Text   `json:"term"`
	WeekNumber           Text   `json:"weekNumber"`
	Week                 Text   `json:"week"`
	WeekEnding           Text   `json:"weekEnding"`
	Day                  Text   `json:"day"`
	Subject              Text   `json:"subject"`
	Duration             Text   `json:"duration"`
	Strand               Text   `json:"strand"`
	Class                Text   `json:"class"`
	ClassLevel           Text   `json:"classLevel"`
	ClassSize            Text   `json:"classSize"`
	SubStrand            Text   `json:"subStrand"`
	ContentStandard      Text   `json:"contentStandard"`
	Indicator            Text   `json:"indicator"`
	LessonOrdinal        Text   `json:"lessonOrdinal"`
	Lesson               Text   `json:"lesson"`
	PerformanceIndicator Text   `json:"performanceIndicator"`
	CoreCompetencies     Text   `json:"coreCompetencies"`
	Keywords             Text   `json:"keywords"`
	Reference            Text   `json:"reference"`
	Phases               Phases `json:"phases"`
}

// UnmarshalJSON accepts loosely typed model output and a few alternate keys
// (week, classLevel, lesson).
func (l *LessonDocument) UnmarshalJSON(data []byte) error {
	var w lessonWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*l = LessonDocument{
		Term:                 string(w.Term),
		WeekNumber:           string(firstText(w.WeekNumber, w.Week)),
		WeekEnding:           string(w.WeekEnding),
		Day:                  string(w.Day),
		Subject:              string(w.Subject),
		Duration:             string(w.Duration),
		Strand:               string(w.Strand),
		Class:                string(firstText(w.Class, w.ClassLevel)),
		ClassSize:            string(w.ClassSize),
		SubStrand:            string(w.SubStrand),
		ContentStandard:      string(w.ContentStandard),
		Indicator:            string(w.Indicator),
		LessonOrdinal:        string(firstText(w.LessonOrdinal, w.Lesson)),
		PerformanceIndicator: string(w.PerformanceIndicator),
		CoreCompetencies:     string(w.CoreCompetencies),
		Keywords:             string(w.Keywords),
		Reference:            string(w.Reference),
		Phases:               w.Phases,
	}
	return nil
}

func firstText(vals ...Text) Text {
	for _, v := range vals {
		if strings.TrimSpace(string(v)) != "" {
			return v
		}
	}
	return ""
}
