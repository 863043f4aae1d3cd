// Package curriculum holds the canonical curriculum, scheme and lesson
// shapes shared by the import and render pipelines, plus the rules that
// coerce heterogeneous input into canonical form.
package curriculum

import "strings"

// PlaceholderCode is used when a content standard has no leading code.
const PlaceholderCode = "CS"

// CurriculumRecord is one content-standard unit for a class and subject.
type CurriculumRecord struct {
	GradeLevel                 string   `json:"grade_level"`
	Subject                    string   `json:"subject"`
	Strand                     string   `json:"strand"`
	SubStrand                  string   `json:"sub_strand"`
	ContentStandardCode        string   `json:"content_standard_code"`
	ContentStandardDescription string   `json:"content_standard_description"`
	LearningIndicators         []string `json:"learning_indicators"`
	Exemplars                  []string `json:"exemplars"`
	IsPublic                   bool     `json:"is_public"`
}

// ContentStandard renders the code and description as one display string.
func (r CurriculumRecord) ContentStandard() string {
	desc := strings.TrimSpace(r.ContentStandardDescription)
	code := strings.TrimSpace(r.ContentStandardCode)
	switch {
	case desc == "":
		return code
	case code == "" || code == PlaceholderCode:
		return desc
	default:
		return code + ": " + desc
	}
}

// StoredRecord is the row shape the hosted database expects.
type StoredRecord struct {
	GradeLevel         string   `json:"grade_level"`
	Subject            string   `json:"subject"`
	Strand             string   `json:"strand"`
	SubStrand          string   `json:"sub_strand"`
	ContentStandards   []string `json:"content_standards"`
	LearningIndicators []string `json:"learning_indicators"`
	Exemplars          string   `json:"exemplars"`
	IsPublic           bool     `json:"is_public"`
}

// Row converts a record into the persistence row shape.
func (r CurriculumRecord) Row() StoredRecord {
	indicators := r.LearningIndicators
	if indicators == nil {
		indicators = []string{}
	}
	var standards []string
	if cs := r.ContentStandard(); cs != "" {
		standards = []string{cs}
	} else {
		standards = []string{}
	}
	return StoredRecord{
		GradeLevel:         r.GradeLevel,
		Subject:            r.Subject,
		Strand:             r.Strand,
		SubStrand:          r.SubStrand,
		ContentStandards:   standards,
		LearningIndicators: indicators,
		Exemplars:          strings.Join(r.Exemplars, "\n"),
		IsPublic:           r.IsPublic,
	}
}

// FromRow rebuilds a record from a stored row.
func FromRow(row StoredRecord) CurriculumRecord {
	rec := CurriculumRecord{
		GradeLevel:         row.GradeLevel,
		Subject:            row.Subject,
		Strand:             row.Strand,
		SubStrand:          row.SubStrand,
		LearningIndicators: AppendUnique(nil, row.LearningIndicators...),
		Exemplars:          SplitExemplars(row.Exemplars),
		IsPublic:           row.IsPublic,
	}
	if len(row.ContentStandards) > 0 {
		rec.ContentStandardCode, rec.ContentStandardDescription = ExtractStandardCode(row.ContentStandards[0])
	} else {
		rec.ContentStandardCode = PlaceholderCode
	}
	return rec
}

// SchemeItem is one subject/week entry of a scheme of learning.
type SchemeItem struct {
	Week            string `json:"week"`
	WeekEnding      string `json:"week_ending,omitempty"`
	Term            string `json:"term"`
	Subject         string `json:"subject"`
	ClassLevel      string `json:"class_level"`
	Strand          string `json:"strand"`
	SubStrand       string `json:"sub_strand"`
	ContentStandard string `json:"content_standard"`
	Indicators      string `json:"indicators"`
	Exemplars       string `json:"exemplars"`
	Resources       string `json:"resources"`
}

// Normalize coerces week, term and class into canonical form.
func (s SchemeItem) Normalize() SchemeItem {
	s.Week = NormalizeWeek(s.Week)
	s.Term = NormalizeTerm(s.Term)
	s.ClassLevel = NormalizeGradeLevel(s.ClassLevel)
	s.WeekEnding = strings.TrimSpace(s.WeekEnding)
	s.Subject = strings.TrimSpace(s.Subject)
	return s
}
