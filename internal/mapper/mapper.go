// Package mapper turns delimited rows into canonical curriculum records and
// scheme items.
package mapper

import (
	"errors"
	"strings"

	"lessonnotes/internal/curriculum"
	"lessonnotes/internal/delimited"
)

// ErrNoRows is returned when no row survives column mapping.
var ErrNoRows = errors.New("mapper: no usable rows")

// Variant names the record-shape strategy chosen for a table.
type Variant string

const (
	VariantUser     Variant = "user"
	VariantTemplate Variant = "template"
	VariantMinimal  Variant = "minimal"
)

// Options carries values the table itself may not hold.
type Options struct {
	// Subject is used when no subject column is present.
	Subject  string
	IsPublic bool
}

// positions is a fixed fallback index per field. -1 means absent.
type positions struct {
	class, subject, strand, subStrand, content, indicators, exemplars int
}

// Fallback positions for the user format. When a subject column sits at
// index 1 every later column moves right by one.
var (
	userWithSubject = positions{class: 0, subject: 1, strand: 2, subStrand: 3, content: 4, indicators: 5, exemplars: 6}
	userNoSubject   = positions{class: 0, subject: -1, strand: 1, subStrand: 2, content: 3, indicators: 4, exemplars: 5}
)

// userPositions returns the fallback table for the user format.
func userPositions(subjectAtOne bool) positions {
	if subjectAtOne {
		return userWithSubject
	}
	return userNoSubject
}

// DetectVariant picks the mapping strategy for a table.
func DetectVariant(t *delimited.Table) Variant {
	if t.HasHeader() && isUserFormat(t.Header) {
		return VariantUser
	}
	if !t.HasHeader() && widest(t.Rows) >= 7 {
		return VariantTemplate
	}
	return VariantMinimal
}

func isUserFormat(header []string) bool {
	var content, detail bool
	for _, h := range header {
		h = strings.ToLower(h)
		if strings.Contains(h, "content") || strings.Contains(h, "standard") {
			content = true
		}
		if strings.Contains(h, "indicator") || strings.Contains(h, "exemplar") || strings.Contains(h, "learning") {
			detail = true
		}
	}
	return content && detail
}

func widest(rows [][]string) int {
	n := 0
	for _, r := range rows {
		n = max(n, len(r))
	}
	return n
}

// MapCurriculum converts a parsed table into curriculum records. Records
// are not merged.
func MapCurriculum(t *delimited.Table, opts Options) ([]curriculum.CurriculumRecord, error) {
	variant := DetectVariant(t)
	var records []curriculum.CurriculumRecord
	for _, row := range t.Rows {
		var raw rawRecord
		switch variant {
		case VariantUser:
			raw = mapUser(t.Header, t.HeaderMap, row)
		case VariantTemplate:
			if len(row) >= 7 {
				raw = mapTemplate(row)
			} else {
				raw = mapMinimal(row)
			}
		default:
			raw = mapMinimal(row)
		}
		if raw.subject == "" {
			raw.subject = opts.Subject
		}
		rec, ok := raw.finish(opts.IsPublic)
		if !ok {
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, ErrNoRows
	}
	return records, nil
}

// rawRecord holds cells before post-processing.
type rawRecord struct {
	class, subject, strand, subStrand, content, indicators, exemplars string
}

func (r rawRecord) finish(public bool) (curriculum.CurriculumRecord, bool) {
	if strings.TrimSpace(r.content) == "" && strings.TrimSpace(r.indicators) == "" {
		return curriculum.CurriculumRecord{}, false
	}
	code, desc := curriculum.ExtractStandardCode(r.content)
	return curriculum.CurriculumRecord{
		GradeLevel:                 curriculum.NormalizeGradeLevel(r.class),
		Subject:                    strings.TrimSpace(r.subject),
		Strand:                     strings.TrimSpace(r.strand),
		SubStrand:                  strings.TrimSpace(r.subStrand),
		ContentStandardCode:        code,
		ContentStandardDescription: desc,
		LearningIndicators:         curriculum.SplitIndicators(r.indicators),
		Exemplars:                  curriculum.SplitExemplars(r.exemplars),
		IsPublic:                   public,
	}, true
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// pick returns the header-mapped cell for f, or the fallback position.
func pick(hm delimited.HeaderMap, row []string, f delimited.Field, fallback int) string {
	if i, ok := hm[f]; ok {
		return cell(row, i)
	}
	return cell(row, fallback)
}

func mapUser(header []string, hm delimited.HeaderMap, row []string) rawRecord {
	subjectAtOne := len(header) > 1 && strings.Contains(strings.ToLower(header[1]), "subject")
	pos := userPositions(subjectAtOne)
	return rawRecord{
		class:      pick(hm, row, delimited.Class, pos.class),
		subject:    pick(hm, row, delimited.Subject, pos.subject),
		strand:     pick(hm, row, delimited.Strand, pos.strand),
		subStrand:  pick(hm, row, delimited.SubStrand, pos.subStrand),
		content:    pick(hm, row, delimited.ContentStandard, pos.content),
		indicators: pick(hm, row, delimited.Indicators, pos.indicators),
		exemplars:  pick(hm, row, delimited.Exemplars, pos.exemplars),
	}
}

// mapTemplate handles the headerless NaCCA export: class, strand,
// sub-strand, standard code, standard, indicator code, indicator and an
// optional exemplar column.
func mapTemplate(row []string) rawRecord {
	return rawRecord{
		class:      cell(row, 0),
		strand:     cell(row, 1),
		subStrand:  cell(row, 2),
		content:    joinCode(cell(row, 3), cell(row, 4)),
		indicators: joinCode(cell(row, 5), cell(row, 6)),
		exemplars:  cell(row, 7),
	}
}

func joinCode(code, text string) string {
	code, text = strings.TrimSpace(code), strings.TrimSpace(text)
	switch {
	case code == "":
		return text
	case text == "":
		return code
	default:
		return code + ": " + text
	}
}

func mapMinimal(row []string) rawRecord {
	switch {
	case len(row) >= 5:
		return rawRecord{class: row[0], strand: row[1], subStrand: row[2], content: row[3], indicators: row[4]}
	case len(row) == 4:
		return rawRecord{class: row[0], subStrand: row[1], content: row[2], indicators: row[3]}
	case len(row) == 3:
		return rawRecord{class: row[0], content: row[1], indicators: row[2]}
	case len(row) == 2:
		return rawRecord{content: row[0], indicators: row[1]}
	default:
		return rawRecord{}
	}
}
