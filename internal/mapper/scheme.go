package mapper

import (
	"strings"

	"lessonnotes/internal/curriculum"
	"lessonnotes/internal/delimited"
)

// SchemeColumns is the positional order of a headerless scheme export and
// the header of the CSV template.
var SchemeColumns = []string{
	"Week", "Week Ending", "Term", "Subject", "Class", "Strand", "Sub-Strand",
	"Content Standard", "Indicators", "Exemplars", "Resources",
}

// MapScheme converts a parsed table into scheme items. Items are
// normalized but not merged.
func MapScheme(t *delimited.Table) ([]curriculum.SchemeItem, error) {
	var items []curriculum.SchemeItem
	for _, row := range t.Rows {
		var it curriculum.SchemeItem
		if t.HasHeader() {
			it = schemeFromHeader(t.HeaderMap, row)
		} else {
			it = schemeFromPosition(row)
		}
		if strings.TrimSpace(it.Week) == "" && strings.TrimSpace(it.Subject) == "" {
			continue
		}
		items = append(items, it.Normalize())
	}
	if len(items) == 0 {
		return nil, ErrNoRows
	}
	return items, nil
}

func schemeFromHeader(hm delimited.HeaderMap, row []string) curriculum.SchemeItem {
	return curriculum.SchemeItem{
		Week:            hm.Get(row, delimited.Week),
		WeekEnding:      hm.Get(row, delimited.WeekEnding),
		Term:            hm.Get(row, delimited.Term),
		Subject:         hm.Get(row, delimited.Subject),
		ClassLevel:      hm.Get(row, delimited.Class),
		Strand:          hm.Get(row, delimited.Strand),
		SubStrand:       hm.Get(row, delimited.SubStrand),
		ContentStandard: hm.Get(row, delimited.ContentStandard),
		Indicators:      hm.Get(row, delimited.Indicators),
		Exemplars:       hm.Get(row, delimited.Exemplars),
		Resources:       hm.Get(row, delimited.Resources),
	}
}

// schemeFromPosition reads the documented column order. Older exports have
// no exemplar column, so the tenth cell is resources unless an eleventh
// cell exists.
func schemeFromPosition(row []string) curriculum.SchemeItem {
	it := curriculum.SchemeItem{
		Week:            cell(row, 0),
		WeekEnding:      cell(row, 1),
		Term:            cell(row, 2),
		Subject:         cell(row, 3),
		ClassLevel:      cell(row, 4),
		Strand:          cell(row, 5),
		SubStrand:       cell(row, 6),
		ContentStandard: cell(row, 7),
		Indicators:      cell(row, 8),
	}
	if len(row) >= 11 {
		it.Exemplars = cell(row, 9)
		it.Resources = cell(row, 10)
	} else {
		it.Resources = cell(row, 9)
	}
	return it
}
