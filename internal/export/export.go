// Package export writes scheme-of-learning items as CSV or XLSX and
// produces the blank CSV template teachers fill in.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"lessonnotes/internal/curriculum"
	"lessonnotes/internal/mapper"
)

const (
	CSVContentType  = "text/csv; charset=utf-8"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	sheetName       = "Scheme"
)

// unquotedColumns counts the leading code columns (week, week ending, term).
const unquotedColumns = 3

var templateExample = curriculum.SchemeItem{
	Week:            "Week 1",
	WeekEnding:      "12/01/2024",
	Term:            "Term 1",
	Subject:         "Computing",
	ClassLevel:      "Basic 4",
	Strand:          "Introduction to Computing",
	SubStrand:       "Components of Computers",
	ContentStandard: "B4.1.1.1: Demonstrate understanding of the parts of a computer",
	Indicators:      "B4.1.1.1.1 Identify input devices",
	Exemplars:       "Learners name devices on a chart",
	Resources:       "Laptop, Projector",
}

func columns(it curriculum.SchemeItem) []string {
	return []string{
		it.Week, it.WeekEnding, it.Term, it.Subject, it.ClassLevel, it.Strand,
		it.SubStrand, it.ContentStandard, it.Indicators, it.Exemplars, it.Resources,
	}
}

// flatten keeps each record on one line for line-oriented readers.
func flatten(s string) string {
	lines := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' })
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	return strings.Join(lines, "; ")
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func writeRow(buf *bytes.Buffer, cells []string, quoteFrom int) {
	for i, c := range cells {
		if i > 0 {
			buf.WriteByte(',')
		}
		c = flatten(c)
		if i >= quoteFrom || strings.ContainsAny(c, `,;"`) {
			c = quote(c)
		}
		buf.WriteString(c)
	}
	buf.WriteString("\r\n")
}

// CSV writes the header and one row per item. Free-text columns are always
// quoted.
func CSV(items []curriculum.SchemeItem) []byte {
	var buf bytes.Buffer
	writeRow(&buf, mapper.SchemeColumns, len(mapper.SchemeColumns))
	for _, it := range items {
		writeRow(&buf, columns(it), unquotedColumns)
	}
	return buf.Bytes()
}

// Template is the CSV header with one example row.
func Template() []byte {
	return CSV([]curriculum.SchemeItem{templateExample})
}

// XLSX writes the same columns as CSV to a single-sheet workbook.
func XLSX(items []curriculum.SchemeItem) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]interface{}, len(mapper.SchemeColumns))
	for i, h := range mapper.SchemeColumns {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9D9D9"}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(mapper.SchemeColumns), 1)
	if err := f.SetCellStyle(sheetName, "A1", last, bold); err != nil {
		return nil, fmt.Errorf("apply header style: %w", err)
	}

	for i, it := range items {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		cols := columns(it)
		row := make([]interface{}, len(cols))
		for j, c := range cols {
			row[j] = c
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(mapper.SchemeColumns))
	if err := f.SetColWidth(sheetName, "A", lastCol, 22); err != nil {
		return nil, fmt.Errorf("column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename names an export for the given format ("csv" or "xlsx").
func Filename(items []curriculum.SchemeItem, format string) string {
	base := "scheme-of-learning"
	if len(items) > 0 {
		var parts []string
		for _, s := range []string{items[0].ClassLevel, items[0].Term} {
			if s = strings.TrimSpace(s); s != "" {
				parts = append(parts, strings.ReplaceAll(s, " ", "-"))
			}
		}
		if len(parts) > 0 {
			base += "-" + strings.Join(parts, "-")
		}
	}
	return strings.ToLower(base) + "." + format
}
