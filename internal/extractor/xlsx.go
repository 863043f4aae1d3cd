package extractor

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// extractXLSX re-emits the first non-empty sheet as comma-delimited text so
// the delimited parser can read spreadsheet uploads unchanged.
func extractXLSX(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("sheet %q: %w", sheet, err)
		}
		if text := rowsToCSV(rows); text != "" {
			return text, nil
		}
	}
	return "", nil
}

func rowsToCSV(rows [][]string) string {
	var sb strings.Builder
	for _, row := range rows {
		empty := true
		for _, c := range row {
			if strings.TrimSpace(c) != "" {
				empty = false
				break
			}
		}
		if empty {
			continue
		}
		for i, c := range row {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(quoteCell(c))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// quoteCell quotes a cell containing a delimiter, quote or line break.
// Line breaks are flattened to "; " so a cell stays on one line.
func quoteCell(c string) string {
	c = strings.ReplaceAll(c, "\r\n", "\n")
	c = strings.ReplaceAll(c, "\n", "; ")
	if strings.ContainsAny(c, `,;"`) {
		return `"` + strings.ReplaceAll(c, `"`, `""`) + `"`
	}
	return c
}
