package extractor

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	// sameLineTolerance groups fragments whose baselines differ by at
	// most this many units into one line.
	sameLineTolerance = 5.0
	// newlineTolerance is the vertical gap between lines that starts a new
	// output line; smaller gaps are joined with a space.
	newlineTolerance = 10.0
	// glyphGapRatio is the horizontal gap, as a fraction of the font size,
	// under which adjacent fragments belong to the same word.
	glyphGapRatio = 0.2
)

// Fragment is one positioned run of text on a PDF page.
type Fragment struct {
	X, Y     float64
	W        float64
	FontSize float64
	S        string
}

// extractPDF reads every page's positioned text and rebuilds reading
// order. Each page is prefixed with a "--- Page N ---" marker.
func extractPDF(data []byte) (text string, err error) {
	// The pdf package panics on some malformed files.
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var out strings.Builder
	numPages := r.NumPage()
	for pageIndex := 1; pageIndex <= numPages; pageIndex++ {
		p := r.Page(pageIndex)
		if p.V.IsNull() {
			continue
		}
		frags := pageFragments(p)
		if out.Len() > 0 {
			out.WriteString("\n\n")
		}
		fmt.Fprintf(&out, "--- Page %d ---\n", pageIndex)
		out.WriteString(Reflow(frags))
	}
	return strings.TrimSpace(out.String()), nil
}

func pageFragments(p pdf.Page) []Fragment {
	content := p.Content()
	frags := make([]Fragment, 0, len(content.Text))
	for _, t := range content.Text {
		frags = append(frags, Fragment{X: t.X, Y: t.Y, W: t.W, FontSize: t.FontSize, S: t.S})
	}
	return frags
}

// Reflow orders fragments top to bottom, then left to right, and joins
// them into lines.
func Reflow(frags []Fragment) string {
	if len(frags) == 0 {
		return ""
	}
	sorted := make([]Fragment, len(frags))
	copy(sorted, frags)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Y > sorted[j].Y })

	// Cluster into lines by baseline.
	var lines [][]Fragment
	var lineY []float64
	for _, f := range sorted {
		n := len(lines)
		if n > 0 && lineY[n-1]-f.Y <= sameLineTolerance {
			lines[n-1] = append(lines[n-1], f)
			continue
		}
		lines = append(lines, []Fragment{f})
		lineY = append(lineY, f.Y)
	}

	var sb strings.Builder
	for i, line := range lines {
		sort.SliceStable(line, func(a, b int) bool { return line[a].X < line[b].X })
		if i > 0 {
			if lineY[i-1]-lineY[i] > newlineTolerance {
				sb.WriteString("\n")
			} else {
				writeSpace(&sb)
			}
		}
		for j, f := range line {
			if j > 0 && !adjacent(line[j-1], f) {
				writeSpace(&sb)
			}
			sb.WriteString(f.S)
		}
	}
	return sb.String()
}

func adjacent(prev, next Fragment) bool {
	size := max(prev.FontSize, next.FontSize)
	if size <= 0 {
		size = 10
	}
	gap := next.X - (prev.X + prev.W)
	return gap < glyphGapRatio*size
}

func writeSpace(sb *strings.Builder) {
	s := sb.String()
	if s == "" {
		return
	}
	switch s[len(s)-1] {
	case ' ', '\n', '\t':
		return
	}
	sb.WriteByte(' ')
}
