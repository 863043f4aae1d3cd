package extractor

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// extractDOCX reads word/document.xml and flattens it to text, keeping
// table rows on their own lines and cells separated by " | ".
func extractDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to read docx: %w", err)
	}
	defer r.Close()

	return docxXMLToText(r.Editable().GetContent()), nil
}

var (
	hspaceRe      = regexp.MustCompile(`[ \t\f\v]+`)
	blankLinesRe  = regexp.MustCompile(`\n\s*\n+`)
	pipeNewlineRe = regexp.MustCompile(`[ ]*\|[ ]*\n`)
	newlinePipeRe = regexp.MustCompile(`\n[ ]*\|[ ]*`)
)

var xmlEntities = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", `"`,
	"&apos;", "'",
	"&amp;", "&",
)

// docxXMLToText converts WordprocessingML markup into text.
func docxXMLToText(xml string) string {
	s := strings.ReplaceAll(xml, "</w:tr>", "\n")
	s = strings.ReplaceAll(s, "</w:tc>", " | ")
	s = strings.ReplaceAll(s, "</w:p>", " ")
	s = stripTags(s)
	s = xmlEntities.Replace(s)
	s = hspaceRe.ReplaceAllString(s, " ")
	s = blankLinesRe.ReplaceAllString(s, "\n")
	s = pipeNewlineRe.ReplaceAllString(s, "\n")
	s = newlinePipeRe.ReplaceAllString(s, "\n")
	s = strings.TrimSuffix(strings.TrimSpace(s), "|")

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func stripTags(xmlStr string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range xmlStr {
		if r == '<' {
			inTag = true
			continue
		}
		if r == '>' {
			inTag = false
			continue
		}
		if !inTag {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
