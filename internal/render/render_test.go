package render

import (
	"archive/zip"
	"bytes"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"lessonnotes/internal/curriculum"
	"lessonnotes/internal/extractor"
)

func sampleLesson() curriculum.LessonDocument {
	return curriculum.LessonDocument{
		Term:                 "1",
		WeekNumber:           "Week 2",
		WeekEnding:           "12/01/2024",
		Day:                  "Monday",
		Subject:              "religious and moral education",
		Duration:             "60 mins",
		Strand:               "God, His Creation and Attributes",
		Class:                "basic4",
		ClassSize:            "35",
		SubStrand:            "The Environment",
		ContentStandard:      "B4.1.1.1.: B4.1.1.1 Show understanding of God's creation",
		Indicator:            "1. Describe creation\n2. Explain care for the environment",
		LessonOrdinal:        "4 of 4",
		PerformanceIndicator: "describe the creation story",
		Keywords:             "creation, environment",
		Reference:            "AI textbook",
		Phases: curriculum.Phases{
			Starter:     curriculum.Phase{Duration: "10 mins", LearnerActivities: "Sing a song of creation", Resources: "- song chart"},
			NewLearning: curriculum.Phase{Duration: "40 mins", LearnerActivities: "Activity 1: Groups\n- Draw & label", Resources: "pictures"},
			Reflection:  curriculum.Phase{Duration: "10 mins", LearnerActivities: "Learners summarise"},
		},
	}
}

func readPart(t *testing.T, data []byte, name string) string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			t.Fatal(err)
		}
		return string(b)
	}
	t.Fatalf("part %s not found", name)
	return ""
}

var (
	gridRe    = regexp.MustCompile(`<w:tblGrid>(.*?)</w:tblGrid>`)
	gridColRe = regexp.MustCompile(`<w:gridCol w:w="(\d+)"/>`)
)

func tableGrids(t *testing.T, documentXML string) [][]int {
	t.Helper()
	var grids [][]int
	for _, m := range gridRe.FindAllStringSubmatch(documentXML, -1) {
		var widths []int
		for _, c := range gridColRe.FindAllStringSubmatch(m[1], -1) {
			w, _ := strconv.Atoi(c[1])
			widths = append(widths, w)
		}
		grids = append(grids, widths)
	}
	return grids
}

// ========== Render ==========

func TestRender_Empty(t *testing.T) {
	if _, err := New(nil).Render(nil); !errors.Is(err, ErrNoLessons) {
		t.Errorf("err = %v, want ErrNoLessons", err)
	}
}

func TestRender_PackageParts(t *testing.T) {
	art, err := New(nil).Render([]curriculum.LessonDocument{sampleLesson()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if art.Name != "B4-RME-WK2.docx" {
		t.Errorf("name = %q", art.Name)
	}
	for _, part := range []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml", "word/_rels/document.xml.rels", "word/styles.xml"} {
		readPart(t, art.Data, part)
	}
}

func TestRender_ColumnWidths(t *testing.T) {
	art, err := New(nil).Render([]curriculum.LessonDocument{sampleLesson()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := readPart(t, art.Data, "word/document.xml")
	want := [][]int{TermWeekWidths, DateWidths, ClassWidths, StandardWidths, IndicatorWidths, PhaseTableWidths}
	got := tableGrids(t, doc)
	if len(got) != len(want) {
		t.Fatalf("tables = %d, want %d", len(got), len(want))
	}
	for i := range want {
		sum := 0
		for j, w := range want[i] {
			sum += w
			if got[i][j] != w {
				t.Errorf("table %d col %d = %d, want %d", i, j, got[i][j], w)
			}
		}
		if sum != usableWidth {
			t.Errorf("table %d spans %d, want %d", i, sum, usableWidth)
		}
	}
	if !strings.Contains(doc, `<w:tblLayout w:type="fixed"/>`) {
		t.Error("expected fixed table layout")
	}
	if strings.Count(doc, `w:fill="`+headerShade+`"`) != 3 {
		t.Error("expected three shaded header cells")
	}
}

func TestRender_BatchOrdinalsAndPages(t *testing.T) {
	lessons := []curriculum.LessonDocument{sampleLesson(), sampleLesson(), sampleLesson()}
	art, err := New(nil).Render(lessons)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	doc := readPart(t, art.Data, "word/document.xml")
	if n := strings.Count(doc, `<w:br w:type="page"/>`); n != 2 {
		t.Errorf("page breaks = %d, want 2", n)
	}
	for i, want := range []string{"1 of 3", "2 of 3", "3 of 3"} {
		if art.Lessons[i].LessonOrdinal != want {
			t.Errorf("lesson %d ordinal = %q, want %q", i, art.Lessons[i].LessonOrdinal, want)
		}
		if !strings.Contains(doc, ">"+want+"<") {
			t.Errorf("document missing ordinal %q", want)
		}
	}
	if strings.Contains(doc, "4 of 4") {
		t.Error("source ordinal leaked into the document")
	}
}

func TestRender_LabelOnFirstLineOnly(t *testing.T) {
	c := labelCell("Indicator", "1. Describe creation\n2. Explain care")
	if len(c.paras) != 2 {
		t.Fatalf("paragraphs = %d, want 2", len(c.paras))
	}
	if !c.paras[0].Runs[0].Bold || c.paras[0].Runs[0].Text != "Indicator: " {
		t.Errorf("first run = %+v", c.paras[0].Runs[0])
	}
	if c.paras[0].Runs[1].Bold {
		t.Error("value must not be bold")
	}
	if c.paras[1].Text() != "2. Explain care" {
		t.Errorf("second line = %q", c.paras[1].Text())
	}
}

func TestRender_ReadableByExtractor(t *testing.T) {
	art, err := New(nil).Render([]curriculum.LessonDocument{sampleLesson()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	text, err := extractor.Extract(art.Data, art.Name)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	for _, want := range []string{
		"TERM 1 | WEEK 2",
		"Subject: Religious and Moral Education",
		"Content Standard: B4.1.1.1: Show understanding of God's creation",
		"Reference: NaCCA Religious and Moral Education Curriculum for Basic 4",
		PerformancePrefix,
		"• Draw & label",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("extracted text missing %q:\n%s", want, text)
		}
	}
}

func TestEscapeText(t *testing.T) {
	got := escapeText("a < b & c > d's\x01\tend")
	if got != "a &lt; b &amp; c &gt; d's\tend" {
		t.Errorf("escapeText = %q", got)
	}
}
