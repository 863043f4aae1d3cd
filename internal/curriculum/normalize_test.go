package curriculum

import (
	"reflect"
	"testing"
)

// ========== NormalizeGradeLevel ==========

func TestNormalizeGradeLevel_Variants(t *testing.T) {
	cases := map[string]string{
		"B4":        "Basic 4",
		"Class 4":   "Basic 4",
		"basic4":    "Basic 4",
		" Basic 6 ": "Basic 6",
		"P3":        "Basic 3",
		"KG 1":      "KG 1",
		"kg2":       "KG 2",
		"JHS 2":     "JHS 2",
		"SHS1":      "SHS 1",
		"Nursery":   "Nursery",
		"":          "",
	}
	for in, want := range cases {
		if got := NormalizeGradeLevel(in); got != want {
			t.Errorf("NormalizeGradeLevel(%q) = %q, want %q", in, got, want)
		}
	}
}

// ========== NormalizeWeek / NormalizeTerm ==========

func TestNormalizeWeek_Variants(t *testing.T) {
	cases := map[string]string{
		"1":         "Week 1",
		"wk12":      "Week 12",
		"Week 3":    "Week 3",
		"week five": "Week 5",
		"":          "",
		"Revision":  "Revision",

		"Week 4 (2024)": "Week 4",
		"2024 wk 6":     "Week 6",
	}
	for in, want := range cases {
		if got := NormalizeWeek(in); got != want {
			t.Errorf("NormalizeWeek(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeTerm_Variants(t *testing.T) {
	cases := map[string]string{
		"1":             "Term 1",
		"First Term":    "Term 1",
		"term 2":        "Term 2",
		"3rd":           "Term 3",
		"Long Vacation": "Long Vacation",

		"First Term 2024":     "Term 1",
		"Second Term 2024/25": "Term 2",
		"2024 Term 3":         "Term 3",
	}
	for in, want := range cases {
		if got := NormalizeTerm(in); got != want {
			t.Errorf("NormalizeTerm(%q) = %q, want %q", in, got, want)
		}
	}
}

// ========== ExtractStandardCode ==========

func TestExtractStandardCode_WithCode(t *testing.T) {
	code, desc := ExtractStandardCode("B4.1.1.1: Identify parts of a computer")
	if code != "B4.1.1.1" {
		t.Errorf("code = %q, want B4.1.1.1", code)
	}
	if desc != "Identify parts of a computer" {
		t.Errorf("desc = %q, want description without code", desc)
	}
}

func TestExtractStandardCode_TrailingDot(t *testing.T) {
	code, desc := ExtractStandardCode("B7.2.3.1. Demonstrate understanding")
	if code != "B7.2.3.1" || desc != "Demonstrate understanding" {
		t.Errorf("got (%q, %q)", code, desc)
	}
}

func TestExtractStandardCode_NoCode(t *testing.T) {
	code, desc := ExtractStandardCode("  Identify parts of a computer ")
	if code != PlaceholderCode {
		t.Errorf("code = %q, want %q", code, PlaceholderCode)
	}
	if desc != "Identify parts of a computer" {
		t.Errorf("desc = %q", desc)
	}
}

// ========== SplitIndicators ==========

func TestSplitIndicators_NumberedList(t *testing.T) {
	got := SplitIndicators("1. Identify parts 2. Describe uses")
	want := []string{"1. Identify parts", "2. Describe uses"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitIndicators = %q, want %q", got, want)
	}
}

func TestSplitIndicators_MixedSeparators(t *testing.T) {
	got := SplitIndicators("Name devices; Use a mouse\n• Save a file\n\n")
	want := []string{"Name devices", "Use a mouse", "Save a file"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitIndicators = %q, want %q", got, want)
	}
}

func TestSplitIndicators_Empty(t *testing.T) {
	if got := SplitIndicators("   "); got != nil {
		t.Errorf("SplitIndicators(blank) = %q, want nil", got)
	}
}

func TestSplitExemplars_Bullets(t *testing.T) {
	got := SplitExemplars("Draw a keyboard ● Label keys; Draw a keyboard")
	want := []string{"Draw a keyboard", "Label keys"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SplitExemplars = %q, want %q", got, want)
	}
}

// ========== AppendUnique / MergeCommaList ==========

func TestAppendUnique_PreservesOrder(t *testing.T) {
	got := AppendUnique([]string{"b", "a"}, "c", "a", "b", "d", "c")
	want := []string{"b", "a", "c", "d"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("AppendUnique = %q, want %q", got, want)
	}
}

func TestMergeCommaList_NoPileup(t *testing.T) {
	got := MergeCommaList("chalk, ruler", "Chalk, chalk, textbook")
	if got != "chalk, ruler, textbook" {
		t.Errorf("MergeCommaList = %q, want 'chalk, ruler, textbook'", got)
	}
}

func TestMergeLines_Union(t *testing.T) {
	got := MergeLines("a\nb", "b\nc\n")
	if got != "a\nb\nc" {
		t.Errorf("MergeLines = %q, want a/b/c", got)
	}
}

// ========== Row / FromRow ==========

func TestRow_StoredShape(t *testing.T) {
	rec := CurriculumRecord{
		GradeLevel:                 "Basic 4",
		Subject:                    "Computing",
		ContentStandardCode:        "B4.1.1.1",
		ContentStandardDescription: "Identify parts",
		Exemplars:                  []string{"one", "two"},
		IsPublic:                   true,
	}
	row := rec.Row()
	if len(row.ContentStandards) != 1 || row.ContentStandards[0] != "B4.1.1.1: Identify parts" {
		t.Errorf("content_standards = %q", row.ContentStandards)
	}
	if row.LearningIndicators == nil {
		t.Error("learning_indicators should be an empty list, not nil")
	}
	if row.Exemplars != "one\ntwo" {
		t.Errorf("exemplars = %q, want newline-joined", row.Exemplars)
	}

	back := FromRow(row)
	if back.ContentStandardCode != "B4.1.1.1" || back.ContentStandardDescription != "Identify parts" {
		t.Errorf("FromRow standard = (%q, %q)", back.ContentStandardCode, back.ContentStandardDescription)
	}
	if !reflect.DeepEqual(back.Exemplars, rec.Exemplars) {
		t.Errorf("FromRow exemplars = %q", back.Exemplars)
	}
}

func TestContentStandard_PlaceholderHidden(t *testing.T) {
	rec := CurriculumRecord{ContentStandardCode: PlaceholderCode, ContentStandardDescription: "Use tools"}
	if got := rec.ContentStandard(); got != "Use tools" {
		t.Errorf("ContentStandard = %q, want description only", got)
	}
}
