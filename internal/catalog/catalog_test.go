package catalog

import (
	"context"
	"testing"

	"lessonnotes/internal/curriculum"
)

func sample() []curriculum.CurriculumRecord {
	return []curriculum.CurriculumRecord{
		{
			GradeLevel: "Basic 4", Subject: "Computing", Strand: "Introduction to Computing",
			ContentStandardCode: "B4.1.1.1", ContentStandardDescription: "Parts of a computer",
			LearningIndicators: []string{"Identify input devices such as keyboard"},
		},
		{
			GradeLevel: "Basic 4", Subject: "Computing", Strand: "Introduction to Computing",
			ContentStandardCode: "B4.1.2.1", ContentStandardDescription: "Output devices",
			LearningIndicators: []string{"Describe how a printer works"},
		},
		{
			GradeLevel: "Basic 5", Subject: "Science", Strand: "Diversity of Matter",
			ContentStandardCode: "B5.1.1.1", ContentStandardDescription: "States of matter",
			LearningIndicators: []string{"Name the three states of matter"},
		},
	}
}

func newCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := New(curriculum.PolicyCurriculum)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	if err := c.Add(sample()...); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	return c
}

// ========== Search ==========

func TestSearch_FreeText(t *testing.T) {
	c := newCatalog(t)
	hits, err := c.Search(context.Background(), Query{Text: "printer"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(hits) != 1 || hits[0].Record.ContentStandardCode != "B4.1.2.1" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestSearch_GradeFilter(t *testing.T) {
	c := newCatalog(t)
	hits, err := c.Search(context.Background(), Query{GradeLevel: "B4"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
	if hits[0].Record.ContentStandardCode != "B4.1.1.1" {
		t.Errorf("first hit = %q, want insertion order", hits[0].Record.ContentStandardCode)
	}
}

func TestSearch_TextAndSubject(t *testing.T) {
	c := newCatalog(t)
	hits, err := c.Search(context.Background(), Query{Text: "matter", Subject: "computing"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("hits = %+v, want none", hits)
	}
	hits, _ = c.Search(context.Background(), Query{Text: "matter", Subject: "SCIENCE"})
	if len(hits) != 1 {
		t.Errorf("hits = %d, want 1", len(hits))
	}
}

func TestSearch_Limit(t *testing.T) {
	c := newCatalog(t)
	hits, _ := c.Search(context.Background(), Query{Limit: 1})
	if len(hits) != 1 {
		t.Errorf("hits = %d, want 1", len(hits))
	}
}

func TestAdd_ReplacesSameRecord(t *testing.T) {
	c := newCatalog(t)
	r := sample()[0]
	r.LearningIndicators = append(r.LearningIndicators, "Identify a scanner")
	if err := c.Add(r); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
	hits, _ := c.Search(context.Background(), Query{Text: "scanner"})
	if len(hits) != 1 || len(hits[0].Record.LearningIndicators) != 2 {
		t.Errorf("hits = %+v", hits)
	}
}

func TestAdd_FidelityKeepsIndicatorSets(t *testing.T) {
	c, err := New(curriculum.PolicyIndicatorFidelity)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	a := sample()[0]
	b := a
	b.LearningIndicators = []string{"Describe how a mouse is used"}
	if err := c.Add(a, b); err != nil {
		t.Fatalf("Add() error: %v", err)
	}
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2", c.Len())
	}
	hits, err := c.Search(context.Background(), Query{Subject: "Computing"})
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(hits) != 2 {
		t.Errorf("hits = %d, want 2", len(hits))
	}
}
