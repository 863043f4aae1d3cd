package curriculum

import (
	"encoding/json"
	"testing"
)

// ========== LessonDocument.UnmarshalJSON ==========

func TestLessonDocument_LooseTypes(t *testing.T) {
	raw := `{
		"term": 1,
		"week": "Week 2",
		"subject": "Computing",
		"classLevel": "B4",
		"keywords": ["mouse", "", "keyboard"],
		"classSize": null,
		"lesson": "2 of 5",
		"phases": {
			"starter": {"duration": 10, "activities": "Sing a song"},
			"newLearning": {"duration": "40 mins", "learnerActivities": ["Step 1", "Step 2"]},
			"reflection": {"resources": "chart"}
		}
	}`
	var doc LessonDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Term != "1" {
		t.Errorf("term = %q, want 1", doc.Term)
	}
	if doc.WeekNumber != "Week 2" {
		t.Errorf("weekNumber = %q, want alias from week", doc.WeekNumber)
	}
	if doc.Class != "B4" {
		t.Errorf("class = %q, want alias from classLevel", doc.Class)
	}
	if doc.Keywords != "mouse\nkeyboard" {
		t.Errorf("keywords = %q, want joined list", doc.Keywords)
	}
	if doc.ClassSize != "" {
		t.Errorf("classSize = %q, want empty", doc.ClassSize)
	}
	if doc.LessonOrdinal != "2 of 5" {
		t.Errorf("lessonOrdinal = %q", doc.LessonOrdinal)
	}
	if doc.Phases.Starter.Duration != "10" || doc.Phases.Starter.LearnerActivities != "Sing a song" {
		t.Errorf("starter = %+v", doc.Phases.Starter)
	}
	if doc.Phases.NewLearning.LearnerActivities != "Step 1\nStep 2" {
		t.Errorf("newLearning activities = %q", doc.Phases.NewLearning.LearnerActivities)
	}
	if doc.Phases.Reflection.Resources != "chart" {
		t.Errorf("reflection resources = %q", doc.Phases.Reflection.Resources)
	}
}

func TestLessonDocument_ObjectFieldCompacted(t *testing.T) {
	var doc LessonDocument
	if err := json.Unmarshal([]byte(`{"reference": {"book": "NaCCA"}}`), &doc); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Reference != `{"book":"NaCCA"}` {
		t.Errorf("reference = %q", doc.Reference)
	}
}

func TestLessonDocument_RoundTripKeys(t *testing.T) {
	in := LessonDocument{Subject: "Science", Phases: Phases{Starter: Phase{LearnerActivities: "Warm up"}}}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out LessonDocument
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out != in {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}
