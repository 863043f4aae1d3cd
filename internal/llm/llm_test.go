package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lessonnotes/internal/curriculum"
)

const lessonA = `{"subject": "Computing", "strand": "Intro", "lessonOrdinal": "7 of 9", "phases": {"starter": {"duration": "10 mins", "learnerActivities": "Sing"}}}`
const lessonB = `{"subject": "Science", "strand": "Matter"}`

// ========== stripCodeFence ==========

func TestStripCodeFence_JSONFence(t *testing.T) {
	got := stripCodeFence("```json\n{\"a\": 1}\n```")
	if got != `{"a": 1}` {
		t.Errorf("stripCodeFence = %q", got)
	}
}

func TestStripCodeFence_BareFence(t *testing.T) {
	got := stripCodeFence("  ```\n[1]\n```  ")
	if got != "[1]" {
		t.Errorf("stripCodeFence = %q", got)
	}
}

func TestStripCodeFence_NoFence(t *testing.T) {
	if got := stripCodeFence(" {} "); got != "{}" {
		t.Errorf("stripCodeFence = %q", got)
	}
}

// ========== stage: array ==========

func TestParseArray_FiltersNonLessons(t *testing.T) {
	lessons, err := parseArray([]byte(`[` + lessonA + `, {"note": "ignore me"}, 42, ` + lessonB + `]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lessons) != 2 || lessons[1].Subject != "Science" {
		t.Errorf("lessons = %+v", lessons)
	}
}

func TestParseArray_NoLessons(t *testing.T) {
	if _, err := parseArray([]byte(`[{"note": 1}]`)); !errors.Is(err, errNoLessons) {
		t.Errorf("err = %v, want errNoLessons", err)
	}
}

func TestParseLessonJSON_ArraySingleUnwrapped(t *testing.T) {
	got, err := ParseLessonJSON("```json\n[" + lessonA + ", {\"x\": 1}]\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != Single || len(got.Lessons) != 1 {
		t.Errorf("got kind=%v n=%d, want single", got.Kind, len(got.Lessons))
	}
}

func TestParseLessonJSON_ArrayMany(t *testing.T) {
	got, err := ParseLessonJSON("[" + lessonA + "," + lessonB + "]")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != Many || len(got.Lessons) != 2 {
		t.Errorf("got kind=%v n=%d, want many/2", got.Kind, len(got.Lessons))
	}
}

// ========== stage: segments ==========

func TestParseSegments_EachFenced(t *testing.T) {
	text := "```json\n" + lessonA + "\n```\n---\n```json\n" + lessonB + "\n```\n---\n"
	lessons, err := parseSegments(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lessons) != 2 || lessons[0].Subject != "Computing" || lessons[1].Subject != "Science" {
		t.Errorf("lessons = %+v", lessons)
	}
}

func TestParseLessonJSON_EachSegmentFenced(t *testing.T) {
	for name, text := range map[string]string{
		"plain":            "```json\n" + lessonA + "\n```\n---\n```json\n" + lessonB + "\n```",
		"trailing divider": "```json\n" + lessonA + "\n```\n---\n```json\n" + lessonB + "\n```\n---\n",
	} {
		got, err := ParseLessonJSON(text)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if got.Kind != Many || len(got.Lessons) != 2 {
			t.Fatalf("%s: got kind=%v n=%d, want many/2", name, got.Kind, len(got.Lessons))
		}
		if got.Lessons[0].Subject != "Computing" || got.Lessons[1].Subject != "Science" {
			t.Errorf("%s: subjects = %q, %q", name, got.Lessons[0].Subject, got.Lessons[1].Subject)
		}
	}
}

func TestStripCodeFence_HalfFence(t *testing.T) {
	if got := stripCodeFence("{\"a\": 1}\n```"); got != `{"a": 1}` {
		t.Errorf("closing only = %q", got)
	}
	if got := stripCodeFence("```json\n{\"a\": 1}"); got != `{"a": 1}` {
		t.Errorf("opening only = %q", got)
	}
}

func TestParseLessonJSON_SegmentsSkipBroken(t *testing.T) {
	text := lessonA + "\n---\n{\"subject\": broken\n---\n" + lessonB
	got, err := ParseLessonJSON(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != Many || len(got.Lessons) != 2 {
		t.Errorf("got kind=%v n=%d, want many/2", got.Kind, len(got.Lessons))
	}
}

// ========== stage: whole ==========

func TestParseWhole_Object(t *testing.T) {
	lessons, err := parseWhole([]byte(lessonB))
	if err != nil || len(lessons) != 1 || lessons[0].Strand != "Matter" {
		t.Errorf("parseWhole = %+v, %v", lessons, err)
	}
}

func TestParseWhole_ScalarRejected(t *testing.T) {
	for _, in := range []string{`"text"`, `42`, `null`, ``} {
		if _, err := parseWhole([]byte(in)); err == nil {
			t.Errorf("parseWhole(%q) should fail", in)
		}
	}
}

// ========== stage: recovery ==========

func TestParseLessonJSON_ProseAroundFence(t *testing.T) {
	text := "Here is your lesson:\n```json\n" + lessonA + "\n```\nEnjoy!"
	got, err := ParseLessonJSON(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != Single || got.Lessons[0].Subject != "Computing" {
		t.Errorf("got %+v", got)
	}
	if got.Lessons[0].Phases.Starter.LearnerActivities != "Sing" {
		t.Errorf("starter = %+v", got.Lessons[0].Phases.Starter)
	}
}

func TestRecoverSpan_TruncatedArray(t *testing.T) {
	text := "[" + lessonA + ", " + lessonB + `, {"subject": "Maths", "phases": {"starter": {"duration": "5"}`
	lessons, err := recoverSpan(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lessons) != 2 || lessons[0].Subject != "Computing" || lessons[1].Subject != "Science" {
		t.Errorf("lessons = %+v", lessons)
	}
}

func TestParseLessonJSON_TruncatedArray(t *testing.T) {
	text := "[" + lessonA + ", " + lessonB + `, {"subject": "Ma`
	got, err := ParseLessonJSON(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Kind != Many || len(got.Lessons) != 2 {
		t.Errorf("got kind=%v n=%d, want many/2", got.Kind, len(got.Lessons))
	}
}

func TestParseLessonJSON_Malformed(t *testing.T) {
	for _, in := range []string{"", "no json here", `{"subject": `, "[1, 2, 3]", `"just a string"`} {
		_, err := ParseLessonJSON(in)
		if !errors.Is(err, ErrMalformedOutput) {
			t.Errorf("ParseLessonJSON(%q) err = %v, want ErrMalformedOutput", in, err)
		}
	}
}

// ========== errors ==========

func TestGenerationError_Is(t *testing.T) {
	err := error(&GenerationError{Kind: KindInsufficientBalance, Err: errors.New("402")})
	if !errors.Is(err, ErrInsufficientBalance) || !IsTerminal(err) {
		t.Error("expected insufficient balance to be terminal")
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("did not expect timeout")
	}
}

func TestClassify_StatusErrors(t *testing.T) {
	ctx := context.Background()
	if err := classify(ctx, "x", &statusError{Status: 402}); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("402 = %v", err)
	}
	if err := classify(ctx, "x", &statusError{Status: 400, Body: `{"error":"Insufficient credit balance"}`}); !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("credit body = %v", err)
	}
	if err := classify(ctx, "x", &statusError{Status: 500}); IsTerminal(err) {
		t.Errorf("500 should not be terminal: %v", err)
	}
	if err := classify(ctx, "x", context.DeadlineExceeded); !errors.Is(err, ErrTimeout) {
		t.Errorf("deadline = %v", err)
	}
}

// ========== generators ==========

func TestNewGenerator_Unknown(t *testing.T) {
	if _, err := NewGenerator(Options{Provider: "bogus"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestOpenAIGenerator_ReturnsContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"{\"subject\":\"Computing\"}"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	g, err := NewGenerator(Options{APIKey: "test", BaseURL: srv.URL + "/v1"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := g.Generate(t.Context(), LessonRequest{Record: curriculum.CurriculumRecord{Subject: "Computing"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"subject":"Computing"}` {
		t.Errorf("content = %q", got)
	}
}

func TestOpenAIGenerator_InsufficientQuota(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`))
	}))
	defer srv.Close()

	g, _ := NewGenerator(Options{APIKey: "test", BaseURL: srv.URL + "/v1"})
	_, err := g.Generate(t.Context(), LessonRequest{})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestAnthropicGenerator_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	g, _ := NewGenerator(Options{Provider: "anthropic", APIKey: "k", BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	_, err := g.Generate(t.Context(), LessonRequest{})
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}

func TestAnthropicGenerator_JoinsTextBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "k" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"content":[{"type":"text","text":"[{\"subject\":"},{"type":"text","text":"\"Maths\"}]"}]}`))
	}))
	defer srv.Close()

	g, _ := NewGenerator(Options{Provider: "anthropic", APIKey: "k", BaseURL: srv.URL})
	got, err := g.Generate(t.Context(), LessonRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `[{"subject":"Maths"}]` {
		t.Errorf("content = %q", got)
	}
}

// ========== BuildPrompt ==========

func TestBuildPrompt_IncludesRecord(t *testing.T) {
	rec := curriculum.CurriculumRecord{
		GradeLevel:                 "Basic 4",
		Subject:                    "Computing",
		ContentStandardCode:        "B4.1.1.1",
		ContentStandardDescription: "Parts of a computer",
		LearningIndicators:         []string{"Identify parts"},
	}
	got := BuildPrompt(LessonRequest{Record: rec, Week: "Week 2", Lessons: 3})
	for _, want := range []string{"Class: Basic 4", "B4.1.1.1: Parts of a computer", "- Identify parts", "Week: Week 2", "Write 3 lessons"} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q:\n%s", want, got)
		}
	}
}
