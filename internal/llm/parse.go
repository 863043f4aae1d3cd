package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"lessonnotes/internal/curriculum"
)

// ParsedKind tells whether the model returned one lesson or several.
type ParsedKind int

const (
	Single ParsedKind = iota
	Many
)

func (k ParsedKind) String() string {
	if k == Many {
		return "many"
	}
	return "single"
}

// ParsedLesson is the result of ParseLessonJSON. Single always holds
// exactly one lesson.
type ParsedLesson struct {
	Kind    ParsedKind
	Lessons []curriculum.LessonDocument
}

func parsed(lessons []curriculum.LessonDocument) ParsedLesson {
	if len(lessons) == 1 {
		return ParsedLesson{Kind: Single, Lessons: lessons}
	}
	return ParsedLesson{Kind: Many, Lessons: lessons}
}

var (
	errNoLessons = errors.New("no lesson objects")
	errScalar    = errors.New("not an object or array")

	segmentSepRe = regexp.MustCompile(`(?m)^[ \t]*-{3,}[ \t]*$`)
)

// ParseLessonJSON recovers lesson objects from model output. It tries, in
// order: a JSON array of lessons, objects separated by "---" lines, the
// whole text as JSON, and finally the span between the first opening and
// last closing bracket of the raw text. A truncated array yields its
// complete leading elements.
func ParseLessonJSON(text string) (ParsedLesson, error) {
	cleaned := stripCodeFence(text)

	if strings.HasPrefix(cleaned, "[") && strings.Contains(cleaned, "{") {
		if lessons, err := parseArray([]byte(cleaned)); err == nil {
			return parsed(lessons), nil
		}
	}
	if segmentSepRe.MatchString(cleaned) {
		if lessons, err := parseSegments(cleaned); err == nil {
			return parsed(lessons), nil
		}
	}
	if lessons, err := parseWhole([]byte(cleaned)); err == nil {
		return parsed(lessons), nil
	}
	if lessons, err := recoverSpan(text); err == nil {
		return parsed(lessons), nil
	}
	return ParsedLesson{}, ErrMalformedOutput
}

// stripCodeFence removes one ```json ... ``` or ``` ... ``` wrapper. The
// opening and closing fences are trimmed independently, so a segment cut
// out of a larger fenced response loses whichever half it carries.
func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSpace(s)
	}
	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// parseArray decodes a JSON array and keeps the lesson-shaped elements.
func parseArray(data []byte) ([]curriculum.LessonDocument, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, err
	}
	return filterLessons(raws)
}

func filterLessons(raws []json.RawMessage) ([]curriculum.LessonDocument, error) {
	var lessons []curriculum.LessonDocument
	for _, raw := range raws {
		if !looksLikeLesson(raw) {
			continue
		}
		var doc curriculum.LessonDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		lessons = append(lessons, doc)
	}
	if len(lessons) == 0 {
		return nil, errNoLessons
	}
	return lessons, nil
}

// parseSegments parses each "---"-separated segment on its own.
func parseSegments(text string) ([]curriculum.LessonDocument, error) {
	var lessons []curriculum.LessonDocument
	for _, seg := range segmentSepRe.Split(text, -1) {
		seg = stripCodeFence(seg)
		if len(seg) < 2 || !strings.ContainsAny(seg, "{[") {
			continue
		}
		got, err := parseWhole([]byte(seg))
		if err != nil {
			continue
		}
		lessons = append(lessons, got...)
	}
	if len(lessons) == 0 {
		return nil, errNoLessons
	}
	return lessons, nil
}

// parseWhole parses data as one JSON value: an object is returned as is,
// an array goes through the lesson filter.
func parseWhole(data []byte) ([]curriculum.LessonDocument, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errScalar
	}
	switch data[0] {
	case '[':
		return parseArray(data)
	case '{':
		var doc curriculum.LessonDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
		return []curriculum.LessonDocument{doc}, nil
	default:
		// Scalars are valid JSON but never a lesson.
		return nil, errScalar
	}
}

// recoverSpan slices the raw text from the first '{' or '[' to the last
// '}' or ']' and parses that. When the span opens an array that does not
// parse, the complete leading elements are kept.
func recoverSpan(text string) ([]curriculum.LessonDocument, error) {
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "}]")
	if start < 0 || end <= start {
		return nil, errNoLessons
	}
	if lessons, err := parseWhole([]byte(text[start : end+1])); err == nil {
		return lessons, nil
	}
	if text[start] == '[' {
		return leadingElements(text[start:])
	}
	return nil, errNoLessons
}

// leadingElements decodes array elements one at a time and stops at the
// first one that is incomplete.
func leadingElements(text string) ([]curriculum.LessonDocument, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('[') {
		return nil, errNoLessons
	}
	var raws []json.RawMessage
	for dec.More() {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			break
		}
		raws = append(raws, raw)
	}
	return filterLessons(raws)
}
