// Package store holds the persistence collaborators: curriculum and scheme
// records keyed by their merge keys, and lesson drafts.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"lessonnotes/internal/curriculum"
)

// ErrNotFound is returned when a draft does not exist.
var ErrNotFound = errors.New("not found")

// Filter narrows a curriculum listing. Empty fields match everything.
type Filter struct {
	GradeLevel string
	Subject    string
}

// Match reports whether r passes the filter. Comparison ignores case.
func (f Filter) Match(r curriculum.CurriculumRecord) bool {
	if f.GradeLevel != "" && !strings.EqualFold(strings.TrimSpace(f.GradeLevel), r.GradeLevel) {
		return false
	}
	if f.Subject != "" && !strings.EqualFold(strings.TrimSpace(f.Subject), r.Subject) {
		return false
	}
	return true
}

// CurriculumStore persists curriculum records. Upsert replaces any stored
// record with the same merge key under the given policy.
type CurriculumStore interface {
	ListCurriculum(ctx context.Context, f Filter) ([]curriculum.CurriculumRecord, error)
	UpsertCurriculum(ctx context.Context, p curriculum.MergePolicy, records []curriculum.CurriculumRecord) error
}

// SchemeStore persists scheme-of-learning items keyed by curriculum.SchemeKey.
type SchemeStore interface {
	ListScheme(ctx context.Context) ([]curriculum.SchemeItem, error)
	UpsertScheme(ctx context.Context, items []curriculum.SchemeItem) error
}

// Draft is a teacher's unsaved work: generated lessons awaiting review and
// scheme rows being edited.
type Draft struct {
	ID        string                      `json:"id"`
	Lessons   []curriculum.LessonDocument `json:"lessons,omitempty"`
	Scheme    []curriculum.SchemeItem     `json:"scheme,omitempty"`
	UpdatedAt time.Time                   `json:"updated_at"`
}

// DraftStore loads and saves drafts by ID.
type DraftStore interface {
	Load(ctx context.Context, id string) (*Draft, error)
	Save(ctx context.Context, d *Draft) error
	Delete(ctx context.Context, id string) error
}

func validDraftID(id string) bool {
	if id == "" || len(id) > 128 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
