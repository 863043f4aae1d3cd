// Package notes generates a week of lesson notes: one generation call per
// curriculum record, each parsed and rendered independently, with the
// successes bundled into one archive.
package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"lessonnotes/internal/archive"
	"lessonnotes/internal/batch"
	"lessonnotes/internal/curriculum"
	"lessonnotes/internal/llm"
	"lessonnotes/internal/platform/logger"
	"lessonnotes/internal/render"
)

// ErrNoRecords is returned when a week request names no records.
var ErrNoRecords = errors.New("no curriculum records selected")

// WeekRequest is the shared context for every lesson in a week.
type WeekRequest struct {
	Records    []curriculum.CurriculumRecord `json:"records"`
	Term       string                        `json:"term"`
	Week       string                        `json:"week"`
	WeekEnding string                        `json:"week_ending"`
	Day        string                        `json:"day"`
	Duration   string                        `json:"duration"`
	ClassSize  string                        `json:"class_size"`
	// LessonsPerRecord asks for several lessons per record when > 1.
	LessonsPerRecord int `json:"lessons_per_record"`
}

// Progress is a batch progress event tagged with its batch.
type Progress struct {
	BatchID string `json:"batch_id"`
	Item    string `json:"item"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Done    int    `json:"done"`
	Total   int    `json:"total"`
}

// Failure describes one record that produced no document.
type Failure struct {
	Item  string `json:"item"`
	Error string `json:"error"`
}

// WeekResult reports a finished batch. Archive is nil when nothing
// succeeded.
type WeekResult struct {
	BatchID   string          `json:"batch_id"`
	Archive   *archive.Result `json:"-"`
	Files     []string        `json:"files"`
	Succeeded int             `json:"succeeded"`
	Failed    int             `json:"failed"`
	Skipped   int             `json:"skipped"`
	Cancelled int             `json:"cancelled"`
	Failures  []Failure       `json:"failures,omitempty"`
	// HaltReason is set when a terminal error stopped the batch early.
	HaltReason string `json:"halt_reason,omitempty"`
}

// Service runs lesson generation.
type Service struct {
	gen         llm.Generator
	renderer    *render.Renderer
	policy      curriculum.MergePolicy
	concurrency int
	log         *logger.Logger
	now         func() time.Time
}

// Config configures a Service.
type Config struct {
	Generator   llm.Generator
	Renderer    *render.Renderer
	// Policy decides which records in one week count as duplicates.
	Policy      curriculum.MergePolicy
	Concurrency int
	Log         *logger.Logger
}

// New creates a Service.
func New(cfg Config) *Service {
	r := cfg.Renderer
	if r == nil {
		r = render.New(nil)
	}
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		gen:         cfg.Generator,
		renderer:    r,
		policy:      cfg.Policy,
		concurrency: cfg.Concurrency,
		log:         log,
		now:         time.Now,
	}
}

// GenerateLessons runs one generation call and parses the response.
func (s *Service) GenerateLessons(ctx context.Context, req llm.LessonRequest) ([]curriculum.LessonDocument, error) {
	if s.gen == nil {
		return nil, fmt.Errorf("lesson generation is not configured")
	}
	text, err := s.gen.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	parsed, err := llm.ParseLessonJSON(text)
	if err != nil {
		return nil, err
	}
	lessons := make([]curriculum.LessonDocument, len(parsed.Lessons))
	for i, l := range parsed.Lessons {
		lessons[i] = fillFromRequest(l, req)
	}
	return lessons, nil
}

// fillFromRequest copies request context into fields the model left empty.
func fillFromRequest(l curriculum.LessonDocument, req llm.LessonRequest) curriculum.LessonDocument {
	r := req.Record
	set := func(dst *string, v string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = v
		}
	}
	set(&l.Term, req.Term)
	set(&l.WeekNumber, req.Week)
	set(&l.WeekEnding, req.WeekEnding)
	set(&l.Day, req.Day)
	set(&l.Duration, req.Duration)
	set(&l.ClassSize, req.ClassSize)
	set(&l.Subject, r.Subject)
	set(&l.Class, r.GradeLevel)
	set(&l.Strand, r.Strand)
	set(&l.SubStrand, r.SubStrand)
	set(&l.ContentStandard, r.ContentStandard())
	set(&l.Indicator, strings.Join(r.LearningIndicators, "\n"))
	return l
}

func itemName(r curriculum.CurriculumRecord) string {
	parts := []string{r.GradeLevel, r.Subject}
	if r.ContentStandardCode != "" && r.ContentStandardCode != curriculum.PlaceholderCode {
		parts = append(parts, r.ContentStandardCode)
	}
	return strings.Join(parts, " ")
}

// GenerateWeek generates, parses and renders one document per record on
// the bounded pool, then archives the successes. Records repeated in the
// request are skipped. Cancelling ctx stops records that have not started.
func (s *Service) GenerateWeek(ctx context.Context, req WeekRequest, onProgress func(Progress)) (*WeekResult, error) {
	if len(req.Records) == 0 {
		return nil, ErrNoRecords
	}
	batchID := uuid.NewString()
	log := s.log.With("batch_id", batchID)

	seen := make(map[string]bool, len(req.Records))
	tasks := make([]batch.Task[archive.Document], len(req.Records))
	for i, rec := range req.Records {
		key := curriculum.MergeKey(rec, s.policy)
		dup := seen[key]
		seen[key] = true

		lr := llm.LessonRequest{
			Record:     rec,
			Term:       req.Term,
			Week:       req.Week,
			WeekEnding: req.WeekEnding,
			Day:        req.Day,
			Duration:   req.Duration,
			ClassSize:  req.ClassSize,
			Lessons:    req.LessonsPerRecord,
		}
		tasks[i] = batch.Task[archive.Document]{
			ID: itemName(rec),
			Run: func(ctx context.Context) (archive.Document, error) {
				if dup {
					return archive.Document{}, batch.ErrSkipped
				}
				return s.document(ctx, lr)
			},
		}
	}

	opts := batch.Options{
		Concurrency: s.concurrency,
		IsTerminal:  llm.IsTerminal,
		OnProgress: func(p batch.Progress) {
			if p.Err != nil && p.Status == batch.StatusFailed {
				log.Warn("lesson failed", "item", p.ID, "error", p.Err)
			}
			if onProgress == nil {
				return
			}
			ev := Progress{BatchID: batchID, Item: p.ID, Status: string(p.Status), Done: p.Done, Total: p.Total}
			if p.Err != nil && p.Status == batch.StatusFailed {
				ev.Error = p.Err.Error()
			}
			onProgress(ev)
		},
	}
	log.Info("week generation started", "records", len(tasks), "week", req.Week)
	sum := batch.Run(ctx, tasks, opts)

	res := &WeekResult{
		BatchID:   batchID,
		Succeeded: sum.Succeeded,
		Failed:    sum.Failed,
		Skipped:   sum.Skipped,
		Cancelled: sum.Cancelled,
	}
	for _, r := range sum.Results {
		if r.Status == batch.StatusFailed {
			res.Failures = append(res.Failures, Failure{Item: r.ID, Error: r.Err.Error()})
		}
	}
	if sum.Halted() {
		res.HaltReason = sum.HaltErr.Error()
		log.Warn("week generation halted", "reason", res.HaltReason)
	}

	if docs := sum.Values(); len(docs) > 0 {
		ar, err := archive.Build(docs, s.now())
		if err != nil {
			return nil, fmt.Errorf("archive week: %w", err)
		}
		res.Archive = ar
		res.Files = ar.Files
	}
	log.Info("week generation finished",
		"succeeded", res.Succeeded, "failed", res.Failed, "skipped", res.Skipped, "cancelled", res.Cancelled)
	return res, nil
}

func (s *Service) document(ctx context.Context, req llm.LessonRequest) (archive.Document, error) {
	lessons, err := s.GenerateLessons(ctx, req)
	if err != nil {
		return archive.Document{}, err
	}
	art, err := s.renderer.Render(lessons)
	if err != nil {
		return archive.Document{}, err
	}
	first := lessons[0]
	return archive.Document{
		Name:     art.Name,
		Data:     art.Data,
		LessonID: req.Record.ContentStandardCode,
		Class:    first.Class,
		Week:     first.WeekNumber,
	}, nil
}
