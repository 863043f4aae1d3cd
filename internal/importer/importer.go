// Package importer turns uploaded curriculum and scheme files into merged
// canonical records and hands them to the store.
package importer

import (
	"context"
	"errors"
	"fmt"

	"lessonnotes/internal/batch"
	"lessonnotes/internal/curriculum"
	"lessonnotes/internal/delimited"
	"lessonnotes/internal/extractor"
	"lessonnotes/internal/mapper"
	"lessonnotes/internal/platform/logger"
	"lessonnotes/internal/store"
)

// User-facing messages for structural parse failures.
const (
	msgTooFewLines = "The file needs a header row and at least one data row."
	msgNoRows      = "No valid rows were found. Check that the file has class, strand and content standard columns."
)

// ParseError is a structural failure for one file. Message is safe to show
// to the user.
type ParseError struct {
	File    string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.File == "" {
		return e.Message
	}
	return e.File + ": " + e.Message
}

func (e *ParseError) Unwrap() error { return e.Err }

// File is one uploaded input.
type File struct {
	Name string
	Data []byte
}

// Report counts what an import did.
type Report struct {
	File      string   `json:"file,omitempty"`
	Created   int      `json:"created"`
	Merged    int      `json:"merged"`
	Unchanged int      `json:"unchanged"`
	Message   string   `json:"message,omitempty"`
	Failed    []string `json:"failed,omitempty"`
}

func (r *Report) count(o curriculum.Outcome) {
	switch o {
	case curriculum.Created:
		r.Created++
	case curriculum.Merged:
		r.Merged++
	default:
		r.Unchanged++
	}
}

func (r *Report) add(o *Report) {
	r.Created += o.Created
	r.Merged += o.Merged
	r.Unchanged += o.Unchanged
}

// Summary builds the closing user message.
func (r *Report) Summary() string {
	msg := fmt.Sprintf("%d created, %d merged, %d unchanged", r.Created, r.Merged, r.Unchanged)
	if len(r.Failed) > 0 {
		msg += fmt.Sprintf(", %d file(s) failed", len(r.Failed))
	}
	return msg
}

// Importer wires the parse pipeline to persistence.
type Importer struct {
	curriculum  store.CurriculumStore
	scheme      store.SchemeStore
	policy      curriculum.MergePolicy
	concurrency int
	log         *logger.Logger
}

// Config configures an Importer.
type Config struct {
	Curriculum  store.CurriculumStore
	Scheme      store.SchemeStore
	Policy      curriculum.MergePolicy
	Concurrency int
	Log         *logger.Logger
}

// New creates an Importer. A nil logger discards output.
func New(cfg Config) *Importer {
	log := cfg.Log
	if log == nil {
		log = logger.Nop()
	}
	return &Importer{
		curriculum:  cfg.Curriculum,
		scheme:      cfg.Scheme,
		policy:      cfg.Policy,
		concurrency: cfg.Concurrency,
		log:         log,
	}
}

// Policy returns the merge policy in use.
func (im *Importer) Policy() curriculum.MergePolicy { return im.policy }

// ParseCurriculum runs extraction, table parsing and column mapping for
// one file. Records are not merged.
func ParseCurriculum(f File, opts mapper.Options) ([]curriculum.CurriculumRecord, error) {
	t, err := parseTable(f)
	if err != nil {
		return nil, err
	}
	records, err := mapper.MapCurriculum(t, opts)
	if err != nil {
		return nil, structural(f.Name, err)
	}
	return records, nil
}

// ParseScheme runs extraction, table parsing and scheme mapping.
func ParseScheme(f File) ([]curriculum.SchemeItem, error) {
	t, err := parseTable(f)
	if err != nil {
		return nil, err
	}
	items, err := mapper.MapScheme(t)
	if err != nil {
		return nil, structural(f.Name, err)
	}
	return items, nil
}

func parseTable(f File) (*delimited.Table, error) {
	text, err := extractor.Extract(f.Data, f.Name)
	if err != nil {
		return nil, &ParseError{File: f.Name, Message: extractor.Placeholder(f.Name, err), Err: err}
	}
	t, err := delimited.Parse(text)
	if err != nil {
		return nil, structural(f.Name, err)
	}
	return t, nil
}

func structural(name string, err error) error {
	msg := err.Error()
	switch {
	case errors.Is(err, delimited.ErrTooFewLines):
		msg = msgTooFewLines
	case errors.Is(err, mapper.ErrNoRows):
		msg = msgNoRows
	}
	return &ParseError{File: name, Message: msg, Err: err}
}

// ImportCurriculum imports one file. A structural failure aborts this file
// and is returned as a *ParseError; nothing is written.
func (im *Importer) ImportCurriculum(ctx context.Context, f File, opts mapper.Options) (*Report, error) {
	records, err := ParseCurriculum(f, opts)
	if err != nil {
		im.log.Warn("curriculum import rejected", "file", f.Name, "error", err)
		return &Report{File: f.Name, Message: userMessage(err)}, err
	}
	rep := &Report{File: f.Name}
	if err := im.mergeCurriculum(ctx, records, rep); err != nil {
		return nil, err
	}
	rep.Message = rep.Summary()
	im.log.Info("curriculum imported", "file", f.Name, "created", rep.Created, "merged", rep.Merged, "unchanged", rep.Unchanged)
	return rep, nil
}

// ImportCurriculumFiles parses files concurrently, then merges them in
// input order and writes once. Files that fail to parse are listed in
// Report.Failed and do not stop the others.
func (im *Importer) ImportCurriculumFiles(ctx context.Context, files []File, opts mapper.Options) (*Report, []*Report, error) {
	tasks := make([]batch.Task[[]curriculum.CurriculumRecord], len(files))
	for i, f := range files {
		tasks[i] = batch.Task[[]curriculum.CurriculumRecord]{
			ID: f.Name,
			Run: func(context.Context) ([]curriculum.CurriculumRecord, error) {
				return ParseCurriculum(f, opts)
			},
		}
	}
	sum := batch.Run(ctx, tasks, batch.Options{Concurrency: im.concurrency})

	total := &Report{}
	perFile := make([]*Report, 0, len(files))
	merger, err := im.seededMerger(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, res := range sum.Results {
		rep := &Report{File: res.ID}
		if res.Status != batch.StatusSucceeded {
			rep.Message = userMessage(res.Err)
			total.Failed = append(total.Failed, res.ID)
			im.log.Warn("curriculum file skipped", "file", res.ID, "error", res.Err)
			perFile = append(perFile, rep)
			continue
		}
		for _, r := range res.Value {
			rep.count(merger.Add(r))
		}
		rep.Message = rep.Summary()
		total.add(rep)
		perFile = append(perFile, rep)
	}
	if err := im.curriculum.UpsertCurriculum(ctx, im.policy, merger.Changed()); err != nil {
		return nil, nil, fmt.Errorf("store curriculum: %w", err)
	}
	total.Message = total.Summary()
	im.log.Info("curriculum batch imported", "files", len(files), "failed", len(total.Failed),
		"created", total.Created, "merged", total.Merged, "unchanged", total.Unchanged)
	return total, perFile, nil
}

func (im *Importer) seededMerger(ctx context.Context) (*curriculum.Merger, error) {
	existing, err := im.curriculum.ListCurriculum(ctx, store.Filter{})
	if err != nil {
		return nil, fmt.Errorf("load existing curriculum: %w", err)
	}
	m := curriculum.NewMerger(im.policy)
	m.Seed(existing...)
	return m, nil
}

func (im *Importer) mergeCurriculum(ctx context.Context, records []curriculum.CurriculumRecord, rep *Report) error {
	m, err := im.seededMerger(ctx)
	if err != nil {
		return err
	}
	for _, r := range records {
		rep.count(m.Add(r))
	}
	if err := im.curriculum.UpsertCurriculum(ctx, im.policy, m.Changed()); err != nil {
		return fmt.Errorf("store curriculum: %w", err)
	}
	return nil
}

// ImportScheme imports one scheme-of-learning file.
func (im *Importer) ImportScheme(ctx context.Context, f File) (*Report, error) {
	items, err := ParseScheme(f)
	if err != nil {
		im.log.Warn("scheme import rejected", "file", f.Name, "error", err)
		return &Report{File: f.Name, Message: userMessage(err)}, err
	}
	existing, err := im.scheme.ListScheme(ctx)
	if err != nil {
		return nil, fmt.Errorf("load existing scheme: %w", err)
	}
	m := curriculum.NewSchemeMerger()
	m.Seed(existing...)

	rep := &Report{File: f.Name}
	for _, it := range items {
		rep.count(m.Add(it))
	}
	if err := im.scheme.UpsertScheme(ctx, m.Changed()); err != nil {
		return nil, fmt.Errorf("store scheme: %w", err)
	}
	rep.Message = rep.Summary()
	im.log.Info("scheme imported", "file", f.Name, "created", rep.Created, "merged", rep.Merged, "unchanged", rep.Unchanged)
	return rep, nil
}

func userMessage(err error) string {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
