package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"lessonnotes/internal/curriculum"
)

const dbTimeout = 10 * time.Second

const schema = `
CREATE TABLE IF NOT EXISTS curriculum (
	merge_key           TEXT PRIMARY KEY,
	grade_level         TEXT NOT NULL,
	subject             TEXT NOT NULL DEFAULT '',
	strand              TEXT NOT NULL DEFAULT '',
	sub_strand          TEXT NOT NULL DEFAULT '',
	content_standards   TEXT[] NOT NULL DEFAULT '{}',
	learning_indicators TEXT[] NOT NULL DEFAULT '{}',
	exemplars           TEXT NOT NULL DEFAULT '',
	is_public           BOOLEAN NOT NULL DEFAULT FALSE,
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS curriculum_grade_subject_idx ON curriculum (lower(grade_level), lower(subject));

CREATE TABLE IF NOT EXISTS scheme_items (
	scheme_key       TEXT PRIMARY KEY,
	week             TEXT NOT NULL,
	week_ending      TEXT NOT NULL DEFAULT '',
	term             TEXT NOT NULL DEFAULT '',
	subject          TEXT NOT NULL DEFAULT '',
	class_level      TEXT NOT NULL DEFAULT '',
	strand           TEXT NOT NULL DEFAULT '',
	sub_strand       TEXT NOT NULL DEFAULT '',
	content_standard TEXT NOT NULL DEFAULT '',
	indicators       TEXT NOT NULL DEFAULT '',
	exemplars        TEXT NOT NULL DEFAULT '',
	resources        TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const upsertCurriculumSQL = `
INSERT INTO curriculum (merge_key, grade_level, subject, strand, sub_strand,
	content_standards, learning_indicators, exemplars, is_public)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (merge_key) DO UPDATE SET
	grade_level = EXCLUDED.grade_level,
	subject = EXCLUDED.subject,
	strand = EXCLUDED.strand,
	sub_strand = EXCLUDED.sub_strand,
	content_standards = EXCLUDED.content_standards,
	learning_indicators = EXCLUDED.learning_indicators,
	exemplars = EXCLUDED.exemplars,
	is_public = EXCLUDED.is_public,
	updated_at = now()`

const upsertSchemeSQL = `
INSERT INTO scheme_items (scheme_key, week, week_ending, term, subject, class_level,
	strand, sub_strand, content_standard, indicators, exemplars, resources)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (scheme_key) DO UPDATE SET
	week_ending = EXCLUDED.week_ending,
	term = EXCLUDED.term,
	strand = EXCLUDED.strand,
	sub_strand = EXCLUDED.sub_strand,
	content_standard = EXCLUDED.content_standard,
	indicators = EXCLUDED.indicators,
	exemplars = EXCLUDED.exemplars,
	resources = EXCLUDED.resources`

// PostgresStore is a PostgreSQL-backed CurriculumStore and SchemeStore.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool. Call Migrate before first use on a
// fresh database.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListCurriculum(ctx context.Context, f Filter) ([]curriculum.CurriculumRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT grade_level, subject, strand, sub_strand, content_standards,
		        learning_indicators, exemplars, is_public
		 FROM curriculum
		 WHERE ($1 = '' OR lower(grade_level) = lower($1))
		   AND ($2 = '' OR lower(subject) = lower($2))
		 ORDER BY created_at, merge_key`,
		f.GradeLevel, f.Subject,
	)
	if err != nil {
		return nil, fmt.Errorf("list curriculum: %w", err)
	}
	defer rows.Close()

	var out []curriculum.CurriculumRecord
	for rows.Next() {
		var row curriculum.StoredRecord
		if err := rows.Scan(
			&row.GradeLevel, &row.Subject, &row.Strand, &row.SubStrand,
			&row.ContentStandards, &row.LearningIndicators, &row.Exemplars, &row.IsPublic,
		); err != nil {
			return nil, fmt.Errorf("scan curriculum: %w", err)
		}
		out = append(out, curriculum.FromRow(row))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate curriculum: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpsertCurriculum(ctx context.Context, p curriculum.MergePolicy, records []curriculum.CurriculumRecord) error {
	if len(records) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	batch := &pgx.Batch{}
	for _, r := range records {
		row := r.Row()
		batch.Queue(upsertCurriculumSQL,
			curriculum.MergeKey(r, p),
			row.GradeLevel, row.Subject, row.Strand, row.SubStrand,
			row.ContentStandards, row.LearningIndicators, row.Exemplars, row.IsPublic,
		)
	}
	return s.sendBatch(ctx, batch, "upsert curriculum")
}

func (s *PostgresStore) ListScheme(ctx context.Context) ([]curriculum.SchemeItem, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT week, week_ending, term, subject, class_level, strand, sub_strand,
		        content_standard, indicators, exemplars, resources
		 FROM scheme_items
		 ORDER BY created_at, scheme_key`,
	)
	if err != nil {
		return nil, fmt.Errorf("list scheme: %w", err)
	}
	defer rows.Close()

	var out []curriculum.SchemeItem
	for rows.Next() {
		var it curriculum.SchemeItem
		if err := rows.Scan(
			&it.Week, &it.WeekEnding, &it.Term, &it.Subject, &it.ClassLevel, &it.Strand,
			&it.SubStrand, &it.ContentStandard, &it.Indicators, &it.Exemplars, &it.Resources,
		); err != nil {
			return nil, fmt.Errorf("scan scheme: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scheme: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) UpsertScheme(ctx context.Context, items []curriculum.SchemeItem) error {
	if len(items) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	batch := &pgx.Batch{}
	for _, it := range items {
		batch.Queue(upsertSchemeSQL,
			curriculum.SchemeKey(it),
			it.Week, it.WeekEnding, it.Term, it.Subject, it.ClassLevel, it.Strand,
			it.SubStrand, it.ContentStandard, it.Indicators, it.Exemplars, it.Resources,
		)
	}
	return s.sendBatch(ctx, batch, "upsert scheme")
}

func (s *PostgresStore) sendBatch(ctx context.Context, batch *pgx.Batch, op string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%s: begin: %w", op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("%s: row %d: %w", op, i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}
