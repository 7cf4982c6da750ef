package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/deckgen/internal/core/domain"
)

type DeckJobRepository struct {
	db *sql.DB
}

func NewDeckJobRepository(db *sql.DB) *DeckJobRepository {
	return &DeckJobRepository{db: db}
}

func (r *DeckJobRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across worker and CLI startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026101401)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS deck_jobs (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	topic TEXT NOT NULL,
	presenter TEXT NOT NULL,
	instructions TEXT NOT NULL DEFAULT '',
	style TEXT NOT NULL DEFAULT '',
	audience TEXT NOT NULL DEFAULT '',
	num_slides INTEGER NOT NULL,
	include_summary BOOLEAN NOT NULL DEFAULT FALSE,
	status TEXT NOT NULL,
	error_message TEXT,
	deck JSONB,
	analysis JSONB,
	source_chunks INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

ALTER TABLE deck_jobs ADD COLUMN IF NOT EXISTS analysis JSONB;

CREATE INDEX IF NOT EXISTS idx_deck_jobs_status ON deck_jobs(status);
CREATE INDEX IF NOT EXISTS idx_deck_jobs_created_at ON deck_jobs(created_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DeckJobRepository) Create(ctx context.Context, job *domain.DeckJob) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO deck_jobs (
	id, filename, mime_type, storage_path, topic, presenter, instructions, style, audience,
	num_slides, include_summary, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
`,
		job.ID, job.Filename, job.MimeType, job.StoragePath, job.Topic, job.Presenter, job.Instructions,
		job.Style, job.Audience, job.NumSlides, job.IncludeExecutiveSummary, string(job.Status), job.Error,
		job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert deck job: %w", err)
	}
	return nil
}

func (r *DeckJobRepository) GetByID(ctx context.Context, id string) (*domain.DeckJob, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, filename, mime_type, storage_path, topic, presenter, instructions, style, audience,
	num_slides, include_summary, status, error_message, deck, analysis, source_chunks, created_at, updated_at
FROM deck_jobs
WHERE id = $1
`, id)

	var (
		job          domain.DeckJob
		status       string
		errMsg       sql.NullString
		deckJSON     []byte
		analysisJSON []byte
	)
	err := row.Scan(
		&job.ID, &job.Filename, &job.MimeType, &job.StoragePath, &job.Topic, &job.Presenter, &job.Instructions,
		&job.Style, &job.Audience, &job.NumSlides, &job.IncludeExecutiveSummary, &status, &errMsg, &deckJSON,
		&analysisJSON, &job.SourceChunks, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrJobNotFound, "get deck job", fmt.Errorf("id=%s", id))
		}
		return nil, fmt.Errorf("scan deck job: %w", err)
	}

	if len(deckJSON) > 0 {
		var deck domain.Deck
		if err := json.Unmarshal(deckJSON, &deck); err != nil {
			return nil, fmt.Errorf("unmarshal deck: %w", err)
		}
		job.Deck = &deck
	}
	if len(analysisJSON) > 0 {
		if err := json.Unmarshal(analysisJSON, &job.Analysis); err != nil {
			return nil, fmt.Errorf("unmarshal analysis: %w", err)
		}
	}
	job.Status = domain.JobStatus(status)
	job.Error = errMsg.String
	return &job, nil
}

func (r *DeckJobRepository) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMessage string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE deck_jobs
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update deck job status: %w", err)
	}
	return requireAffected(result, "update deck job status", id)
}

// SaveDeck stores the generated deck and marks the job ready.
func (r *DeckJobRepository) SaveDeck(ctx context.Context, id string, deck *domain.Deck, sourceChunks int) error {
	deckJSON, err := json.Marshal(deck)
	if err != nil {
		return fmt.Errorf("marshal deck: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE deck_jobs
SET deck = $2, source_chunks = $3, status = $4, error_message = '', updated_at = $5
WHERE id = $1
`, id, deckJSON, sourceChunks, string(domain.JobStatusReady), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save deck: %w", err)
	}
	return requireAffected(result, "save deck", id)
}

func (r *DeckJobRepository) SaveAnalysis(ctx context.Context, id string, analysis domain.DocumentAnalysis) error {
	analysisJSON, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE deck_jobs
SET analysis = $2, updated_at = $3
WHERE id = $1
`, id, analysisJSON, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return requireAffected(result, "save analysis", id)
}

func requireAffected(result sql.Result, op, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrJobNotFound, op, fmt.Errorf("id=%s", id))
	}
	return nil
}
