// Package storage persists curation runs and review feedback in Postgres.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"NewsletterCurator/internal/domain"
	"NewsletterCurator/internal/ports"
)

// psql builds queries with Postgres placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const schema = `
CREATE TABLE IF NOT EXISTS curation_runs (
    id              UUID PRIMARY KEY,
    status          TEXT NOT NULL DEFAULT 'running',
    started_at      TIMESTAMPTZ NOT NULL,
    finished_at     TIMESTAMPTZ,
    items_extracted INT NOT NULL DEFAULT 0,
    items_invalid   INT NOT NULL DEFAULT 0,
    items_scored    INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS digest_items (
    id                 BIGSERIAL PRIMARY KEY,
    run_id             UUID NOT NULL REFERENCES curation_runs (id),
    candidate_id       TEXT NOT NULL,
    title              TEXT NOT NULL,
    url                TEXT,
    canonical_url      TEXT,
    source             TEXT,
    item_type          TEXT,
    score              INT NOT NULL,
    verdict            TEXT NOT NULL,
    destination        TEXT,
    duplicate_verdict  TEXT,
    matched_vault_id   TEXT,
    update_of          TEXT,
    reason             TEXT,
    manual_review      BOOLEAN NOT NULL DEFAULT FALSE,
    llm_parse_failed   BOOLEAN NOT NULL DEFAULT FALSE,
    signals            JSONB,
    field_values       JSONB,
    proposed_relations JSONB,
    tags               TEXT[],
    created_at         TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS review_feedback (
    id             BIGSERIAL PRIMARY KEY,
    item_name      TEXT NOT NULL,
    item_type      TEXT,
    url            TEXT,
    score          INT NOT NULL,
    system_verdict TEXT NOT NULL,
    user_decision  TEXT NOT NULL,
    decided_at     TIMESTAMPTZ NOT NULL
);`

// DigestStore persists runs, proposed items, and review feedback.
type DigestStore struct {
	db *sql.DB
}

var _ ports.DecisionStore = (*DigestStore)(nil)

// NewDigestStore wires a sql.DB implementation.
func NewDigestStore(db *sql.DB) *DigestStore {
	return &DigestStore{db: db}
}

// Migrate creates the digest tables when they do not exist yet.
func (s *DigestStore) Migrate(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply digest schema: %w", err)
	}
	return nil
}

// BeginRun opens a new run record and returns its identifier.
func (s *DigestStore) BeginRun(ctx context.Context, startedAt time.Time) (string, error) {
	runID := uuid.NewString()
	if s.db == nil {
		return runID, nil
	}

	query, args, err := psql.Insert("curation_runs").
		Columns("id", "started_at").
		Values(runID, startedAt).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("build run insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	return runID, nil
}

// SaveProposal records one routed candidate as a digest item.
func (s *DigestStore) SaveProposal(ctx context.Context, runID string, proposal domain.Proposal) error {
	if s.db == nil {
		return nil
	}

	decision := proposal.Decision

	signals, err := json.Marshal(decision.Score.Signals)
	if err != nil {
		return fmt.Errorf("marshal signals: %w", err)
	}
	fieldValues, err := json.Marshal(decision.FieldValues)
	if err != nil {
		return fmt.Errorf("marshal field values: %w", err)
	}
	relations, err := json.Marshal(decision.ProposedRelations)
	if err != nil {
		return fmt.Errorf("marshal relations: %w", err)
	}

	query, args, err := psql.Insert("digest_items").
		Columns(
			"run_id", "candidate_id", "title", "url", "canonical_url", "source",
			"item_type", "score", "verdict", "destination",
			"duplicate_verdict", "matched_vault_id", "update_of", "reason",
			"manual_review", "llm_parse_failed",
			"signals", "field_values", "proposed_relations", "tags", "created_at",
		).
		Values(
			runID,
			decision.Candidate.ID,
			decision.Candidate.Title,
			decision.Candidate.URL,
			decision.Key.CanonicalURL,
			decision.Candidate.Source,
			decision.Score.ItemType,
			decision.Score.Score,
			string(decision.Verdict),
			decision.Destination,
			string(decision.Duplicate.Verdict),
			decision.Duplicate.MatchedID,
			decision.UpdateOf,
			decision.Reason,
			decision.Score.ManualReview,
			decision.Score.LLMParseFailed,
			signals,
			fieldValues,
			relations,
			pq.StringArray(decision.Score.Tags),
			proposal.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build item insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert digest item %s: %w", decision.Candidate.Identity(), err)
	}

	return nil
}

// FinishRun closes the run record with its final counters.
func (s *DigestStore) FinishRun(ctx context.Context, stats domain.RunStats) error {
	if s.db == nil {
		return nil
	}

	status := stats.Status
	if status == "" {
		status = domain.RunCompleted
	}

	query, args, err := psql.Update("curation_runs").
		Set("status", status).
		Set("finished_at", stats.FinishedAt).
		Set("items_extracted", stats.ItemsExtracted).
		Set("items_invalid", stats.ItemsInvalid).
		Set("items_scored", stats.ItemsScored).
		Where(sq.Eq{"id": stats.RunID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build run update: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("finish run %s: %w", stats.RunID, err)
	}

	return nil
}

// RecentFeedback returns the newest reviewed digest items, newest first.
func (s *DigestStore) RecentFeedback(ctx context.Context, limit int) ([]domain.FeedbackRecord, error) {
	if s.db == nil || limit <= 0 {
		return nil, nil
	}

	query, args, err := psql.Select(
		"item_name", "item_type", "url", "score",
		"system_verdict", "user_decision", "decided_at",
	).
		From("review_feedback").
		OrderBy("decided_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build feedback select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query feedback: %w", err)
	}

	var records []domain.FeedbackRecord
	for rows.Next() {
		var rec domain.FeedbackRecord
		var verdict string
		if err := rows.Scan(
			&rec.ItemName, &rec.ItemType, &rec.URL, &rec.Score,
			&verdict, &rec.UserDecision, &rec.DecidedAt,
		); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		rec.SystemVerdict = domain.RouteVerdict(verdict)
		records = append(records, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("rows iteration: %w", rowsErr)
	}

	if closeErr := rows.Close(); closeErr != nil {
		return nil, fmt.Errorf("close rows: %w", closeErr)
	}

	return records, nil
}

// RecordFeedback stores one user review decision for a digest item.
func (s *DigestStore) RecordFeedback(ctx context.Context, rec domain.FeedbackRecord) error {
	if s.db == nil {
		return nil
	}

	query, args, err := psql.Insert("review_feedback").
		Columns("item_name", "item_type", "url", "score", "system_verdict", "user_decision", "decided_at").
		Values(rec.ItemName, rec.ItemType, rec.URL, rec.Score, string(rec.SystemVerdict), rec.UserDecision, rec.DecidedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build feedback insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert feedback %s: %w", rec.ItemName, err)
	}

	return nil
}
