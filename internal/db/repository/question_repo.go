// Package repository holds the Postgres access layer. Question payloads
// are stored as jsonb so the schema never chases the generated shape.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anirudhsk/prepsprint/internal/question"
)

// QuestionRepository serves the curated question pool.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// CachedQuestions pulls a random sample of pool rows matching the request.
func (r *QuestionRepository) CachedQuestions(ctx context.Context, req question.BatchRequest) ([]question.Question, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT payload
		FROM cached_questions
		WHERE topic = $1 AND subtopic = $2 AND difficulty = $3
		ORDER BY random()
		LIMIT $4`,
		string(req.Topic), string(req.Subtopic), req.Difficulty, req.Count)
	if err != nil {
		return nil, fmt.Errorf("query cached questions: %w", err)
	}
	defer rows.Close()

	var qs []question.Question
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan cached question: %w", err)
		}
		var q question.Question
		if err := json.Unmarshal(payload, &q); err != nil {
			return nil, fmt.Errorf("decode cached question: %w", err)
		}
		qs = append(qs, q)
	}
	return qs, rows.Err()
}

// SaveGenerated adds freshly generated questions to the pool. Duplicate
// UUIDs are ignored so retried batches stay idempotent.
func (r *QuestionRepository) SaveGenerated(ctx context.Context, qs []question.Question) error {
	batch := &pgx.Batch{}
	for _, q := range qs {
		payload, err := json.Marshal(q)
		if err != nil {
			return fmt.Errorf("encode question %s: %w", q.UUID, err)
		}
		batch.Queue(`
			INSERT INTO cached_questions (uuid, topic, subtopic, difficulty, fsm_tag, payload)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (uuid) DO NOTHING`,
			q.UUID, string(q.Topic), string(q.Subtopic), q.Difficulty, q.FSMTag, payload)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range qs {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert generated question: %w", err)
		}
	}
	return nil
}

// RejectedItem is one pipeline failure headed for manual review.
type RejectedItem struct {
	Topic      string
	Subtopic   string
	Difficulty string
	Stage      string
	Reason     string
}

// SaveRejected stages pipeline failures so content reviewers can inspect
// what the model keeps getting wrong.
func (r *QuestionRepository) SaveRejected(ctx context.Context, items []RejectedItem) error {
	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(`
			INSERT INTO staging_questions (topic, subtopic, difficulty, failure_stage, failure_reason)
			VALUES ($1, $2, $3, $4, $5)`,
			item.Topic, item.Subtopic, item.Difficulty, item.Stage, item.Reason)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range items {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert rejected item: %w", err)
		}
	}
	return nil
}

// SetDiagramURL patches the only mutable field of a persisted question.
func (r *QuestionRepository) SetDiagramURL(ctx context.Context, questionUUID, url string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE cached_questions
		SET diagram_url = $2,
		    payload = jsonb_set(payload, '{diagramUrl}', to_jsonb($2::text))
		WHERE uuid = $1`,
		questionUUID, url)
	if err != nil {
		return fmt.Errorf("patch diagram url: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("question %s not found", questionUUID)
	}
	return nil
}

// MissingOptimalPath lists pool rows that were persisted without a
// fastest-method block, for the enrichment pass.
func (r *QuestionRepository) MissingOptimalPath(ctx context.Context, limit int) ([]question.Question, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT payload
		FROM cached_questions
		WHERE COALESCE((payload->'optimalPath'->>'exists')::boolean, false) = false
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query unenriched questions: %w", err)
	}
	defer rows.Close()

	var qs []question.Question
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q question.Question
		if err := json.Unmarshal(payload, &q); err != nil {
			return nil, fmt.Errorf("decode question: %w", err)
		}
		qs = append(qs, q)
	}
	return qs, rows.Err()
}

// UpdatePayload rewrites a question's stored payload after enrichment.
func (r *QuestionRepository) UpdatePayload(ctx context.Context, q *question.Question) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode question %s: %w", q.UUID, err)
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE cached_questions SET payload = $2 WHERE uuid = $1`,
		q.UUID, payload)
	if err != nil {
		return fmt.Errorf("update question payload: %w", err)
	}
	return nil
}
