package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/anirudhsk/prepsprint/internal/session"
)

// fkViolation is the Postgres error code for foreign-key failures.
const fkViolation = "23503"

// SessionRepository persists session rows and attempt events.
type SessionRepository struct {
	pool *pgxpool.Pool
}

var _ session.Store = (*SessionRepository)(nil)

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

func (r *SessionRepository) CreateSession(ctx context.Context, s *session.Session) error {
	var parent any
	if s.ParentSessionID != "" {
		parent = s.ParentSessionID
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sprint_sessions
			(id, user_id, exam, topic, subtopic, mode, difficulty, started_at, is_retry, parent_session_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.UserID, string(s.Exam), string(s.Topic), string(s.Subtopic),
		s.Mode, s.Difficulty, s.StartedAt, s.IsRetry, parent)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *SessionRepository) FinalizeSession(ctx context.Context, s *session.Session) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE sprint_sessions
		SET ended_at = $2, correct_count = $3, wrong_count = $4,
		    skipped_count = $5, total_score = $6, avg_time_ms = $7
		WHERE id = $1 AND ended_at IS NULL`,
		s.ID, s.EndedAt, s.CorrectCount, s.WrongCount,
		s.SkippedCount, s.TotalScore, s.AvgTimeMs)
	if err != nil {
		return fmt.Errorf("finalize session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s not open", s.ID)
	}
	return nil
}

// SaveAttempt records the attempt and folds it into the user's mastery
// aggregates in one server-side call. A foreign-key failure means the
// question row vanished; that maps to session.ErrGhostQuestion so the
// engine can swallow it.
func (r *SessionRepository) SaveAttempt(ctx context.Context, a session.Attempt) error {
	_, err := r.pool.Exec(ctx, `
		SELECT save_attempt_and_update_mastery($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.UserID, a.QuestionUUID, a.SessionID, a.FSMTag,
		a.IsCorrect, a.TimeTakenMs, a.TargetTimeMs, a.SelectedOptionIndex, a.ScoreEarned)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == fkViolation {
			return fmt.Errorf("save attempt for %s: %w", a.QuestionUUID, session.ErrGhostQuestion)
		}
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}
