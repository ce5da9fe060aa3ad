package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/anirudhsk/prepsprint/internal/question"
	"github.com/anirudhsk/prepsprint/internal/session/scoring"
	"github.com/anirudhsk/prepsprint/internal/taxonomy"
)

// Config controls engine pacing.
type Config struct {
	// BatchSize is how many questions each fetch asks for.
	BatchSize int
	// DefaultQuestionCount caps a session when the request leaves it zero.
	DefaultQuestionCount int
	// PrefetchThreshold triggers a background fetch when the remaining
	// unseen count drops to or below it.
	PrefetchThreshold int
	// AdvanceDelay is the pause after a correct answer before the next
	// question appears.
	AdvanceDelay time.Duration
	// FetchTimeout bounds every question fetch.
	FetchTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:            3,
		DefaultQuestionCount: 10,
		PrefetchThreshold:    1,
		AdvanceDelay:         time.Second,
		FetchTimeout:         60 * time.Second,
	}
}

// attemptOutcome carries the result of one background persistence call.
type attemptOutcome struct {
	attempt Attempt
	err     error
}

// liveSession is the in-memory state of one run.
type liveSession struct {
	Session

	questions []question.Question
	index     int
	state     State

	// results, keyed by question UUID, double as the idempotency record
	// for repeat submissions.
	results  map[string]AnswerResult
	attempts []Attempt

	questionStart time.Time
	sessionStart  time.Time

	generating    bool
	warmed        bool
	questionCount int
	finalized     bool

	// epoch invalidates in-flight fetches after a difficulty reset.
	epoch int
}

// Engine owns every live session. All state lives behind one mutex; the
// only concurrent actors are the auto-advance timer, background fetches,
// and attempt persistence, none of which the answering path waits on.
type Engine struct {
	source  QuestionSource
	store   Store
	states  StateStore
	scorer  *scoring.Engine
	catalog *taxonomy.Catalog
	cfg     Config
	logger  zerolog.Logger

	now func() time.Time

	// prefetch, when set, receives cache-warm requests for a session's
	// next batch ahead of need. Sends never block.
	prefetch chan<- question.BatchRequest

	mu       sync.Mutex
	sessions map[string]*liveSession

	outcomes chan attemptOutcome
	done     chan struct{}
}

func NewEngine(source QuestionSource, store Store, states StateStore, scorer *scoring.Engine, catalog *taxonomy.Catalog, cfg Config, logger zerolog.Logger) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.DefaultQuestionCount <= 0 {
		cfg.DefaultQuestionCount = DefaultConfig().DefaultQuestionCount
	}
	if cfg.PrefetchThreshold <= 0 {
		cfg.PrefetchThreshold = DefaultConfig().PrefetchThreshold
	}
	if cfg.AdvanceDelay <= 0 {
		cfg.AdvanceDelay = DefaultConfig().AdvanceDelay
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultConfig().FetchTimeout
	}
	e := &Engine{
		source:   source,
		store:    store,
		states:   states,
		scorer:   scorer,
		catalog:  catalog,
		cfg:      cfg,
		logger:   logger.With().Str("component", "session").Logger(),
		now:      time.Now,
		sessions: make(map[string]*liveSession),
		outcomes: make(chan attemptOutcome, 64),
		done:     make(chan struct{}),
	}
	go e.collectOutcomes()
	return e
}

// SetPrefetchQueue routes next-batch warm requests to the prefetch worker.
// Must be called before the engine starts serving.
func (e *Engine) SetPrefetchQueue(queue chan<- question.BatchRequest) {
	e.prefetch = queue
}

// Stop shuts down the background outcome collector.
func (e *Engine) Stop() {
	close(e.done)
}

// collectOutcomes drains attempt persistence results. Ghost questions are
// expected noise; anything else is a real storage problem worth a louder log.
func (e *Engine) collectOutcomes() {
	for {
		select {
		case <-e.done:
			return
		case out := <-e.outcomes:
			switch {
			case out.err == nil:
			case errors.Is(out.err, ErrGhostQuestion):
				e.logger.Warn().
					Str("session", out.attempt.SessionID).
					Str("question", out.attempt.QuestionUUID).
					Msg("attempt dropped: question row missing")
			default:
				e.logger.Error().Err(out.err).
					Str("session", out.attempt.SessionID).
					Msg("attempt persistence failed")
			}
		}
	}
}

// Start opens a session and blocks until its first batch is ready.
func (e *Engine) Start(ctx context.Context, req StartRequest) (Snapshot, error) {
	if _, ok := e.catalog.Lookup(req.Exam, req.Topic, req.Subtopic); !ok {
		return Snapshot{}, fmt.Errorf("%w: %s/%s/%s", ErrUnknownTaxonomy, req.Exam, req.Topic, req.Subtopic)
	}
	if req.Mode == "" {
		req.Mode = ModePractice
	}
	if req.QuestionCount <= 0 {
		req.QuestionCount = e.cfg.DefaultQuestionCount
	}

	now := e.now()
	ls := &liveSession{
		Session: Session{
			ID:              uuid.NewString(),
			UserID:          req.UserID,
			Exam:            req.Exam,
			Topic:           req.Topic,
			Subtopic:        req.Subtopic,
			Mode:            req.Mode,
			Difficulty:      req.Difficulty,
			StartedAt:       now,
			IsRetry:         req.IsRetry,
			ParentSessionID: req.ParentSessionID,
		},
		state:         StateLoading,
		results:       make(map[string]AnswerResult),
		sessionStart:  now,
		questionCount: req.QuestionCount,
	}

	if err := e.store.CreateSession(ctx, &ls.Session); err != nil {
		return Snapshot{}, fmt.Errorf("create session: %w", err)
	}

	batch, err := e.fetch(ctx, e.batchRequest(ls, nil))
	if err != nil {
		return Snapshot{}, err
	}

	ls.questions = batch.Questions
	ls.state = StateActive
	ls.questionStart = e.now()

	e.mu.Lock()
	e.sessions[ls.ID] = ls
	snap := e.snapshotLocked(ls)
	e.mu.Unlock()

	e.persistSnapshot(snap)
	return snap, nil
}

// sessionForLocked resolves a session for its owner. A session belonging
// to a different user reads as not found, so knowing an ID is never enough
// to drive another account's run. Callers hold e.mu.
func (e *Engine) sessionForLocked(sessionID, userID string) (*liveSession, bool) {
	ls, ok := e.sessions[sessionID]
	if !ok || ls.UserID != userID {
		return nil, false
	}
	return ls, true
}

// Snapshot returns the current view of a session.
func (e *Engine) Snapshot(sessionID, userID string) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ls, ok := e.sessionForLocked(sessionID, userID)
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}
	return e.snapshotLocked(ls), nil
}

// SubmitAnswer locks in the user's choice for the current question. The
// first submission wins; any repeat returns the recorded result unchanged.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, userID, optionID string) (AnswerResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ls, ok := e.sessionForLocked(sessionID, userID)
	if !ok {
		return AnswerResult{}, ErrSessionNotFound
	}
	if ls.state == StateSummary {
		return AnswerResult{}, ErrSessionFinished
	}
	if ls.index >= len(ls.questions) {
		return AnswerResult{}, ErrNotAnswerable
	}

	q := &ls.questions[ls.index]
	if prior, submitted := ls.results[q.UUID]; submitted {
		return prior, nil
	}
	if ls.state != StateActive {
		return AnswerResult{}, ErrNotAnswerable
	}

	selectedIdx := -1
	for i, opt := range q.Options {
		if opt.ID == optionID {
			selectedIdx = i
			break
		}
	}
	if selectedIdx < 0 {
		return AnswerResult{}, ErrUnknownOption
	}

	now := e.now()
	elapsed := now.Sub(ls.questionStart)
	correct := selectedIdx == q.CorrectOptionIndex

	target := time.Duration(q.TimeTarget(ls.Exam)) * time.Second
	var score int
	if ls.Mode == ModeSprint {
		score = e.scorer.SprintScore(ls.Exam, q.Difficulty, correct, elapsed, target)
	}

	if correct {
		ls.CorrectCount++
	} else {
		ls.WrongCount++
	}
	ls.TotalScore += score

	attempt := Attempt{
		QuestionUUID:        q.UUID,
		UserID:              ls.UserID,
		SessionID:           ls.ID,
		FSMTag:              q.FSMTag,
		SelectedOptionIndex: selectedIdx,
		IsCorrect:           correct,
		TimeTakenMs:         int(elapsed.Milliseconds()),
		TargetTimeMs:        int(target.Milliseconds()),
		ScoreEarned:         score,
	}
	ls.attempts = append(ls.attempts, attempt)
	go e.persistAttempt(attempt)

	if correct {
		ls.state = StateAnswered
		time.AfterFunc(e.cfg.AdvanceDelay, func() {
			e.autoAdvance(sessionID)
		})
	} else {
		ls.state = StateIntervention
	}

	result := AnswerResult{
		Correct:            correct,
		CorrectOptionIndex: q.CorrectOptionIndex,
		ScoreEarned:        score,
		TimeTakenMs:        attempt.TimeTakenMs,
		State:              ls.state,
	}
	ls.results[q.UUID] = result

	e.persistSnapshot(e.snapshotLocked(ls))
	return result, nil
}

// Continue moves past the intervention gate after a wrong answer.
func (e *Engine) Continue(sessionID, userID string) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ls, ok := e.sessionForLocked(sessionID, userID)
	if !ok {
		return Snapshot{}, ErrSessionNotFound
	}
	if ls.state != StateIntervention && ls.state != StateAnswered {
		return e.snapshotLocked(ls), nil
	}
	e.advanceLocked(ls)
	snap := e.snapshotLocked(ls)
	e.persistSnapshot(snap)
	return snap, nil
}

// TrySimilar branches a wrong answer into a short child session on the
// same subtopic and difficulty.
func (e *Engine) TrySimilar(ctx context.Context, sessionID, userID string) (Snapshot, error) {
	e.mu.Lock()
	ls, ok := e.sessionForLocked(sessionID, userID)
	if !ok {
		e.mu.Unlock()
		return Snapshot{}, ErrSessionNotFound
	}
	req := StartRequest{
		UserID:          ls.UserID,
		Exam:            ls.Exam,
		Topic:           ls.Topic,
		Subtopic:        ls.Subtopic,
		Mode:            ls.Mode,
		Difficulty:      ls.Difficulty,
		QuestionCount:   e.cfg.BatchSize,
		IsRetry:         true,
		ParentSessionID: ls.ID,
	}
	e.mu.Unlock()

	return e.Start(ctx, req)
}

// SetDifficulty resets the run in place: index, answer state and timers go
// back to zero and a fresh batch is fetched at the new difficulty.
func (e *Engine) SetDifficulty(ctx context.Context, sessionID, userID, difficulty string) (Snapshot, error) {
	e.mu.Lock()
	ls, ok := e.sessionForLocked(sessionID, userID)
	if !ok {
		e.mu.Unlock()
		return Snapshot{}, ErrSessionNotFound
	}
	if ls.state == StateSummary {
		e.mu.Unlock()
		return Snapshot{}, ErrSessionFinished
	}

	ls.Difficulty = difficulty
	ls.questions = nil
	ls.index = 0
	ls.results = make(map[string]AnswerResult)
	ls.attempts = nil
	ls.CorrectCount, ls.WrongCount, ls.TotalScore = 0, 0, 0
	ls.epoch++
	ls.generating = false
	ls.warmed = false
	ls.state = StateLoading
	now := e.now()
	ls.sessionStart = now
	ls.questionStart = now
	req := e.batchRequest(ls, nil)
	e.mu.Unlock()

	batch, err := e.fetch(ctx, req)

	e.mu.Lock()
	defer e.mu.Unlock()
	if err != nil {
		return e.snapshotLocked(ls), err
	}
	ls.questions = batch.Questions
	ls.state = StateActive
	ls.questionStart = e.now()
	snap := e.snapshotLocked(ls)
	e.persistSnapshot(snap)
	return snap, nil
}

// Finalize closes the session and persists its aggregates exactly once.
func (e *Engine) Finalize(ctx context.Context, sessionID, userID string) (Session, error) {
	e.mu.Lock()
	ls, ok := e.sessionForLocked(sessionID, userID)
	if !ok {
		e.mu.Unlock()
		return Session{}, ErrSessionNotFound
	}
	if ls.finalized {
		s := ls.Session
		e.mu.Unlock()
		return s, nil
	}

	ls.finalized = true
	ls.state = StateSummary
	now := e.now()
	ls.EndedAt = &now

	seen := ls.index + 1
	if seen > len(ls.questions) {
		seen = len(ls.questions)
	}
	if skipped := seen - len(ls.attempts); skipped > 0 {
		ls.SkippedCount = skipped
	}
	if len(ls.attempts) > 0 {
		total := 0
		for _, a := range ls.attempts {
			total += a.TimeTakenMs
		}
		ls.AvgTimeMs = total / len(ls.attempts)
	}

	final := ls.Session
	e.mu.Unlock()

	if err := e.store.FinalizeSession(ctx, &final); err != nil {
		return Session{}, fmt.Errorf("finalize session: %w", err)
	}
	if e.states != nil {
		if err := e.states.DeleteSnapshot(ctx, final.ID); err != nil {
			e.logger.Warn().Err(err).Str("session", final.ID).Msg("snapshot cleanup failed")
		}
	}
	return final, nil
}

// autoAdvance runs after the post-correct-answer delay.
func (e *Engine) autoAdvance(sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ls, ok := e.sessions[sessionID]
	if !ok || ls.state != StateAnswered {
		return
	}
	e.advanceLocked(ls)
	e.persistSnapshot(e.snapshotLocked(ls))
}

// advanceLocked moves to the next question, entering a loading state when
// the next batch has not arrived yet. Callers hold e.mu.
func (e *Engine) advanceLocked(ls *liveSession) {
	ls.index++
	if ls.index >= len(ls.questions) {
		if len(ls.attempts) >= ls.questionCount {
			// Ran out the whole session; only finalize remains.
			ls.state = StateComplete
			return
		}
		ls.state = StateLoading
		e.ensureMoreLocked(ls)
		return
	}

	ls.state = StateActive
	ls.questionStart = e.now()

	if remaining := len(ls.questions) - ls.index - 1; remaining <= e.cfg.PrefetchThreshold {
		e.warmNextBatchLocked(ls)
	}
}

// warmNextBatchLocked hands the next batch's request to the prefetch
// worker so the cache is warm before the session actually needs it.
// Callers hold e.mu.
func (e *Engine) warmNextBatchLocked(ls *liveSession) {
	if e.prefetch == nil || ls.warmed || len(ls.questions) >= ls.questionCount {
		return
	}
	req := e.batchRequest(ls, excludeTexts(ls))
	select {
	case e.prefetch <- req:
		ls.warmed = true
	default:
		e.logger.Warn().Str("session", ls.ID).Msg("prefetch queue full, skipping warm")
	}
}

// ensureMoreLocked kicks off at most one background fetch at a time. The
// request is snapshotted here, under the lock, so the goroutine never
// reads live session state. Callers hold e.mu.
func (e *Engine) ensureMoreLocked(ls *liveSession) {
	if ls.generating || len(ls.questions) >= ls.questionCount {
		return
	}
	ls.generating = true

	req := e.batchRequest(ls, excludeTexts(ls))
	sessionID := ls.ID
	epoch := ls.epoch

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.cfg.FetchTimeout)
		defer cancel()

		batch, err := e.fetch(ctx, req)

		e.mu.Lock()
		defer e.mu.Unlock()
		cur, ok := e.sessions[sessionID]
		if !ok || cur.epoch != epoch {
			return // session gone or reset under us
		}
		cur.generating = false
		if err != nil {
			e.logger.Warn().Err(err).Str("session", sessionID).Msg("batch fetch failed")
			return
		}
		cur.questions = append(cur.questions, batch.Questions...)
		cur.warmed = false
		if cur.state == StateLoading && cur.index < len(cur.questions) {
			cur.state = StateActive
			cur.questionStart = e.now()
		}
		e.persistSnapshot(e.snapshotLocked(cur))
	}()
}

// batchRequest builds the fetch request for a session's next batch.
// Callers hold e.mu or own ls exclusively; the returned value shares no
// state with the session.
func (e *Engine) batchRequest(ls *liveSession, exclude []string) question.BatchRequest {
	remaining := ls.questionCount - len(exclude)
	count := e.cfg.BatchSize
	if remaining > 0 && remaining < count {
		count = remaining
	}
	return question.BatchRequest{
		UserID:     ls.UserID,
		Exam:       ls.Exam,
		Topic:      ls.Topic,
		Subtopic:   ls.Subtopic,
		Count:      count,
		Difficulty: ls.Difficulty,
		Exclude:    exclude,
	}
}

func excludeTexts(ls *liveSession) []string {
	exclude := make([]string, len(ls.questions))
	for i, q := range ls.questions {
		exclude[i] = q.QuestionText
	}
	return exclude
}

func (e *Engine) fetch(ctx context.Context, req question.BatchRequest) (question.Batch, error) {
	return e.source.QuestionsForUser(ctx, req)
}

func (e *Engine) persistAttempt(attempt Attempt) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := e.store.SaveAttempt(ctx, attempt)
	select {
	case e.outcomes <- attemptOutcome{attempt: attempt, err: err}:
	default:
		// Collector is behind; log inline rather than block the sender.
		if err != nil {
			e.logger.Error().Err(err).Str("session", attempt.SessionID).
				Msg("attempt persistence failed (outcome channel full)")
		}
	}
}

func (e *Engine) persistSnapshot(snap Snapshot) {
	if e.states == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.states.StoreSnapshot(ctx, snap); err != nil {
		e.logger.Warn().Err(err).Str("session", snap.SessionID).Msg("snapshot store failed")
	}
}

// snapshotLocked builds a client view. Callers hold e.mu.
func (e *Engine) snapshotLocked(ls *liveSession) Snapshot {
	snap := Snapshot{
		SessionID:        ls.ID,
		State:            ls.state,
		Index:            ls.index,
		Loaded:           len(ls.questions),
		QuestionCount:    ls.questionCount,
		CorrectCount:     ls.CorrectCount,
		WrongCount:       ls.WrongCount,
		TotalScore:       ls.TotalScore,
		SessionElapsedMs: e.now().Sub(ls.sessionStart).Milliseconds(),
		Generating:       ls.generating,
	}
	if ls.index < len(ls.questions) && ls.state != StateSummary {
		q := ls.questions[ls.index]
		snap.Question = &q
	}
	return snap
}
