package genpipe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/anirudhsk/prepsprint/internal/llm"
	"github.com/anirudhsk/prepsprint/internal/question"
	"github.com/anirudhsk/prepsprint/internal/taxonomy"
)

// Generator drives the generation pipeline against a model client.
type Generator struct {
	client llm.Client
	cfg    Config
	logger zerolog.Logger
}

func NewGenerator(client llm.Client, cfg Config, logger zerolog.Logger) *Generator {
	return &Generator{
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "genpipe").Logger(),
	}
}

// rawItem mirrors the batch schema's question definition.
type rawItem struct {
	QuestionText       string   `json:"question_text"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correct_option_index"`
	FSMTag             string   `json:"fsm_tag"`
	TimeTargetSeconds  int      `json:"time_target_seconds"`
	OptimalPath        *rawPath `json:"optimal_path"`
	FullSolution       []string `json:"full_solution"`
	Difficulty         string   `json:"difficulty"`
	DiagramRequired    bool     `json:"diagram_required"`
	VisualDescription  string   `json:"visual_description"`
}

type rawPath struct {
	Exists        bool     `json:"exists"`
	Steps         []string `json:"steps"`
	Preconditions []string `json:"preconditions"`
	SanityCheck   string   `json:"sanity_check"`
}

type rawBatch struct {
	Questions []rawItem `json:"questions"`
}

// GenerateBatch produces up to req.Count questions. Items that fail a
// pipeline stage are reported in failures and skipped; the batch call only
// errors when nothing at all could be generated or parsed.
func (g *Generator) GenerateBatch(ctx context.Context, req GenRequest) ([]question.Question, []ItemFailure, error) {
	raw, err := g.callModel(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	questions := make([]question.Question, 0, len(raw.Questions))
	var failures []ItemFailure

	for i, item := range raw.Questions {
		q, stage, itemErr := g.buildQuestion(ctx, req, item)
		if itemErr != nil {
			f := ItemFailure{Index: i, Stage: stage, Err: itemErr}
			g.logger.Warn().Int("item", i).Str("stage", string(stage)).Err(itemErr).
				Msg("dropping generated item")
			failures = append(failures, f)
			continue
		}
		questions = append(questions, *q)
	}

	return questions, failures, nil
}

// GenerateOne produces a single question; unlike the batch path, any
// failure fails the whole call.
func (g *Generator) GenerateOne(ctx context.Context, req GenRequest) (*question.Question, error) {
	req.Count = 1
	questions, failures, err := g.GenerateBatch(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		if len(failures) > 0 {
			return nil, fmt.Errorf("question generation failed: %w", failures[0])
		}
		return nil, fmt.Errorf("model returned no questions")
	}
	return &questions[0], nil
}

// callModel runs the generation call and parses the batch envelope,
// repairing malformed output when the provider's structured-output path
// was not honored.
func (g *Generator) callModel(ctx context.Context, req GenRequest) (*rawBatch, error) {
	res, err := g.client.Complete(ctx, llm.Request{
		System:      systemPrompt,
		Prompt:      buildBatchPrompt(req),
		Schema:      BatchSchema,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})

	var content json.RawMessage
	switch {
	case err == nil:
		content = res.Content
	default:
		// Schema validation failed but the raw text may still hold a
		// usable document; run the bracket-scanning repair on it.
		var bad *llm.BadOutputError
		if !errors.As(err, &bad) || len(bad.Content) == 0 {
			return nil, fmt.Errorf("generation call failed: %w", err)
		}
		repaired, repairErr := extractJSON(unescapeArtifacts(string(bad.Content)), false)
		if repairErr != nil {
			return nil, fmt.Errorf("unrepairable model output: %w", err)
		}
		g.logger.Debug().Msg("recovered batch document from malformed output")
		content = json.RawMessage(repaired)
	}

	var batch rawBatch
	if err := json.Unmarshal(content, &batch); err != nil {
		// The model may have emitted a bare array instead of the
		// {"questions": [...]} envelope.
		arr, arrErr := extractJSON(string(content), true)
		if arrErr != nil {
			return nil, fmt.Errorf("parse batch: %w", err)
		}
		if err := json.Unmarshal([]byte(arr), &batch.Questions); err != nil {
			return nil, fmt.Errorf("parse batch array: %w", err)
		}
	}
	if len(batch.Questions) == 0 {
		return nil, fmt.Errorf("model returned an empty batch")
	}
	return &batch, nil
}

// buildQuestion runs one item through structure validation and optional
// verification, returning the failing stage on error.
func (g *Generator) buildQuestion(ctx context.Context, req GenRequest, item rawItem) (*question.Question, Stage, error) {
	if strings.TrimSpace(item.QuestionText) == "" {
		return nil, StageStructure, fmt.Errorf("question_text is empty")
	}
	if len(item.Options) != 4 {
		return nil, StageStructure, fmt.Errorf("expected 4 options, got %d", len(item.Options))
	}

	// Out-of-range answer index degrades to 0 instead of dropping the
	// item: degraded-but-present beats data loss here.
	if item.CorrectOptionIndex < 0 || item.CorrectOptionIndex > 3 {
		g.logger.Warn().Int("index", item.CorrectOptionIndex).
			Msg("correct_option_index out of range, defaulting to 0")
		item.CorrectOptionIndex = 0
	}

	tag := slugify(item.FSMTag)
	if !question.FSMTagPattern.MatchString(tag) {
		return nil, StageStructure, fmt.Errorf("fsm_tag %q is not a valid slug", item.FSMTag)
	}

	difficulty := item.Difficulty
	if difficulty == "" {
		difficulty = req.Difficulty
	}

	opts := make([]question.Option, len(item.Options))
	for i, text := range item.Options {
		opts[i] = question.Option{Text: text}
	}

	q := &question.Question{
		UUID:               uuid.NewString(),
		QuestionText:       item.QuestionText,
		Options:            opts,
		CorrectOptionIndex: item.CorrectOptionIndex,
		TimeTargets:        map[taxonomy.ExamID]int{},
		FullSolution:       question.Solution{Steps: item.FullSolution},
		FSMTag:             tag,
		Difficulty:         difficulty,
		VisualDescription:  item.VisualDescription,
		DiagramRequired:    item.DiagramRequired,
		Topic:              req.Topic,
		Subtopic:           req.Subtopic,
	}
	if item.TimeTargetSeconds > 0 {
		q.TimeTargets[req.Exam] = item.TimeTargetSeconds
	}
	if item.OptimalPath != nil {
		q.OptimalPath = question.OptimalPath{
			Exists:        item.OptimalPath.Exists,
			Steps:         item.OptimalPath.Steps,
			Preconditions: item.OptimalPath.Preconditions,
			SanityCheck:   item.OptimalPath.SanityCheck,
		}
	}

	if g.cfg.Verify {
		// Verification is best-effort: only a confident disagreement
		// changes the answer, and verifier failures never drop the item.
		g.verifyAnswer(ctx, q)
	}

	return q, StageReady, nil
}

// slugify lowers and kebab-cases a tag so near-miss model output ("Chain Rule",
// "chain_rule") still lands on the canonical form.
func slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "-", "_", "-").Replace(s)
	return s
}
