package genpipe

import (
	"context"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/anirudhsk/prepsprint/internal/llm"
	"github.com/anirudhsk/prepsprint/internal/question"
)

// verifyAnswer re-solves q with an independent low-temperature call that
// asks only for a letter A-D. A confident disagreement overrides the
// generator's stated answer; anything inconclusive keeps the original.
func (g *Generator) verifyAnswer(ctx context.Context, q *question.Question) {
	optionTexts := make([]string, len(q.Options))
	for i, o := range q.Options {
		optionTexts[i] = o.Text
	}

	res, err := g.client.Complete(ctx, llm.Request{
		System:      verifySystemPrompt,
		Prompt:      buildVerifyPrompt(q.QuestionText, optionTexts),
		MaxTokens:   8,
		Temperature: 0,
	})
	if err != nil {
		g.logger.Warn().Err(err).Str("question", q.UUID).Msg("verification call failed, keeping original answer")
		return
	}

	idx, ok := parseLetterAnswer(string(res.Content))
	if !ok {
		g.logger.Warn().Str("question", q.UUID).Str("reply", string(res.Content)).
			Msg("verification reply inconclusive, keeping original answer")
		return
	}

	if idx != q.CorrectOptionIndex {
		g.logger.Info().Str("question", q.UUID).
			Int("generator", q.CorrectOptionIndex).
			Int("verifier", idx).
			Msg("verifier disagrees, overriding answer")
		q.CorrectOptionIndex = idx
	}
}

// VerifyBatch runs the verification pass over questions that were built
// without it (e.g. when re-checking staged rows). Honors the parallel knob.
func (g *Generator) VerifyBatch(ctx context.Context, qs []question.Question) {
	if !g.cfg.VerifyParallel {
		for i := range qs {
			g.verifyAnswer(ctx, &qs[i])
		}
		return
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for i := range qs {
		q := &qs[i]
		eg.Go(func() error {
			g.verifyAnswer(ctx, q)
			return nil
		})
	}
	_ = eg.Wait() // verifyAnswer never returns errors; failures are logged
}

// parseLetterAnswer extracts an option index from a single-letter reply,
// tolerating surrounding prose like "Answer: B." but rejecting anything
// that names more than one option.
func parseLetterAnswer(reply string) (int, bool) {
	cleaned := strings.ToUpper(strings.TrimSpace(reply))
	cleaned = strings.TrimPrefix(cleaned, "ANSWER:")
	cleaned = strings.TrimSpace(strings.Trim(cleaned, ".)\"' "))

	if len(cleaned) == 1 && cleaned[0] >= 'A' && cleaned[0] <= 'D' {
		return int(cleaned[0] - 'A'), true
	}

	// Fall back to scanning for exactly one standalone letter.
	found := -1
	for i := 0; i < len(cleaned); i++ {
		c := cleaned[i]
		if c < 'A' || c > 'D' {
			continue
		}
		prevBoundary := i == 0 || !isWordChar(cleaned[i-1])
		nextBoundary := i == len(cleaned)-1 || !isWordChar(cleaned[i+1])
		if prevBoundary && nextBoundary {
			if found >= 0 && found != int(c-'A') {
				return 0, false
			}
			found = int(c - 'A')
		}
	}
	if found >= 0 {
		return found, true
	}
	return 0, false
}

func isWordChar(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}
