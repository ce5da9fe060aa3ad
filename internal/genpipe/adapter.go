package genpipe

import (
	"context"
	"fmt"

	"github.com/anirudhsk/prepsprint/internal/question"
	"github.com/anirudhsk/prepsprint/internal/taxonomy"
)

// PoolGenerator adapts the pipeline to the question service's Generator
// interface, resolving taxonomy names the prompt needs.
type PoolGenerator struct {
	gen     *Generator
	catalog *taxonomy.Catalog
}

var _ question.Generator = (*PoolGenerator)(nil)

func NewPoolGenerator(gen *Generator, catalog *taxonomy.Catalog) *PoolGenerator {
	return &PoolGenerator{gen: gen, catalog: catalog}
}

func (p *PoolGenerator) Generate(ctx context.Context, req question.BatchRequest, avoid []string) ([]question.Question, error) {
	node, ok := p.catalog.Lookup(req.Exam, req.Topic, req.Subtopic)
	if !ok {
		return nil, fmt.Errorf("unknown taxonomy node %s/%s/%s", req.Exam, req.Topic, req.Subtopic)
	}

	subject := req.Subject
	if subject == "" {
		subject = node.Subject
	}
	classLevel := req.ClassLevel
	if classLevel == 0 {
		classLevel = node.ClassLevel
	}

	qs, failures, err := p.gen.GenerateBatch(ctx, GenRequest{
		Exam:       req.Exam,
		Topic:      req.Topic,
		TopicName:  node.TopicName,
		Subtopic:   req.Subtopic,
		Subject:    subject,
		ClassLevel: classLevel,
		Difficulty: req.Difficulty,
		Count:      req.Count,
		Avoid:      avoid,
	})
	if err != nil {
		return nil, err
	}
	_ = failures // already logged per item by the pipeline
	return qs, nil
}
