// Package contentfilter rejects generated questions that drift off-topic.
// It maps a topic name to required/forbidden keyword patterns and checks
// question text against them. Topics without a rule are accepted as-is.
package contentfilter

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog"
)

// Rule describes the keyword constraints for one topic.
type Rule struct {
	// Required: at least one must match, when non-empty.
	Required []*regexp.Regexp
	// Forbidden: any match rejects the question outright.
	Forbidden []*regexp.Regexp
}

// Filter validates question text against per-topic keyword rules.
// The zero-value rule set accepts everything.
type Filter struct {
	rules  map[string]Rule // keyed by lowercase topic name
	logger zerolog.Logger
}

// New creates a filter over the given rules. Topic keys are matched
// case-insensitively.
func New(rules map[string]Rule, logger zerolog.Logger) *Filter {
	normalized := make(map[string]Rule, len(rules))
	for topic, rule := range rules {
		normalized[strings.ToLower(topic)] = rule
	}
	return &Filter{
		rules:  normalized,
		logger: logger.With().Str("component", "contentfilter").Logger(),
	}
}

// IsValidForTopic reports whether questionText belongs to topic.
//
// No rule for the topic means valid (fail-open). A forbidden match fails
// fast. Otherwise a non-empty required set needs at least one match.
func (f *Filter) IsValidForTopic(topic, questionText string) bool {
	rule, ok := f.rules[strings.ToLower(topic)]
	if !ok {
		return true
	}

	for _, re := range rule.Forbidden {
		if re.MatchString(questionText) {
			f.logger.Debug().
				Str("topic", topic).
				Str("pattern", re.String()).
				Msg("question rejected by forbidden pattern")
			return false
		}
	}

	if len(rule.Required) == 0 {
		return true
	}
	for _, re := range rule.Required {
		if re.MatchString(questionText) {
			return true
		}
	}
	f.logger.Debug().
		Str("topic", topic).
		Msg("question matched no required pattern")
	return false
}
