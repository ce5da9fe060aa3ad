package contentfilter

import "regexp"

// DefaultRules covers the topics that have historically attracted off-topic
// generations. Patterns are case-insensitive.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		"Quadratic Equations": {
			Required: MustPatterns(
				`(?i)quadratic|roots?|discriminant|x\^?2|x²`,
			),
			Forbidden: MustPatterns(
				`(?i)\bderivative\b|\bintegral\b|\bmatrix\b`,
			),
		},
		"Sequences and Series": {
			Required: MustPatterns(
				`(?i)arithmetic|geometric|progression|\bterm\b|common (difference|ratio)|\bsum\b`,
			),
		},
		"Definite Integration": {
			Required: MustPatterns(
				`(?i)integral|integrat|∫|area (under|bounded)`,
			),
			Forbidden: MustPatterns(
				`(?i)\bprobability\b|\bpermutation\b`,
			),
		},
		"Probability": {
			Required: MustPatterns(
				`(?i)probabilit|\bdice\b|\bcoin\b|\bcards?\b|random|bayes|event`,
			),
		},
		"Kinematics": {
			Required: MustPatterns(
				`(?i)velocity|acceleration|displacement|projectile|\bmotion\b|trajectory`,
			),
			Forbidden: MustPatterns(
				`(?i)\bcircuit\b|\bresistor\b|\bcurrent\b`,
			),
		},
		"Current Electricity": {
			Required: MustPatterns(
				`(?i)current|resist|circuit|voltage|kirchhoff|wheatstone|\bemf\b|\bohm`,
			),
		},
		"Chemical Bonding": {
			Required: MustPatterns(
				`(?i)bond|hybridi[sz]ation|vsepr|molecul|orbital|lewis`,
			),
		},
		"Light: Reflection and Refraction": {
			Required: MustPatterns(
				`(?i)mirror|lens|refract|reflect|focal|image|ray`,
			),
		},
	}
}

// MustPatterns compiles expressions, panicking on an invalid one. Rule
// tables are static, so a bad pattern is a programming error.
func MustPatterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}
