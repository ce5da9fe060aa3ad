package genpipe

import (
	"fmt"
	"strings"
)

const systemPrompt = `You are an expert exam-question author for competitive entrance exams. You write original multiple-choice questions with exactly 4 options, one correct answer, a fastest-safe-method shortcut where one exists, and a complete step-by-step solution. Questions must be solvable without any material beyond the question text and, when flagged, its diagram.`

const verifySystemPrompt = `You are a careful exam solver. Solve the question independently and reply with only the single letter A, B, C or D naming the correct option. No working, no punctuation.`

// buildBatchPrompt renders the user message for a batch generation call.
func buildBatchPrompt(req GenRequest) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Generate %d multiple-choice questions.\n\n", req.Count)
	fmt.Fprintf(&b, "Exam: %s\n", req.Exam)
	fmt.Fprintf(&b, "Subject: %s\n", req.Subject)
	fmt.Fprintf(&b, "Topic: %s\n", req.TopicName)
	fmt.Fprintf(&b, "Subtopic: %s\n", req.Subtopic)
	fmt.Fprintf(&b, "Class level: %d\n", req.ClassLevel)
	fmt.Fprintf(&b, "Difficulty: %s\n\n", req.Difficulty)

	b.WriteString("Requirements:\n")
	b.WriteString("- Exactly 4 options per question, one clearly correct\n")
	b.WriteString("- Wrong options must be plausible distractors from common mistakes\n")
	b.WriteString("- fsm_tag names the reusable solving pattern, lowercase kebab-case\n")
	b.WriteString("- optimal_path holds the fastest exam-safe shortcut when one exists\n")
	b.WriteString("- full_solution is the complete derivation, one step per entry\n")
	b.WriteString("- Set diagram_required true only when a figure is essential, and then describe it in visual_description\n")

	if len(req.Avoid) > 0 {
		b.WriteString("\nDo not repeat or trivially rephrase any of these already-served questions:\n")
		for i, q := range req.Avoid {
			fmt.Fprintf(&b, "%d. %s\n", i+1, q)
		}
	}

	return b.String()
}

// buildVerifyPrompt renders the re-solve message for one question.
func buildVerifyPrompt(questionText string, options []string) string {
	var b strings.Builder
	b.WriteString(questionText)
	b.WriteString("\n\n")
	letters := []string{"A", "B", "C", "D"}
	for i, opt := range options {
		if i >= len(letters) {
			break
		}
		fmt.Fprintf(&b, "%s) %s\n", letters[i], opt)
	}
	return b.String()
}
