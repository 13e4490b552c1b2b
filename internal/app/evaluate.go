package app

import (
	"strings"

	"voice-quiz/internal/domain"
)

// Evaluate classifies a response against the question's correct option.
// Blank input is a no-response, never an incorrect answer. Matching is
// case-insensitive on the option key, and on the option text so spoken
// answers ("Paris") work as well as typed keys ("b").
func Evaluate(q domain.Question, response string) domain.FeedbackVerdict {
	answer := strings.TrimSpace(response)
	if answer == "" {
		return domain.VerdictNoResponse
	}

	correct, ok := q.CorrectOption()
	if !ok {
		return domain.VerdictIncorrect
	}
	if strings.EqualFold(answer, strings.TrimSpace(correct.Key)) {
		return domain.VerdictCorrect
	}
	if text := strings.TrimSpace(correct.Text); text != "" && strings.EqualFold(answer, text) {
		return domain.VerdictCorrect
	}
	return domain.VerdictIncorrect
}
