package app

import "voice-quiz/internal/domain"

type result int

const (
	resultCorrect result = iota + 1
	resultIncorrect
	resultNoResponse
	resultSkipped
)

// Scorecard tallies verdicts by question position. Answering a repeated
// question again replaces its earlier result.
type Scorecard struct {
	excludeNoResponse bool

	results map[int]result

	streak     int
	bestStreak int
}

// NewScorecard builds an empty tally. With excludeNoResponse, questions that
// timed out are left out of the denominator instead of counting as wrong.
func NewScorecard(excludeNoResponse bool) *Scorecard {
	return &Scorecard{
		excludeNoResponse: excludeNoResponse,
		results:           make(map[int]result),
	}
}

// Record stores the verdict for the question at index.
func (s *Scorecard) Record(index int, v domain.FeedbackVerdict) {
	switch v {
	case domain.VerdictCorrect:
		s.set(index, resultCorrect)
		s.streak++
		if s.streak > s.bestStreak {
			s.bestStreak = s.streak
		}
	case domain.VerdictIncorrect:
		s.set(index, resultIncorrect)
		s.streak = 0
	case domain.VerdictNoResponse:
		s.set(index, resultNoResponse)
		s.streak = 0
	}
}

// Skip marks a question as passed over; it counts as answered but never correct.
func (s *Scorecard) Skip(index int) {
	s.set(index, resultSkipped)
	s.streak = 0
}

func (s *Scorecard) set(index int, r result) {
	s.results[index] = r
}

// Correct returns the number of correctly answered questions.
func (s *Scorecard) Correct() int {
	n := 0
	for _, r := range s.results {
		if r == resultCorrect {
			n++
		}
	}
	return n
}

// Answered returns the denominator used for the percentage.
func (s *Scorecard) Answered() int {
	n := 0
	for _, r := range s.results {
		if r == resultNoResponse && s.excludeNoResponse {
			continue
		}
		n++
	}
	return n
}

func (s *Scorecard) Streak() int { return s.streak }
func (s *Scorecard) BestStreak() int { return s.bestStreak }

// Percentage is the spoken score, rounded up to the nearest ten.
func (s *Scorecard) Percentage() int {
	return Percentage(s.Correct(), s.Answered())
}

// Percentage returns ceil(correct/answered*100 / 10) * 10 using integer
// arithmetic, so 3 of 10 is exactly 30 rather than a float that rounds up to 40.
func Percentage(correct, answered int) int {
	if answered <= 0 || correct <= 0 {
		return 0
	}
	if correct > answered {
		correct = answered
	}
	return (correct*10 + answered - 1) / answered * 10
}
