package memory

import (
	"context"
	"sync"

	"voice-quiz/internal/domain"
)

// ScoreStore keeps the most recent score records per quiz in process memory.
type ScoreStore struct {
	limit int

	mu     sync.RWMutex
	byQuiz map[string][]domain.ScoreRecord
}

// NewScoreStore keeps at most limit records per quiz; zero means unbounded.
func NewScoreStore(limit int) *ScoreStore {
	return &ScoreStore{limit: limit, byQuiz: make(map[string][]domain.ScoreRecord)}
}

func (s *ScoreStore) SaveScore(_ context.Context, record domain.ScoreRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := append(s.byQuiz[record.QuizID], record)
	if s.limit > 0 && len(records) > s.limit {
		records = records[len(records)-s.limit:]
	}
	s.byQuiz[record.QuizID] = records
	return nil
}

func (s *ScoreStore) RecentScores(_ context.Context, quizID string, limit int) ([]domain.ScoreRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.byQuiz[quizID]
	out := make([]domain.ScoreRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, records[i])
	}
	return out, nil
}
