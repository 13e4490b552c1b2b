package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"voice-quiz/internal/domain"
)

// ScoreStore keeps a capped list of recent score records per quiz:
// LPUSH voicequiz:scores:{quizID} {json}, trimmed to limit entries.
type ScoreStore struct {
	client *redis.Client
	limit  int64
}

func NewScoreStore(client *redis.Client, limit int) *ScoreStore {
	if limit <= 0 {
		limit = 100
	}
	return &ScoreStore{client: client, limit: int64(limit)}
}

func (s *ScoreStore) SaveScore(ctx context.Context, record domain.ScoreRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode score: %w", err)
	}
	key := s.key(record.QuizID)
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, key, data)
	pipe.LTrim(ctx, key, 0, s.limit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save score: %w", err)
	}
	return nil
}

func (s *ScoreStore) RecentScores(ctx context.Context, quizID string, limit int) ([]domain.ScoreRecord, error) {
	if limit <= 0 {
		limit = int(s.limit)
	}
	raw, err := s.client.LRange(ctx, s.key(quizID), 0, int64(limit)-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	records := make([]domain.ScoreRecord, 0, len(raw))
	for _, item := range raw {
		var record domain.ScoreRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			return nil, fmt.Errorf("decode score: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *ScoreStore) key(quizID string) string {
	return "voicequiz:scores:" + quizID
}
