package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"voice-quiz/internal/domain"
)

type scoreRow struct {
	bun.BaseModel `bun:"table:quiz_scores"`

	SessionID      string    `bun:"session_id,pk"`
	QuizID         string    `bun:"quiz_id,notnull"`
	PlayedAt       time.Time `bun:"played_at,notnull"`
	TotalQuestions int       `bun:"total_questions,notnull"`
	CorrectCount   int       `bun:"correct_count,notnull"`
	Percentage     int       `bun:"percentage,notnull"`
}

// ScoreStore persists finished sessions in the quiz_scores table.
type ScoreStore struct {
	db *bun.DB
}

// OpenDB connects bun to Postgres through pgdriver.
func OpenDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func NewScoreStore(db *bun.DB) *ScoreStore {
	return &ScoreStore{db: db}
}

func (s *ScoreStore) SaveScore(ctx context.Context, record domain.ScoreRecord) error {
	row := &scoreRow{
		SessionID:      record.SessionID,
		QuizID:         record.QuizID,
		PlayedAt:       record.Date.UTC(),
		TotalQuestions: record.TotalQuestions,
		CorrectCount:   record.CorrectCount,
		Percentage:     record.Percentage,
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (session_id) DO UPDATE").
		Set("correct_count = EXCLUDED.correct_count").
		Set("percentage = EXCLUDED.percentage").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("save score: %w", err)
	}
	return nil
}

func (s *ScoreStore) RecentScores(ctx context.Context, quizID string, limit int) ([]domain.ScoreRecord, error) {
	var rows []scoreRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("quiz_id = ?", quizID).
		Order("played_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	records := make([]domain.ScoreRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, domain.ScoreRecord{
			SessionID:      row.SessionID,
			QuizID:         row.QuizID,
			Date:           row.PlayedAt,
			TotalQuestions: row.TotalQuestions,
			CorrectCount:   row.CorrectCount,
			Percentage:     row.Percentage,
		})
	}
	return records, nil
}
