// Package sqlite keeps a local score history for the offline player.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"voice-quiz/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS score_history (
	session_id TEXT PRIMARY KEY,
	quiz_id TEXT NOT NULL,
	played_at TEXT NOT NULL,
	total_questions INTEGER NOT NULL,
	correct_count INTEGER NOT NULL,
	percentage INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_score_history_quiz ON score_history(quiz_id, played_at);`

// playedAtLayout is fixed width so text order matches time order.
const playedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// HistoryStore persists score records to a SQLite file.
type HistoryStore struct {
	db *sql.DB
}

// Open creates the database file and its directory if needed.
func Open(path string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history tables: %w", err)
	}
	log.Printf("score history at %s", path)
	return &HistoryStore{db: db}, nil
}

func (s *HistoryStore) Close() error {
	return s.db.Close()
}

func (s *HistoryStore) SaveScore(ctx context.Context, record domain.ScoreRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO score_history (session_id, quiz_id, played_at, total_questions, correct_count, percentage)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			correct_count = excluded.correct_count,
			percentage = excluded.percentage`,
		record.SessionID,
		record.QuizID,
		record.Date.UTC().Format(playedAtLayout),
		record.TotalQuestions,
		record.CorrectCount,
		record.Percentage,
	)
	if err != nil {
		return fmt.Errorf("save score: %w", err)
	}
	return nil
}

func (s *HistoryStore) RecentScores(ctx context.Context, quizID string, limit int) ([]domain.ScoreRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, quiz_id, played_at, total_questions, correct_count, percentage
		FROM score_history
		WHERE quiz_id = ?
		ORDER BY played_at DESC
		LIMIT ?`, quizID, limit)
	if err != nil {
		return nil, fmt.Errorf("list scores: %w", err)
	}
	defer rows.Close()

	var records []domain.ScoreRecord
	for rows.Next() {
		var (
			record   domain.ScoreRecord
			playedAt string
		)
		if err := rows.Scan(&record.SessionID, &record.QuizID, &playedAt, &record.TotalQuestions, &record.CorrectCount, &record.Percentage); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		if record.Date, err = time.Parse(playedAtLayout, playedAt); err != nil {
			return nil, fmt.Errorf("parse played_at %q: %w", playedAt, err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// Best returns the highest percentage recorded for a quiz, and false when it was never played.
func (s *HistoryStore) Best(ctx context.Context, quizID string) (int, bool, error) {
	var best sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(percentage) FROM score_history WHERE quiz_id = ?`, quizID).Scan(&best)
	if err != nil {
		return 0, false, fmt.Errorf("best score: %w", err)
	}
	return int(best.Int64), best.Valid, nil
}
