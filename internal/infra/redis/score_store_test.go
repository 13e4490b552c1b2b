package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"voice-quiz/internal/domain"
)

func TestScoreStoreKeepsNewestRecords(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewScoreStore(newClient(mr), 2)
	ctx := context.Background()
	date := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	for i, pct := range []int{40, 70, 100} {
		err := store.SaveScore(ctx, domain.ScoreRecord{
			SessionID:      string(rune('a' + i)),
			QuizID:         "quiz-1",
			Date:           date.Add(time.Duration(i) * time.Minute),
			TotalQuestions: 10,
			CorrectCount:   pct / 10,
			Percentage:     pct,
		})
		if err != nil {
			t.Fatalf("save score: %v", err)
		}
	}

	if n, _ := mr.List("voicequiz:scores:quiz-1"); len(n) != 2 {
		t.Fatalf("expected list trimmed to 2, got %d", len(n))
	}

	records, err := store.RecentScores(ctx, "quiz-1", 5)
	if err != nil {
		t.Fatalf("recent scores: %v", err)
	}
	if len(records) != 2 || records[0].Percentage != 100 || records[1].Percentage != 70 {
		t.Fatalf("unexpected records %+v", records)
	}
	if !records[0].Date.Equal(date.Add(2 * time.Minute)) {
		t.Fatalf("date lost in round trip: %s", records[0].Date)
	}
}
