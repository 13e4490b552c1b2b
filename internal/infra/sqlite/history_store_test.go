package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"voice-quiz/internal/domain"
)

func TestHistoryStoreRoundTrip(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "data", "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	for i, pct := range []int{50, 90, 70} {
		err := store.SaveScore(ctx, domain.ScoreRecord{
			SessionID:      string(rune('a' + i)),
			QuizID:         "quiz-1",
			Date:           base.Add(time.Duration(i) * time.Hour),
			TotalQuestions: 10,
			CorrectCount:   pct / 10,
			Percentage:     pct,
		})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	records, err := store.RecentScores(ctx, "quiz-1", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(records) != 2 || records[0].SessionID != "c" || records[1].SessionID != "b" {
		t.Fatalf("expected newest first, got %+v", records)
	}
	if !records[0].Date.Equal(base.Add(2 * time.Hour)) {
		t.Fatalf("unexpected date %s", records[0].Date)
	}

	best, ok, err := store.Best(ctx, "quiz-1")
	if err != nil || !ok || best != 90 {
		t.Fatalf("expected best 90, got %d %v %v", best, ok, err)
	}
	if _, ok, _ := store.Best(ctx, "quiz-2"); ok {
		t.Fatalf("expected no best score for an unplayed quiz")
	}
}

func TestHistoryStoreUpsertsSession(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	record := domain.ScoreRecord{SessionID: "s1", QuizID: "quiz-1", Date: time.Now(), TotalQuestions: 3, CorrectCount: 1, Percentage: 40}
	_ = store.SaveScore(ctx, record)
	record.CorrectCount, record.Percentage = 3, 100
	_ = store.SaveScore(ctx, record)

	records, _ := store.RecentScores(ctx, "quiz-1", 10)
	if len(records) != 1 || records[0].Percentage != 100 {
		t.Fatalf("expected a single updated record, got %+v", records)
	}
}
