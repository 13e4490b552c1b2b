package memory

import (
	"context"
	"testing"

	"voice-quiz/internal/app"
	"voice-quiz/internal/domain"
	"voice-quiz/internal/playback"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	session := app.NewSession(app.SessionOptions{ID: "session-1", QuizID: "quiz-1", Port: nopPort{}})
	store.Put(session)
	if got, ok := store.Get("session-1"); !ok || got != session {
		t.Fatalf("expected session present")
	}
	if store.Len() != 1 {
		t.Fatalf("expected one session, got %d", store.Len())
	}

	store.Put(app.NewSession(app.SessionOptions{ID: "session-2", QuizID: "quiz-2", Port: nopPort{}}))
	live, err := store.LiveSessions(context.Background(), "quiz-1")
	if err != nil || len(live) != 1 || live[0] != "session-1" {
		t.Fatalf("expected session-1 live for quiz-1, got %v (%v)", live, err)
	}

	store.Delete("session-1")
	if _, ok := store.Get("session-1"); ok {
		t.Fatalf("expected session removed")
	}
}

func TestScoreStoreNewestFirst(t *testing.T) {
	store := NewScoreStore(2)
	ctx := context.Background()
	for i, pct := range []int{10, 20, 30} {
		_ = store.SaveScore(ctx, domain.ScoreRecord{SessionID: string(rune('a' + i)), QuizID: "quiz-1", Percentage: pct})
	}
	_ = store.SaveScore(ctx, domain.ScoreRecord{SessionID: "x", QuizID: "quiz-2", Percentage: 90})

	got, err := store.RecentScores(ctx, "quiz-1", 10)
	if err != nil {
		t.Fatalf("recent scores: %v", err)
	}
	if len(got) != 2 || got[0].Percentage != 30 || got[1].Percentage != 20 {
		t.Fatalf("unexpected records %+v", got)
	}

	got, _ = store.RecentScores(ctx, "quiz-1", 1)
	if len(got) != 1 || got[0].SessionID != "c" {
		t.Fatalf("expected limit to apply, got %+v", got)
	}
}

type nopPort struct{}

func (nopPort) Play(context.Context, playback.Request) error { return nil }
func (nopPort) Stop(domain.PlaybackSlot) error { return nil }
func (nopPort) SetVolume(domain.PlaybackSlot, float64) error { return nil }
func (nopPort) OnCompletion(func(playback.Completion)) {}
