package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"voice-quiz/internal/app"
	"voice-quiz/internal/domain"
	"voice-quiz/internal/playback"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)
	session := app.NewSession(app.SessionOptions{ID: "session-1", QuizID: "quiz-1", Port: nopPort{}})

	store.Put(session)
	if !mr.Exists("voicequiz:session:session-1") {
		t.Fatalf("expected redis key to be set")
	}
	if got, _ := mr.Get("voicequiz:session:session-1"); got != "quiz-1" {
		t.Fatalf("expected marker to name the quiz, got %q", got)
	}
	if got, ok := store.Get("session-1"); !ok || got != session {
		t.Fatalf("expected local session")
	}

	live, err := store.LiveSessions(context.Background(), "quiz-1")
	if err != nil || len(live) != 1 || live[0] != "session-1" {
		t.Fatalf("expected one live session, got %v (%v)", live, err)
	}

	store.Delete("session-1")
	if mr.Exists("voicequiz:session:session-1") {
		t.Fatalf("expected redis key to be removed")
	}
	if _, ok := store.Get("session-1"); ok {
		t.Fatalf("expected local session removed")
	}
}

func TestLiveSessionsPrunesExpiredMarkers(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)
	store.Put(app.NewSession(app.SessionOptions{ID: "session-1", QuizID: "quiz-1", Port: nopPort{}}))

	mr.FastForward(2 * time.Minute)

	live, err := store.LiveSessions(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("live sessions: %v", err)
	}
	if len(live) != 0 {
		t.Fatalf("expected expired marker pruned, got %v", live)
	}
	if ok, _ := mr.SIsMember("voicequiz:quiz:quiz-1:sessions", "session-1"); ok {
		t.Fatalf("expected set member removed")
	}
}

type nopPort struct{}

func (nopPort) Play(context.Context, playback.Request) error { return nil }
func (nopPort) Stop(domain.PlaybackSlot) error { return nil }
func (nopPort) SetVolume(domain.PlaybackSlot, float64) error { return nil }
func (nopPort) OnCompletion(func(playback.Completion)) {}
