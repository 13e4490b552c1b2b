package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"voice-quiz/internal/app"
	"voice-quiz/internal/domain"
	"voice-quiz/internal/infra/memory"
	"voice-quiz/internal/playback"
)

func TestStartSessionPlaysToScore(t *testing.T) {
	ctx := context.Background()
	service, scores := newTestService()

	session, err := service.StartSession(ctx, "quiz-1", &autoPort{})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	if session.ID() == "" || session.QuizID() != "quiz-1" {
		t.Fatalf("unexpected session identity %q/%q", session.ID(), session.QuizID())
	}

	snap, err := service.Snapshot(ctx, session.ID())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.State != domain.StateAwaitingResponse {
		t.Fatalf("expected awaiting response, got %s", snap.State)
	}

	if err := service.Submit(ctx, session.ID(), "four"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	records, err := service.RecentScores(ctx, "quiz-1", 5)
	if err != nil {
		t.Fatalf("recent scores: %v", err)
	}
	if len(records) != 1 || records[0].Percentage != 100 || records[0].SessionID != session.ID() {
		t.Fatalf("expected saved 100%% record, got %+v", records)
	}
	if stored, _ := scores.RecentScores(ctx, "quiz-1", 5); len(stored) != 1 {
		t.Fatalf("expected score sink to receive the record")
	}
}

func TestSubscribeReceivesUpdates(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	session, err := service.StartSession(ctx, "quiz-1", &autoPort{})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	ch, cancel, err := service.Subscribe(ctx, session.ID())
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	defer cancel()

	initial := <-ch
	if initial.Type != app.UpdateState || initial.Snapshot.State != domain.StateAwaitingResponse {
		t.Fatalf("unexpected initial update %+v", initial)
	}

	_ = service.Submit(ctx, session.ID(), "3")

	var sawScore bool
	timeout := time.After(2 * time.Second)
	for !sawScore {
		select {
		case u := <-ch:
			if u.Type == app.UpdateScore {
				sawScore = true
				if u.Score.CorrectCount != 0 || u.Score.Percentage != 0 {
					t.Fatalf("expected zero score, got %+v", u.Score)
				}
			}
		case <-timeout:
			t.Fatalf("no score update received")
		}
	}
}

func TestStartSessionErrors(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	if _, err := service.StartSession(ctx, "unknown", &autoPort{}); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz error, got %v", err)
	}
	if _, err := service.StartSession(ctx, "no-audio", &autoPort{}); !errors.Is(err, domain.ErrConfigMissing) {
		t.Fatalf("expected config error, got %v", err)
	}
	if _, err := service.StartSession(ctx, "empty", &autoPort{}); !errors.Is(err, domain.ErrNoQuestions) {
		t.Fatalf("expected no questions error, got %v", err)
	}
}

func TestControlsRequireSession(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService()

	if err := service.Submit(ctx, "missing", "a"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session error, got %v", err)
	}
	if err := service.Control(ctx, "missing", "pause"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session error, got %v", err)
	}
	if _, _, err := service.Subscribe(ctx, "missing"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session error, got %v", err)
	}

	session, _ := service.StartSession(ctx, "quiz-1", &autoPort{})
	if err := service.Control(ctx, session.ID(), "rewind"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestCloseStopsAndForgets(t *testing.T) {
	ctx := context.Background()
	service, scores := newTestService()

	session, _ := service.StartSession(ctx, "quiz-1", &autoPort{})
	ch, _, _ := service.Subscribe(ctx, session.ID())

	service.Close(ctx, session.ID())

	if _, err := service.Snapshot(ctx, session.ID()); err != domain.ErrSessionNotFound {
		t.Fatalf("expected session removed, got %v", err)
	}
	if stored, _ := scores.RecentScores(ctx, "quiz-1", 5); len(stored) != 1 {
		t.Fatalf("expected stop to hand off the score, got %d", len(stored))
	}
	for range ch {
	}
}

func newTestService() (*app.QuizService, *memory.ScoreStore) {
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(map[string]domain.Quiz{
		"quiz-1": {
			ID: "quiz-1",
			Questions: []domain.Question{
				{
					ID:     "q1",
					Prompt: "What is 2 + 2?",
					Options: []domain.Option{
						{Key: "a", Text: "three"},
						{Key: "b", Text: "four", Correct: true},
					},
					Assets: domain.QuestionAssets{Question: "q1.mp3"},
				},
			},
		},
		"no-audio": {ID: "no-audio", Questions: []domain.Question{{ID: "q1"}}},
		"empty":    {ID: "empty"},
	}), 5*time.Minute)

	scores := memory.NewScoreStore(10)
	service := app.NewQuizService(memory.NewSessionStore(), quizRepo, staticConfigs{
		"quiz-1": {
			CorrectAnswer:   []domain.AssetRef{"correct.mp3"},
			IncorrectAnswer: []domain.AssetRef{"wrong.mp3"},
			ScoreTiers:      []domain.ScoreTier{{Label: "100", Asset: "score-100.mp3"}},
		},
		"empty": {Review: []domain.AssetRef{"review.mp3"}},
	}, scores)
	service.WithTimer(func(time.Duration, func()) func() bool { return func() bool { return true } })
	return service, scores
}

type staticConfigs map[string]domain.SessionConfig

func (c staticConfigs) LoadSessionConfig(_ context.Context, quizID string) (domain.SessionConfig, error) {
	cfg, ok := c[quizID]
	if !ok {
		return domain.SessionConfig{}, errors.New("no audio configured")
	}
	return cfg, nil
}

// autoPort finishes every playback as soon as it starts.
type autoPort struct {
	mu      sync.Mutex
	handler func(playback.Completion)
}

func (p *autoPort) Play(_ context.Context, req playback.Request) error {
	p.mu.Lock()
	handler := p.handler
	p.mu.Unlock()
	handler(playback.Completion{Token: req.Token, Slot: req.Slot, Outcome: playback.OutcomeFinished})
	return nil
}

func (p *autoPort) Stop(domain.PlaybackSlot) error { return nil }

func (p *autoPort) SetVolume(domain.PlaybackSlot, float64) error { return nil }

func (p *autoPort) OnCompletion(handler func(playback.Completion)) {
	p.mu.Lock()
	p.handler = handler
	p.mu.Unlock()
}
