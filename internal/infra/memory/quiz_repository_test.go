package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"voice-quiz/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryExpires(t *testing.T) {
	loader := &countingLoader{QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()})}
	repo := NewQuizRepository(loader, time.Minute)
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetQuiz(context.Background(), "quiz-1")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetQuiz(context.Background(), "quiz-1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}

	repo.Invalidate("quiz-1")
	_, _ = repo.GetQuiz(context.Background(), "quiz-1")
	if loader.calls != 3 {
		t.Fatalf("expected reload after invalidate, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryReturnsCopies(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(map[string]domain.Quiz{"quiz-1": sampleQuiz()}), time.Minute)

	first, _ := repo.GetQuiz(context.Background(), "quiz-1")
	first.Questions[0].Presentations = 3
	first.Questions[0].Options[0].Text = "changed"

	second, _ := repo.GetQuiz(context.Background(), "quiz-1")
	if second.Questions[0].Presentations != 0 || second.Questions[0].Options[0].Text != "3" {
		t.Fatalf("cached quiz was mutated: %+v", second.Questions[0])
	}
}

func TestQuizRepositoryUnknownQuiz(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(nil), time.Minute)
	if _, err := repo.GetQuiz(context.Background(), "missing"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected ErrQuizNotFound, got %v", err)
	}
}

func TestFileQuizLoader(t *testing.T) {
	dir := t.TempDir()
	doc := `
title: Capitals
questions:
  - prompt: What is the capital of France?
    options:
      - {key: a, text: Lyon}
      - {key: b, text: Paris, correct: true}
    assets:
      question: audio/q1.mp3
      correction: audio/q1-correction.mp3
  - id: second
    prompt: What is the capital of Italy?
    options:
      - {key: a, text: Rome, correct: true}
    assets:
      question: https://cdn.example.com/q2.mp3
`
	if err := os.WriteFile(filepath.Join(dir, "capitals.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write quiz: %v", err)
	}
	loader := NewFileQuizLoader(dir)

	quiz, err := loader.LoadQuiz(context.Background(), "capitals")
	if err != nil {
		t.Fatalf("load quiz: %v", err)
	}
	if quiz.ID != "capitals" || len(quiz.Questions) != 2 {
		t.Fatalf("unexpected quiz %+v", quiz)
	}
	if quiz.Questions[0].ID != "q1" || quiz.Questions[1].ID != "second" {
		t.Fatalf("unexpected question ids %q %q", quiz.Questions[0].ID, quiz.Questions[1].ID)
	}
	if opt, ok := quiz.Questions[0].CorrectOption(); !ok || opt.Key != "b" {
		t.Fatalf("expected b to be correct, got %+v", opt)
	}
	if quiz.Questions[0].Assets.Correction != "audio/q1-correction.mp3" {
		t.Fatalf("unexpected assets %+v", quiz.Questions[0].Assets)
	}

	for _, id := range []string{"missing", "../capitals", ""} {
		if _, err := loader.LoadQuiz(context.Background(), id); !errors.Is(err, domain.ErrQuizNotFound) {
			t.Fatalf("LoadQuiz(%q): expected ErrQuizNotFound, got %v", id, err)
		}
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID: "quiz-1",
		Questions: []domain.Question{
			{
				ID:     "q1",
				Prompt: "What is 2 + 2?",
				Options: []domain.Option{
					{Key: "a", Text: "3"},
					{Key: "b", Text: "4", Correct: true},
				},
				Assets: domain.QuestionAssets{Question: "q1.mp3"},
			},
		},
	}
}
