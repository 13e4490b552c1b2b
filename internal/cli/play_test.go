package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"voice-quiz/internal/app"
	"voice-quiz/internal/domain"
)

func TestPrintUpdatesStopsOnScore(t *testing.T) {
	updates := make(chan app.Update, 4)
	updates <- app.Update{Type: app.UpdateState, Snapshot: &app.Snapshot{State: domain.StatePlayingQuestion, Cursor: 0, Total: 2, Prompt: "What is 2 + 2?"}}
	updates <- app.Update{Type: app.UpdateError, Error: "invalid transition"}
	updates <- app.Update{Type: app.UpdateScore, Score: &domain.ScoreRecord{TotalQuestions: 2, CorrectCount: 1, Percentage: 50}}

	var out bytes.Buffer
	err := printUpdates(context.Background(), &out, updates)
	if !errors.Is(err, errSessionOver) {
		t.Fatalf("expected session over, got %v", err)
	}
	for _, want := range []string{"[1/2] What is 2 + 2?", "! invalid transition", "score: 1 of 2 correct, 50%"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("expected %q in output:\n%s", want, out.String())
		}
	}
}

func TestPrintUpdatesReportsReset(t *testing.T) {
	updates := make(chan app.Update, 3)
	updates <- app.Update{Type: app.UpdateState, Snapshot: &app.Snapshot{State: domain.StateIdle}}
	updates <- app.Update{Type: app.UpdateState, Snapshot: &app.Snapshot{State: domain.StateAwaitingResponse}}
	updates <- app.Update{Type: app.UpdateState, Snapshot: &app.Snapshot{State: domain.StateIdle}}

	var out bytes.Buffer
	if err := printUpdates(context.Background(), &out, updates); !errors.Is(err, errSessionOver) {
		t.Fatalf("expected session over, got %v", err)
	}
	if !strings.Contains(out.String(), "quiz reset") {
		t.Fatalf("expected reset notice, got:\n%s", out.String())
	}
}

func TestPrintUpdatesReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := printUpdates(ctx, &bytes.Buffer{}, make(chan app.Update)); err != nil {
		t.Fatalf("expected nil on cancel, got %v", err)
	}
}
