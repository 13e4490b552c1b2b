package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"voice-quiz/internal/domain"
)

const sampleYAML = `
server:
  port: "9090"
postgres:
  url: postgres://quiz@localhost/quiz
quiz:
  ttl: 5m
  response_timeout: 7s
  shuffle: true
audio:
  correct: [audio/correct-1.mp3, " audio/correct-2.mp3 "]
  incorrect: [audio/wrong.mp3]
  no_response: [audio/silence.mp3]
  background_music: [audio/music.mp3]
  score_tiers:
    - {label: "100%", asset: audio/score-100.mp3}
    - {label: "80", asset: audio/score-80.mp3}
  volumes:
    secondary: 0.2
  quizzes:
    capitals:
      correct: [audio/capitals-correct.mp3]
      volumes:
        secondary: 0.4
history:
  sqlite_path: data/history.db
`

func TestLoadAndSessionConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("POSTGRES_URL", "")
	t.Setenv("HISTORY_SQLITE_PATH", "override.db")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9090" || cfg.Postgres.URL == "" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.History.SQLitePath != "override.db" {
		t.Fatalf("expected env override, got %q", cfg.History.SQLitePath)
	}

	sc, err := NewSessionConfigLoader(cfg).LoadSessionConfig(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("session config: %v", err)
	}
	if len(sc.CorrectAnswer) != 2 || sc.CorrectAnswer[1] != "audio/correct-2.mp3" {
		t.Fatalf("unexpected correct pool %v", sc.CorrectAnswer)
	}
	if sc.ResponseTimeout != 7*time.Second || !sc.Shuffle {
		t.Fatalf("unexpected quiz settings %+v", sc)
	}
	if len(sc.ScoreTiers) != 2 || sc.SecondaryVolume != 0.2 {
		t.Fatalf("unexpected tiers or volume %+v", sc)
	}

	capitals, err := cfg.SessionConfig("capitals")
	if err != nil {
		t.Fatalf("capitals config: %v", err)
	}
	if len(capitals.CorrectAnswer) != 1 || capitals.CorrectAnswer[0] != "audio/capitals-correct.mp3" {
		t.Fatalf("expected override pool, got %v", capitals.CorrectAnswer)
	}
	if len(capitals.IncorrectAnswer) != 1 || capitals.SecondaryVolume != 0.4 {
		t.Fatalf("expected base pools kept, got %+v", capitals)
	}
}

func TestSessionConfigMissingAudio(t *testing.T) {
	var cfg Config
	if _, err := cfg.SessionConfig("quiz-1"); err == nil {
		t.Fatalf("expected error without audio")
	}
}

func TestSessionConfigDefaultTimeout(t *testing.T) {
	var cfg Config
	cfg.Audio.Review = []string{"review.mp3"}
	sc, err := cfg.SessionConfig("quiz-1")
	if err != nil {
		t.Fatalf("session config: %v", err)
	}
	if sc.ResponseTimeout != domain.DefaultResponseTimeout {
		t.Fatalf("expected default timeout, got %s", sc.ResponseTimeout)
	}
}

func TestTTLDuration(t *testing.T) {
	if got := TTLDuration("", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback, got %s", got)
	}
	if got := TTLDuration("bogus", time.Minute); got != time.Minute {
		t.Fatalf("expected fallback on parse error, got %s", got)
	}
	if got := TTLDuration("90s", time.Minute); got != 90*time.Second {
		t.Fatalf("expected 90s, got %s", got)
	}
}
