package resolver

import (
	"math/rand"
	"testing"

	"voice-quiz/internal/domain"
)

func TestResolveIsDeterministicForSeed(t *testing.T) {
	cfg := domain.SessionConfig{
		CorrectAnswer: []domain.AssetRef{"a.mp3", "b.mp3", "c.mp3", "d.mp3", "e.mp3"},
	}

	first := NewWithSource(cfg, rand.New(rand.NewSource(42)))
	second := NewWithSource(cfg, rand.New(rand.NewSource(42)))

	for i := 0; i < 20; i++ {
		a, okA := first.Resolve(domain.PlayCorrectCallout())
		b, okB := second.Resolve(domain.PlayCorrectCallout())
		if !okA || !okB {
			t.Fatalf("expected assets from non-empty pool")
		}
		if a != b {
			t.Fatalf("call %d: same seed picked %q and %q", i, a, b)
		}
	}
}

func TestResolveEmptyPoolReturnsNothing(t *testing.T) {
	r := NewWithSource(domain.SessionConfig{}, rand.New(rand.NewSource(1)))

	for _, action := range []domain.AudioAction{
		domain.PlayCorrectCallout(),
		domain.PlayWrongCallout(),
		domain.PlayNoResponseCallout(),
		domain.NextQuestion(),
		domain.Reviewing(),
		domain.WaitingForResponse(),
		domain.ReceivedResponse(),
		domain.PlayBackgroundMusic(),
		domain.GiveScore(80),
	} {
		if asset, ok := r.Resolve(action); ok {
			t.Fatalf("%s: expected no asset, got %q", action, asset)
		}
	}
}

func TestResolveUsesCategoryPool(t *testing.T) {
	cfg := domain.SessionConfig{
		CorrectAnswer:   []domain.AssetRef{"correct.mp3"},
		IncorrectAnswer: []domain.AssetRef{"wrong.mp3"},
		NoResponse:      []domain.AssetRef{"silence.mp3"},
		NextQuestion:    []domain.AssetRef{"next.mp3"},
		Review:          []domain.AssetRef{"review.mp3"},
		BackgroundMusic: []domain.AssetRef{"music.mp3"},
	}
	r := NewWithSource(cfg, rand.New(rand.NewSource(1)))

	cases := map[domain.AudioAction]domain.AssetRef{
		domain.PlayCorrectCallout():    "correct.mp3",
		domain.PlayWrongCallout():      "wrong.mp3",
		domain.PlayNoResponseCallout(): "silence.mp3",
		domain.NextQuestion():          "next.mp3",
		domain.Reviewing():             "review.mp3",
		domain.PlayBackgroundMusic():   "music.mp3",
	}
	for action, want := range cases {
		got, ok := r.Resolve(action)
		if !ok || got != want {
			t.Fatalf("%s: expected %q, got %q (ok=%v)", action, want, got, ok)
		}
	}
}

func TestResolveExplicitAssets(t *testing.T) {
	r := NewWithSource(domain.SessionConfig{}, rand.New(rand.NewSource(1)))

	got, ok := r.Resolve(domain.PlayQuestion("https://cdn.example.com/quiz 1/q1.mp3"))
	if !ok || got != "https://cdn.example.com/quiz%201/q1.mp3" {
		t.Fatalf("expected escaped url, got %q (ok=%v)", got, ok)
	}

	got, ok = r.Resolve(domain.PlayAnswer("assets/./q1-correction.mp3"))
	if !ok || got != "assets/q1-correction.mp3" {
		t.Fatalf("expected cleaned path, got %q", got)
	}

	if _, ok := r.Resolve(domain.PlayFeedback("bad\x00name.mp3")); ok {
		t.Fatalf("expected control characters to be rejected")
	}
	if _, ok := r.Resolve(domain.PlayQuestion("")); ok {
		t.Fatalf("expected empty asset to resolve to nothing")
	}
	if _, ok := r.Resolve(domain.PlayQuestion("ftp://example.com/q.mp3")); ok {
		t.Fatalf("expected unsupported scheme to be rejected")
	}
}

func TestResolveGiveScoreExactTier(t *testing.T) {
	cfg := domain.SessionConfig{
		ScoreTiers: []domain.ScoreTier{
			{Label: "100", Asset: "score-100.mp3"},
			{Label: "80%", Asset: "score-80.mp3"},
			{Label: "eighty", Asset: "ignored.mp3"},
		},
	}
	r := NewWithSource(cfg, rand.New(rand.NewSource(1)))

	if got, ok := r.Resolve(domain.GiveScore(80)); !ok || got != "score-80.mp3" {
		t.Fatalf("expected 80 tier, got %q", got)
	}
	if got, ok := r.Resolve(domain.GiveScore(100)); !ok || got != "score-100.mp3" {
		t.Fatalf("expected 100 tier, got %q", got)
	}
	if _, ok := r.Resolve(domain.GiveScore(70)); ok {
		t.Fatalf("expected no tier for 70")
	}
}

func TestResolveControlActionsHaveNoAsset(t *testing.T) {
	cfg := domain.SessionConfig{CorrectAnswer: []domain.AssetRef{"x.mp3"}}
	r := NewWithSource(cfg, rand.New(rand.NewSource(1)))
	if _, ok := r.Resolve(domain.Pause()); ok {
		t.Fatalf("pause must not resolve to an asset")
	}
	if _, ok := r.Resolve(domain.Reset()); ok {
		t.Fatalf("reset must not resolve to an asset")
	}
}

func TestAudioActionEquality(t *testing.T) {
	if domain.PlayQuestion("a.mp3") == domain.PlayQuestion("b.mp3") {
		t.Fatalf("play-question actions with different assets must differ")
	}
	if domain.PlayQuestion("a.mp3") != domain.PlayQuestion("a.mp3") {
		t.Fatalf("identical play-question actions must be equal")
	}
	if domain.PlayQuestion("a.mp3") == domain.PlayAnswer("a.mp3") {
		t.Fatalf("different variants must differ")
	}
}
