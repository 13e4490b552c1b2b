package resolver

import (
	"log"
	"math/rand"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"voice-quiz/internal/domain"
)

// Source picks an index in [0, n). *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// Resolver turns an AudioAction into a concrete asset using a session config.
type Resolver struct {
	cfg domain.SessionConfig
	rnd Source
}

// New builds a resolver with a time-seeded random source.
func New(cfg domain.SessionConfig) *Resolver {
	return NewWithSource(cfg, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithSource allows deterministic selection in tests.
func NewWithSource(cfg domain.SessionConfig, rnd Source) *Resolver {
	return &Resolver{cfg: cfg, rnd: rnd}
}

// Resolve returns the asset to play for action, or false when there is nothing to play.
func (r *Resolver) Resolve(action domain.AudioAction) (domain.AssetRef, bool) {
	switch action.Kind {
	case domain.ActionPlayCorrectCallout:
		return r.pick(r.cfg.CorrectAnswer)
	case domain.ActionPlayWrongCallout:
		return r.pick(r.cfg.IncorrectAnswer)
	case domain.ActionPlayNoResponseCallout:
		return r.pick(r.cfg.NoResponse)
	case domain.ActionWaitingForResponse:
		return r.pick(r.cfg.Waiting)
	case domain.ActionReceivedResponse:
		return r.pick(r.cfg.Received)
	case domain.ActionNextQuestion:
		return r.pick(r.cfg.NextQuestion)
	case domain.ActionReviewing:
		return r.pick(r.cfg.Review)
	case domain.ActionPlayBackgroundMusic:
		return r.pick(r.cfg.BackgroundMusic)
	case domain.ActionPlayQuestion, domain.ActionPlayAnswer, domain.ActionPlayFeedback:
		return Sanitize(action.Asset)
	case domain.ActionGiveScore:
		return r.scoreTier(action.Score)
	case domain.ActionPause, domain.ActionReset:
		return "", false
	default:
		log.Printf("resolver: unknown action kind %d", action.Kind)
		return "", false
	}
}

func (r *Resolver) pick(pool []domain.AssetRef) (domain.AssetRef, bool) {
	if len(pool) == 0 {
		return "", false
	}
	return Sanitize(pool[r.rnd.Intn(len(pool))])
}

func (r *Resolver) scoreTier(value int) (domain.AssetRef, bool) {
	for _, tier := range r.cfg.ScoreTiers {
		label := strings.TrimSuffix(strings.TrimSpace(tier.Label), "%")
		n, err := strconv.Atoi(strings.TrimSpace(label))
		if err != nil || n != value {
			continue
		}
		return Sanitize(tier.Asset)
	}
	return "", false
}

// Sanitize validates an asset reference and escapes URL paths.
// Local paths are cleaned; references carrying control characters are rejected.
func Sanitize(ref domain.AssetRef) (domain.AssetRef, bool) {
	raw := strings.TrimSpace(string(ref))
	if raw == "" {
		return "", false
	}
	for _, r := range raw {
		if unicode.IsControl(r) {
			return "", false
		}
	}

	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil || u.Host == "" && u.Scheme != "file" {
			return "", false
		}
		switch u.Scheme {
		case "http", "https", "file":
			return domain.AssetRef(u.String()), true
		default:
			return "", false
		}
	}
	return domain.AssetRef(filepath.Clean(raw)), true
}
