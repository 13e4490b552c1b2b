package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"voice-quiz/internal/domain"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL               string `yaml:"ttl"`
		Dir               string `yaml:"dir"`
		ResponseTimeout   string `yaml:"response_timeout"`
		Shuffle           bool   `yaml:"shuffle"`
		ExcludeNoResponse bool   `yaml:"exclude_no_response"`
	} `yaml:"quiz"`
	Audio   AudioConfig `yaml:"audio"`
	History struct {
		SQLitePath string `yaml:"sqlite_path"`
		Limit      int    `yaml:"limit"`
	} `yaml:"history"`
	Speaker struct {
		FramesPerBuffer int `yaml:"frames_per_buffer"`
	} `yaml:"speaker"`
}

// AudioConfig lists the clip pools per category. Quizzes overrides any
// non-empty pool for a single quiz.
type AudioConfig struct {
	Correct         []string           `yaml:"correct"`
	Incorrect       []string           `yaml:"incorrect"`
	NoResponse      []string           `yaml:"no_response"`
	NextQuestion    []string           `yaml:"next_question"`
	Review          []string           `yaml:"review"`
	Waiting         []string           `yaml:"waiting"`
	Received        []string           `yaml:"received"`
	BackgroundMusic []string           `yaml:"background_music"`
	ScoreTiers      []domain.ScoreTier `yaml:"score_tiers"`
	Volumes         struct {
		Primary   float64 `yaml:"primary"`
		Secondary float64 `yaml:"secondary"`
		Transient float64 `yaml:"transient"`
	} `yaml:"volumes"`

	Quizzes map[string]AudioConfig `yaml:"quizzes"`
}

// Load reads YAML config from path. A few connection settings can be
// overridden from the environment (REDIS_ADDR, POSTGRES_URL, HISTORY_SQLITE_PATH).
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("POSTGRES_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("HISTORY_SQLITE_PATH"); v != "" {
		cfg.History.SQLitePath = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// SessionConfig builds the audio bundle for quizID, applying any per-quiz override.
func (c Config) SessionConfig(quizID string) (domain.SessionConfig, error) {
	audio := c.Audio
	if override, ok := c.Audio.Quizzes[quizID]; ok {
		audio = audio.merge(override)
	}
	if audio.empty() {
		return domain.SessionConfig{}, fmt.Errorf("no audio configured for quiz %q", quizID)
	}

	return domain.SessionConfig{
		CorrectAnswer:     refs(audio.Correct),
		IncorrectAnswer:   refs(audio.Incorrect),
		NoResponse:        refs(audio.NoResponse),
		NextQuestion:      refs(audio.NextQuestion),
		Review:            refs(audio.Review),
		Waiting:           refs(audio.Waiting),
		Received:          refs(audio.Received),
		BackgroundMusic:   refs(audio.BackgroundMusic),
		ScoreTiers:        audio.ScoreTiers,
		ResponseTimeout:   TTLDuration(c.Quiz.ResponseTimeout, domain.DefaultResponseTimeout),
		ExcludeNoResponse: c.Quiz.ExcludeNoResponse,
		Shuffle:           c.Quiz.Shuffle,
		PrimaryVolume:     audio.Volumes.Primary,
		SecondaryVolume:   audio.Volumes.Secondary,
		TransientVolume:   audio.Volumes.Transient,
	}, nil
}

func (a AudioConfig) merge(o AudioConfig) AudioConfig {
	pick := func(base, over []string) []string {
		if len(over) > 0 {
			return over
		}
		return base
	}
	a.Correct = pick(a.Correct, o.Correct)
	a.Incorrect = pick(a.Incorrect, o.Incorrect)
	a.NoResponse = pick(a.NoResponse, o.NoResponse)
	a.NextQuestion = pick(a.NextQuestion, o.NextQuestion)
	a.Review = pick(a.Review, o.Review)
	a.Waiting = pick(a.Waiting, o.Waiting)
	a.Received = pick(a.Received, o.Received)
	a.BackgroundMusic = pick(a.BackgroundMusic, o.BackgroundMusic)
	if len(o.ScoreTiers) > 0 {
		a.ScoreTiers = o.ScoreTiers
	}
	if o.Volumes.Primary > 0 {
		a.Volumes.Primary = o.Volumes.Primary
	}
	if o.Volumes.Secondary > 0 {
		a.Volumes.Secondary = o.Volumes.Secondary
	}
	if o.Volumes.Transient > 0 {
		a.Volumes.Transient = o.Volumes.Transient
	}
	return a
}

func (a AudioConfig) empty() bool {
	return len(a.Correct)+len(a.Incorrect)+len(a.NoResponse)+len(a.NextQuestion)+
		len(a.Review)+len(a.Waiting)+len(a.Received)+len(a.BackgroundMusic)+len(a.ScoreTiers) == 0
}

func refs(values []string) []domain.AssetRef {
	out := make([]domain.AssetRef, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, domain.AssetRef(v))
		}
	}
	return out
}

// SessionConfigLoader serves session configs from a loaded Config.
type SessionConfigLoader struct {
	cfg Config
}

func NewSessionConfigLoader(cfg Config) *SessionConfigLoader {
	return &SessionConfigLoader{cfg: cfg}
}

func (l *SessionConfigLoader) LoadSessionConfig(_ context.Context, quizID string) (domain.SessionConfig, error) {
	return l.cfg.SessionConfig(quizID)
}
