package memory

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"
	"voice-quiz/internal/domain"
)

// QuizLoader fetches quiz content from a backing store (Postgres, files).
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizRepository caches quizzes with TTL to avoid repeated loads.
// Questions carry per-session counters, so every read returns a fresh copy.
type QuizRepository struct {
	loader QuizLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizRepository(loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuiz),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.cached(quizID); ok {
		return quiz, nil
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		if quiz, ok := r.cached(quizID); ok {
			return quiz, nil
		}
		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		r.mu.Lock()
		r.cache[quizID] = cachedQuiz{
			quiz:      quiz,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return cloneQuiz(result.(domain.Quiz)), nil
}

// Invalidate drops a cached quiz so the next read reloads it.
func (r *QuizRepository) Invalidate(quizID string) {
	r.mu.Lock()
	delete(r.cache, quizID)
	r.mu.Unlock()
}

func (r *QuizRepository) cached(quizID string) (domain.Quiz, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.cache[quizID]
	if !ok || !entry.expiresAt.After(r.clock()) {
		return domain.Quiz{}, false
	}
	return cloneQuiz(entry.quiz), true
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func cloneQuiz(q domain.Quiz) domain.Quiz {
	questions := make([]domain.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append([]domain.Option(nil), question.Options...)
		questions[i] = question
	}
	q.Questions = questions
	return q
}

// StaticQuizLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticQuizLoader struct {
	quizzes map[string]domain.Quiz
}

func NewStaticQuizLoader(quizzes map[string]domain.Quiz) *StaticQuizLoader {
	return &StaticQuizLoader{quizzes: quizzes}
}

func (l *StaticQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := l.quizzes[quizID]; ok {
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// FileQuizLoader reads quizzes from <dir>/<quizID>.yaml, .yml or .json.
type FileQuizLoader struct {
	dir string
}

func NewFileQuizLoader(dir string) *FileQuizLoader {
	return &FileQuizLoader{dir: dir}
}

func (l *FileQuizLoader) LoadQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	if quizID == "" || strings.ContainsAny(quizID, `/\`) || strings.Contains(quizID, "..") {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	for _, ext := range []string{".yaml", ".yml", ".json"} {
		path := filepath.Join(l.dir, quizID+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		quiz, err := LoadQuizFile(path)
		if err != nil {
			return domain.Quiz{}, err
		}
		if quiz.ID == "" {
			quiz.ID = quizID
		}
		return quiz, nil
	}
	return domain.Quiz{}, domain.ErrQuizNotFound
}

// LoadQuizFile parses a quiz document. YAML is a superset of JSON, so both work.
func LoadQuizFile(path string) (domain.Quiz, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("read quiz %s: %w", path, err)
	}
	var doc quizDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return domain.Quiz{}, fmt.Errorf("parse quiz %s: %w", path, err)
	}
	return doc.quiz(), nil
}

type quizDocument struct {
	ID        string `yaml:"id"`
	Title     string `yaml:"title"`
	Questions []struct {
		ID      string `yaml:"id"`
		Prompt  string `yaml:"prompt"`
		Options []struct {
			Key     string `yaml:"key"`
			Text    string `yaml:"text"`
			Correct bool   `yaml:"correct"`
		} `yaml:"options"`
		Correction string `yaml:"correction"`
		Assets     struct {
			Question   string `yaml:"question"`
			Correction string `yaml:"correction"`
			Repeat     string `yaml:"repeat"`
		} `yaml:"assets"`
	} `yaml:"questions"`
}

func (d quizDocument) quiz() domain.Quiz {
	quiz := domain.Quiz{ID: d.ID, Title: d.Title}
	for i, q := range d.Questions {
		question := domain.Question{
			ID:         q.ID,
			Prompt:     q.Prompt,
			Correction: q.Correction,
			Assets: domain.QuestionAssets{
				Question:   domain.AssetRef(q.Assets.Question),
				Correction: domain.AssetRef(q.Assets.Correction),
				Repeat:     domain.AssetRef(q.Assets.Repeat),
			},
		}
		if question.ID == "" {
			question.ID = fmt.Sprintf("q%d", i+1)
		}
		for _, opt := range q.Options {
			question.Options = append(question.Options, domain.Option{Key: opt.Key, Text: opt.Text, Correct: opt.Correct})
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz
}
