package app

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"voice-quiz/internal/domain"
	"voice-quiz/internal/playback"
	"voice-quiz/internal/resolver"
)

// SessionRepository abstracts where live sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Put(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
	LiveSessions(ctx context.Context, quizID string) ([]string, error)
}

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// ConfigLoader supplies the audio bundle a quiz is played with.
type ConfigLoader interface {
	LoadSessionConfig(ctx context.Context, quizID string) (domain.SessionConfig, error)
}

// ScoreSink receives finished score records.
type ScoreSink interface {
	SaveScore(ctx context.Context, record domain.ScoreRecord) error
}

// ScoreStore is a sink that can also list what it stored, newest first.
type ScoreStore interface {
	ScoreSink
	RecentScores(ctx context.Context, quizID string, limit int) ([]domain.ScoreRecord, error)
}

// Update is a session notification fanned out to subscribers.
type Update struct {
	Type     string              `json:"type"`
	Snapshot *Snapshot           `json:"snapshot,omitempty"`
	Score    *domain.ScoreRecord `json:"score,omitempty"`
	Error    string              `json:"error,omitempty"`
}

const (
	UpdateState = "state"
	UpdateScore = "score"
	UpdateError = "error"
)

// QuizService contains the voice quiz use cases over many concurrent sessions.
type QuizService struct {
	sessions SessionRepository
	quizzes  QuizRepository
	configs  ConfigLoader
	scores   ScoreStore

	newID     func() string
	afterFunc func(time.Duration, func()) func() bool

	mu   sync.Mutex
	hubs map[string]*hub
}

func NewQuizService(store SessionRepository, quizzes QuizRepository, configs ConfigLoader, scores ScoreStore) *QuizService {
	return &QuizService{
		sessions: store,
		quizzes:  quizzes,
		configs:  configs,
		scores:   scores,
		newID:    uuid.NewString,
		hubs:     make(map[string]*hub),
	}
}

// WithTimer swaps the countdown timer used by new sessions (tests).
func (s *QuizService) WithTimer(afterFunc func(time.Duration, func()) func() bool) *QuizService {
	s.afterFunc = afterFunc
	return s
}

// StartSession loads the quiz and its audio config, then starts a session
// that plays through port. No session is created when either is missing.
func (s *QuizService) StartSession(ctx context.Context, quizID string, port playback.Port) (*Session, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if len(quiz.Questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	cfg, err := s.configs.LoadSessionConfig(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfigMissing, err)
	}

	id := s.newID()
	h := newHub()
	s.mu.Lock()
	s.hubs[id] = h
	s.mu.Unlock()

	session := NewSession(SessionOptions{
		ID:        id,
		QuizID:    quizID,
		Config:    cfg,
		Port:      port,
		Resolver:  resolver.New(cfg),
		Observer:  &serviceObserver{service: s, hub: h},
		AfterFunc: s.afterFunc,
	})
	s.sessions.Put(session)

	if err := session.Start(quiz.Questions); err != nil {
		s.drop(id)
		return nil, err
	}
	log.Printf("session %s: started quiz %s with %d questions", id, quizID, len(quiz.Questions))
	return session, nil
}

// Submit delivers a response to a session.
func (s *QuizService) Submit(_ context.Context, sessionID, response string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	session.SubmitResponse(response)
	return nil
}

// Control applies a named control: pause, resume, repeat, skip, stop or reset.
func (s *QuizService) Control(_ context.Context, sessionID, action string) error {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "pause":
		session.Pause()
	case "resume":
		session.Resume()
	case "repeat":
		session.RepeatQuestion()
	case "skip":
		session.Skip()
	case "stop":
		session.Stop()
	case "reset":
		session.Reset()
	default:
		return fmt.Errorf("%w: unknown control %q", domain.ErrInvalidTransition, action)
	}
	return nil
}

// Snapshot returns the current view of a session.
func (s *QuizService) Snapshot(_ context.Context, sessionID string) (Snapshot, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return Snapshot{}, domain.ErrSessionNotFound
	}
	return session.Snapshot(), nil
}

// Subscribe returns a channel that receives updates for a session.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *QuizService) Subscribe(_ context.Context, sessionID string) (<-chan Update, func(), error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	s.mu.Lock()
	h, ok := s.hubs[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	snap := session.Snapshot()
	ch, cancel := h.subscribe(Update{Type: UpdateState, Snapshot: &snap})
	return ch, cancel, nil
}

// Close stops a session, handing off its score, and forgets it.
func (s *QuizService) Close(_ context.Context, sessionID string) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return
	}
	if session.Snapshot().State != domain.StateIdle {
		session.Stop()
	}
	s.drop(sessionID)
}

// LiveSessions lists the ids of sessions currently playing quizID.
func (s *QuizService) LiveSessions(ctx context.Context, quizID string) ([]string, error) {
	return s.sessions.LiveSessions(ctx, quizID)
}

// RecentScores lists stored results for a quiz, newest first.
func (s *QuizService) RecentScores(ctx context.Context, quizID string, limit int) ([]domain.ScoreRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.scores.RecentScores(ctx, quizID, limit)
}

func (s *QuizService) drop(sessionID string) {
	s.sessions.Delete(sessionID)
	s.mu.Lock()
	h, ok := s.hubs[sessionID]
	delete(s.hubs, sessionID)
	s.mu.Unlock()
	if ok {
		h.close()
	}
}

func (s *QuizService) saveScore(record domain.ScoreRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.scores.SaveScore(ctx, record); err != nil {
		log.Printf("session %s: save score: %v", record.SessionID, err)
	}
}

// serviceObserver persists finished scores and fans notifications out.
type serviceObserver struct {
	service *QuizService
	hub     *hub
}

func (o *serviceObserver) StateChanged(snap Snapshot) {
	o.hub.broadcast(Update{Type: UpdateState, Snapshot: &snap})
}

func (o *serviceObserver) Finished(record domain.ScoreRecord) {
	o.service.saveScore(record)
	o.hub.broadcast(Update{Type: UpdateScore, Score: &record})
}

func (o *serviceObserver) Fault(err error) {
	o.hub.broadcast(Update{Type: UpdateError, Error: err.Error()})
}

// hub fans updates out to subscribers, dropping the oldest queued update
// for a subscriber that falls behind.
type hub struct {
	mu          sync.Mutex
	closed      bool
	subscribers map[chan Update]struct{}
}

func newHub() *hub {
	return &hub{subscribers: make(map[chan Update]struct{})}
}

func (h *hub) subscribe(initial Update) (<-chan Update, func()) {
	ch := make(chan Update, 16)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subscribers[ch] = struct{}{}
	ch <- initial
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

func (h *hub) broadcast(u Update) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- u:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- u
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for ch := range h.subscribers {
		delete(h.subscribers, ch)
		close(ch)
	}
}
