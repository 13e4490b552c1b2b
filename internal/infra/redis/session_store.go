package redis

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"voice-quiz/internal/app"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Sessions own live timers and playback handles, so they stay in a local map;
// Redis only records which sessions are live on which quiz, with a TTL so a
// crashed instance's markers expire on their own.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Put(session *app.Session) {
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()

	ctx := context.Background()
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(session.ID()), session.QuizID(), s.ttl)
	pipe.SAdd(ctx, s.quizKey(session.QuizID()), session.ID())
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("redis: mark session %s live: %v", session.ID(), err)
	}
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok && s.ttl > 0 {
		// best-effort liveness refresh
		_ = s.client.Expire(context.Background(), s.key(sessionID), s.ttl).Err()
	}
	return session, ok
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return
	}

	ctx := context.Background()
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(sessionID))
	pipe.SRem(ctx, s.quizKey(session.QuizID()), sessionID)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("redis: clear session %s: %v", sessionID, err)
	}
}

// LiveSessions lists session ids recorded as live for a quiz across instances.
func (s *SessionStore) LiveSessions(ctx context.Context, quizID string) ([]string, error) {
	ids, err := s.client.SMembers(ctx, s.quizKey(quizID)).Result()
	if err != nil {
		return nil, err
	}
	live := ids[:0]
	for _, id := range ids {
		n, err := s.client.Exists(ctx, s.key(id)).Result()
		if err != nil {
			return nil, err
		}
		if n > 0 {
			live = append(live, id)
			continue
		}
		_ = s.client.SRem(ctx, s.quizKey(quizID), id).Err()
	}
	return live, nil
}

func (s *SessionStore) key(sessionID string) string {
	return "voicequiz:session:" + sessionID
}

func (s *SessionStore) quizKey(quizID string) string {
	return "voicequiz:quiz:" + quizID + ":sessions"
}
