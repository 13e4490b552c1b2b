package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a quiz session has not been initialized.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNoQuestions rejects starting a session without questions.
	ErrNoQuestions = errors.New("quiz has no questions")
	// ErrConfigMissing means no session config could be loaded; the session never starts.
	ErrConfigMissing = errors.New("session config missing")
	// ErrAssetUnresolved means an action had nothing to play; the transition proceeds.
	ErrAssetUnresolved = errors.New("audio asset unresolved")
	// ErrPlaybackFailed is reported when the backend could not play an asset.
	ErrPlaybackFailed = errors.New("playback failed")
	// ErrInvalidTransition is reported when a control arrives in the wrong state.
	ErrInvalidTransition = errors.New("invalid transition request")
	// ErrStaleCompletion marks a completion for a superseded playback token.
	ErrStaleCompletion = errors.New("stale playback completion")
)
