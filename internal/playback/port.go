package playback

import (
	"context"

	"voice-quiz/internal/domain"
)

// Token identifies one play request. Tokens increase monotonically per coordinator.
type Token uint64

// Outcome reports how a playback ended.
type Outcome string

const (
	OutcomeFinished Outcome = "finished"
	OutcomeFailed   Outcome = "failed"
)

// Request is what the coordinator asks a backend to play.
type Request struct {
	Token  Token
	Slot   domain.PlaybackSlot
	Asset  domain.AssetRef
	Volume float64
}

// Completion is reported by a backend when a playback ends on its own.
type Completion struct {
	Token   Token
	Slot    domain.PlaybackSlot
	Outcome Outcome
	Err     error
}

// Port is the platform audio backend the core plays through.
// Implementations may report completions from any goroutine.
type Port interface {
	Play(ctx context.Context, req Request) error
	Stop(slot domain.PlaybackSlot) error
	SetVolume(slot domain.PlaybackSlot, level float64) error
	OnCompletion(handler func(Completion))
}
