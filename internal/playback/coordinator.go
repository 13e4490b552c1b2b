package playback

import (
	"context"
	"fmt"
	"log"
	"sync"

	"voice-quiz/internal/domain"
)

// EventKind is the session-level meaning of a finished playback.
type EventKind int

const (
	// EventNarrationFinished: primary slot finished while a quiz is active.
	EventNarrationFinished EventKind = iota + 1
	// EventReviewFinished: primary slot finished outside the active quiz.
	EventReviewFinished
	// EventFeedbackFinished: transient slot finished.
	EventFeedbackFinished
)

func (k EventKind) String() string {
	switch k {
	case EventNarrationFinished:
		return "narration_finished"
	case EventReviewFinished:
		return "review_finished"
	case EventFeedbackFinished:
		return "feedback_finished"
	default:
		return "unknown"
	}
}

// Event is emitted to the session for every non-stale completion on a
// primary or transient slot.
type Event struct {
	Kind   EventKind
	Token  Token
	Asset  domain.AssetRef
	Failed bool
	Err    error
}

type playing struct {
	token Token
	asset domain.AssetRef
}

// Coordinator owns the playback slots and turns backend completions into
// session events.
type Coordinator struct {
	port     Port
	dispatch func(Event)

	mu         sync.Mutex
	next       Token
	active     map[domain.PlaybackSlot]playing
	volume     map[domain.PlaybackSlot]float64
	quizActive bool
}

// DefaultVolumes keeps background music attenuated under narration.
var DefaultVolumes = map[domain.PlaybackSlot]float64{
	domain.SlotPrimary:   1.0,
	domain.SlotSecondary: 0.3,
	domain.SlotTransient: 1.0,
}

// NewCoordinator registers itself as the port's completion handler.
// dispatch receives events on whatever goroutine the backend reports from.
func NewCoordinator(port Port, dispatch func(Event)) *Coordinator {
	c := &Coordinator{
		port:     port,
		dispatch: dispatch,
		active:   make(map[domain.PlaybackSlot]playing),
		volume:   make(map[domain.PlaybackSlot]float64, len(DefaultVolumes)),
	}
	for slot, level := range DefaultVolumes {
		c.volume[slot] = level
	}
	port.OnCompletion(c.handleCompletion)
	return c
}

// SetQuizActive controls whether a finished primary playback is narration or review.
func (c *Coordinator) SetQuizActive(active bool) {
	c.mu.Lock()
	c.quizActive = active
	c.mu.Unlock()
}

// Play starts asset on slot. Whatever occupied the slot is stopped first and
// its token retired, so its completion is discarded if it still arrives.
func (c *Coordinator) Play(ctx context.Context, slot domain.PlaybackSlot, asset domain.AssetRef) (Token, error) {
	c.mu.Lock()
	c.next++
	token := c.next
	prev, hadPrev := c.active[slot]
	c.active[slot] = playing{token: token, asset: asset}
	volume := c.volume[slot]
	c.mu.Unlock()

	if hadPrev {
		if err := c.port.Stop(slot); err != nil {
			log.Printf("playback: stop %s (%s) before replace: %v", slot, prev.asset, err)
		}
	}

	if err := c.port.Play(ctx, Request{Token: token, Slot: slot, Asset: asset, Volume: volume}); err != nil {
		c.mu.Lock()
		if cur, ok := c.active[slot]; ok && cur.token == token {
			delete(c.active, slot)
		}
		c.mu.Unlock()
		return 0, fmt.Errorf("%w: %s on %s: %v", domain.ErrPlaybackFailed, asset, slot, err)
	}
	return token, nil
}

// Stop halts the slot. Stopping an idle slot is not an error.
func (c *Coordinator) Stop(slot domain.PlaybackSlot) error {
	c.mu.Lock()
	_, ok := c.active[slot]
	delete(c.active, slot)
	c.mu.Unlock()

	if !ok {
		return nil
	}
	return c.port.Stop(slot)
}

// StopAll halts narration and feedback before the background slot,
// reporting the first backend error.
func (c *Coordinator) StopAll() error {
	var first error
	for _, slot := range []domain.PlaybackSlot{domain.SlotPrimary, domain.SlotTransient, domain.SlotSecondary} {
		if err := c.Stop(slot); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// SetVolume clamps level to [0, 1] and applies it immediately.
func (c *Coordinator) SetVolume(slot domain.PlaybackSlot, level float64) error {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	c.mu.Lock()
	c.volume[slot] = level
	c.mu.Unlock()
	return c.port.SetVolume(slot, level)
}

// Volume returns the current level for slot.
func (c *Coordinator) Volume(slot domain.PlaybackSlot) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume[slot]
}

// Playing reports the asset currently occupying slot.
func (c *Coordinator) Playing(slot domain.PlaybackSlot) (domain.AssetRef, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.active[slot]
	return p.asset, ok
}

func (c *Coordinator) handleCompletion(done Completion) {
	c.mu.Lock()
	var (
		slot  domain.PlaybackSlot
		entry playing
		found bool
	)
	for s, p := range c.active {
		if p.token == done.Token {
			slot, entry, found = s, p, true
			break
		}
	}
	if !found {
		c.mu.Unlock()
		log.Printf("playback: %v: token %d on %s", domain.ErrStaleCompletion, done.Token, done.Slot)
		return
	}
	delete(c.active, slot)
	quizActive := c.quizActive
	c.mu.Unlock()

	ev := Event{
		Token:  done.Token,
		Asset:  entry.asset,
		Failed: done.Outcome == OutcomeFailed,
		Err:    done.Err,
	}
	if ev.Failed && ev.Err == nil {
		ev.Err = domain.ErrPlaybackFailed
	}

	switch slot {
	case domain.SlotPrimary:
		if quizActive {
			ev.Kind = EventNarrationFinished
		} else {
			ev.Kind = EventReviewFinished
		}
	case domain.SlotTransient:
		ev.Kind = EventFeedbackFinished
	case domain.SlotSecondary:
		log.Printf("playback: background %s ended (%s)", entry.asset, done.Outcome)
		return
	default:
		log.Printf("playback: completion on unknown slot %q", slot)
		return
	}
	c.dispatch(ev)
}
