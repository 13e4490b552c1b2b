package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"voice-quiz/internal/domain"
	"voice-quiz/internal/playback"
)

// AssetResolver maps an audio action to something playable.
type AssetResolver interface {
	Resolve(action domain.AudioAction) (domain.AssetRef, bool)
}

// Observer receives session notifications after each processed event.
// Callbacks run outside the session lock, in event order.
type Observer interface {
	StateChanged(snap Snapshot)
	Finished(record domain.ScoreRecord)
	Fault(err error)
}

// Snapshot is a read-only view of a session.
type Snapshot struct {
	SessionID        string                 `json:"sessionId"`
	QuizID           string                 `json:"quizId"`
	State            domain.State           `json:"state"`
	Cursor           int                    `json:"cursor"`
	Total            int                    `json:"total"`
	QuestionID       string                 `json:"questionId,omitempty"`
	Prompt           string                 `json:"prompt,omitempty"`
	Presentations    int                    `json:"presentations"`
	Active           bool                   `json:"active"`
	AwaitingResponse bool                   `json:"awaitingResponse"`
	Paused           bool                   `json:"paused"`
	Deadline         time.Time              `json:"deadline"`
	LastVerdict      domain.FeedbackVerdict `json:"lastVerdict,omitempty"`
	Correct          int                    `json:"correct"`
	Answered         int                    `json:"answered"`
	Percentage       int                    `json:"percentage"`
	Streak           int                    `json:"streak"`
	BestStreak       int                    `json:"bestStreak"`
	UpdatedAt        time.Time              `json:"updatedAt"`
}

// SessionOptions carries the collaborators a session is built from.
type SessionOptions struct {
	ID       string
	QuizID   string
	Config   domain.SessionConfig
	Port     playback.Port
	Resolver AssetResolver
	Observer Observer

	// Optional; defaults are used when nil.
	Context   context.Context
	Now       func() time.Time
	AfterFunc func(d time.Duration, f func()) (stop func() bool)
	Rand      *rand.Rand
}

type eventKind int

const (
	evStart eventKind = iota + 1
	evNarrationFinished
	evFeedbackFinished
	evReviewFinished
	evResponse
	evTimeout
	evPause
	evResume
	evRepeat
	evSkip
	evStop
	evReset
)

func (k eventKind) String() string {
	switch k {
	case evStart:
		return "start"
	case evNarrationFinished:
		return "narration_finished"
	case evFeedbackFinished:
		return "feedback_finished"
	case evReviewFinished:
		return "review_finished"
	case evResponse:
		return "response"
	case evTimeout:
		return "timeout"
	case evPause:
		return "pause"
	case evResume:
		return "resume"
	case evRepeat:
		return "repeat"
	case evSkip:
		return "skip"
	case evStop:
		return "stop"
	case evReset:
		return "reset"
	default:
		return "unknown"
	}
}

type event struct {
	kind      eventKind
	questions []domain.Question
	response  string
	seq       uint64

	// playback completions
	token  playback.Token
	cue    uint64
	failed bool
	err    error
}

// cue is the playback the current state waits on before moving on.
type cue struct {
	id     uint64
	token  playback.Token
	slot   domain.PlaybackSlot
	action domain.AudioAction
	done   eventKind
}

// transitions lists every legal state change.
var transitions = map[domain.State][]domain.State{
	domain.StateIdle:                {domain.StateStarted, domain.StateEnded},
	domain.StateStarted:             {domain.StatePlayingQuestion, domain.StateEnded},
	domain.StatePlayingQuestion:     {domain.StateAwaitingResponse, domain.StateFeedbackNoResponse, domain.StatePlayingQuestion, domain.StatePlayingNextOrReview, domain.StateEnded},
	domain.StateAwaitingResponse:    {domain.StateFeedbackCorrect, domain.StateFeedbackIncorrect, domain.StateFeedbackNoResponse, domain.StatePlayingQuestion, domain.StatePlayingNextOrReview, domain.StateEnded},
	domain.StateFeedbackCorrect:     {domain.StatePlayingNextOrReview, domain.StateEnded},
	domain.StateFeedbackIncorrect:   {domain.StatePlayingNextOrReview, domain.StateEnded},
	domain.StateFeedbackNoResponse:  {domain.StatePlayingNextOrReview, domain.StateEnded},
	domain.StatePlayingNextOrReview: {domain.StatePlayingQuestion, domain.StateReview, domain.StateEnded},
	domain.StateReview:              {domain.StateEnded},
	domain.StateEnded:               {domain.StateIdle},
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to domain.State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Session is the voice quiz state machine. Every input, whether a user
// control, a countdown expiry or a playback completion, is queued and
// applied one at a time in arrival order.
type Session struct {
	id       string
	quizID   string
	cfg      domain.SessionConfig
	resolver AssetResolver
	coord    *playback.Coordinator
	observer Observer

	ctx       context.Context
	now       func() time.Time
	afterFunc func(time.Duration, func()) func() bool
	rnd       *rand.Rand

	qmu      sync.Mutex
	queue    []event
	draining bool

	mu            sync.RWMutex
	state         domain.State
	questions     []domain.Question
	cursor        int
	active        bool
	awaiting      bool
	paused        bool
	remaining     time.Duration
	deadline      time.Time
	countdownSeq  uint64
	stopCountdown func() bool
	repeat        bool
	verdict       domain.FeedbackVerdict
	lastVerdict   domain.FeedbackVerdict
	correcting    bool
	acknowledging bool
	score         *Scorecard
	cueSeq        uint64
	cur           cue
	outbox        []func()
}

// NewSession wires a session to its playback port. The session registers
// itself as the port's completion consumer through a coordinator.
func NewSession(opts SessionOptions) *Session {
	s := &Session{
		id:        opts.ID,
		quizID:    opts.QuizID,
		cfg:       opts.Config,
		resolver:  opts.Resolver,
		observer:  opts.Observer,
		ctx:       opts.Context,
		now:       opts.Now,
		afterFunc: opts.AfterFunc,
		rnd:       opts.Rand,
		state:     domain.StateIdle,
		score:     NewScorecard(opts.Config.ExcludeNoResponse),
	}
	if s.observer == nil {
		s.observer = nopObserver{}
	}
	if s.ctx == nil {
		s.ctx = context.Background()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.afterFunc == nil {
		s.afterFunc = func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		}
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.cfg.ResponseTimeout <= 0 {
		s.cfg.ResponseTimeout = domain.DefaultResponseTimeout
	}

	s.coord = playback.NewCoordinator(opts.Port, s.onPlayback)
	for slot, level := range map[domain.PlaybackSlot]float64{
		domain.SlotPrimary:   s.cfg.PrimaryVolume,
		domain.SlotSecondary: s.cfg.SecondaryVolume,
		domain.SlotTransient: s.cfg.TransientVolume,
	} {
		if level > 0 {
			if err := s.coord.SetVolume(slot, level); err != nil {
				log.Printf("session %s: set %s volume: %v", s.id, slot, err)
			}
		}
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// QuizID returns the quiz the session plays.
func (s *Session) QuizID() string { return s.quizID }

// Start begins the quiz. It is only honoured from Idle.
func (s *Session) Start(questions []domain.Question) error {
	if len(questions) == 0 {
		return domain.ErrNoQuestions
	}
	qs := make([]domain.Question, len(questions))
	copy(qs, questions)
	s.post(event{kind: evStart, questions: qs})
	return nil
}

// SubmitResponse delivers a spoken or typed answer. Blank input counts as no response.
func (s *Session) SubmitResponse(response string) {
	s.post(event{kind: evResponse, response: response})
}

// Pause stops current audio without changing state.
func (s *Session) Pause() { s.post(event{kind: evPause}) }

// Resume replays whatever Pause interrupted.
func (s *Session) Resume() { s.post(event{kind: evResume}) }

// RepeatQuestion plays the current question again.
func (s *Session) RepeatQuestion() { s.post(event{kind: evRepeat}) }

// Skip moves past the current question without scoring it as right or wrong.
func (s *Session) Skip() { s.post(event{kind: evSkip}) }

// Stop ends the session from any state and hands off the score.
func (s *Session) Stop() { s.post(event{kind: evStop}) }

// Reset ends the session from any state and discards the score.
func (s *Session) Reset() { s.post(event{kind: evReset}) }

// Snapshot returns the current view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:        s.id,
		QuizID:           s.quizID,
		State:            s.state,
		Cursor:           s.cursor,
		Total:            len(s.questions),
		Active:           s.active,
		AwaitingResponse: s.awaiting,
		Paused:           s.paused,
		Deadline:         s.deadline,
		LastVerdict:      s.lastVerdict,
		Correct:          s.score.Correct(),
		Answered:         s.score.Answered(),
		Percentage:       s.score.Percentage(),
		Streak:           s.score.Streak(),
		BestStreak:       s.score.BestStreak(),
		UpdatedAt:        s.now(),
	}
	if s.cursor < len(s.questions) {
		q := s.questions[s.cursor]
		snap.QuestionID = q.ID
		snap.Prompt = q.Prompt
		snap.Presentations = q.Presentations
	}
	return snap
}

func (s *Session) post(ev event) {
	s.qmu.Lock()
	s.queue = append(s.queue, ev)
	if s.draining {
		s.qmu.Unlock()
		return
	}
	s.draining = true
	s.qmu.Unlock()

	for {
		s.qmu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.qmu.Unlock()
			return
		}
		next := s.queue[0]
		s.queue = s.queue[1:]
		s.qmu.Unlock()

		s.mu.Lock()
		s.handle(next)
		out := s.outbox
		s.outbox = nil
		s.mu.Unlock()

		for _, notify := range out {
			notify()
		}
	}
}

func (s *Session) onPlayback(ev playback.Event) {
	var kind eventKind
	switch ev.Kind {
	case playback.EventNarrationFinished:
		kind = evNarrationFinished
	case playback.EventReviewFinished:
		kind = evReviewFinished
	case playback.EventFeedbackFinished:
		kind = evFeedbackFinished
	default:
		return
	}
	s.post(event{kind: kind, token: ev.Token, failed: ev.Failed, err: ev.Err})
}

func (s *Session) handle(ev event) {
	switch ev.kind {
	case evStop:
		s.terminate(true)
		return
	case evReset:
		s.terminate(false)
		return
	}

	switch s.state {
	case domain.StateIdle:
		s.onIdle(ev)
	case domain.StatePlayingQuestion:
		s.onPlayingQuestion(ev)
	case domain.StateAwaitingResponse:
		s.onAwaitingResponse(ev)
	case domain.StateFeedbackCorrect, domain.StateFeedbackIncorrect, domain.StateFeedbackNoResponse:
		s.onFeedback(ev)
	case domain.StatePlayingNextOrReview:
		s.onNextOrReview(ev)
	case domain.StateReview:
		s.onReview(ev)
	case domain.StateStarted, domain.StateEnded:
		// pass-through states, never resting between events
		s.ignore(ev)
	}
}

func (s *Session) onIdle(ev event) {
	switch ev.kind {
	case evStart:
		s.begin(ev.questions)
	case evNarrationFinished, evFeedbackFinished, evReviewFinished, evTimeout:
		s.ignore(ev)
	case evResponse, evPause, evResume, evRepeat, evSkip:
		s.invalid(ev)
	}
}

func (s *Session) onPlayingQuestion(ev event) {
	switch ev.kind {
	case evNarrationFinished:
		if !s.isCurrent(ev) {
			s.ignore(ev)
			return
		}
		s.cur = cue{}
		if ev.failed {
			s.fault(fmt.Errorf("question %s: %w", s.currentQuestion().ID, errOrFailed(ev.err)))
			s.enterFeedback(domain.VerdictNoResponse, false)
			return
		}
		s.enterAwaitingResponse()
	case evRepeat:
		s.stopNarration()
		s.repeat = true
		s.enterPlayingQuestion()
	case evSkip:
		s.stopNarration()
		s.skipCurrent()
	case evPause:
		s.pause()
	case evResume:
		s.resume()
	case evFeedbackFinished, evReviewFinished, evTimeout:
		s.ignore(ev)
	case evStart, evResponse:
		s.invalid(ev)
	}
}

func (s *Session) onAwaitingResponse(ev event) {
	switch ev.kind {
	case evResponse:
		s.cancelCountdown()
		s.stopNarration()
		q := &s.questions[s.cursor]
		verdict := Evaluate(*q, ev.response)
		if verdict != domain.VerdictNoResponse && q.Selected == "" {
			q.Selected = strings.TrimSpace(ev.response)
		}
		s.enterFeedback(verdict, verdict != domain.VerdictNoResponse)
	case evTimeout:
		if ev.seq != s.countdownSeq || s.paused {
			s.ignore(ev)
			return
		}
		s.cancelCountdown()
		s.stopNarration()
		s.enterFeedback(domain.VerdictNoResponse, false)
	case evRepeat:
		s.cancelCountdown()
		s.stopNarration()
		s.repeat = true
		s.enterPlayingQuestion()
	case evSkip:
		s.cancelCountdown()
		s.stopNarration()
		s.skipCurrent()
	case evPause:
		s.pause()
	case evResume:
		s.resume()
	case evFeedbackFinished:
		// the waiting cue is best effort
		if ev.failed {
			s.fault(fmt.Errorf("waiting cue: %w", errOrFailed(ev.err)))
		}
	case evNarrationFinished, evReviewFinished:
		s.ignore(ev)
	case evStart:
		s.invalid(ev)
	}
}

func (s *Session) onFeedback(ev event) {
	switch ev.kind {
	case evFeedbackFinished:
		if !s.isCurrent(ev) {
			s.ignore(ev)
			return
		}
		s.cur = cue{}
		if s.acknowledging {
			s.acknowledging = false
			if ev.failed {
				s.fault(fmt.Errorf("received cue: %w", errOrFailed(ev.err)))
			}
			s.playCue(domain.SlotTransient, domain.CalloutFor(s.verdict), evFeedbackFinished)
			return
		}
		if ev.failed {
			s.fault(fmt.Errorf("feedback callout: %w", errOrFailed(ev.err)))
		}
		q := s.currentQuestion()
		if s.verdict != domain.VerdictCorrect && !s.correcting && q.Assets.Correction != "" {
			s.correcting = true
			s.playCue(domain.SlotPrimary, domain.PlayAnswer(q.Assets.Correction), evNarrationFinished)
			return
		}
		s.completeFeedback()
	case evNarrationFinished:
		if !s.correcting || !s.isCurrent(ev) {
			s.ignore(ev)
			return
		}
		s.cur = cue{}
		if ev.failed {
			s.fault(fmt.Errorf("correction narration: %w", errOrFailed(ev.err)))
		}
		s.completeFeedback()
	case evRepeat:
		s.repeat = true
	case evSkip:
		s.repeat = false
		s.stopNarration()
		s.completeFeedback()
	case evPause:
		s.pause()
	case evResume:
		s.resume()
	case evReviewFinished, evTimeout:
		s.ignore(ev)
	case evStart, evResponse:
		s.invalid(ev)
	}
}

func (s *Session) onNextOrReview(ev event) {
	switch ev.kind {
	case evFeedbackFinished:
		if !s.isCurrent(ev) {
			s.ignore(ev)
			return
		}
		s.cur = cue{}
		if ev.failed {
			s.fault(fmt.Errorf("next question cue: %w", errOrFailed(ev.err)))
		}
		s.enterPlayingQuestion()
	case evPause:
		s.pause()
	case evResume:
		s.resume()
	case evNarrationFinished, evReviewFinished, evTimeout:
		s.ignore(ev)
	case evStart, evResponse, evRepeat, evSkip:
		s.invalid(ev)
	}
}

func (s *Session) onReview(ev event) {
	switch ev.kind {
	case evReviewFinished:
		if !s.isCurrent(ev) {
			s.ignore(ev)
			return
		}
		s.cur = cue{}
		if ev.failed {
			s.fault(fmt.Errorf("review cue: %w", errOrFailed(ev.err)))
		}
		s.finish(true)
	case evSkip:
		s.stopNarration()
		s.finish(true)
	case evPause:
		s.pause()
	case evResume:
		s.resume()
	case evNarrationFinished, evFeedbackFinished, evTimeout:
		s.ignore(ev)
	case evStart, evResponse, evRepeat:
		s.invalid(ev)
	}
}

func (s *Session) begin(questions []domain.Question) {
	for i := range questions {
		if questions[i].ID == "" {
			questions[i].ID = fmt.Sprintf("q%d", i+1)
		}
	}
	if s.cfg.Shuffle {
		questions = shuffleQuestions(questions, s.rnd)
	}
	for i := range questions {
		questions[i].Selected = ""
	}
	s.questions = questions
	s.cursor = 0
	s.active = true
	s.repeat = false
	s.lastVerdict = ""
	s.score = NewScorecard(s.cfg.ExcludeNoResponse)

	s.transition(domain.StateStarted)
	s.coord.SetQuizActive(true)
	s.playAmbient(domain.SlotSecondary, domain.PlayBackgroundMusic())
	s.enterPlayingQuestion()
}

func (s *Session) enterPlayingQuestion() {
	s.transition(domain.StatePlayingQuestion)
	q := &s.questions[s.cursor]
	q.Presentations++
	q.Selected = ""

	asset := q.Assets.Question
	if s.repeat && q.Assets.Repeat != "" {
		asset = q.Assets.Repeat
	}
	s.repeat = false
	s.playCue(domain.SlotPrimary, domain.PlayQuestion(asset), evNarrationFinished)
}

func (s *Session) enterAwaitingResponse() {
	s.transition(domain.StateAwaitingResponse)
	s.awaiting = true
	s.startCountdown(s.cfg.ResponseTimeout)
	s.playAmbient(domain.SlotTransient, domain.WaitingForResponse())
}

// enterFeedback scores the current question and starts the callout. An
// accepted response is acknowledged first when a received cue is configured.
func (s *Session) enterFeedback(v domain.FeedbackVerdict, accepted bool) {
	s.score.Record(s.cursor, v)
	s.verdict = v
	s.lastVerdict = v
	s.correcting = false

	s.transition(domain.FeedbackState(v))
	if accepted && len(s.cfg.Received) > 0 {
		s.acknowledging = true
		s.playCue(domain.SlotTransient, domain.ReceivedResponse(), evFeedbackFinished)
		return
	}
	s.playCue(domain.SlotTransient, domain.CalloutFor(v), evFeedbackFinished)
}

func (s *Session) completeFeedback() {
	s.correcting = false
	s.acknowledging = false
	if !s.repeat {
		s.cursor++
	}
	s.enterNextOrReview()
}

func (s *Session) skipCurrent() {
	s.score.Skip(s.cursor)
	s.repeat = false
	s.cursor++
	s.enterNextOrReview()
}

func (s *Session) enterNextOrReview() {
	s.transition(domain.StatePlayingNextOrReview)
	if s.cursor >= len(s.questions) {
		s.enterReview()
		return
	}
	if s.repeat {
		s.enterPlayingQuestion()
		return
	}
	s.playCue(domain.SlotTransient, domain.NextQuestion(), evFeedbackFinished)
}

func (s *Session) enterReview() {
	s.transition(domain.StateReview)
	s.coord.SetQuizActive(false)

	action := domain.GiveScore(s.score.Percentage())
	if _, ok := s.resolver.Resolve(action); !ok {
		action = domain.Reviewing()
	}
	s.playCue(domain.SlotPrimary, action, evReviewFinished)
}

// terminate handles stop and reset, legal from every state.
func (s *Session) terminate(emit bool) {
	if s.state == domain.StateIdle {
		s.transition(domain.StateEnded)
		s.transition(domain.StateIdle)
		return
	}
	s.finish(emit)
}

func (s *Session) finish(emit bool) {
	s.transition(domain.StateEnded)

	if err := s.coord.StopAll(); err != nil {
		log.Printf("session %s: stop playback: %v", s.id, err)
	}
	s.cancelCountdown()
	s.coord.SetQuizActive(false)

	record := domain.ScoreRecord{
		SessionID:      s.id,
		QuizID:         s.quizID,
		Date:           s.now(),
		TotalQuestions: len(s.questions),
		CorrectCount:   s.score.Correct(),
		Percentage:     s.score.Percentage(),
	}

	s.cursor = 0
	s.active = false
	s.repeat = false
	s.correcting = false
	s.acknowledging = false
	s.cur = cue{}

	if emit {
		s.outbox = append(s.outbox, func() { s.observer.Finished(record) })
	}
	s.transition(domain.StateIdle)
}

func (s *Session) transition(to domain.State) {
	from := s.state
	if !CanTransition(from, to) {
		s.fault(fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, from, to))
		return
	}
	if from == domain.StateAwaitingResponse {
		s.awaiting = false
	}
	s.state = to
	s.paused = false
	snap := s.snapshotLocked()
	s.outbox = append(s.outbox, func() { s.observer.StateChanged(snap) })
}

// playCue plays an action the current state waits on. Nothing to play, or a
// backend failure, still produces the completion event so the state moves on.
func (s *Session) playCue(slot domain.PlaybackSlot, action domain.AudioAction, done eventKind) {
	s.cueSeq++
	c := cue{id: s.cueSeq, slot: slot, action: action, done: done}
	s.cur = c

	asset, ok := s.resolver.Resolve(action)
	if !ok {
		log.Printf("session %s: %v: %s", s.id, domain.ErrAssetUnresolved, action)
		s.postLater(event{kind: done, cue: c.id})
		return
	}
	token, err := s.coord.Play(s.ctx, slot, asset)
	if err != nil {
		s.fault(err)
		s.postLater(event{kind: done, cue: c.id, failed: true, err: err})
		return
	}
	s.cur.token = token
}

// playAmbient plays a cue nobody waits on.
func (s *Session) playAmbient(slot domain.PlaybackSlot, action domain.AudioAction) {
	asset, ok := s.resolver.Resolve(action)
	if !ok {
		return
	}
	if _, err := s.coord.Play(s.ctx, slot, asset); err != nil {
		s.fault(err)
	}
}

// postLater queues an event behind the one being handled.
func (s *Session) postLater(ev event) {
	s.qmu.Lock()
	s.queue = append(s.queue, ev)
	s.qmu.Unlock()
}

func (s *Session) isCurrent(ev event) bool {
	if ev.token != 0 {
		return s.cur.token != 0 && ev.token == s.cur.token
	}
	return ev.cue != 0 && ev.cue == s.cur.id
}

func (s *Session) stopNarration() {
	for _, slot := range []domain.PlaybackSlot{domain.SlotPrimary, domain.SlotTransient} {
		if err := s.coord.Stop(slot); err != nil {
			log.Printf("session %s: stop %s: %v", s.id, slot, err)
		}
	}
}

func (s *Session) pause() {
	if s.paused {
		s.invalid(event{kind: evPause})
		return
	}
	s.stopNarration()
	if s.state == domain.StateAwaitingResponse {
		s.remaining = s.deadline.Sub(s.now())
		if s.remaining <= 0 {
			s.remaining = 0
		}
		s.cancelCountdown()
	}
	s.paused = true
	snap := s.snapshotLocked()
	s.outbox = append(s.outbox, func() { s.observer.StateChanged(snap) })
}

func (s *Session) resume() {
	if !s.paused {
		s.invalid(event{kind: evResume})
		return
	}
	s.paused = false
	if s.state == domain.StateAwaitingResponse {
		s.startCountdown(s.remaining)
	} else if s.cur.id != 0 {
		s.playCue(s.cur.slot, s.cur.action, s.cur.done)
	}
	snap := s.snapshotLocked()
	s.outbox = append(s.outbox, func() { s.observer.StateChanged(snap) })
}

func (s *Session) startCountdown(d time.Duration) {
	s.countdownSeq++
	seq := s.countdownSeq
	s.deadline = s.now().Add(d)
	s.stopCountdown = s.afterFunc(d, func() {
		s.post(event{kind: evTimeout, seq: seq})
	})
}

func (s *Session) cancelCountdown() {
	if s.stopCountdown != nil {
		s.stopCountdown()
		s.stopCountdown = nil
	}
	s.countdownSeq++
	s.deadline = time.Time{}
}

func (s *Session) currentQuestion() domain.Question {
	if s.cursor < len(s.questions) {
		return s.questions[s.cursor]
	}
	return domain.Question{}
}

func (s *Session) ignore(ev event) {
	log.Printf("session %s: ignoring %s in %s", s.id, ev.kind, s.state)
}

func (s *Session) invalid(ev event) {
	s.fault(fmt.Errorf("%w: %s in %s", domain.ErrInvalidTransition, ev.kind, s.state))
}

func (s *Session) fault(err error) {
	log.Printf("session %s: %v", s.id, err)
	s.outbox = append(s.outbox, func() { s.observer.Fault(err) })
}

func errOrFailed(err error) error {
	if err == nil {
		return domain.ErrPlaybackFailed
	}
	return err
}

// shuffleQuestions returns a Fisher-Yates shuffled copy.
func shuffleQuestions(questions []domain.Question, rnd *rand.Rand) []domain.Question {
	shuffled := make([]domain.Question, len(questions))
	copy(shuffled, questions)
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rnd.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	return shuffled
}

type nopObserver struct{}

func (nopObserver) StateChanged(Snapshot) {}
func (nopObserver) Finished(domain.ScoreRecord) {}
func (nopObserver) Fault(error) {}
