package domain

import "time"

// AssetRef addresses a playable audio resource: a local path or a URL.
type AssetRef string

// Option represents a possible answer for a question.
type Option struct {
	Key     string `json:"key"`
	Text    string `json:"text"`
	Correct bool   `json:"correct"`
}

// QuestionAssets holds the narration clips recorded for a question.
type QuestionAssets struct {
	Question   AssetRef `json:"question"`
	Correction AssetRef `json:"correction,omitempty"`
	Repeat     AssetRef `json:"repeat,omitempty"`
}

// Question models a spoken multiple choice question.
type Question struct {
	ID         string         `json:"id"`
	Prompt     string         `json:"prompt"`
	Options    []Option       `json:"options"`
	Correction string         `json:"correction,omitempty"`
	Assets     QuestionAssets `json:"assets"`

	// Selected and Presentations change while the question is played.
	Selected      string `json:"selected,omitempty"`
	Presentations int    `json:"presentations"`
}

// CorrectOption returns the first option flagged correct.
func (q Question) CorrectOption() (Option, bool) {
	for _, opt := range q.Options {
		if opt.Correct {
			return opt, true
		}
	}
	return Option{}, false
}

// Quiz is a collection of questions.
type Quiz struct {
	ID        string     `json:"id"`
	Title     string     `json:"title,omitempty"`
	Questions []Question `json:"questions"`
}

// ScoreTier maps a spoken score ("80") to its announcement clip.
type ScoreTier struct {
	Label string   `json:"label" yaml:"label"`
	Asset AssetRef `json:"asset" yaml:"asset"`
}

// SessionConfig is the immutable audio bundle a session plays from.
type SessionConfig struct {
	CorrectAnswer   []AssetRef
	IncorrectAnswer []AssetRef
	NoResponse      []AssetRef
	NextQuestion    []AssetRef
	Review          []AssetRef
	Waiting         []AssetRef
	Received        []AssetRef
	BackgroundMusic []AssetRef
	ScoreTiers      []ScoreTier

	ResponseTimeout   time.Duration
	ExcludeNoResponse bool
	Shuffle           bool

	PrimaryVolume   float64
	SecondaryVolume float64
	TransientVolume float64
}

// DefaultResponseTimeout applies when a config leaves the countdown unset.
const DefaultResponseTimeout = 10 * time.Second

// FeedbackVerdict classifies a submitted response.
type FeedbackVerdict string

const (
	VerdictCorrect    FeedbackVerdict = "correct"
	VerdictIncorrect  FeedbackVerdict = "incorrect"
	VerdictNoResponse FeedbackVerdict = "no_response"
)

// PlaybackSlot identifies an independent audio channel.
type PlaybackSlot string

const (
	SlotPrimary   PlaybackSlot = "primary"
	SlotSecondary PlaybackSlot = "secondary"
	SlotTransient PlaybackSlot = "transient"
)

// Slots lists every playback slot.
var Slots = []PlaybackSlot{SlotPrimary, SlotSecondary, SlotTransient}

// State is a quiz session lifecycle state.
type State string

const (
	StateIdle                State = "idle"
	StateStarted             State = "started"
	StatePlayingQuestion     State = "playing_question"
	StateAwaitingResponse    State = "awaiting_response"
	StateFeedbackCorrect     State = "feedback_correct"
	StateFeedbackIncorrect   State = "feedback_incorrect"
	StateFeedbackNoResponse  State = "feedback_no_response"
	StatePlayingNextOrReview State = "playing_next_or_review"
	StateReview              State = "review"
	StateEnded               State = "ended"
)

// States lists every session state.
var States = []State{
	StateIdle,
	StateStarted,
	StatePlayingQuestion,
	StateAwaitingResponse,
	StateFeedbackCorrect,
	StateFeedbackIncorrect,
	StateFeedbackNoResponse,
	StatePlayingNextOrReview,
	StateReview,
	StateEnded,
}

// ScoreRecord is the finalized result handed off when a session ends.
type ScoreRecord struct {
	SessionID      string    `json:"sessionId"`
	QuizID         string    `json:"quizId"`
	Date           time.Time `json:"date"`
	TotalQuestions int       `json:"totalQuestions"`
	CorrectCount   int       `json:"correctCount"`
	Percentage     int       `json:"percentage"`
}
