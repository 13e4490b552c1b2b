package domain

// ActionKind enumerates the closed set of audio actions.
type ActionKind int

const (
	ActionPlayCorrectCallout ActionKind = iota + 1
	ActionPlayWrongCallout
	ActionPlayNoResponseCallout
	ActionWaitingForResponse
	ActionReceivedResponse
	ActionPlayQuestion
	ActionPlayAnswer
	ActionPlayFeedback
	ActionPlayBackgroundMusic
	ActionGiveScore
	ActionNextQuestion
	ActionReviewing
	ActionPause
	ActionReset
)

// String returns the wire name of the action kind.
func (k ActionKind) String() string {
	switch k {
	case ActionPlayCorrectCallout:
		return "play_correct_callout"
	case ActionPlayWrongCallout:
		return "play_wrong_callout"
	case ActionPlayNoResponseCallout:
		return "play_no_response_callout"
	case ActionWaitingForResponse:
		return "waiting_for_response"
	case ActionReceivedResponse:
		return "received_response"
	case ActionPlayQuestion:
		return "play_question"
	case ActionPlayAnswer:
		return "play_answer"
	case ActionPlayFeedback:
		return "play_feedback"
	case ActionPlayBackgroundMusic:
		return "play_background_music"
	case ActionGiveScore:
		return "give_score"
	case ActionNextQuestion:
		return "next_question"
	case ActionReviewing:
		return "reviewing"
	case ActionPause:
		return "pause"
	case ActionReset:
		return "reset"
	default:
		return "unknown"
	}
}

// AudioAction is a semantic "what to say next". Values are comparable:
// two actions are equal when kind, asset and score all match.
type AudioAction struct {
	Kind  ActionKind
	Asset AssetRef
	Score int
}

func (a AudioAction) String() string {
	switch a.Kind {
	case ActionPlayQuestion, ActionPlayAnswer, ActionPlayFeedback:
		return a.Kind.String() + "(" + string(a.Asset) + ")"
	default:
		return a.Kind.String()
	}
}

func PlayCorrectCallout() AudioAction { return AudioAction{Kind: ActionPlayCorrectCallout} }
func PlayWrongCallout() AudioAction { return AudioAction{Kind: ActionPlayWrongCallout} }
func PlayNoResponseCallout() AudioAction { return AudioAction{Kind: ActionPlayNoResponseCallout} }
func WaitingForResponse() AudioAction { return AudioAction{Kind: ActionWaitingForResponse} }
func ReceivedResponse() AudioAction { return AudioAction{Kind: ActionReceivedResponse} }
func PlayBackgroundMusic() AudioAction { return AudioAction{Kind: ActionPlayBackgroundMusic} }
func NextQuestion() AudioAction { return AudioAction{Kind: ActionNextQuestion} }
func Reviewing() AudioAction { return AudioAction{Kind: ActionReviewing} }
func Pause() AudioAction { return AudioAction{Kind: ActionPause} }
func Reset() AudioAction { return AudioAction{Kind: ActionReset} }

func PlayQuestion(asset AssetRef) AudioAction {
	return AudioAction{Kind: ActionPlayQuestion, Asset: asset}
}

func PlayAnswer(asset AssetRef) AudioAction {
	return AudioAction{Kind: ActionPlayAnswer, Asset: asset}
}

func PlayFeedback(asset AssetRef) AudioAction {
	return AudioAction{Kind: ActionPlayFeedback, Asset: asset}
}

func GiveScore(value int) AudioAction {
	return AudioAction{Kind: ActionGiveScore, Score: value}
}

// CalloutFor returns the feedback callout matching a verdict.
func CalloutFor(v FeedbackVerdict) AudioAction {
	switch v {
	case VerdictCorrect:
		return PlayCorrectCallout()
	case VerdictIncorrect:
		return PlayWrongCallout()
	default:
		return PlayNoResponseCallout()
	}
}

// FeedbackState returns the session state that plays feedback for a verdict.
func FeedbackState(v FeedbackVerdict) State {
	switch v {
	case VerdictCorrect:
		return StateFeedbackCorrect
	case VerdictIncorrect:
		return StateFeedbackIncorrect
	default:
		return StateFeedbackNoResponse
	}
}
