package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OrderMode selects the sequence the remote service serves questions in.
// Values are the wire names used by the quiz API.
type OrderMode string

const (
	OrderSequential OrderMode = "ORDER"
	OrderReverse    OrderMode = "REVERSE"
	OrderRandom     OrderMode = "RANDOM"
)

// ParseOrderMode accepts the wire name or the long name, case-insensitively.
func ParseOrderMode(raw string) (OrderMode, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "ORDER", "SEQUENTIAL":
		return OrderSequential, nil
	case "REVERSE":
		return OrderReverse, nil
	case "RANDOM":
		return OrderRandom, nil
	}
	return "", fmt.Errorf("unknown order mode %q", raw)
}

// Next cycles SEQUENTIAL -> REVERSE -> RANDOM -> SEQUENTIAL.
func (o OrderMode) Next() OrderMode {
	switch o {
	case OrderSequential:
		return OrderReverse
	case OrderReverse:
		return OrderRandom
	default:
		return OrderSequential
	}
}

// Label is the human name of the order mode.
func (o OrderMode) Label() string {
	switch o {
	case OrderReverse:
		return "reverse"
	case OrderRandom:
		return "random"
	default:
		return "sequential"
	}
}

// SessionParams identifies which attempt is in play. Any change to them
// invalidates the current session id.
type SessionParams struct {
	Course      string    `json:"course"`
	Order       OrderMode `json:"orderMode"`
	StartOffset int       `json:"startOffset"` // zero-based
}

// Option is one answer choice. IsCorrect arrives for every option before
// submission; it is kept as served.
type Option struct {
	Label     string `json:"optionLabel"`
	Text      string `json:"optionText"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question is the unit served by the remote quiz service.
type Question struct {
	ID       *int64   `json:"id,omitempty"`
	Number   int      `json:"questionNumber"`
	Course   string   `json:"courseName"`
	Text     string   `json:"questionText"`
	Options  []Option `json:"options"`
	Language string   `json:"language,omitempty"`
	ImageURL string   `json:"imageUrl,omitempty"`
}

// Option returns the option with the given label.
func (q Question) Option(label string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.Label == label {
			return opt, true
		}
	}
	return Option{}, false
}

// CorrectOption returns the first option flagged correct.
func (q Question) CorrectOption() (Option, bool) {
	for _, opt := range q.Options {
		if opt.IsCorrect {
			return opt, true
		}
	}
	return Option{}, false
}

// Stats is the running score of a whole session.
type Stats struct {
	Score     int     `json:"score"`
	Total     int     `json:"total"`
	ErrorRate float64 `json:"errorRate"`
}

// SubmissionResult is the authoritative answer feedback from the remote service.
type SubmissionResult struct {
	Correct       bool   `json:"correct"`
	FeedbackKey   string `json:"feedbackKey"`
	Option        string `json:"option"`
	CorrectAnswer string `json:"correctAnswer,omitempty"`
	Stats         *Stats `json:"stats,omitempty"`
}

// StartRequest opens a new session on the remote service.
type StartRequest struct {
	Course      string
	Order       OrderMode
	StartOffset int
}

// ExplanationQuery is what the transport sends to the explanation endpoint.
type ExplanationQuery struct {
	Question       Question `json:"question"`
	SelectedOption string   `json:"selectedOption"`
	Language       string   `json:"language"`
	AIModel        string   `json:"aiModel"`
}

// Phase is the lifecycle state of one quiz attempt.
type Phase string

const (
	PhaseUnstarted       Phase = "UNSTARTED"
	PhaseStarting        Phase = "STARTING"
	PhaseQuestionReady   Phase = "QUESTION_READY"
	PhaseAnswerSubmitted Phase = "ANSWER_SUBMITTED"
	PhaseFinished        Phase = "FINISHED"
	PhaseError           Phase = "ERROR"
)

// ExplanationState is the tag of an Explanation.
type ExplanationState string

const (
	ExplanationIdle      ExplanationState = "idle"
	ExplanationPreparing ExplanationState = "preparing"
	ExplanationDisplay   ExplanationState = "display"
)

// Explanation is Idle, Preparing or Display(text). The zero value is Idle.
type Explanation struct {
	state ExplanationState
	text  string
}

func IdleExplanation() Explanation { return Explanation{} }

func PreparingExplanation() Explanation { return Explanation{state: ExplanationPreparing} }

func DisplayExplanation(text string) Explanation {
	return Explanation{state: ExplanationDisplay, text: text}
}

func (e Explanation) State() ExplanationState {
	if e.state == "" {
		return ExplanationIdle
	}
	return e.state
}

// Text is empty unless the state is Display.
func (e Explanation) Text() string { return e.text }

func (e Explanation) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		State ExplanationState `json:"state"`
		Text  string           `json:"text,omitempty"`
	}{State: e.State(), Text: e.text})
}

// Snapshot is a read-only view of an engine. Question must not be mutated.
type Snapshot struct {
	Phase          Phase         `json:"phase"`
	SessionID      string        `json:"sessionId,omitempty"`
	Params         SessionParams `json:"params"`
	Question       *Question     `json:"question,omitempty"`
	SelectedOption string        `json:"selectedOption,omitempty"`
	Submitted      bool          `json:"submitted"`
	Correct        *bool         `json:"correct"`
	FeedbackKey    string        `json:"feedbackKey,omitempty"`
	Stats          *Stats        `json:"stats,omitempty"`
	Explanation    Explanation   `json:"explanation"`
	Err            string        `json:"error,omitempty"`
}

// CanExplain reports whether the explanation affordance should be offered.
func (s Snapshot) CanExplain() bool {
	return s.Submitted && s.Correct != nil && !*s.Correct &&
		s.Question != nil && s.Explanation.State() != ExplanationPreparing
}

// Course is the question pool served by the remote quiz service.
type Course struct {
	Name        string     `json:"name"`
	DisplayName string     `json:"displayName,omitempty"`
	Questions   []Question `json:"questions"`
}
