// Package present renders engine snapshots as text for the terminal host.
// Nothing here holds state; every function draws from the snapshot it is given.
package present

import (
	"fmt"
	"io"
	"strings"

	"drillbi-quiz/internal/domain"
)

// RenderQuestion writes the question and its options. After submission the
// chosen option is marked and, once correctness is known, the correct one too.
func RenderQuestion(w io.Writer, s domain.Snapshot) {
	q := s.Question
	if q == nil {
		return
	}
	fmt.Fprintf(w, "\n%s  #%d  (%s)\n", courseTitle(q, s.Params), q.Number, s.Params.Order.Label())
	fmt.Fprintf(w, "%s\n", q.Text)
	if q.ImageURL != "" {
		fmt.Fprintf(w, "  [image: %s]\n", q.ImageURL)
	}
	for _, opt := range q.Options {
		fmt.Fprintf(w, "  %s %s) %s\n", marker(s, opt), opt.Label, opt.Text)
	}
}

func marker(s domain.Snapshot, opt domain.Option) string {
	if !s.Submitted {
		return " "
	}
	switch {
	case opt.Label == s.SelectedOption && s.Correct != nil && !*s.Correct:
		return "x"
	case opt.Label == s.SelectedOption:
		return ">"
	case s.Correct != nil && !*s.Correct && opt.IsCorrect:
		return "*"
	}
	return " "
}

// RenderFeedback writes the outcome of the last submission.
func RenderFeedback(w io.Writer, s domain.Snapshot) {
	if !s.Submitted || s.Correct == nil {
		return
	}
	if *s.Correct {
		fmt.Fprintln(w, "Correct!")
	} else if q := s.Question; q != nil {
		if correct, ok := q.CorrectOption(); ok {
			fmt.Fprintf(w, "Wrong. The answer is %s) %s\n", correct.Label, correct.Text)
		} else {
			fmt.Fprintln(w, "Wrong.")
		}
	}
	RenderStats(w, s.Stats)
}

// RenderStats writes the running score; nothing if the service sent none.
func RenderStats(w io.Writer, st *domain.Stats) {
	if st == nil {
		return
	}
	fmt.Fprintf(w, "Score %d/%d  (error rate %.1f%%)\n", st.Score, st.Total, st.ErrorRate)
}

// RenderExplanation writes the explanation panel. The explain affordance is
// only offered after a wrong answer and never while one is being prepared.
func RenderExplanation(w io.Writer, s domain.Snapshot, allowed bool) {
	switch s.Explanation.State() {
	case domain.ExplanationPreparing:
		fmt.Fprintln(w, "Preparing explanation...")
	case domain.ExplanationDisplay:
		fmt.Fprintln(w, "--- Explanation ---")
		fmt.Fprintln(w, strings.TrimSpace(s.Explanation.Text()))
		fmt.Fprintln(w, "-------------------")
	default:
		if !s.CanExplain() {
			return
		}
		if allowed {
			fmt.Fprintln(w, "Type 'e' for an AI explanation.")
		} else {
			fmt.Fprintln(w, "AI explanations are available to premium members.")
		}
	}
}

// RenderError writes the error banner of an ERROR snapshot.
func RenderError(w io.Writer, s domain.Snapshot) {
	if s.Phase != domain.PhaseError {
		return
	}
	msg := s.Err
	if msg == "" {
		msg = "something went wrong"
	}
	fmt.Fprintf(w, "Error: %s\n", msg)
}

// RenderFinished writes the end-of-quiz summary.
func RenderFinished(w io.Writer, s domain.Snapshot) {
	fmt.Fprintf(w, "\nQuiz finished: %s\n", s.Params.Course)
	RenderStats(w, s.Stats)
}

// Render dispatches on the snapshot phase.
func Render(w io.Writer, s domain.Snapshot, explainAllowed bool) {
	switch s.Phase {
	case domain.PhaseUnstarted, domain.PhaseStarting:
		fmt.Fprintf(w, "Starting %s...\n", s.Params.Course)
	case domain.PhaseQuestionReady:
		RenderQuestion(w, s)
	case domain.PhaseAnswerSubmitted:
		RenderQuestion(w, s)
		RenderFeedback(w, s)
		RenderExplanation(w, s, explainAllowed)
	case domain.PhaseFinished:
		RenderFinished(w, s)
	case domain.PhaseError:
		RenderError(w, s)
	}
}

func courseTitle(q *domain.Question, p domain.SessionParams) string {
	if q.Course != "" {
		return q.Course
	}
	return p.Course
}
