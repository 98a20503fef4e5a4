package engine

import (
	"drillbi-quiz/internal/domain"
)

// The functions below are pure: they take a snapshot by value and return the
// next one. Engine methods only sequence them around remote calls.

func applyStarting(s domain.Snapshot) domain.Snapshot {
	s.Phase = domain.PhaseStarting
	s.Question = nil
	s.SelectedOption = ""
	s.Submitted = false
	s.Correct = nil
	s.FeedbackKey = ""
	s.Stats = nil
	s.Explanation = domain.IdleExplanation()
	s.Err = ""
	return s
}

func applySessionID(s domain.Snapshot, id string) domain.Snapshot {
	s.SessionID = id
	return s
}

func applyQuestion(s domain.Snapshot, q domain.Question) domain.Snapshot {
	s.Phase = domain.PhaseQuestionReady
	s.Question = &q
	s.SelectedOption = ""
	s.Submitted = false
	s.Correct = nil
	s.FeedbackKey = ""
	s.Explanation = domain.IdleExplanation()
	s.Err = ""
	return s
}

func applyFinished(s domain.Snapshot) domain.Snapshot {
	s.Phase = domain.PhaseFinished
	s.Question = nil
	s.SelectedOption = ""
	s.Submitted = false
	s.Correct = nil
	s.Explanation = domain.IdleExplanation()
	return s
}

// applyFailure moves to ERROR and leaves everything else visible, including
// an optimistic correctness that was never reconciled.
func applyFailure(s domain.Snapshot, msg string) domain.Snapshot {
	s.Phase = domain.PhaseError
	s.Err = msg
	return s
}

// applyOptimisticAnswer records the selection and a provisional correctness
// taken from the option flags the question arrived with.
func applyOptimisticAnswer(s domain.Snapshot, label string) domain.Snapshot {
	s.SelectedOption = label
	s.Submitted = true
	s.Phase = domain.PhaseAnswerSubmitted
	if s.Question != nil {
		if opt, ok := s.Question.Option(label); ok {
			s.Correct = boolPtr(opt.IsCorrect)
		}
	}
	return s
}

// applyAuthoritativeAnswer overwrites correctness, feedback and stats with the
// server result. Applying the same result twice yields the same snapshot.
func applyAuthoritativeAnswer(s domain.Snapshot, res domain.SubmissionResult) domain.Snapshot {
	s.Correct = boolPtr(res.Correct)
	s.FeedbackKey = res.FeedbackKey
	if res.Stats != nil {
		stats := *res.Stats
		s.Stats = &stats
	} else {
		s.Stats = nil
	}
	return s
}

// applyStats takes only the running totals from a result that belongs to an
// earlier question.
func applyStats(s domain.Snapshot, res domain.SubmissionResult) domain.Snapshot {
	if res.Stats != nil {
		stats := *res.Stats
		s.Stats = &stats
	}
	return s
}

// beginExplanation refuses to enter Preparing twice.
func beginExplanation(s domain.Snapshot) (domain.Snapshot, error) {
	if s.Explanation.State() == domain.ExplanationPreparing {
		return s, domain.ErrBusy
	}
	s.Explanation = domain.PreparingExplanation()
	return s, nil
}

func completeExplanation(s domain.Snapshot, text string) domain.Snapshot {
	if text == "" {
		s.Explanation = domain.IdleExplanation()
		return s
	}
	s.Explanation = domain.DisplayExplanation(text)
	return s
}

func failExplanation(s domain.Snapshot) domain.Snapshot {
	s.Explanation = domain.IdleExplanation()
	return s
}

// statsRegressed reports whether next moves backwards relative to prev.
func statsRegressed(prev, next *domain.Stats) bool {
	if prev == nil || next == nil {
		return false
	}
	return next.Total < prev.Total || next.Score < prev.Score
}

func boolPtr(b bool) *bool { return &b }
