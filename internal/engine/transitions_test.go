package engine

import (
	"testing"

	"drillbi-quiz/internal/domain"
)

func readySnapshot() domain.Snapshot {
	q := domain.Question{
		Number: 1,
		Text:   "What is 2 + 2?",
		Options: []domain.Option{
			{Label: "A", Text: "3"},
			{Label: "B", Text: "4", IsCorrect: true},
		},
	}
	return applyQuestion(domain.Snapshot{Phase: domain.PhaseStarting, SessionID: "s1"}, q)
}

func TestOptimisticAnswerUsesLocalFlags(t *testing.T) {
	s := applyOptimisticAnswer(readySnapshot(), "B")
	if !s.Submitted || s.SelectedOption != "B" || s.Phase != domain.PhaseAnswerSubmitted {
		t.Fatalf("unexpected optimistic snapshot %+v", s)
	}
	if s.Correct == nil || !*s.Correct {
		t.Fatalf("expected provisional correct=true, got %v", s.Correct)
	}

	s = applyOptimisticAnswer(readySnapshot(), "Z")
	if !s.Submitted || s.Correct != nil {
		t.Fatalf("unknown label should submit without provisional correctness, got %+v", s)
	}
}

func TestAuthoritativeAnswerWins(t *testing.T) {
	s := applyOptimisticAnswer(readySnapshot(), "B")
	res := domain.SubmissionResult{
		Correct:     false,
		FeedbackKey: "feedback.incorrect",
		Stats:       &domain.Stats{Score: 0, Total: 1, ErrorRate: 100},
	}
	s = applyAuthoritativeAnswer(s, res)
	if s.Correct == nil || *s.Correct {
		t.Fatalf("expected authoritative correct=false, got %v", s.Correct)
	}
	if s.FeedbackKey != "feedback.incorrect" || s.Stats == nil || s.Stats.Total != 1 {
		t.Fatalf("feedback not applied: %+v", s)
	}

	again := applyAuthoritativeAnswer(s, res)
	if *again.Correct != *s.Correct || again.FeedbackKey != s.FeedbackKey || *again.Stats != *s.Stats {
		t.Fatalf("reconciliation is not idempotent: %+v vs %+v", again, s)
	}
}

func TestAuthoritativeStatsAreCopied(t *testing.T) {
	stats := &domain.Stats{Score: 1, Total: 1}
	s := applyAuthoritativeAnswer(readySnapshot(), domain.SubmissionResult{Correct: true, Stats: stats})
	stats.Total = 99
	if s.Stats.Total != 1 {
		t.Fatalf("snapshot shares stats with response")
	}
}

func TestQuestionResetsExplanation(t *testing.T) {
	s := readySnapshot()
	s.Explanation = domain.DisplayExplanation("because")
	s = applyOptimisticAnswer(s, "A")

	s = applyQuestion(s, domain.Question{Number: 2, Text: "next"})
	if s.Explanation.State() != domain.ExplanationIdle {
		t.Fatalf("expected idle explanation, got %s", s.Explanation.State())
	}
	if s.Submitted || s.Correct != nil || s.SelectedOption != "" {
		t.Fatalf("answer state leaked into next question: %+v", s)
	}
}

func TestExplanationTransitions(t *testing.T) {
	s, err := beginExplanation(readySnapshot())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if s.Explanation.State() != domain.ExplanationPreparing {
		t.Fatalf("expected preparing, got %s", s.Explanation.State())
	}
	if _, err := beginExplanation(s); err != domain.ErrBusy {
		t.Fatalf("expected ErrBusy while preparing, got %v", err)
	}

	done := completeExplanation(s, "B is four")
	if done.Explanation.State() != domain.ExplanationDisplay || done.Explanation.Text() != "B is four" {
		t.Fatalf("unexpected display state %+v", done.Explanation)
	}
	if failed := failExplanation(s); failed.Explanation.State() != domain.ExplanationIdle {
		t.Fatalf("expected idle after failure, got %s", failed.Explanation.State())
	}
}

func TestFailureKeepsOptimisticCorrectness(t *testing.T) {
	s := applyOptimisticAnswer(readySnapshot(), "B")
	s = applyFailure(s, "boom")
	if s.Phase != domain.PhaseError || s.Err != "boom" {
		t.Fatalf("expected error phase, got %+v", s)
	}
	if s.Correct == nil || !*s.Correct {
		t.Fatalf("optimistic correctness should stay visible")
	}
}

func TestStatsRegressed(t *testing.T) {
	prev := &domain.Stats{Score: 2, Total: 3}
	if statsRegressed(prev, &domain.Stats{Score: 2, Total: 4}) {
		t.Fatalf("forward move reported as regression")
	}
	if !statsRegressed(prev, &domain.Stats{Score: 2, Total: 2}) {
		t.Fatalf("total decrease not detected")
	}
	if statsRegressed(nil, prev) {
		t.Fatalf("nil previous stats cannot regress")
	}
}

func TestStatsOnlyLeavesAnswerStateAlone(t *testing.T) {
	s := readySnapshot()
	res := domain.SubmissionResult{Correct: true, FeedbackKey: "feedback.correct", Stats: &domain.Stats{Score: 1, Total: 1}}
	s = applyStats(s, res)
	if s.Submitted || s.Correct != nil || s.FeedbackKey != "" {
		t.Fatalf("stats-only update touched the answer state: %+v", s)
	}
	if s.Stats == nil || *s.Stats != *res.Stats {
		t.Fatalf("expected stats %+v, got %+v", *res.Stats, s.Stats)
	}
}
