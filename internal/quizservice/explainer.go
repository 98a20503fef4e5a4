package quizservice

import (
	"context"
	"fmt"
	"strings"

	"drillbi-quiz/internal/domain"
)

// StaticExplainer builds a templated explanation from the question itself.
// It stands in for the AI generator of the real service.
type StaticExplainer struct{}

func (StaticExplainer) Explain(_ context.Context, q domain.ExplanationQuery) (string, error) {
	correct, ok := q.Question.CorrectOption()
	if !ok {
		return "", fmt.Errorf("question %d has no correct option", q.Question.Number)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Question %d: %s\n", q.Question.Number, q.Question.Text)
	if chosen, ok := q.Question.Option(q.SelectedOption); ok && chosen.Label != correct.Label {
		fmt.Fprintf(&b, "You chose %s (%s), which is not right.\n", chosen.Label, chosen.Text)
	}
	fmt.Fprintf(&b, "The correct answer is %s: %s.", correct.Label, correct.Text)
	if q.AIModel != "" {
		fmt.Fprintf(&b, "\n[model=%s language=%s]", q.AIModel, q.Language)
	}
	return b.String(), nil
}
