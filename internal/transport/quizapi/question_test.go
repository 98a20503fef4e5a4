package quizapi

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"drillbi-quiz/internal/domain"
)

func TestParseNextQuestion(t *testing.T) {
	body := []byte(`{"id":7,"questionNumber":1,"courseName":"algebra1","questionText":"2+2?",
		"options":[{"optionLabel":"A","optionText":"3","isCorrect":false},{"optionLabel":"B","optionText":"4","isCorrect":true}],
		"language":"en","imageUrl":null}`)
	q, err := ParseNextQuestion(body)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if q.Number != 1 || len(q.Options) != 2 || q.ID == nil || *q.ID != 7 {
		t.Fatalf("unexpected question %+v", q)
	}
	if opt, ok := q.CorrectOption(); !ok || opt.Label != "B" {
		t.Fatalf("expected correct flag to survive decoding, got %+v", opt)
	}
}

func TestParseNextQuestionSentinel(t *testing.T) {
	for _, body := range []string{"Quiz finished", "  Quiz finished!\n", `"Quiz finished"`} {
		if _, err := ParseNextQuestion([]byte(body)); !errors.Is(err, domain.ErrQuizFinished) {
			t.Fatalf("%q: expected ErrQuizFinished, got %v", body, err)
		}
	}
}

func TestParseNextQuestionMalformed(t *testing.T) {
	cases := []string{
		"<html>Bad gateway</html>",
		`{"questionText": 5}`,
		`{"questionText":"x","options":[{"optionLabel":"A"}]}`,
		`{"questionText":"x"`,
	}
	for _, body := range cases {
		_, err := ParseNextQuestion([]byte(body))
		if !errors.Is(err, domain.ErrMalformedQuestion) {
			t.Fatalf("%q: expected ErrMalformedQuestion, got %v", body, err)
		}
		if errors.Is(err, domain.ErrQuizFinished) {
			t.Fatalf("%q: malformed body confused with completion", body)
		}
	}

	_, err := ParseNextQuestion([]byte("<html>Bad gateway</html>"))
	if !strings.HasPrefix(err.Error(), "could not read next question: <html>") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestMalformedExcerptKeepsRunesWhole(t *testing.T) {
	body := "<p>" + strings.Repeat("Frågan kunde inte läsas ", 20) + "</p>"
	_, err := ParseNextQuestion([]byte(body))
	if !errors.Is(err, domain.ErrMalformedQuestion) {
		t.Fatalf("expected ErrMalformedQuestion, got %v", err)
	}
	msg := err.Error()
	if !utf8.ValidString(msg) {
		t.Fatalf("message is not valid UTF-8: %q", msg)
	}
	if !strings.HasSuffix(msg, "...") {
		t.Fatalf("expected truncated excerpt, got %q", msg)
	}
}
