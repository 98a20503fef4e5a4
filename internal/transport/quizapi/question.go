package quizapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"drillbi-quiz/internal/domain"
	"github.com/xeipuuv/gojsonschema"
)

// FinishedSentinel is the text the quiz service sends instead of a question
// once a session has no questions left.
const FinishedSentinel = "Quiz finished"

const questionSchemaJSON = `{
  "type": "object",
  "required": ["questionText", "options"],
  "properties": {
    "id": {"type": ["integer", "null"]},
    "questionNumber": {"type": "integer"},
    "courseName": {"type": ["string", "null"]},
    "questionText": {"type": "string"},
    "language": {"type": ["string", "null"]},
    "imageUrl": {"type": ["string", "null"]},
    "options": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["optionLabel", "optionText"],
        "properties": {
          "optionLabel": {"type": "string"},
          "optionText": {"type": "string"},
          "isCorrect": {"type": "boolean"}
        }
      }
    }
  }
}`

var questionSchema = mustSchema(questionSchemaJSON)

func mustSchema(raw string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(err)
	}
	return s
}

// ParseNextQuestion reads a next-question body. A question object yields the
// question, text carrying FinishedSentinel yields domain.ErrQuizFinished, and
// anything else is domain.ErrMalformedQuestion.
func ParseNextQuestion(body []byte) (domain.Question, error) {
	trimmed := bytes.TrimSpace(body)
	text := string(trimmed)

	if !bytes.HasPrefix(trimmed, []byte("{")) || !json.Valid(trimmed) {
		if strings.Contains(text, FinishedSentinel) {
			return domain.Question{}, domain.ErrQuizFinished
		}
		return domain.Question{}, fmt.Errorf("%w: %s", domain.ErrMalformedQuestion, excerpt(text))
	}

	result, err := questionSchema.Validate(gojsonschema.NewBytesLoader(trimmed))
	if err != nil {
		return domain.Question{}, fmt.Errorf("%w: %v", domain.ErrMalformedQuestion, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return domain.Question{}, fmt.Errorf("%w: %s", domain.ErrMalformedQuestion, strings.Join(msgs, "; "))
	}

	var q domain.Question
	if err := json.Unmarshal(trimmed, &q); err != nil {
		return domain.Question{}, fmt.Errorf("%w: %v", domain.ErrMalformedQuestion, err)
	}
	return q, nil
}

func excerpt(s string) string {
	const max = 200
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + "..."
}
