package quizservice

import "drillbi-quiz/internal/domain"

// SampleCourses is the built-in course content of the devserver.
func SampleCourses() map[string]domain.Course {
	return map[string]domain.Course{
		"algebra1": {
			Name:        "algebra1",
			DisplayName: "Algebra 1",
			Questions: []domain.Question{
				question(1, "algebra1", "What is 2 + 2?", "B", "3", "4", "5"),
				question(2, "algebra1", "Solve for x: x + 3 = 7", "A", "4", "10", "-4"),
				question(3, "algebra1", "What is 3 * (2 + 1)?", "C", "7", "6", "9"),
			},
		},
		"geometry": {
			Name:        "geometry",
			DisplayName: "Geometry",
			Questions: []domain.Question{
				question(1, "geometry", "How many degrees are in a triangle?", "B", "90", "180", "360"),
				question(2, "geometry", "A square has sides of 3. What is its area?", "A", "9", "12", "6"),
			},
		},
	}
}

func question(number int, course, text, correct string, options ...string) domain.Question {
	q := domain.Question{Number: number, Course: course, Text: text, Language: "en"}
	id := int64(number)
	q.ID = &id
	for i, opt := range options {
		label := string(rune('A' + i))
		q.Options = append(q.Options, domain.Option{Label: label, Text: opt, IsCorrect: label == correct})
	}
	return q
}
