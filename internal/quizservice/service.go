package quizservice

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"drillbi-quiz/internal/domain"
	"github.com/golang/glog"
	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"
)

const (
	FeedbackCorrect   = "feedback.correct"
	FeedbackIncorrect = "feedback.incorrect"
)

// CourseRepository loads course content (from cache/backing store).
type CourseRepository interface {
	GetCourse(ctx context.Context, name string) (domain.Course, error)
}

// AttemptStore abstracts how attempts are stored.
type AttemptStore interface {
	Get(ctx context.Context, id string) (domain.Attempt, error)
	Save(ctx context.Context, a domain.Attempt) error
}

// Explainer produces the text of an AI explanation.
type Explainer interface {
	Explain(ctx context.Context, query domain.ExplanationQuery) (string, error)
}

// Service contains the quiz use cases the devserver exposes over HTTP.
type Service struct {
	courses   CourseRepository
	attempts  AttemptStore
	explainer Explainer
	now       func() time.Time

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewService(courses CourseRepository, attempts AttemptStore, explainer Explainer) *Service {
	return &Service{
		courses:   courses,
		attempts:  attempts,
		explainer: explainer,
		now:       time.Now,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewServiceWithSeed is test-only for a deterministic RANDOM order.
func NewServiceWithSeed(courses CourseRepository, attempts AttemptStore, explainer Explainer, seed int64) *Service {
	s := NewService(courses, attempts, explainer)
	s.rnd = rand.New(rand.NewSource(seed))
	return s
}

// Start opens an attempt over course, serving questions from offset onward
// in the requested order.
func (s *Service) Start(ctx context.Context, user string, req domain.StartRequest) (string, error) {
	course, err := s.courses.GetCourse(ctx, req.Course)
	if err != nil {
		return "", err
	}
	if req.StartOffset < 0 {
		req.StartOffset = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	a := domain.Attempt{
		ID:        uuid.NewString(),
		User:      user,
		Course:    course.Name,
		Mode:      req.Order,
		Order:     s.layout(course, req.Order, req.StartOffset),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.attempts.Save(ctx, a); err != nil {
		return "", pkgerrors.Wrap(err, "save attempt")
	}
	glog.Infof("attempt %s started by %q: course=%s order=%s offset=%d questions=%d",
		a.ID, user, a.Course, a.Mode, req.StartOffset, len(a.Order))
	return a.ID, nil
}

// Next serves the next question. An unanswered question is served again.
// After the last question it returns domain.ErrQuizFinished.
func (s *Service) Next(ctx context.Context, user, sessionID string) (domain.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, course, err := s.load(ctx, user, sessionID)
	if err != nil {
		return domain.Question{}, err
	}
	if a.Pending != nil {
		return course.Questions[*a.Pending], nil
	}
	if a.Cursor >= len(a.Order) {
		return domain.Question{}, domain.ErrQuizFinished
	}

	idx := a.Order[a.Cursor]
	a.Cursor++
	a.Pending = &idx
	a.UpdatedAt = s.now()
	if err := s.attempts.Save(ctx, a); err != nil {
		return domain.Question{}, pkgerrors.Wrap(err, "save attempt")
	}
	return course.Questions[idx], nil
}

// Submit scores label against the pending question. Total grows by exactly
// one per accepted submission.
func (s *Service) Submit(ctx context.Context, user, sessionID, label string) (domain.SubmissionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, course, err := s.load(ctx, user, sessionID)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	if a.Pending == nil {
		return domain.SubmissionResult{}, domain.ErrNothingToAnswer
	}
	q := course.Questions[*a.Pending]
	selected, ok := q.Option(label)
	if !ok {
		return domain.SubmissionResult{}, domain.ErrOptionNotFound
	}

	a.Total++
	if selected.IsCorrect {
		a.Score++
	}
	a.Pending = nil
	a.UpdatedAt = s.now()
	if err := s.attempts.Save(ctx, a); err != nil {
		return domain.SubmissionResult{}, pkgerrors.Wrap(err, "save attempt")
	}

	stats := a.Stats()
	res := domain.SubmissionResult{
		Correct:     selected.IsCorrect,
		FeedbackKey: FeedbackIncorrect,
		Option:      label,
		Stats:       &stats,
	}
	if selected.IsCorrect {
		res.FeedbackKey = FeedbackCorrect
	}
	if correct, ok := q.CorrectOption(); ok {
		res.CorrectAnswer = correct.Label
	}
	glog.V(2).Infof("attempt %s: question %d answered %s correct=%v stats=%+v",
		a.ID, q.Number, label, selected.IsCorrect, stats)
	return res, nil
}

// Explain delegates to the configured explainer.
func (s *Service) Explain(ctx context.Context, query domain.ExplanationQuery) (string, error) {
	if query.Question.Text == "" {
		return "", domain.ErrNoQuestion
	}
	return s.explainer.Explain(ctx, query)
}

func (s *Service) load(ctx context.Context, user, sessionID string) (domain.Attempt, domain.Course, error) {
	a, err := s.attempts.Get(ctx, sessionID)
	if err != nil {
		return domain.Attempt{}, domain.Course{}, err
	}
	if a.User != "" && a.User != user {
		return domain.Attempt{}, domain.Course{}, domain.ErrAttemptNotFound
	}
	course, err := s.courses.GetCourse(ctx, a.Course)
	if err != nil {
		return domain.Attempt{}, domain.Course{}, err
	}
	for _, idx := range a.Order {
		if idx >= len(course.Questions) {
			return domain.Attempt{}, domain.Course{}, pkgerrors.Errorf("course %s changed under attempt %s", a.Course, a.ID)
		}
	}
	return a, course, nil
}

// layout returns question indexes from offset onward, by question number,
// arranged for mode. s.mu must be held.
func (s *Service) layout(course domain.Course, mode domain.OrderMode, offset int) []int {
	byNumber := make([]int, len(course.Questions))
	for i := range byNumber {
		byNumber[i] = i
	}
	sort.SliceStable(byNumber, func(i, j int) bool {
		return course.Questions[byNumber[i]].Number < course.Questions[byNumber[j]].Number
	})
	if offset >= len(byNumber) {
		return []int{}
	}
	order := append([]int(nil), byNumber[offset:]...)

	switch mode {
	case domain.OrderReverse:
		for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
			order[i], order[j] = order[j], order[i]
		}
	case domain.OrderRandom:
		s.rnd.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	return order
}
