package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"drillbi-quiz/internal/domain"
	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// QuizAPI is the remote quiz service as seen by one attempt.
// NextQuestion returns domain.ErrQuizFinished for the completion sentinel and
// domain.ErrMalformedQuestion for any other unreadable body.
type QuizAPI interface {
	StartSession(ctx context.Context, req domain.StartRequest) (string, error)
	NextQuestion(ctx context.Context, sessionID string) (domain.Question, error)
	SubmitAnswer(ctx context.Context, sessionID, label string) (domain.SubmissionResult, error)
	Explain(ctx context.Context, query domain.ExplanationQuery) (string, error)
}

// ExplanationRequest asks for an AI explanation of the current question.
// Callers only send it after an incorrect answer; the engine does not re-check.
type ExplanationRequest struct {
	SessionID         string
	QuestionText      string
	CorrectAnswerText string
	Course            string
	Language          string
}

const defaultLanguage = "sv"

type opClass int

const (
	opStart opClass = iota
	opFetch
	opSubmit
	opExplain
	opCount
)

// Option configures an Engine.
type Option func(*Engine)

// WithResumeID makes Start skip the start request and continue an existing session.
func WithResumeID(id string) Option {
	return func(e *Engine) { e.resumeID = id }
}

// WithAIModel sets the model name sent with explanation requests.
func WithAIModel(model string) Option {
	return func(e *Engine) { e.aiModel = model }
}

// OnSessionID is called once when the remote service issues a fresh session id.
func OnSessionID(fn func(id string)) Option {
	return func(e *Engine) { e.onSessionID = fn }
}

// OnChange is called with every committed snapshot.
func OnChange(fn func(domain.Snapshot)) Option {
	return func(e *Engine) { e.onChange = fn }
}

// OnNotice receives transient messages that are not part of the state.
func OnNotice(fn func(msg string)) Option {
	return func(e *Engine) { e.onNotice = fn }
}

// Engine drives a single quiz attempt. It is discarded, never reset: a new
// attempt gets a new Engine.
type Engine struct {
	api         QuizAPI
	resumeID    string
	aiModel     string
	onSessionID func(string)
	onChange    func(domain.Snapshot)
	onNotice    func(string)

	mu      sync.Mutex
	state   domain.Snapshot
	busy    [opCount]bool
	stopped bool
}

func New(api QuizAPI, params domain.SessionParams, opts ...Option) *Engine {
	e := &Engine{
		api:     api,
		aiModel: "openai",
		state: domain.Snapshot{
			Phase:  domain.PhaseUnstarted,
			Params: params,
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() domain.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Stop disposes the engine. Results of requests still in flight are dropped.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.stopped {
		glog.V(2).Infof("stopping quiz engine (session %q)", e.state.SessionID)
	}
	e.stopped = true
}

// Start opens the session, or resumes it when a resume id was supplied, and
// loads the first question.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.acquire(opStart); err != nil {
		return err
	}
	defer e.release(opStart)

	e.mu.Lock()
	if e.state.Phase != domain.PhaseUnstarted {
		e.mu.Unlock()
		return errors.Errorf("engine already started (phase %s)", e.state.Phase)
	}
	params := e.state.Params
	resume := e.resumeID
	e.mu.Unlock()

	if !e.commit(func(s domain.Snapshot) domain.Snapshot {
		s = applyStarting(s)
		if resume != "" {
			s = applySessionID(s, resume)
		}
		return s
	}) {
		return nil
	}

	if resume != "" {
		glog.Infof("resuming quiz session %s", resume)
		return e.fetchGuarded(ctx, resume)
	}

	glog.Infof("starting quiz course=%s order=%s offset=%d", params.Course, params.Order, params.StartOffset)
	id, err := e.api.StartSession(ctx, domain.StartRequest{
		Course:      params.Course,
		Order:       params.Order,
		StartOffset: params.StartOffset,
	})
	if err == nil && id == "" {
		err = errors.New("start response carried no session id")
	}
	if err != nil {
		glog.Errorf("quiz start failed: %v", err)
		e.commit(func(s domain.Snapshot) domain.Snapshot {
			return applyFailure(s, fmt.Sprintf("could not start quiz: %v", err))
		})
		return err
	}

	if !e.commit(func(s domain.Snapshot) domain.Snapshot { return applySessionID(s, id) }) {
		return nil
	}
	if e.onSessionID != nil {
		e.onSessionID(id)
	}
	return e.fetchGuarded(ctx, id)
}

// FetchNextQuestion replaces the current question with the next one, or
// finishes the attempt when the service reports completion.
func (e *Engine) FetchNextQuestion(ctx context.Context) error {
	e.mu.Lock()
	s := e.state
	e.mu.Unlock()
	switch s.Phase {
	case domain.PhaseFinished, domain.PhaseError:
		return domain.ErrAttemptEnded
	}
	if s.SessionID == "" {
		return domain.ErrNoSession
	}
	return e.fetchGuarded(ctx, s.SessionID)
}

func (e *Engine) fetchGuarded(ctx context.Context, sessionID string) error {
	if err := e.acquire(opFetch); err != nil {
		return err
	}
	defer e.release(opFetch)

	q, err := e.api.NextQuestion(ctx, sessionID)
	switch {
	case err == nil:
		glog.V(2).Infof("session %s: question %d ready", sessionID, q.Number)
		e.commit(func(s domain.Snapshot) domain.Snapshot { return applyQuestion(s, q) })
		return nil
	case errors.Is(err, domain.ErrQuizFinished):
		glog.Infof("session %s: quiz finished", sessionID)
		e.commit(applyFinished)
		return nil
	case errors.Is(err, domain.ErrMalformedQuestion):
		glog.Warningf("session %s: %v", sessionID, err)
		e.commit(func(s domain.Snapshot) domain.Snapshot { return applyFailure(s, err.Error()) })
		return err
	default:
		glog.Errorf("session %s: get next question failed: %v", sessionID, err)
		e.commit(func(s domain.Snapshot) domain.Snapshot {
			return applyFailure(s, fmt.Sprintf("could not get next question: %v", err))
		})
		return err
	}
}

// SubmitAnswer answers the current question. Without a loaded question it is
// a no-op. Correctness is shown from the local option flags first and then
// overwritten by the service response, unless another question has been
// loaded in the meantime.
func (e *Engine) SubmitAnswer(ctx context.Context, sessionID, label string) error {
	if err := e.acquire(opSubmit); err != nil {
		return err
	}
	defer e.release(opSubmit)

	e.mu.Lock()
	s := e.state
	switch {
	case e.stopped:
		e.mu.Unlock()
		return nil
	case s.Question == nil:
		e.mu.Unlock()
		return nil
	case s.Phase == domain.PhaseError || s.Phase == domain.PhaseFinished:
		e.mu.Unlock()
		return domain.ErrAttemptEnded
	case sessionID != s.SessionID:
		e.mu.Unlock()
		return domain.ErrSessionMismatch
	case s.Submitted:
		e.mu.Unlock()
		return domain.ErrAlreadySubmitted
	}
	answered := s.Question
	e.state = applyOptimisticAnswer(s, label)
	snap := e.state
	e.mu.Unlock()
	e.notify(snap)

	res, err := e.api.SubmitAnswer(ctx, sessionID, label)
	if err != nil {
		glog.Errorf("session %s: submit answer failed: %v", sessionID, err)
		e.commit(func(s domain.Snapshot) domain.Snapshot {
			return applyFailure(s, fmt.Sprintf("could not submit answer: %v", err))
		})
		return err
	}
	e.commit(func(s domain.Snapshot) domain.Snapshot {
		if statsRegressed(s.Stats, res.Stats) {
			glog.Warningf("session %s: stats moved backwards (%+v -> %+v)", sessionID, *s.Stats, *res.Stats)
		}
		if s.Question != answered {
			// the next question arrived first; only the running stats still apply
			glog.V(2).Infof("session %s: answer result arrived after question change", sessionID)
			return applyStats(s, res)
		}
		return applyAuthoritativeAnswer(s, res)
	})
	return nil
}

// RequestExplanation fetches an AI explanation for the current question.
// Failures return the panel to idle and are reported through OnNotice.
func (e *Engine) RequestExplanation(ctx context.Context, req ExplanationRequest) error {
	if err := e.acquire(opExplain); err != nil {
		return err
	}
	defer e.release(opExplain)

	e.mu.Lock()
	s := e.state
	if e.stopped {
		e.mu.Unlock()
		return nil
	}
	if s.Question == nil {
		e.mu.Unlock()
		return domain.ErrNoQuestion
	}
	if req.SessionID != s.SessionID {
		e.mu.Unlock()
		return domain.ErrSessionMismatch
	}
	next, err := beginExplanation(s)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	language := req.Language
	if language == "" {
		language = defaultLanguage
	}
	query := domain.ExplanationQuery{
		Question:       *s.Question,
		SelectedOption: s.SelectedOption,
		Language:       language,
		AIModel:        e.aiModel,
	}
	e.state = next
	e.mu.Unlock()
	e.notify(next)

	glog.V(2).Infof("session %s: explanation requested course=%s question=%q", req.SessionID, req.Course, req.QuestionText)
	text, err := e.api.Explain(ctx, query)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty explanation")
	}
	if err != nil {
		glog.Warningf("session %s: explanation failed: %v", req.SessionID, err)
		if e.commit(failExplanation) && e.onNotice != nil {
			e.onNotice(fmt.Sprintf("AI explanation error: %v", err))
		}
		return err
	}
	e.commit(func(s domain.Snapshot) domain.Snapshot { return completeExplanation(s, text) })
	return nil
}

func (e *Engine) acquire(op opClass) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return domain.ErrStopped
	}
	if e.busy[op] {
		return domain.ErrBusy
	}
	e.busy[op] = true
	return nil
}

func (e *Engine) release(op opClass) {
	e.mu.Lock()
	e.busy[op] = false
	e.mu.Unlock()
}

// commit applies fn unless the engine was stopped and reports whether it did.
func (e *Engine) commit(fn func(domain.Snapshot) domain.Snapshot) bool {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		glog.V(3).Infof("dropping update for stopped engine")
		return false
	}
	e.state = fn(e.state)
	snap := e.state
	e.mu.Unlock()
	e.notify(snap)
	return true
}

func (e *Engine) notify(s domain.Snapshot) {
	if e.onChange != nil {
		e.onChange(s)
	}
}
