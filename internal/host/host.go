package host

import (
	"context"
	"errors"
	"sync"

	"drillbi-quiz/internal/auth"
	"drillbi-quiz/internal/domain"
	"drillbi-quiz/internal/engine"
	"github.com/golang/glog"
	pkgerrors "github.com/pkg/errors"
)

// SessionStore persists the active session id across restarts of the host
// process. It is a single slot; concurrent hosts sharing one slot overwrite
// each other.
type SessionStore interface {
	Get(ctx context.Context) (string, bool, error)
	Set(ctx context.Context, sessionID string) error
	Clear(ctx context.Context) error
}

type EventType string

const (
	EventSnapshot EventType = "snapshot"
	EventNotice   EventType = "notice"
	EventExpired  EventType = "expired"
	EventUpsell   EventType = "upsell"
)

// Event is what subscribers of a Host receive.
type Event struct {
	Type     EventType        `json:"type"`
	Snapshot *domain.Snapshot `json:"snapshot,omitempty"`
	Message  string           `json:"message,omitempty"`
}

// Option configures a Host.
type Option func(*Host)

func WithAIModel(model string) Option {
	return func(h *Host) { h.aiModel = model }
}

// Host owns the engine of the current attempt: it creates it, discards it when
// the attempt parameters change, and persists its session id.
type Host struct {
	api       engine.QuizAPI
	store     SessionStore
	principal auth.Principal
	aiModel   string

	mu      sync.Mutex
	current *engine.Engine
	params  domain.SessionParams

	subMu       sync.Mutex
	subscribers map[chan Event]struct{}
}

func New(api engine.QuizAPI, store SessionStore, principal auth.Principal, opts ...Option) *Host {
	h := &Host{
		api:         api,
		store:       store,
		principal:   principal,
		aiModel:     "openai",
		subscribers: make(map[chan Event]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Open starts an attempt, resuming the persisted session id if there is one.
func (h *Host) Open(ctx context.Context, params domain.SessionParams) error {
	resumeID, ok, err := h.store.Get(ctx)
	if err != nil {
		return pkgerrors.Wrap(err, "read persisted session")
	}
	if !ok {
		resumeID = ""
	}
	return h.launch(ctx, params, resumeID)
}

// SetParams restarts the attempt from scratch if any parameter changed.
func (h *Host) SetParams(ctx context.Context, params domain.SessionParams) error {
	h.mu.Lock()
	same := h.current != nil && h.params == params
	h.mu.Unlock()
	if same {
		return nil
	}
	return h.restart(ctx, params)
}

// ChangeOrder cycles the order mode and restarts the attempt.
func (h *Host) ChangeOrder(ctx context.Context) error {
	h.mu.Lock()
	params := h.params
	h.mu.Unlock()
	params.Order = params.Order.Next()
	glog.Infof("changing order to %s", params.Order.Label())
	return h.restart(ctx, params)
}

// restart stops the running engine, forgets the persisted id and only then
// starts a new one. Stopping first keeps the old engine from persisting its id
// after the slot was cleared.
func (h *Host) restart(ctx context.Context, params domain.SessionParams) error {
	h.Stop()
	if err := h.store.Clear(ctx); err != nil {
		return pkgerrors.Wrap(err, "clear persisted session")
	}
	return h.launch(ctx, params, "")
}

func (h *Host) launch(ctx context.Context, params domain.SessionParams, resumeID string) error {
	h.mu.Lock()
	if h.current != nil {
		h.current.Stop()
	}
	var e *engine.Engine
	e = engine.New(h.api, params,
		engine.WithResumeID(resumeID),
		engine.WithAIModel(h.aiModel),
		engine.OnSessionID(func(id string) { h.persist(e, id) }),
		engine.OnChange(func(s domain.Snapshot) {
			if h.isCurrent(e) {
				h.publish(Event{Type: EventSnapshot, Snapshot: &s})
			}
		}),
		engine.OnNotice(func(msg string) {
			if h.isCurrent(e) {
				h.publish(Event{Type: EventNotice, Message: msg})
			}
		}),
	)
	h.current = e
	h.params = params
	h.mu.Unlock()

	return ignoreStopped(e.Start(ctx))
}

// Stop discards the running engine, if any.
func (h *Host) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current != nil {
		h.current.Stop()
		h.current = nil
	}
}

// Done ends the attempt for good: the persisted id is dropped.
func (h *Host) Done(ctx context.Context) error {
	h.Stop()
	return pkgerrors.Wrap(h.store.Clear(ctx), "clear persisted session")
}

func (h *Host) Submit(ctx context.Context, label string) error {
	e, err := h.active()
	if err != nil {
		return err
	}
	return ignoreStopped(e.SubmitAnswer(ctx, e.Snapshot().SessionID, label))
}

func (h *Host) Next(ctx context.Context) error {
	e, err := h.active()
	if err != nil {
		return err
	}
	return ignoreStopped(e.FetchNextQuestion(ctx))
}

// Explain requests an AI explanation for the current question. Callers
// without the entitlement get ErrUpsellRequired and an upsell event, and no
// request reaches the engine.
func (h *Host) Explain(ctx context.Context, language string) error {
	e, err := h.active()
	if err != nil {
		return err
	}
	if !h.principal.CanExplain() {
		glog.V(2).Infof("explanation denied for %q (role %s)", h.principal.Username, h.principal.Role)
		h.publish(Event{Type: EventUpsell, Message: "AI explanations are available to premium members"})
		return domain.ErrUpsellRequired
	}
	s := e.Snapshot()
	if s.Question == nil {
		return domain.ErrNoQuestion
	}
	correct, _ := s.Question.CorrectOption()
	return ignoreStopped(e.RequestExplanation(ctx, engine.ExplanationRequest{
		SessionID:         s.SessionID,
		QuestionText:      s.Question.Text,
		CorrectAnswerText: correct.Text,
		Course:            s.Params.Course,
		Language:          language,
	}))
}

// Expire announces that the credential was rejected.
func (h *Host) Expire() {
	h.publish(Event{Type: EventExpired, Message: "session expired, please log in again"})
}

// Snapshot returns the current attempt state; UNSTARTED if there is none.
func (h *Host) Snapshot() domain.Snapshot {
	h.mu.Lock()
	e, params := h.current, h.params
	h.mu.Unlock()
	if e == nil {
		return domain.Snapshot{Phase: domain.PhaseUnstarted, Params: params}
	}
	return e.Snapshot()
}

func (h *Host) Principal() auth.Principal { return h.principal }

// Subscribe returns a channel of events starting with the current snapshot.
// The caller must invoke the returned cancel function to avoid leaks.
func (h *Host) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)
	initial := h.Snapshot()

	h.subMu.Lock()
	h.subscribers[ch] = struct{}{}
	ch <- Event{Type: EventSnapshot, Snapshot: &initial}
	h.subMu.Unlock()

	cancel := func() {
		h.subMu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.subMu.Unlock()
	}
	return ch, cancel
}

func (h *Host) publish(ev Event) {
	h.subMu.Lock()
	defer h.subMu.Unlock()
	for ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
			// slow subscriber: drop its oldest event
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (h *Host) active() (*engine.Engine, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.current == nil {
		return nil, domain.ErrNoSession
	}
	return h.current, nil
}

// persist stores the id of e while e is still current. The check and the
// write happen under the same lock as Stop.
func (h *Host) persist(e *engine.Engine, id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e == nil || h.current != e {
		glog.V(2).Infof("not persisting session %s of a discarded attempt", id)
		return
	}
	if err := h.store.Set(context.Background(), id); err != nil {
		glog.Warningf("persist session id %s: %v", id, err)
	}
}

func (h *Host) isCurrent(e *engine.Engine) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return e != nil && h.current == e
}

func ignoreStopped(err error) error {
	if errors.Is(err, domain.ErrStopped) {
		return nil
	}
	return err
}
