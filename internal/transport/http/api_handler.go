package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"drillbi-quiz/internal/auth"
	"drillbi-quiz/internal/domain"
	"github.com/golang/glog"
)

// FinishedBody is written instead of a question once an attempt is exhausted.
const FinishedBody = "Quiz finished"

// QuizService is the use-case surface the devserver API exposes.
type QuizService interface {
	Start(ctx context.Context, user string, req domain.StartRequest) (string, error)
	Next(ctx context.Context, user, sessionID string) (domain.Question, error)
	Submit(ctx context.Context, user, sessionID, label string) (domain.SubmissionResult, error)
	Explain(ctx context.Context, query domain.ExplanationQuery) (string, error)
}

// APIHandler serves the remote quiz API consumed by quizapi.Client.
type APIHandler struct {
	service QuizService
}

func NewAPIHandler(service QuizService) *APIHandler {
	return &APIHandler{service: service}
}

func (h *APIHandler) Start(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	course := q.Get("courseName")
	if course == "" {
		http.Error(w, "missing courseName", http.StatusBadRequest)
		return
	}
	order, err := domain.ParseOrderMode(q.Get("orderType"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	offset := 0
	if raw := q.Get("startQuestion"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil || offset < 0 {
			http.Error(w, "invalid startQuestion", http.StatusBadRequest)
			return
		}
	}

	id, err := h.service.Start(r.Context(), user(r), domain.StartRequest{Course: course, Order: order, StartOffset: offset})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]string{"sessionId": id})
}

func (h *APIHandler) Next(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}
	q, err := h.service.Next(r.Context(), user(r), sessionID)
	if errors.Is(err, domain.ErrQuizFinished) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(FinishedBody))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, q)
}

func (h *APIHandler) Submit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID, answer := q.Get("sessionId"), q.Get("answer")
	if sessionID == "" || answer == "" {
		http.Error(w, "missing sessionId or answer", http.StatusBadRequest)
		return
	}
	res, err := h.service.Submit(r.Context(), user(r), sessionID, answer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, res)
}

func (h *APIHandler) Explain(w http.ResponseWriter, r *http.Request) {
	var query domain.ExplanationQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if claims, ok := auth.ClaimsFrom(r.Context()); ok && !claims.Principal().CanExplain() {
		http.Error(w, domain.ErrUpsellRequired.Error(), http.StatusPaymentRequired)
		return
	}
	text, err := h.service.Explain(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

func user(r *http.Request) string {
	if claims, ok := auth.ClaimsFrom(r.Context()); ok {
		return claims.Subject
	}
	return ""
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.Warningf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrAttemptNotFound), errors.Is(err, domain.ErrCourseNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrOptionNotFound), errors.Is(err, domain.ErrNothingToAnswer), errors.Is(err, domain.ErrNoQuestion):
		status = http.StatusBadRequest
	default:
		glog.Errorf("quiz api: %v", err)
	}
	http.Error(w, err.Error(), status)
}
