package quizapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"drillbi-quiz/internal/domain"
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

const (
	startPath   = "/api/v2/quiz/start"
	nextPath    = "/api/v2/quiz/next"
	submitPath  = "/api/v2/quiz/submit"
	explainPath = "/api/v2/explain"
)

// Credential is a clearable bearer token. It is the oauth2.TokenSource the
// client's transport draws from on every request.
type Credential struct {
	mu    sync.RWMutex
	token string
}

func NewCredential(token string) *Credential {
	return &Credential{token: token}
}

func (c *Credential) Token() (*oauth2.Token, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return nil, errors.Wrap(domain.ErrUnauthorized, "no credential")
	}
	return &oauth2.Token{AccessToken: c.token, TokenType: "Bearer"}, nil
}

// Raw returns the token string, empty once cleared.
func (c *Credential) Raw() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Credential) Clear() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// StatusError is a non-2xx response other than 401/403.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned %s", e.Method, e.Path, e.Status)
}

type Config struct {
	BaseURL string
	Timeout time.Duration
	// OnUnauthorized fires after the credential was cleared because of a 401/403.
	OnUnauthorized func()
}

// Client talks to the remote quiz service.
type Client struct {
	base           *url.URL
	http           *http.Client
	cred           *Credential
	onUnauthorized func()
}

func New(cfg Config, cred *Credential) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base url")
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("base url %q must be absolute", cfg.BaseURL)
	}
	hc := &http.Client{
		Transport: &oauth2.Transport{Source: cred, Base: http.DefaultTransport},
		Timeout:   cfg.Timeout,
	}
	return &Client{base: base, http: hc, cred: cred, onUnauthorized: cfg.OnUnauthorized}, nil
}

// StartSession opens a new quiz session and returns its id.
func (c *Client) StartSession(ctx context.Context, req domain.StartRequest) (string, error) {
	q := url.Values{}
	q.Set("courseName", req.Course)
	q.Set("orderType", string(req.Order))
	q.Set("startQuestion", strconv.Itoa(req.StartOffset))
	body, err := c.do(ctx, http.MethodPost, startPath, q, nil)
	if err != nil {
		return "", err
	}
	var out struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", errors.Wrap(err, "decode start response")
	}
	return out.SessionID, nil
}

// NextQuestion fetches the next question of a session.
func (c *Client) NextQuestion(ctx context.Context, sessionID string) (domain.Question, error) {
	q := url.Values{}
	q.Set("sessionId", sessionID)
	body, err := c.do(ctx, http.MethodGet, nextPath, q, nil)
	if err != nil {
		return domain.Question{}, err
	}
	return ParseNextQuestion(body)
}

// SubmitAnswer sends the selected option label.
func (c *Client) SubmitAnswer(ctx context.Context, sessionID, label string) (domain.SubmissionResult, error) {
	q := url.Values{}
	q.Set("sessionId", sessionID)
	q.Set("answer", label)
	body, err := c.do(ctx, http.MethodPost, submitPath, q, nil)
	if err != nil {
		return domain.SubmissionResult{}, err
	}
	var res domain.SubmissionResult
	if err := json.Unmarshal(body, &res); err != nil {
		return domain.SubmissionResult{}, errors.Wrap(err, "decode submit response")
	}
	return res, nil
}

// Explain returns the free-form explanation text.
func (c *Client) Explain(ctx context.Context, query domain.ExplanationQuery) (string, error) {
	payload, err := json.Marshal(query)
	if err != nil {
		return "", errors.Wrap(err, "encode explanation request")
	}
	body, err := c.do(ctx, http.MethodPost, explainPath, nil, payload)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	glog.V(2).Infof("quiz api %s %s", method, path)
	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
		c.expire()
		return nil, errors.Wrapf(domain.ErrUnauthorized, "%s %s returned %s", method, path, res.Status)
	}
	if res.StatusCode/100 != 2 {
		return nil, &StatusError{Method: method, Path: path, StatusCode: res.StatusCode, Status: res.Status}
	}
	data, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s response", path)
	}
	return data, nil
}

func (c *Client) expire() {
	glog.Warningf("quiz api rejected credential, clearing it")
	c.cred.Clear()
	if c.onUnauthorized != nil {
		c.onUnauthorized()
	}
}
