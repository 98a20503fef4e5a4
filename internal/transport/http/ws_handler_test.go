package http

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"drillbi-quiz/internal/auth"
	"drillbi-quiz/internal/domain"
	"drillbi-quiz/internal/host"
	"drillbi-quiz/internal/infra/memory"
	"github.com/gorilla/websocket"
)

type feedMessage struct {
	Type    string `json:"type"`
	Payload struct {
		Message  string `json:"message"`
		Command  string `json:"command"`
		Snapshot *struct {
			Phase    domain.Phase `json:"phase"`
			Question *struct {
				Number int `json:"questionNumber"`
			} `json:"question"`
			Correct *bool         `json:"correct"`
			Stats   *domain.Stats `json:"stats"`
		} `json:"snapshot"`
	} `json:"payload"`
}

func TestWebSocketFeedDrivesHost(t *testing.T) {
	devserver := newDevserver(t)
	token := issue(t, "bob", auth.RoleUser, false)
	api := newQuizClient(t, devserver.URL, token, nil)
	principal, err := auth.Inspect(token)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	h := host.New(api, memory.NewSessionStore(), principal)

	feed := httptest.NewServer(NewFeedRouter(NewWSHandler(h), nil))
	defer feed.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+feed.URL[len("http"):]+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	first := readUntil(t, conn, func(m feedMessage) bool { return m.Type == "snapshot" })
	if first.Payload.Snapshot.Phase != domain.PhaseUnstarted {
		t.Fatalf("expected UNSTARTED first, got %s", first.Payload.Snapshot.Phase)
	}

	send(t, conn, "params", map[string]any{"courseName": "algebra1", "orderType": "ORDER", "startQuestion": 1})
	readUntil(t, conn, func(m feedMessage) bool {
		s := m.Payload.Snapshot
		return s != nil && s.Phase == domain.PhaseQuestionReady && s.Question != nil && s.Question.Number == 1
	})

	send(t, conn, "answer", map[string]any{"option": "A"})
	answered := readUntil(t, conn, func(m feedMessage) bool {
		s := m.Payload.Snapshot
		return s != nil && s.Phase == domain.PhaseAnswerSubmitted && s.Stats != nil
	})
	if s := answered.Payload.Snapshot; s.Correct == nil || *s.Correct || s.Stats.Total != 1 || s.Stats.Score != 0 {
		t.Fatalf("unexpected answer snapshot %+v", s)
	}

	send(t, conn, "explain", map[string]any{"language": "en"})
	readUntil(t, conn, func(m feedMessage) bool { return m.Type == string(host.EventUpsell) })

	send(t, conn, "dance", nil)
	bad := readUntil(t, conn, func(m feedMessage) bool { return m.Type == "error" })
	if bad.Payload.Command != "dance" {
		t.Fatalf("expected error for unknown command, got %+v", bad.Payload)
	}
}

func send(t *testing.T, conn *websocket.Conn, typ string, payload any) {
	t.Helper()
	raw, _ := json.Marshal(payload)
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": json.RawMessage(raw)}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func readUntil(t *testing.T, conn *websocket.Conn, match func(feedMessage) bool) feedMessage {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var msg feedMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read json: %v", err)
		}
		if match(msg) {
			return msg
		}
	}
}
