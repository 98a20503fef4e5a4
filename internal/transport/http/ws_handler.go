package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"drillbi-quiz/internal/domain"
	"drillbi-quiz/internal/host"
	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

// SessionHost is the quiz host a presentation feed drives.
type SessionHost interface {
	Subscribe() (<-chan host.Event, func())
	Snapshot() domain.Snapshot
	SetParams(ctx context.Context, params domain.SessionParams) error
	ChangeOrder(ctx context.Context) error
	Submit(ctx context.Context, label string) error
	Next(ctx context.Context) error
	Explain(ctx context.Context, language string) error
	Done(ctx context.Context) error
}

type WSHandler struct {
	host     SessionHost
	upgrader websocket.Upgrader
}

func NewWSHandler(h SessionHost) *WSHandler {
	return &WSHandler{
		host: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Option string `json:"option"`
}

type explainPayload struct {
	Language string `json:"language"`
}

type paramsPayload struct {
	Course        string `json:"courseName"`
	OrderType     string `json:"orderType"`
	StartQuestion int    `json:"startQuestion"` // 1-based
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type errorPayload struct {
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
}

// ServeState writes the current snapshot as JSON.
func (h *WSHandler) ServeState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.host.Snapshot())
}

// ServeWS upgrades HTTP requests to websockets, streams host events to the
// client and runs the commands it sends.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glog.Warningf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := h.host.Subscribe()
	defer cancel()

	// Commands outlive the connection: an answer in flight still lands in the host.
	ctx := context.WithoutCancel(r.Context())

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})
	var commands sync.WaitGroup

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				glog.V(2).Infof("ws write error: %v", err)
				// keep draining so producers never block on a dead client
				for range send {
				}
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: string(ev.Type), Payload: ev}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	reply := func(msg outboundMessage) {
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		run, err := h.command(inbound)
		if err != nil {
			reply(outboundMessage{Type: "error", Payload: errorPayload{Command: inbound.Type, Message: err.Error()}})
			continue
		}
		commands.Add(1)
		go func(name string) {
			defer commands.Done()
			if err := run(ctx); err != nil {
				glog.V(2).Infof("ws command %s: %v", name, err)
				reply(outboundMessage{Type: "error", Payload: errorPayload{Command: name, Message: err.Error()}})
			}
		}(inbound.Type)
	}

	close(closeSignals)
	<-eventsDone
	commands.Wait()
	close(send)
	<-writerDone
}

func (h *WSHandler) command(in inboundMessage) (func(context.Context) error, error) {
	switch in.Type {
	case "answer":
		var p answerPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil || p.Option == "" {
			return nil, errors.New("invalid answer payload")
		}
		return func(ctx context.Context) error { return h.host.Submit(ctx, p.Option) }, nil
	case "next":
		return h.host.Next, nil
	case "explain":
		var p explainPayload
		if len(in.Payload) > 0 {
			if err := json.Unmarshal(in.Payload, &p); err != nil {
				return nil, errors.New("invalid explain payload")
			}
		}
		return func(ctx context.Context) error { return h.host.Explain(ctx, p.Language) }, nil
	case "changeOrder":
		return h.host.ChangeOrder, nil
	case "params":
		var p paramsPayload
		if err := json.Unmarshal(in.Payload, &p); err != nil || p.Course == "" {
			return nil, errors.New("invalid params payload")
		}
		order, err := domain.ParseOrderMode(p.OrderType)
		if err != nil {
			return nil, err
		}
		params := domain.SessionParams{Course: p.Course, Order: order, StartOffset: startOffset(p.StartQuestion)}
		return func(ctx context.Context) error { return h.host.SetParams(ctx, params) }, nil
	case "done":
		return h.host.Done, nil
	}
	return nil, errors.New("unsupported message type")
}

// startOffset converts a 1-based start question into the zero-based offset.
func startOffset(startQuestion int) int {
	if startQuestion <= 1 {
		return 0
	}
	return startQuestion - 1
}
