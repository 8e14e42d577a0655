package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/fefferico/quiz-app-sub000/internal/domain"
)

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Correct    bool   `json:"correct"`
}

type answerResult struct {
	QuestionID     string   `json:"questionId"`
	TimesCorrect   int      `json:"timesCorrect"`
	TimesIncorrect int      `json:"timesIncorrect"`
	Accuracy       *float64 `json:"accuracy,omitempty"`
}

type statusPayload struct {
	Online bool `json:"online"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS streams answers into the stats updater. Each "answer" message is
// recorded and acknowledged with the question's new counters; a "status"
// message is pushed whenever remote connectivity changes.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("ws upgrade failed")
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	statusDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.WithError(err).Debug("ws write failed")
				return
			}
		}
	}()

	online := h.store.Online()
	send <- outboundMessage[any]{Type: "status", Payload: statusPayload{Online: online}}

	go func() {
		defer close(statusDone)
		t := time.NewTicker(h.statusEvery)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				now := h.store.Online()
				if now == online {
					continue
				}
				online = now
				select {
				case send <- outboundMessage[any]{Type: "status", Payload: statusPayload{Online: now}}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.QuestionID == "" {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			q, err := h.store.Stats().RecordAnswer(r.Context(), domain.AnswerOutcome{
				QuestionID: payload.QuestionID,
				Correct:    payload.Correct,
			})
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "answerResult", Payload: answerResult{
				QuestionID:     q.ID,
				TimesCorrect:   q.TimesCorrect,
				TimesIncorrect: q.TimesIncorrect,
				Accuracy:       q.Accuracy,
			}}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-statusDone
	close(send)
	<-writerDone
}
