package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"radrush-quiz-service/internal/app"
	"radrush-quiz-service/internal/domain"
)

const tickInterval = 100 * time.Millisecond

// RulesFunc returns the session rules for a mode.
type RulesFunc func(mode domain.Mode) domain.SessionConfig

// WSHandler drives one quiz session per websocket connection.
type WSHandler struct {
	service  *app.QuizService
	rules    RulesFunc
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, rules RulesFunc, logger zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		rules:   rules,
		logger:  logger,
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

type preparePayload struct {
	Mode      string            `json:"mode"`
	Questions []domain.Question `json:"questions,omitempty"`
}

type startPayload struct {
	Name string `json:"name"`
}

type answerPayload struct {
	Index *int `json:"index"`
}

type tickPayload struct {
	CurrentIndex  int     `json:"currentIndex"`
	TimeRemaining float64 `json:"timeRemaining"`
	TimeLimit     float64 `json:"timeLimit"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs a fresh session until the client
// disconnects. The optional name query parameter is used when start omits one.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	defaultName := r.URL.Query().Get("name")

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	session := h.service.NewSession()
	defer h.service.CloseSession(session.ID())
	logger := h.logger.With().Str("session", session.ID()).Logger()

	updates, cancel := session.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	emit := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-writerDone:
		}
	}
	emitError := func(err error) {
		emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
	}

	// Single writer: gorilla connections do not support concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug().Err(err).Msg("ws write error")
				_ = conn.Close()
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		ticker := time.NewTicker(tickInterval)
		defer ticker.Stop()
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-ticker.C:
				st := session.State()
				if st.Phase != domain.PhaseActive {
					continue
				}
				select {
				case send <- outboundMessage[any]{Type: "tick", Payload: tickPayload{
					CurrentIndex:  st.CurrentIndex,
					TimeRemaining: st.RemainingSeconds,
					TimeLimit:     st.LimitSeconds,
				}}:
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
		if err := h.dispatch(r.Context(), session, inbound, defaultName); err != nil {
			logger.Debug().Err(err).Str("type", inbound.Type).Msg("ws message rejected")
			emitError(err)
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, session *app.Session, inbound inboundMessage, defaultName string) error {
	switch inbound.Type {
	case "prepare":
		var payload preparePayload
		if err := decodePayload(inbound.Payload, &payload); err != nil {
			return err
		}
		mode, err := domain.ParseMode(payload.Mode)
		if err != nil {
			return err
		}
		return session.Prepare(h.rules(mode), payload.Questions)
	case "start":
		var payload startPayload
		if err := decodePayload(inbound.Payload, &payload); err != nil {
			return err
		}
		if payload.Name == "" {
			payload.Name = defaultName
		}
		return session.Start(ctx, payload.Name)
	case "answer":
		var payload answerPayload
		if err := decodePayload(inbound.Payload, &payload); err != nil {
			return err
		}
		if payload.Index == nil {
			return errInvalidPayload
		}
		return session.SubmitAnswer(*payload.Index)
	case "exit":
		session.Exit()
		return nil
	default:
		return errUnsupportedMessage
	}
}

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errInvalidPayload
	}
	return nil
}
