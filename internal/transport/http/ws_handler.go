package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"cbt-exam-runner/internal/app"
	"cbt-exam-runner/internal/calc"
	"cbt-exam-runner/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

type WSHandler struct {
	service  *app.ExamService
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewWSHandler(service *app.ExamService, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log.With().Str("component", "ws").Logger(),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type togglePayload struct {
	SubjectID string `json:"subjectId"`
}

type selectPayload struct {
	Option *int `json:"option"`
}

type calcPayload struct {
	Expression string `json:"expression"`
}

type calcResult struct {
	Expression string  `json:"expression"`
	Value      float64 `json:"value"`
	Display    string  `json:"display"`
}

type selectionPayload struct {
	Catalog  []domain.Subject `json:"catalog"`
	Selected []domain.Subject `json:"selected"`
	Required int              `json:"required"`
	CanStart bool             `json:"canStart"`
	State    domain.State     `json:"state"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message   string `json:"message"`
	Code      string `json:"code"`
	SubjectID string `json:"subjectId,omitempty"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the exam use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	updates, cancel := h.service.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug().Err(err).Msg("ws write error")
				_ = conn.Close()
				return
			}
		}
	}()

	// emit gives up once the writer is gone so the read loop can drain.
	emit := func(typ string, payload any) {
		select {
		case send <- outboundMessage[any]{Type: typ, Payload: payload}:
		case <-writerDone:
		}
	}

	go func() {
		defer close(updatesDone)
		for {
			select {
			case snap, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: snap}:
				case <-closeSignals:
					return
				case <-writerDone:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	emit("selection", h.selection())

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.handle(r, inbound, emit)
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// hasOption reports whether a select payload names an option explicitly.
func hasOption(raw json.RawMessage) bool {
	var payload selectPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return false
	}
	return payload.Option != nil
}

func (h *WSHandler) handle(r *http.Request, inbound inboundMessage, emit func(string, any)) {
	switch inbound.Type {
	case "toggle":
		var payload togglePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			emit("error", errorPayload{Message: "invalid toggle payload", Code: "invalid"})
			return
		}
		if err := h.service.Toggle(payload.SubjectID); err != nil {
			emit("error", toErrorPayload(err))
		}
		emit("selection", h.selection())
	case "start":
		if _, err := h.service.Start(r.Context()); err != nil {
			emit("error", toErrorPayload(err))
			emit("selection", h.selection())
		}
	case "reset":
		h.service.Reset()
		emit("selection", h.selection())
	case "select", "next", "prev", "jump", "switch", "flag", "submit", "review":
		cmd := app.Command{}
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &cmd); err != nil {
				emit("error", errorPayload{Message: "invalid " + inbound.Type + " payload", Code: "invalid"})
				return
			}
		}
		cmd.Kind = app.CommandKind(inbound.Type)
		if cmd.Kind == app.CmdSelect && !hasOption(inbound.Payload) {
			emit("error", errorPayload{Message: "select needs an option", Code: "invalid"})
			return
		}
		if err := h.service.Dispatch(cmd); err != nil {
			emit("error", toErrorPayload(err))
			return
		}
		if cmd.Kind == app.CmdSubmit {
			if sess, err := h.service.Session(); err == nil {
				if result, ok := sess.Result(); ok {
					emit("result", result)
				}
			}
		}
	case "corrections":
		sess, err := h.service.Session()
		if err == nil {
			var items []domain.ReviewItem
			if items, err = sess.Corrections(); err == nil {
				emit("corrections", items)
				return
			}
		}
		emit("error", toErrorPayload(err))
	case "calc":
		var payload calcPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			emit("error", errorPayload{Message: "invalid calc payload", Code: "invalid"})
			return
		}
		v, err := calc.Eval(payload.Expression)
		if err != nil {
			emit("error", errorPayload{Message: err.Error(), Code: "calc"})
			return
		}
		emit("calc", calcResult{Expression: payload.Expression, Value: v, Display: calc.Format(v)})
	case "history":
		lb, err := h.service.Leaderboard(r.Context())
		if err != nil {
			h.log.Error().Err(err).Msg("history lookup failed")
			emit("error", errorPayload{Message: "history unavailable", Code: "internal"})
			return
		}
		emit("history", lb)
	default:
		emit("error", errorPayload{Message: "unsupported message type", Code: "invalid"})
	}
}

func (h *WSHandler) selection() selectionPayload {
	return selectionPayload{
		Catalog:  h.service.Catalog(),
		Selected: h.service.Selection(),
		Required: h.service.RequiredCount(),
		CanStart: h.service.CanStart(),
		State:    h.service.State(),
	}
}

func toErrorPayload(err error) errorPayload {
	p := errorPayload{Message: err.Error(), Code: errorCode(err)}
	var loadErr *domain.LoadError
	if errors.As(err, &loadErr) {
		p.SubjectID = loadErr.SubjectID
	}
	return p
}

func errorCode(err error) string {
	var loadErr *domain.LoadError
	switch {
	case errors.As(err, &loadErr):
		return "load"
	case domain.IsSelectionError(err):
		return "selection"
	case errors.Is(err, domain.ErrInvalidNavigation), errors.Is(err, domain.ErrInvalidOption):
		return "navigation"
	case errors.Is(err, domain.ErrConfirmationRequired):
		return "confirmation"
	case app.IsRejection(err), errors.Is(err, domain.ErrNoSession), errors.Is(err, domain.ErrSessionBusy):
		return "lifecycle"
	}
	return "internal"
}
