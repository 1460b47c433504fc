package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"party-trivia-service/internal/app"
	"party-trivia-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler exposes the game operations over a websocket. One hosting
// device holds one connection; every action gets the resulting state
// snapshot back, so the screen always renders from the latest state.
type WSHandler struct {
	service  *app.GameService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService) *WSHandler {
	return &WSHandler{
		service: service,
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

type namesPayload struct {
	Names []string `json:"names"`
}

type optionPayload struct {
	Option int `json:"option"`
}

type participantPayload struct {
	ParticipantID string `json:"participantId"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and wires the connection into the game use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	device := r.URL.Query().Get("device")
	if device == "" {
		http.Error(w, "missing device key", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Try to pick up where a previous tab left off.
	if snap, err := h.service.ResumeSession(r.Context(), device); err == nil {
		h.send(conn, outboundMessage{Type: "state", Payload: snap})
	} else if errors.Is(err, domain.ErrSessionNotFound) {
		h.send(conn, outboundMessage{Type: "noSession"})
	} else {
		h.send(conn, outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}

		snap, err := h.dispatch(r, device, inbound)
		if err != nil {
			h.send(conn, outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
			continue
		}
		if inbound.Type == "reset" {
			h.send(conn, outboundMessage{Type: "noSession"})
			continue
		}
		h.send(conn, outboundMessage{Type: "state", Payload: snap})
	}
}

func (h *WSHandler) dispatch(r *http.Request, device string, inbound inboundMessage) (app.Snapshot, error) {
	ctx := r.Context()
	switch inbound.Type {
	case "start":
		var payload namesPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return app.Snapshot{}, errors.New("invalid start payload")
		}
		return h.service.StartSession(ctx, device, payload.Names)
	case "continue":
		var payload namesPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return app.Snapshot{}, errors.New("invalid continue payload")
		}
		return h.service.ContinueSession(ctx, device, payload.Names)
	case "resume":
		return h.service.ResumeSession(ctx, device)
	case "reset":
		return app.Snapshot{}, h.service.ResetSession(ctx, device)
	case "beginTurn":
		return h.service.BeginTurn(ctx, device)
	case "selectOption":
		var payload optionPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return app.Snapshot{}, errors.New("invalid selectOption payload")
		}
		return h.service.SelectOption(ctx, device, payload.Option)
	case "confirmVote":
		return h.service.ConfirmVote(ctx, device)
	case "retractVote":
		var payload participantPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return app.Snapshot{}, errors.New("invalid retractVote payload")
		}
		return h.service.RetractVote(ctx, device, payload.ParticipantID)
	case "changeVote":
		return h.service.StartChangingVote(ctx, device)
	case "pickRevoter":
		var payload participantPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return app.Snapshot{}, errors.New("invalid pickRevoter payload")
		}
		return h.service.PickRevoter(ctx, device, payload.ParticipantID)
	case "cancelChange":
		return h.service.CancelChangingVote(ctx, device)
	case "reveal":
		return h.service.RevealAnswer(ctx, device)
	case "next":
		return h.service.NextQuestion(ctx, device)
	case "restart":
		return h.service.RestartGame(ctx, device)
	default:
		return app.Snapshot{}, errors.New("unsupported message type")
	}
}

func (h *WSHandler) send(conn *websocket.Conn, msg outboundMessage) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Printf("ws write error: %v", err)
	}
}
