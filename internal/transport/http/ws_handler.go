package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"
	"trivia-live-service/internal/app"
	"trivia-live-service/internal/domain"
)

// Outbound event types. respuestaOk is the ack the mobile front-end listens for.
const (
	eventGameStatus   = "estadoJuego"
	eventRanking      = "ranking"
	eventStatusUpdate = "estado"
	eventAck          = "respuestaOk"
	eventAdminAck     = "ack"
	eventError        = "error"
)

type WSHandler struct {
	service             *app.GameService
	hub                 *Hub
	idleNoticeOnConnect bool
	upgrader            websocket.Upgrader
}

func NewWSHandler(service *app.GameService, hub *Hub, idleNoticeOnConnect bool) *WSHandler {
	return &WSHandler{
		service:             service,
		hub:                 hub,
		idleNoticeOnConnect: idleNoticeOnConnect,
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

type submitPayload struct {
	Identity        string `json:"identity"`
	DisplayName     string `json:"displayName"`
	QuestionID      int    `json:"questionId"`
	ChosenOption    string `json:"chosenOption"`
	ClientTimestamp int64  `json:"clientTimestamp"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type adminAckPayload struct {
	Action string `json:"action"`
}

// adminCommand is a closed set of administrator actions; one handler per
// variant in handleAdminCommand.
type adminCommand interface{ isAdminCommand() }

type activateCommand struct {
	QuestionID  int   `json:"questionId"`
	TimeLimitMs int64 `json:"timeLimitMs"`
}

type revealCommand struct{}

type returnToIdleCommand struct{}

type showLeaderboardCommand struct {
	Limit int `json:"limit"`
}

type clearResponsesCommand struct{}

func (activateCommand) isAdminCommand()        {}
func (revealCommand) isAdminCommand()          {}
func (returnToIdleCommand) isAdminCommand()    {}
func (showLeaderboardCommand) isAdminCommand() {}
func (clearResponsesCommand) isAdminCommand()  {}

// parseAdminCommand maps a message type onto the command set. The second
// return is false for message types that are not administrator actions.
func parseAdminCommand(msgType string, payload json.RawMessage) (adminCommand, bool, error) {
	switch msgType {
	case "activate":
		var cmd activateCommand
		if err := json.Unmarshal(payload, &cmd); err != nil {
			return nil, true, fmt.Errorf("invalid activate payload: %w", err)
		}
		return cmd, true, nil
	case "reveal":
		return revealCommand{}, true, nil
	case "returnToIdle":
		return returnToIdleCommand{}, true, nil
	case "showLeaderboard":
		var cmd showLeaderboardCommand
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &cmd); err != nil {
				return nil, true, fmt.Errorf("invalid showLeaderboard payload: %w", err)
			}
		}
		return cmd, true, nil
	case "clearResponses":
		return clearResponsesCommand{}, true, nil
	default:
		return nil, false, nil
	}
}

func (h *WSHandler) handleAdminCommand(ctx context.Context, cmd adminCommand) error {
	switch c := cmd.(type) {
	case activateCommand:
		return h.service.Activate(ctx, c.QuestionID, c.TimeLimitMs)
	case revealCommand:
		return h.service.Reveal(ctx)
	case returnToIdleCommand:
		return h.service.ReturnToIdle(ctx)
	case showLeaderboardCommand:
		_, err := h.service.ShowLeaderboard(ctx, c.Limit)
		return err
	case clearResponsesCommand:
		return h.service.ClearResponses(ctx)
	default:
		return fmt.Errorf("unhandled admin command %T", cmd)
	}
}

// ServeWS upgrades the connection, replays current round state to the late
// joiner, then processes inbound messages in arrival order.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := &client{send: make(chan outboundMessage, 16)}
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range c.send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	// Late join: the replay is queued before the client joins the hub, so it
	// is guaranteed to precede any broadcast this client sees.
	if event, ok := h.service.LateJoinState(r.Context()); ok {
		c.send <- outboundMessage{Type: eventGameStatus, Payload: event}
	} else if h.idleNoticeOnConnect {
		c.send <- outboundMessage{Type: eventGameStatus, Payload: domain.GameStatusEvent{Status: domain.StatusIdle}}
	}

	h.hub.register(c)
	defer func() {
		h.hub.unregister(c)
		close(c.send)
		<-writerDone
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}

		switch inbound.Type {
		case "submit":
			var payload submitPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				c.send <- outboundMessage{Type: eventError, Payload: errorPayload{Message: "invalid submit payload"}}
				continue
			}
			err := h.service.Submit(r.Context(), app.SubmitRequest{
				Identity:        payload.Identity,
				DisplayName:     payload.DisplayName,
				QuestionID:      payload.QuestionID,
				ChosenOption:    payload.ChosenOption,
				ClientTimestamp: payload.ClientTimestamp,
			})
			if err != nil {
				c.send <- outboundMessage{Type: eventError, Payload: errorPayload{Message: err.Error()}}
				continue
			}
			c.send <- outboundMessage{Type: eventAck}

		default:
			cmd, isAdmin, err := parseAdminCommand(inbound.Type, inbound.Payload)
			if !isAdmin {
				c.send <- outboundMessage{Type: eventError, Payload: errorPayload{Message: "unsupported message type"}}
				continue
			}
			if err == nil {
				err = h.handleAdminCommand(r.Context(), cmd)
			}
			// confirmations go to the sender only
			if err != nil {
				c.send <- outboundMessage{Type: eventError, Payload: errorPayload{Message: err.Error()}}
				continue
			}
			c.send <- outboundMessage{Type: eventAdminAck, Payload: adminAckPayload{Action: inbound.Type}}
		}
	}
}
