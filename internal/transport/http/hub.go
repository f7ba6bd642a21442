package http

import (
	"sync"

	"trivia-live-service/internal/domain"
)

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type client struct {
	send chan outboundMessage
}

// Hub tracks connected clients and fans events out to all of them. It
// implements app.Broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

// ClientCount reports how many clients are currently connected.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) broadcast(msg outboundMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// drop the oldest queued message so a slow client never blocks fan-out
			select {
			case <-c.send:
			default:
			}
			c.send <- msg
		}
	}
}

func (h *Hub) BroadcastGameStatus(event domain.GameStatusEvent) {
	h.broadcast(outboundMessage{Type: eventGameStatus, Payload: event})
}

func (h *Hub) BroadcastRanking(entries []domain.RankingEntry) {
	h.broadcast(outboundMessage{Type: eventRanking, Payload: entries})
}

func (h *Hub) BroadcastStatusUpdate(update domain.StatusUpdate) {
	h.broadcast(outboundMessage{Type: eventStatusUpdate, Payload: update})
}
