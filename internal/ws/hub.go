package ws

import (
	"encoding/json"
	"sync"

	"dubnacoin/internal/domain"
	"dubnacoin/internal/logger"
	"dubnacoin/internal/metrics"
)

// Hub fans balance updates out to the connections of each player. A player
// may have several connections (one per open WebApp).
type Hub struct {
	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[int64]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.clients[c.PlayerID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.PlayerID] = set
	}
	set[c] = struct{}{}
	metrics.WSConnections.Inc()
}

// Unregister removes c and closes its send channel. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *Hub) removeLocked(c *Client) {
	set, ok := h.clients[c.PlayerID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.PlayerID)
	}
	close(c.Send)
	metrics.WSConnections.Dec()
}

// Publish queues msg for every connection of playerID and returns how many
// accepted it. Connections whose buffer is full are dropped.
func (h *Hub) Publish(playerID int64, msg []byte) int {
	var slow []*Client
	delivered := 0

	h.mu.RLock()
	for c := range h.clients[playerID] {
		select {
		case c.Send <- msg:
			delivered++
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	if len(slow) > 0 {
		h.mu.Lock()
		for _, c := range slow {
			logger.Warn("dropping slow ws client", "player_id", playerID, "client_id", c.ID)
			h.removeLocked(c)
		}
		h.mu.Unlock()
	}
	return delivered
}

// send queues msg for c alone. It reports false when c is gone or full.
func (h *Hub) send(c *Client, msg []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[c.PlayerID][c]; !ok {
		return false
	}
	select {
	case c.Send <- msg:
		return true
	default:
		return false
	}
}

// NotifyAccrual pushes an accrual update to the player's connections.
func (h *Hub) NotifyAccrual(a domain.Accrual) {
	msg, err := json.Marshal(AccrualPayload{Type: MsgAccrual, Coins: a.Coins, Reward: a.Reward})
	if err != nil {
		return
	}
	h.Publish(a.PlayerID, msg)
}

// Connected returns the number of open connections for playerID.
func (h *Hub) Connected(playerID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[playerID])
}

// Total returns the number of open connections across all players.
func (h *Hub) Total() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}
