package ws

import (
	"encoding/json"
	"time"

	"dubnacoin/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 30 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Client is one balance feed connection.
type Client struct {
	ID       string
	PlayerID int64
	Conn     *websocket.Conn
	Send     chan []byte

	hub *Hub
}

func NewClient(playerID int64, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		ID:       uuid.NewString(),
		PlayerID: playerID,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
		hub:      hub,
	}
}

// Run registers the client and serves it until the connection closes.
func (c *Client) Run() {
	c.hub.Register(c)
	logger.Debug("ws connected", "player_id", c.PlayerID, "client_id", c.ID, "connections", c.hub.Connected(c.PlayerID))
	go c.writePump()

	ready, _ := json.Marshal(Envelope{Type: MsgReady})
	c.hub.send(c, ready)

	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("ws read error", "player_id", c.PlayerID, "client_id", c.ID, "error", err)
			}
			return
		}

		var env Envelope
		if json.Unmarshal(msg, &env) == nil && env.Type == MsgPing {
			pong, _ := json.Marshal(Envelope{Type: MsgPong})
			c.hub.send(c, pong)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				logger.Debug("ws write error", "player_id", c.PlayerID, "client_id", c.ID, "error", err)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
