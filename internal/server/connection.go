package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gravitas-games/hexgrid/internal/network"
	"github.com/gravitas-games/hexgrid/pkg/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

// Connection represents a WebSocket connection to an observer
type Connection struct {
	ws       *websocket.Conn
	server   *Server
	observer *models.Observer

	// Buffered channel for outbound messages
	send chan []byte

	closeOnce sync.Once
	closeMu   sync.RWMutex
	closed    bool
}

// NewConnection creates a new connection
func NewConnection(ws *websocket.Conn, server *Server, observer *models.Observer) *Connection {
	return &Connection{
		ws:       ws,
		server:   server,
		observer: observer,
		send:     make(chan []byte, 256),
	}
}

// Handle manages the connection lifecycle
func (c *Connection) Handle() {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.writePump()
	c.readPump() // Blocking
}

// readPump pumps messages from the WebSocket connection to the server
func (c *Connection) readPump() {
	defer c.Close()

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var clientMsg network.ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			log.Printf("Failed to parse observer message: %v", err)
			c.SendError("invalid_message", "Failed to parse message")
			continue
		}

		c.handleMessage(&clientMsg)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.server.ctx.Done():
			return
		}
	}
}

// handleMessage routes messages to appropriate handlers
func (c *Connection) handleMessage(msg *network.ClientMessage) {
	switch msg.Type {
	case network.MsgTypePing:
		c.handlePing(msg.Payload)

	default:
		log.Printf("Unknown message type: %s", msg.Type)
		c.SendError("unknown_message_type", "Unknown message type")
	}
}

// handlePing answers with a pong echoing the nonce
func (c *Connection) handlePing(payload json.RawMessage) {
	var ping network.PingPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &ping); err != nil {
			c.SendError("invalid_ping", "Invalid ping payload")
			return
		}
	}
	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypePong,
		Payload: network.PongPayload{Nonce: ping.Nonce, Timestamp: time.Now().Unix()},
	})
}

// SendMessage queues a message for the observer. Messages are dropped when
// the buffer is full or the connection is closed.
func (c *Connection) SendMessage(msg *network.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}

	c.closeMu.RLock()
	defer c.closeMu.RUnlock()
	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		log.Printf("Send buffer full for observer %s, dropping message", c.observer.ID)
	}
}

// SendError sends an error message to the observer
func (c *Connection) SendError(code, message string) {
	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeError,
		Payload: network.ErrorPayload{
			Code:    code,
			Message: message,
		},
	})
}

// Close removes the observer from the session and closes the connection
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		c.server.session.RemoveObserver(c.observer.ID)

		c.closeMu.Lock()
		c.closed = true
		close(c.send)
		c.closeMu.Unlock()

		c.ws.Close()
	})
}
