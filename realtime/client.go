package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// Client is one open socket. userID is guarded by the hub's mutex.
type Client struct {
	id     string
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.New().String(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, 256),
	}
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Err(err).Str("clientId", c.id).Msg("Socket read error")
			}
			return
		}

		var msg inboundEvent
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Warn().Err(err).Str("clientId", c.id).Msg("Invalid socket frame")
			continue
		}
		c.handleEvent(&msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Err(err).Str("clientId", c.id).Msg("Socket write error")
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleEvent(msg *inboundEvent) {
	switch msg.Event {
	case EventSetUser:
		c.setUser(msg.Data)

	case EventNotifyUpdates:
		var payload map[string]any
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			log.Warn().Err(err).Str("clientId", c.id).Msg("Invalid notify-updates payload")
			return
		}
		userID, _ := payload["userId"].(string)
		if userID == "" {
			log.Warn().Str("clientId", c.id).Msg("notify-updates without userId")
			return
		}
		if err := c.hub.Notify(userID, payload); err != nil {
			log.Err(err).Str("userId", userID).Msg("Failed to relay update")
		}

	default:
		log.Debug().Str("clientId", c.id).Str("event", msg.Event).Msg("Ignoring unknown socket event")
	}
}

func (c *Client) setUser(data json.RawMessage) {
	rawToken := tokenFromPayload(data)
	claims, err := c.hub.verifier.VerifyWithoutSecret(rawToken)
	if err != nil {
		log.Info().Err(err).Str("clientId", c.id).Msg("Socket token rejected")
		c.emit(Event{
			Event: EventAuthError,
			Data:  AuthError{Status: http.StatusInternalServerError, Error: authErrorMessage},
		})
		return
	}

	c.hub.setUser(c, claims.UserID)
	log.Info().Str("clientId", c.id).Str("userId", claims.UserID).Msg("Socket verified")
}

// tokenFromPayload accepts either a bare JSON string or {"authToken": "..."}
func tokenFromPayload(data json.RawMessage) string {
	var raw string
	if err := json.Unmarshal(data, &raw); err == nil {
		return strings.TrimSpace(raw)
	}
	var obj struct {
		AuthToken string `json:"authToken"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		return strings.TrimSpace(obj.AuthToken)
	}
	return ""
}

// emit queues an event for this connection only
func (c *Client) emit(event Event) {
	message, err := json.Marshal(event)
	if err != nil {
		log.Err(err).Str("event", event.Event).Msg("Failed to encode socket event")
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if _, ok := c.hub.clients[c]; !ok {
		return
	}
	select {
	case c.send <- message:
	default:
		log.Warn().Str("clientId", c.id).Msg("Client send buffer full")
	}
}
