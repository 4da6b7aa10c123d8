// Package realtime is the socket channel clients keep open after logging in.
// A connection proves who it belongs to by sending its bearer token, after
// which it receives the update notifications relayed between users.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jrsteele09/timetomeet/token"
	"github.com/rs/zerolog/log"
)

const (
	EventVerifyUser    = "verifyUser"
	EventSetUser       = "set-user"
	EventAuthError     = "auth-error"
	EventNotifyUpdates = "notify-updates"
)

const authErrorMessage = "please provide correct authToken"

// Event is the frame written to and read from a socket. Outbound frames
// relayed for notify-updates use the target user id as the event name.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

type inboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// AuthError is the payload of an auth-error event
type AuthError struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

// TokenVerifier checks the token presented in a set-user event. Only the
// signing key is available here, so a token rotated out by a later login
// still passes until it expires.
type TokenVerifier interface {
	VerifyWithoutSecret(rawToken string) (*token.IdentityClaims, error)
}

// Hub tracks open connections and the users they were verified as.
type Hub struct {
	verifier   TokenVerifier
	upgrader   websocket.Upgrader
	clients    map[*Client]bool
	online     map[string]int
	broadcast  chan []byte
	unregister chan *Client
	done       chan struct{}
	stopped    bool
	mu         sync.RWMutex
}

type HubOption func(*Hub)

// WithCheckOrigin overrides the upgrader's origin check
func WithCheckOrigin(check func(r *http.Request) bool) HubOption {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = check
	}
}

func NewHub(verifier TokenVerifier, options ...HubOption) *Hub {
	h := &Hub{
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients:    make(map[*Client]bool),
		online:     make(map[string]int),
		broadcast:  make(chan []byte, 256),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}

	for _, opt := range options {
		opt(h)
	}
	return h
}

// Run processes disconnects and broadcasts until ctx is cancelled, then
// closes every remaining connection and refuses new ones.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			h.stopped = true
			for client := range h.clients {
				h.removeLocked(client)
			}
			h.mu.Unlock()
			log.Info().Msg("Realtime hub stopped")
			return

		case client := <-h.unregister:
			h.mu.Lock()
			userID := client.userID
			h.removeLocked(client)
			h.mu.Unlock()
			log.Info().Str("clientId", client.id).Str("userId", userID).Msg("Socket disconnected")

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case <-ticker.C:
			h.mu.RLock()
			count := len(h.clients)
			users := len(h.online)
			h.mu.RUnlock()
			log.Debug().Int("clients", count).Int("onlineUsers", users).Msg("Hub stats")
		}
	}
}

func (h *Hub) removeLocked(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)
	if client.userID != "" {
		h.online[client.userID]--
		if h.online[client.userID] <= 0 {
			delete(h.online, client.userID)
		}
	}
	close(client.send)
}

func (h *Hub) broadcastMessage(message []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.send <- message:
		default:
			log.Warn().Str("clientId", client.id).Msg("Client send buffer full")
		}
	}
}

// Online returns the ids of users with at least one verified connection
func (h *Hub) Online() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	ids := make([]string, 0, len(h.online))
	for id := range h.online {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Notify relays data to every connection under the event name userID
func (h *Hub) Notify(userID string, data any) error {
	message, err := json.Marshal(Event{Event: userID, Data: data})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- message:
		return nil
	case <-h.done:
		return nil
	}
}

func (h *Hub) setUser(client *Client, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok || client.userID == userID {
		return
	}
	if client.userID != "" {
		h.online[client.userID]--
		if h.online[client.userID] <= 0 {
			delete(h.online, client.userID)
		}
	}
	client.userID = userID
	h.online[userID]++
}

// registerClient adds the client and queues its verifyUser prompt under the
// same lock. It reports false once the hub has stopped.
func (h *Hub) registerClient(client *Client) bool {
	prompt, err := json.Marshal(Event{Event: EventVerifyUser})
	if err != nil {
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopped {
		return false
	}
	h.clients[client] = true
	client.send <- prompt
	return true
}

// ServeWS upgrades the request, registers the connection and starts its
// pumps
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Err(err).Msg("Failed to upgrade socket connection")
		return
	}

	client := newClient(h, conn)
	if !h.registerClient(client) {
		_ = conn.Close()
		return
	}
	log.Debug().Str("clientId", client.id).Msg("Socket connected")

	go client.writePump()
	go client.readPump()
}
