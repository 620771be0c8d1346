package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const eventChannel = "session:events"

// Event is the realtime message fanned out to session participants. Events
// travel through Redis pub/sub so a socket held by another instance is still
// reachable.
type Event struct {
	Type        string         `json:"type"`
	SessionCode string         `json:"session_code,omitempty"`
	Targets     []string       `json:"targets"`
	Data        map[string]any `json:"data,omitempty"`
}

// Event types delivered over the WebSocket.
const (
	EventSessionJoined    = "session_joined"
	EventTurnAdvanced     = "turn_advanced"
	EventChallengeChanged = "challenge_changed"
	EventMessageNew       = "message_new"
	EventMediaExpired     = "media_expired"
	EventSessionEnded     = "session_ended"
	EventPartnerStatus    = "partner_status"
)

// WSHub manages WebSocket connections and the Redis event fan-out
type WSHub struct {
	mu          sync.RWMutex
	connections map[string]*websocket.Conn
	rdb         *redis.Client
}

// NewWSHub creates a new WebSocket hub
func NewWSHub(rdb *redis.Client) *WSHub {
	return &WSHub{
		connections: make(map[string]*websocket.Conn),
		rdb:         rdb,
	}
}

// Run subscribes to the shared event channel and delivers incoming events to
// locally connected users. Blocks until ctx is cancelled.
func (h *WSHub) Run(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, eventChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("Failed to decode pub/sub event")
				continue
			}
			h.deliver(event)
		}
	}
}

// Publish sends an event to every instance via Redis. The hub's own
// subscription loops it back for local delivery.
func (h *WSHub) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := h.rdb.Publish(ctx, eventChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// deliver fans an event out to the targeted users that hold a local socket
func (h *WSHub) deliver(event Event) {
	for _, userID := range event.Targets {
		if !h.IsOnline(userID) {
			continue
		}
		if err := h.SendToUser(userID, event); err != nil {
			log.Error().
				Err(err).
				Str("user_id", userID).
				Str("event", event.Type).
				Msg("Failed to deliver event")
		}
	}
}

// Register registers a new WebSocket connection for a user
func (h *WSHub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	if existing, exists := h.connections[userID]; exists {
		existing.Close()
	}
	h.connections[userID] = conn
	h.mu.Unlock()

	log.Info().Str("user_id", userID).Msg("WebSocket connection registered")
}

// Unregister removes a WebSocket connection for a user
func (h *WSHub) Unregister(userID string) {
	h.mu.Lock()
	if conn, exists := h.connections[userID]; exists {
		conn.Close()
		delete(h.connections, userID)
		log.Info().Str("user_id", userID).Msg("WebSocket connection unregistered")
	}
	h.mu.Unlock()
}

// SendToUser sends an event to a specific locally connected user
func (h *WSHub) SendToUser(userID string, event Event) error {
	h.mu.RLock()
	conn, exists := h.connections[userID]
	h.mu.RUnlock()

	if !exists {
		return fmt.Errorf("user %s is not connected", userID)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.Unregister(userID)
		return fmt.Errorf("failed to send event: %w", err)
	}
	return nil
}

// IsOnline checks if a user holds a socket on this instance
func (h *WSHub) IsOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, exists := h.connections[userID]
	return exists
}
