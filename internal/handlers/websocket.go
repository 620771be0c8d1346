package handlers

import (
	"encoding/json"
	"net/http"

	"duo-dare-backend/internal/services"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for MVP
	},
}

// WebSocketHandler handles WebSocket connections
type WebSocketHandler struct {
	hub            *services.WSHub
	userService    *services.UserService
	sessionService *services.SessionService
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(
	hub *services.WSHub,
	userService *services.UserService,
	sessionService *services.SessionService,
) *WebSocketHandler {
	return &WebSocketHandler{
		hub:            hub,
		userService:    userService,
		sessionService: sessionService,
	}
}

// clientMessage is the envelope clients send over the socket.
type clientMessage struct {
	Type        string `json:"type"`
	SessionCode string `json:"session_code,omitempty"`
}

// HandleWebSocket handles WebSocket connections
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		respondError(w, "token required", http.StatusUnauthorized)
		return
	}

	userID, err := h.userService.ValidateJWT(token)
	if err != nil {
		respondError(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}
	defer conn.Close()

	h.hub.Register(userID, conn)
	defer h.hub.Unregister(userID)

	log.Info().Str("user_id", userID).Msg("WebSocket connection established")

	ctx := r.Context()
	for {
		_, messageBytes, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("user_id", userID).Msg("WebSocket error")
			}
			break
		}

		var msg clientMessage
		if err := json.Unmarshal(messageBytes, &msg); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to parse WebSocket message")
			h.sendError(conn, "Invalid message format")
			continue
		}

		switch msg.Type {
		case "announce_presence":
			// Tell the partner this player came online.
			if msg.SessionCode == "" {
				h.sendError(conn, "session_code is required")
				continue
			}
			session, err := h.sessionService.GetSession(ctx, msg.SessionCode, userID)
			if err != nil {
				h.sendError(conn, "unknown session")
				continue
			}
			partnerID := session.CreatorID
			if partnerID == userID {
				if session.PartnerID == nil {
					continue
				}
				partnerID = *session.PartnerID
			}
			event := services.Event{
				Type:        services.EventPartnerStatus,
				SessionCode: msg.SessionCode,
				Targets:     []string{partnerID},
				Data:        map[string]any{"user_id": userID, "online": true},
			}
			if err := h.hub.Publish(ctx, event); err != nil {
				log.Error().Err(err).Str("user_id", userID).Msg("Failed to publish presence")
			}
		case "ping":
			h.send(conn, services.Event{Type: "pong"})
		default:
			h.sendError(conn, "Unknown message type")
		}
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, event services.Event) {
	data, _ := json.Marshal(event)
	conn.WriteMessage(websocket.TextMessage, data)
}

// sendError sends an error event to the WebSocket connection
func (h *WebSocketHandler) sendError(conn *websocket.Conn, message string) {
	h.send(conn, services.Event{
		Type: "error",
		Data: map[string]any{"message": message},
	})
}
