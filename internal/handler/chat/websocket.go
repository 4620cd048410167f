package chat

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/usharani/chat-widget/backend/internal/model/chat"
	chatservice "github.com/usharani/chat-widget/backend/internal/service/chat"
)

// WebSocketHandler drives a widget session over a live connection: inbound
// submissions run through the same send contract as REST, and every state
// event is pushed back out.
type WebSocketHandler struct {
	chatSvc  *chatservice.Service
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates the live-channel handler.
func NewWebSocketHandler(chatSvc *chatservice.Service) *WebSocketHandler {
	return &WebSocketHandler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes mounts the live channel on the router.
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	SessionID string          `json:"sessionId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// TextPayload carries the text of a send or input message.
type TextPayload struct {
	Text string `json:"text"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// wsConn serializes writes; the event pump, the ping loop, and the read
// loop all write to the same connection.
type wsConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *wsConn) writeJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsConn) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.PingMessage, nil)
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "sessionID is required", http.StatusBadRequest)
		return
	}

	if _, err := h.chatSvc.GetSession(r.Context(), sessionID); err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	events, unwatch, err := h.chatSvc.Watch(r.Context(), sessionID)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	defer unwatch()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection for session=%s", sessionID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &wsConn{conn: conn}

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	go h.pingLoop(ctx, c)
	go h.pumpEvents(ctx, c, sessionID, events)

	h.sendState(ctx, c, sessionID)

	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[websocket] read error: %v", err)
				}
				return
			}

			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if msg.SessionID != "" && msg.SessionID != sessionID {
				h.sendError(c, "session mismatch")
				continue
			}

			h.handleMessage(ctx, c, sessionID, &msg)
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, c *wsConn, sessionID string, msg *inboundMessage) {
	switch msg.Type {
	case "send":
		h.handleSend(ctx, c, sessionID, msg.Data)
	case "input":
		h.handleInput(ctx, c, sessionID, msg.Data)
	case "state":
		h.sendState(ctx, c, sessionID)
	default:
		h.sendError(c, "unsupported message type: "+msg.Type)
	}
}

// handleSend runs the send cycle off the read loop so the connection keeps
// reading (and answering pings) while the completion call is outstanding.
// Overlapping submissions are rejected by the service guard, not queued.
func (h *WebSocketHandler) handleSend(ctx context.Context, c *wsConn, sessionID string, raw json.RawMessage) {
	var payload TextPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.sendError(c, "invalid send payload")
		return
	}

	go func() {
		if _, err := h.chatSvc.Send(ctx, sessionID, payload.Text); err != nil {
			h.sendError(c, err.Error())
		}
	}()
}

func (h *WebSocketHandler) handleInput(ctx context.Context, c *wsConn, sessionID string, raw json.RawMessage) {
	var payload TextPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		h.sendError(c, "invalid input payload")
		return
	}

	if err := h.chatSvc.SetInput(ctx, sessionID, payload.Text); err != nil {
		h.sendError(c, err.Error())
	}
}

func (h *WebSocketHandler) pumpEvents(ctx context.Context, c *wsConn, sessionID string, events <-chan chat.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			msg := outgoingMessage{
				Type:      "event",
				SessionID: sessionID,
				Data:      event,
				Timestamp: time.Now().Unix(),
			}
			if err := c.writeJSON(msg); err != nil {
				log.Printf("[websocket] write event failed: %v", err)
				return
			}
		}
	}
}

func (h *WebSocketHandler) sendState(ctx context.Context, c *wsConn, sessionID string) {
	state, err := h.chatSvc.State(ctx, sessionID)
	if err != nil {
		h.sendError(c, err.Error())
		return
	}

	msg := outgoingMessage{
		Type:      "state",
		SessionID: sessionID,
		Data:      state,
		Timestamp: time.Now().Unix(),
	}
	if err := c.writeJSON(msg); err != nil {
		log.Printf("[websocket] write state failed: %v", err)
	}
}

func (h *WebSocketHandler) sendError(c *wsConn, message string) {
	msg := outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := c.writeJSON(msg); err != nil {
		log.Printf("[websocket] write error failed: %v", err)
	}
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, c *wsConn) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
