package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"chatwave-api/middleware"
	"chatwave-api/models"
	"chatwave-api/services"
)

// Gateway is the only component aware of the WebSocket protocol. It turns
// inbound frames into engine calls and engine results into events
// addressed through the presence hub.
type Gateway struct {
	hub       *Hub
	db        *gorm.DB
	messages  *services.MessageService
	groups    *services.GroupService
	jwtSecret string
	upgrader  websocket.Upgrader
}

func NewGateway(hub *Hub, db *gorm.DB, messages *services.MessageService, groups *services.GroupService, jwtSecret string) *Gateway {
	return &Gateway{
		hub:       hub,
		db:        db,
		messages:  messages,
		groups:    groups,
		jwtSecret: jwtSecret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// HandleConnection upgrades an authenticated request to a WebSocket
// session. Connections that fail to present a valid identity are rejected
// before the upgrade.
func (g *Gateway) HandleConnection(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token = c.GetHeader("Authorization")
	}
	userID, err := middleware.UserIDFromToken(token, g.jwtSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or missing token"})
		return
	}

	conn, err := g.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := newClient(userID, conn)
	online := g.hub.Register(client)

	go client.writePump()

	client.enqueue(mustMarshal(Event{Type: EventOnlineUsers, Data: online}))
	g.broadcastExcept(userID, Event{Type: EventPresenceChanged, Data: PresencePayload{UserID: userID, Online: true}})

	client.readPump(g)

	if g.hub.Unregister(client) {
		g.touchLastSeen(userID)
		g.broadcastExcept(userID, Event{Type: EventPresenceChanged, Data: PresencePayload{UserID: userID, Online: false}})
	}
}

// Emit delivers one event to each target with a live connection. Offline
// targets are skipped; one bad recipient never affects the rest.
func (g *Gateway) Emit(eventType string, data interface{}, targets []string) {
	payload, ok := (Event{Type: eventType, Data: data}).marshal()
	if !ok {
		fmt.Printf("Failed to marshal %s event\n", eventType)
		return
	}
	for _, id := range targets {
		if client, online := g.hub.Lookup(id); online {
			client.enqueue(payload)
		}
	}
}

// Online exposes hub presence to the HTTP layer.
func (g *Gateway) Online(userID string) bool {
	return g.hub.IsOnline(userID)
}

func (g *Gateway) broadcastExcept(excludeID string, event Event) {
	payload, ok := event.marshal()
	if !ok {
		return
	}
	for _, id := range g.hub.OnlineIDs() {
		if id == excludeID {
			continue
		}
		if client, online := g.hub.Lookup(id); online {
			client.enqueue(payload)
		}
	}
}

func (g *Gateway) touchLastSeen(userID string) {
	if err := g.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_seen", time.Now()).Error; err != nil {
		fmt.Printf("Failed to update last_seen for %s: %v\n", userID, err)
	}
}

type sendMessageAction struct {
	Conversation models.Conversation     `json:"conversation"`
	Content      services.MessageContent `json:"content"`
}

type markSeenAction struct {
	MessageID string `json:"message_id"`
}

type typingAction struct {
	Conversation models.Conversation `json:"conversation"`
	Typing       bool                `json:"typing"`
}

// dispatch routes one inbound frame. Engine errors go back to the sender
// as error events; the connection itself stays up.
func (g *Gateway) dispatch(c *Client, inbound inboundEvent) {
	switch inbound.Type {
	case actionSendMessage:
		var action sendMessageAction
		if err := json.Unmarshal(inbound.Data, &action); err != nil {
			g.sendError(c, "invalid_payload", "malformed send-message payload")
			return
		}
		message, notify, err := g.messages.Send(c.UserID, action.Conversation, action.Content)
		if err != nil {
			g.sendEngineError(c, err)
			return
		}
		g.Emit(EventNewMessage, message, notify)
		// Echo back to the sender as delivery confirmation.
		g.Emit(EventNewMessage, message, []string{c.UserID})

	case actionMarkSeen:
		var action markSeenAction
		if err := json.Unmarshal(inbound.Data, &action); err != nil {
			g.sendError(c, "invalid_payload", "malformed mark-seen payload")
			return
		}
		message, notify, err := g.messages.MarkSeen(action.MessageID, c.UserID)
		if err != nil {
			g.sendEngineError(c, err)
			return
		}
		g.Emit(EventMessageSeen, gin.H{"message_id": message.ID, "seen_by": c.UserID}, notify)

	case actionTyping:
		var action typingAction
		if err := json.Unmarshal(inbound.Data, &action); err != nil {
			return
		}
		// Ephemeral: relayed to whoever is online right now, never stored.
		g.relayTyping(c.UserID, action)

	default:
		g.sendError(c, "unknown_event", "unsupported event type: "+inbound.Type)
	}
}

func (g *Gateway) relayTyping(userID string, action typingAction) {
	payload := TypingPayload{
		UserID:       userID,
		Conversation: action.Conversation.ID,
		IsGroup:      action.Conversation.IsGroup(),
		Typing:       action.Typing,
	}
	if !action.Conversation.IsGroup() {
		g.Emit(EventTypingIndicator, payload, []string{action.Conversation.ID})
		return
	}
	group, err := g.groups.Get(action.Conversation.ID)
	if err != nil || !group.HasMember(userID) {
		return
	}
	targets := make([]string, 0, len(group.Members))
	for _, m := range group.Members {
		if m.UserID != userID {
			targets = append(targets, m.UserID)
		}
	}
	g.Emit(EventTypingIndicator, payload, targets)
}

func (g *Gateway) sendEngineError(c *Client, err error) {
	var engineErr *services.Error
	if errors.As(err, &engineErr) {
		g.sendError(c, engineErr.Code, engineErr.Message)
		return
	}
	g.sendError(c, "internal", "operation failed")
}

func (g *Gateway) sendError(c *Client, code, message string) {
	c.enqueue(mustMarshal(Event{Type: EventError, Data: gin.H{"code": code, "message": message}}))
}

func mustMarshal(event Event) []byte {
	payload, _ := json.Marshal(event)
	return payload
}
