package realtime

import "encoding/json"

// Outbound event types.
const (
	EventNewMessage      = "new-message"
	EventMessageSeen     = "message-seen"
	EventReactionAdded   = "reaction-added"
	EventReactionRemoved = "reaction-removed"
	EventMessageEdited   = "message-edited"
	EventMessageDeleted  = "message-deleted"
	EventGroupCreated    = "group-created"
	EventGroupUpdated    = "group-updated"
	EventGroupDeleted    = "group-deleted"
	EventGroupMembership = "group-membership-changed"
	EventFriendRequest   = "friend-request-received"
	EventFriendAccepted  = "friend-request-accepted"
	EventPresenceChanged = "presence-changed"
	EventTypingIndicator = "typing-indicator"
	EventOnlineUsers     = "online-users"
	EventError           = "error"
)

// Inbound event types.
const (
	actionSendMessage = "send-message"
	actionMarkSeen    = "mark-seen"
	actionTyping      = "typing"
)

// Event is the wire envelope for everything the gateway emits.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

func (e Event) marshal() ([]byte, bool) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, false
	}
	return payload, true
}

// PresencePayload announces one user going online or offline.
type PresencePayload struct {
	UserID string `json:"user_id"`
	Online bool   `json:"online"`
}

// TypingPayload is relayed as-is and never persisted.
type TypingPayload struct {
	UserID       string `json:"user_id"`
	Conversation string `json:"conversation_id"`
	IsGroup      bool   `json:"is_group"`
	Typing       bool   `json:"typing"`
}
