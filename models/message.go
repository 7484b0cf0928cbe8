package models

import "time"

// ReceiverType discriminates the two addressing modes of a message. The
// seen-state representation hangs off it: direct messages use the Seen
// flag, group messages use per-member MessageSeen rows.
type ReceiverType string

const (
	ReceiverTypeUser  ReceiverType = "user"
	ReceiverTypeGroup ReceiverType = "group"
)

func (rt ReceiverType) Valid() bool {
	return rt == ReceiverTypeUser || rt == ReceiverTypeGroup
}

type Message struct {
	ID           string       `json:"id" gorm:"primaryKey;size:191"`
	SenderID     string       `json:"sender_id" gorm:"index;not null;size:191"`
	ReceiverID   string       `json:"receiver_id" gorm:"index;not null;size:191"`
	ReceiverType ReceiverType `json:"receiver_type" gorm:"not null;size:10"`
	Text         string       `json:"text" gorm:"type:text"`
	Media        StringSlice  `json:"media" gorm:"type:json"`
	FileType     string       `json:"file_type" gorm:"size:50"`

	// Seen is authoritative for direct messages only; group messages
	// track per-recipient state in SeenBy.
	Seen   bool          `json:"seen" gorm:"default:false"`
	SeenBy []MessageSeen `json:"seen_by,omitempty" gorm:"foreignKey:MessageID"`

	Reactions []Reaction `json:"reactions,omitempty" gorm:"foreignKey:MessageID"`

	ReplyToID       *string `json:"reply_to_id" gorm:"size:191"`
	ForwardedFromID *string `json:"forwarded_from_id" gorm:"size:191"`

	IsEdited  bool       `json:"is_edited" gorm:"default:false"`
	EditedAt  *time.Time `json:"edited_at"`
	IsDeleted bool       `json:"is_deleted" gorm:"index;default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Sender User `json:"sender" gorm:"foreignKey:SenderID"`
}

func (m *Message) IsForwarded() bool {
	return m.ForwardedFromID != nil
}

// SeenByUser reports whether the loaded SeenBy rows contain the viewer.
func (m *Message) SeenByUser(userID string) bool {
	for _, s := range m.SeenBy {
		if s.UserID == userID {
			return true
		}
	}
	return false
}

// MessageSeen records one group member having seen one message.
type MessageSeen struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	MessageID string    `json:"-" gorm:"index:idx_message_seen_msg_user,unique;not null;size:191"`
	UserID    string    `json:"user_id" gorm:"index:idx_message_seen_msg_user,unique;not null;size:191"`
	SeenAt    time.Time `json:"seen_at"`
}

// Reaction holds at most one emoji per user per message; re-reacting
// replaces the previous emoji.
type Reaction struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	MessageID string    `json:"-" gorm:"index:idx_reactions_msg_user,unique;not null;size:191"`
	UserID    string    `json:"user_id" gorm:"index:idx_reactions_msg_user,unique;not null;size:191"`
	Emoji     string    `json:"emoji" gorm:"not null;size:20"`
	ReactedAt time.Time `json:"reacted_at"`
}
