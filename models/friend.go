package models

import "time"

type FriendRequestStatus string

const (
	FriendRequestStatusPending  FriendRequestStatus = "pending"
	FriendRequestStatusAccepted FriendRequestStatus = "accepted"
	FriendRequestStatusRejected FriendRequestStatus = "rejected"
)

type RequestDirection string

const (
	RequestDirectionIncoming RequestDirection = "in"
	RequestDirectionOutgoing RequestDirection = "out"
)

// FriendRequest is one half of a mirror pair. Every logical request is
// stored twice under the same RequestID: an incoming copy owned by the
// target and an outgoing copy owned by the sender. The two copies must
// transition status together.
type FriendRequest struct {
	ID        uint                `json:"-" gorm:"primaryKey"`
	RequestID string              `json:"request_id" gorm:"index;not null;size:191"`
	OwnerID   string              `json:"owner_id" gorm:"index:idx_friend_requests_owner_peer;not null;size:191"`
	PeerID    string              `json:"peer_id" gorm:"index:idx_friend_requests_owner_peer;not null;size:191"`
	Direction RequestDirection    `json:"direction" gorm:"not null;size:10"`
	Status    FriendRequestStatus `json:"status" gorm:"not null;default:'pending';size:20"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`

	Peer User `json:"peer" gorm:"foreignKey:PeerID"`
}

// Friend is one direction of a friendship. A friendship (A,B) exists iff
// both the (A,B) and (B,A) rows exist; the social engine never leaves the
// pair asymmetric.
type Friend struct {
	ID       uint      `json:"-" gorm:"primaryKey"`
	UserID   string    `json:"user_id" gorm:"index:idx_friends_user_peer,unique;not null;size:191"`
	PeerID   string    `json:"peer_id" gorm:"index:idx_friends_user_peer,unique;not null;size:191"`
	Nickname string    `json:"nickname" gorm:"size:100"`
	AddedAt  time.Time `json:"added_at"`

	Peer User `json:"peer" gorm:"foreignKey:PeerID"`
}

type UserBlock struct {
	ID        uint      `json:"-" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index:idx_user_blocks_user_blocked,unique;not null;size:191"`
	BlockedID string    `json:"blocked_id" gorm:"index:idx_user_blocks_user_blocked,unique;not null;size:191"`
	CreatedAt time.Time `json:"created_at"`

	Blocked User `json:"blocked" gorm:"foreignKey:BlockedID"`
}

// FriendshipStatus summarizes the pairwise state between two users.
type FriendshipStatus struct {
	IsFriend           bool   `json:"is_friend"`
	HasPendingSent     bool   `json:"has_pending_sent"`
	HasPendingReceived bool   `json:"has_pending_received"`
	IsBlocked          bool   `json:"is_blocked"`
	SentRequestID      string `json:"sent_request_id,omitempty"`
	ReceivedRequestID  string `json:"received_request_id,omitempty"`
}
