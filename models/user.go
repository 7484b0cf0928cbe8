package models

import (
	"time"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
)

type Visibility string

const (
	VisibilityEveryone Visibility = "everyone"
	VisibilityFriends  Visibility = "friends"
	VisibilityNobody   Visibility = "nobody"
)

type FriendRequestPolicy string

const (
	FriendRequestPolicyEveryone         FriendRequestPolicy = "everyone"
	FriendRequestPolicyFriendsOfFriends FriendRequestPolicy = "friends_of_friends"
	FriendRequestPolicyNobody           FriendRequestPolicy = "nobody"
)

type User struct {
	ID        string     `json:"id" gorm:"primaryKey;size:191"`
	Name      string     `json:"name" gorm:"not null;size:255"`
	Handle    string     `json:"handle" gorm:"uniqueIndex;not null;size:50"`
	Email     string     `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Password  string     `json:"-" gorm:"not null;size:255"`
	Avatar    *string    `json:"avatar" gorm:"size:500"`
	Status    UserStatus `json:"status" gorm:"not null;default:'active';size:20"`
	LastSeen  time.Time  `json:"last_seen"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Privacy settings
	ProfileVisibility   Visibility          `json:"profile_visibility" gorm:"not null;default:'everyone';size:20"`
	FriendRequestPolicy FriendRequestPolicy `json:"friend_request_policy" gorm:"not null;default:'everyone';size:30"`
	LastSeenVisibility  Visibility          `json:"last_seen_visibility" gorm:"not null;default:'everyone';size:20"`
}

// Tombstone scrubs identity fields in place for account deactivation.
// The row survives so messages and friendships keep a resolvable peer.
func (u *User) Tombstone() {
	u.Name = "Deleted User"
	u.Email = "deleted-" + u.ID + "@invalid"
	u.Handle = "deleted_" + u.ID
	u.Avatar = nil
	u.Password = ""
	u.Status = UserStatusInactive
}

// PublicUser is the peer-facing projection of a user.
type PublicUser struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Handle   string     `json:"handle"`
	Avatar   *string    `json:"avatar"`
	Status   UserStatus `json:"status"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

func (u *User) ToPublic(includeLastSeen bool) PublicUser {
	p := PublicUser{
		ID:     u.ID,
		Name:   u.Name,
		Handle: u.Handle,
		Avatar: u.Avatar,
		Status: u.Status,
	}
	if includeLastSeen {
		t := u.LastSeen
		p.LastSeen = &t
	}
	return p
}
