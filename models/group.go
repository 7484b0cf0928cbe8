package models

import "time"

type Group struct {
	ID          string    `json:"id" gorm:"primaryKey;size:191"`
	Name        string    `json:"name" gorm:"not null;size:255"`
	AdminID     string    `json:"admin_id" gorm:"index;not null;size:191"`
	Description string    `json:"description" gorm:"size:1000"`
	Image       *string   `json:"image" gorm:"size:500"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Members []GroupMember `json:"members,omitempty" gorm:"foreignKey:GroupID"`
	Admin   User          `json:"admin" gorm:"foreignKey:AdminID"`
}

type GroupMember struct {
	ID       uint      `json:"-" gorm:"primaryKey"`
	GroupID  string    `json:"-" gorm:"index:idx_group_members_group_user,unique;not null;size:191"`
	UserID   string    `json:"user_id" gorm:"index:idx_group_members_group_user,unique;not null;size:191"`
	JoinedAt time.Time `json:"joined_at"`

	User User `json:"user" gorm:"foreignKey:UserID"`
}

// MemberIDs returns the roster as a plain ID list.
func (g *Group) MemberIDs() []string {
	ids := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		ids = append(ids, m.UserID)
	}
	return ids
}

// HasMember reports whether the loaded roster contains the user.
func (g *Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}
