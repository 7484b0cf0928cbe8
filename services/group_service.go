package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chatwave-api/models"
)

// GroupService is the group membership engine: roster, admin rights and
// the cascades membership changes trigger.
type GroupService struct {
	db *gorm.DB
}

func NewGroupService(db *gorm.DB) *GroupService {
	return &GroupService{db: db}
}

// GroupUpdate carries the admin-editable group fields.
type GroupUpdate struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
}

// Create builds a group with the admin always on the roster, whatever the
// initial member list says.
func (s *GroupService) Create(name, adminID string, initialMembers []string) (*models.Group, []string, error) {
	if name == "" {
		return nil, nil, newError(KindConflict, "empty_name", "group name is required")
	}

	memberIDs := []string{adminID}
	for _, id := range initialMembers {
		if id == adminID || contains(memberIDs, id) {
			continue
		}
		var count int64
		if err := s.db.Model(&models.User{}).
			Where("id = ? AND status <> ?", id, models.UserStatusInactive).
			Count(&count).Error; err != nil {
			return nil, nil, storeError(err)
		}
		if count > 0 {
			memberIDs = append(memberIDs, id)
		}
	}

	group := models.Group{
		ID:      uuid.New().String(),
		Name:    name,
		AdminID: adminID,
	}
	now := time.Now()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&group).Error; err != nil {
			return err
		}
		for _, id := range memberIDs {
			member := models.GroupMember{GroupID: group.ID, UserID: id, JoinedAt: now}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
			group.Members = append(group.Members, member)
		}
		return nil
	})
	if err != nil {
		return nil, nil, storeError(err)
	}

	return &group, without(memberIDs, adminID), nil
}

// AddMembers lets the admin grow the roster. Unknown users and existing
// members are silently skipped; an entirely empty batch after filtering is
// the only failure.
func (s *GroupService) AddMembers(groupID, actorID string, newMemberIDs []string) (*models.Group, []string, error) {
	group, err := s.load(groupID)
	if err != nil {
		return nil, nil, err
	}
	if group.AdminID != actorID {
		return nil, nil, ErrForbidden
	}

	var valid []string
	for _, id := range newMemberIDs {
		if group.HasMember(id) || contains(valid, id) {
			continue
		}
		var count int64
		if err := s.db.Model(&models.User{}).
			Where("id = ? AND status <> ?", id, models.UserStatusInactive).
			Count(&count).Error; err != nil {
			return nil, nil, storeError(err)
		}
		if count > 0 {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return nil, nil, ErrNoValidMembers
	}

	now := time.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, id := range valid {
			member := models.GroupMember{GroupID: groupID, UserID: id, JoinedAt: now}
			// Insert-if-absent keeps a retried batch idempotent.
			if err := tx.Where("group_id = ? AND user_id = ?", groupID, id).
				FirstOrCreate(&member).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, storeError(err)
	}

	group, err = s.load(groupID)
	if err != nil {
		return nil, nil, err
	}
	return group, without(group.MemberIDs(), actorID), nil
}

// RemoveMember drops one user from the roster. The admin may remove
// anyone else; any member may remove themselves, except the admin, who
// must transfer rights first.
func (s *GroupService) RemoveMember(groupID, actorID, targetID string) (*models.Group, []string, error) {
	group, err := s.load(groupID)
	if err != nil {
		return nil, nil, err
	}
	if !group.HasMember(targetID) {
		return nil, nil, notFound("member")
	}
	selfRemoval := actorID == targetID
	if !selfRemoval && group.AdminID != actorID {
		return nil, nil, ErrForbidden
	}
	if targetID == group.AdminID {
		if selfRemoval {
			return nil, nil, ErrAdminCannotLeave
		}
		return nil, nil, ErrForbidden
	}

	if err := s.db.
		Where("group_id = ? AND user_id = ?", groupID, targetID).
		Delete(&models.GroupMember{}).Error; err != nil {
		return nil, nil, storeError(err)
	}

	group, err = s.load(groupID)
	if err != nil {
		return nil, nil, err
	}
	// The removed user is told too, so their client can drop the group.
	notify := append(without(group.MemberIDs(), actorID), targetID)
	return group, notify, nil
}

// TransferAdmin hands admin rights to another current member.
func (s *GroupService) TransferAdmin(groupID, actorID, newAdminID string) (*models.Group, []string, error) {
	group, err := s.load(groupID)
	if err != nil {
		return nil, nil, err
	}
	if group.AdminID != actorID {
		return nil, nil, ErrForbidden
	}
	if newAdminID == actorID {
		return nil, nil, ErrAlreadyAdmin
	}
	if !group.HasMember(newAdminID) {
		return nil, nil, ErrNotAMember
	}

	if err := s.db.Model(group).Update("admin_id", newAdminID).Error; err != nil {
		return nil, nil, storeError(err)
	}
	group.AdminID = newAdminID

	return group, without(group.MemberIDs(), actorID), nil
}

// Update edits the group's descriptive fields. Admin only.
func (s *GroupService) Update(groupID, actorID string, update GroupUpdate) (*models.Group, []string, error) {
	group, err := s.load(groupID)
	if err != nil {
		return nil, nil, err
	}
	if group.AdminID != actorID {
		return nil, nil, ErrForbidden
	}

	fields := map[string]interface{}{}
	if update.Name != nil && *update.Name != "" {
		fields["name"] = *update.Name
		group.Name = *update.Name
	}
	if update.Description != nil {
		fields["description"] = *update.Description
		group.Description = *update.Description
	}
	if update.Image != nil {
		fields["image"] = *update.Image
		group.Image = update.Image
	}
	if len(fields) > 0 {
		if err := s.db.Model(group).Updates(fields).Error; err != nil {
			return nil, nil, storeError(err)
		}
	}

	return group, without(group.MemberIDs(), actorID), nil
}

// Delete removes the group and soft-deletes its message history as a
// cascade. If the cascade fails after the roster is gone, the caller gets
// PartialFailure: the group deletion stands and the message sweep is safe
// to retry.
func (s *GroupService) Delete(groupID, actorID string) ([]string, error) {
	group, err := s.load(groupID)
	if err != nil {
		return nil, err
	}
	if group.AdminID != actorID {
		return nil, ErrForbidden
	}
	notify := without(group.MemberIDs(), actorID)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("group_id = ?", groupID).Delete(&models.GroupMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(group).Error
	})
	if err != nil {
		return nil, storeError(err)
	}

	if err := s.db.Model(&models.Message{}).
		Where("receiver_type = ? AND receiver_id = ?", models.ReceiverTypeGroup, groupID).
		Update("is_deleted", true).Error; err != nil {
		return notify, partialFailure("group deleted but message cascade failed", err)
	}

	return notify, nil
}

// Get returns a group with its roster loaded.
func (s *GroupService) Get(groupID string) (*models.Group, error) {
	return s.load(groupID)
}

// GroupsFor lists every group the user belongs to.
func (s *GroupService) GroupsFor(userID string) ([]models.Group, error) {
	var groups []models.Group
	if err := s.db.Preload("Members").Preload("Members.User").
		Where("id IN (SELECT group_id FROM group_members WHERE user_id = ?)", userID).
		Order("created_at DESC").
		Find(&groups).Error; err != nil {
		return nil, storeError(err)
	}
	return groups, nil
}

func (s *GroupService) load(groupID string) (*models.Group, error) {
	var group models.Group
	if err := s.db.Preload("Members").Preload("Members.User").
		First(&group, "id = ?", groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("group")
		}
		return nil, storeError(err)
	}
	return &group, nil
}

func without(ids []string, exclude string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
