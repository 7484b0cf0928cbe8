package repositories

import (
	"gorm.io/gorm"

	"chatwave-api/models"
)

// MessageRepository owns the message read path: conversation listing and
// unseen-count aggregation. Soft-deleted messages never leave this layer.
type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// conversationScope narrows a query to the visible messages of one
// conversation as seen by viewerID.
func (r *MessageRepository) conversationScope(q *gorm.DB, conv models.Conversation, viewerID string) *gorm.DB {
	q = q.Where("is_deleted = ?", false)
	if conv.IsGroup() {
		return q.Where("receiver_type = ? AND receiver_id = ?", models.ReceiverTypeGroup, conv.ID)
	}
	return q.Where("receiver_type = ?", models.ReceiverTypeUser).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
			viewerID, conv.ID, conv.ID, viewerID)
}

// ListConversation pages newest-first out of storage, then reverses so the
// caller gets ascending creation order for display.
func (r *MessageRepository) ListConversation(conv models.Conversation, viewerID string, page, limit int) ([]models.Message, error) {
	offset := (page - 1) * limit
	var messages []models.Message
	q := r.conversationScope(r.db.Model(&models.Message{}), conv, viewerID)
	if err := q.Preload("Reactions").Preload("SeenBy").Preload("Sender").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&messages).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// UnseenCount counts the viewer's unread messages in one conversation.
func (r *MessageRepository) UnseenCount(conv models.Conversation, viewerID string) (int64, error) {
	var count int64
	q := r.conversationScope(r.db.Model(&models.Message{}), conv, viewerID).
		Where("sender_id <> ?", viewerID)
	if conv.IsGroup() {
		q = q.Where("NOT EXISTS (SELECT 1 FROM message_seens WHERE message_seens.message_id = messages.id AND message_seens.user_id = ?)", viewerID)
	} else {
		q = q.Where("seen = ?", false)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// TotalUnseenCount sums unread direct messages and unread messages across
// every group the viewer belongs to.
func (r *MessageRepository) TotalUnseenCount(viewerID string) (int64, error) {
	var direct int64
	if err := r.db.Model(&models.Message{}).
		Where("is_deleted = ? AND receiver_type = ? AND receiver_id = ? AND seen = ?",
			false, models.ReceiverTypeUser, viewerID, false).
		Count(&direct).Error; err != nil {
		return 0, err
	}

	var group int64
	if err := r.db.Model(&models.Message{}).
		Where("is_deleted = ? AND receiver_type = ? AND sender_id <> ?", false, models.ReceiverTypeGroup, viewerID).
		Where("receiver_id IN (SELECT group_id FROM group_members WHERE user_id = ?)", viewerID).
		Where("NOT EXISTS (SELECT 1 FROM message_seens WHERE message_seens.message_id = messages.id AND message_seens.user_id = ?)", viewerID).
		Count(&group).Error; err != nil {
		return 0, err
	}

	return direct + group, nil
}

// UnseenIDs returns the IDs the bulk seen-marking operations work on.
func (r *MessageRepository) UnseenIDs(conv models.Conversation, viewerID string) ([]string, error) {
	var ids []string
	q := r.conversationScope(r.db.Model(&models.Message{}), conv, viewerID).
		Where("sender_id <> ?", viewerID)
	if conv.IsGroup() {
		q = q.Where("NOT EXISTS (SELECT 1 FROM message_seens WHERE message_seens.message_id = messages.id AND message_seens.user_id = ?)", viewerID)
	} else {
		q = q.Where("seen = ?", false)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// AllIDs lists every message ID in a conversation, soft-deleted rows
// included. Only the destructive purge path uses it.
func (r *MessageRepository) AllIDs(conv models.Conversation, viewerID string) ([]string, error) {
	var ids []string
	q := r.db.Model(&models.Message{})
	if conv.IsGroup() {
		q = q.Where("receiver_type = ? AND receiver_id = ?", models.ReceiverTypeGroup, conv.ID)
	} else {
		q = q.Where("receiver_type = ?", models.ReceiverTypeUser).
			Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
				viewerID, conv.ID, conv.ID, viewerID)
	}
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
