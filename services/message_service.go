package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chatwave-api/models"
	"chatwave-api/repositories"
)

// MessageContent is the payload of a new message.
type MessageContent struct {
	Text      string   `json:"text"`
	Media     []string `json:"media"`
	FileType  string   `json:"file_type"`
	ReplyToID *string  `json:"reply_to_id"`
}

func (c MessageContent) empty() bool {
	return c.Text == "" && len(c.Media) == 0
}

// MessageService is the message delivery engine. Every mutating operation
// returns the affected message(s) and the recipient identities the gateway
// should notify; it never talks to the transport itself.
type MessageService struct {
	db   *gorm.DB
	repo *repositories.MessageRepository
}

func NewMessageService(db *gorm.DB, repo *repositories.MessageRepository) *MessageService {
	return &MessageService{db: db, repo: repo}
}

// Send creates a message addressed to a user or a group.
func (s *MessageService) Send(senderID string, conv models.Conversation, content MessageContent) (*models.Message, []string, error) {
	if !conv.Type.Valid() {
		return nil, nil, notFound("conversation")
	}
	if content.empty() {
		return nil, nil, ErrEmptyMessage
	}

	var recipients []string
	if conv.IsGroup() {
		group, err := s.loadGroup(conv.ID)
		if err != nil {
			return nil, nil, err
		}
		if !group.HasMember(senderID) {
			return nil, nil, ErrNotAMember
		}
		for _, id := range group.MemberIDs() {
			if id != senderID {
				recipients = append(recipients, id)
			}
		}
	} else {
		if senderID == conv.ID {
			return nil, nil, ErrSelfReference
		}
		var recipient models.User
		if err := s.db.First(&recipient, "id = ? AND status <> ?", conv.ID, models.UserStatusInactive).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, notFound("user")
			}
			return nil, nil, storeError(err)
		}
		var blocked int64
		if err := s.db.Model(&models.UserBlock{}).
			Where("user_id = ? AND blocked_id = ?", conv.ID, senderID).
			Count(&blocked).Error; err != nil {
			return nil, nil, storeError(err)
		}
		if blocked > 0 {
			return nil, nil, ErrBlockedByRecipient
		}
		recipients = []string{conv.ID}
	}

	if content.ReplyToID != nil {
		if err := s.checkReplyTarget(*content.ReplyToID, senderID, conv); err != nil {
			return nil, nil, err
		}
	}

	message := models.Message{
		ID:           uuid.New().String(),
		SenderID:     senderID,
		ReceiverID:   conv.ID,
		ReceiverType: conv.Type,
		Text:         content.Text,
		Media:        models.StringSlice(content.Media),
		FileType:     content.FileType,
		ReplyToID:    content.ReplyToID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&message).Error; err != nil {
			return err
		}
		if conv.IsGroup() {
			// The sender has trivially seen their own group message.
			return tx.Create(&models.MessageSeen{
				MessageID: message.ID,
				UserID:    senderID,
				SeenAt:    time.Now(),
			}).Error
		}
		return nil
	})
	if err != nil {
		return nil, nil, storeError(err)
	}

	return &message, recipients, nil
}

// checkReplyTarget verifies the replied-to message lives in the same
// conversation as the new one. A soft-deleted target is still a valid
// anchor; clients render it as a tombstone.
func (s *MessageService) checkReplyTarget(replyToID, senderID string, conv models.Conversation) error {
	var ref models.Message
	if err := s.db.First(&ref, "id = ?", replyToID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidReply
		}
		return storeError(err)
	}
	if ref.ReceiverType != conv.Type {
		return ErrInvalidReply
	}
	if conv.IsGroup() {
		if ref.ReceiverID != conv.ID {
			return ErrInvalidReply
		}
		return nil
	}
	sameThread := (ref.SenderID == senderID && ref.ReceiverID == conv.ID) ||
		(ref.SenderID == conv.ID && ref.ReceiverID == senderID)
	if !sameThread {
		return ErrInvalidReply
	}
	return nil
}

// MarkSeen records that the viewer has seen one message. Re-marking is a
// no-op, never an error.
func (s *MessageService) MarkSeen(messageID, viewerID string) (*models.Message, []string, error) {
	message, err := s.loadVisible(messageID)
	if err != nil {
		return nil, nil, err
	}

	if message.ReceiverType == models.ReceiverTypeUser {
		if message.ReceiverID != viewerID {
			return nil, nil, ErrForbidden
		}
		if !message.Seen {
			if err := s.db.Model(message).Update("seen", true).Error; err != nil {
				return nil, nil, storeError(err)
			}
			message.Seen = true
		}
	} else {
		member, err := s.isGroupMember(message.ReceiverID, viewerID)
		if err != nil {
			return nil, nil, err
		}
		if !member {
			return nil, nil, ErrNotAMember
		}
		seen := models.MessageSeen{MessageID: message.ID, UserID: viewerID, SeenAt: time.Now()}
		if err := s.db.Where("message_id = ? AND user_id = ?", message.ID, viewerID).
			FirstOrCreate(&seen).Error; err != nil {
			return nil, nil, storeError(err)
		}
	}

	if message.SenderID == viewerID {
		return message, nil, nil
	}
	return message, []string{message.SenderID}, nil
}

// MarkConversationSeen applies MarkSeen to every unseen message addressed
// to the viewer in the conversation and returns how many it updated.
func (s *MessageService) MarkConversationSeen(conv models.Conversation, viewerID string) (int64, []string, error) {
	ids, err := s.repo.UnseenIDs(conv, viewerID)
	if err != nil {
		return 0, nil, storeError(err)
	}
	return s.markSeenByIDs(conv, viewerID, ids)
}

// markSeenByIDs is the bulk seen-marking primitive behind both the
// explicit conversation sweep and the page-scoped marking a listing does.
func (s *MessageService) markSeenByIDs(conv models.Conversation, viewerID string, ids []string) (int64, []string, error) {
	if len(ids) == 0 {
		return 0, nil, nil
	}

	if conv.IsGroup() {
		member, err := s.isGroupMember(conv.ID, viewerID)
		if err != nil {
			return 0, nil, err
		}
		if !member {
			return 0, nil, ErrNotAMember
		}
		now := time.Now()
		err = s.db.Transaction(func(tx *gorm.DB) error {
			for _, id := range ids {
				seen := models.MessageSeen{MessageID: id, UserID: viewerID, SeenAt: now}
				if err := tx.Where("message_id = ? AND user_id = ?", id, viewerID).
					FirstOrCreate(&seen).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return 0, nil, storeError(err)
		}
		return int64(len(ids)), nil, nil
	}

	res := s.db.Model(&models.Message{}).
		Where("id IN ?", ids).
		Update("seen", true)
	if res.Error != nil {
		return 0, nil, storeError(res.Error)
	}
	return res.RowsAffected, []string{conv.ID}, nil
}

// React sets the user's reaction on a message, replacing any previous one.
func (s *MessageService) React(messageID, userID, emoji string) (*models.Message, []string, error) {
	message, err := s.loadVisible(messageID)
	if err != nil {
		return nil, nil, err
	}
	participants, err := s.conversationParticipants(message)
	if err != nil {
		return nil, nil, err
	}
	if !contains(participants, userID) {
		return nil, nil, ErrForbidden
	}

	now := time.Now()
	var existing models.Reaction
	err = s.db.Where("message_id = ? AND user_id = ?", messageID, userID).First(&existing).Error
	switch {
	case err == nil:
		if err := s.db.Model(&existing).
			Updates(map[string]interface{}{"emoji": emoji, "reacted_at": now}).Error; err != nil {
			return nil, nil, storeError(err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		reaction := models.Reaction{MessageID: messageID, UserID: userID, Emoji: emoji, ReactedAt: now}
		if err := s.db.Create(&reaction).Error; err != nil {
			return nil, nil, storeError(err)
		}
	default:
		return nil, nil, storeError(err)
	}

	return message, participants, nil
}

// Unreact removes the user's reaction.
func (s *MessageService) Unreact(messageID, userID string) (*models.Message, []string, error) {
	message, err := s.loadVisible(messageID)
	if err != nil {
		return nil, nil, err
	}
	res := s.db.Where("message_id = ? AND user_id = ?", messageID, userID).
		Delete(&models.Reaction{})
	if res.Error != nil {
		return nil, nil, storeError(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil, notFound("reaction")
	}
	participants, err := s.conversationParticipants(message)
	if err != nil {
		return nil, nil, err
	}
	return message, participants, nil
}

// Edit rewrites a message's text. Only the sender may edit, and only
// text-only, non-forwarded messages qualify.
func (s *MessageService) Edit(messageID, editorID, newText string) (*models.Message, []string, error) {
	message, err := s.loadVisible(messageID)
	if err != nil {
		return nil, nil, err
	}
	if message.SenderID != editorID || len(message.Media) > 0 || message.IsForwarded() {
		return nil, nil, ErrNotEditable
	}
	if newText == "" {
		return nil, nil, ErrEmptyMessage
	}

	now := time.Now()
	if err := s.db.Model(message).Updates(map[string]interface{}{
		"text":      newText,
		"is_edited": true,
		"edited_at": now,
	}).Error; err != nil {
		return nil, nil, storeError(err)
	}
	message.Text = newText
	message.IsEdited = true
	message.EditedAt = &now

	recipients, err := s.recipientsOf(message)
	if err != nil {
		return nil, nil, err
	}
	return message, recipients, nil
}

// SoftDelete hides a message from all reads while keeping the row for
// audit and for replies/forwards that reference it.
func (s *MessageService) SoftDelete(messageID, requesterID string) (*models.Message, []string, error) {
	message, err := s.loadVisible(messageID)
	if err != nil {
		return nil, nil, err
	}
	if message.SenderID != requesterID {
		return nil, nil, ErrForbidden
	}
	if err := s.db.Model(message).Update("is_deleted", true).Error; err != nil {
		return nil, nil, storeError(err)
	}
	message.IsDeleted = true

	recipients, err := s.recipientsOf(message)
	if err != nil {
		return nil, nil, err
	}
	return message, recipients, nil
}

// Forward copies a message to each target conversation. Targets that do
// not resolve (missing user/group, blocked, non-membership) are skipped,
// not fatal to the batch.
func (s *MessageService) Forward(messageID, fromID string, targets []models.Conversation) ([]models.Message, []string, error) {
	original, err := s.loadVisible(messageID)
	if err != nil {
		return nil, nil, err
	}
	participants, err := s.conversationParticipants(original)
	if err != nil {
		return nil, nil, err
	}
	if !contains(participants, fromID) {
		return nil, nil, ErrForbidden
	}

	var created []models.Message
	var notify []string
	for _, target := range targets {
		message := models.Message{
			ID:              uuid.New().String(),
			SenderID:        fromID,
			ReceiverID:      target.ID,
			ReceiverType:    target.Type,
			Text:            original.Text,
			Media:           original.Media,
			FileType:        original.FileType,
			ForwardedFromID: &original.ID,
		}
		recipients, err := s.deliverValidated(&message, target)
		if err != nil {
			continue
		}
		created = append(created, message)
		for _, id := range recipients {
			if !contains(notify, id) {
				notify = append(notify, id)
			}
		}
	}
	return created, notify, nil
}

// deliverValidated runs the Send validations for an already-built message
// and persists it.
func (s *MessageService) deliverValidated(message *models.Message, conv models.Conversation) ([]string, error) {
	if !conv.Type.Valid() {
		return nil, notFound("conversation")
	}
	var recipients []string
	if conv.IsGroup() {
		group, err := s.loadGroup(conv.ID)
		if err != nil {
			return nil, err
		}
		if !group.HasMember(message.SenderID) {
			return nil, ErrNotAMember
		}
		for _, id := range group.MemberIDs() {
			if id != message.SenderID {
				recipients = append(recipients, id)
			}
		}
	} else {
		if message.SenderID == conv.ID {
			return nil, ErrSelfReference
		}
		var count int64
		if err := s.db.Model(&models.User{}).
			Where("id = ? AND status <> ?", conv.ID, models.UserStatusInactive).
			Count(&count).Error; err != nil {
			return nil, storeError(err)
		}
		if count == 0 {
			return nil, notFound("user")
		}
		var blocked int64
		if err := s.db.Model(&models.UserBlock{}).
			Where("user_id = ? AND blocked_id = ?", conv.ID, message.SenderID).
			Count(&blocked).Error; err != nil {
			return nil, storeError(err)
		}
		if blocked > 0 {
			return nil, ErrBlockedByRecipient
		}
		recipients = []string{conv.ID}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		if conv.IsGroup() {
			return tx.Create(&models.MessageSeen{
				MessageID: message.ID,
				UserID:    message.SenderID,
				SeenAt:    time.Now(),
			}).Error
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}
	return recipients, nil
}

// PurgeConversation permanently deletes every message in a conversation,
// reactions and seen-state included. Irreversible; the HTTP boundary is
// responsible for explicit user confirmation.
func (s *MessageService) PurgeConversation(conv models.Conversation, actorID string) (int64, error) {
	if conv.IsGroup() {
		group, err := s.loadGroup(conv.ID)
		if err != nil {
			return 0, err
		}
		if group.AdminID != actorID {
			return 0, ErrForbidden
		}
	}

	ids, err := s.repo.AllIDs(conv, actorID)
	if err != nil {
		return 0, storeError(err)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("message_id IN ?", ids).Delete(&models.Reaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("message_id IN ?", ids).Delete(&models.MessageSeen{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&models.Message{}).Error
	})
	if err != nil {
		return 0, storeError(err)
	}
	return int64(len(ids)), nil
}

// ListMessages returns one page of a conversation in ascending creation
// order and, as a deliberate side effect, marks the fetched page's unseen
// messages as seen for the viewer. Fetching a page is also the act of
// reading it; older unfetched pages stay unread.
func (s *MessageService) ListMessages(conv models.Conversation, viewerID string, page, limit int) ([]models.Message, int64, []string, error) {
	if conv.IsGroup() {
		member, err := s.isGroupMember(conv.ID, viewerID)
		if err != nil {
			return nil, 0, nil, err
		}
		if !member {
			return nil, 0, nil, ErrNotAMember
		}
	}

	messages, err := s.repo.ListConversation(conv, viewerID, page, limit)
	if err != nil {
		return nil, 0, nil, storeError(err)
	}

	var unseen []string
	for i := range messages {
		m := &messages[i]
		if m.SenderID == viewerID {
			continue
		}
		if conv.IsGroup() {
			if !m.SeenByUser(viewerID) {
				unseen = append(unseen, m.ID)
			}
		} else if m.ReceiverID == viewerID && !m.Seen {
			unseen = append(unseen, m.ID)
		}
	}

	marked, notify, err := s.markSeenByIDs(conv, viewerID, unseen)
	if err != nil {
		// The read succeeded and the seen-marking is idempotent on retry;
		// report the half-applied state rather than failing the read.
		return messages, 0, nil, partialFailure("conversation fetched but seen-marking failed", err)
	}
	return messages, marked, notify, nil
}

// GetMessage fetches by ID for a conversation participant. Soft-deleted
// rows are included, so references to deleted messages resolve to a
// tombstone instead of a hard error, but outsiders never see either.
func (s *MessageService) GetMessage(messageID, viewerID string) (*models.Message, error) {
	var message models.Message
	if err := s.db.Preload("Reactions").Preload("SeenBy").
		First(&message, "id = ?", messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("message")
		}
		return nil, storeError(err)
	}

	participants, err := s.conversationParticipants(&message)
	if err != nil {
		return nil, err
	}
	if !contains(participants, viewerID) {
		return nil, ErrForbidden
	}
	return &message, nil
}

// UnseenCount exposes the repository aggregation for one conversation.
func (s *MessageService) UnseenCount(conv models.Conversation, viewerID string) (int64, error) {
	count, err := s.repo.UnseenCount(conv, viewerID)
	if err != nil {
		return 0, storeError(err)
	}
	return count, nil
}

// TotalUnseenCount exposes the viewer's global unread counter.
func (s *MessageService) TotalUnseenCount(viewerID string) (int64, error) {
	count, err := s.repo.TotalUnseenCount(viewerID)
	if err != nil {
		return 0, storeError(err)
	}
	return count, nil
}

func (s *MessageService) loadVisible(messageID string) (*models.Message, error) {
	var message models.Message
	if err := s.db.First(&message, "id = ? AND is_deleted = ?", messageID, false).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("message")
		}
		return nil, storeError(err)
	}
	return &message, nil
}

func (s *MessageService) loadGroup(groupID string) (*models.Group, error) {
	var group models.Group
	if err := s.db.Preload("Members").First(&group, "id = ?", groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("group")
		}
		return nil, storeError(err)
	}
	return &group, nil
}

func (s *MessageService) isGroupMember(groupID, userID string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error; err != nil {
		return false, storeError(err)
	}
	return count > 0, nil
}

// conversationParticipants resolves everyone in a message's conversation,
// sender included: both parties for direct, the current member list for
// groups.
func (s *MessageService) conversationParticipants(message *models.Message) ([]string, error) {
	if message.ReceiverType == models.ReceiverTypeUser {
		return []string{message.SenderID, message.ReceiverID}, nil
	}
	group, err := s.loadGroup(message.ReceiverID)
	if err != nil {
		return nil, err
	}
	return group.MemberIDs(), nil
}

// recipientsOf is conversationParticipants minus the sender.
func (s *MessageService) recipientsOf(message *models.Message) ([]string, error) {
	participants, err := s.conversationParticipants(message)
	if err != nil {
		return nil, err
	}
	out := participants[:0]
	for _, id := range participants {
		if id != message.SenderID {
			out = append(out, id)
		}
	}
	return out, nil
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
