package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chatwave-api/models"
	"chatwave-api/realtime"
	"chatwave-api/services"
	"chatwave-api/utils"
)

type MessageController struct {
	messages *services.MessageService
	gateway  *realtime.Gateway
}

func NewMessageController(messages *services.MessageService, gateway *realtime.Gateway) *MessageController {
	return &MessageController{messages: messages, gateway: gateway}
}

type SendMessageRequest struct {
	ReceiverID   string              `json:"receiver_id" binding:"required"`
	ReceiverType models.ReceiverType `json:"receiver_type" binding:"required"`
	Text         string              `json:"text"`
	Media        []string            `json:"media"`
	FileType     string              `json:"file_type"`
	ReplyToID    *string             `json:"reply_to_id"`
}

func (mc *MessageController) SendMessage(c *gin.Context) {
	senderID := c.GetString("user_id")

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conv := models.Conversation{Type: req.ReceiverType, ID: req.ReceiverID}
	content := services.MessageContent{
		Text:      req.Text,
		Media:     req.Media,
		FileType:  req.FileType,
		ReplyToID: req.ReplyToID,
	}

	message, notify, err := mc.messages.Send(senderID, conv, content)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	mc.gateway.Emit(realtime.EventNewMessage, message, notify)
	utils.SendCreated(c, "Message sent", message)
}

// ListMessages returns one conversation page; fetching it marks the page
// seen for the caller as a side effect.
func (mc *MessageController) ListMessages(c *gin.Context) {
	viewerID := c.GetString("user_id")
	conv, ok := conversationFromQuery(c)
	if !ok {
		return
	}
	page, limit := utils.ParsePagination(c.Query("page"), c.Query("limit"))

	messages, marked, notify, err := mc.messages.ListMessages(conv, viewerID, page, limit)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	if marked > 0 {
		mc.gateway.Emit(realtime.EventMessageSeen, gin.H{
			"conversation_id": conv.ID,
			"seen_by":         viewerID,
			"count":           marked,
		}, notify)
	}

	c.JSON(http.StatusOK, gin.H{
		"messages":    messages,
		"marked_seen": marked,
		"page":        page,
		"limit":       limit,
	})
}

func (mc *MessageController) MarkSeen(c *gin.Context) {
	viewerID := c.GetString("user_id")
	messageID := c.Param("message_id")

	message, notify, err := mc.messages.MarkSeen(messageID, viewerID)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	mc.gateway.Emit(realtime.EventMessageSeen, gin.H{
		"message_id": message.ID,
		"seen_by":    viewerID,
	}, notify)
	utils.SendSuccess(c, "Message marked as seen", nil)
}

func (mc *MessageController) MarkConversationSeen(c *gin.Context) {
	viewerID := c.GetString("user_id")
	conv, ok := conversationFromQuery(c)
	if !ok {
		return
	}

	count, notify, err := mc.messages.MarkConversationSeen(conv, viewerID)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	if count > 0 {
		mc.gateway.Emit(realtime.EventMessageSeen, gin.H{
			"conversation_id": conv.ID,
			"seen_by":         viewerID,
			"count":           count,
		}, notify)
	}
	utils.SendSuccess(c, "Conversation marked as seen", gin.H{"updated": count})
}

type ReactRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

func (mc *MessageController) React(c *gin.Context) {
	userID := c.GetString("user_id")
	messageID := c.Param("message_id")

	var req ReactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !utils.IsValidEmoji(req.Emoji) {
		utils.SendError(c, http.StatusBadRequest, "Invalid emoji")
		return
	}

	message, notify, err := mc.messages.React(messageID, userID, req.Emoji)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	mc.gateway.Emit(realtime.EventReactionAdded, gin.H{
		"message_id": message.ID,
		"user_id":    userID,
		"emoji":      req.Emoji,
	}, notify)
	utils.SendSuccess(c, "Reaction added", nil)
}

func (mc *MessageController) Unreact(c *gin.Context) {
	userID := c.GetString("user_id")
	messageID := c.Param("message_id")

	message, notify, err := mc.messages.Unreact(messageID, userID)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	mc.gateway.Emit(realtime.EventReactionRemoved, gin.H{
		"message_id": message.ID,
		"user_id":    userID,
	}, notify)
	utils.SendSuccess(c, "Reaction removed", nil)
}

type EditMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

func (mc *MessageController) EditMessage(c *gin.Context) {
	userID := c.GetString("user_id")
	messageID := c.Param("message_id")

	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, notify, err := mc.messages.Edit(messageID, userID, req.Text)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	mc.gateway.Emit(realtime.EventMessageEdited, message, notify)
	utils.SendSuccess(c, "Message edited", message)
}

func (mc *MessageController) DeleteMessage(c *gin.Context) {
	userID := c.GetString("user_id")
	messageID := c.Param("message_id")

	message, notify, err := mc.messages.SoftDelete(messageID, userID)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	mc.gateway.Emit(realtime.EventMessageDeleted, gin.H{
		"message_id": message.ID,
	}, notify)
	utils.SendSuccess(c, "Message deleted", nil)
}

type ForwardRequest struct {
	Targets []models.Conversation `json:"targets" binding:"required,min=1"`
}

func (mc *MessageController) ForwardMessage(c *gin.Context) {
	userID := c.GetString("user_id")
	messageID := c.Param("message_id")

	var req ForwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, notify, err := mc.messages.Forward(messageID, userID, req.Targets)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	for i := range created {
		mc.gateway.Emit(realtime.EventNewMessage, &created[i], notify)
	}
	utils.SendSuccess(c, "Message forwarded", gin.H{"forwarded": len(created)})
}

// PurgeConversation permanently deletes a conversation's history. The
// confirm=true query parameter is the explicit confirmation gate for this
// irreversible operation.
func (mc *MessageController) PurgeConversation(c *gin.Context) {
	actorID := c.GetString("user_id")
	conv, ok := conversationFromQuery(c)
	if !ok {
		return
	}
	if c.Query("confirm") != "true" {
		utils.SendError(c, http.StatusBadRequest, "Purge is irreversible; pass confirm=true to proceed")
		return
	}

	count, err := mc.messages.PurgeConversation(conv, actorID)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	utils.SendSuccess(c, "Conversation purged", gin.H{"deleted": count})
}

func (mc *MessageController) GetUnseenCount(c *gin.Context) {
	viewerID := c.GetString("user_id")

	if c.Query("conversation_id") == "" {
		total, err := mc.messages.TotalUnseenCount(viewerID)
		if err != nil {
			utils.SendEngineError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"unseen": total})
		return
	}

	conv, ok := conversationFromQuery(c)
	if !ok {
		return
	}
	count, err := mc.messages.UnseenCount(conv, viewerID)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unseen": count})
}

// GetMessage fetches by ID for conversation participants, returning a
// tombstone view for soft-deleted messages instead of a hard error.
func (mc *MessageController) GetMessage(c *gin.Context) {
	viewerID := c.GetString("user_id")
	messageID := c.Param("message_id")

	message, err := mc.messages.GetMessage(messageID, viewerID)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	if message.IsDeleted {
		c.JSON(http.StatusOK, gin.H{
			"id":         message.ID,
			"is_deleted": true,
		})
		return
	}
	utils.SendSuccess(c, "Message fetched", message)
}

// conversationFromQuery reads the conversation target off the query
// string. Writes the error response itself when the input is unusable.
func conversationFromQuery(c *gin.Context) (models.Conversation, bool) {
	conv := models.Conversation{
		Type: models.ReceiverType(c.Query("conversation_type")),
		ID:   c.Query("conversation_id"),
	}
	if conv.ID == "" || !conv.Type.Valid() {
		utils.SendError(c, http.StatusBadRequest, "conversation_id and conversation_type (user|group) are required")
		return models.Conversation{}, false
	}
	return conv, true
}
