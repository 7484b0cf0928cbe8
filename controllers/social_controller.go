package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"chatwave-api/models"
	"chatwave-api/realtime"
	"chatwave-api/services"
	"chatwave-api/utils"
)

type SocialController struct {
	db           *gorm.DB
	social       *services.SocialService
	gateway      *realtime.Gateway
	emailService *services.EmailService
}

func NewSocialController(db *gorm.DB, social *services.SocialService, gateway *realtime.Gateway, emailService *services.EmailService) *SocialController {
	return &SocialController{
		db:           db,
		social:       social,
		gateway:      gateway,
		emailService: emailService,
	}
}

func (sc *SocialController) SendFriendRequest(c *gin.Context) {
	senderID := c.GetString("user_id")
	receiverID := c.Param("user_id")

	request, notify, err := sc.social.SendRequest(senderID, receiverID)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	sc.gateway.Emit(realtime.EventFriendRequest, request, notify)
	sc.notifyOfflineByEmail(senderID, receiverID)

	utils.SendSuccess(c, "Friend request sent successfully", request)
}

// notifyOfflineByEmail is a best-effort fallback when the target has no
// live connection. Failures are logged, never surfaced.
func (sc *SocialController) notifyOfflineByEmail(senderID, receiverID string) {
	if sc.gateway.Online(receiverID) {
		return
	}
	var sender, receiver models.User
	if err := sc.db.First(&sender, "id = ?", senderID).Error; err != nil {
		return
	}
	if err := sc.db.First(&receiver, "id = ?", receiverID).Error; err != nil {
		return
	}
	if err := sc.emailService.SendFriendRequestEmail(receiver.Email, receiver.Name, sender.Name); err != nil {
		fmt.Printf("Failed to send friend request email: %v\n", err)
	}
}

func (sc *SocialController) AcceptFriendRequest(c *gin.Context) {
	sc.respond(c, true)
}

func (sc *SocialController) RejectFriendRequest(c *gin.Context) {
	sc.respond(c, false)
}

func (sc *SocialController) respond(c *gin.Context, accept bool) {
	userID := c.GetString("user_id")
	requestID := c.Param("request_id")

	request, notify, err := sc.social.Respond(userID, requestID, accept)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	if accept {
		sc.gateway.Emit(realtime.EventFriendAccepted, gin.H{
			"request_id": request.RequestID,
			"user_id":    userID,
		}, notify)
		utils.SendSuccess(c, "Friend request accepted successfully", request)
		return
	}
	utils.SendSuccess(c, "Friend request rejected successfully", request)
}

func (sc *SocialController) RemoveFriend(c *gin.Context) {
	userID := c.GetString("user_id")
	friendID := c.Param("user_id")

	if userID == friendID {
		utils.SendError(c, http.StatusBadRequest, "Invalid operation")
		return
	}

	if err := sc.social.RemoveFriend(userID, friendID); err != nil {
		utils.SendEngineError(c, err)
		return
	}

	utils.SendSuccess(c, "Friend removed successfully", nil)
}

// BlockUser terminates any friendship as a side effect. The blocked user
// is deliberately not notified.
func (sc *SocialController) BlockUser(c *gin.Context) {
	userID := c.GetString("user_id")
	targetID := c.Param("user_id")

	if err := sc.social.Block(userID, targetID); err != nil {
		utils.SendEngineError(c, err)
		return
	}

	utils.SendSuccess(c, "User blocked successfully", nil)
}

func (sc *SocialController) UnblockUser(c *gin.Context) {
	userID := c.GetString("user_id")
	targetID := c.Param("user_id")

	if err := sc.social.Unblock(userID, targetID); err != nil {
		utils.SendEngineError(c, err)
		return
	}

	utils.SendSuccess(c, "User unblocked successfully", nil)
}

type NicknameRequest struct {
	Nickname string `json:"nickname"`
}

func (sc *SocialController) SetFriendNickname(c *gin.Context) {
	userID := c.GetString("user_id")
	friendID := c.Param("user_id")

	var req NicknameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := sc.social.SetFriendNickname(userID, friendID, req.Nickname); err != nil {
		utils.SendEngineError(c, err)
		return
	}

	utils.SendSuccess(c, "Nickname updated", nil)
}

func (sc *SocialController) GetFriends(c *gin.Context) {
	userID := c.GetString("user_id")
	page, limit := utils.ParsePagination(c.Query("page"), c.Query("limit"))

	friends, err := sc.social.GetFriends(userID, page, limit)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	utils.SendPaginated(c, friends, page, limit)
}

func (sc *SocialController) GetPendingRequests(c *gin.Context) {
	userID := c.GetString("user_id")
	page, limit := utils.ParsePagination(c.Query("page"), c.Query("limit"))

	requests, err := sc.social.GetPendingRequests(userID, page, limit)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	utils.SendPaginated(c, requests, page, limit)
}

func (sc *SocialController) GetSentRequests(c *gin.Context) {
	userID := c.GetString("user_id")
	page, limit := utils.ParsePagination(c.Query("page"), c.Query("limit"))

	requests, err := sc.social.GetSentRequests(userID, page, limit)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	utils.SendPaginated(c, requests, page, limit)
}

func (sc *SocialController) GetBlockedUsers(c *gin.Context) {
	userID := c.GetString("user_id")

	blocks, err := sc.social.GetBlockedUsers(userID)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	utils.SendSuccess(c, "Blocked users fetched", blocks)
}

func (sc *SocialController) GetFriendshipStatus(c *gin.Context) {
	userID := c.GetString("user_id")
	targetID := c.Param("user_id")

	status, err := sc.social.GetFriendshipStatus(userID, targetID)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}
