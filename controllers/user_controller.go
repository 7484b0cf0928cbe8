package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"chatwave-api/models"
	"chatwave-api/services"
	"chatwave-api/utils"
)

type UserController struct {
	db     *gorm.DB
	social *services.SocialService
}

func NewUserController(db *gorm.DB, social *services.SocialService) *UserController {
	return &UserController{db: db, social: social}
}

func (uc *UserController) GetProfile(c *gin.Context) {
	userID := c.GetString("user_id")

	var user models.User
	if err := uc.db.First(&user, "id = ?", userID).Error; err != nil {
		utils.SendError(c, http.StatusNotFound, "User not found")
		return
	}

	user.Password = ""
	utils.SendSuccess(c, "Profile fetched", user)
}

type UpdateProfileRequest struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
}

func (uc *UserController) UpdateProfile(c *gin.Context) {
	userID := c.GetString("user_id")

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fields := map[string]interface{}{}
	if req.Name != nil && *req.Name != "" {
		fields["name"] = *req.Name
	}
	if req.Avatar != nil {
		fields["avatar"] = *req.Avatar
	}
	if len(fields) == 0 {
		utils.SendError(c, http.StatusBadRequest, "Nothing to update")
		return
	}

	if err := uc.db.Model(&models.User{}).Where("id = ?", userID).Updates(fields).Error; err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to update profile")
		return
	}

	utils.SendSuccess(c, "Profile updated", nil)
}

type PrivacySettingsRequest struct {
	ProfileVisibility   *models.Visibility          `json:"profile_visibility"`
	FriendRequestPolicy *models.FriendRequestPolicy `json:"friend_request_policy"`
	LastSeenVisibility  *models.Visibility          `json:"last_seen_visibility"`
}

func (uc *UserController) UpdatePrivacySettings(c *gin.Context) {
	userID := c.GetString("user_id")

	var req PrivacySettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fields := map[string]interface{}{}
	if req.ProfileVisibility != nil {
		fields["profile_visibility"] = *req.ProfileVisibility
	}
	if req.FriendRequestPolicy != nil {
		fields["friend_request_policy"] = *req.FriendRequestPolicy
	}
	if req.LastSeenVisibility != nil {
		fields["last_seen_visibility"] = *req.LastSeenVisibility
	}
	if len(fields) == 0 {
		utils.SendError(c, http.StatusBadRequest, "Nothing to update")
		return
	}

	if err := uc.db.Model(&models.User{}).Where("id = ?", userID).Updates(fields).Error; err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to update privacy settings")
		return
	}

	utils.SendSuccess(c, "Privacy settings updated", nil)
}

// GetUser returns another user's public profile, honoring their privacy
// settings relative to the caller.
func (uc *UserController) GetUser(c *gin.Context) {
	userID := c.GetString("user_id")
	targetID := c.Param("user_id")

	var target models.User
	if err := uc.db.First(&target, "id = ?", targetID).Error; err != nil {
		utils.SendError(c, http.StatusNotFound, "User not found")
		return
	}

	friends, err := uc.social.AreFriends(userID, targetID)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	if !uc.visibleTo(target.ProfileVisibility, userID, targetID, friends) {
		utils.SendError(c, http.StatusForbidden, "Profile is private")
		return
	}

	includeLastSeen := uc.visibleTo(target.LastSeenVisibility, userID, targetID, friends)
	utils.SendSuccess(c, "User fetched", target.ToPublic(includeLastSeen))
}

func (uc *UserController) visibleTo(v models.Visibility, viewerID, ownerID string, friends bool) bool {
	if viewerID == ownerID {
		return true
	}
	switch v {
	case models.VisibilityEveryone:
		return true
	case models.VisibilityFriends:
		return friends
	default:
		return false
	}
}

// Deactivate tombstones the account: the row survives with scrubbed
// identity so existing conversations keep a resolvable peer.
func (uc *UserController) Deactivate(c *gin.Context) {
	userID := c.GetString("user_id")

	var user models.User
	if err := uc.db.First(&user, "id = ?", userID).Error; err != nil {
		utils.SendError(c, http.StatusNotFound, "User not found")
		return
	}

	user.Tombstone()
	if err := uc.db.Save(&user).Error; err != nil {
		utils.SendError(c, http.StatusInternalServerError, "Failed to deactivate account")
		return
	}

	utils.SendSuccess(c, "Account deactivated", nil)
}
