package controllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"chatwave-api/models"
	"chatwave-api/realtime"
	"chatwave-api/services"
	"chatwave-api/utils"
)

type GroupController struct {
	db           *gorm.DB
	groups       *services.GroupService
	gateway      *realtime.Gateway
	emailService *services.EmailService
}

func NewGroupController(db *gorm.DB, groups *services.GroupService, gateway *realtime.Gateway, emailService *services.EmailService) *GroupController {
	return &GroupController{
		db:           db,
		groups:       groups,
		gateway:      gateway,
		emailService: emailService,
	}
}

type CreateGroupRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Members     []string `json:"members"`
}

func (gc *GroupController) CreateGroup(c *gin.Context) {
	adminID := c.GetString("user_id")

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, notify, err := gc.groups.Create(req.Name, adminID, req.Members)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	if req.Description != "" {
		desc := req.Description
		if _, _, err := gc.groups.Update(group.ID, adminID, services.GroupUpdate{Description: &desc}); err == nil {
			group.Description = desc
		}
	}

	gc.gateway.Emit(realtime.EventGroupCreated, group, notify)
	gc.notifyOfflineMembers(notify, group.Name)
	utils.SendCreated(c, "Group created", group)
}

// notifyOfflineMembers emails members without a live connection. Best
// effort only.
func (gc *GroupController) notifyOfflineMembers(memberIDs []string, groupName string) {
	for _, id := range memberIDs {
		if gc.gateway.Online(id) {
			continue
		}
		var member models.User
		if err := gc.db.First(&member, "id = ?", id).Error; err != nil {
			continue
		}
		if err := gc.emailService.SendGroupInviteEmail(member.Email, member.Name, groupName); err != nil {
			fmt.Printf("Failed to send group invite email: %v\n", err)
		}
	}
}

func (gc *GroupController) GetGroup(c *gin.Context) {
	groupID := c.Param("group_id")
	userID := c.GetString("user_id")

	group, err := gc.groups.Get(groupID)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}
	if !group.HasMember(userID) {
		utils.SendError(c, http.StatusForbidden, "Not a member of this group")
		return
	}

	utils.SendSuccess(c, "Group fetched", group)
}

func (gc *GroupController) GetMyGroups(c *gin.Context) {
	userID := c.GetString("user_id")

	groups, err := gc.groups.GroupsFor(userID)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	utils.SendSuccess(c, "Groups fetched", groups)
}

type UpdateGroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Image       *string `json:"image"`
}

func (gc *GroupController) UpdateGroup(c *gin.Context) {
	actorID := c.GetString("user_id")
	groupID := c.Param("group_id")

	var req UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, notify, err := gc.groups.Update(groupID, actorID, services.GroupUpdate{
		Name:        req.Name,
		Description: req.Description,
		Image:       req.Image,
	})
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	gc.gateway.Emit(realtime.EventGroupUpdated, group, notify)
	utils.SendSuccess(c, "Group updated", group)
}

type AddMembersRequest struct {
	Members []string `json:"members" binding:"required,min=1"`
}

func (gc *GroupController) AddMembers(c *gin.Context) {
	actorID := c.GetString("user_id")
	groupID := c.Param("group_id")

	var req AddMembersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, notify, err := gc.groups.AddMembers(groupID, actorID, req.Members)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	gc.gateway.Emit(realtime.EventGroupMembership, gin.H{
		"group_id": group.ID,
		"action":   "added",
		"members":  req.Members,
	}, notify)
	gc.notifyOfflineMembers(req.Members, group.Name)
	utils.SendSuccess(c, "Members added", group)
}

func (gc *GroupController) RemoveMember(c *gin.Context) {
	actorID := c.GetString("user_id")
	groupID := c.Param("group_id")
	targetID := c.Param("user_id")

	group, notify, err := gc.groups.RemoveMember(groupID, actorID, targetID)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	gc.gateway.Emit(realtime.EventGroupMembership, gin.H{
		"group_id": group.ID,
		"action":   "removed",
		"members":  []string{targetID},
	}, notify)
	utils.SendSuccess(c, "Member removed", group)
}

// LeaveGroup is self-removal; the admin must transfer rights first.
func (gc *GroupController) LeaveGroup(c *gin.Context) {
	userID := c.GetString("user_id")
	groupID := c.Param("group_id")

	group, notify, err := gc.groups.RemoveMember(groupID, userID, userID)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	gc.gateway.Emit(realtime.EventGroupMembership, gin.H{
		"group_id": group.ID,
		"action":   "left",
		"members":  []string{userID},
	}, notify)
	utils.SendSuccess(c, "Left group", nil)
}

type TransferAdminRequest struct {
	NewAdminID string `json:"new_admin_id" binding:"required"`
}

func (gc *GroupController) TransferAdmin(c *gin.Context) {
	actorID := c.GetString("user_id")
	groupID := c.Param("group_id")

	var req TransferAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	group, notify, err := gc.groups.TransferAdmin(groupID, actorID, req.NewAdminID)
	if err != nil {
		utils.SendEngineError(c, err)
		return
	}

	gc.gateway.Emit(realtime.EventGroupUpdated, group, notify)
	utils.SendSuccess(c, "Admin transferred", group)
}

func (gc *GroupController) DeleteGroup(c *gin.Context) {
	actorID := c.GetString("user_id")
	groupID := c.Param("group_id")

	notify, err := gc.groups.Delete(groupID, actorID)
	if err != nil {
		// PartialFailure still deleted the group; tell the members.
		var engineErr *services.Error
		if errors.As(err, &engineErr) && engineErr.Kind == services.KindPartialFailure {
			gc.gateway.Emit(realtime.EventGroupDeleted, gin.H{"group_id": groupID}, notify)
		}
		utils.SendEngineError(c, err)
		return
	}

	gc.gateway.Emit(realtime.EventGroupDeleted, gin.H{"group_id": groupID}, notify)
	utils.SendSuccess(c, "Group deleted", nil)
}
