package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chatwave-api/models"
)

// SocialService is the social graph engine: friend requests, friendships
// and blocking. Friendships and pending requests are denormalized across
// both participants (two Friend rows, two FriendRequest mirror copies), so
// every mutation here touches the pair inside one store transaction.
type SocialService struct {
	db *gorm.DB
}

func NewSocialService(db *gorm.DB) *SocialService {
	return &SocialService{db: db}
}

// SendRequest creates the mirrored pending request from one user to
// another. It returns the incoming copy (the one the target sees) and the
// identity to notify.
func (s *SocialService) SendRequest(fromID, toID string) (*models.FriendRequest, []string, error) {
	if fromID == toID {
		return nil, nil, ErrSelfReference
	}

	var target models.User
	if err := s.db.First(&target, "id = ? AND status <> ?", toID, models.UserStatusInactive).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, notFound("user")
		}
		return nil, nil, storeError(err)
	}

	blocked, err := s.blockExists(fromID, toID)
	if err != nil {
		return nil, nil, err
	}
	if blocked {
		return nil, nil, ErrBlocked
	}

	friends, err := s.AreFriends(fromID, toID)
	if err != nil {
		return nil, nil, err
	}
	if friends {
		return nil, nil, ErrAlreadyFriends
	}

	var pendingOut int64
	if err := s.db.Model(&models.FriendRequest{}).
		Where("owner_id = ? AND peer_id = ? AND direction = ? AND status = ?",
			fromID, toID, models.RequestDirectionOutgoing, models.FriendRequestStatusPending).
		Count(&pendingOut).Error; err != nil {
		return nil, nil, storeError(err)
	}
	if pendingOut > 0 {
		return nil, nil, ErrDuplicateRequest
	}

	// A pending request in the opposite direction is surfaced as its own
	// condition: the caller should accept it, not race a second request.
	var pendingIn int64
	if err := s.db.Model(&models.FriendRequest{}).
		Where("owner_id = ? AND peer_id = ? AND direction = ? AND status = ?",
			fromID, toID, models.RequestDirectionIncoming, models.FriendRequestStatusPending).
		Count(&pendingIn).Error; err != nil {
		return nil, nil, storeError(err)
	}
	if pendingIn > 0 {
		return nil, nil, ErrReciprocalPending
	}

	switch target.FriendRequestPolicy {
	case models.FriendRequestPolicyNobody:
		return nil, nil, ErrPolicyDenied
	case models.FriendRequestPolicyFriendsOfFriends:
		mutuals, err := s.MutualFriendCount(fromID, toID)
		if err != nil {
			return nil, nil, err
		}
		if mutuals == 0 {
			return nil, nil, ErrPolicyDenied
		}
	}

	requestID := uuid.New().String()
	now := time.Now()
	incoming := models.FriendRequest{
		RequestID: requestID,
		OwnerID:   toID,
		PeerID:    fromID,
		Direction: models.RequestDirectionIncoming,
		Status:    models.FriendRequestStatusPending,
		CreatedAt: now,
	}
	outgoing := models.FriendRequest{
		RequestID: requestID,
		OwnerID:   fromID,
		PeerID:    toID,
		Direction: models.RequestDirectionOutgoing,
		Status:    models.FriendRequestStatusPending,
		CreatedAt: now,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&incoming).Error; err != nil {
			return err
		}
		return tx.Create(&outgoing).Error
	})
	if err != nil {
		return nil, nil, storeError(err)
	}

	return &incoming, []string{toID}, nil
}

// Respond accepts or rejects a pending request addressed to responderID.
// Both mirror copies transition together; accepting also inserts the
// symmetric friendship pair, all in one transaction.
func (s *SocialService) Respond(responderID, requestID string, accept bool) (*models.FriendRequest, []string, error) {
	var incoming models.FriendRequest
	if err := s.db.
		Where("request_id = ? AND owner_id = ? AND direction = ? AND status = ?",
			requestID, responderID, models.RequestDirectionIncoming, models.FriendRequestStatusPending).
		First(&incoming).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, notFound("friend request")
		}
		return nil, nil, storeError(err)
	}

	status := models.FriendRequestStatusRejected
	if accept {
		status = models.FriendRequestStatusAccepted
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.FriendRequest{}).
			Where("request_id = ?", requestID).
			Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if !accept {
			return nil
		}

		now := time.Now()
		// Insert-if-absent keeps an interrupted accept safe to retry.
		for _, pair := range [][2]string{{responderID, incoming.PeerID}, {incoming.PeerID, responderID}} {
			friend := models.Friend{UserID: pair[0], PeerID: pair[1], AddedAt: now}
			if err := tx.Where("user_id = ? AND peer_id = ?", pair[0], pair[1]).
				FirstOrCreate(&friend).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, storeError(err)
	}

	incoming.Status = status
	if accept {
		return &incoming, []string{incoming.PeerID}, nil
	}
	return &incoming, nil, nil
}

// RemoveFriend deletes both directions of a friendship. Removing an absent
// friendship is a no-op.
func (s *SocialService) RemoveFriend(userID, peerID string) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		return tx.
			Where("(user_id = ? AND peer_id = ?) OR (user_id = ? AND peer_id = ?)",
				userID, peerID, peerID, userID).
			Delete(&models.Friend{}).Error
	})
	if err != nil {
		return storeError(err)
	}
	return nil
}

// Block records a one-sided block and, as a side effect, terminates any
// friendship and cancels any pending request between the two users. The
// blocked party receives no notification; surfacing the block would leak
// the very information blocking is meant to hide.
func (s *SocialService) Block(userID, blockedID string) error {
	if userID == blockedID {
		return ErrSelfReference
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		block := models.UserBlock{UserID: userID, BlockedID: blockedID}
		if err := tx.Where("user_id = ? AND blocked_id = ?", userID, blockedID).
			FirstOrCreate(&block).Error; err != nil {
			return err
		}

		if err := tx.
			Where("(user_id = ? AND peer_id = ?) OR (user_id = ? AND peer_id = ?)",
				userID, blockedID, blockedID, userID).
			Delete(&models.Friend{}).Error; err != nil {
			return err
		}

		return tx.Model(&models.FriendRequest{}).
			Where("((owner_id = ? AND peer_id = ?) OR (owner_id = ? AND peer_id = ?)) AND status = ?",
				userID, blockedID, blockedID, userID, models.FriendRequestStatusPending).
			Update("status", models.FriendRequestStatusRejected).Error
	})
	if err != nil {
		return storeError(err)
	}
	return nil
}

// Unblock removes the block entry only. It never restores a friendship
// the block tore down.
func (s *SocialService) Unblock(userID, blockedID string) error {
	res := s.db.Where("user_id = ? AND blocked_id = ?", userID, blockedID).
		Delete(&models.UserBlock{})
	if res.Error != nil {
		return storeError(res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("block")
	}
	return nil
}

// SetFriendNickname sets the caller's private nickname for a friend.
func (s *SocialService) SetFriendNickname(userID, peerID, nickname string) error {
	res := s.db.Model(&models.Friend{}).
		Where("user_id = ? AND peer_id = ?", userID, peerID).
		Update("nickname", nickname)
	if res.Error != nil {
		return storeError(res.Error)
	}
	if res.RowsAffected == 0 {
		return notFound("friend")
	}
	return nil
}

func (s *SocialService) GetFriends(userID string, page, limit int) ([]models.Friend, error) {
	offset := (page - 1) * limit
	var friends []models.Friend
	if err := s.db.Preload("Peer").
		Where("user_id = ?", userID).
		Order("added_at ASC").
		Offset(offset).Limit(limit).
		Find(&friends).Error; err != nil {
		return nil, storeError(err)
	}
	return friends, nil
}

func (s *SocialService) GetPendingRequests(userID string, page, limit int) ([]models.FriendRequest, error) {
	return s.requestsFor(userID, models.RequestDirectionIncoming, page, limit)
}

func (s *SocialService) GetSentRequests(userID string, page, limit int) ([]models.FriendRequest, error) {
	return s.requestsFor(userID, models.RequestDirectionOutgoing, page, limit)
}

func (s *SocialService) requestsFor(userID string, dir models.RequestDirection, page, limit int) ([]models.FriendRequest, error) {
	offset := (page - 1) * limit
	var requests []models.FriendRequest
	if err := s.db.Preload("Peer").
		Where("owner_id = ? AND direction = ? AND status = ?", userID, dir, models.FriendRequestStatusPending).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&requests).Error; err != nil {
		return nil, storeError(err)
	}
	return requests, nil
}

func (s *SocialService) GetBlockedUsers(userID string) ([]models.UserBlock, error) {
	var blocks []models.UserBlock
	if err := s.db.Preload("Blocked").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&blocks).Error; err != nil {
		return nil, storeError(err)
	}
	return blocks, nil
}

// GetFriendshipStatus summarizes the pairwise state the caller has with
// another user.
func (s *SocialService) GetFriendshipStatus(userID, targetID string) (*models.FriendshipStatus, error) {
	status := &models.FriendshipStatus{}
	if userID == targetID {
		return status, nil
	}

	friends, err := s.AreFriends(userID, targetID)
	if err != nil {
		return nil, err
	}
	status.IsFriend = friends

	blocked, err := s.blockExists(userID, targetID)
	if err != nil {
		return nil, err
	}
	status.IsBlocked = blocked

	var sent models.FriendRequest
	if err := s.db.
		Where("owner_id = ? AND peer_id = ? AND direction = ? AND status = ?",
			userID, targetID, models.RequestDirectionOutgoing, models.FriendRequestStatusPending).
		First(&sent).Error; err == nil {
		status.HasPendingSent = true
		status.SentRequestID = sent.RequestID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeError(err)
	}

	var received models.FriendRequest
	if err := s.db.
		Where("owner_id = ? AND peer_id = ? AND direction = ? AND status = ?",
			userID, targetID, models.RequestDirectionIncoming, models.FriendRequestStatusPending).
		First(&received).Error; err == nil {
		status.HasPendingReceived = true
		status.ReceivedRequestID = received.RequestID
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storeError(err)
	}

	return status, nil
}

// AreFriends checks one direction of the pair; the engine maintains the
// symmetry invariant so one row implies the other.
func (s *SocialService) AreFriends(userID, peerID string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.Friend{}).
		Where("user_id = ? AND peer_id = ?", userID, peerID).
		Count(&count).Error; err != nil {
		return false, storeError(err)
	}
	return count > 0, nil
}

// IsBlockedBy reports whether ownerID has blocked otherID.
func (s *SocialService) IsBlockedBy(ownerID, otherID string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.UserBlock{}).
		Where("user_id = ? AND blocked_id = ?", ownerID, otherID).
		Count(&count).Error; err != nil {
		return false, storeError(err)
	}
	return count > 0, nil
}

// MutualFriendCount computes the intersection of two friend lists with a
// self-join instead of loading either list.
func (s *SocialService) MutualFriendCount(userID, peerID string) (int64, error) {
	var count int64
	if err := s.db.Table("friends AS f1").
		Joins("JOIN friends f2 ON f1.peer_id = f2.peer_id").
		Where("f1.user_id = ? AND f2.user_id = ?", userID, peerID).
		Count(&count).Error; err != nil {
		return 0, storeError(err)
	}
	return count, nil
}

func (s *SocialService) blockExists(a, b string) (bool, error) {
	var count int64
	if err := s.db.Model(&models.UserBlock{}).
		Where("(user_id = ? AND blocked_id = ?) OR (user_id = ? AND blocked_id = ?)", a, b, b, a).
		Count(&count).Error; err != nil {
		return false, storeError(err)
	}
	return count > 0, nil
}
