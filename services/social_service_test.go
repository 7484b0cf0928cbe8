package services

import (
	"errors"
	"testing"

	"gorm.io/gorm"

	"chatwave-api/models"
)

func assertEngineError(t *testing.T, err error, want *Error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want.Code)
	}
	var engineErr *Error
	if !errors.As(err, &engineErr) {
		t.Fatalf("expected engine error %q, got %v", want.Code, err)
	}
	if engineErr.Code != want.Code {
		t.Fatalf("expected error code %q, got %q", want.Code, engineErr.Code)
	}
}

// assertSymmetry checks the friendship invariant: the (a,b) row exists iff
// the (b,a) row does.
func assertSymmetry(t *testing.T, db *gorm.DB, aID, bID string) {
	t.Helper()
	var ab, ba int64
	db.Model(&models.Friend{}).Where("user_id = ? AND peer_id = ?", aID, bID).Count(&ab)
	db.Model(&models.Friend{}).Where("user_id = ? AND peer_id = ?", bID, aID).Count(&ba)
	if ab != ba {
		t.Fatalf("friendship asymmetric: (a,b)=%d rows, (b,a)=%d rows", ab, ba)
	}
}

func TestSendRequestCreatesMirrorPair(t *testing.T) {
	db := newTestDB(t)
	social := NewSocialService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")

	request, notify, err := social.SendRequest(a.ID, b.ID)
	if err != nil {
		t.Fatalf("SendRequest failed: %v", err)
	}
	if len(notify) != 1 || notify[0] != b.ID {
		t.Fatalf("expected notify target [%s], got %v", b.ID, notify)
	}

	var copies []models.FriendRequest
	if err := db.Where("request_id = ?", request.RequestID).Find(&copies).Error; err != nil {
		t.Fatalf("failed to load mirror copies: %v", err)
	}
	if len(copies) != 2 {
		t.Fatalf("expected 2 mirror copies, got %d", len(copies))
	}

	byOwner := map[string]models.FriendRequest{}
	for _, copy := range copies {
		byOwner[copy.OwnerID] = copy
	}
	incoming, ok := byOwner[b.ID]
	if !ok || incoming.Direction != models.RequestDirectionIncoming || incoming.PeerID != a.ID {
		t.Fatalf("target's incoming copy wrong: %+v", incoming)
	}
	outgoing, ok := byOwner[a.ID]
	if !ok || outgoing.Direction != models.RequestDirectionOutgoing || outgoing.PeerID != b.ID {
		t.Fatalf("sender's outgoing copy wrong: %+v", outgoing)
	}
	if incoming.Status != models.FriendRequestStatusPending || outgoing.Status != models.FriendRequestStatusPending {
		t.Fatalf("mirror copies not both pending")
	}
}

func TestSendRequestRejectsSelf(t *testing.T) {
	db := newTestDB(t)
	social := NewSocialService(db)
	a := createUser(t, db, "alice")

	_, _, err := social.SendRequest(a.ID, a.ID)
	assertEngineError(t, err, ErrSelfReference)
}

func TestSendRequestDuplicateAndReciprocal(t *testing.T) {
	db := newTestDB(t)
	social := NewSocialService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")

	if _, _, err := social.SendRequest(a.ID, b.ID); err != nil {
		t.Fatalf("SendRequest failed: %v", err)
	}

	_, _, err := social.SendRequest(a.ID, b.ID)
	assertEngineError(t, err, ErrDuplicateRequest)

	// The reverse direction is a distinct condition: bob should accept
	// alice's request, not send his own.
	_, _, err = social.SendRequest(b.ID, a.ID)
	assertEngineError(t, err, ErrReciprocalPending)
}

func TestAcceptCreatesSymmetricFriendship(t *testing.T) {
	db := newTestDB(t)
	social := NewSocialService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")

	request, _, err := social.SendRequest(a.ID, b.ID)
	if err != nil {
		t.Fatalf("SendRequest failed: %v", err)
	}

	accepted, notify, err := social.Respond(b.ID, request.RequestID, true)
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if accepted.Status != models.FriendRequestStatusAccepted {
		t.Fatalf("expected accepted status, got %s", accepted.Status)
	}
	if len(notify) != 1 || notify[0] != a.ID {
		t.Fatalf("expected accept to notify the sender, got %v", notify)
	}

	assertSymmetry(t, db, a.ID, b.ID)
	friends, err := social.AreFriends(a.ID, b.ID)
	if err != nil || !friends {
		t.Fatalf("expected users to be friends, got friends=%v err=%v", friends, err)
	}

	// Both mirror copies transitioned together.
	var pending int64
	db.Model(&models.FriendRequest{}).
		Where("request_id = ? AND status = ?", request.RequestID, models.FriendRequestStatusPending).
		Count(&pending)
	if pending != 0 {
		t.Fatalf("expected no pending copies after accept, found %d", pending)
	}

	// A new request between friends must fail.
	_, _, err = social.SendRequest(a.ID, b.ID)
	assertEngineError(t, err, ErrAlreadyFriends)
}

func TestRejectLeavesNoFriendship(t *testing.T) {
	db := newTestDB(t)
	social := NewSocialService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")

	request, _, err := social.SendRequest(a.ID, b.ID)
	if err != nil {
		t.Fatalf("SendRequest failed: %v", err)
	}

	rejected, notify, err := social.Respond(b.ID, request.RequestID, false)
	if err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	if rejected.Status != models.FriendRequestStatusRejected {
		t.Fatalf("expected rejected status, got %s", rejected.Status)
	}
	if len(notify) != 0 {
		t.Fatalf("reject should notify nobody, got %v", notify)
	}

	friends, _ := social.AreFriends(a.ID, b.ID)
	if friends {
		t.Fatal("reject must not create a friendship")
	}

	var resolved int64
	db.Model(&models.FriendRequest{}).
		Where("request_id = ? AND status = ?", request.RequestID, models.FriendRequestStatusRejected).
		Count(&resolved)
	if resolved != 2 {
		t.Fatalf("expected both mirror copies rejected, got %d", resolved)
	}
}

func TestRespondWrongUserOrResolved(t *testing.T) {
	db := newTestDB(t)
	social := NewSocialService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")
	c := createUser(t, db, "carol")

	request, _, err := social.SendRequest(a.ID, b.ID)
	if err != nil {
		t.Fatalf("SendRequest failed: %v", err)
	}

	// Only the target can respond.
	if _, _, err := social.Respond(c.ID, request.RequestID, true); !IsNotFound(err) {
		t.Fatalf("expected NotFound for wrong responder, got %v", err)
	}
	if _, _, err := social.Respond(a.ID, request.RequestID, true); !IsNotFound(err) {
		t.Fatalf("expected NotFound for sender responding, got %v", err)
	}

	if _, _, err := social.Respond(b.ID, request.RequestID, true); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	// Already resolved.
	if _, _, err := social.Respond(b.ID, request.RequestID, true); !IsNotFound(err) {
		t.Fatalf("expected NotFound for resolved request, got %v", err)
	}
}

func TestRemoveFriendIsSymmetricAndIdempotent(t *testing.T) {
	db := newTestDB(t)
	social := NewSocialService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")
	makeFriends(t, db, social, a, b)

	if err := social.RemoveFriend(a.ID, b.ID); err != nil {
		t.Fatalf("RemoveFriend failed: %v", err)
	}
	assertSymmetry(t, db, a.ID, b.ID)
	friends, _ := social.AreFriends(b.ID, a.ID)
	if friends {
		t.Fatal("friendship should be gone on both sides")
	}

	// Removing again is a no-op.
	if err := social.RemoveFriend(a.ID, b.ID); err != nil {
		t.Fatalf("second RemoveFriend should be a no-op, got %v", err)
	}
}

func TestBlockTerminatesFriendshipAndRequests(t *testing.T) {
	db := newTestDB(t)
	social := NewSocialService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")
	makeFriends(t, db, social, a, b)

	if err := social.Block(a.ID, b.ID); err != nil {
		t.Fatalf("Block failed: %v", err)
	}

	friends, _ := social.AreFriends(a.ID, b.ID)
	if friends {
		t.Fatal("block must terminate the friendship")
	}
	assertSymmetry(t, db, a.ID, b.ID)

	// Neither side can open a new request while the block stands.
	_, _, err := social.SendRequest(b.ID, a.ID)
	assertEngineError(t, err, ErrBlocked)
	_, _, err = social.SendRequest(a.ID, b.ID)
	assertEngineError(t, err, ErrBlocked)
}

func TestUnblockDoesNotRestoreFriendship(t *testing.T) {
	db := newTestDB(t)
	social := NewSocialService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")
	makeFriends(t, db, social, a, b)

	if err := social.Block(a.ID, b.ID); err != nil {
		t.Fatalf("Block failed: %v", err)
	}
	if err := social.Unblock(a.ID, b.ID); err != nil {
		t.Fatalf("Unblock failed: %v", err)
	}

	friends, _ := social.AreFriends(a.ID, b.ID)
	if friends {
		t.Fatal("unblock must not restore the friendship")
	}

	// Unblocking twice reports the missing entry.
	if err := social.Unblock(a.ID, b.ID); !IsNotFound(err) {
		t.Fatalf("expected NotFound on second unblock, got %v", err)
	}
}

func TestRequestPolicyNobody(t *testing.T) {
	db := newTestDB(t)
	social := NewSocialService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")

	db.Model(b).Update("friend_request_policy", models.FriendRequestPolicyNobody)

	_, _, err := social.SendRequest(a.ID, b.ID)
	assertEngineError(t, err, ErrPolicyDenied)
}

func TestRequestPolicyFriendsOfFriends(t *testing.T) {
	db := newTestDB(t)
	social := NewSocialService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")
	mutual := createUser(t, db, "carol")

	db.Model(b).Update("friend_request_policy", models.FriendRequestPolicyFriendsOfFriends)

	// No shared friend yet.
	_, _, err := social.SendRequest(a.ID, b.ID)
	assertEngineError(t, err, ErrPolicyDenied)

	makeFriends(t, db, social, a, mutual)
	makeFriends(t, db, social, b, mutual)

	if _, _, err := social.SendRequest(a.ID, b.ID); err != nil {
		t.Fatalf("expected request to pass with a mutual friend, got %v", err)
	}
}

func TestFriendshipStatus(t *testing.T) {
	db := newTestDB(t)
	social := NewSocialService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")

	request, _, err := social.SendRequest(a.ID, b.ID)
	if err != nil {
		t.Fatalf("SendRequest failed: %v", err)
	}

	status, err := social.GetFriendshipStatus(a.ID, b.ID)
	if err != nil {
		t.Fatalf("GetFriendshipStatus failed: %v", err)
	}
	if !status.HasPendingSent || status.SentRequestID != request.RequestID {
		t.Fatalf("expected pending sent request, got %+v", status)
	}

	status, err = social.GetFriendshipStatus(b.ID, a.ID)
	if err != nil {
		t.Fatalf("GetFriendshipStatus failed: %v", err)
	}
	if !status.HasPendingReceived || status.ReceivedRequestID != request.RequestID {
		t.Fatalf("expected pending received request, got %+v", status)
	}

	if _, _, err := social.Respond(b.ID, request.RequestID, true); err != nil {
		t.Fatalf("Respond failed: %v", err)
	}
	status, _ = social.GetFriendshipStatus(a.ID, b.ID)
	if !status.IsFriend || status.HasPendingSent {
		t.Fatalf("expected plain friendship after accept, got %+v", status)
	}
}

func TestSetFriendNicknameIsOneSided(t *testing.T) {
	db := newTestDB(t)
	social := NewSocialService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")
	makeFriends(t, db, social, a, b)

	if err := social.SetFriendNickname(a.ID, b.ID, "bobby"); err != nil {
		t.Fatalf("SetFriendNickname failed: %v", err)
	}

	var mine, theirs models.Friend
	db.Where("user_id = ? AND peer_id = ?", a.ID, b.ID).First(&mine)
	db.Where("user_id = ? AND peer_id = ?", b.ID, a.ID).First(&theirs)
	if mine.Nickname != "bobby" {
		t.Fatalf("expected nickname on caller's row, got %q", mine.Nickname)
	}
	if theirs.Nickname != "" {
		t.Fatalf("nickname must not leak to the peer's row, got %q", theirs.Nickname)
	}
}
