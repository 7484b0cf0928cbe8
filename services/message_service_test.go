package services

import (
	"testing"

	"gorm.io/gorm"

	"chatwave-api/models"
	"chatwave-api/repositories"
)

func newMessageService(db *gorm.DB) *MessageService {
	return NewMessageService(db, repositories.NewMessageRepository(db))
}

func directConv(userID string) models.Conversation {
	return models.Conversation{Type: models.ReceiverTypeUser, ID: userID}
}

func groupConv(groupID string) models.Conversation {
	return models.Conversation{Type: models.ReceiverTypeGroup, ID: groupID}
}

func TestSendDirectMessage(t *testing.T) {
	db := newTestDB(t)
	messages := newMessageService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")

	message, notify, err := messages.Send(a.ID, directConv(b.ID), MessageContent{Text: "hello"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if message.SenderID != a.ID || message.ReceiverID != b.ID || message.ReceiverType != models.ReceiverTypeUser {
		t.Fatalf("message fields wrong: %+v", message)
	}
	if message.Seen {
		t.Fatal("new direct message must start unseen")
	}
	if len(notify) != 1 || notify[0] != b.ID {
		t.Fatalf("expected notify [%s], got %v", b.ID, notify)
	}
}

func TestSendDirectValidations(t *testing.T) {
	db := newTestDB(t)
	messages := newMessageService(db)
	social := NewSocialService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")

	if _, _, err := messages.Send(a.ID, directConv(a.ID), MessageContent{Text: "hi"}); err == nil {
		t.Fatal("expected self-send to fail")
	}
	if _, _, err := messages.Send(a.ID, directConv("missing"), MessageContent{Text: "hi"}); !IsNotFound(err) {
		t.Fatalf("expected NotFound for unknown recipient, got %v", err)
	}

	_, _, err := messages.Send(a.ID, directConv(b.ID), MessageContent{})
	assertEngineError(t, err, ErrEmptyMessage)

	// Media-only messages are fine.
	if _, _, err := messages.Send(a.ID, directConv(b.ID), MessageContent{Media: []string{"cat.png"}}); err != nil {
		t.Fatalf("media-only send failed: %v", err)
	}

	if err := social.Block(b.ID, a.ID); err != nil {
		t.Fatalf("Block failed: %v", err)
	}
	_, _, err = messages.Send(a.ID, directConv(b.ID), MessageContent{Text: "hi"})
	assertEngineError(t, err, ErrBlockedByRecipient)
}

func TestSendGroupMessageSeedsSenderSeen(t *testing.T) {
	db := newTestDB(t)
	messages := newMessageService(db)
	groups := NewGroupService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")
	c := createUser(t, db, "carol")
	outsider := createUser(t, db, "dave")

	group, _, err := groups.Create("riders", a.ID, []string{b.ID, c.ID})
	if err != nil {
		t.Fatalf("Create group failed: %v", err)
	}

	message, notify, err := messages.Send(a.ID, groupConv(group.ID), MessageContent{Text: "ride at 9"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(notify) != 2 || contains(notify, a.ID) {
		t.Fatalf("expected the other two members notified, got %v", notify)
	}

	var seen int64
	db.Model(&models.MessageSeen{}).
		Where("message_id = ? AND user_id = ?", message.ID, a.ID).
		Count(&seen)
	if seen != 1 {
		t.Fatal("sender's own seen entry missing")
	}

	_, _, err = messages.Send(outsider.ID, groupConv(group.ID), MessageContent{Text: "let me in"})
	assertEngineError(t, err, ErrNotAMember)
}

func TestReplyTargetMustShareConversation(t *testing.T) {
	db := newTestDB(t)
	messages := newMessageService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")
	c := createUser(t, db, "carol")

	original, _, err := messages.Send(a.ID, directConv(b.ID), MessageContent{Text: "first"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// Replying from the other side of the same thread works.
	if _, _, err := messages.Send(b.ID, directConv(a.ID), MessageContent{Text: "second", ReplyToID: &original.ID}); err != nil {
		t.Fatalf("reply in same thread failed: %v", err)
	}

	// A third party's conversation cannot anchor on it.
	_, _, err = messages.Send(a.ID, directConv(c.ID), MessageContent{Text: "leak", ReplyToID: &original.ID})
	assertEngineError(t, err, ErrInvalidReply)

	missing := "no-such-message"
	_, _, err = messages.Send(a.ID, directConv(b.ID), MessageContent{Text: "x", ReplyToID: &missing})
	assertEngineError(t, err, ErrInvalidReply)

	// A soft-deleted target is still a valid anchor.
	if _, _, err := messages.SoftDelete(original.ID, a.ID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	if _, _, err := messages.Send(b.ID, directConv(a.ID), MessageContent{Text: "third", ReplyToID: &original.ID}); err != nil {
		t.Fatalf("reply to deleted message should work: %v", err)
	}
}

func TestMarkSeenDirect(t *testing.T) {
	db := newTestDB(t)
	messages := newMessageService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")
	c := createUser(t, db, "carol")

	message, _, err := messages.Send(a.ID, directConv(b.ID), MessageContent{Text: "hello"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// Only the receiver may mark it.
	_, _, err = messages.MarkSeen(message.ID, c.ID)
	assertEngineError(t, err, ErrForbidden)

	marked, notify, err := messages.MarkSeen(message.ID, b.ID)
	if err != nil {
		t.Fatalf("MarkSeen failed: %v", err)
	}
	if !marked.Seen {
		t.Fatal("message should be seen")
	}
	if len(notify) != 1 || notify[0] != a.ID {
		t.Fatalf("expected the sender notified, got %v", notify)
	}

	// Idempotent.
	if _, _, err := messages.MarkSeen(message.ID, b.ID); err != nil {
		t.Fatalf("second MarkSeen should be a no-op, got %v", err)
	}
}

func TestMarkConversationSeen(t *testing.T) {
	db := newTestDB(t)
	messages := newMessageService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")

	for i := 0; i < 3; i++ {
		if _, _, err := messages.Send(a.ID, directConv(b.ID), MessageContent{Text: "hi"}); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	count, err := messages.UnseenCount(directConv(a.ID), b.ID)
	if err != nil || count != 3 {
		t.Fatalf("expected 3 unseen, got %d err=%v", count, err)
	}

	marked, notify, err := messages.MarkConversationSeen(directConv(a.ID), b.ID)
	if err != nil {
		t.Fatalf("MarkConversationSeen failed: %v", err)
	}
	if marked != 3 {
		t.Fatalf("expected 3 marked, got %d", marked)
	}
	if len(notify) != 1 || notify[0] != a.ID {
		t.Fatalf("expected the peer notified, got %v", notify)
	}

	count, _ = messages.UnseenCount(directConv(a.ID), b.ID)
	if count != 0 {
		t.Fatalf("expected 0 unseen after marking, got %d", count)
	}

	// Nothing left to mark.
	marked, _, err = messages.MarkConversationSeen(directConv(a.ID), b.ID)
	if err != nil || marked != 0 {
		t.Fatalf("expected no-op, got marked=%d err=%v", marked, err)
	}
}

func TestReactReplacesPreviousReaction(t *testing.T) {
	db := newTestDB(t)
	messages := newMessageService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")
	c := createUser(t, db, "carol")

	message, _, err := messages.Send(a.ID, directConv(b.ID), MessageContent{Text: "hello"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if _, _, err := messages.React(message.ID, b.ID, "👍"); err != nil {
		t.Fatalf("React failed: %v", err)
	}
	if _, _, err := messages.React(message.ID, b.ID, "❤️"); err != nil {
		t.Fatalf("second React failed: %v", err)
	}

	var reactions []models.Reaction
	db.Where("message_id = ? AND user_id = ?", message.ID, b.ID).Find(&reactions)
	if len(reactions) != 1 || reactions[0].Emoji != "❤️" {
		t.Fatalf("expected one reaction with the latest emoji, got %+v", reactions)
	}

	// A stranger to the conversation cannot react.
	_, _, err = messages.React(message.ID, c.ID, "👍")
	assertEngineError(t, err, ErrForbidden)

	if _, _, err := messages.Unreact(message.ID, b.ID); err != nil {
		t.Fatalf("Unreact failed: %v", err)
	}
	if _, _, err := messages.Unreact(message.ID, b.ID); !IsNotFound(err) {
		t.Fatalf("expected NotFound for absent reaction, got %v", err)
	}
}

func TestEditRestrictions(t *testing.T) {
	db := newTestDB(t)
	messages := newMessageService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")

	message, _, err := messages.Send(a.ID, directConv(b.ID), MessageContent{Text: "helo"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// Only the sender may edit.
	_, _, err = messages.Edit(message.ID, b.ID, "hijacked")
	assertEngineError(t, err, ErrNotEditable)

	_, _, err = messages.Edit(message.ID, a.ID, "")
	assertEngineError(t, err, ErrEmptyMessage)

	edited, notify, err := messages.Edit(message.ID, a.ID, "hello")
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	if edited.Text != "hello" || !edited.IsEdited || edited.EditedAt == nil {
		t.Fatalf("edit not recorded: %+v", edited)
	}
	if len(notify) != 1 || notify[0] != b.ID {
		t.Fatalf("expected the recipient notified, got %v", notify)
	}

	// Media messages cannot be edited.
	withMedia, _, err := messages.Send(a.ID, directConv(b.ID), MessageContent{Text: "pic", Media: []string{"cat.png"}})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	_, _, err = messages.Edit(withMedia.ID, a.ID, "changed")
	assertEngineError(t, err, ErrNotEditable)
}

func TestSoftDeleteHidesButKeepsRow(t *testing.T) {
	db := newTestDB(t)
	messages := newMessageService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")

	message, _, err := messages.Send(a.ID, directConv(b.ID), MessageContent{Text: "oops"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	_, _, err = messages.SoftDelete(message.ID, b.ID)
	assertEngineError(t, err, ErrForbidden)

	if _, _, err := messages.SoftDelete(message.ID, a.ID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	// Hidden from reads.
	listed, _, _, err := messages.ListMessages(directConv(a.ID), b.ID, 1, 50)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	for _, m := range listed {
		if m.ID == message.ID {
			t.Fatal("deleted message leaked into the listing")
		}
	}

	// Hidden from mutation.
	_, _, err = messages.Edit(message.ID, a.ID, "resurrect")
	if !IsNotFound(err) {
		t.Fatalf("expected NotFound editing a deleted message, got %v", err)
	}

	// Still resolvable by ID as a tombstone, for participants.
	tombstone, err := messages.GetMessage(message.ID, b.ID)
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if !tombstone.IsDeleted {
		t.Fatal("tombstone should carry the deleted flag")
	}
}

func TestGetMessageRequiresParticipation(t *testing.T) {
	db := newTestDB(t)
	messages := newMessageService(db)
	groups := NewGroupService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")
	eve := createUser(t, db, "eve")

	direct, _, err := messages.Send(a.ID, directConv(b.ID), MessageContent{Text: "between us"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// Both participants can fetch it.
	if _, err := messages.GetMessage(direct.ID, a.ID); err != nil {
		t.Fatalf("sender fetch failed: %v", err)
	}
	if _, err := messages.GetMessage(direct.ID, b.ID); err != nil {
		t.Fatalf("receiver fetch failed: %v", err)
	}

	// An outsider cannot, even knowing the ID.
	_, err = messages.GetMessage(direct.ID, eve.ID)
	assertEngineError(t, err, ErrForbidden)

	// Same for tombstones.
	if _, _, err := messages.SoftDelete(direct.ID, a.ID); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	_, err = messages.GetMessage(direct.ID, eve.ID)
	assertEngineError(t, err, ErrForbidden)

	// Group messages are gated on membership.
	group, _, err := groups.Create("pair", a.ID, []string{b.ID})
	if err != nil {
		t.Fatalf("Create group failed: %v", err)
	}
	inGroup, _, err := messages.Send(a.ID, groupConv(group.ID), MessageContent{Text: "members only"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if _, err := messages.GetMessage(inGroup.ID, b.ID); err != nil {
		t.Fatalf("member fetch failed: %v", err)
	}
	_, err = messages.GetMessage(inGroup.ID, eve.ID)
	assertEngineError(t, err, ErrForbidden)
}

func TestSendToDeactivatedUserFails(t *testing.T) {
	db := newTestDB(t)
	messages := newMessageService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")

	b.Tombstone()
	if err := db.Save(b).Error; err != nil {
		t.Fatalf("failed to deactivate user: %v", err)
	}

	if _, _, err := messages.Send(a.ID, directConv(b.ID), MessageContent{Text: "hello?"}); !IsNotFound(err) {
		t.Fatalf("expected NotFound sending to a deactivated account, got %v", err)
	}

	// Forward targets resolve the same way.
	c := createUser(t, db, "carol")
	original, _, err := messages.Send(a.ID, directConv(c.ID), MessageContent{Text: "share"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	created, _, err := messages.Forward(original.ID, a.ID, []models.Conversation{directConv(b.ID)})
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if len(created) != 0 {
		t.Fatalf("expected the deactivated target skipped, got %d copies", len(created))
	}
}

func TestForwardSkipsInvalidTargets(t *testing.T) {
	db := newTestDB(t)
	messages := newMessageService(db)
	social := NewSocialService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")
	c := createUser(t, db, "carol")
	d := createUser(t, db, "dave")

	original, _, err := messages.Send(a.ID, directConv(b.ID), MessageContent{Text: "worth sharing"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// Carol blocks alice; forwarding to her silently skips.
	if err := social.Block(c.ID, a.ID); err != nil {
		t.Fatalf("Block failed: %v", err)
	}

	targets := []models.Conversation{
		directConv(c.ID),      // blocked, skipped
		directConv("missing"), // unknown, skipped
		directConv(d.ID),      // delivered
	}
	created, notify, err := messages.Forward(original.ID, a.ID, targets)
	if err != nil {
		t.Fatalf("Forward failed: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected 1 delivered copy, got %d", len(created))
	}
	copyMsg := created[0]
	if copyMsg.ForwardedFromID == nil || *copyMsg.ForwardedFromID != original.ID {
		t.Fatalf("forwarded copy missing provenance: %+v", copyMsg)
	}
	if copyMsg.Text != original.Text {
		t.Fatalf("forwarded copy text mismatch: %q", copyMsg.Text)
	}
	if len(notify) != 1 || notify[0] != d.ID {
		t.Fatalf("expected notify [%s], got %v", d.ID, notify)
	}

	// Forwarded copies can never be edited.
	_, _, err = messages.Edit(copyMsg.ID, a.ID, "rewrite history")
	assertEngineError(t, err, ErrNotEditable)

	// Non-participants cannot forward.
	_, _, err = messages.Forward(original.ID, d.ID, []models.Conversation{directConv(a.ID)})
	assertEngineError(t, err, ErrForbidden)
}

func TestListMessagesMarksSeen(t *testing.T) {
	db := newTestDB(t)
	messages := newMessageService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")

	if _, _, err := messages.Send(a.ID, directConv(b.ID), MessageContent{Text: "one"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if _, _, err := messages.Send(a.ID, directConv(b.ID), MessageContent{Text: "two"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	listed, marked, notify, err := messages.ListMessages(directConv(a.ID), b.ID, 1, 50)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(listed))
	}
	if listed[0].Text != "one" || listed[1].Text != "two" {
		t.Fatalf("listing not in ascending order: %q, %q", listed[0].Text, listed[1].Text)
	}
	if marked != 2 {
		t.Fatalf("expected the fetch to mark 2 messages, got %d", marked)
	}
	if len(notify) != 1 || notify[0] != a.ID {
		t.Fatalf("expected the sender notified of the read, got %v", notify)
	}

	count, _ := messages.TotalUnseenCount(b.ID)
	if count != 0 {
		t.Fatalf("expected global unread 0 after reading, got %d", count)
	}
}

func TestListMessagesMarksOnlyFetchedPage(t *testing.T) {
	db := newTestDB(t)
	messages := newMessageService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")

	for _, text := range []string{"one", "two", "three"} {
		if _, _, err := messages.Send(a.ID, directConv(b.ID), MessageContent{Text: text}); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}

	// Page one holds the newest two; the oldest stays on a later page.
	listed, marked, _, err := messages.ListMessages(directConv(a.ID), b.ID, 1, 2)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(listed) != 2 || marked != 2 {
		t.Fatalf("expected 2 listed and 2 marked, got %d and %d", len(listed), marked)
	}

	count, err := messages.UnseenCount(directConv(a.ID), b.ID)
	if err != nil {
		t.Fatalf("UnseenCount failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("unfetched page should stay unread, got %d unseen", count)
	}
}

func TestGroupUnseenCounting(t *testing.T) {
	db := newTestDB(t)
	messages := newMessageService(db)
	groups := NewGroupService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")

	group, _, err := groups.Create("pair", a.ID, []string{b.ID})
	if err != nil {
		t.Fatalf("Create group failed: %v", err)
	}

	if _, _, err := messages.Send(a.ID, groupConv(group.ID), MessageContent{Text: "ping"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	// The sender's own message never counts against them.
	count, err := messages.UnseenCount(groupConv(group.ID), a.ID)
	if err != nil || count != 0 {
		t.Fatalf("sender unseen should be 0, got %d err=%v", count, err)
	}
	count, _ = messages.UnseenCount(groupConv(group.ID), b.ID)
	if count != 1 {
		t.Fatalf("member unseen should be 1, got %d", count)
	}

	total, _ := messages.TotalUnseenCount(b.ID)
	if total != 1 {
		t.Fatalf("global unread should include group messages, got %d", total)
	}

	if _, _, err := messages.MarkConversationSeen(groupConv(group.ID), b.ID); err != nil {
		t.Fatalf("MarkConversationSeen failed: %v", err)
	}
	count, _ = messages.UnseenCount(groupConv(group.ID), b.ID)
	if count != 0 {
		t.Fatalf("expected 0 after marking, got %d", count)
	}
}

func TestPurgeConversation(t *testing.T) {
	db := newTestDB(t)
	messages := newMessageService(db)
	groups := NewGroupService(db)
	a := createUser(t, db, "alice")
	b := createUser(t, db, "bob")

	group, _, err := groups.Create("temp", a.ID, []string{b.ID})
	if err != nil {
		t.Fatalf("Create group failed: %v", err)
	}
	message, _, err := messages.Send(a.ID, groupConv(group.ID), MessageContent{Text: "gone soon"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if _, _, err := messages.React(message.ID, b.ID, "👍"); err != nil {
		t.Fatalf("React failed: %v", err)
	}

	// Only the admin may purge a group conversation.
	_, err = messages.PurgeConversation(groupConv(group.ID), b.ID)
	assertEngineError(t, err, ErrForbidden)

	purged, err := messages.PurgeConversation(groupConv(group.ID), a.ID)
	if err != nil {
		t.Fatalf("PurgeConversation failed: %v", err)
	}
	if purged != 1 {
		t.Fatalf("expected 1 purged message, got %d", purged)
	}

	var remaining int64
	db.Model(&models.Message{}).Where("id = ?", message.ID).Count(&remaining)
	if remaining != 0 {
		t.Fatal("purge must hard-delete the rows")
	}
	db.Model(&models.Reaction{}).Where("message_id = ?", message.ID).Count(&remaining)
	if remaining != 0 {
		t.Fatal("purge must remove reactions too")
	}
}
