package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrorKind classifies engine errors for HTTP and gateway mapping.
type ErrorKind string

const (
	KindNotFound         ErrorKind = "not_found"
	KindForbidden        ErrorKind = "forbidden"
	KindConflict         ErrorKind = "conflict"
	KindInvalidReference ErrorKind = "invalid_reference"
	KindPartialFailure   ErrorKind = "partial_failure"
	KindStoreUnavailable ErrorKind = "store_unavailable"
)

// Error is the typed error every engine operation returns. Code is the
// specific condition (e.g. "already_friends"), Kind the coarse class the
// transport layers map to a status.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	wrapped error
}

func (e *Error) Error() string {
	if e.wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.wrapped }

func newError(kind ErrorKind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Specific engine error conditions.
var (
	ErrSelfReference      = newError(KindConflict, "self_reference", "operation cannot target yourself")
	ErrAlreadyFriends     = newError(KindConflict, "already_friends", "users are already friends")
	ErrDuplicateRequest   = newError(KindConflict, "duplicate_request", "a pending friend request already exists")
	ErrReciprocalPending  = newError(KindConflict, "reciprocal_pending", "the other user already sent you a request; accept it instead")
	ErrBlocked            = newError(KindForbidden, "blocked", "a block exists between these users")
	ErrPolicyDenied       = newError(KindForbidden, "policy_denied", "target's friend request policy denies this request")
	ErrBlockedByRecipient = newError(KindForbidden, "blocked_by_recipient", "recipient has blocked you")
	ErrNotAMember         = newError(KindForbidden, "not_a_member", "you are not a member of this group")
	ErrEmptyMessage       = newError(KindConflict, "empty_message", "message has no text or media")
	ErrInvalidReply       = newError(KindInvalidReference, "invalid_reply", "replied-to message belongs to another conversation")
	ErrNotEditable        = newError(KindForbidden, "not_editable", "message cannot be edited")
	ErrNoValidMembers     = newError(KindConflict, "no_valid_members", "no valid users to add")
	ErrAdminCannotLeave   = newError(KindForbidden, "admin_cannot_leave", "transfer admin rights before leaving the group")
	ErrAlreadyAdmin       = newError(KindConflict, "already_admin", "user is already the group admin")
	ErrForbidden          = newError(KindForbidden, "forbidden", "you are not allowed to perform this operation")
	ErrAlreadyMember      = newError(KindConflict, "already_member", "user is already a group member")
)

func notFound(entity string) *Error {
	return newError(KindNotFound, "not_found", entity+" not found")
}

// partialFailure marks a multi-document mutation that committed its first
// step but failed a later one. Callers can distinguish it from outright
// rejection and retry the remainder idempotently.
func partialFailure(message string, cause error) *Error {
	return &Error{Kind: KindPartialFailure, Code: "partial_failure", Message: message, wrapped: cause}
}

// storeError wraps any persistence failure that is not a plain missing
// record. Reads are always safe to retry; writes rely on insert-if-absent
// semantics at the call sites.
func storeError(err error) *Error {
	return &Error{Kind: KindStoreUnavailable, Code: "store_unavailable", Message: "persistent store operation failed", wrapped: err}
}

// IsNotFound reports whether err is a missing-record condition, from either
// the engine taxonomy or raw GORM.
func IsNotFound(err error) bool {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return true
	}
	var e *Error
	return errors.As(err, &e) && e.Kind == KindNotFound
}
