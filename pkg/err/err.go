package errprocess

import (
	"errors"
	"fmt"

	"realtime_chat_service/pkg/logger"
)

// Kind 錯誤分類，邊界層依此轉換成 HTTP status 或 websocket error
type Kind string

const (
	// KindNotFound user/room/message missing
	KindNotFound Kind = "not_found"
	// KindForbidden not a member/admin, blocked, self-action disallowed
	KindForbidden Kind = "forbidden"
	// KindConflict duplicate request, already friends, already member
	KindConflict Kind = "conflict"
	// KindInvalid missing field or malformed payload
	KindInvalid Kind = "invalid"
	// KindUnauthorized bad credentials or token
	KindUnauthorized Kind = "unauthorized"
	// KindInternal storage or infrastructure failure
	KindInternal Kind = "internal"
)

// AppError 業務錯誤
type AppError struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

// Error implements error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap supports errors.Unwrap
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches another AppError by code
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// Wrap 保留錯誤碼並附上底層錯誤
func (e *AppError) Wrap(err error) *AppError {
	return &AppError{Kind: e.Kind, Code: e.Code, Message: e.Message, Err: err}
}

// New create AppError
func New(kind Kind, code, message string) *AppError {
	return &AppError{Kind: kind, Code: code, Message: message}
}

// Internal wraps an infrastructure error
func Internal(msg string, err error) *AppError {
	return &AppError{Kind: KindInternal, Code: "internal_error", Message: msg, Err: err}
}

// KindOf returns the kind of err, KindInternal for foreign errors
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the caller-facing message of err
func MessageOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Kind != KindInternal {
		return appErr.Message
	}
	return "internal server error"
}

// Set set err info
func Set(errMsg string) error {
	logger.Log.Error(errMsg)
	return Internal(errMsg, nil)
}

// 預定義錯誤
var (
	ErrUserNotFound          = New(KindNotFound, "user_not_found", "user not found")
	ErrRoomNotFound          = New(KindNotFound, "room_not_found", "room not found")
	ErrMessageNotFound       = New(KindNotFound, "message_not_found", "message not found")
	ErrFriendRequestNotFound = New(KindNotFound, "friend_request_not_found", "friend request not found")
	ErrAttachmentNotFound    = New(KindNotFound, "attachment_not_found", "attachment not found")
	ErrMemberNotInRoom       = New(KindNotFound, "member_not_in_room", "user is not a member of this room")

	ErrCannotAddSelf     = New(KindForbidden, "cannot_add_self", "cannot perform this action on yourself")
	ErrNotRecipient      = New(KindForbidden, "not_recipient", "only the recipient can respond to this request")
	ErrNotFriends        = New(KindForbidden, "not_friends", "you can only chat with friends")
	ErrBlocked           = New(KindForbidden, "blocked", "cannot interact with this user")
	ErrNotMember         = New(KindForbidden, "not_member", "you are not a member of this room")
	ErrNotAdmin          = New(KindForbidden, "not_admin", "only the room admin can do this")
	ErrAdminCannotLeave  = New(KindForbidden, "admin_cannot_leave", "admin cannot leave while other members remain, transfer admin first")
	ErrDirectRoom        = New(KindForbidden, "direct_room", "operation not allowed on a direct room")
	ErrPrivateRoom       = New(KindForbidden, "private_room", "this room is private")
	ErrNotSender         = New(KindForbidden, "not_sender", "only the sender can modify this message")
	ErrAlreadyFriends    = New(KindConflict, "already_friends", "already friends")
	ErrRequestPending    = New(KindConflict, "request_pending", "friend request already sent")
	ErrRequestProcessed  = New(KindConflict, "request_processed", "friend request already processed")
	ErrAlreadyBlocked    = New(KindConflict, "already_blocked", "user already blocked")
	ErrNotBlocked        = New(KindConflict, "not_blocked", "user is not blocked")
	ErrAlreadyMember     = New(KindConflict, "already_member", "already a member of this room")
	ErrEmailExists       = New(KindConflict, "email_exists", "email already exists")
	ErrUsernameExists    = New(KindConflict, "username_exists", "username already taken")
	ErrDuplicateDirect   = New(KindConflict, "duplicate_direct_room", "direct room already exists")
	ErrInvalidParams     = New(KindInvalid, "invalid_params", "invalid parameters")
	ErrEmptyContent      = New(KindInvalid, "empty_content", "message content is required")
	ErrInvalidReply      = New(KindInvalid, "invalid_reply", "reply target must be a message in the same room")
	ErrFileTooLarge      = New(KindInvalid, "file_too_large", "file exceeds the size limit")
	ErrFileType          = New(KindInvalid, "file_type", "file type not allowed")
	ErrWeakPassword      = New(KindInvalid, "weak_password", "password does not meet strength requirements")
	ErrInvalidCredential = New(KindUnauthorized, "invalid_credentials", "invalid email or password")
	ErrInvalidToken      = New(KindUnauthorized, "invalid_token", "invalid token")
)
