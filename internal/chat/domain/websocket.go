package domain

import "encoding/json"

// Action websocket request action
type Action string

const (
	// JoinRoom websocket action join_room, subscribe to a room channel
	JoinRoom Action = "join_room"
	// LeaveRoom websocket action leave_room, unsubscribe from a room channel
	LeaveRoom Action = "leave_room"

	// SendMessage websocket action send_message
	SendMessage Action = "send_message"
	// ReadMessage websocket action read_message
	ReadMessage Action = "read_message"

	// Typing websocket action typing
	Typing Action = "typing"
	// StopTyping websocket action stop_typing
	StopTyping Action = "stop_typing"

	// GetUnread websocket action get_unread
	GetUnread Action = "get_unread"
	// GetOnlineUsers websocket action get_online_users
	GetOnlineUsers Action = "get_online_users"

	// ActionError unknown action or malformed frame
	ActionError Action = "error"
)

// Event fan-out event name
type Event string

const (
	// EventMessage a new persisted message
	EventMessage Event = "message"
	// EventMessageUpdated edit or reaction change
	EventMessageUpdated Event = "messageUpdated"
	// EventMessageDeleted message removed
	EventMessageDeleted Event = "messageDeleted"
	// EventMessageRead read receipt appended
	EventMessageRead Event = "messageRead"
	// EventUserTyping transient
	EventUserTyping Event = "userTyping"
	// EventUserStopTyping transient
	EventUserStopTyping Event = "userStopTyping"
	// EventMemberRemoved member left or was removed, every node drops that user's subscriptions
	EventMemberRemoved Event = "memberRemoved"
)

// Transient typing events are not persisted and skip the originating connection
func (e Event) Transient() bool {
	return e == EventUserTyping || e == EventUserStopTyping
}

// RoomChannelPrefix pub/sub channel prefix
const RoomChannelPrefix = "chat:room:"

// RoomChannel room channel name
func RoomChannel(roomID string) string {
	return RoomChannelPrefix + roomID
}

// RoomEvent 在 bus 上傳遞的事件
type RoomEvent struct {
	RoomID  string          `json:"room_id"`
	Event   Event           `json:"event"`
	Payload json.RawMessage `json:"payload"`
	// Origin 發送端 connection id, transient 事件不送回此連線
	Origin string `json:"origin,omitempty"`
}

// TypingPayload userTyping / userStopTyping
type TypingPayload struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// MessagePayload message / messageUpdated
type MessagePayload struct {
	RoomID  string   `json:"room_id"`
	Message *Message `json:"message"`
}

// MessageDeletedPayload messageDeleted
type MessageDeletedPayload struct {
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
}

// MessageReadPayload messageRead
type MessageReadPayload struct {
	RoomID    string `json:"room_id"`
	MessageID string `json:"message_id"`
	UserID    string `json:"user_id"`
}

// MemberRemovedPayload memberRemoved
type MemberRemovedPayload struct {
	RoomID string `json:"room_id"`
	UserID string `json:"user_id"`
}

// WSRequest websocket Request
type WSRequest struct {
	Action    string      `json:"action"`
	RoomID    string      `json:"room_id"`
	MessageID string      `json:"message_id"`
	Type      MessageType `json:"type"`
	Content   string      `json:"content"`
	FileURL   string      `json:"file_url"`
	FileName  string      `json:"file_name"`
	ReplyTo   string      `json:"reply_to"`
}

// WSResponse websocket Response
type WSResponse struct {
	Action  string                 `json:"action"`
	Success bool                   `json:"success"`
	Payload map[string]interface{} `json:"payload,omitempty"`
	Error   string                 `json:"error,omitempty"`
}
