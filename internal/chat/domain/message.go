package domain

import (
	"io"
	"time"
)

// MessagesCollection mongo collection name
const MessagesCollection = "messages"

// MessageType message type
type MessageType string

const (
	// MessageText plain text
	MessageText MessageType = "text"
	// MessageImage image attachment
	MessageImage MessageType = "image"
	// MessageFile other attachment
	MessageFile MessageType = "file"
)

// Valid known message type
func (t MessageType) Valid() bool {
	switch t {
	case MessageText, MessageImage, MessageFile:
		return true
	}
	return false
}

// Message 一則聊天訊息, sender/room/created_at 建立後不變
type Message struct {
	ID        string        `bson:"_id" json:"id"`
	RoomID    string        `bson:"room_id" json:"room_id"`
	SenderID  string        `bson:"sender_id" json:"sender_id"`
	Type      MessageType   `bson:"type" json:"type"`
	Content   string        `bson:"content" json:"content"`
	FileURL   string        `bson:"file_url,omitempty" json:"file_url,omitempty"`
	FileName  string        `bson:"file_name,omitempty" json:"file_name,omitempty"`
	FileSize  int64         `bson:"file_size,omitempty" json:"file_size,omitempty"`
	ReplyTo   string        `bson:"reply_to,omitempty" json:"reply_to,omitempty"`
	Reactions []Reaction    `bson:"reactions" json:"reactions"`
	ReadBy    []ReadReceipt `bson:"read_by" json:"read_by"`
	IsEdited  bool          `bson:"is_edited" json:"is_edited"`
	CreatedAt time.Time     `bson:"created_at" json:"created_at"`
	EditedAt  *time.Time    `bson:"edited_at,omitempty" json:"edited_at,omitempty"`
}

// Reaction 每位使用者每則訊息一個 reaction
type Reaction struct {
	UserID string `bson:"user_id" json:"user_id"`
	Emoji  string `bson:"emoji" json:"emoji"`
}

// ReadReceipt read receipt
type ReadReceipt struct {
	UserID string    `bson:"user_id" json:"user_id"`
	ReadAt time.Time `bson:"read_at" json:"read_at"`
}

// IsReadBy userID already has a receipt
func (m *Message) IsReadBy(userID string) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// ReactionOf returns userID's emoji, "" when none
func (m *Message) ReactionOf(userID string) string {
	for _, r := range m.Reactions {
		if r.UserID == userID {
			return r.Emoji
		}
	}
	return ""
}

// Preview room.last_message 快照
func (m *Message) Preview() *MessagePreview {
	return &MessagePreview{
		ID:        m.ID,
		SenderID:  m.SenderID,
		Type:      m.Type,
		Content:   m.Content,
		FileName:  m.FileName,
		CreatedAt: m.CreatedAt,
	}
}

// MessagePreview last message pointer kept on the room
type MessagePreview struct {
	ID        string      `bson:"id" json:"id"`
	SenderID  string      `bson:"sender_id" json:"sender_id"`
	Type      MessageType `bson:"type" json:"type"`
	Content   string      `bson:"content" json:"content"`
	FileName  string      `bson:"file_name,omitempty" json:"file_name,omitempty"`
	CreatedAt time.Time   `bson:"created_at" json:"created_at"`
}

// MessageQuery findMessages 條件
type MessageQuery struct {
	RoomID string
	// Before 只取早於此時間的訊息, zero 不限制
	Before time.Time
	// Keyword case-insensitive substring on content
	Keyword string
	Limit   int64
}

// SendMessageReq send 參數
type SendMessageReq struct {
	RoomID   string      `json:"room_id"`
	Type     MessageType `json:"type"`
	Content  string      `json:"content"`
	FileURL  string      `json:"file_url"`
	FileName string      `json:"file_name"`
	FileSize int64       `json:"file_size"`
	ReplyTo  string      `json:"reply_to"`
}

// MessagePage history page, oldest first
type MessagePage struct {
	Messages []*Message `json:"messages"`
	HasMore  bool       `json:"has_more"`
}

// FileUpload sendFile 上傳內容
type FileUpload struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}
