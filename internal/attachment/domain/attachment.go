package domain

import (
	"path/filepath"
	"strings"
	"time"

	errprocess "realtime_chat_service/pkg/err"
)

// AttachmentStatus 檔案掃描狀態
type AttachmentStatus string

const (
	// AttachmentUploaded 已上傳, 等待掃描
	AttachmentUploaded AttachmentStatus = "uploaded"
	// AttachmentReady 內容與副檔名相符
	AttachmentReady AttachmentStatus = "ready"
	// AttachmentRejected 內容不符, object 已刪除
	AttachmentRejected AttachmentStatus = "rejected"
)

// DefaultMaxSize 10 MiB
const DefaultMaxSize int64 = 10 << 20

// Attachment 上傳檔案的 metadata, object 存在 MinIO
type Attachment struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	OwnerID     string `gorm:"index;size:36" json:"owner_id"`
	RoomID      string `gorm:"index;size:36" json:"room_id,omitempty"`
	ObjectKey   string `gorm:"uniqueIndex" json:"object_key"`
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Status      string `gorm:"index" json:"status"`
	URL         string `json:"url"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// allowedTypes 副檔名 -> 允許的 MIME type
var allowedTypes = map[string][]string{
	".jpeg": {"image/jpeg"},
	".jpg":  {"image/jpeg"},
	".png":  {"image/png"},
	".gif":  {"image/gif"},
	".pdf":  {"application/pdf"},
	".doc":  {"application/msword"},
	".docx": {"application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
	".txt":  {"text/plain"},
	".mp4":  {"video/mp4"},
	".mp3":  {"audio/mpeg", "audio/mp3"},
	".wav":  {"audio/wav", "audio/wave", "audio/x-wav"},
}

// sniffedTypes 副檔名 -> http.DetectContentType 可能的結果
var sniffedTypes = map[string][]string{
	".jpeg": {"image/jpeg"},
	".jpg":  {"image/jpeg"},
	".png":  {"image/png"},
	".gif":  {"image/gif"},
	".pdf":  {"application/pdf"},
	".doc":  {"application/octet-stream"},
	".docx": {"application/zip"},
	".txt":  {"text/plain"},
	".mp4":  {"video/mp4"},
	".mp3":  {"audio/mpeg"},
	".wav":  {"audio/wave"},
}

// Ext 小寫副檔名
func Ext(fileName string) string {
	return strings.ToLower(filepath.Ext(fileName))
}

// mediaType 去掉 "; charset=..." 參數
func mediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// Validate 副檔名與 content type 都要在 allow-list 內
func Validate(fileName, contentType string, size, maxSize int64) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if size <= 0 {
		return errprocess.ErrInvalidParams
	}
	if size > maxSize {
		return errprocess.ErrFileTooLarge
	}
	types, ok := allowedTypes[Ext(fileName)]
	if !ok {
		return errprocess.ErrFileType
	}
	for _, t := range types {
		if mediaType(contentType) == t {
			return nil
		}
	}
	return errprocess.ErrFileType
}

// MatchesSniffed 掃描結果是否符合副檔名
func MatchesSniffed(fileName, sniffed string) bool {
	for _, t := range sniffedTypes[Ext(fileName)] {
		if mediaType(sniffed) == t {
			return true
		}
	}
	return false
}

// IsImage avatar 只允許圖片
func IsImage(contentType string) bool {
	return strings.HasPrefix(mediaType(contentType), "image/")
}
