package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/internal/chat/repository"
	errprocess "realtime_chat_service/pkg/err"
	"realtime_chat_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

// FileStore 附件上傳, 回傳可長期使用的 URL
type FileStore interface {
	Upload(ctx context.Context, ownerID, roomID string, file *domain.FileUpload) (string, error)
}

// MessageUseCase 負責處理聊天訊息
type MessageUseCase struct {
	roomRepo  repository.RoomRepository
	msgRepo   repository.MessageRepository
	userRepo  repository.UserRepository
	publisher Publisher
	files     FileStore
}

// NewMessageUseCase init message use case
func NewMessageUseCase(
	roomRepo repository.RoomRepository,
	msgRepo repository.MessageRepository,
	userRepo repository.UserRepository,
	pub Publisher,
	files FileStore,
) *MessageUseCase {
	return &MessageUseCase{
		roomRepo:  roomRepo,
		msgRepo:   msgRepo,
		userRepo:  userRepo,
		publisher: pub,
		files:     files,
	}
}

// Send 寫入訊息, 更新 last message, 其他成員未讀 +1, 再推播到 room channel
func (uc *MessageUseCase) Send(ctx context.Context, senderID string, req *domain.SendMessageReq) (*domain.Message, error) {
	room, err := uc.memberRoom(ctx, req.RoomID, senderID)
	if err != nil {
		return nil, err
	}
	if room.IsDirect() {
		if err := uc.checkDirectBlock(ctx, senderID, room.Peer(senderID)); err != nil {
			return nil, err
		}
	}

	msgType := req.Type
	if msgType == "" {
		msgType = domain.MessageText
	}
	if !msgType.Valid() {
		return nil, errprocess.ErrInvalidParams
	}
	content := strings.TrimSpace(req.Content)
	switch msgType {
	case domain.MessageText:
		if content == "" {
			return nil, errprocess.ErrEmptyContent
		}
	default:
		if req.FileURL == "" {
			return nil, errprocess.ErrInvalidParams
		}
	}

	if req.ReplyTo != "" {
		target, err := uc.msgRepo.FindByID(ctx, req.ReplyTo)
		if errors.Is(err, errprocess.ErrMessageNotFound) {
			return nil, errprocess.ErrInvalidReply
		}
		if err != nil {
			return nil, err
		}
		if target.RoomID != room.ID {
			return nil, errprocess.ErrInvalidReply
		}
	}

	msg := &domain.Message{
		ID:        uuid.New().String(),
		RoomID:    room.ID,
		SenderID:  senderID,
		Type:      msgType,
		Content:   content,
		FileURL:   req.FileURL,
		FileName:  req.FileName,
		FileSize:  req.FileSize,
		ReplyTo:   req.ReplyTo,
		Reactions: []domain.Reaction{},
		ReadBy:    []domain.ReadReceipt{},
		CreatedAt: time.Now().UTC(),
	}
	if err := uc.msgRepo.Insert(ctx, msg); err != nil {
		return nil, err
	}
	// 訊息已寫入, 之後的 room 統計失敗只記 log, 否則呼叫端重送會產生重複訊息
	if err := uc.roomRepo.SetLastMessage(ctx, room.ID, msg.Preview()); err != nil {
		logger.Log.Warn("set last message failed", zap.String("room", room.ID), zap.String("message", msg.ID), zap.Error(err))
	}

	others := make([]string, 0, len(room.Members))
	for _, id := range room.MemberIDs() {
		if id != senderID {
			others = append(others, id)
		}
	}
	if err := uc.roomRepo.IncrementUnread(ctx, room.ID, others); err != nil {
		logger.Log.Warn("increment unread failed", zap.String("room", room.ID), zap.String("message", msg.ID), zap.Error(err))
	}

	uc.publish(ctx, room.ID, domain.EventMessage, domain.MessagePayload{RoomID: room.ID, Message: msg}, "")
	return msg, nil
}

// SendFile 上傳附件後送出 image/file 訊息, content 作為說明文字
func (uc *MessageUseCase) SendFile(ctx context.Context, senderID, roomID, caption, replyTo string, file *domain.FileUpload) (*domain.Message, error) {
	if uc.files == nil {
		return nil, errprocess.Internal("file storage not configured", nil)
	}
	if file == nil || file.Body == nil {
		return nil, errprocess.ErrInvalidParams
	}
	if _, err := uc.memberRoom(ctx, roomID, senderID); err != nil {
		return nil, err
	}

	url, err := uc.files.Upload(ctx, senderID, roomID, file)
	if err != nil {
		return nil, err
	}

	msgType := domain.MessageFile
	if strings.HasPrefix(file.ContentType, "image/") {
		msgType = domain.MessageImage
	}
	return uc.Send(ctx, senderID, &domain.SendMessageReq{
		RoomID:   roomID,
		Type:     msgType,
		Content:  caption,
		FileURL:  url,
		FileName: file.FileName,
		FileSize: file.Size,
		ReplyTo:  replyTo,
	})
}

// Edit sender only
func (uc *MessageUseCase) Edit(ctx context.Context, userID, messageID, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errprocess.ErrEmptyContent
	}
	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != userID {
		return nil, errprocess.ErrNotSender
	}

	updated, err := uc.msgRepo.UpdateContent(ctx, messageID, content, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if room, err := uc.roomRepo.FindByID(ctx, msg.RoomID); err == nil && room.LastMessage != nil && room.LastMessage.ID == messageID {
		if err := uc.roomRepo.SetLastMessage(ctx, room.ID, updated.Preview()); err != nil {
			logger.Log.Warn("refresh last message failed", zap.String("room", room.ID), zap.Error(err))
		}
	}

	uc.publish(ctx, msg.RoomID, domain.EventMessageUpdated, domain.MessagePayload{RoomID: msg.RoomID, Message: updated}, "")
	return updated, nil
}

// Delete sender only, hard delete; 刪除最後一則時重新計算 last message
func (uc *MessageUseCase) Delete(ctx context.Context, userID, messageID string) error {
	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return errprocess.ErrNotSender
	}
	if err := uc.msgRepo.Delete(ctx, messageID); err != nil {
		return err
	}

	room, err := uc.roomRepo.FindByID(ctx, msg.RoomID)
	if err != nil {
		return err
	}
	if room.LastMessage != nil && room.LastMessage.ID == messageID {
		latest, err := uc.msgRepo.FindLatest(ctx, room.ID)
		if err != nil {
			return err
		}
		var preview *domain.MessagePreview
		if latest != nil {
			preview = latest.Preview()
		}
		if err := uc.roomRepo.SetLastMessage(ctx, room.ID, preview); err != nil {
			return err
		}
	}

	uc.publish(ctx, msg.RoomID, domain.EventMessageDeleted, domain.MessageDeletedPayload{RoomID: msg.RoomID, MessageID: messageID}, "")
	return nil
}

// AddReaction 每人每則訊息一個 reaction, 新的取代舊的
func (uc *MessageUseCase) AddReaction(ctx context.Context, userID, messageID, emoji string) (*domain.Message, error) {
	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return nil, errprocess.ErrInvalidParams
	}
	msg, err := uc.memberMessage(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}
	updated, err := uc.msgRepo.SetReaction(ctx, msg.ID, userID, emoji)
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, msg.RoomID, domain.EventMessageUpdated, domain.MessagePayload{RoomID: msg.RoomID, Message: updated}, "")
	return updated, nil
}

// RemoveReaction drop userID's reaction
func (uc *MessageUseCase) RemoveReaction(ctx context.Context, userID, messageID string) (*domain.Message, error) {
	msg, err := uc.memberMessage(ctx, messageID, userID)
	if err != nil {
		return nil, err
	}
	updated, err := uc.msgRepo.RemoveReaction(ctx, msg.ID, userID)
	if err != nil {
		return nil, err
	}
	uc.publish(ctx, msg.RoomID, domain.EventMessageUpdated, domain.MessagePayload{RoomID: msg.RoomID, Message: updated}, "")
	return updated, nil
}

// MarkRead 已讀, 重複呼叫與自己的訊息皆為 no-op
func (uc *MessageUseCase) MarkRead(ctx context.Context, userID, messageID string) error {
	msg, err := uc.memberMessage(ctx, messageID, userID)
	if err != nil {
		return err
	}
	if msg.SenderID == userID || msg.IsReadBy(userID) {
		return nil
	}
	added, err := uc.msgRepo.AddReadReceipt(ctx, msg.ID, userID, time.Now().UTC())
	if err != nil {
		return err
	}
	if added {
		uc.publish(ctx, msg.RoomID, domain.EventMessageRead, domain.MessageReadPayload{
			RoomID: msg.RoomID, MessageID: msg.ID, UserID: userID,
		}, "")
	}
	return nil
}

// MarkRoomRead zero the caller's unread counter
func (uc *MessageUseCase) MarkRoomRead(ctx context.Context, userID, roomID string) error {
	if _, err := uc.memberRoom(ctx, roomID, userID); err != nil {
		return err
	}
	return uc.roomRepo.ResetUnread(ctx, roomID, userID)
}

// ListMessages history page oldest first, before zero 取最新; 視為已查看房間
func (uc *MessageUseCase) ListMessages(ctx context.Context, userID, roomID string, before time.Time, limit int64) (*domain.MessagePage, error) {
	if _, err := uc.memberRoom(ctx, roomID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	msgs, err := uc.msgRepo.FindByRoom(ctx, &domain.MessageQuery{RoomID: roomID, Before: before, Limit: limit + 1})
	if err != nil {
		return nil, err
	}
	page := &domain.MessagePage{}
	if int64(len(msgs)) > limit {
		page.HasMore = true
		msgs = msgs[:limit]
	}
	reverse(msgs)
	page.Messages = msgs

	if err := uc.roomRepo.ResetUnread(ctx, roomID, userID); err != nil {
		logger.Log.Warn("reset unread failed", zap.String("room", roomID), zap.String("user", userID), zap.Error(err))
	}
	return page, nil
}

// Search case-insensitive content match, members only
func (uc *MessageUseCase) Search(ctx context.Context, userID, roomID, query string) ([]*domain.Message, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errprocess.ErrInvalidParams
	}
	if _, err := uc.memberRoom(ctx, roomID, userID); err != nil {
		return nil, err
	}
	return uc.msgRepo.FindByRoom(ctx, &domain.MessageQuery{RoomID: roomID, Keyword: query, Limit: maxHistoryLimit})
}

// Typing transient userTyping / userStopTyping, 不送回發送端連線
func (uc *MessageUseCase) Typing(ctx context.Context, userID, roomID, originConn string, stop bool) error {
	if _, err := uc.memberRoom(ctx, roomID, userID); err != nil {
		return err
	}
	event := domain.EventUserTyping
	if stop {
		event = domain.EventUserStopTyping
	}
	if uc.publisher == nil {
		return nil
	}
	return uc.publisher.Publish(ctx, roomID, event, domain.TypingPayload{RoomID: roomID, UserID: userID}, originConn)
}

func (uc *MessageUseCase) memberRoom(ctx context.Context, roomID, userID string) (*domain.Room, error) {
	if roomID == "" {
		return nil, errprocess.ErrInvalidParams
	}
	room, err := uc.roomRepo.FindByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.IsMember(userID) {
		return nil, errprocess.ErrNotMember
	}
	return room, nil
}

func (uc *MessageUseCase) memberMessage(ctx context.Context, messageID, userID string) (*domain.Message, error) {
	msg, err := uc.msgRepo.FindByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := uc.memberRoom(ctx, msg.RoomID, userID); err != nil {
		return nil, err
	}
	return msg, nil
}

func (uc *MessageUseCase) checkDirectBlock(ctx context.Context, senderID, peerID string) error {
	sender, err := uc.userRepo.FindByID(ctx, senderID)
	if err != nil {
		return err
	}
	if sender.HasBlocked(peerID) {
		return errprocess.ErrBlocked
	}
	peer, err := uc.userRepo.FindByID(ctx, peerID)
	if errors.Is(err, errprocess.ErrUserNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if peer.HasBlocked(senderID) {
		return errprocess.ErrBlocked
	}
	return nil
}

// publish 寫入已完成, 推播失敗只記 log
func (uc *MessageUseCase) publish(ctx context.Context, roomID string, event domain.Event, payload interface{}, origin string) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.Publish(ctx, roomID, event, payload, origin); err != nil {
		logger.Log.Error("publish room event failed", zap.String("room", roomID), zap.String("event", string(event)), zap.Error(err))
	}
}

func reverse(msgs []*domain.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
