package handlers

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
)

// MessageHandler 訊息 REST API
type MessageHandler struct {
	Messages MessageService
	Files    FileService
	Rooms    RoomService
}

// NewMessageHandler 创建新的 MessageHandler, files 可為 nil
func NewMessageHandler(messages MessageService, files FileService, rooms RoomService) *MessageHandler {
	return &MessageHandler{Messages: messages, Files: files, Rooms: rooms}
}

// History 歷史訊息 oldest first
// @Summary 歷史訊息
// @Tags Messages
// @Security BearerAuth
// @Param roomId path string true "room id"
// @Param before query string false "RFC3339, 只取此時間之前"
// @Param limit query int false "page size"
// @Success 200 {object} domain.MessagePage
// @Router /api/messages/room/{roomId} [get]
func (h *MessageHandler) History(c *fiber.Ctx) error {
	var before time.Time
	if s := c.Query("before"); s != "" {
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return badRequest(c)
		}
		before = t
	}
	page, err := h.Messages.ListMessages(c.UserContext(), middlewares.MemberID(c), c.Params("roomId"), before, int64(c.QueryInt("limit", 0)))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

// Search 搜尋 room 內訊息
// @Summary 搜尋訊息
// @Tags Messages
// @Security BearerAuth
// @Param roomId path string true "room id"
// @Param query query string true "keyword"
// @Success 200 {array} domain.Message
// @Router /api/messages/room/{roomId}/search [get]
func (h *MessageHandler) Search(c *fiber.Ctx) error {
	msgs, err := h.Messages.Search(c.UserContext(), middlewares.MemberID(c), c.Params("roomId"), c.Query("query"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(msgs)
}

// MarkRoomRead 清除自己在 room 的未讀數
// @Summary 全部已讀
// @Tags Messages
// @Security BearerAuth
// @Param roomId path string true "room id"
// @Success 204
// @Router /api/messages/room/{roomId}/read [post]
func (h *MessageHandler) MarkRoomRead(c *fiber.Ctx) error {
	if err := h.Messages.MarkRoomRead(c.UserContext(), middlewares.MemberID(c), c.Params("roomId")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Send 送出訊息
// @Summary 送出訊息
// @Tags Messages
// @Security BearerAuth
// @Accept json
// @Param request body domain.SendMessageReq true "message"
// @Success 201 {object} domain.Message
// @Router /api/messages [post]
func (h *MessageHandler) Send(c *fiber.Ctx) error {
	var req domain.SendMessageReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}
	if req.Type == "" {
		req.Type = domain.MessageText
	}
	msg, err := h.Messages.Send(c.UserContext(), middlewares.MemberID(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// Upload multipart: file, roomId, content, replyTo
// @Summary 上傳附件並送出
// @Tags Messages
// @Security BearerAuth
// @Accept multipart/form-data
// @Param file formData file true "attachment"
// @Param roomId formData string true "room id"
// @Param content formData string false "caption"
// @Param replyTo formData string false "reply message id"
// @Success 201 {object} domain.Message
// @Failure 400 {object} ErrorResponse
// @Router /api/messages/upload [post]
func (h *MessageHandler) Upload(c *fiber.Ctx) error {
	roomID := c.FormValue("roomId")
	if roomID == "" {
		return badRequest(c)
	}
	file, closeFn, err := formFile(c, "file")
	if err != nil {
		return badRequest(c)
	}
	defer closeFn()

	msg, err := h.Messages.SendFile(c.UserContext(), middlewares.MemberID(c), roomID, c.FormValue("content"), c.FormValue("replyTo"), file)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// MarkRead 已讀單則訊息
// @Summary 已讀
// @Tags Messages
// @Security BearerAuth
// @Param messageId path string true "message id"
// @Success 204
// @Router /api/messages/{messageId}/read [post]
func (h *MessageHandler) MarkRead(c *fiber.Ctx) error {
	if err := h.Messages.MarkRead(c.UserContext(), middlewares.MemberID(c), c.Params("messageId")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Edit 只有發送者可修改
// @Summary 修改訊息
// @Tags Messages
// @Security BearerAuth
// @Param messageId path string true "message id"
// @Param request body object true "{content}"
// @Success 200 {object} domain.Message
// @Router /api/messages/{messageId} [patch]
func (h *MessageHandler) Edit(c *fiber.Ctx) error {
	var req struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}
	msg, err := h.Messages.Edit(c.UserContext(), middlewares.MemberID(c), c.Params("messageId"), req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(msg)
}

// Delete 只有發送者可刪除
// @Summary 刪除訊息
// @Tags Messages
// @Security BearerAuth
// @Param messageId path string true "message id"
// @Success 204
// @Router /api/messages/{messageId} [delete]
func (h *MessageHandler) Delete(c *fiber.Ctx) error {
	if err := h.Messages.Delete(c.UserContext(), middlewares.MemberID(c), c.Params("messageId")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// React 每人一個 reaction, 新的取代舊的
// @Summary 新增 reaction
// @Tags Messages
// @Security BearerAuth
// @Param messageId path string true "message id"
// @Param request body object true "{emoji}"
// @Success 200 {object} domain.Message
// @Router /api/messages/{messageId}/reaction [post]
func (h *MessageHandler) React(c *fiber.Ctx) error {
	var req struct {
		Emoji string `json:"emoji"`
	}
	if err := c.BodyParser(&req); err != nil || req.Emoji == "" {
		return badRequest(c)
	}
	msg, err := h.Messages.AddReaction(c.UserContext(), middlewares.MemberID(c), c.Params("messageId"), req.Emoji)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(msg)
}

// Unreact 移除自己的 reaction
// @Summary 移除 reaction
// @Tags Messages
// @Security BearerAuth
// @Param messageId path string true "message id"
// @Success 200 {object} domain.Message
// @Router /api/messages/{messageId}/reaction [delete]
func (h *MessageHandler) Unreact(c *fiber.Ctx) error {
	msg, err := h.Messages.RemoveReaction(c.UserContext(), middlewares.MemberID(c), c.Params("messageId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(msg)
}

// File 讀取附件內容, room 附件只有成員可讀
// @Summary 下載附件
// @Tags Messages
// @Security BearerAuth
// @Param id path int true "attachment id"
// @Success 200 {file} binary
// @Failure 404 {object} ErrorResponse
// @Router /api/files/{id} [get]
func (h *MessageHandler) File(c *fiber.Ctx) error {
	if h.Files == nil {
		return c.SendStatus(fiber.StatusNotFound)
	}
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil {
		return badRequest(c)
	}
	a, r, err := h.Files.Open(c.UserContext(), uint(id))
	if err != nil {
		return respondError(c, err)
	}
	defer r.Close()

	me := middlewares.MemberID(c)
	if a.RoomID != "" && a.OwnerID != me {
		if _, err := h.Rooms.GetRoom(c.UserContext(), a.RoomID, me); err != nil {
			return respondError(c, err)
		}
	}

	body, err := io.ReadAll(r)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, a.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", a.FileName))
	return c.Send(body)
}
