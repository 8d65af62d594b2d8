package handlers

import (
	"realtime_chat_service/internal/chat/domain"
	"realtime_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
)

// RoomHandler 聊天室
type RoomHandler struct {
	Rooms RoomService
}

// NewRoomHandler 创建新的 RoomHandler
func NewRoomHandler(rooms RoomService) *RoomHandler {
	return &RoomHandler{Rooms: rooms}
}

// List 我加入的 group room
// @Summary 聊天室列表
// @Tags Rooms
// @Security BearerAuth
// @Success 200 {array} domain.RoomView
// @Router /api/rooms [get]
func (h *RoomHandler) List(c *fiber.Ctx) error {
	rooms, err := h.Rooms.ListRooms(c.UserContext(), middlewares.MemberID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(rooms)
}

// Create 建立 group room, 只會加入好友
// @Summary 建立群組
// @Tags Rooms
// @Security BearerAuth
// @Accept json
// @Param request body domain.CreateGroupReq true "group"
// @Success 201 {object} domain.Room
// @Router /api/rooms [post]
func (h *RoomHandler) Create(c *fiber.Ctx) error {
	var req domain.CreateGroupReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}
	room, err := h.Rooms.CreateGroup(c.UserContext(), middlewares.MemberID(c), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(room)
}

// Get 只有成員可查看
// @Summary 聊天室資訊
// @Tags Rooms
// @Security BearerAuth
// @Param id path string true "room id"
// @Success 200 {object} domain.Room
// @Failure 403 {object} ErrorResponse
// @Router /api/rooms/{id} [get]
func (h *RoomHandler) Get(c *fiber.Ctx) error {
	room, err := h.Rooms.GetRoom(c.UserContext(), c.Params("id"), middlewares.MemberID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(room)
}

// Join 加入公開群組
// @Summary 加入群組
// @Tags Rooms
// @Security BearerAuth
// @Param request body object true "{roomId}"
// @Success 200 {object} domain.Room
// @Router /api/rooms/join [post]
func (h *RoomHandler) Join(c *fiber.Ctx) error {
	var req struct {
		RoomID string `json:"roomId"`
	}
	if err := c.BodyParser(&req); err != nil || req.RoomID == "" {
		return badRequest(c)
	}
	room, err := h.Rooms.Join(c.UserContext(), req.RoomID, middlewares.MemberID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(room)
}

// Leave 離開群組
// @Summary 離開群組
// @Tags Rooms
// @Security BearerAuth
// @Param id path string true "room id"
// @Success 204
// @Router /api/rooms/{id} [delete]
func (h *RoomHandler) Leave(c *fiber.Ctx) error {
	if err := h.Rooms.Leave(c.UserContext(), c.Params("id"), middlewares.MemberID(c)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Direct 取得或建立與好友的私訊 room
// @Summary 私訊
// @Tags Rooms
// @Security BearerAuth
// @Param friendId path string true "friend id"
// @Success 200 {object} domain.Room
// @Router /api/rooms/direct/{friendId} [get]
func (h *RoomHandler) Direct(c *fiber.Ctx) error {
	room, err := h.Rooms.GetOrCreateDirect(c.UserContext(), middlewares.MemberID(c), c.Params("friendId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(room)
}

// AddMembers admin 加入成員, 非好友會被略過
// @Summary 加入成員
// @Tags Rooms
// @Security BearerAuth
// @Param roomId path string true "room id"
// @Param request body object true "{memberIds}"
// @Success 200 {object} domain.AddMembersResult
// @Router /api/rooms/{roomId}/members [post]
func (h *RoomHandler) AddMembers(c *fiber.Ctx) error {
	var req struct {
		MemberIDs []string `json:"memberIds"`
	}
	if err := c.BodyParser(&req); err != nil || len(req.MemberIDs) == 0 {
		return badRequest(c)
	}
	res, err := h.Rooms.AddMembers(c.UserContext(), c.Params("roomId"), middlewares.MemberID(c), req.MemberIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// RemoveMember admin 移除成員
// @Summary 移除成員
// @Tags Rooms
// @Security BearerAuth
// @Param roomId path string true "room id"
// @Param userId path string true "member id"
// @Success 204
// @Router /api/rooms/{roomId}/members/{userId} [delete]
func (h *RoomHandler) RemoveMember(c *fiber.Ctx) error {
	if err := h.Rooms.RemoveMember(c.UserContext(), c.Params("roomId"), middlewares.MemberID(c), c.Params("userId")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// TransferAdmin 移交 admin
// @Summary 移交管理員
// @Tags Rooms
// @Security BearerAuth
// @Param roomId path string true "room id"
// @Param request body object true "{userId}"
// @Success 200 {object} domain.Room
// @Router /api/rooms/{roomId}/admin [post]
func (h *RoomHandler) TransferAdmin(c *fiber.Ctx) error {
	target, ok := parseUserID(c)
	if !ok {
		return badRequest(c)
	}
	room, err := h.Rooms.TransferAdmin(c.UserContext(), c.Params("roomId"), middlewares.MemberID(c), target)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(room)
}

// Unread room id -> 未讀數
// @Summary 未讀數
// @Tags Rooms
// @Security BearerAuth
// @Success 200 {object} map[string]int
// @Router /api/rooms/unread [get]
func (h *RoomHandler) Unread(c *fiber.Ctx) error {
	counts, err := h.Rooms.UnreadCounts(c.UserContext(), middlewares.MemberID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(counts)
}
