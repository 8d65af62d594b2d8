package handlers

import (
	"context"

	"realtime_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
)

// FriendHandler 好友與封鎖
type FriendHandler struct {
	Relationship RelationshipService
}

// NewFriendHandler 创建新的 FriendHandler
func NewFriendHandler(rel RelationshipService) *FriendHandler {
	return &FriendHandler{Relationship: rel}
}

type userIDReq struct {
	UserID string `json:"userId"`
}

type requestIDReq struct {
	RequestID string `json:"requestId"`
}

func parseUserID(c *fiber.Ctx) (string, bool) {
	var req userIDReq
	if err := c.BodyParser(&req); err != nil || req.UserID == "" {
		return "", false
	}
	return req.UserID, true
}

func parseRequestID(c *fiber.Ctx) (string, bool) {
	var req requestIDReq
	if err := c.BodyParser(&req); err != nil || req.RequestID == "" {
		return "", false
	}
	return req.RequestID, true
}

// Send 送出好友邀請, 對方已邀請自己時直接成為好友
// @Summary 送出好友邀請
// @Tags Friends
// @Security BearerAuth
// @Accept json
// @Param request body userIDReq true "target user"
// @Success 201 {object} domain.SendRequestResult
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/friends/send [post]
func (h *FriendHandler) Send(c *fiber.Ctx) error {
	target, ok := parseUserID(c)
	if !ok {
		return badRequest(c)
	}
	res, err := h.Relationship.SendRequest(c.UserContext(), middlewares.MemberID(c), target)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// Accept 接受邀請
// @Summary 接受好友邀請
// @Tags Friends
// @Security BearerAuth
// @Param request body requestIDReq true "request"
// @Success 200 {object} domain.FriendRequest
// @Router /api/friends/accept [post]
func (h *FriendHandler) Accept(c *fiber.Ctx) error {
	id, ok := parseRequestID(c)
	if !ok {
		return badRequest(c)
	}
	fr, err := h.Relationship.AcceptRequest(c.UserContext(), middlewares.MemberID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fr)
}

// Reject 拒絕邀請
// @Summary 拒絕好友邀請
// @Tags Friends
// @Security BearerAuth
// @Param request body requestIDReq true "request"
// @Success 200 {object} domain.FriendRequest
// @Router /api/friends/reject [post]
func (h *FriendHandler) Reject(c *fiber.Ctx) error {
	id, ok := parseRequestID(c)
	if !ok {
		return badRequest(c)
	}
	fr, err := h.Relationship.RejectRequest(c.UserContext(), middlewares.MemberID(c), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fr)
}

// Cancel 取消自己送出的邀請
// @Summary 取消好友邀請
// @Tags Friends
// @Security BearerAuth
// @Param request body userIDReq true "target user"
// @Success 204
// @Router /api/friends/cancel [post]
func (h *FriendHandler) Cancel(c *fiber.Ctx) error {
	return h.userAction(c, h.Relationship.CancelRequest)
}

// Remove 解除好友
// @Summary 解除好友
// @Tags Friends
// @Security BearerAuth
// @Param request body userIDReq true "friend"
// @Success 204
// @Router /api/friends/remove [post]
func (h *FriendHandler) Remove(c *fiber.Ctx) error {
	return h.userAction(c, h.Relationship.RemoveFriend)
}

// Block 封鎖使用者
// @Summary 封鎖使用者
// @Tags Friends
// @Security BearerAuth
// @Param request body userIDReq true "target user"
// @Success 204
// @Router /api/friends/block [post]
func (h *FriendHandler) Block(c *fiber.Ctx) error {
	return h.userAction(c, h.Relationship.BlockUser)
}

// Unblock 解除封鎖
// @Summary 解除封鎖
// @Tags Friends
// @Security BearerAuth
// @Param request body userIDReq true "target user"
// @Success 204
// @Router /api/friends/unblock [post]
func (h *FriendHandler) Unblock(c *fiber.Ctx) error {
	return h.userAction(c, h.Relationship.UnblockUser)
}

func (h *FriendHandler) userAction(c *fiber.Ctx, fn func(ctx context.Context, userID, targetID string) error) error {
	target, ok := parseUserID(c)
	if !ok {
		return badRequest(c)
	}
	if err := fn(c.UserContext(), middlewares.MemberID(c), target); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Requests incoming / outgoing pending
// @Summary 好友邀請列表
// @Tags Friends
// @Security BearerAuth
// @Success 200 {object} domain.FriendRequestList
// @Router /api/friends/requests [get]
func (h *FriendHandler) Requests(c *fiber.Ctx) error {
	list, err := h.Relationship.ListRequests(c.UserContext(), middlewares.MemberID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// List 好友列表, 含最後一則私訊與未讀數
// @Summary 好友列表
// @Tags Friends
// @Security BearerAuth
// @Success 200 {array} domain.FriendView
// @Router /api/friends/list [get]
func (h *FriendHandler) List(c *fiber.Ctx) error {
	list, err := h.Relationship.ListFriends(c.UserContext(), middlewares.MemberID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(list)
}

// Users 使用者分頁列表
// @Summary 使用者列表
// @Tags Friends
// @Security BearerAuth
// @Param page query int false "page, from 1"
// @Param limit query int false "page size"
// @Success 200 {object} domain.UserPage
// @Router /api/friends/users [get]
func (h *FriendHandler) Users(c *fiber.Ctx) error {
	page := int64(c.QueryInt("page", 1))
	limit := int64(c.QueryInt("limit", 50))
	res, err := h.Relationship.ListUsers(c.UserContext(), middlewares.MemberID(c), page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// Search username / email 模糊搜尋
// @Summary 搜尋使用者
// @Tags Friends
// @Security BearerAuth
// @Param query query string true "keyword"
// @Success 200 {array} domain.UserView
// @Router /api/friends/search [get]
func (h *FriendHandler) Search(c *fiber.Ctx) error {
	res, err := h.Relationship.SearchUsers(c.UserContext(), middlewares.MemberID(c), c.Query("query"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// Check 與某位使用者的關係
// @Summary 檢查好友關係
// @Tags Friends
// @Security BearerAuth
// @Param userId path string true "user id"
// @Success 200 {object} domain.Friendship
// @Router /api/friends/check/{userId} [get]
func (h *FriendHandler) Check(c *fiber.Ctx) error {
	res, err := h.Relationship.CheckFriendship(c.UserContext(), middlewares.MemberID(c), c.Params("userId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

// Blocked 我封鎖的使用者
// @Summary 封鎖列表
// @Tags Friends
// @Security BearerAuth
// @Success 200 {array} domain.UserProfile
// @Router /api/friends/blocked [get]
func (h *FriendHandler) Blocked(c *fiber.Ctx) error {
	res, err := h.Relationship.ListBlocked(c.UserContext(), middlewares.MemberID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}
