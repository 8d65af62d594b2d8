package handlers

import (
	"time"

	chatdomain "realtime_chat_service/internal/chat/domain"
	memberapp "realtime_chat_service/internal/member/app"
	"realtime_chat_service/internal/member/domain"
	"realtime_chat_service/pkg/logger"
	"realtime_chat_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthHandler 处理帳號相關的 HTTP 请求
type AuthHandler struct {
	Member     memberapp.MemberUseCase
	SessionTTL time.Duration
}

// NewAuthHandler 创建新的 AuthHandler
func NewAuthHandler(member memberapp.MemberUseCase, sessionTTL time.Duration) *AuthHandler {
	return &AuthHandler{Member: member, SessionTTL: sessionTTL}
}

// Register 注册新用户
// @Summary 注册新用户
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.RegisterReq true "注册请求"
// @Success 201 {object} chatdomain.User
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req domain.RegisterReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}

	logger.Log.Debug("Register request", zap.String("email", req.Email), zap.String("username", req.Username))

	user, err := h.Member.Register(c.UserContext(), &req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(user)
}

// Login 用户登录
// @Summary 用户登录
// @Description token 同時寫入 auth_token cookie
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body domain.LoginReq true "用户登录信息"
// @Success 200 {object} memberapp.LoginResult
// @Failure 401 {object} ErrorResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req domain.LoginReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}

	now := time.Now()
	res, err := h.Member.Login(c.UserContext(), req.Email, req.Password, now)
	if err != nil {
		return respondError(c, err)
	}

	c.Cookie(&fiber.Cookie{
		Name:     middlewares.CookieToken,
		Value:    res.Token,
		Expires:  now.Add(h.SessionTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(res)
}

// Logout 登出, 清除 session 與 cookie
// @Summary 用户登出
// @Tags Auth
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Router /api/auth/logout [post]
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	tokenStr, _ := c.Locals(middlewares.TokenRaw).(string)
	if err := h.Member.Logout(c.UserContext(), tokenStr); err != nil {
		return respondError(c, err)
	}
	c.ClearCookie(middlewares.CookieToken)
	return c.JSON(fiber.Map{"message": "logout success"})
}

// Profile 目前使用者資料
// @Summary 取得個人資料
// @Tags Auth
// @Security BearerAuth
// @Success 200 {object} chatdomain.User
// @Router /api/auth/profile [get]
func (h *AuthHandler) Profile(c *fiber.Ctx) error {
	user, err := h.Member.Profile(c.UserContext(), middlewares.MemberID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateProfile 修改 username
// @Summary 修改個人資料
// @Tags Auth
// @Security BearerAuth
// @Accept json
// @Param request body object true "{username}"
// @Success 200 {object} chatdomain.User
// @Router /api/auth/profile [patch]
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	var req struct {
		Username *string `json:"username"`
	}
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c)
	}
	user, err := h.Member.UpdateProfile(c.UserContext(), middlewares.MemberID(c), req.Username)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// UpdateAvatar multipart 欄位 avatar
// @Summary 上傳頭像
// @Tags Auth
// @Security BearerAuth
// @Accept multipart/form-data
// @Param avatar formData file true "image"
// @Success 200 {object} chatdomain.User
// @Failure 400 {object} ErrorResponse
// @Router /api/auth/profile/avatar [post]
func (h *AuthHandler) UpdateAvatar(c *fiber.Ctx) error {
	file, closeFn, err := formFile(c, "avatar")
	if err != nil {
		return badRequest(c)
	}
	defer closeFn()

	user, err := h.Member.UpdateAvatar(c.UserContext(), middlewares.MemberID(c), file)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(user)
}

// formFile 讀取 multipart 檔案為 FileUpload
func formFile(c *fiber.Ctx, field string) (*chatdomain.FileUpload, func(), error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, nil, err
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &chatdomain.FileUpload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	}, func() { _ = f.Close() }, nil
}
