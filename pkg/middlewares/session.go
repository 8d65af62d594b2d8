package middlewares

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// SessionValidator 確認 token 仍是該 member 目前的 session
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (string, error)
}

// SessionMiddleware 必須接在 JWTMiddleware 之後, 登出或重新登入後舊 token 失效
func SessionMiddleware(v SessionValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr, _ := c.Locals(TokenRaw).(string)
		memberID, err := v.ValidateSession(c.UserContext(), tokenStr)
		if err != nil || memberID != MemberID(c) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Session expired",
			})
		}
		return c.Next()
	}
}
