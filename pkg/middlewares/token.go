package middlewares

import (
	t_token "realtime_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
)

const (
	//QueryToken token in query name, websocket clients cannot set headers
	QueryToken = "auth"

	//CookieToken token in cookie name
	CookieToken = "auth_token"

	//TokenMemberID get member form token, set c.locals name
	TokenMemberID = "MemberID"
	//TokenRole get role form token, set c.locals name
	TokenRole = "role"
	//TokenRaw raw token string, set c.locals name
	TokenRaw = "token"
)

// TokenFromRequest query > cookie > Authorization header
func TokenFromRequest(c *fiber.Ctx) string {
	tokenStr := c.Query(QueryToken)
	if tokenStr == "" {
		tokenStr = c.Cookies(CookieToken)
	}
	if tokenStr == "" {
		tokenStr = t_token.ExtractBearer(c.Get(fiber.HeaderAuthorization))
	}
	return tokenStr
}

// JWTMiddleware validates JWT and puts the member id into c.Locals
func JWTMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := TokenFromRequest(c)
		if tokenStr == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		claims, err := t_token.ParseJWTWrapper(tokenStr)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid token",
			})
		}

		c.Locals(TokenMemberID, claims.MemberID)
		c.Locals(TokenRole, claims.Role)
		c.Locals(TokenRaw, tokenStr)

		return c.Next()
	}
}

// MemberID read member id from c.Locals
func MemberID(c *fiber.Ctx) string {
	id, _ := c.Locals(TokenMemberID).(string)
	return id
}
