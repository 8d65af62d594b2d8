package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	t_token "realtime_chat_service/pkg/token"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sessionFunc func(ctx context.Context, token string) (string, error)

func (f sessionFunc) ValidateSession(ctx context.Context, token string) (string, error) {
	return f(ctx, token)
}

func newApp(v SessionValidator) *fiber.App {
	app := fiber.New()
	mw := []interface{}{JWTMiddleware()}
	if v != nil {
		mw = append(mw, SessionMiddleware(v))
	}
	app.Use(mw...)
	app.Get("/me", func(c *fiber.Ctx) error {
		return c.SendString(MemberID(c))
	})
	return app
}

func TestTokenFromRequest(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(TokenFromRequest(c)) })

	tests := []struct {
		name  string
		setup func(r *http.Request)
		want  string
	}{
		{"query first", func(r *http.Request) {
			r.URL.RawQuery = QueryToken + "=q"
			r.AddCookie(&http.Cookie{Name: CookieToken, Value: "c"})
		}, "q"},
		{"cookie", func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: CookieToken, Value: "c"})
			r.Header.Set("Authorization", "Bearer h")
		}, "c"},
		{"header", func(r *http.Request) { r.Header.Set("Authorization", "bearer h") }, "h"},
		{"none", func(r *http.Request) {}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			resp, err := app.Test(req)
			require.NoError(t, err)
			buf := make([]byte, 16)
			n, _ := resp.Body.Read(buf)
			assert.Equal(t, tt.want, string(buf[:n]))
		})
	}
}

func TestJWTMiddleware(t *testing.T) {
	app := newApp(nil)
	tok, err := t_token.GenerateJWT("m1", string(t_token.RoleMember), "test")
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/me?auth=garbage", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/me?auth="+tok, nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSessionMiddleware(t *testing.T) {
	tok, err := t_token.GenerateJWT("m1", string(t_token.RoleMember), "test")
	require.NoError(t, err)

	t.Run("valid", func(t *testing.T) {
		app := newApp(sessionFunc(func(_ context.Context, s string) (string, error) {
			assert.Equal(t, tok, s)
			return "m1", nil
		}))
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me?auth="+tok, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})

	t.Run("replaced by newer login", func(t *testing.T) {
		app := newApp(sessionFunc(func(context.Context, string) (string, error) {
			return "", errors.New("invalid token")
		}))
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me?auth="+tok, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("member mismatch", func(t *testing.T) {
		app := newApp(sessionFunc(func(context.Context, string) (string, error) {
			return "m2", nil
		}))
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/me?auth="+tok, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}
