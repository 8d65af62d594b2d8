package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseJWT(t *testing.T) {
	tok, err := GenerateJWT("m1", string(RoleMember), "chat_service")
	require.NoError(t, err)

	claims, err := ParseJWT(tok)
	require.NoError(t, err)
	assert.Equal(t, "m1", claims.MemberID)
	assert.Equal(t, string(RoleMember), claims.Role)
	assert.Equal(t, "chat_service", claims.Issuer)
}

func TestParseJWT_Rejects(t *testing.T) {
	t.Run("wrong secret", func(t *testing.T) {
		claims := Claims{MemberID: "m1", RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other"))
		require.NoError(t, err)
		_, err = ParseJWT(tok)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		SetExpiration(time.Hour)
		claims := Claims{MemberID: "m1", RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}
		tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(JWTSecret)
		require.NoError(t, err)
		_, err = ParseJWT(tok)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseJWT("not.a.jwt")
		assert.Error(t, err)
	})
}

func TestSetSecret(t *testing.T) {
	orig := JWTSecret
	t.Cleanup(func() { JWTSecret = orig })

	SetSecret("")
	assert.Equal(t, orig, JWTSecret)

	SetSecret("rotated")
	tok, err := GenerateJWT("m1", string(RoleMember), "x")
	require.NoError(t, err)
	JWTSecret = orig
	_, err = ParseJWT(tok)
	assert.Error(t, err)
}

func TestExtractBearer(t *testing.T) {
	assert.Equal(t, "abc", ExtractBearer("Bearer abc"))
	assert.Equal(t, "abc", ExtractBearer("bearer  abc "))
	assert.Equal(t, "", ExtractBearer("Basic abc"))
	assert.Equal(t, "", ExtractBearer("Bearer "))
}
