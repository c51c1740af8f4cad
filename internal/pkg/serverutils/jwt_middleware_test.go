package serverutils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func TestParseUserToken(t *testing.T) {
	secret := "s3cret"
	valid := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"user_id": "user-1"})

	userId, err := ParseUserToken(valid, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userId)

	tests := []struct {
		name  string
		token string
	}{
		{name: "wrong secret", token: sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"user_id": "user-1"})},
		{name: "expired", token: sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"user_id": "user-1", "exp": time.Now().Add(-time.Minute).Unix()})},
		{name: "missing user", token: sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": "user-1"})},
		{name: "numeric user", token: sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"user_id": 42})},
		{name: "unsigned", token: sign(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, jwt.MapClaims{"user_id": "user-1"})},
		{name: "garbage", token: "a.b.c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseUserToken(tt.token, secret)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
