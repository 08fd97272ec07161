package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/classroom/internal/app/models"
)

func newTestService(exp time.Duration) *JWTService {
	return NewJWTService(JWTConfig{
		SecretKey:      "test-secret",
		AccessTokenExp: exp,
		TokenIssuer:    "classroom-test",
	})
}

func TestJWTService_AccessTokenRoundTrip(t *testing.T) {
	svc := newTestService(time.Hour)

	token, expiresIn, err := svc.GenerateAccessToken(&models.User{ID: 7, Login: "octocat"})
	require.NoError(t, err)
	assert.Equal(t, 3600, expiresIn)

	claims, err := svc.ValidateAndExtractClaims(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "octocat", claims.Login)
	assert.Equal(t, "7", claims.Subject)
}

func TestJWTService_Rejects(t *testing.T) {
	svc := newTestService(time.Hour)

	t.Run("expired", func(t *testing.T) {
		expired := newTestService(-time.Minute)
		token, _, err := expired.GenerateAccessToken(&models.User{ID: 1, Login: "a"})
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(JWTConfig{SecretKey: "other", AccessTokenExp: time.Hour})
		token, _, err := other.GenerateAccessToken(&models.User{ID: 1, Login: "a"})
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("empty", func(t *testing.T) {
		_, err := svc.ValidateAndExtractClaims("")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("state token is not an access token", func(t *testing.T) {
		state, err := svc.GenerateStateToken(3, "intro-to-cs")
		require.NoError(t, err)

		_, err = svc.ValidateToken(state)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("access token is not a state token", func(t *testing.T) {
		token, _, err := svc.GenerateAccessToken(&models.User{ID: 1, Login: "a"})
		require.NoError(t, err)

		_, err = svc.ParseStateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestJWTService_StateToken(t *testing.T) {
	svc := newTestService(time.Hour)

	state, err := svc.GenerateStateToken(3, "intro-to-cs")
	require.NoError(t, err)

	claims, err := svc.ParseStateToken(state)
	require.NoError(t, err)
	assert.Equal(t, int64(3), claims.UserID)
	assert.Equal(t, "intro-to-cs", claims.Organization)
}

func TestExtractBearerToken(t *testing.T) {
	token, err := ExtractBearerToken("Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	_, err = ExtractBearerToken("")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}
