package auth

import (
	"testing"
	"time"

	"github.com/aserradero/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(expiration time.Duration) *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:          "test-secret-at-least-32-characters",
		TokenExpiration: expiration,
		Issuer:          "aserradero",
	})
}

func TestJWTService(t *testing.T) {
	operatorID := uuid.New()
	siteID := uuid.New()
	input := GenerateTokenInput{
		OperatorID:   operatorID,
		OperatorName: "Marta",
		SiteID:       siteID,
	}

	t.Run("issues and validates a token", func(t *testing.T) {
		service := newTestService(time.Hour)

		token, err := service.GenerateToken(input)
		require.NoError(t, err)
		assert.Equal(t, "Bearer", token.TokenType)
		assert.NotEmpty(t, token.AccessToken)
		assert.WithinDuration(t, time.Now().Add(time.Hour), token.ExpiresAt, 5*time.Second)

		claims, err := service.ValidateToken(token.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, operatorID.String(), claims.OperatorID)
		assert.Equal(t, "Marta", claims.OperatorName)
		assert.Equal(t, siteID.String(), claims.SiteID)
		assert.Equal(t, "aserradero", claims.Issuer)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		service := newTestService(-time.Minute)

		token, err := service.GenerateToken(input)
		require.NoError(t, err)

		_, err = service.ValidateToken(token.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("rejects a token signed with a different secret", func(t *testing.T) {
		service := newTestService(time.Hour)
		other := NewJWTService(config.JWTConfig{
			Secret:          "another-secret-entirely-different",
			TokenExpiration: time.Hour,
			Issuer:          "aserradero",
		})

		token, err := other.GenerateToken(input)
		require.NoError(t, err)

		_, err = service.ValidateToken(token.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		service := newTestService(time.Hour)
		_, err := service.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
