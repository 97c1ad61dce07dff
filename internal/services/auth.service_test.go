package services_test

import (
	"testing"
	"time"

	"drivemate/config"
	"drivemate/internal/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_TokenRoundTrip(t *testing.T) {
	svc := services.NewAuthService(config.Config{JWTSecret: "test-secret"})
	userID := uuid.New()

	token, err := svc.GenerateToken(userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	parsed, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, parsed)
}

func TestAuthService_RejectsTamperedTokens(t *testing.T) {
	svc := services.NewAuthService(config.Config{JWTSecret: "test-secret"})
	other := services.NewAuthService(config.Config{JWTSecret: "different-secret"})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := other.GenerateToken(uuid.New())
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, services.ErrInvalidToken)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := svc.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, services.ErrInvalidToken)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := svc.ValidateToken("")
		assert.ErrorIs(t, err, services.ErrInvalidToken)
	})
}

func TestAuthService_RejectsExpiredToken(t *testing.T) {
	secret := "test-secret"
	svc := services.NewAuthService(config.Config{JWTSecret: secret})

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   uuid.New().String(),
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-48 * time.Hour)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-24 * time.Hour)),
	})
	token, err := expired.SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, services.ErrInvalidToken)
}

func TestAuthService_RejectsWrongSigningMethod(t *testing.T) {
	svc := services.NewAuthService(config.Config{JWTSecret: "test-secret"})

	// alg=none tokens must never validate.
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   uuid.New().String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, services.ErrInvalidToken)
}

func TestAuthService_RejectsMissingSubject(t *testing.T) {
	secret := "test-secret"
	svc := services.NewAuthService(config.Config{JWTSecret: secret})

	anonymous := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	token, err := anonymous.SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, services.ErrInvalidToken)
}
