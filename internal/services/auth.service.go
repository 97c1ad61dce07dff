package services

import (
	"errors"
	"time"

	"drivemate/config"

	logger "github.com/Bparsons0904/goLogger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid or expired token")

const tokenLifetime = 24 * time.Hour

// AuthService issues and validates the bearer tokens that identify handover
// participants.
type AuthService struct {
	secret []byte
	log    logger.Logger
}

func NewAuthService(config config.Config) *AuthService {
	return &AuthService{
		secret: []byte(config.JWTSecret),
		log:    logger.New("AuthService"),
	}
}

func (s *AuthService) GenerateToken(userID uuid.UUID) (string, error) {
	log := s.log.Function("GenerateToken")

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
	})

	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", log.Err("failed to sign token", err, "userID", userID)
	}
	return signed, nil
}

// ValidateToken checks the signature and expiry and returns the subject user.
func (s *AuthService) ValidateToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwt.RegisteredClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrInvalidToken
			}
			return s.secret, nil
		},
	)
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return uuid.Nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return userID, nil
}
