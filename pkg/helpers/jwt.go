package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager issues and validates the two token kinds the service uses:
// access tokens carrying the username as subject, and password-reset tokens
// carrying the email as subject plus a jti for single-use tracking.
type TokenManager struct {
	Secret    []byte
	AccessTTL time.Duration
	ResetTTL  time.Duration
}

var defaultManager *TokenManager

func NewTokenManager(secret string, accessTTL, resetTTL time.Duration) *TokenManager {
	m := &TokenManager{
		Secret:    []byte(secret),
		AccessTTL: accessTTL,
		ResetTTL:  resetTTL,
	}
	defaultManager = m
	return m
}

// DefaultTokenManager returns the last constructed TokenManager (used for auto-wiring routes)
func DefaultTokenManager() *TokenManager { return defaultManager }

type Claims struct {
	jwt.RegisteredClaims
}

func (m *TokenManager) GenerateAccessToken(username string) (string, time.Time, error) {
	return m.generate(username, "", m.AccessTTL)
}

// GenerateResetToken embeds the user's email as subject. The jti lets the
// service record consumed tokens.
func (m *TokenManager) GenerateResetToken(email string) (string, time.Time, error) {
	return m.generate(email, uuid.NewString(), m.ResetTTL)
}

func (m *TokenManager) generate(subject, id string, ttl time.Duration) (string, time.Time, error) {
	exp := time.Now().Add(ttl)
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        id,
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.Secret)
	return s, exp, err
}

// ParseToken validates signature and expiry and requires a subject claim.
func (m *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	tkn, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("missing subject claim")
	}
	return claims, nil
}
