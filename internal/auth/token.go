package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// DefaultTokenTTL is how long a session token stays valid.
const DefaultTokenTTL = 30 * 24 * time.Hour

// Tokens issues and verifies HS256 session tokens.
type Tokens struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

// Claims identify the signed-in user.
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// NewTokens creates a token issuer. A zero ttl uses DefaultTokenTTL.
func NewTokens(secretKey string, ttl time.Duration) *Tokens {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Tokens{secretKey: []byte(secretKey), ttl: ttl, now: time.Now}
}

// Issue signs a token for the user.
func (t *Tokens) Issue(userID, email string) (string, error) {
	now := t.now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secretKey)
}

// Verify parses and validates a token.
func (t *Tokens) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid && claims.UserID != "" {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
