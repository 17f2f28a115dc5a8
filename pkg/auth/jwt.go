package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rahulp1273/recipe-hub/pkg/clock"
)

const issuer = "recipehub"

// Claims represents JWT claims
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Name   string    `json:"name"`
	jwt.RegisteredClaims
}

// JWTManager mints and checks the bearer credentials handed out after OTP verification
type JWTManager struct {
	secret []byte
	expiry time.Duration
	clock  clock.Clocker
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secret string, expiry time.Duration, clk clock.Clocker) *JWTManager {
	return &JWTManager{
		secret: []byte(secret),
		expiry: expiry,
		clock:  clk,
	}
}

// GenerateToken creates a signed token for a user. Every token carries its own
// ID so two tokens minted in the same second can be revoked independently.
func (j *JWTManager) GenerateToken(userID uuid.UUID, email, name string) (string, error) {
	now := j.clock.Now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// ValidateToken parses and validates a JWT token
func (j *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return j.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(j.clock.Now),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// TTL returns how long the token stays valid from now
func (j *JWTManager) TTL(claims *Claims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	return claims.ExpiresAt.Time.Sub(j.clock.Now())
}
