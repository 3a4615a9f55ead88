// Package auth verifies bearer tokens issued by the external identity
// provider. The scheduling core never authenticates; it only reads the
// verified user, its gym and its scopes.
package auth

import (
	"errors"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	jwtAudience = "gymflow-api"

	AccessTokenTTL = 15 * time.Minute
)

const (
	ScopeGymAdmin        = "gym:admin"
	ScopeScheduleWrite   = "schedule:write"
	ScopeAttendanceWrite = "attendance:write"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrInvalidToken   = errors.New("invalid token")
	ErrEmptyJWTSecret = errors.New("jwt secret cannot be empty")
)

type JWTClaims struct {
	UserID int      `json:"user_id"`
	GymID  int      `json:"gym_id"`
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

func (c *JWTClaims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}

// Identity is the verified caller of a request.
type Identity struct {
	UserID int
	GymID  int
	Scopes []string
}

// GenerateToken signs claims the way the identity provider does. It is used
// by tests and local tooling.
func GenerateToken(userID, gymID int, scopes []string, issuer, secret string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptyJWTSecret
	}

	now := time.Now()
	claims := &JWTClaims{
		UserID: userID,
		GymID:  gymID,
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  []string{jwtAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ValidateToken(tokenString, issuer, secret string) (*JWTClaims, error) {
	if secret == "" {
		return nil, ErrEmptyJWTSecret
	}

	token, err := jwt.ParseWithClaims(
		tokenString,
		&JWTClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(secret), nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithAudience(jwtAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.UserID <= 0 || claims.GymID <= 0 {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
