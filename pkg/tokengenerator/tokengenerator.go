// Package tokengenerator mints and parses the short-lived attempt tokens that
// bind the second-factor form submissions to one authentication attempt.
package tokengenerator

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims carried by an attempt token.
type Claims struct {
	AttemptID string `json:"attempt_id"`
	jwt.RegisteredClaims
}

// AttemptTokenGenerator issues HS256 tokens scoped to one attempt.
type AttemptTokenGenerator struct {
	Secret   string
	Issuer   string
	Audience string
	Expiry   time.Duration
}

// New creates a generator with the given signing secret. Expiry defaults to
// ten minutes, enough to cover an attempt's round trips.
func New(secret, issuer, audience string) *AttemptTokenGenerator {
	return &AttemptTokenGenerator{
		Secret:   secret,
		Issuer:   issuer,
		Audience: audience,
		Expiry:   10 * time.Minute,
	}
}

// GenerateToken mints a token for the attempt, with the username as subject.
func (g *AttemptTokenGenerator) GenerateToken(username, attemptID string) (string, time.Time, error) {
	now := time.Now().UTC()
	claims := Claims{
		AttemptID: attemptID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(g.Expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now.Add(-5 * time.Minute)),
			Issuer:    g.Issuer,
			Subject:   username,
			ID:        uuid.New().String(),
			Audience:  jwt.ClaimStrings{g.Audience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(g.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign attempt token: %w", err)
	}
	return signed, claims.ExpiresAt.Time, nil
}

// ParseToken parses and validates an attempt token.
func (g *AttemptTokenGenerator) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(g.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse attempt token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid attempt token")
	}
	if claims.AttemptID == "" {
		return nil, fmt.Errorf("attempt token is missing the attempt id")
	}
	return claims, nil
}
