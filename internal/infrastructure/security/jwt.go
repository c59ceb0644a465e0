// Package security provides JWT token utilities
package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var ErrInvalidSurfaceToken = errors.New("invalid surface token")

// SurfaceClaims bind a render surface connection to one editor session
type SurfaceClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// SurfaceTokens issues and validates HS256 surface tokens
type SurfaceTokens struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSurfaceTokens(secret string, ttl time.Duration) (*SurfaceTokens, error) {
	if secret == "" {
		return nil, errors.New("surface token secret is empty")
	}
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &SurfaceTokens{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token for sessionID
func (s *SurfaceTokens) Issue(sessionID string) (string, error) {
	now := s.now().UTC()
	claims := SurfaceClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "surface",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        GenerateULID(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign surface token: %w", err)
	}
	return signed, nil
}

// Validate checks the signature and expiry and that the token was issued
// for sessionID
func (s *SurfaceTokens) Validate(tokenString, sessionID string) error {
	claims := &SurfaceClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSurfaceToken, err)
	}
	if !token.Valid || claims.SessionID != sessionID {
		return ErrInvalidSurfaceToken
	}
	return nil
}
