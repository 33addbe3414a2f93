package util

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"google.golang.org/grpc/metadata"
)

var (
	ErrMissingToken           = errors.New("authorization token not found")
	ErrMalformedAuthorization = errors.New("authorization header must be in format: Bearer <token>")
)

type Claims struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager signs and validates HS256 bearer tokens.
type TokenManager struct {
	key []byte
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{key: []byte(secret)}
}

// GenerateToken izdaje token za lokalni test; u realnosti token izdaje gateway/auth.
func (m *TokenManager) GenerateToken(id, username, role string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	claims := &Claims{
		ID:       id,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.key)
}

// ValidateToken parses and validates a JWT and returns its claims.
func (m *TokenManager) ValidateToken(tokenStr string) (*Claims, error) {
	if tokenStr == "" {
		return nil, ErrMissingToken
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		// ograniči na HMAC
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %T", t.Method)
		}
		return m.key, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ParseBearer extracts the token from an "Authorization: Bearer <token>" value.
func ParseBearer(value string) (string, error) {
	if value == "" {
		return "", ErrMissingToken
	}
	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", ErrMalformedAuthorization
	}
	return strings.TrimSpace(parts[1]), nil
}

// ExtractBearer iz Authorization metadata (gRPC): "Bearer <token>".
func ExtractBearer(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", ErrMissingToken
	}
	// header keys su lowercased; "authorization" je standard
	values := md.Get("authorization")
	if len(values) == 0 {
		return "", ErrMissingToken
	}
	return ParseBearer(values[0])
}
