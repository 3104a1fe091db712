package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"crm-entitlements/internal/domain/access"
	"crm-entitlements/internal/domain/gate"
)

// Claims is the identity issued by the auth service.
type Claims struct {
	TenantID      string `json:"tenant_id"`
	Role          string `json:"role"`
	Email         string `json:"email,omitempty"`
	PlatformAdmin bool   `json:"platform_admin,omitempty"`
	jwt.RegisteredClaims
}

func (c Claims) actor() (*gate.Actor, error) {
	if c.TenantID == "" {
		return nil, errors.New("token has no tenant")
	}
	return &gate.Actor{
		TenantID:      c.TenantID,
		Subject:       c.Subject,
		Role:          access.ParseRole(c.Role),
		PlatformAdmin: c.PlatformAdmin,
	}, nil
}

// JWTAuthenticator verifies HS256 tokens signed with a shared secret.
type JWTAuthenticator struct {
	secret []byte
}

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret)}
}

func (a *JWTAuthenticator) Authenticate(_ context.Context, raw string) (*gate.Actor, error) {
	if len(a.secret) == 0 {
		return nil, errors.New("jwt secret not configured")
	}
	var claims Claims
	token, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid or expired token: %w", err)
	}
	return claims.actor()
}

// IssueToken signs claims with the shared secret. Used by tooling and tests.
func (a *JWTAuthenticator) IssueToken(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
