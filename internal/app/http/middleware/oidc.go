package middleware

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"crm-entitlements/internal/domain/gate"
)

// OIDCAuthenticator accepts ID tokens from an external identity provider
// that carries the tenant and role claims.
type OIDCAuthenticator struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCAuthenticator discovers issuer and verifies tokens for clientID.
func NewOIDCAuthenticator(ctx context.Context, issuer, clientID string) (*OIDCAuthenticator, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery for %s: %w", issuer, err)
	}
	return &OIDCAuthenticator{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

// NewOIDCAuthenticatorWithVerifier uses a prepared verifier, e.g. one on a
// static key set.
func NewOIDCAuthenticatorWithVerifier(v *oidc.IDTokenVerifier) *OIDCAuthenticator {
	return &OIDCAuthenticator{verifier: v}
}

func (a *OIDCAuthenticator) Authenticate(ctx context.Context, raw string) (*gate.Actor, error) {
	idToken, err := a.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}
	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decode id token claims: %w", err)
	}
	claims.Subject = idToken.Subject
	return claims.actor()
}
