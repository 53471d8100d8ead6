package app

import (
	"strings"
	"time"

	"github.com/lifeloop/lifeloop/internal/auth"
)

const defaultTokenTTL = time.Hour

// JWTVerifierConfig converts AuthConfig into the parameters expected by the shared-secret verifier.
func (c AuthConfig) JWTVerifierConfig() auth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}

	return auth.JWTConfig{
		Secret:   c.JWT.Secret,
		Issuer:   strings.TrimSpace(c.JWT.Issuer),
		Audience: strings.TrimSpace(c.JWT.Audience),
		TokenTTL: ttl,
	}
}

// OIDCVerifierConfig converts AuthConfig into the discovery verifier parameters.
func (c AuthConfig) OIDCVerifierConfig() auth.OIDCConfig {
	return auth.OIDCConfig{
		IssuerURL: strings.TrimRight(strings.TrimSpace(c.OIDC.IssuerURL), "/"),
		Audience:  strings.TrimSpace(c.OIDC.Audience),
	}
}

// UseOIDC reports whether tokens should be verified against an OIDC issuer.
func (c AuthConfig) UseOIDC() bool {
	return strings.TrimSpace(c.OIDC.IssuerURL) != ""
}
