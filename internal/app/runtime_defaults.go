package app

import (
	"fmt"
	"strings"

	"github.com/lifeloop/lifeloop/pkg/crypto"
)

const jwtSecretBytes = 48

// ApplyRuntimeDefaults ensures a token secret exists when no identity provider is configured.
// It returns a map describing which keys were generated so callers can log the event without exposing values.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)

	if !cfg.Auth.UseOIDC() && strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateSecret(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated["auth.jwt.secret"] = true
	}

	if cfg.Consent.Expiry <= 0 {
		cfg.Consent.Expiry = defaultConsentExpiry
		generated["consent.expiry"] = true
	}

	return generated, nil
}
