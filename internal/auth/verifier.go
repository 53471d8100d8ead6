// Package auth verifies access tokens minted by the hosted identity provider.
package auth

import (
	"context"
	"errors"
)

// ErrInvalidToken is returned for any token that fails verification.
var ErrInvalidToken = errors.New("auth: invalid access token")

// Identity is the authenticated caller.
type Identity struct {
	UserID string
	Email  string
}

// TokenVerifier validates a raw bearer token.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (*Identity, error)
}
