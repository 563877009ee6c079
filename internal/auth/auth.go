// Package auth provides credential validation for callers of the game
// API. The registry and engine never see secrets; they receive an
// identity that has already been validated here.
package auth

import "errors"

var (
	// ErrUserExists indicates an account creation with a taken username.
	ErrUserExists = errors.New("auth: username already exists")
)

// Authenticator validates identity+secret pairs.
type Authenticator interface {
	// Validate reports whether secret is the credential for identity.
	Validate(identity, secret string) bool
}

// AllowAll accepts any credentials (dev mode).
type AllowAll struct{}

// NewAllowAll creates an authenticator that accepts all credentials.
func NewAllowAll() *AllowAll {
	return &AllowAll{}
}

func (a *AllowAll) Validate(identity, secret string) bool {
	return true
}
