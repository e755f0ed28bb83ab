// Package tokenstore persists the refresh credential between runs.
//
// Backends:
//   - FileStore: a single file with 0600 permissions
//   - KeyringStore: the OS keyring (Keychain, Secret Service, Credential Manager)
//   - EnvStore: a read-only environment variable, for CI and containers
//
// Writing an empty string clears the stored credential.
package tokenstore

import (
	"context"
	"errors"
)

// TokenStore reads and writes tokens to persistent storage.
type TokenStore interface {
	// Read returns the stored token. Returns ErrNotFound if token is missing or empty.
	Read(ctx context.Context) (string, error)

	// Write persists the token to storage. Returns ErrReadOnly if the backend
	// is read-only (e.g., environment variables).
	Write(ctx context.Context, token string) error
}

var (
	// ErrNotFound is returned when no token is stored.
	ErrNotFound = errors.New("no stored token")

	// ErrReadOnly is returned when writing to a read-only backend.
	ErrReadOnly = errors.New("token storage is read-only")
)
