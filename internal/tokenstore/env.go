package tokenstore

import (
	"context"
	"os"
)

// EnvStore reads the token from an environment variable. It is read-only.
type EnvStore struct {
	name   string
	lookup func(string) (string, bool)
}

// Compile-time check that EnvStore implements TokenStore interface
var _ TokenStore = (*EnvStore)(nil)

// NewEnvStore creates a store reading the variable name from the process
// environment.
func NewEnvStore(name string) *EnvStore {
	return &EnvStore{name: name, lookup: os.LookupEnv}
}

// Read implements TokenStore.
func (s *EnvStore) Read(_ context.Context) (string, error) {
	token, ok := s.lookup(s.name)
	if !ok || token == "" {
		return "", ErrNotFound
	}
	return token, nil
}

// Write implements TokenStore. Always returns ErrReadOnly.
func (s *EnvStore) Write(_ context.Context, _ string) error {
	return ErrReadOnly
}
