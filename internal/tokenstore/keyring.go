package tokenstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// KeyringStore keeps the token in the OS keyring.
type KeyringStore struct {
	service string
	user    string
}

// Compile-time check that KeyringStore implements TokenStore interface
var _ TokenStore = (*KeyringStore)(nil)

// NewKeyringStore creates a store for the given keyring service and user.
func NewKeyringStore(service, user string) *KeyringStore {
	return &KeyringStore{service: service, user: user}
}

// Read implements TokenStore.
func (s *KeyringStore) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	token, err := keyring.Get(s.service, s.user)
	if errors.Is(err, keyring.ErrNotFound) || (err == nil && token == "") {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading keyring: %w", err)
	}
	return token, nil
}

// Write implements TokenStore.
func (s *KeyringStore) Write(ctx context.Context, token string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if token == "" {
		if err := keyring.Delete(s.service, s.user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("deleting keyring entry: %w", err)
		}
		return nil
	}

	if err := keyring.Set(s.service, s.user, token); err != nil {
		return fmt.Errorf("writing keyring: %w", err)
	}
	return nil
}
