package credential

import (
	"context"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// ErrKeyringUnavailable is returned when the OS keyring cannot be used.
var ErrKeyringUnavailable = errors.New("OS keyring is not available")

// KeyringStore keeps the token in the OS keyring.
type KeyringStore struct {
	service string
}

// NewKeyringStore returns a Store using the OS keyring under service.
func NewKeyringStore(service string) *KeyringStore {
	return &KeyringStore{service: service}
}

func (s *KeyringStore) Get(_ context.Context) (string, error) {
	token, err := keyring.Get(s.service, TokenKey)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}
	return token, nil
}

func (s *KeyringStore) Set(_ context.Context, token string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	if err := keyring.Set(s.service, TokenKey, token); err != nil {
		return fmt.Errorf("store token in keyring: %w", err)
	}
	return nil
}

// Clear removes the token. Clearing an absent token is not an error.
func (s *KeyringStore) Clear(_ context.Context) error {
	err := keyring.Delete(s.service, TokenKey)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("delete token from keyring: %w", err)
	}
	return nil
}

// KeyringAvailable makes a best-effort check that the OS keyring works.
func KeyringAvailable(service string) bool {
	_, err := keyring.Get(service, "availability-check")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
