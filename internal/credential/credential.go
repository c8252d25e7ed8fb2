// Package credential stores the bearer token the gateway attaches to backend
// requests.
package credential

import (
	"context"
	"errors"
)

// TokenKey is the well-known key the token is stored under.
const TokenKey = "eye_life_token"

// ErrNotFound is returned when no token is stored.
var ErrNotFound = errors.New("credential not found")

// Store holds a single bearer token.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// KV is the subset of a key-value store the KVStore backend needs.
type KV interface {
	GetValue(ctx context.Context, key string) (string, error)
	SetValue(ctx context.Context, key, value string) error
	DeleteValue(ctx context.Context, key string) error
}

// KVStore keeps the token in a local key-value table. GetValue must return
// an error wrapping ErrNotFound (or an empty value) when the key is absent.
type KVStore struct {
	kv KV
}

// NewKVStore returns a Store backed by kv.
func NewKVStore(kv KV) *KVStore {
	return &KVStore{kv: kv}
}

func (s *KVStore) Get(ctx context.Context) (string, error) {
	v, err := s.kv.GetValue(ctx, TokenKey)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", ErrNotFound
	}
	return v, nil
}

func (s *KVStore) Set(ctx context.Context, token string) error {
	if token == "" {
		return errors.New("token cannot be empty")
	}
	return s.kv.SetValue(ctx, TokenKey, token)
}

func (s *KVStore) Clear(ctx context.Context) error {
	return s.kv.DeleteValue(ctx, TokenKey)
}
