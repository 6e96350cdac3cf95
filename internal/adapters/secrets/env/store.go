package env

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/bnema/opsbot/internal/ports"
)

// Store reads credentials from the process environment.
type Store struct {
	lookup   func(string) (string, bool)
	setenv   func(string, string) error
	unsetenv func(string) error
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore() *Store {
	return &Store{lookup: os.LookupEnv, setenv: os.Setenv, unsetenv: os.Unsetenv}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	value, ok := s.lookup(key)
	if !ok || strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("environment %s: %w", key, ports.ErrSecretNotFound)
	}
	return value, nil
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.setenv(key, value)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.unsetenv(key)
}
