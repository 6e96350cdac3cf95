package chain

import (
	"context"
	"errors"
	"fmt"

	envstore "github.com/bnema/opsbot/internal/adapters/secrets/env"
	filestore "github.com/bnema/opsbot/internal/adapters/secrets/file"
	passstore "github.com/bnema/opsbot/internal/adapters/secrets/pass"
	"github.com/bnema/opsbot/internal/ports"
)

// Backend is one named link of the chain.
type Backend struct {
	Name  string
	Store ports.SecretStore
}

// Store consults its backends in order. Get returns the first value found,
// Put writes to the first backend that accepts it and Delete removes the key
// from every backend.
type Store struct {
	backends []Backend
}

var _ ports.SecretStore = (*Store)(nil)

var errNoBackends = errors.New("secret store chain has no backends")

func NewStore(backends ...Backend) *Store {
	store, err := NewStoreChecked(backends...)
	if err != nil {
		panic(err)
	}

	return store
}

func NewStoreChecked(backends ...Backend) (*Store, error) {
	if len(backends) == 0 {
		return nil, errNoBackends
	}
	for i, backend := range backends {
		if backend.Store == nil {
			return nil, fmt.Errorf("secret store backend %d (%s) is nil", i, backend.Name)
		}
	}

	return &Store{backends: backends}, nil
}

// NewCredentialChain reads the process environment first, then pass, then
// the secrets directory.
func NewCredentialChain(secretsDir string) (*Store, error) {
	return NewStoreChecked(
		Backend{Name: "env", Store: envstore.NewStore()},
		Backend{Name: "pass", Store: passstore.NewStore(passstore.DefaultPrefix)},
		Backend{Name: "file", Store: filestore.NewStore(secretsDir)},
	)
}

// NewPersistentChain writes to pass and falls back to the secrets directory.
func NewPersistentChain(secretsDir string) (*Store, error) {
	return NewStoreChecked(
		Backend{Name: "pass", Store: passstore.NewStore(passstore.DefaultPrefix)},
		Backend{Name: "file", Store: filestore.NewStore(secretsDir)},
	)
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var errs []error
	for _, backend := range s.backends {
		value, err := backend.Store.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		if shouldSkipFallback(err) {
			return "", err
		}
		errs = append(errs, fmt.Errorf("%s backend get failed: %w", backend.Name, err))
	}

	return "", errors.Join(errs...)
}

func (s *Store) Put(ctx context.Context, key string, value string) error {
	var errs []error
	for _, backend := range s.backends {
		err := backend.Store.Put(ctx, key, value)
		if err == nil {
			return nil
		}
		if shouldSkipFallback(err) {
			return err
		}
		errs = append(errs, fmt.Errorf("%s backend put failed: %w", backend.Name, err))
	}

	return errors.Join(errs...)
}

func (s *Store) Delete(ctx context.Context, key string) error {
	var errs []error
	for _, backend := range s.backends {
		err := backend.Store.Delete(ctx, key)
		if err == nil {
			continue
		}
		if shouldSkipFallback(err) {
			return err
		}
		errs = append(errs, fmt.Errorf("%s backend delete failed: %w", backend.Name, err))
	}

	return errors.Join(errs...)
}

func shouldSkipFallback(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
