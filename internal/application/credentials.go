package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/bnema/opsbot/internal/domain"
	"github.com/bnema/opsbot/internal/logger"
	"github.com/bnema/opsbot/internal/ports"
)

// CredentialService materialises the credential set from a secret store
// chain and manages the keys kept in the persistent backends.
type CredentialService struct {
	store      ports.SecretStore
	persistent ports.SecretStore
	log        logger.Logger
}

func NewCredentialService(store, persistent ports.SecretStore, log logger.Logger) *CredentialService {
	if log == nil {
		log = logger.NewNop()
	}
	return &CredentialService{store: store, persistent: persistent, log: log}
}

// Load reads every recognised key once. Missing keys are left out of the
// set; requiring them is up to the caller.
func (s *CredentialService) Load(ctx context.Context) (domain.Credentials, error) {
	values := make(map[string]string, len(domain.CredentialKeys))
	for _, key := range domain.CredentialKeys {
		value, err := s.store.Get(ctx, key)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.Credentials{}, ctxErr
			}
			if errors.Is(err, ports.ErrSecretNotFound) {
				s.log.Debug("credential not set", logger.String("key", key))
			} else {
				s.log.Warn("credential lookup failed", logger.String("key", key), logger.Error(err))
			}
			continue
		}
		values[key] = value
	}
	return domain.NewCredentials(values), nil
}

// SecretStatus reports whether a recognised key resolves. It never carries
// the value.
type SecretStatus struct {
	Key     string `json:"key"`
	Present bool   `json:"present"`
}

func (s *CredentialService) Status(ctx context.Context) ([]SecretStatus, error) {
	credentials, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]SecretStatus, 0, len(domain.CredentialKeys))
	for _, key := range domain.CredentialKeys {
		statuses = append(statuses, SecretStatus{Key: key, Present: credentials.Has(key)})
	}
	return statuses, nil
}

func (s *CredentialService) SetSecret(ctx context.Context, key, value string) error {
	key, err := recognisedKey(key)
	if err != nil {
		return err
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return fmt.Errorf("%w: value for %s is empty", domain.ErrConfig, key)
	}
	if s.persistent == nil {
		return fmt.Errorf("%w: no persistent secret store configured", domain.ErrConfig)
	}

	if err := s.persistent.Put(ctx, key, value); err != nil {
		return fmt.Errorf("store secret %s: %w", key, err)
	}
	s.log.Info("secret stored", logger.String("key", key))
	return nil
}

func (s *CredentialService) RemoveSecret(ctx context.Context, key string) error {
	key, err := recognisedKey(key)
	if err != nil {
		return err
	}
	if s.persistent == nil {
		return fmt.Errorf("%w: no persistent secret store configured", domain.ErrConfig)
	}

	if err := s.persistent.Delete(ctx, key); err != nil {
		return fmt.Errorf("remove secret %s: %w", key, err)
	}
	s.log.Info("secret removed", logger.String("key", key))
	return nil
}

func recognisedKey(raw string) (string, error) {
	key := strings.ToUpper(strings.TrimSpace(raw))
	if !slices.Contains(domain.CredentialKeys, key) {
		return "", fmt.Errorf("%w: unknown credential key %q", domain.ErrConfig, raw)
	}
	return key, nil
}
