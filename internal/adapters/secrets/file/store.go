package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/bnema/opsbot/internal/ports"
)

const (
	storeDirMode  = 0o700
	secretFileMod = 0o600
)

// Keys double as file names, so only environment-style names are accepted.
var keyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Store keeps one secret per file under root, named after the credential key.
// An empty file counts as unset.
type Store struct {
	root string
	mu   sync.RWMutex
}

var _ ports.SecretStore = (*Store)(nil)

func NewStore(root string) *Store {
	return &Store{root: filepath.Clean(root)}
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	path, err := s.secretPath(ctx, key)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	data, err := os.ReadFile(path)
	s.mu.RUnlock()
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("secret file %s: %w", key, ports.ErrSecretNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("read secret %s: %w", key, err)
	}

	value := strings.TrimRight(string(data), "\r\n")
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("secret file %s is empty: %w", key, ports.ErrSecretNotFound)
	}
	return value, nil
}

// Put replaces the secret through a temp file renamed into place, so readers
// never see a partial value.
func (s *Store) Put(ctx context.Context, key string, value string) error {
	path, err := s.secretPath(ctx, key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.root, storeDirMode); err != nil {
		return fmt.Errorf("create secrets directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.root, "."+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp secret %s: %w", key, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if err := tmp.Chmod(secretFileMod); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("chmod temp secret %s: %w", key, err)
	}
	if _, err := tmp.WriteString(value + "\n"); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write secret %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp secret %s: %w", key, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("replace secret %s: %w", key, err)
	}

	return nil
}

// Delete treats an absent file as already deleted.
func (s *Store) Delete(ctx context.Context, key string) error {
	path, err := s.secretPath(ctx, key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete secret %s: %w", key, err)
	}
	return nil
}

func (s *Store) secretPath(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(key) == "" {
		return "", errors.New("secret key is empty")
	}
	if !keyPattern.MatchString(key) {
		return "", fmt.Errorf("invalid secret key %q", key)
	}
	return filepath.Join(s.root, key), nil
}
