package files

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/opsbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "menu.txt")
	require.NoError(t, os.WriteFile(path, []byte("rice, sake"), 0o600))

	uploads, err := Load([]string{path})
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, "menu.txt", uploads[0].Name)
	assert.Equal(t, []byte("rice, sake"), uploads[0].Data)
	assert.Contains(t, uploads[0].ContentType, "text/plain")
}

func TestLoadErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Load([]string{filepath.Join(dir, "missing.png")})
	assert.ErrorIs(t, err, domain.ErrConfig)

	_, err = Load([]string{dir})
	assert.ErrorIs(t, err, domain.ErrConfig)

	many := make([]string, domain.MaxAttachments+1)
	_, err = Load(many)
	assert.ErrorIs(t, err, domain.ErrPayloadTooLarge)

	big := filepath.Join(dir, "big.bin")
	f, err := os.Create(big)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(domain.MaxAttachmentBytes+1))
	require.NoError(t, f.Close())

	_, err = Load([]string{big})
	assert.ErrorIs(t, err, domain.ErrPayloadTooLarge)
}
